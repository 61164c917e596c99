// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"

	"github.com/bureau-foundation/synapse-admin/lib/ref"
	"github.com/bureau-foundation/synapse-admin/messaging"
)

// ExactArgs returns a validation error unless args has exactly count
// entries. names labels the expected arguments in the message.
func ExactArgs(args []string, names ...string) error {
	if len(args) == len(names) {
		return nil
	}
	if len(args) < len(names) {
		return Validation("missing argument <%s>", names[len(args)])
	}
	return Validation("unexpected argument %q (expected %s)", args[len(names)], expectedList(names))
}

func expectedList(names []string) string {
	if len(names) == 0 {
		return "no arguments"
	}
	return "<" + strings.Join(names, "> <") + ">"
}

// ParseUserID parses a user ID argument, reporting failures as
// validation errors.
func ParseUserID(raw string) (ref.UserID, error) {
	userID, err := ref.ParseUserID(raw)
	if err != nil {
		return ref.UserID{}, Validation("%w", err)
	}
	return userID, nil
}

// ParseDeviceIDs parses device ID arguments.
func ParseDeviceIDs(raw []string) ([]ref.DeviceID, error) {
	deviceIDs := make([]ref.DeviceID, 0, len(raw))
	for _, value := range raw {
		deviceID, err := ref.ParseDeviceID(value)
		if err != nil {
			return nil, Validation("%w", err)
		}
		deviceIDs = append(deviceIDs, deviceID)
	}
	return deviceIDs, nil
}

// RoomIdentifier expands a room argument for the resolver. Room IDs
// pass through; aliases are completed with the session's server name,
// so "ops" and "#ops" both become "#ops:<server>".
func RoomIdentifier(session *messaging.Session, raw string) (string, error) {
	if strings.HasPrefix(raw, "!") {
		return raw, nil
	}
	alias, err := session.QualifyAlias(raw)
	if err != nil {
		return "", Validation("room %q: %w", raw, err)
	}
	return alias.String(), nil
}
