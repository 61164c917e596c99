// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"fmt"
	"strings"
)

// RoomAlias is a validated Matrix room alias (e.g., "#ops:example.org").
// Aliases are human-readable names that the directory maps to a RoomID.
type RoomAlias struct {
	alias string
}

// ParseRoomAlias validates and wraps a raw Matrix room alias string.
func ParseRoomAlias(raw string) (RoomAlias, error) {
	if _, _, err := parseRoomAlias(raw); err != nil {
		return RoomAlias{}, err
	}
	return RoomAlias{alias: raw}, nil
}

// MustParseRoomAlias is like ParseRoomAlias but panics on error.
func MustParseRoomAlias(raw string) RoomAlias {
	a, err := ParseRoomAlias(raw)
	if err != nil {
		panic(fmt.Sprintf("ref.MustParseRoomAlias(%q): %v", raw, err))
	}
	return a
}

// QualifyRoomAlias completes a shorthand alias. A missing '#' is
// prepended and a missing ":server" is appended using the given server:
//
//	QualifyRoomAlias("ops", "example.org")          → #ops:example.org
//	QualifyRoomAlias("#ops", "example.org")         → #ops:example.org
//	QualifyRoomAlias("#ops:other.org", "example.org") → #ops:other.org
func QualifyRoomAlias(raw string, server ServerName) (RoomAlias, error) {
	alias := raw
	if !strings.HasPrefix(alias, "#") {
		alias = "#" + alias
	}
	if !strings.Contains(alias, ":") {
		if server.IsZero() {
			return RoomAlias{}, fmt.Errorf("room alias %q has no server and no default server is configured", raw)
		}
		alias += ":" + server.name
	}
	return ParseRoomAlias(alias)
}

// String returns the full room alias string.
func (a RoomAlias) String() string { return a.alias }

// IsZero reports whether the RoomAlias is unset.
func (a RoomAlias) IsZero() bool { return a.alias == "" }

// Localpart returns the alias without the '#' prefix or ':server' suffix.
func (a RoomAlias) Localpart() string {
	localpart, _, _ := parseRoomAlias(a.alias)
	return localpart
}

// Server returns the server name from the alias.
func (a RoomAlias) Server() ServerName {
	_, server, err := parseRoomAlias(a.alias)
	if err != nil {
		return ServerName{}
	}
	return ServerName{name: server}
}

// MarshalText implements encoding.TextMarshaler.
func (a RoomAlias) MarshalText() ([]byte, error) {
	return []byte(a.alias), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty input
// produces the zero value.
func (a *RoomAlias) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*a = RoomAlias{}
		return nil
	}
	parsed, err := ParseRoomAlias(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
