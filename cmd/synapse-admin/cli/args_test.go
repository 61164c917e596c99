// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"strings"
	"testing"

	"github.com/bureau-foundation/synapse-admin/messaging"
)

func TestExactArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		names   []string
		wantErr string
	}{
		{"exact", []string{"@a:x"}, []string{"user-id"}, ""},
		{"none expected", nil, nil, ""},
		{"missing", nil, []string{"user-id"}, "missing argument <user-id>"},
		{"missing second", []string{"@a:x"}, []string{"user-id", "device-id"}, "missing argument <device-id>"},
		{"extra", []string{"@a:x", "more"}, []string{"user-id"}, `unexpected argument "more"`},
		{"extra with none expected", []string{"x"}, nil, "expected no arguments"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := ExactArgs(test.args, test.names...)
			if test.wantErr == "" {
				if err != nil {
					t.Errorf("ExactArgs error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("ExactArgs error = %v, want %q", err, test.wantErr)
			}
		})
	}
}

func TestParseUserID(t *testing.T) {
	userID, err := ParseUserID("@alice:example.org")
	if err != nil {
		t.Fatalf("ParseUserID: %v", err)
	}
	if userID.String() != "@alice:example.org" {
		t.Errorf("userID = %s", userID)
	}

	_, err = ParseUserID("alice")
	var toolErr *ToolError
	if !errors.As(err, &toolErr) || toolErr.Category != CategoryValidation {
		t.Errorf("ParseUserID(alice) error = %v, want a validation error", err)
	}
}

func TestParseDeviceIDs(t *testing.T) {
	deviceIDs, err := ParseDeviceIDs([]string{"ABCDEF", "GHIJKL"})
	if err != nil {
		t.Fatalf("ParseDeviceIDs: %v", err)
	}
	if len(deviceIDs) != 2 || deviceIDs[1].String() != "GHIJKL" {
		t.Errorf("deviceIDs = %v", deviceIDs)
	}
	if _, err := ParseDeviceIDs([]string{""}); err == nil {
		t.Error("ParseDeviceIDs should reject an empty ID")
	}
}

func TestRoomIdentifier(t *testing.T) {
	client, err := messaging.NewClient(messaging.ClientConfig{HomeserverURL: "https://matrix.example.org"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	session := client.NewSession(messaging.Credentials{AccessToken: "abc"})

	tests := []struct {
		raw  string
		want string
	}{
		{"!abc:example.org", "!abc:example.org"},
		{"#ops:other.org", "#ops:other.org"},
		{"#ops", "#ops:matrix.example.org"},
		{"ops", "#ops:matrix.example.org"},
	}
	for _, test := range tests {
		got, err := RoomIdentifier(session, test.raw)
		if err != nil {
			t.Errorf("RoomIdentifier(%q): %v", test.raw, err)
			continue
		}
		if got != test.want {
			t.Errorf("RoomIdentifier(%q) = %q, want %q", test.raw, got, test.want)
		}
	}
}
