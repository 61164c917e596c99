// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseUserID(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		wantLocalpart string
		wantServer    string
		wantErr       string
	}{
		{name: "simple", input: "@admin:example.org", wantLocalpart: "admin", wantServer: "example.org"},
		{name: "server with port", input: "@bot:localhost:8448", wantLocalpart: "bot", wantServer: "localhost:8448"},
		{name: "historical upper case", input: "@Alice:example.org", wantLocalpart: "Alice", wantServer: "example.org"},
		{name: "empty", input: "", wantErr: "must start with @"},
		{name: "wrong sigil", input: "#room:example.org", wantErr: "must start with @"},
		{name: "missing server", input: "@admin", wantErr: "missing :server"},
		{name: "empty localpart", input: "@:example.org", wantErr: "empty localpart"},
		{name: "empty server", input: "@admin:", wantErr: "empty server"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			userID, err := ParseUserID(test.input)
			if test.wantErr != "" {
				if err == nil {
					t.Fatalf("ParseUserID(%q) succeeded, want error containing %q", test.input, test.wantErr)
				}
				if !strings.Contains(err.Error(), test.wantErr) {
					t.Fatalf("ParseUserID(%q) error = %q, want error containing %q", test.input, err, test.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseUserID(%q) unexpected error: %v", test.input, err)
			}
			if userID.String() != test.input {
				t.Errorf("String() = %q, want %q", userID.String(), test.input)
			}
			if userID.Localpart() != test.wantLocalpart {
				t.Errorf("Localpart() = %q, want %q", userID.Localpart(), test.wantLocalpart)
			}
			if userID.Server().String() != test.wantServer {
				t.Errorf("Server() = %q, want %q", userID.Server(), test.wantServer)
			}
		})
	}
}

func TestUserIDJSON(t *testing.T) {
	type wrapper struct {
		User UserID `json:"user"`
	}
	var decoded wrapper
	if err := json.Unmarshal([]byte(`{"user":"@admin:example.org"}`), &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.User.String() != "@admin:example.org" {
		t.Errorf("decoded user = %q", decoded.User)
	}
	if err := json.Unmarshal([]byte(`{"user":"admin"}`), &decoded); err == nil {
		t.Error("Unmarshal accepted a user ID without sigil")
	}
	encoded, err := json.Marshal(wrapper{User: MustParseUserID("@bot:example.org")})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(encoded) != `{"user":"@bot:example.org"}` {
		t.Errorf("Marshal = %s", encoded)
	}
}

func TestUserIDZeroValue(t *testing.T) {
	var zero UserID
	if !zero.IsZero() {
		t.Error("zero value: IsZero() = false, want true")
	}
	if zero.Localpart() != "" {
		t.Errorf("zero value: Localpart() = %q, want empty", zero.Localpart())
	}
	if !zero.Server().IsZero() {
		t.Errorf("zero value: Server() = %q, want zero", zero.Server())
	}
}
