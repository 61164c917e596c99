// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/synapse-admin/cmd/synapse-admin/cli"
	"github.com/bureau-foundation/synapse-admin/lib/clock"
	"github.com/bureau-foundation/synapse-admin/lib/config"
	"github.com/bureau-foundation/synapse-admin/lib/testutil"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func run(t *testing.T, command *cli.Command, homeserver *testutil.Homeserver, args ...string) error {
	t.Helper()
	t.Setenv(config.EnvironmentVariable, "")
	args = append(args, "--homeserver", homeserver.URL(), "--token", "admin-token", "--no-cache")
	return command.Execute(context.Background(), args)
}

func runServer(t *testing.T, homeserver *testutil.Homeserver, args ...string) (string, error) {
	t.Helper()
	var stdout bytes.Buffer
	err := run(t, Command(&stdout), homeserver, args...)
	return stdout.String(), err
}

func runToken(t *testing.T, homeserver *testutil.Homeserver, args ...string) (string, error) {
	t.Helper()
	var stdout bytes.Buffer
	err := run(t, tokenCommand(&stdout, clock.Fake(now)), homeserver, args...)
	return stdout.String(), err
}

func TestVersion(t *testing.T) {
	homeserver := testutil.NewHomeserver(t)
	homeserver.Respond("GET", "/_synapse/admin/v1/server_version", http.StatusOK, map[string]string{"server_version": "1.120.0"})

	stdout, err := runServer(t, homeserver, "version")
	if err != nil {
		t.Fatalf("server version: %v", err)
	}
	if stdout != "Synapse 1.120.0\n" {
		t.Errorf("output = %q", stdout)
	}
}

func TestVersionUsesConfiguredAPIVersion(t *testing.T) {
	homeserver := testutil.NewHomeserver(t)
	homeserver.Respond("GET", "/_synapse/admin/v2/server_version", http.StatusOK, map[string]string{"server_version": "1.120.0"})

	if _, err := runServer(t, homeserver, "version", "--api-version", "v2"); err != nil {
		t.Fatalf("server version: %v", err)
	}
}

func TestInfoReportsFailedSections(t *testing.T) {
	homeserver := testutil.NewHomeserver(t)
	homeserver.Respond("GET", "/_synapse/admin/v1/server_version", http.StatusOK, map[string]string{"server_version": "1.120.0"})
	homeserver.Respond("GET", "/_synapse/admin/v2/users", http.StatusOK, map[string]any{
		"users": []map[string]any{{"name": "@alice:example.org"}},
		"total": 12,
	})
	homeserver.Respond("GET", "/_synapse/admin/v1/rooms", http.StatusInternalServerError, map[string]string{"errcode": "M_UNKNOWN"})
	homeserver.Respond("GET", "/_synapse/admin/v1/registration_tokens", http.StatusOK, map[string]any{
		"registration_tokens": []map[string]any{{"token": "abc"}},
	})

	stdout, err := runServer(t, homeserver, "info", "--section", "all", "--limit", "1", "--users-filter", "ali", "--json")
	if err != nil {
		t.Fatalf("server info: %v", err)
	}
	var report struct {
		Result struct {
			Version            map[string]string `json:"version"`
			UsersTotal         int               `json:"users_total"`
			Rooms              []any             `json:"rooms"`
			RegistrationTokens []any             `json:"registration_tokens"`
			Warnings           []string          `json:"warnings"`
		} `json:"result"`
	}
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("decoding %q: %v", stdout, err)
	}
	if report.Result.Version["server_version"] != "1.120.0" || report.Result.UsersTotal != 12 {
		t.Errorf("result = %+v", report.Result)
	}
	if len(report.Result.RegistrationTokens) != 1 || report.Result.Rooms != nil {
		t.Errorf("result = %+v", report.Result)
	}
	if len(report.Result.Warnings) != 1 || !strings.HasPrefix(report.Result.Warnings[0], "rooms:") {
		t.Errorf("warnings = %q", report.Result.Warnings)
	}

	request, _ := homeserver.Find("GET", "/_synapse/admin/v2/users")
	if request.Query.Get("name") != "ali" || request.Query.Get("limit") != "1" {
		t.Errorf("users query = %v", request.Query)
	}
}

func TestInfoRejectsUnknownSection(t *testing.T) {
	homeserver := testutil.NewHomeserver(t)
	_, err := runServer(t, homeserver, "info", "--section", "media")
	var toolErr *cli.ToolError
	if !errors.As(err, &toolErr) || toolErr.Category != cli.CategoryValidation {
		t.Fatalf("error = %v, want validation", err)
	}
}

func TestTokenCreate(t *testing.T) {
	homeserver := testutil.NewHomeserver(t)
	expiry := now.Add(72 * time.Hour).UnixMilli()
	homeserver.Respond("POST", "/_synapse/admin/v1/registration_tokens/new", http.StatusOK, map[string]any{
		"token":        "invite-1",
		"uses_allowed": 1,
		"pending":      0,
		"completed":    0,
		"expiry_time":  expiry,
	})

	stdout, err := runToken(t, homeserver, "create", "--token-value", "invite-1", "--uses-allowed", "1", "--expires-in", "72h")
	if err != nil {
		t.Fatalf("token create: %v", err)
	}
	request, _ := homeserver.Find("POST", "/_synapse/admin/v1/registration_tokens/new")
	var body map[string]any
	request.Decode(t, &body)
	if body["token"] != "invite-1" || body["uses_allowed"] != float64(1) || body["expiry_time"] != float64(expiry) {
		t.Errorf("body = %v", body)
	}
	if !strings.Contains(stdout, "uses: 1") || !strings.Contains(stdout, "2026-06-04T12:00:00Z") {
		t.Errorf("output = %q", stdout)
	}
}

func TestTokenCreateDefaultsAreOmitted(t *testing.T) {
	homeserver := testutil.NewHomeserver(t)
	homeserver.Respond("POST", "/_synapse/admin/v1/registration_tokens/new", http.StatusOK, map[string]any{
		"token": "generated", "uses_allowed": nil, "expiry_time": nil,
	})

	stdout, err := runToken(t, homeserver, "create")
	if err != nil {
		t.Fatalf("token create: %v", err)
	}
	request, _ := homeserver.Find("POST", "/_synapse/admin/v1/registration_tokens/new")
	var body map[string]any
	request.Decode(t, &body)
	if len(body) != 0 {
		t.Errorf("body = %v, want empty", body)
	}
	if stdout != "generated (uses: unlimited, expires: never)\n" {
		t.Errorf("output = %q", stdout)
	}
}

func TestTokenListValidFilter(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unfiltered", nil, ""},
		{"valid", []string{"--valid"}, "true"},
		{"invalid", []string{"--valid=false"}, "false"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			homeserver := testutil.NewHomeserver(t)
			homeserver.Respond("GET", "/_synapse/admin/v1/registration_tokens", http.StatusOK, map[string]any{
				"registration_tokens": []map[string]any{{"token": "abc", "uses_allowed": 3, "pending": 1, "completed": 1}},
			})
			stdout, err := runToken(t, homeserver, append([]string{"list"}, test.args...)...)
			if err != nil {
				t.Fatalf("token list: %v", err)
			}
			request, _ := homeserver.Find("GET", "/_synapse/admin/v1/registration_tokens")
			if got := request.Query.Get("valid"); got != test.want {
				t.Errorf("valid = %q, want %q", got, test.want)
			}
			if !strings.Contains(stdout, "abc") {
				t.Errorf("output = %q", stdout)
			}
		})
	}
}
