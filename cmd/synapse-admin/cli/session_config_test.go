// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/synapse-admin/lib/config"
	"github.com/bureau-foundation/synapse-admin/lib/credcache"
	"github.com/bureau-foundation/synapse-admin/lib/sealed"
	"github.com/bureau-foundation/synapse-admin/messaging"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, directory, name, content string) string {
	t.Helper()
	path := filepath.Join(directory, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSessionConfig_ResolveFromFileWithOverrides(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")
	directory := t.TempDir()
	path := writeFile(t, directory, "synapse-admin.yaml", `
homeserver:
  url: https://matrix.example.org
  timeout: 10s
admin:
  user_id: "@admin:example.org"
  access_token: from-file
cache:
  directory: /var/cache/tokens
`)

	session := SessionConfig{
		ConfigFile: path,
		Token:      "from-flag",
		APIVersion: "v2",
		Insecure:   true,
		NoCache:    true,
	}
	cfg, err := session.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if cfg.Homeserver.URL != "https://matrix.example.org" {
		t.Errorf("URL = %q", cfg.Homeserver.URL)
	}
	if cfg.Admin.AccessToken != "from-flag" {
		t.Errorf("AccessToken = %q, want the flag to win", cfg.Admin.AccessToken)
	}
	if cfg.Admin.UserID != "@admin:example.org" {
		t.Errorf("UserID = %q", cfg.Admin.UserID)
	}
	if cfg.Admin.APIVersion != "v2" {
		t.Errorf("APIVersion = %q", cfg.Admin.APIVersion)
	}
	if cfg.Homeserver.ValidateCerts {
		t.Error("--insecure should disable certificate validation")
	}
	if !cfg.Cache.Disabled {
		t.Error("--no-cache should disable the cache")
	}
}

func TestSessionConfig_ResolveWithoutFile(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")
	session := SessionConfig{HomeserverURL: "http://localhost:8008", Token: "abc"}
	cfg, err := session.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if strings.Contains(cfg.Cache.Directory, "${") {
		t.Errorf("cache directory not expanded: %q", cfg.Cache.Directory)
	}
}

func TestSessionConfig_ResolveRejectsInvalid(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")
	tests := []struct {
		name    string
		session SessionConfig
	}{
		{"no homeserver", SessionConfig{Token: "abc"}},
		{"bad scheme", SessionConfig{HomeserverURL: "ftp://example.org", Token: "abc"}},
		{"bad api version", SessionConfig{HomeserverURL: "http://localhost", APIVersion: "v3"}},
		{"missing file", SessionConfig{ConfigFile: filepath.Join(t.TempDir(), "absent.yaml")}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := test.session.Resolve()
			var toolErr *ToolError
			if !errors.As(err, &toolErr) || toolErr.Category != CategoryValidation {
				t.Errorf("Resolve error = %v, want a validation error", err)
			}
		})
	}
}

func TestSessionConfig_ConnectRequiresCredentials(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")
	session := SessionConfig{
		HomeserverURL: "http://localhost:8008",
		NoCache:       true,
		Logger:        discardLogger(),
	}
	_, err := session.Connect()
	if err == nil || !strings.Contains(err.Error(), "no usable credentials") {
		t.Errorf("Connect error = %v, want no usable credentials", err)
	}
}

func TestSessionConfig_ConnectUsesCachedToken(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")
	cacheDirectory := t.TempDir()
	credcache.New(cacheDirectory, discardLogger()).Save(credcache.IdentityHash("@admin:example.org"), "cached-token")
	passwordFile := writeFile(t, t.TempDir(), "password", "hunter2\n")

	session := SessionConfig{
		HomeserverURL: "http://localhost:8008",
		Token:         "CHANGEME",
		AdminUser:     "@admin:example.org",
		PasswordFile:  passwordFile,
		CacheDir:      cacheDirectory,
		Logger:        discardLogger(),
	}
	connection, err := session.Connect()
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer connection.Close()

	if got := connection.Session.Credentials().AccessToken; got != "cached-token" {
		t.Errorf("AccessToken = %q, want the cached token", got)
	}
	if connection.Password() == nil || connection.Password().String() != "hunter2" {
		t.Error("password file was not read")
	}
}

func TestSessionConfig_ConnectSealsCache(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")
	keypair, err := sealed.GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	defer keypair.Close()
	keyFile := writeFile(t, t.TempDir(), "cache.key", keypair.PrivateKey.String()+"\n")

	session := SessionConfig{
		HomeserverURL: "http://localhost:8008",
		Token:         "admin-token",
		CacheDir:      t.TempDir(),
		CacheKeyFile:  keyFile,
		Logger:        discardLogger(),
	}
	connection, err := session.Connect()
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !connection.cache.Sealed() {
		t.Error("cache is not sealed")
	}
	if err := connection.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestSessionConfig_ConnectRejectsBadCacheKey(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")
	session := SessionConfig{
		HomeserverURL: "http://localhost:8008",
		Token:         "admin-token",
		CacheDir:      t.TempDir(),
		CacheKeyFile:  writeFile(t, t.TempDir(), "cache.key", "not an age key\n"),
		Logger:        discardLogger(),
	}
	_, err := session.Connect()
	var toolErr *ToolError
	if !errors.As(err, &toolErr) || toolErr.Category != CategoryValidation {
		t.Errorf("Connect error = %v, want a validation error", err)
	}
}

func TestConnection_EmitReportsRefreshedToken(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		switch {
		case request.URL.Path == "/_matrix/client/v3/login":
			json.NewEncoder(writer).Encode(map[string]string{"access_token": "fresh", "user_id": "@admin:example.org"})
		case request.Header.Get("Authorization") == "Bearer fresh":
			json.NewEncoder(writer).Encode(map[string]string{"server_version": "1.120.0"})
		default:
			writer.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(writer).Encode(map[string]string{"errcode": "M_UNKNOWN_TOKEN", "error": "expired"})
		}
	}))
	defer server.Close()

	var stdout bytes.Buffer
	session := SessionConfig{
		HomeserverURL: server.URL,
		Token:         "stale",
		AdminUser:     "@admin:example.org",
		PasswordFile:  writeFile(t, t.TempDir(), "password", "hunter2"),
		CacheDir:      t.TempDir(),
		Logger:        discardLogger(),
		Stdout:        &stdout,
	}
	connection, err := session.Connect()
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer connection.Close()

	version, err := connection.Session.ServerVersion(context.Background())
	if err != nil {
		t.Fatalf("ServerVersion: %v", err)
	}

	if err := connection.Emit(&JSONOutput{OutputJSON: true}, version, nil); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	var report struct {
		Result          messaging.ServerVersion `json:"result"`
		Reauthenticated bool                    `json:"reauthenticated"`
		AccessToken     string                  `json:"access_token"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &report); err != nil {
		t.Fatalf("decoding report %q: %v", stdout.String(), err)
	}
	if !report.Reauthenticated || report.AccessToken != "fresh" {
		t.Errorf("report = %+v, want reauthenticated with the fresh token", report)
	}
	if report.Result.ServerVersion != "1.120.0" {
		t.Errorf("result = %+v", report.Result)
	}
}

func TestConnection_EmitText(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")
	var stdout bytes.Buffer
	session := SessionConfig{
		HomeserverURL: "http://localhost:8008",
		Token:         "abc",
		NoCache:       true,
		Logger:        discardLogger(),
		Stdout:        &stdout,
	}
	connection, err := session.Connect()
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer connection.Close()

	err = connection.Emit(&JSONOutput{}, []string(nil), func(w io.Writer) error {
		_, err := io.WriteString(w, "plain\n")
		return err
	})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if stdout.String() != "plain\n" {
		t.Errorf("stdout = %q, want the text rendering", stdout.String())
	}
}
