// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/bureau-foundation/synapse-admin/lib/credcache"
	"github.com/bureau-foundation/synapse-admin/lib/secret"
)

const testAdminUser = "@admin:example.org"

// testBuffer creates a secret.Buffer from a string for testing. The buffer
// is automatically closed when the test completes.
func testBuffer(t *testing.T, value string) *secret.Buffer {
	t.Helper()
	buffer, err := secret.NewFromString(value)
	if err != nil {
		t.Fatalf("creating test buffer: %v", err)
	}
	t.Cleanup(func() { buffer.Close() })
	return buffer
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestClient returns a client for server. config.HomeserverURL and
// config.Logger are filled in.
func newTestClient(t *testing.T, server *httptest.Server, config ClientConfig) *Client {
	t.Helper()
	config.HomeserverURL = server.URL
	if config.Logger == nil {
		config.Logger = testLogger()
	}
	client, err := NewClient(config)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func testIdentity(t *testing.T) *Identity {
	return &Identity{UserID: testAdminUser, Password: testBuffer(t, "hunter2")}
}

func TestNewClient(t *testing.T) {
	t.Run("valid URL", func(t *testing.T) {
		client, err := NewClient(ClientConfig{HomeserverURL: "https://matrix.example.org/"})
		if err != nil {
			t.Fatalf("NewClient failed: %v", err)
		}
		if client.baseURL != "https://matrix.example.org" {
			t.Errorf("baseURL = %q, want trailing slash trimmed", client.baseURL)
		}
		if client.ServerName().String() != "matrix.example.org" {
			t.Errorf("ServerName = %q, want matrix.example.org", client.ServerName())
		}
		if client.httpClient.Timeout != DefaultTimeout {
			t.Errorf("Timeout = %v, want %v", client.httpClient.Timeout, DefaultTimeout)
		}
	})

	t.Run("empty URL", func(t *testing.T) {
		_, err := NewClient(ClientConfig{})
		if err == nil {
			t.Fatal("expected error for empty URL")
		}
	})

	t.Run("invalid URL", func(t *testing.T) {
		_, err := NewClient(ClientConfig{HomeserverURL: "://invalid"})
		if err == nil {
			t.Fatal("expected error for invalid URL")
		}
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		_, err := NewClient(ClientConfig{HomeserverURL: "ftp://matrix.example.org"})
		if err == nil {
			t.Fatal("expected error for ftp scheme")
		}
	})

	t.Run("supplied client gets a timeout", func(t *testing.T) {
		client, err := NewClient(ClientConfig{
			HomeserverURL: "http://localhost:8008",
			HTTPClient:    &http.Client{},
		})
		if err != nil {
			t.Fatalf("NewClient failed: %v", err)
		}
		if client.httpClient.Timeout != DefaultTimeout {
			t.Errorf("Timeout = %v, want %v", client.httpClient.Timeout, DefaultTimeout)
		}
	})
}

func TestExecuteHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "admin-token")
		contentType := request.Header.Get("Content-Type")
		switch request.Method {
		case http.MethodGet:
			if contentType != "" {
				t.Errorf("GET without body sent Content-Type %q", contentType)
			}
		case http.MethodPost:
			if contentType != "application/json" {
				t.Errorf("POST Content-Type = %q, want application/json", contentType)
			}
			var body map[string]any
			if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
				t.Errorf("decoding body: %v", err)
			}
			if body["erase"] != true {
				t.Errorf("body = %v, want erase=true", body)
			}
		}
		writeJSON(writer, map[string]any{})
	}))
	defer server.Close()

	client := newTestClient(t, server, ClientConfig{})
	credentials := Credentials{AccessToken: "admin-token"}

	result, _ := client.Execute(context.Background(), credentials, Request{
		Method: http.MethodGet, Surface: AdminSurface(""), Endpoint: "server_version",
	})
	if !result.OK() {
		t.Fatalf("GET status = %d", result.StatusCode)
	}
	if !strings.HasSuffix(result.URL, "/_synapse/admin/v1/server_version") {
		t.Errorf("URL = %q", result.URL)
	}

	result, _ = client.Execute(context.Background(), credentials, Request{
		Method: http.MethodPost, Surface: AdminSurface(""), Endpoint: "deactivate/x",
		Body: map[string]any{"erase": true},
	})
	if !result.OK() {
		t.Fatalf("POST status = %d", result.StatusCode)
	}
}

func TestExecuteSendsUserAgent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if got := request.Header.Get("User-Agent"); got != "ops-bot/2.0" {
			t.Errorf("User-Agent = %q, want ops-bot/2.0", got)
		}
		writeJSON(writer, map[string]any{})
	}))
	defer server.Close()

	client := newTestClient(t, server, ClientConfig{UserAgent: "ops-bot/2.0"})
	client.Execute(context.Background(), Credentials{}, Request{
		Method: http.MethodGet, Surface: AdminSurface(""), Endpoint: "server_version",
	})
}

func TestExecuteEmptyTokenSendsNoAuthorization(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if auth := request.Header.Get("Authorization"); auth != "" {
			t.Errorf("Authorization = %q, want none", auth)
		}
		writeJSON(writer, map[string]any{"versions": []string{"v1.11"}})
	}))
	defer server.Close()

	client := newTestClient(t, server, ClientConfig{})
	result, _ := client.Execute(context.Background(), Credentials{}, Request{
		Method: http.MethodGet, Surface: ClientSurface(), Endpoint: "versions",
	})
	if !result.OK() {
		t.Fatalf("status = %d", result.StatusCode)
	}
}

// reauthServer serves /login (issuing loginToken, or failing with
// loginStatus when non-zero) and one resource endpoint that accepts only
// acceptToken. It counts the requests to each.
type reauthServer struct {
	*httptest.Server
	loginCalls    atomic.Int32
	resourceCalls atomic.Int32
}

func newReauthServer(t *testing.T, loginToken string, loginStatus int, acceptToken string, rejectStatus int) *reauthServer {
	t.Helper()
	fixture := &reauthServer{}
	fixture.Server = httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path == "/_matrix/client/v3/login" {
			fixture.loginCalls.Add(1)
			if loginStatus != 0 {
				writer.WriteHeader(loginStatus)
				writeJSON(writer, map[string]string{"errcode": ErrCodeForbidden, "error": "Invalid password"})
				return
			}
			writeJSON(writer, map[string]string{
				"user_id":      testAdminUser,
				"access_token": loginToken,
				"device_id":    "NEWDEVICE",
			})
			return
		}
		fixture.resourceCalls.Add(1)
		if request.Header.Get("Authorization") != "Bearer "+acceptToken {
			writer.Header().Set("Content-Type", "application/json")
			writer.WriteHeader(rejectStatus)
			json.NewEncoder(writer).Encode(map[string]string{"errcode": ErrCodeUnknownToken, "error": "Invalid access token"})
			return
		}
		writeJSON(writer, map[string]string{"server_version": "1.120.0"})
	}))
	t.Cleanup(fixture.Close)
	return fixture
}

var serverVersionRequest = Request{Method: http.MethodGet, Surface: AdminSurface(""), Endpoint: "server_version"}

func TestExecuteReauthenticatesOnAuthFailure(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			server := newReauthServer(t, "fresh-token", 0, "fresh-token", status)
			cache := credcache.New(t.TempDir(), testLogger())
			client := newTestClient(t, server.Server, ClientConfig{Cache: cache})

			credentials := Credentials{AccessToken: "stale-token", Identity: testIdentity(t)}
			result, updated := client.Execute(context.Background(), credentials, serverVersionRequest)

			if !result.OK() {
				t.Fatalf("status = %d, want 200 after re-authentication", result.StatusCode)
			}
			if result.Field("server_version") != "1.120.0" {
				t.Errorf("body = %s", result.Body)
			}
			if !updated.Reauthenticated {
				t.Error("Reauthenticated = false, want true")
			}
			if updated.AccessToken != "fresh-token" {
				t.Errorf("AccessToken = %q, want fresh-token", updated.AccessToken)
			}
			if credentials.AccessToken != "stale-token" {
				t.Error("Execute modified the caller's credentials")
			}
			if got := server.loginCalls.Load(); got != 1 {
				t.Errorf("login calls = %d, want 1", got)
			}
			if got := server.resourceCalls.Load(); got != 2 {
				t.Errorf("resource calls = %d, want 2", got)
			}

			cached, ok := cache.Load(credcache.IdentityHash(testAdminUser))
			if !ok || cached != "fresh-token" {
				t.Errorf("cached token = %q, %v; want fresh-token", cached, ok)
			}
		})
	}
}

func TestExecuteRetriesAtMostOnce(t *testing.T) {
	// The server rejects every token, including the one login returns.
	server := newReauthServer(t, "fresh-token", 0, "never-accepted", http.StatusUnauthorized)
	client := newTestClient(t, server.Server, ClientConfig{})

	credentials := Credentials{AccessToken: "stale-token", Identity: testIdentity(t)}
	result, updated := client.Execute(context.Background(), credentials, serverVersionRequest)

	if result.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", result.StatusCode)
	}
	if got := server.loginCalls.Load(); got != 1 {
		t.Errorf("login calls = %d, want 1", got)
	}
	if got := server.resourceCalls.Load(); got != 2 {
		t.Errorf("resource calls = %d, want 2", got)
	}
	if !updated.Reauthenticated || updated.AccessToken != "fresh-token" {
		t.Errorf("updated = %+v, want the fresh token marked reauthenticated", updated)
	}
}

func TestExecuteLoginFailureReturnsOriginalResult(t *testing.T) {
	server := newReauthServer(t, "", http.StatusForbidden, "fresh-token", http.StatusUnauthorized)
	client := newTestClient(t, server.Server, ClientConfig{})

	credentials := Credentials{AccessToken: "stale-token", Identity: testIdentity(t)}
	result, updated := client.Execute(context.Background(), credentials, serverVersionRequest)

	if result.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want the original 401", result.StatusCode)
	}
	if !IsMatrixError(result.Err(), ErrCodeUnknownToken) {
		t.Errorf("Err() = %v, want the original M_UNKNOWN_TOKEN", result.Err())
	}
	if updated.Reauthenticated || updated.AccessToken != "stale-token" {
		t.Errorf("updated = %+v, want credentials unchanged", updated)
	}
	if got := server.resourceCalls.Load(); got != 1 {
		t.Errorf("resource calls = %d, want 1", got)
	}
}

func TestExecuteWithoutIdentityDoesNotRetry(t *testing.T) {
	server := newReauthServer(t, "fresh-token", 0, "fresh-token", http.StatusUnauthorized)
	client := newTestClient(t, server.Server, ClientConfig{})

	result, updated := client.Execute(context.Background(), Credentials{AccessToken: "stale-token"}, serverVersionRequest)
	if result.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", result.StatusCode)
	}
	if updated.Reauthenticated {
		t.Error("Reauthenticated = true without an identity")
	}
	if got := server.loginCalls.Load(); got != 0 {
		t.Errorf("login calls = %d, want 0", got)
	}
}

func TestExecuteNormalizesBodies(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"JSON object", http.StatusOK, `{"a":1}`, `{"a":1}`},
		{"JSON array", http.StatusOK, `[1,2]`, `[1,2]`},
		{"success with text", http.StatusOK, "OK", `{}`},
		{"success empty", http.StatusOK, "", `{}`},
		{"HTML error page", http.StatusBadGateway, "<html>Bad Gateway</html>", `{"raw":"<html>Bad Gateway</html>"}`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				writer.WriteHeader(test.status)
				io.WriteString(writer, test.body)
			}))
			defer server.Close()

			client := newTestClient(t, server, ClientConfig{})
			result, _ := client.Execute(context.Background(), Credentials{AccessToken: "token"}, serverVersionRequest)
			if result.StatusCode != test.status {
				t.Errorf("status = %d, want %d", result.StatusCode, test.status)
			}
			if string(result.Body) != test.want {
				t.Errorf("body = %s, want %s", result.Body, test.want)
			}
		})
	}
}

func TestExecuteHTMLErrorBecomesMatrixError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusBadGateway)
		io.WriteString(writer, "<html>Bad Gateway</html>")
	}))
	defer server.Close()

	client := newTestClient(t, server, ClientConfig{})
	result, _ := client.Execute(context.Background(), Credentials{AccessToken: "token"}, serverVersionRequest)

	var matrixErr *MatrixError
	if !errors.As(result.Err(), &matrixErr) {
		t.Fatalf("Err() = %v, want *MatrixError", result.Err())
	}
	if matrixErr.Code != ErrCodeUnknown || matrixErr.Message != "<html>Bad Gateway</html>" {
		t.Errorf("MatrixError = %+v", matrixErr)
	}
	if !IsStatus(result.Err(), http.StatusBadGateway) {
		t.Error("IsStatus(502) = false")
	}
}

func TestExecuteTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	client := newTestClient(t, server, ClientConfig{})
	server.Close()

	result, _ := client.Execute(context.Background(), Credentials{AccessToken: "token"}, serverVersionRequest)
	if !result.TransportFailure() || result.StatusCode != StatusTransportFailure {
		t.Fatalf("status = %d, want %d", result.StatusCode, StatusTransportFailure)
	}
	if result.Field("raw") == "" {
		t.Errorf("body = %s, want the transport error as raw text", result.Body)
	}
	if !errors.Is(result.Err(), ErrTransport) {
		t.Errorf("Err() = %v, want ErrTransport", result.Err())
	}
}

func TestLogin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/_matrix/client/v3/login" || request.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", request.Method, request.URL.Path)
		}
		if auth := request.Header.Get("Authorization"); auth != "" {
			t.Errorf("login sent Authorization %q", auth)
		}
		var body struct {
			Type       string `json:"type"`
			Identifier struct {
				Type string `json:"type"`
				User string `json:"user"`
			} `json:"identifier"`
			Password          string `json:"password"`
			DeviceDisplayName string `json:"initial_device_display_name"`
		}
		if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
			t.Fatalf("decoding login body: %v", err)
		}
		if body.Type != "m.login.password" || body.Identifier.Type != "m.id.user" {
			t.Errorf("login types = %q/%q", body.Type, body.Identifier.Type)
		}
		if body.Identifier.User != testAdminUser || body.Password != "hunter2" {
			t.Errorf("login identity = %q/%q", body.Identifier.User, body.Password)
		}
		if body.DeviceDisplayName != "ops-automation" {
			t.Errorf("initial_device_display_name = %q", body.DeviceDisplayName)
		}
		writeJSON(writer, map[string]string{"access_token": "new-token", "user_id": testAdminUser})
	}))
	defer server.Close()

	client := newTestClient(t, server, ClientConfig{DeviceDisplayName: "ops-automation"})
	token, result := client.Login(context.Background(), *testIdentity(t))
	if token != "new-token" {
		t.Errorf("token = %q (status %d), want new-token", token, result.StatusCode)
	}
}

func TestLoginWithoutTokenInResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writeJSON(writer, map[string]string{"user_id": testAdminUser})
	}))
	defer server.Close()

	client := newTestClient(t, server, ClientConfig{})
	token, result := client.Login(context.Background(), *testIdentity(t))
	if token != "" {
		t.Errorf("token = %q, want empty", token)
	}
	if !result.OK() {
		t.Errorf("status = %d, want the 200 passed through", result.StatusCode)
	}
}

func TestLoginWithoutPassword(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		t.Errorf("unexpected request: %s %s", request.Method, request.URL.Path)
	}))
	defer server.Close()

	client := newTestClient(t, server, ClientConfig{})
	token, result := client.Login(context.Background(), Identity{UserID: testAdminUser})
	if token != "" {
		t.Errorf("token = %q, want empty", token)
	}
	if result.TransportFailure() || errors.Is(result.Err(), ErrTransport) {
		t.Errorf("missing password reported as a transport failure: %v", result.Err())
	}
	if !IsMatrixError(result.Err(), ErrCodeMissingParam) {
		t.Errorf("Err() = %v, want %s", result.Err(), ErrCodeMissingParam)
	}
}

func TestIsPlaceholderToken(t *testing.T) {
	for _, token := range []string{"", "placeholder", "CHANGEME", "None", "null", "  none  "} {
		if !IsPlaceholderToken(token) {
			t.Errorf("IsPlaceholderToken(%q) = false", token)
		}
	}
	for _, token := range []string{"syt_YWRtaW4_abc", "nullable", "placeholder-2"} {
		if IsPlaceholderToken(token) {
			t.Errorf("IsPlaceholderToken(%q) = true", token)
		}
	}
}

func TestBootstrap(t *testing.T) {
	cache := credcache.New(t.TempDir(), testLogger())
	cache.Save(credcache.IdentityHash(testAdminUser), "cached-token")
	client, err := NewClient(ClientConfig{HomeserverURL: "http://localhost:8008", Cache: cache, Logger: testLogger()})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	identity := testIdentity(t)
	other := &Identity{UserID: "@other:example.org", Password: testBuffer(t, "x")}

	tests := []struct {
		name        string
		credentials Credentials
		want        string
	}{
		{"real token kept", Credentials{AccessToken: "real-token", Identity: identity}, "real-token"},
		{"placeholder loads cache", Credentials{AccessToken: "changeme", Identity: identity}, "cached-token"},
		{"empty loads cache", Credentials{Identity: identity}, "cached-token"},
		{"cache miss clears placeholder", Credentials{AccessToken: "placeholder", Identity: other}, ""},
		{"no identity clears placeholder", Credentials{AccessToken: "none"}, ""},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := client.Bootstrap(test.credentials)
			if got.AccessToken != test.want {
				t.Errorf("AccessToken = %q, want %q", got.AccessToken, test.want)
			}
		})
	}
}

func TestResultErr(t *testing.T) {
	result := Result{
		StatusCode: http.StatusNotFound,
		Body:       json.RawMessage(`{"errcode":"M_NOT_FOUND","error":"User not found"}`),
		URL:        "http://localhost/_synapse/admin/v2/users/x",
	}
	if !IsMatrixError(result.Err(), ErrCodeNotFound) {
		t.Errorf("Err() = %v, want M_NOT_FOUND", result.Err())
	}
	if err := (Result{StatusCode: http.StatusOK, Body: json.RawMessage(`{}`)}).Err(); err != nil {
		t.Errorf("Err() on 200 = %v", err)
	}
}

func assertAuth(t *testing.T, request *http.Request, expectedToken string) {
	t.Helper()
	auth := request.Header.Get("Authorization")
	expected := "Bearer " + expectedToken
	if auth != expected {
		t.Errorf("unexpected auth header: got %q, want %q", auth, expected)
	}
}

func writeJSON(writer http.ResponseWriter, value any) {
	writer.Header().Set("Content-Type", "application/json")
	json.NewEncoder(writer).Encode(value)
}
