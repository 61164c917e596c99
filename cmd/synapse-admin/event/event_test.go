// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/synapse-admin/cmd/synapse-admin/cli"
	"github.com/bureau-foundation/synapse-admin/lib/clock"
	"github.com/bureau-foundation/synapse-admin/lib/config"
	"github.com/bureau-foundation/synapse-admin/lib/testutil"
)

const sendPrefix = "/_matrix/client/v3/rooms/%21ops%3Aexample.org/send/"

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// newHomeserver accepts every send to !ops:example.org.
func newHomeserver(t *testing.T) *testutil.Homeserver {
	t.Helper()
	homeserver := testutil.NewHomeserver(t)
	homeserver.HandlePrefix("PUT", sendPrefix, func(writer http.ResponseWriter, _ *http.Request) {
		testutil.WriteJSON(writer, http.StatusOK, map[string]string{"event_id": "$event"})
	})
	return homeserver
}

func run(t *testing.T, homeserver *testutil.Homeserver, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvironmentVariable, "")
	var stdout bytes.Buffer
	args = append(args, "--homeserver", homeserver.URL(), "--token", "admin-token", "--no-cache")
	err := command(&stdout, clock.Fake(now)).Execute(context.Background(), args)
	return stdout.String(), err
}

// sent returns the only send request, split into event type and
// transaction ID.
func sent(t *testing.T, homeserver *testutil.Homeserver) (testutil.Request, string, string) {
	t.Helper()
	var sends []testutil.Request
	for _, request := range homeserver.Requests() {
		if request.Method == "PUT" && strings.HasPrefix(request.Path, sendPrefix) {
			sends = append(sends, request)
		}
	}
	if len(sends) != 1 {
		t.Fatalf("got %d sends, want 1", len(sends))
	}
	eventType, transactionID, _ := strings.Cut(strings.TrimPrefix(sends[0].Path, sendPrefix), "/")
	return sends[0], eventType, transactionID
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSendWithTransactionID(t *testing.T) {
	homeserver := newHomeserver(t)
	stdout, err := run(t, homeserver, "send", "!ops:example.org",
		"--type", "com.example.alert",
		"--content", `{"level": "high", /* paged */ "team": "infra",}`,
		"--txn-id", "retry-1",
		"--json",
	)
	if err != nil {
		t.Fatalf("event send: %v", err)
	}
	request, eventType, transactionID := sent(t, homeserver)
	if eventType != "com.example.alert" || transactionID != "retry-1" {
		t.Errorf("sent %s with transaction %s", eventType, transactionID)
	}
	var content map[string]string
	request.Decode(t, &content)
	if content["level"] != "high" || content["team"] != "infra" {
		t.Errorf("content = %v", content)
	}

	var report struct {
		Result struct {
			EventID       string `json:"event_id"`
			TransactionID string `json:"transaction_id"`
		} `json:"result"`
	}
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("decoding %q: %v", stdout, err)
	}
	if report.Result.EventID != "$event" || report.Result.TransactionID != "retry-1" {
		t.Errorf("result = %+v", report.Result)
	}
}

func TestSendFillsEnvelopeBody(t *testing.T) {
	homeserver := newHomeserver(t)
	path := writeFile(t, "content.json", `{"solti": {"schema": "custom.v1", "data": {}}}`)

	if _, err := run(t, homeserver, "send", "!ops:example.org", "--content-file", path); err != nil {
		t.Fatalf("event send: %v", err)
	}
	request, eventType, transactionID := sent(t, homeserver)
	if eventType != "m.room.message" || !strings.HasPrefix(transactionID, "synapse-admin-") {
		t.Errorf("sent %s with transaction %s", eventType, transactionID)
	}
	var content map[string]any
	request.Decode(t, &content)
	if content["body"] != "📋 SOLTI Event: custom.v1" || content["msgtype"] != "com.solti.event" {
		t.Errorf("content = %v", content)
	}
}

func TestSendRejectsBadInput(t *testing.T) {
	homeserver := newHomeserver(t)
	path := writeFile(t, "content.json", `{}`)
	tests := []struct {
		name string
		args []string
	}{
		{"no content", []string{"send", "!ops:example.org"}},
		{"both contents", []string{"send", "!ops:example.org", "--content", "{}", "--content-file", path}},
		{"array content", []string{"send", "!ops:example.org", "--content", "[1]"}},
		{"bad type", []string{"send", "!ops:example.org", "--type", "m room", "--content", "{}"}},
		{"bad room", []string{"send", "!nope", "--content", "{}"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := run(t, homeserver, test.args...)
			var toolErr *cli.ToolError
			if !errors.As(err, &toolErr) || toolErr.Category != cli.CategoryValidation {
				t.Fatalf("error = %v, want validation", err)
			}
		})
	}
	if len(homeserver.Requests()) != 0 {
		t.Errorf("sent %d requests for invalid input", len(homeserver.Requests()))
	}
}

func TestMessageWithHTML(t *testing.T) {
	homeserver := newHomeserver(t)
	stdout, err := run(t, homeserver, "message", "!ops:example.org", "deploy done", "--msgtype", "m.notice", "--html", "<b>deploy done</b>")
	if err != nil {
		t.Fatalf("event message: %v", err)
	}
	request, eventType, _ := sent(t, homeserver)
	if eventType != "m.room.message" {
		t.Errorf("event type = %s", eventType)
	}
	var content map[string]string
	request.Decode(t, &content)
	want := map[string]string{
		"msgtype":        "m.notice",
		"body":           "deploy done",
		"format":         "org.matrix.custom.html",
		"formatted_body": "<b>deploy done</b>",
	}
	for key, value := range want {
		if content[key] != value {
			t.Errorf("content[%s] = %q, want %q", key, content[key], value)
		}
	}
	if !strings.HasPrefix(stdout, "sent $event to !ops:example.org") {
		t.Errorf("output = %q", stdout)
	}
}

func TestEnvelope(t *testing.T) {
	homeserver := newHomeserver(t)
	_, err := run(t, homeserver, "envelope", "!ops:example.org",
		"--schema", "deploy.start.v1",
		"--data", `{"service": "api", "host": "web1", "playbook": "site.yml", "operator": "alice"}`,
		"--source", "ci/pipeline-7",
	)
	if err != nil {
		t.Fatalf("event envelope: %v", err)
	}
	request, _, _ := sent(t, homeserver)
	var content struct {
		MessageType string `json:"msgtype"`
		Body        string `json:"body"`
		Envelope    struct {
			Schema    string         `json:"schema"`
			Timestamp string         `json:"timestamp"`
			Source    string         `json:"source"`
			Data      map[string]any `json:"data"`
		} `json:"solti"`
	}
	request.Decode(t, &content)
	if content.MessageType != "com.solti.event" || content.Body == "" {
		t.Errorf("content = %+v", content)
	}
	if content.Envelope.Timestamp != "2026-03-01T12:00:00Z" || content.Envelope.Source != "ci/pipeline-7" {
		t.Errorf("envelope = %+v", content.Envelope)
	}
	if content.Envelope.Data["service"] != "api" {
		t.Errorf("data = %v", content.Envelope.Data)
	}
}

func TestEnvelopeReportsMissingFields(t *testing.T) {
	homeserver := newHomeserver(t)
	_, err := run(t, homeserver, "envelope", "!ops:example.org", "--schema", "deploy.start.v1", "--data", `{"service": "api"}`)
	var toolErr *cli.ToolError
	if !errors.As(err, &toolErr) || toolErr.Category != cli.CategoryValidation {
		t.Fatalf("error = %v, want validation", err)
	}
	if !strings.Contains(err.Error(), "host, playbook, operator") {
		t.Errorf("error = %v", err)
	}
	if len(homeserver.Requests()) != 0 {
		t.Error("sent an envelope with missing fields")
	}
}

func TestVerify(t *testing.T) {
	services := writeFile(t, "services.json", `{"nginx": "ok", "redis": "down"}`)
	extra := writeFile(t, "context.json", `{"host": "web1"}`)

	tests := []struct {
		status    string
		eventType string
	}{
		{"FAILED", "com.solti.verify.fail"},
		{"PASSED", "com.solti.verify.pass"},
	}
	for _, test := range tests {
		t.Run(test.status, func(t *testing.T) {
			homeserver := newHomeserver(t)
			_, err := run(t, homeserver, "verify", "!ops:example.org",
				"--status", test.status, "--services-file", services, "--context-file", extra)
			if err != nil {
				t.Fatalf("event verify: %v", err)
			}
			request, eventType, _ := sent(t, homeserver)
			if eventType != test.eventType {
				t.Errorf("event type = %s, want %s", eventType, test.eventType)
			}
			var content struct {
				Status    string            `json:"status"`
				Services  map[string]string `json:"services"`
				Timestamp string            `json:"timestamp"`
				Context   map[string]string `json:"context"`
			}
			request.Decode(t, &content)
			if content.Status != test.status || content.Services["redis"] != "down" ||
				content.Timestamp != "2026-03-01T12:00:00Z" || content.Context["host"] != "web1" {
				t.Errorf("content = %+v", content)
			}
		})
	}
}

func TestVerifyRequiresStatus(t *testing.T) {
	homeserver := newHomeserver(t)
	services := writeFile(t, "services.json", `{}`)
	_, err := run(t, homeserver, "verify", "!ops:example.org", "--status", "passed", "--services-file", services)
	var toolErr *cli.ToolError
	if !errors.As(err, &toolErr) || toolErr.Category != cli.CategoryValidation {
		t.Fatalf("error = %v, want validation", err)
	}
}
