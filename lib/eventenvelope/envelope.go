// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package eventenvelope builds the structured event content posted to
// operations rooms.
//
// The content has three layers:
//
//	{
//	  "msgtype": "com.solti.event",
//	  "body":    "❌ Verification FAILED: 2/5 services on rocky9",
//	  "solti": {
//	    "schema":    "verify.fail.v1",
//	    "timestamp": "2026-03-01T12:00:00Z",
//	    "source":    "molecule/rocky9/podman",
//	    "data":      { ... schema-specific ... }
//	  }
//	}
//
// Bots consume the "solti" object; the body is the line a human Matrix
// client shows. Bodies come from a table of per-schema formatters with a
// generic line for schemas the table does not know.
package eventenvelope

import (
	"time"
)

const (
	// MessageType marks machine-readable envelope events.
	MessageType = "com.solti.event"

	// Namespace is the content key holding the envelope.
	Namespace = "solti"

	// TimestampFormat is ISO-8601 UTC with second precision.
	TimestampFormat = "2006-01-02T15:04:05Z"

	// UnknownSource is recorded when no source is given.
	UnknownSource = "unknown"
)

// Data is the schema-specific payload. Values are JSON-shaped: nested
// maps, slices, strings, bools and numbers.
type Data = map[string]any

// Content is the complete event content.
type Content struct {
	MessageType string  `json:"msgtype"`
	Body        string  `json:"body"`
	Envelope    Payload `json:"solti"`
}

// Payload is the machine-readable envelope.
type Payload struct {
	Schema    string `json:"schema"`
	Timestamp string `json:"timestamp"`
	Source    string `json:"source"`
	Data      Data   `json:"data"`
}

// Build assembles event content for schema. now is converted to UTC.
func Build(schema string, data Data, source string, now time.Time) Content {
	if source == "" {
		source = UnknownSource
	}
	if data == nil {
		data = Data{}
	}
	return Content{
		MessageType: MessageType,
		Body:        FormatBody(schema, data),
		Envelope: Payload{
			Schema:    schema,
			Timestamp: now.UTC().Format(TimestampFormat),
			Source:    source,
			Data:      data,
		},
	}
}

// FillBody completes hand-built content: when content carries a
// "solti" envelope with a schema and has no body, the body is generated
// from the schema. Reports whether a body was added.
func FillBody(content map[string]any) bool {
	if body, ok := content["body"].(string); ok && body != "" {
		return false
	}
	envelope, ok := content[Namespace].(map[string]any)
	if !ok {
		return false
	}
	schema, ok := envelope["schema"].(string)
	if !ok || schema == "" {
		return false
	}
	data, _ := envelope["data"].(map[string]any)
	content["body"] = FormatBody(schema, data)
	if _, ok := content["msgtype"]; !ok {
		content["msgtype"] = MessageType
	}
	return true
}
