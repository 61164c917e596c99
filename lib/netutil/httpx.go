// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides HTTP body helpers for the admin client.
//
// Every response body read is bounded at MaxResponseSize. Bodies are
// normalized into JSON so that callers never have to branch on content
// type: a successful response that is not JSON becomes {}, and an error
// response that is not JSON (a reverse proxy's HTML page, a plain-text
// 502) becomes {"raw": "<text>"}.
package netutil

import (
	"bytes"
	"encoding/json"
	"io"
)

// MaxResponseSize bounds response body reads. Admin listings of large
// servers run to a few megabytes; anything beyond this is a
// misbehaving server.
const MaxResponseSize int64 = 64 << 20

// emptyObject is the normalized body of a successful non-JSON response.
var emptyObject = json.RawMessage(`{}`)

// ReadResponse reads a response body up to MaxResponseSize bytes.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// NormalizeJSON returns data unchanged when it is valid JSON. Otherwise a
// successful response yields {} and a failed response yields the text
// wrapped as {"raw": text}.
func NormalizeJSON(data []byte, success bool) json.RawMessage {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	if success || len(trimmed) == 0 {
		return emptyObject
	}
	return RawText(string(data))
}

// RawText wraps arbitrary text as {"raw": text}.
func RawText(text string) json.RawMessage {
	encoded, err := json.Marshal(map[string]string{"raw": text})
	if err != nil {
		// Marshaling a map of strings cannot fail.
		return emptyObject
	}
	return encoded
}
