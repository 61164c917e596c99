// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// StatusTransportFailure is the Result status when no HTTP response
// arrived.
const StatusTransportFailure = -1

// Result is the normalized outcome of one HTTP exchange.
type Result struct {
	// StatusCode is the HTTP status, or StatusTransportFailure.
	StatusCode int `json:"status_code"`

	// Body is always valid JSON: the server's JSON body, {} for a
	// successful non-JSON body, {"raw": text} for a failed non-JSON body
	// or a transport error.
	Body json.RawMessage `json:"body"`

	// URL is the full request URL, including the query string.
	URL string `json:"url"`
}

// OK reports a 2xx status.
func (r Result) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// NotFound reports a 404.
func (r Result) NotFound() bool {
	return r.StatusCode == http.StatusNotFound
}

// AuthFailure reports a rejected token (401 or 403).
func (r Result) AuthFailure() bool {
	return r.StatusCode == http.StatusUnauthorized || r.StatusCode == http.StatusForbidden
}

// TransportFailure reports that no HTTP response arrived.
func (r Result) TransportFailure() bool {
	return r.StatusCode == StatusTransportFailure
}

// Decode unmarshals the body into v.
func (r Result) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("messaging: decoding response from %s: %w", r.URL, err)
	}
	return nil
}

// Field returns a top-level string field of the body, or "" when absent
// or not a string.
func (r Result) Field(name string) string {
	var object map[string]json.RawMessage
	if err := json.Unmarshal(r.Body, &object); err != nil {
		return ""
	}
	var value string
	if err := json.Unmarshal(object[name], &value); err != nil {
		return ""
	}
	return value
}

// Err returns nil for a 2xx result. A transport failure wraps
// ErrTransport; any other status becomes a *MatrixError.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	if r.TransportFailure() {
		return fmt.Errorf("%w: %s: %s", ErrTransport, r.URL, r.Field("raw"))
	}

	matrixErr := &MatrixError{StatusCode: r.StatusCode, URL: r.URL}
	_ = json.Unmarshal(r.Body, matrixErr)
	if matrixErr.Code == "" {
		matrixErr.Code = ErrCodeUnknown
	}
	if matrixErr.Message == "" {
		if raw := r.Field("raw"); raw != "" {
			matrixErr.Message = raw
		} else {
			matrixErr.Message = string(r.Body)
		}
	}
	return matrixErr
}
