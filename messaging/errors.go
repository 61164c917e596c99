// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"errors"
	"fmt"
)

// MatrixError represents a structured error response from the homeserver.
// Callers can use errors.As to extract the structured information:
//
//	var matrixErr *MatrixError
//	if errors.As(err, &matrixErr) {
//	    if matrixErr.Code == ErrCodeNotFound { ... }
//	}
type MatrixError struct {
	// Code is the Matrix error code (e.g., "M_FORBIDDEN"). Responses
	// without a JSON error body get ErrCodeUnknown.
	Code string `json:"errcode"`
	// Message is the human-readable error description from the server,
	// or the raw body text when the server sent no JSON.
	Message string `json:"error"`
	// StatusCode is the HTTP status code of the response.
	StatusCode int `json:"-"`
	// URL is the request URL that failed.
	URL string `json:"-"`
}

func (e *MatrixError) Error() string {
	return fmt.Sprintf("matrix: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Standard Matrix error codes.
const (
	ErrCodeForbidden     = "M_FORBIDDEN"
	ErrCodeUnknownToken  = "M_UNKNOWN_TOKEN"
	ErrCodeMissingToken  = "M_MISSING_TOKEN"
	ErrCodeNotFound      = "M_NOT_FOUND"
	ErrCodeUserInUse     = "M_USER_IN_USE"
	ErrCodeLimitExceeded = "M_LIMIT_EXCEEDED"
	ErrCodeUnrecognized  = "M_UNRECOGNIZED"
	ErrCodeUnknown       = "M_UNKNOWN"
	ErrCodeInvalidParam  = "M_INVALID_PARAM"
	ErrCodeMissingParam  = "M_MISSING_PARAM"
	ErrCodeRoomInUse     = "M_ROOM_IN_USE"
)

var (
	// ErrTransport wraps failures where no HTTP response arrived (DNS,
	// TLS, connection refused, timeout).
	ErrTransport = errors.New("messaging: transport failure")

	// ErrInvalidRoomIdentifier is returned for room identifiers that
	// start with neither '!' nor '#'.
	ErrInvalidRoomIdentifier = errors.New("messaging: invalid room identifier")

	// ErrNoIdentity is returned by Session.Login when the credentials
	// carry no user ID and password.
	ErrNoIdentity = errors.New("messaging: no identity to log in with")
)

// IsMatrixError checks whether err is a *MatrixError with the given error code.
func IsMatrixError(err error, code string) bool {
	var matrixErr *MatrixError
	if errors.As(err, &matrixErr) {
		return matrixErr.Code == code
	}
	return false
}

// IsStatus reports whether err is a *MatrixError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var matrixErr *MatrixError
	if errors.As(err, &matrixErr) {
		return matrixErr.StatusCode == status
	}
	return false
}

// ResolveError reports an alias the directory could not resolve. Result
// carries the directory response for the caller to report.
type ResolveError struct {
	Alias  string
	Result Result
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("messaging: resolving room alias %s: %v", e.Alias, e.Result.Err())
}

// Unwrap exposes the underlying *MatrixError or ErrTransport.
func (e *ResolveError) Unwrap() error { return e.Result.Err() }
