// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bureau-foundation/synapse-admin/messaging"
)

// ErrorCategory classifies command errors so that automation can decide
// between retrying, fixing input, and escalating without parsing error
// text. Each category has its own process exit status.
type ErrorCategory string

const (
	// CategoryValidation indicates invalid input: missing arguments,
	// unparseable values, malformed identifiers.
	CategoryValidation ErrorCategory = "validation"

	// CategoryNotFound indicates a referenced user, room or alias does
	// not exist.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryForbidden indicates the homeserver rejected the
	// credentials and re-authentication could not recover.
	CategoryForbidden ErrorCategory = "forbidden"

	// CategoryConflict indicates the request conflicts with existing
	// state, such as an alias already in use.
	CategoryConflict ErrorCategory = "conflict"

	// CategoryTransient indicates a failure that may succeed on retry:
	// no response, a rate limit, a 5xx.
	CategoryTransient ErrorCategory = "transient"

	// CategoryInternal indicates everything else.
	CategoryInternal ErrorCategory = "internal"
)

// ExitCode returns the process exit status for the category.
func (c ErrorCategory) ExitCode() int {
	switch c {
	case CategoryValidation:
		return 2
	case CategoryNotFound:
		return 3
	case CategoryForbidden:
		return 4
	case CategoryConflict:
		return 5
	case CategoryTransient:
		return 6
	default:
		return 1
	}
}

// ToolError is a categorized error returned by commands. It wraps an
// inner error, preserving the chain for errors.Is and errors.As. Use the
// category-specific constructors rather than building one directly.
type ToolError struct {
	Category ErrorCategory
	Err      error
}

// Error returns the underlying message. The category travels in the
// exit status, not in the text.
func (e *ToolError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error.
func (e *ToolError) Unwrap() error { return e.Err }

// ExitCode returns the category's exit status.
func (e *ToolError) ExitCode() int { return e.Category.ExitCode() }

// Validation creates a validation error: the caller provided bad input.
func Validation(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound creates a not-found error.
func NotFound(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Forbidden creates a forbidden error.
func Forbidden(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryForbidden, Err: fmt.Errorf(format, args...)}
}

// Conflict creates a conflict error.
func Conflict(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryConflict, Err: fmt.Errorf(format, args...)}
}

// Transient creates a transient error.
func Transient(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryTransient, Err: fmt.Errorf(format, args...)}
}

// Internal creates an internal error.
func Internal(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}

// Categorize wraps err in a ToolError whose category follows from the
// homeserver's answer. An err that is already a ToolError is returned
// unchanged; nil stays nil.
func Categorize(err error) error {
	if err == nil {
		return nil
	}
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return err
	}
	return &ToolError{Category: categoryOf(err), Err: err}
}

func categoryOf(err error) ErrorCategory {
	if errors.Is(err, messaging.ErrTransport) {
		return CategoryTransient
	}
	if errors.Is(err, messaging.ErrInvalidRoomIdentifier) {
		return CategoryValidation
	}

	var matrixErr *messaging.MatrixError
	if !errors.As(err, &matrixErr) {
		return CategoryInternal
	}
	switch {
	case matrixErr.StatusCode == http.StatusNotFound:
		return CategoryNotFound
	case matrixErr.StatusCode == http.StatusUnauthorized, matrixErr.StatusCode == http.StatusForbidden:
		return CategoryForbidden
	case matrixErr.StatusCode == http.StatusConflict,
		matrixErr.Code == messaging.ErrCodeUserInUse,
		matrixErr.Code == messaging.ErrCodeRoomInUse:
		return CategoryConflict
	case matrixErr.StatusCode == http.StatusTooManyRequests, matrixErr.StatusCode >= 500:
		return CategoryTransient
	case matrixErr.StatusCode == http.StatusBadRequest:
		return CategoryValidation
	default:
		return CategoryInternal
	}
}
