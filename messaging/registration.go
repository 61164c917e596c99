// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// RegistrationTokenSpec describes a token to create. Zero fields are
// omitted so the server picks its defaults (a random token, unlimited
// uses, no expiry).
type RegistrationTokenSpec struct {
	Token string

	// UsesAllowed caps successful registrations. Nil is unlimited.
	UsesAllowed *int

	// ExpiryTime is the expiry in epoch milliseconds. Nil never expires.
	ExpiryTime *int64
}

// CreateRegistrationToken creates a registration token.
func (s *Session) CreateRegistrationToken(ctx context.Context, spec RegistrationTokenSpec) (RegistrationToken, error) {
	body := map[string]any{}
	if spec.Token != "" {
		body["token"] = spec.Token
	}
	if spec.UsesAllowed != nil {
		body["uses_allowed"] = *spec.UsesAllowed
	}
	if spec.ExpiryTime != nil {
		body["expiry_time"] = *spec.ExpiryTime
	}

	result := s.Post(ctx, s.admin(""), "registration_tokens/new", body)
	if err := result.Err(); err != nil {
		return RegistrationToken{}, fmt.Errorf("messaging: creating registration token: %w", err)
	}
	var token RegistrationToken
	if err := result.Decode(&token); err != nil {
		return RegistrationToken{}, err
	}
	return token, nil
}

// ListRegistrationTokens lists registration tokens. A non-nil valid
// returns only valid (true) or only invalid (false) tokens.
func (s *Session) ListRegistrationTokens(ctx context.Context, valid *bool) ([]RegistrationToken, error) {
	var query url.Values
	if valid != nil {
		query = url.Values{"valid": {strconv.FormatBool(*valid)}}
	}

	result := s.Get(ctx, s.admin(""), "registration_tokens", query)
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("messaging: listing registration tokens: %w", err)
	}
	var response struct {
		RegistrationTokens []RegistrationToken `json:"registration_tokens"`
	}
	if err := result.Decode(&response); err != nil {
		return nil, err
	}
	return response.RegistrationTokens, nil
}
