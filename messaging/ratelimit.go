// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/synapse-admin/lib/ref"
)

func rateLimitEndpoint(userID ref.UserID) string {
	return "users/" + pathSegment(userID.String()) + "/override_ratelimit"
}

// SetRateLimitOverride replaces a user's message rate limits. A zero
// override removes rate limiting for the user entirely.
func (s *Session) SetRateLimitOverride(ctx context.Context, userID ref.UserID, override RateLimitOverride) error {
	result := s.Post(ctx, s.admin(""), rateLimitEndpoint(userID), override)
	if err := result.Err(); err != nil {
		return fmt.Errorf("messaging: setting rate limit override for %s: %w", userID, err)
	}
	return nil
}

// ClearRateLimitOverride restores the server's default limits for a user.
func (s *Session) ClearRateLimitOverride(ctx context.Context, userID ref.UserID) error {
	result := s.Delete(ctx, s.admin(""), rateLimitEndpoint(userID), nil)
	if err := result.Err(); err != nil {
		return fmt.Errorf("messaging: clearing rate limit override for %s: %w", userID, err)
	}
	return nil
}
