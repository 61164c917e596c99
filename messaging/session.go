// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/bureau-foundation/synapse-admin/lib/credcache"
)

// Session binds a Client to a credentials snapshot for one logical
// operation. Each request goes through Client.Execute and the session
// adopts the credentials it returns, so a token refreshed by one call is
// used by the next. Callers that persist tokens read the final snapshot
// from Credentials.
//
// A Session is safe for concurrent use, though operations are expected
// to issue their requests sequentially.
type Session struct {
	client       *Client
	adminVersion string

	mu          sync.Mutex
	credentials Credentials
}

// NewSession returns a session for credentials after applying Bootstrap.
func (c *Client) NewSession(credentials Credentials) *Session {
	return &Session{
		client:       c,
		adminVersion: DefaultAdminVersion,
		credentials:  c.Bootstrap(credentials),
	}
}

// Client returns the client the session sends through.
func (s *Session) Client() *Client { return s.client }

// Credentials returns the current credentials snapshot.
func (s *Session) Credentials() Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credentials
}

// Reauthenticated reports whether any request in this session replaced
// the access token.
func (s *Session) Reauthenticated() bool {
	return s.Credentials().Reauthenticated
}

// Execute sends request and adopts the returned credentials.
func (s *Session) Execute(ctx context.Context, request Request) Result {
	credentials := s.Credentials()
	result, updated := s.client.Execute(ctx, credentials, request)
	if updated != credentials {
		s.mu.Lock()
		s.credentials = updated
		s.mu.Unlock()
	}
	return result
}

// Get sends a GET with an optional query.
func (s *Session) Get(ctx context.Context, surface Surface, endpoint string, query url.Values) Result {
	return s.Execute(ctx, Request{Method: http.MethodGet, Surface: surface, Endpoint: endpoint, Query: query})
}

// Post sends a POST with an optional JSON body.
func (s *Session) Post(ctx context.Context, surface Surface, endpoint string, body any) Result {
	return s.Execute(ctx, Request{Method: http.MethodPost, Surface: surface, Endpoint: endpoint, Body: body})
}

// Put sends a PUT with an optional JSON body.
func (s *Session) Put(ctx context.Context, surface Surface, endpoint string, body any) Result {
	return s.Execute(ctx, Request{Method: http.MethodPut, Surface: surface, Endpoint: endpoint, Body: body})
}

// Delete sends a DELETE with an optional JSON body.
func (s *Session) Delete(ctx context.Context, surface Surface, endpoint string, body any) Result {
	return s.Execute(ctx, Request{Method: http.MethodDelete, Surface: surface, Endpoint: endpoint, Body: body})
}

// admin returns an admin surface at version, or at the session's default
// version when version is empty.
func (s *Session) admin(version string) Surface {
	if version == "" {
		version = s.adminVersion
	}
	return AdminSurface(version)
}

// Login replaces the session's token with a fresh password login,
// whether or not the current token still works, and caches it.
func (s *Session) Login(ctx context.Context) (AuthResponse, error) {
	credentials := s.Credentials()
	if !credentials.CanReauthenticate() {
		return AuthResponse{}, ErrNoIdentity
	}

	token, result := s.client.Login(ctx, *credentials.Identity)
	if token == "" {
		if err := result.Err(); err != nil {
			return AuthResponse{}, fmt.Errorf("messaging: logging in as %s: %w", credentials.Identity.UserID, err)
		}
		return AuthResponse{}, fmt.Errorf("messaging: logging in as %s: response carries no access token", credentials.Identity.UserID)
	}
	var response AuthResponse
	if err := result.Decode(&response); err != nil {
		return AuthResponse{}, err
	}

	s.client.cache.Save(credcache.IdentityHash(credentials.Identity.UserID), token)
	credentials.AccessToken = token
	credentials.Reauthenticated = true
	s.mu.Lock()
	s.credentials = credentials
	s.mu.Unlock()
	return response, nil
}

// SetAdminVersion changes the admin API version used by operations that
// do not pin one. An empty version restores DefaultAdminVersion.
func (s *Session) SetAdminVersion(version string) {
	if version == "" {
		version = DefaultAdminVersion
	}
	s.adminVersion = version
}

// pathSegment escapes one identifier for use as a URL path segment.
// Every reserved character is encoded, including the '@' and ':' that
// url.PathEscape leaves alone, so "@alice:example.org" becomes
// "%40alice%3Aexample.org".
func pathSegment(identifier string) string {
	return strings.ReplaceAll(url.QueryEscape(identifier), "+", "%20")
}
