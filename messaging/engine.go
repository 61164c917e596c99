// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"net/http"
	"strings"

	"github.com/bureau-foundation/synapse-admin/lib/credcache"
	"github.com/bureau-foundation/synapse-admin/lib/secret"
)

// Identity is an account that can log in. The password buffer is owned
// by the caller; the engine reads it but never closes it.
type Identity struct {
	UserID   string
	Password *secret.Buffer
}

// Credentials is the session state threaded through Execute.
type Credentials struct {
	// AccessToken is the bearer token. Empty sends no Authorization
	// header.
	AccessToken string

	// Identity enables re-authentication. Nil means the token is all
	// there is.
	Identity *Identity

	// Reauthenticated is set once a login has replaced AccessToken.
	Reauthenticated bool
}

// CanReauthenticate reports whether the credentials carry a complete
// identity.
func (c Credentials) CanReauthenticate() bool {
	return c.Identity != nil && c.Identity.UserID != "" && c.Identity.Password != nil && c.Identity.Password.Len() > 0
}

// placeholderTokens are values that configuration templates use for "no
// token yet".
var placeholderTokens = map[string]bool{
	"":            true,
	"placeholder": true,
	"changeme":    true,
	"none":        true,
	"null":        true,
}

// IsPlaceholderToken reports whether token is empty or a known
// placeholder, case-insensitively.
func IsPlaceholderToken(token string) bool {
	return placeholderTokens[strings.ToLower(strings.TrimSpace(token))]
}

// Bootstrap replaces an empty or placeholder token with the cached token
// for the identity, if one exists. A placeholder with no cache entry is
// cleared so that it is never sent.
func (c *Client) Bootstrap(credentials Credentials) Credentials {
	if !IsPlaceholderToken(credentials.AccessToken) {
		return credentials
	}
	credentials.AccessToken = ""
	if credentials.Identity == nil || credentials.Identity.UserID == "" {
		return credentials
	}
	if token, ok := c.cache.Load(credcache.IdentityHash(credentials.Identity.UserID)); ok {
		c.logger.Debug("using cached access token", "user_id", credentials.Identity.UserID)
		credentials.AccessToken = token
	}
	return credentials
}

// Execute sends request under credentials and returns the result and the
// credentials to use from now on.
//
// It runs at most two attempts. After a 401 or 403 on the first attempt,
// if credentials can re-authenticate, it logs in, caches the new token
// and replays the request once. If the login fails the first result is
// returned with the credentials unchanged.
func (c *Client) Execute(ctx context.Context, credentials Credentials, request Request) (Result, Credentials) {
	result := c.attempt(ctx, credentials.AccessToken, request)
	if !result.AuthFailure() || !credentials.CanReauthenticate() {
		return result, credentials
	}

	token, loginResult := c.Login(ctx, *credentials.Identity)
	if token == "" {
		c.logger.Warn("re-authentication failed",
			"user_id", credentials.Identity.UserID,
			"status", loginResult.StatusCode,
		)
		return result, credentials
	}

	c.cache.Save(credcache.IdentityHash(credentials.Identity.UserID), token)
	refreshed := credentials
	refreshed.AccessToken = token
	refreshed.Reauthenticated = true
	c.logger.Info("re-authenticated after rejected token",
		"user_id", credentials.Identity.UserID,
		"rejected_status", result.StatusCode,
	)

	return c.attempt(ctx, token, request), refreshed
}

// loginRequest is the m.login.password body.
type loginRequest struct {
	Type                     string          `json:"type"`
	Identifier               loginIdentifier `json:"identifier"`
	Password                 string          `json:"password"`
	InitialDeviceDisplayName string          `json:"initial_device_display_name,omitempty"`
}

type loginIdentifier struct {
	Type string `json:"type"`
	User string `json:"user"`
}

// Login exchanges a password for an access token on the client surface.
// The token is "" unless the result is a 2xx carrying access_token. The
// result is returned either way for reporting.
//
// An identity without a password sends nothing: the result has status 0
// and an M_MISSING_PARAM body, so Err never reports it as a transport
// failure.
func (c *Client) Login(ctx context.Context, identity Identity) (string, Result) {
	if identity.Password == nil {
		return "", Result{Body: []byte(`{"errcode":"` + ErrCodeMissingParam + `","error":"no password for login"}`)}
	}

	// Password is converted to string at the JSON serialization boundary.
	body := loginRequest{
		Type:                     "m.login.password",
		Identifier:               loginIdentifier{Type: "m.id.user", User: identity.UserID},
		Password:                 identity.Password.String(),
		InitialDeviceDisplayName: c.deviceDisplayName,
	}
	result := c.attempt(ctx, "", Request{
		Method:   http.MethodPost,
		Surface:  ClientSurface(),
		Endpoint: "login",
		Body:     body,
	})
	if !result.OK() {
		return "", result
	}

	var response AuthResponse
	if err := result.Decode(&response); err != nil || response.AccessToken == "" {
		return "", result
	}
	c.logger.Info("logged in to matrix",
		"user_id", response.UserID,
		"device_id", response.DeviceID,
	)
	return response.AccessToken, result
}
