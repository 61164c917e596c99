// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"fmt"
	"net/url"
)

// ServerName is a validated Matrix server name (e.g., "example.org",
// "matrix.example.org:8448"). It is the part after the colon in user IDs
// and room aliases.
type ServerName struct {
	name string
}

// ParseServerName validates and wraps a raw Matrix server name string.
func ParseServerName(raw string) (ServerName, error) {
	if err := validateServer(raw); err != nil {
		return ServerName{}, err
	}
	return ServerName{name: raw}, nil
}

// MustParseServerName is like ParseServerName but panics on error.
func MustParseServerName(raw string) ServerName {
	s, err := ParseServerName(raw)
	if err != nil {
		panic(fmt.Sprintf("ref.MustParseServerName(%q): %v", raw, err))
	}
	return s
}

// ServerNameFromURL derives a server name from a homeserver base URL by
// taking its host (and port, if present). Deployments that delegate
// their server name through .well-known need to configure it explicitly.
func ServerNameFromURL(homeserverURL string) (ServerName, error) {
	parsed, err := url.Parse(homeserverURL)
	if err != nil {
		return ServerName{}, fmt.Errorf("parsing homeserver URL %q: %w", homeserverURL, err)
	}
	if parsed.Host == "" {
		return ServerName{}, fmt.Errorf("homeserver URL %q has no host", homeserverURL)
	}
	return ParseServerName(parsed.Host)
}

// String returns the server name string.
func (s ServerName) String() string { return s.name }

// IsZero reports whether the ServerName is unset.
func (s ServerName) IsZero() bool { return s.name == "" }

// MarshalText implements encoding.TextMarshaler.
func (s ServerName) MarshalText() ([]byte, error) {
	return []byte(s.name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty input
// produces the zero value.
func (s *ServerName) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*s = ServerName{}
		return nil
	}
	parsed, err := ParseServerName(string(data))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
