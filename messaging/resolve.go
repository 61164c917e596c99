// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"fmt"
	"strings"

	"github.com/bureau-foundation/synapse-admin/lib/ref"
)

// ResolveRoom turns a room identifier into a room ID.
//
// A '!' identifier is parsed and returned without a request. A '#'
// identifier is looked up in the room directory on the client surface;
// a non-2xx response is returned as a *ResolveError carrying the result.
// Anything else fails with ErrInvalidRoomIdentifier.
func (s *Session) ResolveRoom(ctx context.Context, identifier string) (ref.RoomID, error) {
	switch {
	case strings.HasPrefix(identifier, "!"):
		roomID, err := ref.ParseRoomID(identifier)
		if err != nil {
			return ref.RoomID{}, fmt.Errorf("%w: %w", ErrInvalidRoomIdentifier, err)
		}
		return roomID, nil
	case strings.HasPrefix(identifier, "#"):
		return s.ResolveAlias(ctx, identifier)
	default:
		return ref.RoomID{}, fmt.Errorf("%w: %q must start with '!' or '#'", ErrInvalidRoomIdentifier, identifier)
	}
}

// ResolveAlias looks up a room alias in the room directory. The full
// alias, sigil and server included, is escaped into one path segment.
func (s *Session) ResolveAlias(ctx context.Context, alias string) (ref.RoomID, error) {
	result := s.Get(ctx, ClientSurface(), "directory/room/"+pathSegment(alias), nil)
	if !result.OK() {
		return ref.RoomID{}, &ResolveError{Alias: alias, Result: result}
	}

	var response resolveAliasResponse
	if err := result.Decode(&response); err != nil {
		return ref.RoomID{}, err
	}
	roomID, err := ref.ParseRoomID(response.RoomID)
	if err != nil {
		return ref.RoomID{}, fmt.Errorf("messaging: directory returned invalid room ID for %s: %w", alias, err)
	}
	return roomID, nil
}

// QualifyAlias completes a shorthand alias ("ops" or "#ops") with the
// client's server name. Fully qualified aliases are returned unchanged.
func (s *Session) QualifyAlias(raw string) (ref.RoomAlias, error) {
	return ref.QualifyRoomAlias(raw, s.client.ServerName())
}
