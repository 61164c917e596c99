// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides validated value types for the Matrix identifiers
// that flow through the admin client: user IDs, room IDs, room aliases,
// server names, device IDs and event types.
//
// Parsing happens once at the boundary (flag values, config files, API
// responses). After that the values are immutable and String returns the
// canonical wire form. The zero value of every type is "unset"; use IsZero.
//
// The sigil of a room identifier decides how it is routed:
//
//	!opaque:server    room ID, used as-is
//	#localpart:server room alias, resolved through the directory
//
// ParseRoomIdentifier classifies a raw string into one of the two.
package ref
