// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging is an authenticated client for the Synapse admin API
// and the Matrix client-server API.
//
// [Client] owns the HTTP transport, the homeserver URL and the credential
// cache. It holds no token. [Client.Execute] sends one [Request] under a
// [Credentials] snapshot and returns a [Result] together with the
// snapshot to use next:
//
//	result, credentials := client.Execute(ctx, credentials, request)
//
// When the server rejects the token (401 or 403) and the snapshot carries
// an [Identity], Execute logs in once, saves the new token to the cache,
// replays the request once and returns a snapshot with Reauthenticated
// set. It never logs in or replays more than once per call.
//
// Results never carry Go errors for ordinary outcomes. A transport
// failure is StatusCode -1 with the error text in the body; a non-JSON
// body is normalized (see lib/netutil). [Result.Err] converts a failed
// result into a [*MatrixError] when a caller wants an error.
//
// [Session] is the caller-owned handle for one logical operation. It
// adopts each returned snapshot, so the resource operations (users,
// rooms, devices, rate limits, registration tokens, events) are methods
// on Session, and [Session.Credentials] exposes the refreshed token for
// the caller to report or persist.
//
// Two API families share the host and the token. [AdminSurface] selects
// /_synapse/admin/{version}; [ClientSurface] selects /_matrix/client/v3.
// Every user ID, room ID, alias and device ID placed in a path is fully
// percent-encoded, '@' and ':' included. Administrative endpoints do not
// accept aliases, so room operations resolve them first with
// [Session.ResolveRoom].
package messaging
