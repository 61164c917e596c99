// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for synapse-admin
// packages.
//
// [NewHomeserver] starts an httptest server that answers like Synapse
// for the routes a test registers and records every request it sees.
// Routes are keyed by method and escaped path, so a test asserts the
// exact percent-encoding a client produced:
//
//	homeserver := testutil.NewHomeserver(t)
//	homeserver.Respond("GET", "/_synapse/admin/v2/users/%40alice%3Aexample.org",
//	    http.StatusOK, map[string]any{"name": "@alice:example.org"})
//
// Unrouted requests get 404 M_UNRECOGNIZED, the same answer Synapse
// gives for an unknown endpoint.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
