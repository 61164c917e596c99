// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret keeps the admin password out of the Go heap.
//
// [Buffer] is backed by an anonymous mmap region that is mlocked
// (never swapped) and marked MADV_DONTDUMP (absent from core dumps).
// Close zeroes, unlocks and unmaps it; any access after Close panics.
//
// Passwords enter through [ReadFromPath] (a password file or "-" for
// stdin) or [NewFromBytes] (an interactive prompt). They leave the buffer
// only as the heap string needed to encode the login request body.
package secret
