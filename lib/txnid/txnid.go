// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package txnid generates idempotency keys for Matrix event sends.
//
// A transaction ID has the form
//
//	<prefix>-<unix milliseconds>-<random>-<digest>
//
// where digest is the short BLAKE3 digest of
// "<milliseconds>-<random>-<room>-<event type>". The random component
// keeps two IDs generated in the same millisecond for the same room
// apart; the homeserver deduplicates a retried send with the same ID.
// Every character is in [a-z0-9-], so IDs are safe in a path segment
// without escaping.
package txnid

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/bureau-foundation/synapse-admin/lib/clock"
	"github.com/bureau-foundation/synapse-admin/lib/digest"
)

// DefaultPrefix is used when Config.Prefix is empty.
const DefaultPrefix = "synapse-admin"

// The random component is drawn uniformly from [randomMinimum,
// randomMaximum]; a fixed width keeps IDs the same length.
const (
	randomMinimum = 100_000_000
	randomMaximum = 999_999_999
)

// Config configures a Generator.
type Config struct {
	// Prefix starts every ID. Must contain only [a-z0-9-].
	Prefix string

	// Clock supplies the timestamp. Defaults to clock.Real().
	Clock clock.Clock

	// Source seeds the random component. Defaults to a ChaCha8 source
	// seeded from the runtime's random generator.
	Source rand.Source
}

// Generator produces transaction IDs. It is safe for concurrent use.
type Generator struct {
	prefix string
	clock  clock.Clock

	mu     sync.Mutex
	random *rand.Rand
}

// New returns a Generator.
func New(config Config) (*Generator, error) {
	prefix := config.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	for i := 0; i < len(prefix); i++ {
		c := prefix[i]
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '-') {
			return nil, fmt.Errorf("txnid: prefix %q: invalid character %q (allowed: a-z, 0-9, -)", prefix, c)
		}
	}

	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}

	source := config.Source
	if source == nil {
		var seed [32]byte
		for i := range seed {
			seed[i] = byte(rand.Uint32())
		}
		source = rand.NewChaCha8(seed)
	}

	return &Generator{
		prefix: prefix,
		clock:  clk,
		random: rand.New(source),
	}, nil
}

// Generate returns a new transaction ID for an event of eventType in
// roomID.
func (g *Generator) Generate(roomID, eventType string) string {
	milliseconds := g.clock.Now().UnixMilli()

	g.mu.Lock()
	random := randomMinimum + g.random.Int64N(randomMaximum-randomMinimum+1)
	g.mu.Unlock()

	seed := fmt.Sprintf("%d-%d-%s-%s", milliseconds, random, roomID, eventType)
	return fmt.Sprintf("%s-%d-%d-%s", g.prefix, milliseconds, random, digest.Transaction(seed))
}
