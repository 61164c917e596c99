// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package digest computes short, domain-separated BLAKE3 digests used as
// cache keys and idempotency suffixes. These digests are identifiers,
// not security boundaries: an 8-hex-character digest collides at the
// birthday bound of 2^16 inputs.
package digest

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// ShortLength is the number of hex characters in a short digest.
const ShortLength = 8

// domainKey is a 32-byte key for BLAKE3 keyed hashing. The bytes are the
// ASCII domain name zero-padded to 32 bytes. Changing a key changes every
// digest in its domain, which for the identity domain orphans every
// cached token.
type domainKey [32]byte

var (
	identityDomainKey = domainKey{
		's', 'y', 'n', 'a', 'p', 's', 'e', '-', 'a', 'd', 'm', 'i', 'n', '.',
		'i', 'd', 'e', 'n', 't', 'i', 't', 'y', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	transactionDomainKey = domainKey{
		's', 'y', 'n', 'a', 'p', 's', 'e', '-', 'a', 'd', 'm', 'i', 'n', '.',
		't', 'x', 'n', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
)

// Identity returns the short digest of an account identifier (a full
// Matrix user ID). Used as the credential cache file key.
func Identity(identity string) string {
	return short(identityDomainKey, []byte(identity))
}

// Transaction returns the short digest of a transaction ID seed.
func Transaction(seed string) string {
	return short(transactionDomainKey, []byte(seed))
}

func short(key domainKey, data []byte) string {
	// NewKeyed only fails for keys that are not 32 bytes.
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("digest: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	sum := hasher.Sum(nil)
	return hex.EncodeToString(sum[:ShortLength/2])
}
