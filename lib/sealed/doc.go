// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed encrypts small secrets at rest with age x25519 keys. The
// credential cache uses it so that a copied cache directory is useless
// without the key file.
//
// Ciphertext is base64-encoded text. Private keys and decrypted
// plaintext are [secret.Buffer] values backed by mmap memory outside the
// Go heap (locked against swap, excluded from core dumps, zeroed on
// Close).
//
//   - [GenerateKeypair] creates a key for "synapse-admin cache keygen"
//   - [Recipient] derives the public key from a private key file
//   - [Encrypt] and [Decrypt] seal and open one value
package sealed
