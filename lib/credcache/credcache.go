// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package credcache persists bearer tokens between short-lived
// invocations so that each one does not have to log in again.
//
// There is one file per identity hash, holding the raw token bytes with
// mode 0600 inside a 0700 directory. Writes go to a temporary file in the
// same directory and are renamed into place, so a concurrent reader sees
// either the old token or the new one. Concurrent writers race and the
// last rename wins.
//
// A sealed store (see [Store.Seal]) keeps each token age-encrypted in a
// separate "token-<hash>.age" file, so sealed and plain entries never
// shadow each other.
//
// Every failure is logged as a warning and otherwise ignored: a broken
// cache only costs an extra login. Entries are never deleted here; a
// stale token is replaced after the server rejects it.
package credcache

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/synapse-admin/lib/digest"
	"github.com/bureau-foundation/synapse-admin/lib/sealed"
	"github.com/bureau-foundation/synapse-admin/lib/secret"
)

// filePrefix is prepended to the identity hash to form the file name.
const filePrefix = "token-"

// sealedSuffix marks age-encrypted entries.
const sealedSuffix = ".age"

// IdentityHash returns the cache key for an account identifier.
func IdentityHash(identity string) string {
	return digest.Identity(identity)
}

// Store is a directory of cached tokens. A nil *Store is a disabled
// cache: Load always misses and Save does nothing.
type Store struct {
	directory string
	logger    *slog.Logger

	// key and recipient are set by Seal.
	key       *secret.Buffer
	recipient string
}

// New returns a Store rooted at directory. The directory is created on
// first Save.
func New(directory string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{directory: directory, logger: logger}
}

// Directory returns the directory holding the token files.
func (s *Store) Directory() string {
	if s == nil {
		return ""
	}
	return s.directory
}

// Seal makes the store encrypt tokens to key's recipient and decrypt
// them with key. The store takes ownership of key and zeroes it on
// Close. Sealing a nil store closes key and does nothing else.
func (s *Store) Seal(key *secret.Buffer) error {
	if key == nil {
		return fmt.Errorf("credcache: no sealing key")
	}
	if s == nil {
		return key.Close()
	}
	recipient, err := sealed.Recipient(key)
	if err != nil {
		key.Close()
		return fmt.Errorf("credcache: %w", err)
	}
	s.key = key
	s.recipient = recipient
	return nil
}

// Sealed reports whether tokens are stored encrypted.
func (s *Store) Sealed() bool {
	return s != nil && s.key != nil
}

// Close zeroes the sealing key, if any.
func (s *Store) Close() error {
	if s == nil || s.key == nil {
		return nil
	}
	return s.key.Close()
}

// Path returns the file that holds the token for identityHash.
func (s *Store) Path(identityHash string) string {
	name := filePrefix + identityHash
	if s.Sealed() {
		name += sealedSuffix
	}
	return filepath.Join(s.directory, name)
}

// Load returns the cached token for identityHash. The second result is
// false when there is no usable entry.
func (s *Store) Load(identityHash string) (string, bool) {
	if s == nil {
		return "", false
	}

	path := s.Path(identityHash)
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("reading cached token failed", "path", path, "error", err)
		}
		return "", false
	}

	content := string(bytes.TrimSpace(data))
	if content == "" {
		return "", false
	}
	if !s.Sealed() {
		return content, true
	}

	plaintext, err := sealed.Decrypt(content, s.key)
	if err != nil {
		s.logger.Warn("opening sealed token failed", "path", path, "error", err)
		return "", false
	}
	defer plaintext.Close()
	return plaintext.String(), true
}

// Save stores token as the cached value for identityHash, replacing any
// previous value atomically.
func (s *Store) Save(identityHash, token string) {
	if s == nil || token == "" {
		return
	}

	if err := s.save(identityHash, token); err != nil {
		s.logger.Warn("caching token failed", "directory", s.directory, "error", err)
		return
	}
	s.logger.Debug("cached token", "identity_hash", identityHash)
}

func (s *Store) save(identityHash, token string) error {
	content := token
	if s.Sealed() {
		ciphertext, err := sealed.Encrypt([]byte(token), []string{s.recipient})
		if err != nil {
			return err
		}
		content = ciphertext
	}

	if err := os.MkdirAll(s.directory, 0o700); err != nil {
		return err
	}

	// CreateTemp opens with mode 0600, so the token is never readable
	// by other users even before the rename.
	temporary, err := os.CreateTemp(s.directory, "."+filePrefix+identityHash+"-*")
	if err != nil {
		return err
	}
	temporaryPath := temporary.Name()

	_, writeError := temporary.WriteString(content)
	if writeError == nil {
		writeError = temporary.Sync()
	}
	closeError := temporary.Close()
	if err := errors.Join(writeError, closeError); err != nil {
		os.Remove(temporaryPath)
		return err
	}

	if err := os.Rename(temporaryPath, s.Path(identityHash)); err != nil {
		os.Remove(temporaryPath)
		return err
	}
	return nil
}
