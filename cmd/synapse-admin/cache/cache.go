// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cache implements the "cache" command group: generating the
// age key that seals cached access tokens, and inspecting the cache.
package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/synapse-admin/cmd/synapse-admin/cli"
	"github.com/bureau-foundation/synapse-admin/lib/credcache"
	"github.com/bureau-foundation/synapse-admin/lib/sealed"
	"github.com/bureau-foundation/synapse-admin/lib/secret"
)

// Command returns the "cache" command group.
func Command(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "cache",
		Summary: "Manage the access token cache",
		Description: `Tokens obtained by logging in are cached per admin user so that later
runs skip the login. With cache.key_file (or --cache-key-file) set,
entries are encrypted to that age key and stored apart from plain ones.`,
		Subcommands: []*cli.Command{
			keygenCommand(stdout),
			statusCommand(stdout),
		},
	}
}

type keygenParams struct {
	cli.JSONOutput
	Out string `flag:"out" desc:"file to write the private key to (created 0600, never overwritten)"`
}

type keygenResult struct {
	KeyFile   string `json:"key_file"`
	PublicKey string `json:"public_key"`
}

func keygenCommand(stdout io.Writer) *cli.Command {
	var params keygenParams

	return &cli.Command{
		Name:    "keygen",
		Summary: "Generate a cache sealing key",
		Usage:   "synapse-admin cache keygen --out <path>",
		Examples: []cli.Example{
			{
				Description: "Create a key and point the cache at it",
				Command:     "synapse-admin cache keygen --out ~/.config/synapse-admin/cache.key",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("keygen", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if err := cli.ExactArgs(args); err != nil {
				return err
			}
			if params.Out == "" {
				return cli.Validation("--out is required")
			}

			keypair, err := sealed.GenerateKeypair()
			if err != nil {
				return cli.Internal("%w", err)
			}
			defer keypair.Close()

			if err := writeKey(params.Out, keypair.PrivateKey); err != nil {
				return err
			}

			result := keygenResult{KeyFile: params.Out, PublicKey: keypair.PublicKey}
			if params.OutputJSON {
				return cli.WriteJSON(stdout, result)
			}
			fmt.Fprintf(stdout, "wrote %s\npublic key: %s\n", result.KeyFile, result.PublicKey)
			return nil
		},
	}
}

func writeKey(path string, key *secret.Buffer) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return cli.Conflict("%s already exists", path)
		}
		return cli.Validation("creating %s: %w", path, err)
	}
	if _, err := file.Write(key.Bytes()); err != nil {
		file.Close()
		return cli.Internal("writing %s: %w", path, err)
	}
	if _, err := file.Write([]byte("\n")); err != nil {
		file.Close()
		return cli.Internal("writing %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return cli.Internal("writing %s: %w", path, err)
	}
	return nil
}

type statusParams struct {
	cli.SessionConfig
	cli.JSONOutput
}

type statusResult struct {
	Enabled   bool   `json:"enabled"`
	Directory string `json:"directory,omitempty"`
	Sealed    bool   `json:"sealed"`
	UserID    string `json:"user_id,omitempty"`
	Path      string `json:"path,omitempty"`
	Cached    bool   `json:"cached"`
}

func statusCommand(stdout io.Writer) *cli.Command {
	var params statusParams

	return &cli.Command{
		Name:    "status",
		Summary: "Show where tokens are cached and whether one is present",
		Usage:   "synapse-admin cache status [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("status", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if err := cli.ExactArgs(args); err != nil {
				return err
			}
			cfg, err := params.Resolve()
			if err != nil {
				return err
			}

			result := statusResult{Enabled: !cfg.Cache.Disabled}
			if result.Enabled {
				logger := params.Logger
				if logger == nil {
					logger = cli.NewCommandLogger(params.Verbose)
				}
				store := credcache.New(cfg.Cache.Directory, logger)
				defer store.Close()
				if cfg.Cache.KeyFile != "" {
					key, err := secret.ReadFromPath(cfg.Cache.KeyFile)
					if err != nil {
						return cli.Validation("cache key: %w", err)
					}
					if err := store.Seal(key); err != nil {
						return cli.Validation("cache key %s: %w", cfg.Cache.KeyFile, err)
					}
				}
				result.Directory = store.Directory()
				result.Sealed = store.Sealed()
				if cfg.Admin.UserID != "" {
					hash := credcache.IdentityHash(cfg.Admin.UserID)
					result.UserID = cfg.Admin.UserID
					result.Path = store.Path(hash)
					_, result.Cached = store.Load(hash)
				}
			}

			if params.OutputJSON {
				return cli.WriteJSON(stdout, result)
			}
			return writeStatus(stdout, result)
		},
	}
}

func writeStatus(w io.Writer, result statusResult) error {
	if !result.Enabled {
		_, err := fmt.Fprintln(w, "cache disabled")
		return err
	}
	sealing := "plain"
	if result.Sealed {
		sealing = "sealed"
	}
	fmt.Fprintf(w, "directory: %s (%s)\n", result.Directory, sealing)
	if result.UserID == "" {
		_, err := fmt.Fprintln(w, "no admin user configured")
		return err
	}
	state := "no token"
	if result.Cached {
		state = "token cached"
	}
	_, err := fmt.Fprintf(w, "%s: %s at %s\n", result.UserID, state, result.Path)
	return err
}
