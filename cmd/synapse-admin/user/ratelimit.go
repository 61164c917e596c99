// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package user

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/synapse-admin/cmd/synapse-admin/cli"
	"github.com/bureau-foundation/synapse-admin/lib/ref"
	"github.com/bureau-foundation/synapse-admin/messaging"
)

// RateLimitCommand returns the "ratelimit" command group.
func RateLimitCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "ratelimit",
		Summary: "Set or clear per-user message rate limit overrides",
		Subcommands: []*cli.Command{
			rateLimitSetCommand(stdout),
			rateLimitClearCommand(stdout),
		},
	}
}

// rateLimitResult is the output of both ratelimit commands. Override is
// nil after a clear.
type rateLimitResult struct {
	UserID   ref.UserID                   `json:"user_id"`
	Override *messaging.RateLimitOverride `json:"override"`
}

type rateLimitSetParams struct {
	cli.SessionConfig
	cli.JSONOutput
	MessagesPerSecond int `flag:"messages-per-second" desc:"sustained messages per second (0 with --burst-count 0 disables limiting)"`
	BurstCount        int `flag:"burst-count" desc:"messages allowed back to back"`
}

func rateLimitSetCommand(stdout io.Writer) *cli.Command {
	var params rateLimitSetParams

	return &cli.Command{
		Name:    "set",
		Summary: "Override an account's message rate limit",
		Usage:   "synapse-admin ratelimit set <user-id> [flags]",
		Examples: []cli.Example{
			{
				Description: "Exempt a bridge bot from rate limiting",
				Command:     "synapse-admin ratelimit set @bridge:example.org",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("set", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if err := cli.ExactArgs(args, "user-id"); err != nil {
				return err
			}
			userID, err := cli.ParseUserID(args[0])
			if err != nil {
				return err
			}
			if params.MessagesPerSecond < 0 || params.BurstCount < 0 {
				return cli.Validation("--messages-per-second and --burst-count must not be negative")
			}
			params.Stdout = stdout
			connection, err := params.Connect()
			if err != nil {
				return err
			}
			defer connection.Close()

			override := messaging.RateLimitOverride{
				MessagesPerSecond: params.MessagesPerSecond,
				BurstCount:        params.BurstCount,
			}
			if err := connection.Session.SetRateLimitOverride(ctx, userID, override); err != nil {
				return cli.Categorize(err)
			}
			return connection.Emit(&params.JSONOutput, rateLimitResult{UserID: userID, Override: &override}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s: %d messages/s, burst %d\n", userID, override.MessagesPerSecond, override.BurstCount)
				return err
			})
		},
	}
}

type rateLimitClearParams struct {
	cli.SessionConfig
	cli.JSONOutput
}

func rateLimitClearCommand(stdout io.Writer) *cli.Command {
	var params rateLimitClearParams

	return &cli.Command{
		Name:    "clear",
		Summary: "Remove an account's rate limit override",
		Usage:   "synapse-admin ratelimit clear <user-id> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("clear", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if err := cli.ExactArgs(args, "user-id"); err != nil {
				return err
			}
			userID, err := cli.ParseUserID(args[0])
			if err != nil {
				return err
			}
			params.Stdout = stdout
			connection, err := params.Connect()
			if err != nil {
				return err
			}
			defer connection.Close()

			if err := connection.Session.ClearRateLimitOverride(ctx, userID); err != nil {
				return cli.Categorize(err)
			}
			return connection.Emit(&params.JSONOutput, rateLimitResult{UserID: userID}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s: server default rate limit\n", userID)
				return err
			})
		},
	}
}
