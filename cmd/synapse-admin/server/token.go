// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/synapse-admin/cmd/synapse-admin/cli"
	"github.com/bureau-foundation/synapse-admin/lib/clock"
	"github.com/bureau-foundation/synapse-admin/messaging"
)

// TokenCommand returns the "token" command group.
func TokenCommand(stdout io.Writer) *cli.Command {
	return tokenCommand(stdout, clock.Real())
}

func tokenCommand(stdout io.Writer, clk clock.Clock) *cli.Command {
	return &cli.Command{
		Name:    "token",
		Summary: "Manage registration tokens",
		Subcommands: []*cli.Command{
			tokenCreateCommand(stdout, clk),
			tokenListCommand(stdout, clk),
		},
	}
}

type tokenCreateParams struct {
	cli.SessionConfig
	cli.JSONOutput
	Token       string        `flag:"token-value" desc:"the token string; the server generates one when empty"`
	UsesAllowed int           `flag:"uses-allowed" desc:"number of registrations the token allows; -1 is unlimited" default:"-1"`
	ExpiresIn   time.Duration `flag:"expires-in" desc:"lifetime of the token, e.g. 72h; 0 never expires" default:"0s"`
}

func tokenCreateCommand(stdout io.Writer, clk clock.Clock) *cli.Command {
	var params tokenCreateParams

	return &cli.Command{
		Name:    "create",
		Summary: "Create a registration token",
		Usage:   "synapse-admin token create [flags]",
		Examples: []cli.Example{
			{
				Description: "A single-use token valid for three days",
				Command:     "synapse-admin token create --uses-allowed 1 --expires-in 72h",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("create", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if err := cli.ExactArgs(args); err != nil {
				return err
			}
			if params.UsesAllowed < -1 {
				return cli.Validation("--uses-allowed must be -1 (unlimited) or at least 0")
			}
			if params.ExpiresIn < 0 {
				return cli.Validation("--expires-in must not be negative")
			}

			params.Stdout = stdout
			params.Clock = clk
			connection, err := params.Connect()
			if err != nil {
				return err
			}
			defer connection.Close()

			spec := messaging.RegistrationTokenSpec{Token: params.Token}
			if params.UsesAllowed >= 0 {
				uses := params.UsesAllowed
				spec.UsesAllowed = &uses
			}
			if params.ExpiresIn > 0 {
				expiry := connection.Clock.Now().Add(params.ExpiresIn).UnixMilli()
				spec.ExpiryTime = &expiry
			}

			token, err := connection.Session.CreateRegistrationToken(ctx, spec)
			if err != nil {
				return cli.Categorize(err)
			}
			return connection.Emit(&params.JSONOutput, token, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s (uses: %s, expires: %s)\n", token.Token, formatLimit(token.UsesAllowed), formatExpiry(token.ExpiryTime))
				return err
			})
		},
	}
}

type tokenListParams struct {
	cli.SessionConfig
	cli.JSONOutput
	Valid cli.OptionalBool `flag:"valid" desc:"only valid tokens (--valid) or only invalid ones (--valid=false)"`
}

func tokenListCommand(stdout io.Writer, clk clock.Clock) *cli.Command {
	var params tokenListParams

	return &cli.Command{
		Name:    "list",
		Summary: "List registration tokens",
		Usage:   "synapse-admin token list [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("list", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if err := cli.ExactArgs(args); err != nil {
				return err
			}
			params.Stdout = stdout
			params.Clock = clk
			connection, err := params.Connect()
			if err != nil {
				return err
			}
			defer connection.Close()

			tokens, err := connection.Session.ListRegistrationTokens(ctx, params.Valid.Pointer())
			if err != nil {
				return cli.Categorize(err)
			}
			return connection.Emit(&params.JSONOutput, tokens, func(w io.Writer) error {
				writer := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(writer, "TOKEN\tUSES\tPENDING\tCOMPLETED\tEXPIRES")
				for _, token := range tokens {
					fmt.Fprintf(writer, "%s\t%s\t%d\t%d\t%s\n",
						token.Token, formatLimit(token.UsesAllowed), token.Pending, token.Completed, formatExpiry(token.ExpiryTime))
				}
				return writer.Flush()
			})
		},
	}
}

func formatLimit(limit *int) string {
	if limit == nil {
		return "unlimited"
	}
	return strconv.Itoa(*limit)
}

func formatExpiry(expiry *int64) string {
	if expiry == nil {
		return "never"
	}
	return time.UnixMilli(*expiry).UTC().Format(time.RFC3339)
}
