// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package account implements the "login" and "whoami" commands, which
// manage and inspect the administrator's own session.
package account

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/synapse-admin/cmd/synapse-admin/cli"
)

type loginParams struct {
	cli.SessionConfig
	cli.JSONOutput
}

// LoginCommand returns the "login" command.
func LoginCommand(stdout io.Writer) *cli.Command {
	var params loginParams

	return &cli.Command{
		Name:    "login",
		Summary: "Log in with the admin password and cache the token",
		Description: `Log in with the admin user ID and password, replacing any cached token.

Other commands log in on their own when the homeserver rejects the
cached token, so this is only needed to rotate a token deliberately or
to check that the password works. The new token is written to the
credential cache and, with --json, included in the output.`,
		Usage: "synapse-admin login --admin-user <user-id> --password-file <path> [flags]",
		Examples: []cli.Example{
			{
				Description: "Log in, reading the password from stdin",
				Command:     "pass show synapse/admin | synapse-admin login --admin-user @admin:example.org --password-file -",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("login", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if err := cli.ExactArgs(args); err != nil {
				return err
			}
			params.Stdout = stdout
			connection, err := params.Connect()
			if err != nil {
				return err
			}
			defer connection.Close()

			if connection.Password() == nil {
				return cli.Validation("login needs --admin-user and --password-file")
			}
			response, err := connection.Session.Login(ctx)
			if err != nil {
				return cli.Categorize(err)
			}

			return connection.Emit(&params.JSONOutput, response, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "logged in as %s (device %s)\n", response.UserID, response.DeviceID)
				return err
			})
		},
	}
}

type whoamiParams struct {
	cli.SessionConfig
	cli.JSONOutput
}

// WhoAmICommand returns the "whoami" command.
func WhoAmICommand(stdout io.Writer) *cli.Command {
	var params whoamiParams

	return &cli.Command{
		Name:    "whoami",
		Summary: "Show which account the access token belongs to",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("whoami", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if err := cli.ExactArgs(args); err != nil {
				return err
			}
			params.Stdout = stdout
			connection, err := params.Connect()
			if err != nil {
				return err
			}
			defer connection.Close()

			whoami, err := connection.Session.WhoAmI(ctx)
			if err != nil {
				return cli.Categorize(err)
			}

			return connection.Emit(&params.JSONOutput, whoami, func(w io.Writer) error {
				if whoami.DeviceID == "" {
					_, err := fmt.Fprintln(w, whoami.UserID)
					return err
				}
				_, err := fmt.Fprintf(w, "%s (device %s)\n", whoami.UserID, whoami.DeviceID)
				return err
			})
		},
	}
}
