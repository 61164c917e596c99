// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the complete synapse-admin command tree.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/bureau-foundation/synapse-admin/cmd/synapse-admin/account"
	"github.com/bureau-foundation/synapse-admin/cmd/synapse-admin/cache"
	"github.com/bureau-foundation/synapse-admin/cmd/synapse-admin/cli"
	"github.com/bureau-foundation/synapse-admin/cmd/synapse-admin/device"
	"github.com/bureau-foundation/synapse-admin/cmd/synapse-admin/event"
	"github.com/bureau-foundation/synapse-admin/cmd/synapse-admin/room"
	"github.com/bureau-foundation/synapse-admin/cmd/synapse-admin/server"
	"github.com/bureau-foundation/synapse-admin/cmd/synapse-admin/user"
	"github.com/bureau-foundation/synapse-admin/lib/version"
)

// Root builds the command tree. Every command writes its output to
// stdout.
func Root(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name: "synapse-admin",
		Description: `synapse-admin: administer a Synapse homeserver.

Manage users, rooms, devices and registration tokens through the
Synapse Admin API, and post events through the Matrix Client-Server
API. A rejected access token is replaced by logging in again with the
configured admin password, and the new token is cached for later runs.

Settings come from the YAML file named by --config or $SYNAPSE_ADMIN_CONFIG;
flags override the file.`,
		Subcommands: []*cli.Command{
			account.LoginCommand(stdout),
			account.WhoAmICommand(stdout),
			server.Command(stdout),
			server.TokenCommand(stdout),
			user.Command(stdout),
			user.RateLimitCommand(stdout),
			room.Command(stdout),
			device.Command(stdout),
			event.Command(stdout),
			cache.Command(stdout),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, args []string) error {
					if err := cli.ExactArgs(args); err != nil {
						return err
					}
					_, err := fmt.Fprintf(stdout, "synapse-admin %s\n", version.Full())
					return err
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Check the connection and credentials",
				Command:     "synapse-admin whoami --config /etc/synapse-admin.yaml",
			},
			{
				Description: "Make sure an account exists with a known password",
				Command:     "synapse-admin user ensure @deploy:example.org --user-password-file deploy.pass",
			},
			{
				Description: "Create an operations room",
				Command:     "synapse-admin room create --name Operations --alias ops --admin @alice:example.org",
			},
			{
				Description: "Revoke a user's devices unseen for 90 days",
				Command:     "synapse-admin device prune @alice:example.org --min-age-days 90",
			},
			{
				Description: "Announce a deployment in the operations room",
				Command:     "synapse-admin event message ops \"deploy finished\"",
			},
		},
	}
}
