// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package server implements the "server" commands, which describe the
// homeserver as a whole, and the "token" commands for registration
// tokens.
package server

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/synapse-admin/cmd/synapse-admin/cli"
	"github.com/bureau-foundation/synapse-admin/messaging"
)

// Command returns the "server" command group.
func Command(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "server",
		Summary: "Describe the homeserver",
		Subcommands: []*cli.Command{
			versionCommand(stdout),
			infoCommand(stdout),
		},
	}
}

type versionParams struct {
	cli.SessionConfig
	cli.JSONOutput
}

func versionCommand(stdout io.Writer) *cli.Command {
	var params versionParams

	return &cli.Command{
		Name:    "version",
		Summary: "Show the homeserver's software version",
		Usage:   "synapse-admin server version [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("version", &params)
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

			version, err := connection.Session.ServerVersion(ctx)
			if err != nil {
				return cli.Categorize(err)
			}
			return connection.Emit(&params.JSONOutput, version, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Synapse %s\n", version.ServerVersion)
				return err
			})
		},
	}
}

type infoParams struct {
	cli.SessionConfig
	cli.JSONOutput
	Sections    []string `flag:"section" desc:"sections to gather: version, users, rooms, registration_tokens or all" default:"version"`
	Limit       int      `flag:"limit" desc:"maximum users and rooms to list" default:"100"`
	UsersFilter string   `flag:"users-filter" desc:"only users whose ID or display name contains this"`
	RoomsFilter string   `flag:"rooms-filter" desc:"only rooms whose name, alias or ID contains this"`
}

func infoCommand(stdout io.Writer) *cli.Command {
	var params infoParams

	return &cli.Command{
		Name:    "info",
		Summary: "Gather a snapshot of the homeserver",
		Description: `Collect the requested sections in one run. A section that fails is
reported as a warning and the other sections are still gathered.`,
		Usage: "synapse-admin server info [flags]",
		Examples: []cli.Example{
			{
				Description: "Everything, as JSON",
				Command:     "synapse-admin server info --section all --json",
			},
			{
				Description: "Version and the first ten rooms matching 'ops'",
				Command:     "synapse-admin server info --section version,rooms --limit 10 --rooms-filter ops",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("info", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if err := cli.ExactArgs(args); err != nil {
				return err
			}
			for _, section := range params.Sections {
				switch section {
				case messaging.InfoVersion, messaging.InfoUsers, messaging.InfoRooms, messaging.InfoRegistrationTokens, messaging.InfoAll:
				default:
					return cli.Validation("unknown section %q (expected version, users, rooms, registration_tokens or all)", section)
				}
			}

			params.Stdout = stdout
			connection, err := params.Connect()
			if err != nil {
				return err
			}
			defer connection.Close()

			info, err := connection.Session.GatherServerInfo(ctx, messaging.InfoOptions{
				Sections:    params.Sections,
				Limit:       params.Limit,
				UsersFilter: params.UsersFilter,
				RoomsFilter: params.RoomsFilter,
			})
			if err != nil {
				return cli.Categorize(err)
			}
			return connection.Emit(&params.JSONOutput, info, func(w io.Writer) error {
				return writeInfo(w, info)
			})
		},
	}
}

func writeInfo(w io.Writer, info messaging.ServerInfo) error {
	writer := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if info.Version != nil {
		fmt.Fprintf(writer, "Version:\tSynapse %s\n", info.Version.ServerVersion)
	}
	if info.Users != nil {
		fmt.Fprintf(writer, "Users:\t%d listed of %d\n", len(info.Users), info.UsersTotal)
		for _, user := range info.Users {
			fmt.Fprintf(writer, "\t%s\n", user.Name)
		}
	}
	if info.Rooms != nil {
		fmt.Fprintf(writer, "Rooms:\t%d listed of %d\n", len(info.Rooms), info.RoomsTotal)
		for _, room := range info.Rooms {
			fmt.Fprintf(writer, "\t%s %s\n", room.RoomID, room.Name)
		}
	}
	if info.RegistrationTokens != nil {
		fmt.Fprintf(writer, "Registration tokens:\t%d\n", len(info.RegistrationTokens))
	}
	for _, warning := range info.Warnings {
		fmt.Fprintf(writer, "Warning:\t%s\n", warning)
	}
	return writer.Flush()
}
