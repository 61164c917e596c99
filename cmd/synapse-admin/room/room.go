// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package room implements the "room" commands. Every room argument is
// a room ID ("!abc:example.org") or an alias; aliases without a server
// are completed with the homeserver's server name and resolved through
// the room directory.
package room

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/synapse-admin/cmd/synapse-admin/cli"
	"github.com/bureau-foundation/synapse-admin/lib/ref"
	"github.com/bureau-foundation/synapse-admin/messaging"
)

// Command returns the "room" command group.
func Command(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "room",
		Summary: "Inspect, create and delete rooms",
		Subcommands: []*cli.Command{
			showCommand(stdout),
			listCommand(stdout),
			membersCommand(stdout),
			createCommand(stdout),
			joinCommand(stdout),
			deleteCommand(stdout),
			resolveCommand(stdout),
			stateCommand(stdout),
			powerCommand(stdout),
		},
	}
}

// roomParams are the flags shared by commands that take one room and
// nothing else.
type roomParams struct {
	cli.SessionConfig
	cli.JSONOutput
}

// connectWithRoom validates a single room argument, opens a connection
// and expands the argument for the resolver.
func connectWithRoom(params *cli.SessionConfig, stdout io.Writer, args []string) (*cli.Connection, string, error) {
	if err := cli.ExactArgs(args, "room"); err != nil {
		return nil, "", err
	}
	params.Stdout = stdout
	connection, err := params.Connect()
	if err != nil {
		return nil, "", err
	}
	identifier, err := cli.RoomIdentifier(connection.Session, args[0])
	if err != nil {
		connection.Close()
		return nil, "", err
	}
	return connection, identifier, nil
}

// lookupResult reports a room lookup that may find nothing.
type lookupResult[T any] struct {
	Exists bool `json:"exists"`
	Room   *T   `json:"room,omitempty"`
}

func showCommand(stdout io.Writer) *cli.Command {
	var params roomParams

	return &cli.Command{
		Name:    "show",
		Summary: "Show a room's admin details",
		Description: `Show a room as the admin API reports it. A room the server does not
know is reported and the command exits with status 3.`,
		Usage: "synapse-admin room show <room> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("show", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			connection, identifier, err := connectWithRoom(&params.SessionConfig, stdout, args)
			if err != nil {
				return err
			}
			defer connection.Close()

			room, exists, err := connection.Session.GetRoom(ctx, identifier)
			if err != nil {
				return cli.Categorize(err)
			}
			result := lookupResult[messaging.Room]{Exists: exists}
			if exists {
				result.Room = &room
			}
			err = connection.Emit(&params.JSONOutput, result, func(w io.Writer) error {
				if !exists {
					_, err := fmt.Fprintf(w, "%s does not exist\n", identifier)
					return err
				}
				return writeRoom(w, room)
			})
			if err != nil {
				return err
			}
			if !exists {
				return &cli.ExitError{Code: cli.CategoryNotFound.ExitCode()}
			}
			return nil
		},
	}
}

func writeRoom(w io.Writer, room messaging.Room) error {
	writer := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(writer, "Room ID:\t%s\n", room.RoomID)
	fmt.Fprintf(writer, "Name:\t%s\n", room.Name)
	fmt.Fprintf(writer, "Alias:\t%s\n", room.CanonicalAlias)
	fmt.Fprintf(writer, "Topic:\t%s\n", room.Topic)
	fmt.Fprintf(writer, "Members:\t%d (%d local)\n", room.JoinedMembers, room.JoinedLocalMembers)
	fmt.Fprintf(writer, "Public:\t%t\n", bool(room.Public))
	fmt.Fprintf(writer, "Federatable:\t%t\n", bool(room.Federatable))
	if room.Encryption != nil {
		fmt.Fprintf(writer, "Encryption:\t%s\n", *room.Encryption)
	}
	fmt.Fprintf(writer, "Join rule:\t%s\n", room.JoinRules)
	fmt.Fprintf(writer, "Guest access:\t%s\n", room.GuestAccess)
	return writer.Flush()
}

type listParams struct {
	cli.SessionConfig
	cli.JSONOutput
	Limit  int    `flag:"limit" desc:"maximum number of rooms to return" default:"100"`
	Search string `flag:"search" desc:"only rooms whose name, alias or ID contains this"`
}

func listCommand(stdout io.Writer) *cli.Command {
	var params listParams

	return &cli.Command{
		Name:    "list",
		Summary: "List rooms known to the server",
		Usage:   "synapse-admin room list [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("list", &params)
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

			list, err := connection.Session.ListRooms(ctx, messaging.RoomListOptions{
				Limit:      params.Limit,
				SearchTerm: params.Search,
			})
			if err != nil {
				return cli.Categorize(err)
			}
			return connection.Emit(&params.JSONOutput, list, func(w io.Writer) error {
				writer := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(writer, "ROOM ID\tNAME\tALIAS\tMEMBERS\tPUBLIC")
				for _, room := range list.Rooms {
					fmt.Fprintf(writer, "%s\t%s\t%s\t%d\t%t\n",
						room.RoomID, room.Name, room.CanonicalAlias, room.JoinedMembers, bool(room.Public))
				}
				fmt.Fprintf(writer, "\n%d of %d rooms\n", len(list.Rooms), list.TotalRooms)
				return writer.Flush()
			})
		},
	}
}

func membersCommand(stdout io.Writer) *cli.Command {
	var params roomParams

	return &cli.Command{
		Name:    "members",
		Summary: "List a room's members",
		Usage:   "synapse-admin room members <room> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("members", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			connection, identifier, err := connectWithRoom(&params.SessionConfig, stdout, args)
			if err != nil {
				return err
			}
			defer connection.Close()

			members, exists, err := connection.Session.RoomMembers(ctx, identifier)
			if err != nil {
				return cli.Categorize(err)
			}
			result := lookupResult[messaging.RoomMembers]{Exists: exists}
			if exists {
				result.Room = &members
			}
			err = connection.Emit(&params.JSONOutput, result, func(w io.Writer) error {
				if !exists {
					_, err := fmt.Fprintf(w, "%s does not exist\n", identifier)
					return err
				}
				for _, member := range members.Members {
					if _, err := fmt.Fprintln(w, member); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
			if !exists {
				return &cli.ExitError{Code: cli.CategoryNotFound.ExitCode()}
			}
			return nil
		},
	}
}

type createParams struct {
	cli.SessionConfig
	cli.JSONOutput
	Name            string   `flag:"name" desc:"room name"`
	Alias           string   `flag:"alias" desc:"local part of the room's canonical alias"`
	Topic           string   `flag:"topic" desc:"room topic"`
	Preset          string   `flag:"preset" desc:"private_chat, public_chat or trusted_private_chat" default:"private_chat"`
	Invite          []string `flag:"invite" desc:"users to invite"`
	Admins          []string `flag:"admin" desc:"users to invite with power level 100"`
	Moderators      []string `flag:"moderator" desc:"users to invite with power level 50"`
	PowerLevelsFile string   `flag:"power-levels-file" desc:"JSON file with a complete power_level_content_override (replaces --admin/--moderator levels)"`
	GuestAccess     string   `flag:"guest-access" desc:"can_join or forbidden" default:"forbidden"`
}

func createCommand(stdout io.Writer) *cli.Command {
	var params createParams

	return &cli.Command{
		Name:    "create",
		Summary: "Create a room",
		Description: `Create a room as the admin account. Everyone named by --invite, --admin
and --moderator is invited once, in that order, and the admin account
itself is never invited. Only public_chat rooms are listed in the
public directory.`,
		Usage: "synapse-admin room create [flags]",
		Examples: []cli.Example{
			{
				Description: "Create an operations room with two moderators",
				Command:     "synapse-admin room create --name Operations --alias ops --admin @alice:example.org --moderator @bob:example.org,@carol:example.org",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("create", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if err := cli.ExactArgs(args); err != nil {
				return err
			}
			switch params.Preset {
			case messaging.PresetPrivateChat, messaging.PresetPublicChat, messaging.PresetTrustedPrivateChat:
			default:
				return cli.Validation("--preset must be private_chat, public_chat or trusted_private_chat, got %q", params.Preset)
			}
			switch params.GuestAccess {
			case messaging.GuestAccessCanJoin, messaging.GuestAccessForbidden:
			default:
				return cli.Validation("--guest-access must be can_join or forbidden, got %q", params.GuestAccess)
			}
			for _, user := range concat(params.Invite, params.Admins, params.Moderators) {
				if _, err := cli.ParseUserID(user); err != nil {
					return err
				}
			}

			spec := messaging.RoomSpec{
				Name:        params.Name,
				AliasName:   params.Alias,
				Topic:       params.Topic,
				Preset:      params.Preset,
				Invite:      params.Invite,
				Admins:      params.Admins,
				Moderators:  params.Moderators,
				GuestAccess: params.GuestAccess,
			}
			if params.PowerLevelsFile != "" {
				override, err := cli.ReadJSONObject(params.PowerLevelsFile)
				if err != nil {
					return err
				}
				spec.PowerLevelOverride = override
			}

			params.Stdout = stdout
			connection, err := params.Connect()
			if err != nil {
				return err
			}
			defer connection.Close()

			created, err := connection.Session.CreateRoom(ctx, spec)
			if err != nil {
				return cli.Categorize(err)
			}
			return connection.Emit(&params.JSONOutput, created, func(w io.Writer) error {
				writer := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintf(writer, "Room ID:\t%s\n", created.RoomID)
				if created.RoomAlias != "" {
					fmt.Fprintf(writer, "Alias:\t%s\n", created.RoomAlias)
				}
				fmt.Fprintf(writer, "Invited:\t%d\n", len(created.Invited))
				return writer.Flush()
			})
		},
	}
}

func concat(lists ...[]string) []string {
	var all []string
	for _, list := range lists {
		all = append(all, list...)
	}
	return all
}

func joinCommand(stdout io.Writer) *cli.Command {
	var params roomParams

	return &cli.Command{
		Name:    "join",
		Summary: "Join the admin account to a room",
		Usage:   "synapse-admin room join <room> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("join", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			connection, identifier, err := connectWithRoom(&params.SessionConfig, stdout, args)
			if err != nil {
				return err
			}
			defer connection.Close()

			roomID, err := connection.Session.JoinRoom(ctx, identifier)
			if err != nil {
				return cli.Categorize(err)
			}
			return connection.Emit(&params.JSONOutput, resolvedRoom{Identifier: identifier, RoomID: roomID}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "joined %s\n", roomID)
				return err
			})
		},
	}
}

type deleteParams struct {
	cli.SessionConfig
	cli.JSONOutput
	Purge         bool   `flag:"purge" desc:"remove the room's history from the database" default:"true"`
	Block         bool   `flag:"block" desc:"prevent the room from being joined again"`
	NewRoomUserID string `flag:"new-room-user" desc:"create a replacement room owned by this user and move local members there"`
	Message       string `flag:"message" desc:"message posted in the replacement room"`
}

// deleteResult reports a started deletion.
type deleteResult struct {
	Identifier string `json:"room"`
	DeleteID   string `json:"delete_id"`
}

func deleteCommand(stdout io.Writer) *cli.Command {
	var params deleteParams

	return &cli.Command{
		Name:    "delete",
		Summary: "Delete a room",
		Description: `Start deleting a room. Synapse deletes rooms in the background; the
printed delete ID identifies the job in the server's delete status API.
Local members are removed and, with --new-room-user, moved to a
replacement room.`,
		Usage: "synapse-admin room delete <room> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("delete", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if params.NewRoomUserID != "" {
				if _, err := cli.ParseUserID(params.NewRoomUserID); err != nil {
					return err
				}
			}
			connection, identifier, err := connectWithRoom(&params.SessionConfig, stdout, args)
			if err != nil {
				return err
			}
			defer connection.Close()

			deleteID, err := connection.Session.DeleteRoom(ctx, identifier, messaging.DeleteRoomOptions{
				Purge:         params.Purge,
				Block:         params.Block,
				NewRoomUserID: params.NewRoomUserID,
				Message:       params.Message,
			})
			if err != nil {
				return cli.Categorize(err)
			}
			return connection.Emit(&params.JSONOutput, deleteResult{Identifier: identifier, DeleteID: deleteID}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "deleting %s (delete ID %s)\n", identifier, deleteID)
				return err
			})
		},
	}
}

// resolvedRoom pairs a room argument with the room ID it names.
type resolvedRoom struct {
	Identifier string     `json:"identifier"`
	RoomID     ref.RoomID `json:"room_id"`
}

func resolveCommand(stdout io.Writer) *cli.Command {
	var params roomParams

	return &cli.Command{
		Name:    "resolve",
		Summary: "Print the room ID an alias points to",
		Usage:   "synapse-admin room resolve <room> [flags]",
		Examples: []cli.Example{
			{
				Description: "Resolve an alias on the homeserver's own domain",
				Command:     "synapse-admin room resolve ops",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("resolve", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			connection, identifier, err := connectWithRoom(&params.SessionConfig, stdout, args)
			if err != nil {
				return err
			}
			defer connection.Close()

			roomID, err := connection.Session.ResolveRoom(ctx, identifier)
			if err != nil {
				return cli.Categorize(err)
			}
			return connection.Emit(&params.JSONOutput, resolvedRoom{Identifier: identifier, RoomID: roomID}, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, roomID)
				return err
			})
		},
	}
}
