// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package room

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/synapse-admin/cmd/synapse-admin/cli"
	"github.com/bureau-foundation/synapse-admin/lib/ref"
	"github.com/bureau-foundation/synapse-admin/messaging"
)

type stateParams struct {
	cli.SessionConfig
	cli.JSONOutput
	EventType string `flag:"type" desc:"print only the content of this state event type"`
	StateKey  string `flag:"state-key" desc:"state key of the event selected by --type"`
}

func stateCommand(stdout io.Writer) *cli.Command {
	var params stateParams

	return &cli.Command{
		Name:    "state",
		Summary: "Show a room's current state",
		Description: `Without --type, list every current state event of the room. With
--type (and optionally --state-key), print that one event's content.
The admin account must be able to see the room's state.`,
		Usage: "synapse-admin room state <room> [flags]",
		Examples: []cli.Example{
			{
				Description: "Show who holds power in a room",
				Command:     "synapse-admin room state '#ops:example.org' --type m.room.power_levels",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("state", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if params.StateKey != "" && params.EventType == "" {
				return cli.Validation("--state-key needs --type")
			}
			connection, identifier, err := connectWithRoom(&params.SessionConfig, stdout, args)
			if err != nil {
				return err
			}
			defer connection.Close()

			if params.EventType != "" {
				roomID, err := connection.Session.ResolveRoom(ctx, identifier)
				if err != nil {
					return cli.Categorize(err)
				}
				content, err := connection.Session.StateEventContent(ctx, roomID, ref.EventType(params.EventType), params.StateKey)
				if err != nil {
					return cli.Categorize(err)
				}
				return connection.Emit(&params.JSONOutput, content, func(w io.Writer) error {
					return cli.WriteJSON(w, content)
				})
			}

			events, err := connection.Session.RoomState(ctx, identifier)
			if err != nil {
				return cli.Categorize(err)
			}
			return connection.Emit(&params.JSONOutput, events, func(w io.Writer) error {
				writer := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(writer, "TYPE\tSTATE KEY\tSENDER\tCONTENT")
				for _, event := range events {
					fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n", event.Type, event.StateKey, event.Sender, compact(event.Content))
				}
				return writer.Flush()
			})
		},
	}
}

// compact renders event content on one line, truncated for the table.
func compact(content json.RawMessage) string {
	const maximum = 60
	text := string(content)
	if len(text) > maximum {
		return text[:maximum-3] + "..."
	}
	return text
}

// powerEntry is one user's power level.
type powerEntry struct {
	UserID string `json:"user_id"`
	Level  int    `json:"level"`
}

func powerCommand(stdout io.Writer) *cli.Command {
	var params roomParams

	return &cli.Command{
		Name:    "power",
		Summary: "List users with an explicit power level",
		Usage:   "synapse-admin room power <room> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("power", &params)
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
			levels, err := messaging.GetState[messaging.PowerLevels](ctx, connection.Session, roomID, ref.EventTypePowerLevels, "")
			if err != nil {
				return cli.Categorize(err)
			}

			entries := make([]powerEntry, 0, len(levels.Users))
			for userID, level := range levels.Users {
				entries = append(entries, powerEntry{UserID: userID, Level: level})
			}
			sort.Slice(entries, func(i, j int) bool {
				if entries[i].Level != entries[j].Level {
					return entries[i].Level > entries[j].Level
				}
				return entries[i].UserID < entries[j].UserID
			})

			return connection.Emit(&params.JSONOutput, entries, func(w io.Writer) error {
				writer := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				for _, entry := range entries {
					fmt.Fprintf(writer, "%d\t%s\n", entry.Level, entry.UserID)
				}
				fmt.Fprintf(writer, "%d\t(everyone else)\n", levels.UsersDefault)
				return writer.Flush()
			})
		},
	}
}
