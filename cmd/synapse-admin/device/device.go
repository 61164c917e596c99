// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package device implements the "device" commands: listing a user's
// devices and revoking them, either by ID or by filter criteria.
package device

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/time/rate"

	"github.com/bureau-foundation/synapse-admin/cmd/synapse-admin/cli"
	"github.com/bureau-foundation/synapse-admin/lib/clock"
	"github.com/bureau-foundation/synapse-admin/lib/devicefilter"
	"github.com/bureau-foundation/synapse-admin/messaging"
)

// Command returns the "device" command group.
func Command(stdout io.Writer) *cli.Command {
	return command(stdout, clock.Real())
}

func command(stdout io.Writer, clk clock.Clock) *cli.Command {
	return &cli.Command{
		Name:    "device",
		Summary: "List and revoke user devices",
		Subcommands: []*cli.Command{
			listCommand(stdout, clk),
			pruneCommand(stdout, clk),
			revokeCommand(stdout, clk),
		},
	}
}

type listParams struct {
	cli.SessionConfig
	cli.JSONOutput
}

func listCommand(stdout io.Writer, clk clock.Clock) *cli.Command {
	var params listParams

	return &cli.Command{
		Name:    "list",
		Summary: "List a user's devices",
		Description: `List every device of a user with its last-seen details. A user the
server does not know has no devices.`,
		Usage: "synapse-admin device list <user-id> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("list", &params)
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
			params.Clock = clk
			connection, err := params.Connect()
			if err != nil {
				return err
			}
			defer connection.Close()

			devices, err := connection.Session.ListDevices(ctx, userID)
			if err != nil {
				return cli.Categorize(err)
			}
			now := connection.Clock.Now()
			return connection.Emit(&params.JSONOutput, devices, func(w io.Writer) error {
				return writeDevices(w, devices, now)
			})
		},
	}
}

func writeDevices(w io.Writer, devices []devicefilter.Device, now time.Time) error {
	writer := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(writer, "DEVICE\tDISPLAY NAME\tLAST SEEN\tIP\tUSER AGENT")
	for _, device := range devices {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
			device.DeviceID, device.DisplayName, lastSeen(device, now), device.LastSeenIP, device.LastSeenUserAgent)
	}
	return writer.Flush()
}

func lastSeen(device devicefilter.Device, now time.Time) string {
	age, seen := device.AgeDays(now)
	if !seen {
		return "never"
	}
	return fmt.Sprintf("%.1f days ago", age)
}

type pruneParams struct {
	cli.SessionConfig
	cli.JSONOutput
	UserAgent      string `flag:"user-agent" desc:"match devices whose last user agent contains this (case-insensitive)"`
	DisplayName    string `flag:"display-name" desc:"match devices whose display name contains this (case-insensitive)"`
	MinimumAgeDays int    `flag:"min-age-days" desc:"match devices last seen at least this many days ago; 0 matches never-seen devices only" default:"-1"`
	All            bool   `flag:"all" desc:"allow pruning without any criteria, revoking every device"`
	DryRun         bool   `flag:"dry-run" desc:"list the matching devices without revoking them"`
}

// pruneResult reports the devices a prune selected and what happened
// to them. Revocation is nil on a dry run.
type pruneResult struct {
	UserID     string                  `json:"user_id"`
	Matched    []devicefilter.Device   `json:"matched"`
	Revocation *messaging.RevokeReport `json:"revocation,omitempty"`
}

func pruneCommand(stdout io.Writer, clk clock.Clock) *cli.Command {
	var params pruneParams

	return &cli.Command{
		Name:    "prune",
		Summary: "Revoke a user's devices that match filter criteria",
		Description: `Select a user's devices by user agent, display name and last-seen age,
then revoke them. A device must meet every given criterion.

--min-age-days 0 is special: it selects exactly the devices the server
has never seen in use. A positive value selects devices last seen at
least that many days ago and never matches a never-seen device.

Deletions are paced by devices.revoke_rate and devices.revoke_burst
from the configuration. A failed deletion is reported and the rest of
the batch continues; the command then exits with status 1.`,
		Usage: "synapse-admin device prune <user-id> [flags]",
		Examples: []cli.Example{
			{
				Description: "Preview stale web sessions",
				Command:     "synapse-admin device prune @alice:example.org --user-agent firefox --min-age-days 90 --dry-run",
			},
			{
				Description: "Remove devices that never connected",
				Command:     "synapse-admin device prune @alice:example.org --min-age-days 0",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("prune", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if err := cli.ExactArgs(args, "user-id"); err != nil {
				return err
			}
			userID, err := cli.ParseUserID(args[0])
			if err != nil {
				return err
			}
			if params.MinimumAgeDays < -1 {
				return cli.Validation("--min-age-days must not be negative")
			}
			criteria := devicefilter.Criteria{
				UserAgent:   params.UserAgent,
				DisplayName: params.DisplayName,
			}
			if params.MinimumAgeDays >= 0 {
				minimum := params.MinimumAgeDays
				criteria.MinimumAgeDays = &minimum
			}
			if criteria.IsEmpty() && !params.All {
				return cli.Validation("no criteria given: pass --user-agent, --display-name or --min-age-days, or --all to revoke every device")
			}

			params.Stdout = stdout
			params.Clock = clk
			connection, err := params.Connect()
			if err != nil {
				return err
			}
			defer connection.Close()

			devices, err := connection.Session.ListDevices(ctx, userID)
			if err != nil {
				return cli.Categorize(err)
			}
			now := connection.Clock.Now()
			result := pruneResult{
				UserID:  userID.String(),
				Matched: devicefilter.Filter(devices, criteria, now),
			}
			connection.Logger.Debug("devices selected",
				"user_id", userID,
				"listed", len(devices),
				"matched", len(result.Matched),
			)

			if !params.DryRun && len(result.Matched) > 0 {
				limiter := rate.NewLimiter(rate.Limit(connection.Config.Devices.RevokeRate), connection.Config.Devices.RevokeBurst)
				report := connection.Session.RevokeDevices(ctx, userID, devicefilter.IDs(result.Matched), limiter)
				result.Revocation = &report
			}

			err = connection.Emit(&params.JSONOutput, result, func(w io.Writer) error {
				if params.DryRun {
					fmt.Fprintf(w, "%d of %d devices would be revoked:\n", len(result.Matched), len(devices))
					return writeDevices(w, result.Matched, now)
				}
				return writeRevocation(w, result.Revocation)
			})
			if err != nil {
				return err
			}
			return revocationError(result.Revocation)
		},
	}
}

type revokeParams struct {
	cli.SessionConfig
	cli.JSONOutput
}

func revokeCommand(stdout io.Writer, clk clock.Clock) *cli.Command {
	var params revokeParams

	return &cli.Command{
		Name:    "revoke",
		Summary: "Revoke specific devices of a user",
		Usage:   "synapse-admin device revoke <user-id> <device-id>... [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("revoke", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) < 2 {
				return cli.Validation("usage: synapse-admin device revoke <user-id> <device-id>...")
			}
			userID, err := cli.ParseUserID(args[0])
			if err != nil {
				return err
			}
			deviceIDs, err := cli.ParseDeviceIDs(args[1:])
			if err != nil {
				return err
			}

			params.Stdout = stdout
			params.Clock = clk
			connection, err := params.Connect()
			if err != nil {
				return err
			}
			defer connection.Close()

			limiter := rate.NewLimiter(rate.Limit(connection.Config.Devices.RevokeRate), connection.Config.Devices.RevokeBurst)
			report := connection.Session.RevokeDevices(ctx, userID, deviceIDs, limiter)
			err = connection.Emit(&params.JSONOutput, report, func(w io.Writer) error {
				return writeRevocation(w, &report)
			})
			if err != nil {
				return err
			}
			return revocationError(&report)
		},
	}
}

func writeRevocation(w io.Writer, report *messaging.RevokeReport) error {
	if report == nil {
		_, err := fmt.Fprintln(w, "no devices matched")
		return err
	}
	for _, deviceID := range report.Revoked {
		fmt.Fprintf(w, "revoked %s\n", deviceID)
	}
	for _, failure := range report.Failed {
		fmt.Fprintf(w, "failed  %s: %s\n", failure.DeviceID, failure.Error)
	}
	_, err := fmt.Fprintf(w, "%d revoked, %d failed\n", len(report.Revoked), len(report.Failed))
	return err
}

// revocationError turns a partially failed batch into a nonzero exit
// once the report has been written.
func revocationError(report *messaging.RevokeReport) error {
	if report == nil || len(report.Failed) == 0 {
		return nil
	}
	return &cli.ExitError{Code: cli.CategoryInternal.ExitCode()}
}
