// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package user implements the "user" and "ratelimit" commands for
// managing accounts through the Synapse admin API.
package user

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/synapse-admin/cmd/synapse-admin/cli"
	"github.com/bureau-foundation/synapse-admin/lib/secret"
	"github.com/bureau-foundation/synapse-admin/messaging"
)

// Command returns the "user" command group.
func Command(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "user",
		Summary: "Manage user accounts",
		Description: `Inspect, list, create, update and deactivate accounts.

"ensure" and "remove" are idempotent: they compare the account with the
requested state and only write when something differs, reporting
whether anything changed.`,
		Subcommands: []*cli.Command{
			showCommand(stdout),
			listCommand(stdout),
			ensureCommand(stdout),
			removeCommand(stdout),
		},
	}
}

type showParams struct {
	cli.SessionConfig
	cli.JSONOutput
}

// showResult reports an account lookup. User is nil when the account
// does not exist.
type showResult struct {
	Exists bool            `json:"exists"`
	User   *messaging.User `json:"user,omitempty"`
}

func showCommand(stdout io.Writer) *cli.Command {
	var params showParams

	return &cli.Command{
		Name:    "show",
		Summary: "Show one account",
		Description: `Show an account as the admin API reports it. An account that does not
exist is not an error in the lookup itself: the command reports it and
exits with status 3.`,
		Usage: "synapse-admin user show <user-id> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("show", &params)
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

			user, exists, err := connection.Session.GetUser(ctx, userID)
			if err != nil {
				return cli.Categorize(err)
			}

			result := showResult{Exists: exists}
			if exists {
				result.User = &user
			}
			err = connection.Emit(&params.JSONOutput, result, func(w io.Writer) error {
				if !exists {
					_, err := fmt.Fprintf(w, "%s does not exist\n", userID)
					return err
				}
				return writeUser(w, user)
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

func writeUser(w io.Writer, user messaging.User) error {
	writer := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(writer, "User ID:\t%s\n", user.Name)
	fmt.Fprintf(writer, "Display name:\t%s\n", user.DisplayName)
	fmt.Fprintf(writer, "Admin:\t%t\n", bool(user.Admin))
	fmt.Fprintf(writer, "Deactivated:\t%t\n", bool(user.Deactivated))
	fmt.Fprintf(writer, "Type:\t%s\n", userType(user))
	if user.CreationTS > 0 {
		fmt.Fprintf(writer, "Created:\t%s\n", creationTime(user.CreationTS))
	}
	return writer.Flush()
}

func userType(user messaging.User) string {
	if user.NormalUser() {
		return messaging.UserTypeNormal
	}
	return *user.UserType
}

// creationTime formats creation_ts, which Synapse reports in
// milliseconds on current versions and in seconds on old ones.
func creationTime(timestamp int64) string {
	if timestamp < 1e12 {
		timestamp *= 1000
	}
	return time.UnixMilli(timestamp).UTC().Format(time.RFC3339)
}

type listParams struct {
	cli.SessionConfig
	cli.JSONOutput
	Limit       int              `flag:"limit" desc:"maximum number of accounts to return" default:"100"`
	Name        string           `flag:"name" desc:"only accounts whose ID or display name contains this"`
	Deactivated bool             `flag:"deactivated" desc:"include deactivated accounts"`
	Admins      cli.OptionalBool `flag:"admins" desc:"only admins (--admins) or only non-admins (--admins=false)"`
	UserType    string           `flag:"user-type" desc:"only accounts of this type: normal, bot or support"`
}

func listCommand(stdout io.Writer) *cli.Command {
	var params listParams

	return &cli.Command{
		Name:    "list",
		Summary: "List accounts",
		Usage:   "synapse-admin user list [flags]",
		Examples: []cli.Example{
			{
				Description: "List human accounts that are not admins",
				Command:     "synapse-admin user list --user-type normal --admins=false",
			},
		},
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

			list, err := connection.Session.ListUsers(ctx, messaging.UserListOptions{
				Limit:       params.Limit,
				Name:        params.Name,
				Deactivated: params.Deactivated,
				Admins:      params.Admins.Pointer(),
				UserType:    params.UserType,
			})
			if err != nil {
				return cli.Categorize(err)
			}

			return connection.Emit(&params.JSONOutput, list, func(w io.Writer) error {
				writer := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(writer, "USER ID\tDISPLAY NAME\tADMIN\tDEACTIVATED\tTYPE")
				for _, user := range list.Users {
					fmt.Fprintf(writer, "%s\t%s\t%t\t%t\t%s\n",
						user.Name, user.DisplayName, bool(user.Admin), bool(user.Deactivated), userType(user))
				}
				fmt.Fprintf(writer, "\n%d of %d accounts\n", len(list.Users), list.Total)
				return writer.Flush()
			})
		},
	}
}

type ensureParams struct {
	cli.SessionConfig
	cli.JSONOutput
	UserPasswordFile  string `flag:"user-password-file" desc:"file holding the account's password, or - for stdin"`
	DisplayName       string `flag:"display-name" desc:"display name to set"`
	Admin             bool   `flag:"admin" desc:"make the account a server admin"`
	Deactivated       bool   `flag:"deactivated" desc:"keep the account deactivated"`
	MessagesPerSecond int    `flag:"messages-per-second" desc:"rate limit override to apply (0 disables limiting)" default:"-1"`
	BurstCount        int    `flag:"burst-count" desc:"rate limit burst to apply with --messages-per-second" default:"0"`
}

func ensureCommand(stdout io.Writer) *cli.Command {
	var params ensureParams

	return &cli.Command{
		Name:    "ensure",
		Summary: "Create an account or bring it to the requested state",
		Description: `Create the account if it is missing, or update it when its admin flag,
deactivated flag or (when --display-name is given) display name differ.
An account that already matches is left alone.

A password is only sent when the account is written. With
--messages-per-second a rate limit override is applied afterwards; a
failure there is reported without undoing the account change.`,
		Usage: "synapse-admin user ensure <user-id> [flags]",
		Examples: []cli.Example{
			{
				Description: "Create a bot account exempt from rate limiting",
				Command:     "synapse-admin user ensure @ci-bot:example.org --user-password-file bot.pass --messages-per-second 0",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("ensure", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if err := cli.ExactArgs(args, "user-id"); err != nil {
				return err
			}
			userID, err := cli.ParseUserID(args[0])
			if err != nil {
				return err
			}

			spec := messaging.UserSpec{
				UserID:      userID,
				DisplayName: params.DisplayName,
				Admin:       params.Admin,
				Deactivated: params.Deactivated,
			}
			if params.MessagesPerSecond >= 0 {
				spec.RateLimit = &messaging.RateLimitOverride{
					MessagesPerSecond: params.MessagesPerSecond,
					BurstCount:        params.BurstCount,
				}
			}
			if params.UserPasswordFile != "" {
				if params.UserPasswordFile == "-" && params.PasswordFile == "-" {
					return cli.Validation("--user-password-file and --password-file cannot both read stdin")
				}
				password, err := secret.ReadFromPath(params.UserPasswordFile)
				if err != nil {
					return cli.Validation("account password: %w", err)
				}
				defer password.Close()
				spec.Password = password
			}

			params.Stdout = stdout
			connection, err := params.Connect()
			if err != nil {
				return err
			}
			defer connection.Close()

			outcome, err := connection.Session.EnsureUser(ctx, spec)
			if err != nil {
				return cli.Categorize(err)
			}
			return connection.Emit(&params.JSONOutput, outcome, func(w io.Writer) error {
				return writeOutcome(w, userID.String(), outcome, "created or updated")
			})
		},
	}
}

type removeParams struct {
	cli.SessionConfig
	cli.JSONOutput
	Erase bool `flag:"erase" desc:"also ask the server to forget the account's messages"`
}

func removeCommand(stdout io.Writer) *cli.Command {
	var params removeParams

	return &cli.Command{
		Name:    "remove",
		Summary: "Deactivate an account",
		Description: `Deactivate an account if it exists and is still active. A missing or
already deactivated account is reported as unchanged.`,
		Usage: "synapse-admin user remove <user-id> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("remove", &params)
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

			outcome, err := connection.Session.RemoveUser(ctx, userID, params.Erase)
			if err != nil {
				return cli.Categorize(err)
			}
			return connection.Emit(&params.JSONOutput, outcome, func(w io.Writer) error {
				return writeOutcome(w, userID.String(), outcome, "deactivated")
			})
		},
	}
}

func writeOutcome(w io.Writer, userID string, outcome messaging.UserOutcome, verb string) error {
	status := "unchanged"
	if outcome.Changed {
		status = verb
	}
	if !outcome.Exists {
		status += " (account does not exist)"
	}
	if _, err := fmt.Fprintf(w, "%s: %s\n", userID, status); err != nil {
		return err
	}
	if outcome.RateLimitError != "" {
		_, err := fmt.Fprintf(w, "rate limit override failed: %s\n", outcome.RateLimitError)
		return err
	}
	return nil
}
