// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package event implements the "event" commands, which post timeline
// events to rooms: raw events, text messages, structured envelopes and
// verification results.
package event

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/synapse-admin/cmd/synapse-admin/cli"
	"github.com/bureau-foundation/synapse-admin/lib/clock"
	"github.com/bureau-foundation/synapse-admin/lib/eventenvelope"
	"github.com/bureau-foundation/synapse-admin/lib/ref"
	"github.com/bureau-foundation/synapse-admin/messaging"
)

// Command returns the "event" command group.
func Command(stdout io.Writer) *cli.Command {
	return command(stdout, clock.Real())
}

func command(stdout io.Writer, clk clock.Clock) *cli.Command {
	return &cli.Command{
		Name:    "event",
		Summary: "Post events to rooms",
		Subcommands: []*cli.Command{
			sendCommand(stdout, clk),
			messageCommand(stdout, clk),
			envelopeCommand(stdout, clk),
			verifyCommand(stdout, clk),
		},
	}
}

// sendTarget validates the leading room argument, opens a connection and
// expands the room for the resolver.
func sendTarget(params *cli.SessionConfig, stdout io.Writer, clk clock.Clock, room string) (*cli.Connection, string, error) {
	params.Stdout = stdout
	params.Clock = clk
	connection, err := params.Connect()
	if err != nil {
		return nil, "", err
	}
	identifier, err := cli.RoomIdentifier(connection.Session, room)
	if err != nil {
		connection.Close()
		return nil, "", err
	}
	return connection, identifier, nil
}

func writeSent(w io.Writer, sent messaging.SentEvent) error {
	_, err := fmt.Fprintf(w, "sent %s to %s (transaction %s)\n", sent.EventID, sent.RoomID, sent.TransactionID)
	return err
}

type sendParams struct {
	cli.SessionConfig
	cli.JSONOutput
	EventType     string `flag:"type" desc:"event type" default:"m.room.message"`
	Content       string `flag:"content" desc:"event content as inline JSON"`
	ContentFile   string `flag:"content-file" desc:"file holding the event content (JSON with comments allowed), or - for stdin"`
	TransactionID string `flag:"txn-id" desc:"transaction ID; reuse one to retry a send without duplicating the event"`
}

func sendCommand(stdout io.Writer, clk clock.Clock) *cli.Command {
	var params sendParams

	return &cli.Command{
		Name:    "send",
		Summary: "Send an event with arbitrary content",
		Description: `Send a timeline event. Content comes from --content or --content-file.
When the content carries a "solti" envelope with a schema and no body,
the body line is generated from the schema.

Without --txn-id a transaction ID is generated; it is printed so that a
failed send can be retried with the same ID.`,
		Usage: "synapse-admin event send <room> [flags]",
		Examples: []cli.Example{
			{
				Description: "Send a notice",
				Command:     `synapse-admin event send '#ops:example.org' --content '{"msgtype": "m.notice", "body": "maintenance at 18:00"}'`,
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("send", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if err := cli.ExactArgs(args, "room"); err != nil {
				return err
			}
			eventType, err := ref.ParseEventType(params.EventType)
			if err != nil {
				return cli.Validation("--type: %w", err)
			}
			content, err := readContent(params.Content, params.ContentFile)
			if err != nil {
				return err
			}

			connection, identifier, err := sendTarget(&params.SessionConfig, stdout, clk, args[0])
			if err != nil {
				return err
			}
			defer connection.Close()

			if eventenvelope.FillBody(content) {
				connection.Logger.Debug("generated event body", "body", content["body"])
			}
			sent, err := connection.Session.SendEvent(ctx, identifier, eventType, content, params.TransactionID)
			if err != nil {
				return cli.Categorize(err)
			}
			return connection.Emit(&params.JSONOutput, sent, func(w io.Writer) error {
				return writeSent(w, sent)
			})
		},
	}
}

// readContent decodes event content from exactly one of an inline value
// or a file.
func readContent(inline, path string) (map[string]any, error) {
	switch {
	case inline != "" && path != "":
		return nil, cli.Validation("--content and --content-file are mutually exclusive")
	case inline != "":
		var content map[string]any
		if err := cli.DecodeJSONC("--content", []byte(inline), &content); err != nil {
			return nil, err
		}
		if content == nil {
			return nil, cli.Validation("--content must be a JSON object")
		}
		return content, nil
	case path != "":
		return cli.ReadJSONObject(path)
	default:
		return nil, cli.Validation("event content is required: pass --content or --content-file")
	}
}

type messageParams struct {
	cli.SessionConfig
	cli.JSONOutput
	MessageType string `flag:"msgtype" desc:"message type, e.g. m.text or m.notice" default:"m.text"`
	HTML        string `flag:"html" desc:"HTML rendering of the message, sent alongside the plain body"`
}

func messageCommand(stdout io.Writer, clk clock.Clock) *cli.Command {
	var params messageParams

	return &cli.Command{
		Name:    "message",
		Summary: "Send a text message",
		Usage:   "synapse-admin event message <room> <body> [flags]",
		Examples: []cli.Example{
			{
				Description: "Announce a deploy with formatting",
				Command:     `synapse-admin event message ops "deploy finished" --html "<b>deploy finished</b>"`,
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("message", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if err := cli.ExactArgs(args, "room", "body"); err != nil {
				return err
			}
			if strings.TrimSpace(args[1]) == "" {
				return cli.Validation("message body is empty")
			}
			connection, identifier, err := sendTarget(&params.SessionConfig, stdout, clk, args[0])
			if err != nil {
				return err
			}
			defer connection.Close()

			sent, err := connection.Session.SendMessage(ctx, identifier, params.MessageType, args[1], params.HTML)
			if err != nil {
				return cli.Categorize(err)
			}
			return connection.Emit(&params.JSONOutput, sent, func(w io.Writer) error {
				return writeSent(w, sent)
			})
		},
	}
}

type envelopeParams struct {
	cli.SessionConfig
	cli.JSONOutput
	Schema   string `flag:"schema" desc:"envelope schema, e.g. deploy.start.v1"`
	Data     string `flag:"data" desc:"schema data as inline JSON"`
	DataFile string `flag:"data-file" desc:"file holding the schema data, or - for stdin"`
	Source   string `flag:"source" desc:"source recorded in the envelope (default: events.source from the configuration)"`
}

func envelopeCommand(stdout io.Writer, clk clock.Clock) *cli.Command {
	var params envelopeParams

	return &cli.Command{
		Name:    "envelope",
		Summary: "Send a structured event envelope",
		Description: `Send an m.room.message whose content wraps schema data in a "solti"
envelope with a timestamp and source, plus a human-readable body line.

Known schemas (verify.fail.v1, verify.pass.v1, deploy.start.v1,
deploy.complete.v1) have required fields; missing ones are reported
before anything is sent. Other schemas are sent with a generic body.`,
		Usage: "synapse-admin event envelope <room> --schema <schema> [flags]",
		Examples: []cli.Example{
			{
				Description: "Announce a deployment",
				Command:     `synapse-admin event envelope ops --schema deploy.start.v1 --data '{"service": "api", "host": "web1", "playbook": "site.yml", "operator": "alice"}'`,
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("envelope", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if err := cli.ExactArgs(args, "room"); err != nil {
				return err
			}
			if params.Schema == "" {
				return cli.Validation("--schema is required")
			}
			data, err := readData(params.Data, params.DataFile)
			if err != nil {
				return err
			}
			if missing := eventenvelope.MissingFields(params.Schema, data); len(missing) > 0 {
				return cli.Validation("%s data is missing required fields: %s", params.Schema, strings.Join(missing, ", "))
			}

			connection, identifier, err := sendTarget(&params.SessionConfig, stdout, clk, args[0])
			if err != nil {
				return err
			}
			defer connection.Close()

			if !eventenvelope.KnownSchema(params.Schema) {
				connection.Logger.Warn("schema has no dedicated body format", "schema", params.Schema)
			}
			source := params.Source
			if source == "" {
				source = connection.Config.Events.Source
			}
			sent, err := connection.Session.SendEnvelope(ctx, identifier, params.Schema, data, source)
			if err != nil {
				return cli.Categorize(err)
			}
			return connection.Emit(&params.JSONOutput, sent, func(w io.Writer) error {
				return writeSent(w, sent)
			})
		},
	}
}

// readData decodes envelope data from an inline value or a file. No
// data at all is an empty object.
func readData(inline, path string) (eventenvelope.Data, error) {
	switch {
	case inline != "" && path != "":
		return nil, cli.Validation("--data and --data-file are mutually exclusive")
	case inline != "":
		var data eventenvelope.Data
		if err := cli.DecodeJSONC("--data", []byte(inline), &data); err != nil {
			return nil, err
		}
		if data == nil {
			return nil, cli.Validation("--data must be a JSON object")
		}
		return data, nil
	case path != "":
		return cli.ReadJSONObject(path)
	default:
		return eventenvelope.Data{}, nil
	}
}

type verifyParams struct {
	cli.SessionConfig
	cli.JSONOutput
	Status       string `flag:"status" desc:"PASSED or FAILED"`
	ServicesFile string `flag:"services-file" desc:"JSON file with per-service results, or - for stdin"`
	ContextFile  string `flag:"context-file" desc:"JSON file with extra context such as host or run ID"`
}

func verifyCommand(stdout io.Writer, clk clock.Clock) *cli.Command {
	var params verifyParams

	return &cli.Command{
		Name:    "verify",
		Summary: "Post a service verification result",
		Description: `Post a verification result as a custom event: com.solti.verify.fail
for FAILED, com.solti.verify.pass otherwise. The services file may hold
any JSON value; the context file must hold an object.`,
		Usage: "synapse-admin event verify <room> --status <PASSED|FAILED> --services-file <file> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("verify", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if err := cli.ExactArgs(args, "room"); err != nil {
				return err
			}
			switch params.Status {
			case "PASSED", messaging.VerificationFailed:
			default:
				return cli.Validation("--status must be PASSED or FAILED, got %q", params.Status)
			}
			if params.ServicesFile == "" {
				return cli.Validation("--services-file is required")
			}
			if params.ServicesFile == "-" && params.ContextFile == "-" {
				return cli.Validation("only one of --services-file and --context-file can read stdin")
			}

			verification := messaging.Verification{Status: params.Status}
			if err := cli.ReadJSONFile(params.ServicesFile, &verification.Services); err != nil {
				return err
			}
			if params.ContextFile != "" {
				extra, err := cli.ReadJSONObject(params.ContextFile)
				if err != nil {
					return err
				}
				verification.Context = extra
			}

			connection, identifier, err := sendTarget(&params.SessionConfig, stdout, clk, args[0])
			if err != nil {
				return err
			}
			defer connection.Close()

			sent, err := connection.Session.PostVerification(ctx, identifier, verification)
			if err != nil {
				return cli.Categorize(err)
			}
			return connection.Emit(&params.JSONOutput, sent, func(w io.Writer) error {
				return writeSent(w, sent)
			})
		},
	}
}
