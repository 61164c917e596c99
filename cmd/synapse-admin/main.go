// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// synapse-admin administers a Synapse homeserver through its Admin API
// and the Matrix Client-Server API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/synapse-admin/cmd/synapse-admin/cli"
	"github.com/bureau-foundation/synapse-admin/cmd/synapse-admin/commands"
)

func main() {
	if err := run(); err != nil {
		// Commands that already reported the outcome (a missing user, a
		// partially failed revocation) return an ExitError carrying only
		// the status.
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		var toolErr *cli.ToolError
		if errors.As(err, &toolErr) {
			os.Exit(toolErr.ExitCode())
		}
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return commands.Root(os.Stdout).Execute(ctx, os.Args[1:])
}
