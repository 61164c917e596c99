// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/bureau-foundation/synapse-admin/cmd/synapse-admin/cli"
)

// TestCommandTree walks the production tree and checks that every
// command can be found from help: a summary on every non-root node,
// unique names among siblings, and flags that build without error.
func TestCommandTree(t *testing.T) {
	root := Root(&bytes.Buffer{})
	walkCommands(root, nil, func(command *cli.Command, path []string) {
		name := strings.Join(path, " ")
		if len(path) > 1 && command.Summary == "" {
			t.Errorf("%s: missing Summary", name)
		}
		if command.Run == nil && len(command.Subcommands) == 0 {
			t.Errorf("%s: neither Run nor Subcommands", name)
		}
		seen := map[string]bool{}
		for _, sub := range command.Subcommands {
			if seen[sub.Name] {
				t.Errorf("%s: duplicate subcommand %q", name, sub.Name)
			}
			seen[sub.Name] = true
		}
		if command.Flags != nil {
			flags := command.Flags()
			if command.Run != nil && flags.Lookup("homeserver") != nil && flags.Lookup("json") == nil {
				t.Errorf("%s: connects to a homeserver but has no --json", name)
			}
		}
	})
}

// walkCommands recursively visits every command in the tree,
// calling visit for each node with the accumulated command path.
func walkCommands(command *cli.Command, path []string, visit func(*cli.Command, []string)) {
	current := make([]string, len(path)+1)
	copy(current, path)
	current[len(path)] = command.Name
	visit(command, current)
	for _, sub := range command.Subcommands {
		walkCommands(sub, current, visit)
	}
}

func TestVersionCommand(t *testing.T) {
	var stdout bytes.Buffer
	if err := Root(&stdout).Execute(context.Background(), []string{"version"}); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "synapse-admin ") {
		t.Errorf("output = %q", stdout.String())
	}
}
