// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework for synapse-admin.
//
// [Command] is a named node in the command tree with optional
// [Command.Subcommands], a lazily built [pflag.FlagSet] and a Run
// function. [Command.Execute] routes arguments through the tree, parses
// flags, and prints help with examples. Unknown commands and flags get a
// "did you mean" suggestion by edit distance.
//
// Command parameters are plain structs with flag tags, bound by
// [BindFlags]. [SessionConfig] is the shared connection parameter set
// (config file, homeserver, token, admin identity, cache); embedding it
// in a params struct adds the session flags, and [SessionConfig.Connect]
// turns them into a [Connection] wrapping a messaging.Session.
// [Connection.Emit] prints a result either as text or, with --json, as a
// [Report] that also says whether the token was refreshed.
package cli
