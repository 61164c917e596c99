// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the YAML configuration for synapse-admin.
//
// The file comes from exactly one place: the --config flag (via
// [LoadFile]) or the SYNAPSE_ADMIN_CONFIG environment variable (via
// [Load]). There is no discovery of ~/.config or the working directory.
//
// A file may carry development, staging and production sections that
// override base values when [Config].Environment matches. Production
// always validates TLS certificates unless its own section says
// otherwise.
//
// ${HOME}, ${TMPDIR} and ${VAR:-default} patterns are expanded in path
// fields after loading. Command-line flags override the loaded values;
// that merge happens in the command layer, not here.
package config
