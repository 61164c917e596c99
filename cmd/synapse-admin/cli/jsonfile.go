// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"io"
	"os"

	"github.com/tidwall/jsonc"
)

// ReadJSONFile reads a JSONC document (JSON with // and /* */ comments
// and trailing commas) from path into v. A path of "-" reads stdin.
// Failures are validation errors: the file is user input.
func ReadJSONFile(path string, v any) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return Validation("reading %s: %w", path, err)
	}
	return DecodeJSONC(path, data, v)
}

// DecodeJSONC strips comments and trailing commas from data and
// unmarshals the result into v. name labels errors, so an inline flag
// value can pass "--content".
func DecodeJSONC(name string, data []byte, v any) error {
	if err := json.Unmarshal(jsonc.ToJSON(data), v); err != nil {
		return Validation("parsing %s: %w", name, err)
	}
	return nil
}

// ReadJSONObject reads a JSONC file that must hold an object.
func ReadJSONObject(path string) (map[string]any, error) {
	var object map[string]any
	if err := ReadJSONFile(path, &object); err != nil {
		return nil, err
	}
	if object == nil {
		return nil, Validation("%s must contain a JSON object", path)
	}
	return object, nil
}
