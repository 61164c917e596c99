// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"io"
	"reflect"
)

// JSONOutput is an embeddable struct that adds the --json flag to a
// command's parameter struct. Commands that hold a [Connection] pass it
// to [Connection.Emit]; offline commands check OutputJSON and call
// [WriteJSON] themselves.
//
//	type listParams struct {
//	    cli.SessionConfig
//	    cli.JSONOutput
//	    Limit int `flag:"limit" desc:"maximum number of rooms"`
//	}
//
//	// In Run:
//	return connection.Emit(&params.JSONOutput, rooms, func(w io.Writer) error {
//	    // ... text formatting ...
//	})
type JSONOutput struct {
	OutputJSON bool `json:"-" flag:"json" desc:"output as JSON"`
}

// WriteJSON marshals value as indented JSON to w. Nil slices are
// written as [], so scripts never see null where they expect a list.
func WriteJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(normalizeNilSlice(value))
}

// normalizeNilSlice returns an empty slice of the same type if value
// is a nil slice. Returns value unchanged for all other types.
func normalizeNilSlice(value any) any {
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Slice && v.IsNil() {
		return reflect.MakeSlice(v.Type(), 0, 0).Interface()
	}
	return value
}
