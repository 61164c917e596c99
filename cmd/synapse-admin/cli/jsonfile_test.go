// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadJSONFile_AcceptsComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.jsonc")
	document := `{
  // posted by the deploy job
  "msgtype": "m.notice",
  "body": "deploy finished", /* trailing comma follows */
}`
	if err := os.WriteFile(path, []byte(document), 0o600); err != nil {
		t.Fatal(err)
	}

	var content map[string]string
	if err := ReadJSONFile(path, &content); err != nil {
		t.Fatalf("ReadJSONFile: %v", err)
	}
	if content["msgtype"] != "m.notice" || content["body"] != "deploy finished" {
		t.Errorf("content = %v", content)
	}
}

func TestReadJSONFile_Errors(t *testing.T) {
	directory := t.TempDir()
	broken := filepath.Join(directory, "broken.json")
	if err := os.WriteFile(broken, []byte(`{"body": `), 0o600); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{filepath.Join(directory, "missing.json"), broken} {
		var v map[string]any
		err := ReadJSONFile(path, &v)
		var toolErr *ToolError
		if !errors.As(err, &toolErr) || toolErr.Category != CategoryValidation {
			t.Errorf("ReadJSONFile(%s) error = %v, want a validation error", path, err)
		}
	}
}

func TestReadJSONObject_RejectsNonObject(t *testing.T) {
	directory := t.TempDir()
	for name, document := range map[string]string{
		"null.json":  "null",
		"array.json": `["a"]`,
	} {
		path := filepath.Join(directory, name)
		if err := os.WriteFile(path, []byte(document), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := ReadJSONObject(path); err == nil {
			t.Errorf("ReadJSONObject(%s) should fail", name)
		}
	}
}

func TestDecodeJSONC_NamesSource(t *testing.T) {
	var v map[string]any
	err := DecodeJSONC("--content", []byte("{bad"), &v)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.HasPrefix(err.Error(), "parsing --content") {
		t.Errorf("error = %q, want it to name --content", err)
	}
}
