// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eventenvelope

import (
	"fmt"
	"strings"
)

var verifyFields = []string{
	"distribution",
	"hostname",
	"summary",
	"summary.total_services",
	"summary.failed_services",
	"summary.passed_services",
	"services",
	"failed_service_names",
}

var deployStartFields = []string{"service", "host", "playbook", "operator"}

// requiredFields lists dotted field paths per schema. Schemas absent
// from the table have no requirements.
var requiredFields = map[string][]string{
	"verify.fail.v1":     verifyFields,
	"verify.pass.v1":     verifyFields,
	"deploy.start.v1":    deployStartFields,
	"deploy.complete.v1": append(append([]string{}, deployStartFields...), "duration", "status"),
}

// MissingFields returns the required field paths absent from data, in
// table order.
func MissingFields(schema string, data Data) []string {
	var missing []string
	for _, path := range requiredFields[schema] {
		if !hasField(data, path) {
			missing = append(missing, path)
		}
	}
	return missing
}

// Validate returns an error naming every missing required field.
func Validate(schema string, data Data) error {
	missing := MissingFields(schema, data)
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("eventenvelope: %s data is missing required fields: %s", schema, strings.Join(missing, ", "))
}

// hasField reports whether a dotted path exists. A present key with a
// null value counts as present.
func hasField(data Data, path string) bool {
	var current any = data
	for _, segment := range strings.Split(path, ".") {
		object, ok := current.(map[string]any)
		if !ok {
			return false
		}
		current, ok = object[segment]
		if !ok {
			return false
		}
	}
	return true
}
