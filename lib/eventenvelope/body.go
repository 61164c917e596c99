// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eventenvelope

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Formatter renders the human-readable body for one schema.
type Formatter func(data Data) string

var formatters = map[string]Formatter{
	"verify.fail.v1":     formatVerifyFail,
	"verify.pass.v1":     formatVerifyPass,
	"deploy.start.v1":    formatDeployStart,
	"deploy.complete.v1": formatDeployComplete,
}

// FormatBody returns the body line for schema and data.
func FormatBody(schema string, data Data) string {
	if formatter, ok := formatters[schema]; ok {
		return formatter(data)
	}
	return "📋 SOLTI Event: " + schema
}

// KnownSchema reports whether schema has a dedicated formatter.
func KnownSchema(schema string) bool {
	_, ok := formatters[schema]
	return ok
}

func formatVerifyFail(data Data) string {
	return fmt.Sprintf("❌ Verification FAILED: %s/%s services on %s",
		text(lookup(data, "summary.failed_services"), "0"),
		text(lookup(data, "summary.total_services"), "0"),
		text(lookup(data, "distribution"), "unknown"))
}

func formatVerifyPass(data Data) string {
	return fmt.Sprintf("✅ Verification PASSED: %s/%s services on %s",
		text(lookup(data, "summary.passed_services"), "0"),
		text(lookup(data, "summary.total_services"), "0"),
		text(lookup(data, "distribution"), "unknown"))
}

func formatDeployStart(data Data) string {
	return fmt.Sprintf("🚀 Deployment STARTED: %s on %s",
		text(lookup(data, "service"), "unknown"),
		text(lookup(data, "host"), "unknown"))
}

func formatDeployComplete(data Data) string {
	service := text(lookup(data, "service"), "unknown")
	host := text(lookup(data, "host"), "unknown")
	status := text(lookup(data, "status"), "unknown")

	switch status {
	case "success":
		duration, _ := number(lookup(data, "duration"))
		return fmt.Sprintf("✅ Deployment COMPLETED: %s on %s (duration: %.1fs)", service, host, duration)
	case "failed":
		return fmt.Sprintf("❌ Deployment FAILED: %s on %s", service, host)
	default:
		return fmt.Sprintf("📋 Deployment %s: %s on %s", strings.ToUpper(status), service, host)
	}
}

// lookup follows a dotted path through nested maps. Returns nil when
// any segment is missing or an intermediate value is not a map.
func lookup(data Data, path string) any {
	var current any = data
	for _, segment := range strings.Split(path, ".") {
		object, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = object[segment]
		if !ok {
			return nil
		}
	}
	return current
}

// text renders a JSON-shaped value for a body line. Integral numbers
// print without a fractional part, whichever numeric type carried them.
func text(value any, fallback string) string {
	if value == nil {
		return fallback
	}
	if n, ok := number(value); ok {
		if n == math.Trunc(n) && math.Abs(n) < 1e15 {
			return strconv.FormatInt(int64(n), 10)
		}
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return fmt.Sprint(value)
}

func number(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}
