// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package devicefilter selects devices from an admin device listing by
// user agent, display name and last-seen age. It does no I/O.
//
// All supplied criteria must hold for a device to match. Matches keep
// their input order.
//
// A minimum age of zero is special: it matches exactly the devices that
// have never been seen (no last_seen_ts), and never a device with a
// timestamp. Any positive N matches timestamped devices whose age is at
// least N days; never-seen devices do not match a positive N.
package devicefilter

import (
	"strings"
	"time"

	"github.com/bureau-foundation/synapse-admin/lib/ref"
)

// millisecondsPerDay converts last-seen ages to days.
const millisecondsPerDay = 24 * 60 * 60 * 1000

// Device is one entry of the admin device listing
// (GET /_synapse/admin/v2/users/{user}/devices).
type Device struct {
	DeviceID          ref.DeviceID `json:"device_id"`
	UserID            string       `json:"user_id,omitempty"`
	DisplayName       string       `json:"display_name,omitempty"`
	LastSeenTS        *int64       `json:"last_seen_ts"`
	LastSeenIP        string       `json:"last_seen_ip,omitempty"`
	LastSeenUserAgent string       `json:"last_seen_user_agent,omitempty"`
}

// NeverSeen reports whether the server has no last-seen timestamp for
// the device.
func (d Device) NeverSeen() bool { return d.LastSeenTS == nil }

// AgeDays returns the time since the device was last seen, in fractional
// days. The second result is false for never-seen devices.
func (d Device) AgeDays(now time.Time) (float64, bool) {
	if d.LastSeenTS == nil {
		return 0, false
	}
	return float64(now.UnixMilli()-*d.LastSeenTS) / millisecondsPerDay, true
}

// Criteria selects devices. Empty strings and a nil MinimumAgeDays mean
// "no constraint".
type Criteria struct {
	// UserAgent is a case-insensitive substring of last_seen_user_agent.
	UserAgent string

	// DisplayName is a case-insensitive substring of display_name.
	DisplayName string

	// MinimumAgeDays selects by last-seen age. Zero selects only
	// never-seen devices.
	MinimumAgeDays *int
}

// IsEmpty reports whether the criteria match every device.
func (c Criteria) IsEmpty() bool {
	return c.UserAgent == "" && c.DisplayName == "" && c.MinimumAgeDays == nil
}

// Filter returns the devices matching criteria, in input order. now is
// read once so that every device is aged against the same instant.
func Filter(devices []Device, criteria Criteria, now time.Time) []Device {
	userAgent := strings.ToLower(criteria.UserAgent)
	displayName := strings.ToLower(criteria.DisplayName)

	matched := make([]Device, 0, len(devices))
	for _, device := range devices {
		if userAgent != "" && !strings.Contains(strings.ToLower(device.LastSeenUserAgent), userAgent) {
			continue
		}
		if displayName != "" && !strings.Contains(strings.ToLower(device.DisplayName), displayName) {
			continue
		}
		if criteria.MinimumAgeDays != nil && !matchesAge(device, *criteria.MinimumAgeDays, now) {
			continue
		}
		matched = append(matched, device)
	}
	return matched
}

func matchesAge(device Device, minimumDays int, now time.Time) bool {
	age, seen := device.AgeDays(now)
	if !seen {
		return minimumDays == 0
	}
	if minimumDays == 0 {
		return false
	}
	return age >= float64(minimumDays)
}

// IDs returns the device IDs of devices, in order.
func IDs(devices []Device) []ref.DeviceID {
	ids := make([]ref.DeviceID, len(devices))
	for i, device := range devices {
		ids[i] = device.DeviceID
	}
	return ids
}
