// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import "fmt"

// EventType identifies a Matrix timeline or state event type
// ("m.room.message", "com.solti.verify.fail"). Event types are opaque,
// so this is a named string rather than a validated struct.
type EventType string

// Standard event types used by the admin client.
const (
	EventTypeRoomMessage    EventType = "m.room.message"
	EventTypeGuestAccess    EventType = "m.room.guest_access"
	EventTypePowerLevels    EventType = "m.room.power_levels"
	EventTypeRoomTopic      EventType = "m.room.topic"
	EventTypeRoomName       EventType = "m.room.name"
	EventTypeCanonicalAlias EventType = "m.room.canonical_alias"
)

// String returns the event type string.
func (t EventType) String() string { return string(t) }

// ParseEventType checks a user-supplied event type: non-empty, at most
// 255 bytes, without whitespace or control characters.
func ParseEventType(raw string) (EventType, error) {
	if raw == "" {
		return "", fmt.Errorf("event type is empty")
	}
	if len(raw) > 255 {
		return "", fmt.Errorf("event type %q is longer than 255 bytes", raw)
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] <= ' ' || raw[i] == 0x7f {
			return "", fmt.Errorf("event type %q: invalid character at position %d", raw, i)
		}
	}
	return EventType(raw), nil
}
