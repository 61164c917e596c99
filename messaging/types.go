// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/bureau-foundation/synapse-admin/lib/ref"
)

// AuthResponse is the response from POST /_matrix/client/v3/login.
type AuthResponse struct {
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token"`
	DeviceID    string `json:"device_id"`
}

// WhoAmIResponse is the response from GET /_matrix/client/v3/account/whoami.
type WhoAmIResponse struct {
	UserID   string `json:"user_id"`
	DeviceID string `json:"device_id,omitempty"`
}

// Flag is a boolean that also accepts the 0/1 integers older Synapse
// admin endpoints return. It always encodes as a JSON boolean.
type Flag bool

// UnmarshalJSON accepts true, false, null, 0 and 1.
func (f *Flag) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "true", "1":
		*f = true
	case "false", "0", "null":
		*f = false
	default:
		return fmt.Errorf("messaging: invalid flag value %s", data)
	}
	return nil
}

// User is an account as returned by GET /_synapse/admin/v2/users/{userId}.
type User struct {
	Name         string  `json:"name"`
	DisplayName  string  `json:"displayname,omitempty"`
	AvatarURL    string  `json:"avatar_url,omitempty"`
	Admin        Flag    `json:"admin"`
	Deactivated  Flag    `json:"deactivated"`
	Locked       Flag    `json:"locked,omitempty"`
	ShadowBanned Flag    `json:"shadow_banned,omitempty"`
	UserType     *string `json:"user_type"`
	CreationTS   int64   `json:"creation_ts,omitempty"`
}

// NormalUser reports whether the account has no user type (neither a
// bot nor a support account).
func (u User) NormalUser() bool { return u.UserType == nil }

// UserList is the response from GET /_synapse/admin/v2/users.
type UserList struct {
	Users     []User `json:"users"`
	Total     int    `json:"total"`
	NextToken string `json:"next_token,omitempty"`
}

// Room is the admin view of a room (GET /_synapse/admin/v1/rooms/{roomId}).
type Room struct {
	RoomID             string  `json:"room_id"`
	Name               string  `json:"name,omitempty"`
	Topic              string  `json:"topic,omitempty"`
	CanonicalAlias     string  `json:"canonical_alias,omitempty"`
	JoinedMembers      int     `json:"joined_members"`
	JoinedLocalMembers int     `json:"joined_local_members"`
	Version            string  `json:"version,omitempty"`
	Creator            string  `json:"creator,omitempty"`
	Encryption         *string `json:"encryption,omitempty"`
	Federatable        Flag    `json:"federatable"`
	Public             Flag    `json:"public"`
	JoinRules          string  `json:"join_rules,omitempty"`
	GuestAccess        string  `json:"guest_access,omitempty"`
	HistoryVisibility  string  `json:"history_visibility,omitempty"`
	StateEvents        int     `json:"state_events"`
	RoomType           *string `json:"room_type,omitempty"`
}

// RoomList is the response from GET /_synapse/admin/v1/rooms.
type RoomList struct {
	Rooms      []Room `json:"rooms"`
	Offset     int    `json:"offset"`
	TotalRooms int    `json:"total_rooms"`
}

// RoomMembers is the response from GET /_synapse/admin/v1/rooms/{roomId}/members.
type RoomMembers struct {
	Members []string `json:"members"`
	Total   int      `json:"total"`
}

// StateEvent is one entry of GET /_matrix/client/v3/rooms/{roomId}/state.
type StateEvent struct {
	Type           string          `json:"type"`
	StateKey       string          `json:"state_key"`
	Sender         string          `json:"sender,omitempty"`
	EventID        string          `json:"event_id,omitempty"`
	OriginServerTS int64           `json:"origin_server_ts,omitempty"`
	Content        json.RawMessage `json:"content"`
}

// ServerVersion is the response from GET /_synapse/admin/v1/server_version.
type ServerVersion struct {
	ServerVersion string `json:"server_version"`
	PythonVersion string `json:"python_version,omitempty"`
}

// RateLimitOverride is a per-user message rate override. Both fields
// zero disables rate limiting for the user.
type RateLimitOverride struct {
	MessagesPerSecond int `json:"messages_per_second"`
	BurstCount        int `json:"burst_count"`
}

// RegistrationToken is a token that gates account registration.
type RegistrationToken struct {
	Token       string `json:"token"`
	UsesAllowed *int   `json:"uses_allowed"`
	Pending     int    `json:"pending"`
	Completed   int    `json:"completed"`
	ExpiryTime  *int64 `json:"expiry_time"`
}

// SentEvent describes an event the homeserver accepted.
type SentEvent struct {
	EventID       string        `json:"event_id"`
	RoomID        ref.RoomID    `json:"room_id"`
	TransactionID string        `json:"transaction_id"`
	EventType     ref.EventType `json:"event_type"`
}

// sendEventResponse is the response from PUT .../send/{eventType}/{txnId}.
type sendEventResponse struct {
	EventID string `json:"event_id"`
}

// resolveAliasResponse is the response from GET
// /_matrix/client/v3/directory/room/{roomAlias}.
type resolveAliasResponse struct {
	RoomID  string   `json:"room_id"`
	Servers []string `json:"servers,omitempty"`
}
