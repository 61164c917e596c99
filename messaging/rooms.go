// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/bureau-foundation/synapse-admin/lib/ref"
)

// Room operations take a room identifier string: either a room ID or an
// alias, which is resolved first. The admin surface accepts only room IDs.

func roomEndpoint(roomID ref.RoomID) string {
	return "rooms/" + pathSegment(roomID.String())
}

// GetRoom fetches the admin view of a room. The second result is false
// when the server does not know the room.
func (s *Session) GetRoom(ctx context.Context, identifier string) (Room, bool, error) {
	roomID, err := s.ResolveRoom(ctx, identifier)
	if err != nil {
		return Room{}, false, err
	}
	result := s.Get(ctx, s.admin(""), roomEndpoint(roomID), nil)
	if result.NotFound() {
		return Room{}, false, nil
	}
	if err := result.Err(); err != nil {
		return Room{}, false, fmt.Errorf("messaging: getting room %s: %w", roomID, err)
	}
	var room Room
	if err := result.Decode(&room); err != nil {
		return Room{}, false, err
	}
	return room, true, nil
}

// RoomListOptions filters ListRooms.
type RoomListOptions struct {
	// Limit caps the page size. Zero uses the server default.
	Limit int

	// SearchTerm matches room names, aliases and IDs.
	SearchTerm string
}

// ListRooms lists rooms known to the server.
func (s *Session) ListRooms(ctx context.Context, options RoomListOptions) (RoomList, error) {
	query := url.Values{}
	if options.Limit > 0 {
		query.Set("limit", strconv.Itoa(options.Limit))
	}
	if options.SearchTerm != "" {
		query.Set("search_term", options.SearchTerm)
	}

	result := s.Get(ctx, s.admin(""), "rooms", query)
	if err := result.Err(); err != nil {
		return RoomList{}, fmt.Errorf("messaging: listing rooms: %w", err)
	}
	var list RoomList
	if err := result.Decode(&list); err != nil {
		return RoomList{}, err
	}
	if list.TotalRooms == 0 {
		list.TotalRooms = len(list.Rooms)
	}
	return list, nil
}

// RoomMembers lists a room's members. The second result is false when
// the server does not know the room.
func (s *Session) RoomMembers(ctx context.Context, identifier string) (RoomMembers, bool, error) {
	roomID, err := s.ResolveRoom(ctx, identifier)
	if err != nil {
		return RoomMembers{}, false, err
	}
	result := s.Get(ctx, s.admin(""), roomEndpoint(roomID)+"/members", nil)
	if result.NotFound() {
		return RoomMembers{}, false, nil
	}
	if err := result.Err(); err != nil {
		return RoomMembers{}, false, fmt.Errorf("messaging: listing members of %s: %w", roomID, err)
	}
	var members RoomMembers
	if err := result.Decode(&members); err != nil {
		return RoomMembers{}, false, err
	}
	return members, true, nil
}

// DeleteRoomOptions controls DeleteRoom.
type DeleteRoomOptions struct {
	// Purge removes the room's history from the database.
	Purge bool

	// Block prevents anyone from joining the room again.
	Block bool

	// NewRoomUserID, when set, creates a replacement room owned by this
	// user and moves local members into it.
	NewRoomUserID string

	// Message is posted in the replacement room.
	Message string
}

// DeleteRoom starts an asynchronous room deletion and returns the
// server's delete ID for tracking. Completion is not awaited.
func (s *Session) DeleteRoom(ctx context.Context, identifier string, options DeleteRoomOptions) (string, error) {
	roomID, err := s.ResolveRoom(ctx, identifier)
	if err != nil {
		return "", err
	}

	body := map[string]any{
		"purge": options.Purge,
		"block": options.Block,
	}
	if options.NewRoomUserID != "" {
		body["new_room_user_id"] = options.NewRoomUserID
	}
	if options.Message != "" {
		body["message"] = options.Message
	}

	result := s.Delete(ctx, AdminSurface("v2"), roomEndpoint(roomID), body)
	if err := result.Err(); err != nil {
		return "", fmt.Errorf("messaging: deleting room %s: %w", roomID, err)
	}
	return result.Field("delete_id"), nil
}

// Room presets accepted by CreateRoom.
const (
	PresetPrivateChat        = "private_chat"
	PresetPublicChat         = "public_chat"
	PresetTrustedPrivateChat = "trusted_private_chat"
)

// Guest access values for RoomSpec.GuestAccess.
const (
	GuestAccessCanJoin   = "can_join"
	GuestAccessForbidden = "forbidden"
)

// Power levels granted by RoomSpec.Admins and RoomSpec.Moderators.
const (
	PowerLevelAdmin     = 100
	PowerLevelModerator = 50
)

// RoomSpec describes a room to create.
type RoomSpec struct {
	Name string

	// AliasName is the local part of the room's canonical alias.
	AliasName string

	Topic string

	// Preset defaults to PresetPrivateChat. Only PresetPublicChat makes
	// the room visible in the public directory.
	Preset string

	// Invite, Admins and Moderators are all invited. The creator is
	// never invited.
	Invite     []string
	Admins     []string
	Moderators []string

	// PowerLevelOverride replaces the power levels built from Admins and
	// Moderators.
	PowerLevelOverride map[string]any

	// GuestAccess defaults to GuestAccessForbidden.
	GuestAccess string
}

// CreatedRoom is the outcome of CreateRoom.
type CreatedRoom struct {
	RoomID             ref.RoomID `json:"room_id"`
	RoomAlias          string     `json:"room_alias,omitempty"`
	Invited            []string   `json:"invited,omitempty"`
	PowerLevelsApplied bool       `json:"power_levels_applied"`
}

// createRoomRequest is the body of POST /_matrix/client/v3/createRoom.
type createRoomRequest struct {
	Visibility                string         `json:"visibility"`
	Preset                    string         `json:"preset"`
	Name                      string         `json:"name,omitempty"`
	RoomAliasName             string         `json:"room_alias_name,omitempty"`
	Topic                     string         `json:"topic,omitempty"`
	Invite                    []string       `json:"invite,omitempty"`
	PowerLevelContentOverride map[string]any `json:"power_level_content_override,omitempty"`
	InitialState              []initialState `json:"initial_state,omitempty"`
}

type initialState struct {
	Type     ref.EventType `json:"type"`
	StateKey string        `json:"state_key"`
	Content  any           `json:"content"`
}

// CreateRoom creates a room on the client surface as the session's user.
// The creator is found with WhoAmI so it can be left out of the invite
// list; if WhoAmI fails every listed user is invited. Creating a room
// with invites is not atomic: the room may exist even when an error is
// returned.
func (s *Session) CreateRoom(ctx context.Context, spec RoomSpec) (CreatedRoom, error) {
	preset := spec.Preset
	if preset == "" {
		preset = PresetPrivateChat
	}
	visibility := "private"
	if preset == PresetPublicChat {
		visibility = "public"
	}

	request := createRoomRequest{
		Visibility:    visibility,
		Preset:        preset,
		Name:          spec.Name,
		RoomAliasName: spec.AliasName,
		Topic:         spec.Topic,
	}

	creator := ""
	if whoami, err := s.WhoAmI(ctx); err != nil {
		s.client.logger.Warn("could not determine room creator", "error", err)
	} else {
		creator = whoami.UserID
	}
	request.Invite = inviteList(creator, spec.Invite, spec.Admins, spec.Moderators)

	switch {
	case spec.PowerLevelOverride != nil:
		request.PowerLevelContentOverride = spec.PowerLevelOverride
	case len(spec.Admins) > 0 || len(spec.Moderators) > 0:
		users := map[string]int{}
		for _, user := range spec.Admins {
			users[user] = PowerLevelAdmin
		}
		for _, user := range spec.Moderators {
			users[user] = PowerLevelModerator
		}
		request.PowerLevelContentOverride = map[string]any{
			"users":         users,
			"users_default": 0,
		}
	}

	guestAccess := spec.GuestAccess
	if guestAccess == "" {
		guestAccess = GuestAccessForbidden
	}
	request.InitialState = append(request.InitialState, initialState{
		Type:     ref.EventTypeGuestAccess,
		StateKey: "",
		Content:  map[string]string{"guest_access": guestAccess},
	})

	result := s.Post(ctx, ClientSurface(), "createRoom", request)
	if err := result.Err(); err != nil {
		return CreatedRoom{}, fmt.Errorf("messaging: creating room: %w", err)
	}
	var response struct {
		RoomID    string `json:"room_id"`
		RoomAlias string `json:"room_alias"`
	}
	if err := result.Decode(&response); err != nil {
		return CreatedRoom{}, err
	}
	roomID, err := ref.ParseRoomID(response.RoomID)
	if err != nil {
		return CreatedRoom{}, fmt.Errorf("messaging: createRoom returned invalid room ID: %w", err)
	}
	return CreatedRoom{
		RoomID:             roomID,
		RoomAlias:          response.RoomAlias,
		Invited:            request.Invite,
		PowerLevelsApplied: request.PowerLevelContentOverride != nil,
	}, nil
}

// inviteList merges user lists in order, dropping duplicates, empty
// entries and the creator.
func inviteList(creator string, lists ...[]string) []string {
	seen := map[string]bool{"": true}
	if creator != "" {
		seen[creator] = true
	}
	var invites []string
	for _, list := range lists {
		for _, user := range list {
			if seen[user] {
				continue
			}
			seen[user] = true
			invites = append(invites, user)
		}
	}
	return invites
}

// JoinRoom joins the session's user to a room. Invite-only rooms
// require a pending invite.
func (s *Session) JoinRoom(ctx context.Context, identifier string) (ref.RoomID, error) {
	roomID, err := s.ResolveRoom(ctx, identifier)
	if err != nil {
		return ref.RoomID{}, err
	}
	result := s.Post(ctx, ClientSurface(), roomEndpoint(roomID)+"/join", struct{}{})
	if err := result.Err(); err != nil {
		return ref.RoomID{}, fmt.Errorf("messaging: joining room %s: %w", roomID, err)
	}
	return roomID, nil
}

// RoomState fetches every current state event of a room.
func (s *Session) RoomState(ctx context.Context, identifier string) ([]StateEvent, error) {
	roomID, err := s.ResolveRoom(ctx, identifier)
	if err != nil {
		return nil, err
	}
	result := s.Get(ctx, ClientSurface(), roomEndpoint(roomID)+"/state", nil)
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("messaging: getting state of room %s: %w", roomID, err)
	}
	var events []StateEvent
	if err := result.Decode(&events); err != nil {
		return nil, err
	}
	return events, nil
}

// StateEventContent fetches the content of one state event.
func (s *Session) StateEventContent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, stateKey string) (json.RawMessage, error) {
	endpoint := roomEndpoint(roomID) + "/state/" + pathSegment(eventType.String())
	if stateKey != "" {
		endpoint += "/" + pathSegment(stateKey)
	}
	result := s.Get(ctx, ClientSurface(), endpoint, nil)
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("messaging: getting %s[%q] in room %s: %w", eventType, stateKey, roomID, err)
	}
	return result.Body, nil
}

// GetState reads a typed state event from a room:
//
//	levels, err := messaging.GetState[PowerLevels](ctx, session, roomID, ref.EventTypePowerLevels, "")
//
// A missing event is an error matching IsMatrixError(err, ErrCodeNotFound).
func GetState[T any](ctx context.Context, session *Session, roomID ref.RoomID, eventType ref.EventType, stateKey string) (T, error) {
	var zero T
	content, err := session.StateEventContent(ctx, roomID, eventType, stateKey)
	if err != nil {
		return zero, err
	}
	var result T
	if err := json.Unmarshal(content, &result); err != nil {
		return zero, fmt.Errorf("messaging: unmarshaling %s from room %s: %w", eventType, roomID, err)
	}
	return result, nil
}

// PowerLevels is the content of an m.room.power_levels event, limited
// to the user levels.
type PowerLevels struct {
	Users        map[string]int `json:"users"`
	UsersDefault int            `json:"users_default"`
}

// WhoAmI returns the user the session's token belongs to.
func (s *Session) WhoAmI(ctx context.Context) (WhoAmIResponse, error) {
	result := s.Get(ctx, ClientSurface(), "account/whoami", nil)
	if err := result.Err(); err != nil {
		return WhoAmIResponse{}, fmt.Errorf("messaging: whoami: %w", err)
	}
	var response WhoAmIResponse
	if err := result.Decode(&response); err != nil {
		return WhoAmIResponse{}, err
	}
	return response, nil
}
