// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/synapse-admin/lib/eventenvelope"
	"github.com/bureau-foundation/synapse-admin/lib/ref"
)

// Event types for verification results posted by PostVerification.
const (
	EventTypeVerifyFail ref.EventType = "com.solti.verify.fail"
	EventTypeVerifyPass ref.EventType = "com.solti.verify.pass"
)

// VerificationFailed is the status that selects EventTypeVerifyFail.
const VerificationFailed = "FAILED"

// HTML format marker for formatted message bodies.
const formatHTML = "org.matrix.custom.html"

// SendEvent sends a timeline event to a room. An empty transactionID is
// generated from the resolved room and event type; the ID actually used
// is returned so a caller can retry the send idempotently.
func (s *Session) SendEvent(ctx context.Context, identifier string, eventType ref.EventType, content any, transactionID string) (SentEvent, error) {
	roomID, err := s.ResolveRoom(ctx, identifier)
	if err != nil {
		return SentEvent{}, err
	}
	if transactionID == "" {
		transactionID = s.client.transactions.Generate(roomID.String(), eventType.String())
	}

	endpoint := roomEndpoint(roomID) + "/send/" + pathSegment(eventType.String()) + "/" + pathSegment(transactionID)
	result := s.Put(ctx, ClientSurface(), endpoint, content)
	if err := result.Err(); err != nil {
		return SentEvent{}, fmt.Errorf("messaging: sending %s to %s: %w", eventType, roomID, err)
	}

	var response sendEventResponse
	if err := result.Decode(&response); err != nil {
		return SentEvent{}, err
	}
	return SentEvent{
		EventID:       response.EventID,
		RoomID:        roomID,
		TransactionID: transactionID,
		EventType:     eventType,
	}, nil
}

// SendMessage sends an m.room.message. A non-empty formattedBody is sent
// as HTML alongside the plain body.
func (s *Session) SendMessage(ctx context.Context, identifier, msgtype, body, formattedBody string) (SentEvent, error) {
	if msgtype == "" {
		msgtype = "m.text"
	}
	content := map[string]any{
		"msgtype": msgtype,
		"body":    body,
	}
	if formattedBody != "" {
		content["format"] = formatHTML
		content["formatted_body"] = formattedBody
	}
	return s.SendEvent(ctx, identifier, ref.EventTypeRoomMessage, content, "")
}

// SendEnvelope sends an m.room.message carrying an event envelope for
// schema. data is checked against the schema's required fields first.
func (s *Session) SendEnvelope(ctx context.Context, identifier, schema string, data eventenvelope.Data, source string) (SentEvent, error) {
	if err := eventenvelope.Validate(schema, data); err != nil {
		return SentEvent{}, err
	}
	content := eventenvelope.Build(schema, data, source, s.client.clock.Now())
	return s.SendEvent(ctx, identifier, ref.EventTypeRoomMessage, content, "")
}

// Verification is a service verification result.
type Verification struct {
	// Status is "PASSED" or "FAILED".
	Status string

	// Services maps service names to their results.
	Services any

	// Context is optional extra information (host, run ID).
	Context map[string]any
}

// PostVerification sends a verification result as a custom event. A
// FAILED status uses EventTypeVerifyFail; any other status uses
// EventTypeVerifyPass.
func (s *Session) PostVerification(ctx context.Context, identifier string, verification Verification) (SentEvent, error) {
	eventType := EventTypeVerifyPass
	if verification.Status == VerificationFailed {
		eventType = EventTypeVerifyFail
	}
	content := map[string]any{
		"status":    verification.Status,
		"services":  verification.Services,
		"timestamp": s.client.clock.Now().UTC().Format(eventenvelope.TimestampFormat),
	}
	if len(verification.Context) > 0 {
		content["context"] = verification.Context
	}
	return s.SendEvent(ctx, identifier, eventType, content, "")
}
