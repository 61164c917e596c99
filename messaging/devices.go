// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/bureau-foundation/synapse-admin/lib/devicefilter"
	"github.com/bureau-foundation/synapse-admin/lib/ref"
)

func devicesEndpoint(userID ref.UserID) string {
	return "users/" + pathSegment(userID.String()) + "/devices"
}

// ListDevices lists a user's devices. An unknown user has no devices.
func (s *Session) ListDevices(ctx context.Context, userID ref.UserID) ([]devicefilter.Device, error) {
	result := s.Get(ctx, AdminSurface("v2"), devicesEndpoint(userID), nil)
	if result.NotFound() {
		return nil, nil
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("messaging: listing devices of %s: %w", userID, err)
	}
	var response struct {
		Devices []devicefilter.Device `json:"devices"`
		Total   int                   `json:"total"`
	}
	if err := result.Decode(&response); err != nil {
		return nil, err
	}
	return response.Devices, nil
}

// DeleteDevice deletes one device and invalidates its access token.
func (s *Session) DeleteDevice(ctx context.Context, userID ref.UserID, deviceID ref.DeviceID) error {
	endpoint := devicesEndpoint(userID) + "/" + pathSegment(deviceID.String())
	result := s.Delete(ctx, AdminSurface("v2"), endpoint, nil)
	if err := result.Err(); err != nil {
		return fmt.Errorf("messaging: deleting device %s of %s: %w", deviceID, userID, err)
	}
	return nil
}

// RevokeFailure is a device that could not be deleted.
type RevokeFailure struct {
	DeviceID ref.DeviceID `json:"device_id"`
	Error    string       `json:"error"`
}

// RevokeReport is the outcome of RevokeDevices.
type RevokeReport struct {
	Revoked []ref.DeviceID  `json:"revoked"`
	Failed  []RevokeFailure `json:"failed,omitempty"`
}

// RevokeDevices deletes each device in order. A failed deletion is
// logged and recorded, and the batch continues. limiter paces the
// deletions; nil sends them back to back. If ctx ends, the devices not
// yet attempted are recorded as failed.
func (s *Session) RevokeDevices(ctx context.Context, userID ref.UserID, deviceIDs []ref.DeviceID, limiter *rate.Limiter) RevokeReport {
	report := RevokeReport{Revoked: []ref.DeviceID{}}
	for index, deviceID := range deviceIDs {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				for _, remaining := range deviceIDs[index:] {
					report.Failed = append(report.Failed, RevokeFailure{DeviceID: remaining, Error: err.Error()})
				}
				return report
			}
		}
		if err := s.DeleteDevice(ctx, userID, deviceID); err != nil {
			s.client.logger.Warn("revoking device failed",
				"user_id", userID,
				"device_id", deviceID,
				"error", err,
			)
			report.Failed = append(report.Failed, RevokeFailure{DeviceID: deviceID, Error: err.Error()})
			continue
		}
		report.Revoked = append(report.Revoked, deviceID)
	}
	return report
}
