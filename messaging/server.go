// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"fmt"
	"slices"
)

// ServerVersion fetches the homeserver's software version.
func (s *Session) ServerVersion(ctx context.Context) (ServerVersion, error) {
	result := s.Get(ctx, s.admin(""), "server_version", nil)
	if err := result.Err(); err != nil {
		return ServerVersion{}, fmt.Errorf("messaging: getting server version: %w", err)
	}
	var version ServerVersion
	if err := result.Decode(&version); err != nil {
		return ServerVersion{}, err
	}
	return version, nil
}

// Sections accepted by GatherServerInfo.
const (
	InfoVersion            = "version"
	InfoUsers              = "users"
	InfoRooms              = "rooms"
	InfoRegistrationTokens = "registration_tokens"
	InfoAll                = "all"
)

// InfoOptions selects what GatherServerInfo collects.
type InfoOptions struct {
	// Sections lists the sections to gather. InfoAll expands to every
	// section. Empty gathers only InfoVersion.
	Sections []string

	// Limit caps the users and rooms listings.
	Limit int

	UsersFilter string
	RoomsFilter string
}

// ServerInfo is a snapshot of the homeserver. Sections that were not
// requested or that failed are left empty; each failure adds a warning.
type ServerInfo struct {
	Version            *ServerVersion      `json:"version,omitempty"`
	Users              []User              `json:"users,omitempty"`
	UsersTotal         int                 `json:"users_total,omitempty"`
	Rooms              []Room              `json:"rooms,omitempty"`
	RoomsTotal         int                 `json:"rooms_total,omitempty"`
	RegistrationTokens []RegistrationToken `json:"registration_tokens,omitempty"`
	Warnings           []string            `json:"warnings,omitempty"`
}

// GatherServerInfo collects the requested sections. A failing section
// is logged and reported in Warnings; the remaining sections are still
// gathered.
func (s *Session) GatherServerInfo(ctx context.Context, options InfoOptions) (ServerInfo, error) {
	sections := options.Sections
	if len(sections) == 0 {
		sections = []string{InfoVersion}
	}
	if slices.Contains(sections, InfoAll) {
		sections = []string{InfoVersion, InfoUsers, InfoRooms, InfoRegistrationTokens}
	}
	for _, section := range sections {
		switch section {
		case InfoVersion, InfoUsers, InfoRooms, InfoRegistrationTokens:
		default:
			return ServerInfo{}, fmt.Errorf("messaging: unknown server info section %q", section)
		}
	}

	var info ServerInfo
	warn := func(section string, err error) {
		s.client.logger.Warn("gathering server info failed", "section", section, "error", err)
		info.Warnings = append(info.Warnings, fmt.Sprintf("%s: %v", section, err))
	}

	if slices.Contains(sections, InfoVersion) {
		if version, err := s.ServerVersion(ctx); err != nil {
			warn(InfoVersion, err)
		} else {
			info.Version = &version
		}
	}
	if slices.Contains(sections, InfoUsers) {
		if list, err := s.ListUsers(ctx, UserListOptions{Limit: options.Limit, Name: options.UsersFilter}); err != nil {
			warn(InfoUsers, err)
		} else {
			info.Users = list.Users
			info.UsersTotal = list.Total
		}
	}
	if slices.Contains(sections, InfoRooms) {
		if list, err := s.ListRooms(ctx, RoomListOptions{Limit: options.Limit, SearchTerm: options.RoomsFilter}); err != nil {
			warn(InfoRooms, err)
		} else {
			info.Rooms = list.Rooms
			info.RoomsTotal = list.TotalRooms
		}
	}
	if slices.Contains(sections, InfoRegistrationTokens) {
		if tokens, err := s.ListRegistrationTokens(ctx, nil); err != nil {
			warn(InfoRegistrationTokens, err)
		} else {
			info.RegistrationTokens = tokens
		}
	}
	return info, nil
}
