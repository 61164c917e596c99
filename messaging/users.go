// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/bureau-foundation/synapse-admin/lib/ref"
	"github.com/bureau-foundation/synapse-admin/lib/secret"
)

// UserTypeNormal selects users without a user type in ListUsers.
const UserTypeNormal = "normal"

// GetUser fetches an account. The second result is false when the
// server has no such user.
func (s *Session) GetUser(ctx context.Context, userID ref.UserID) (User, bool, error) {
	result := s.Get(ctx, AdminSurface("v2"), "users/"+pathSegment(userID.String()), nil)
	if result.NotFound() {
		return User{}, false, nil
	}
	if err := result.Err(); err != nil {
		return User{}, false, fmt.Errorf("messaging: getting user %s: %w", userID, err)
	}
	var user User
	if err := result.Decode(&user); err != nil {
		return User{}, false, err
	}
	return user, true, nil
}

// UserListOptions filters ListUsers.
type UserListOptions struct {
	// Limit caps the page size. Zero uses the server default.
	Limit int

	// Name matches a substring of user ID or display name.
	Name string

	// Deactivated includes deactivated accounts.
	Deactivated bool

	// Admins restricts to admins (true) or non-admins (false).
	Admins *bool

	// UserType keeps only users of this type. UserTypeNormal keeps users
	// with no type. The admin API cannot express "no type", so this
	// filter is applied to the returned page.
	UserType string
}

// ListUsers lists accounts. When UserType filters the page, Total is the
// number of users kept.
func (s *Session) ListUsers(ctx context.Context, options UserListOptions) (UserList, error) {
	query := url.Values{}
	if options.Limit > 0 {
		query.Set("limit", strconv.Itoa(options.Limit))
	}
	if options.Name != "" {
		query.Set("name", options.Name)
	}
	query.Set("deactivated", strconv.FormatBool(options.Deactivated))
	if options.Admins != nil {
		query.Set("admins", strconv.FormatBool(*options.Admins))
	}

	result := s.Get(ctx, AdminSurface("v2"), "users", query)
	if err := result.Err(); err != nil {
		return UserList{}, fmt.Errorf("messaging: listing users: %w", err)
	}
	var list UserList
	if err := result.Decode(&list); err != nil {
		return UserList{}, err
	}

	if options.UserType != "" {
		kept := list.Users[:0]
		for _, user := range list.Users {
			if matchesUserType(user, options.UserType) {
				kept = append(kept, user)
			}
		}
		list.Users = kept
		list.Total = len(kept)
	}
	return list, nil
}

func matchesUserType(user User, userType string) bool {
	if userType == UserTypeNormal {
		return user.UserType == nil
	}
	return user.UserType != nil && *user.UserType == userType
}

// UserUpdate is the body of an admin user upsert. Password, DisplayName
// and UserType are sent only when set.
type UserUpdate struct {
	Admin       bool
	Deactivated bool
	Password    *secret.Buffer
	DisplayName string
	UserType    string
}

func (u UserUpdate) body() map[string]any {
	body := map[string]any{
		"admin":       u.Admin,
		"deactivated": u.Deactivated,
	}
	if u.Password != nil && u.Password.Len() > 0 {
		// Password is converted to string at the JSON serialization boundary.
		body["password"] = u.Password.String()
	}
	if u.DisplayName != "" {
		body["displayname"] = u.DisplayName
	}
	if u.UserType != "" {
		body["user_type"] = u.UserType
	}
	return body
}

// UpsertUser creates or modifies an account and returns the server's
// view of it.
func (s *Session) UpsertUser(ctx context.Context, userID ref.UserID, update UserUpdate) (User, error) {
	result := s.Put(ctx, AdminSurface("v2"), "users/"+pathSegment(userID.String()), update.body())
	if err := result.Err(); err != nil {
		return User{}, fmt.Errorf("messaging: upserting user %s: %w", userID, err)
	}
	var user User
	if err := result.Decode(&user); err != nil {
		return User{}, err
	}
	return user, nil
}

// DeactivateUser deactivates an account. erase also asks the server to
// forget the user's messages.
func (s *Session) DeactivateUser(ctx context.Context, userID ref.UserID, erase bool) error {
	result := s.Post(ctx, s.admin(""), "deactivate/"+pathSegment(userID.String()), map[string]any{"erase": erase})
	if err := result.Err(); err != nil {
		return fmt.Errorf("messaging: deactivating user %s: %w", userID, err)
	}
	return nil
}

// UserSpec is the desired state of an account for EnsureUser.
type UserSpec struct {
	UserID      ref.UserID
	Password    *secret.Buffer
	DisplayName string
	Admin       bool
	Deactivated bool

	// RateLimit, when set, is applied after the account is up to date.
	RateLimit *RateLimitOverride
}

// UserOutcome reports what EnsureUser or RemoveUser did.
type UserOutcome struct {
	Changed bool `json:"changed"`

	// User is the account as the server reports it afterwards. Zero when
	// the account does not exist.
	User User `json:"user"`

	// Exists is false when the account is absent afterwards.
	Exists bool `json:"exists"`

	// RateLimitError records a failed rate-limit override. The account
	// change itself still happened.
	RateLimitError string `json:"rate_limit_error,omitempty"`
}

// EnsureUser brings an account to spec. The account is upserted only
// when it is missing or when its display name (if one is requested),
// admin flag or deactivated flag differ. A rate-limit override failure
// is logged and recorded without failing the call.
func (s *Session) EnsureUser(ctx context.Context, spec UserSpec) (UserOutcome, error) {
	current, exists, err := s.GetUser(ctx, spec.UserID)
	if err != nil {
		return UserOutcome{}, err
	}

	var outcome UserOutcome
	if !exists || userDiffers(current, spec) {
		if _, err := s.UpsertUser(ctx, spec.UserID, UserUpdate{
			Admin:       spec.Admin,
			Deactivated: spec.Deactivated,
			Password:    spec.Password,
			DisplayName: spec.DisplayName,
		}); err != nil {
			return UserOutcome{}, err
		}
		outcome.Changed = true
	}

	if spec.RateLimit != nil {
		if err := s.SetRateLimitOverride(ctx, spec.UserID, *spec.RateLimit); err != nil {
			s.client.logger.Warn("setting rate limit override failed",
				"user_id", spec.UserID,
				"error", err,
			)
			outcome.RateLimitError = err.Error()
		}
	}

	outcome.User, outcome.Exists, err = s.GetUser(ctx, spec.UserID)
	if err != nil {
		return UserOutcome{}, err
	}
	return outcome, nil
}

func userDiffers(current User, spec UserSpec) bool {
	if spec.DisplayName != "" && current.DisplayName != spec.DisplayName {
		return true
	}
	return bool(current.Admin) != spec.Admin || bool(current.Deactivated) != spec.Deactivated
}

// RemoveUser deactivates an account if it exists and is still active.
func (s *Session) RemoveUser(ctx context.Context, userID ref.UserID, erase bool) (UserOutcome, error) {
	current, exists, err := s.GetUser(ctx, userID)
	if err != nil {
		return UserOutcome{}, err
	}
	if !exists {
		return UserOutcome{}, nil
	}
	if current.Deactivated {
		return UserOutcome{User: current, Exists: true}, nil
	}
	if err := s.DeactivateUser(ctx, userID, erase); err != nil {
		return UserOutcome{}, err
	}
	current.Deactivated = true
	return UserOutcome{Changed: true, User: current, Exists: true}, nil
}
