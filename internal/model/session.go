// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// =============================================================================
// SESSION TYPE
// =============================================================================

// Session is a persisted conversation thread. The backend owns the id and
// the message count; the count shown locally may lag the true count until
// the next list refresh after a completed exchange.
type Session struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	MessageCount    int       `json:"message_count"`
	LastMessageTime time.Time `json:"last_message_time,omitzero"`
}

// Touched returns the most recent activity time for ordering purposes:
// the last message time when known, otherwise the update time.
func (s Session) Touched() time.Time {
	if !s.LastMessageTime.IsZero() {
		return s.LastMessageTime
	}
	return s.UpdatedAt
}

// =============================================================================
// USER PROFILE
// =============================================================================

// User is the backend's view of the authenticated account.
type User struct {
	ID            int64  `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	FullName      string `json:"full_name"`
	PreferredName string `json:"preferred_name"`
	PUID          string `json:"puid"`
	Role          string `json:"role"`
	Organization  string `json:"organization"`
	IsAdmin       bool   `json:"is_admin"`
	CreatedAt     string `json:"created_at"`
	LastLogin     string `json:"last_login,omitempty"`
}

// DisplayName returns the name to greet the user with.
func (u User) DisplayName() string {
	if u.PreferredName != "" {
		return u.PreferredName
	}
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}
