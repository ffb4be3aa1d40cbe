// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth manages backend credentials: login, registration, local
// token persistence, and the JWT claims used for role-gating the UI.
//
// Token VERIFICATION is the backend's job. The client only decodes the
// payload to read roles and expiry for display and navigation gating; a
// tampered token would simply be rejected server-side on the next call.
package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Role names the backend embeds in its tokens.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ErrMalformedToken indicates the token is not a decodable JWT.
var ErrMalformedToken = errors.New("malformed token")

// Claims is the decoded JWT payload issued by the backend.
type Claims struct {
	Subject           string   `json:"sub"`
	PreferredUsername string   `json:"preferred_username"`
	UserID            int64    `json:"user_id"`
	Email             string   `json:"email"`
	FullName          string   `json:"full_name"`
	PUID              string   `json:"puid"`
	Role              string   `json:"role"`
	Organization      string   `json:"organization"`
	Roles             []string `json:"roles"`
	ExpiresAt         int64    `json:"exp"`
	IssuedAt          int64    `json:"iat"`
}

// ParseClaims decodes the payload segment of a JWT without verifying the
// signature.
func ParseClaims(token string) (*Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 3 segments, got %d", ErrMalformedToken, len(parts))
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		// Some issuers pad their segments.
		payload, err = base64.URLEncoding.DecodeString(parts[1])
		if err != nil {
			return nil, fmt.Errorf("%w: payload decode: %v", ErrMalformedToken, err)
		}
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("%w: payload parse: %v", ErrMalformedToken, err)
	}
	return &claims, nil
}

// HasRole reports whether the roles claim contains the given role.
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsUser reports whether the token grants ordinary user access.
func (c *Claims) IsUser() bool {
	return c.HasRole(RoleUser)
}

// IsAdmin reports whether the token grants admin access (upload, reindex,
// feedback analytics).
func (c *Claims) IsAdmin() bool {
	return c.HasRole(RoleAdmin)
}

// Expiry returns the token expiry time, or the zero time when the claim
// is absent.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(c.ExpiresAt, 0)
}

// Expired reports whether the token has passed its expiry. Tokens without
// an exp claim are treated as unexpired; the backend has the final say.
func (c *Claims) Expired(now time.Time) bool {
	if c.ExpiresAt == 0 {
		return false
	}
	return now.After(c.Expiry())
}

// DisplayName returns the best available name for greeting.
func (c *Claims) DisplayName() string {
	if c.PreferredUsername != "" {
		return c.PreferredUsername
	}
	return c.Subject
}
