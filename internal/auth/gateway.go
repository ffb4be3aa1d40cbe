// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/akjha-17/ragchat-tui/internal/api"
	"github.com/akjha-17/ragchat-tui/internal/model"
	"github.com/akjha-17/ragchat-tui/internal/util"
)

// credentialsFile is where the bearer token lives under the config dir.
const credentialsFile = "credentials.json"

// ErrNotLoggedIn indicates no stored credentials are available.
var ErrNotLoggedIn = errors.New("not logged in (run: ragchat login)")

// credentials is the on-disk shape. The file is 0600: it holds a live
// bearer token.
type credentials struct {
	AccessToken string     `json:"access_token"`
	ServerURL   string     `json:"server_url"`
	User        model.User `json:"user"`
	SavedAt     time.Time  `json:"saved_at"`
}

// Gateway owns the authenticated identity: it logs in, persists the token,
// exposes decoded claims for role gating, and acts as the api.TokenSource
// for every authenticated call.
type Gateway struct {
	mu     sync.Mutex
	client *api.Client
	dir    string

	creds  *credentials
	claims *Claims
}

// NewGateway creates a gateway storing credentials under dir.
func NewGateway(client *api.Client, dir string) *Gateway {
	return &Gateway{client: client, dir: dir}
}

// Token implements api.TokenSource. Returns "" when logged out.
func (g *Gateway) Token() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.creds == nil {
		return ""
	}
	return g.creds.AccessToken
}

// Load reads stored credentials from disk. Missing credentials are not an
// error; LoggedIn() simply stays false.
func (g *Gateway) Load() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	data, err := os.ReadFile(g.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read credentials: %w", err)
	}

	var creds credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return fmt.Errorf("failed to parse credentials: %w", err)
	}

	claims, err := ParseClaims(creds.AccessToken)
	if err != nil {
		// A stored token we cannot decode is useless; drop it rather
		// than failing every later call with a confusing 401.
		log.Printf("auth: discarding undecodable stored token: %v", err)
		return nil
	}

	g.creds = &creds
	g.claims = claims
	return nil
}

// Login authenticates against the backend and persists the credentials.
func (g *Gateway) Login(ctx context.Context, username, password string) (*model.User, error) {
	resp, err := g.client.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if err := g.adopt(resp.AccessToken, resp.User); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// Register creates an account and persists its first token.
func (g *Gateway) Register(ctx context.Context, req api.RegisterRequest) (*model.User, error) {
	resp, err := g.client.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := g.adopt(resp.AccessToken, resp.User); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// AdoptDevToken stores a token issued by the backend's dev helper. The
// user profile is fetched with the new token so role gating works.
func (g *Gateway) AdoptDevToken(ctx context.Context, token string) error {
	if err := g.adopt(token, model.User{}); err != nil {
		return err
	}
	user, err := g.client.Me(ctx)
	if err != nil {
		// Dev tokens reference users that may not exist in the user DB;
		// keep the token, synthesize the profile from claims.
		g.mu.Lock()
		defer g.mu.Unlock()
		g.creds.User = model.User{
			Username: g.claims.Subject,
			IsAdmin:  g.claims.IsAdmin(),
			Role:     g.claims.Role,
		}
		return g.saveLocked()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.creds.User = *user
	return g.saveLocked()
}

// adopt validates, stores, and persists a fresh token.
func (g *Gateway) adopt(token string, user model.User) error {
	claims, err := ParseClaims(token)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.creds = &credentials{
		AccessToken: token,
		ServerURL:   g.client.BaseURL(),
		User:        user,
		SavedAt:     time.Now(),
	}
	g.claims = claims
	return g.saveLocked()
}

func (g *Gateway) saveLocked() error {
	data, err := json.MarshalIndent(g.creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	if err := util.AtomicWriteFile(g.path(), data, 0600); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

// Logout clears credentials in memory and on disk.
func (g *Gateway) Logout() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.creds = nil
	g.claims = nil
	if err := os.Remove(g.path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	return nil
}

// LoggedIn reports whether a usable (present, unexpired) token is loaded.
func (g *Gateway) LoggedIn() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.creds == nil || g.claims == nil {
		return false
	}
	return !g.claims.Expired(time.Now())
}

// Claims returns the decoded token claims, or nil when logged out.
func (g *Gateway) Claims() *Claims {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.claims
}

// User returns the cached user profile from the last login.
func (g *Gateway) User() model.User {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.creds == nil {
		return model.User{}
	}
	return g.creds.User
}

// RefreshUser refetches the profile from the backend and updates the
// cached copy. Used by the profile page after edits.
func (g *Gateway) RefreshUser(ctx context.Context) (*model.User, error) {
	user, err := g.client.Me(ctx)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.creds != nil {
		g.creds.User = *user
		if err := g.saveLocked(); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// IsAdmin reports whether the current token grants admin access.
func (g *Gateway) IsAdmin() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.claims != nil && g.claims.IsAdmin()
}

func (g *Gateway) path() string {
	return filepath.Join(g.dir, credentialsFile)
}
