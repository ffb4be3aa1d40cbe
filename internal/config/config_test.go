// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadFromPathMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Preferences.ResponseLength != 50 {
		t.Errorf("response_length = %d, want default 50", cfg.Preferences.ResponseLength)
	}
	if cfg.Server.URL == "" {
		t.Error("server URL empty")
	}
}

func TestLoadFromPathSparseFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[preferences]
response_length = 80

[ui]
theme = "light"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Preferences.ResponseLength != 80 {
		t.Errorf("response_length = %d, want 80", cfg.Preferences.ResponseLength)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("theme = %q, want light", cfg.UI.Theme)
	}
	// Untouched sections keep their defaults.
	if cfg.Preferences.TopK != 4 {
		t.Errorf("top_k = %d, want default 4", cfg.Preferences.TopK)
	}
	if !cfg.Preferences.ShowSources {
		t.Error("show_sources default lost")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"response length too small", func(c *Config) { c.Preferences.ResponseLength = 5 }, "preferences.response_length"},
		{"response length too large", func(c *Config) { c.Preferences.ResponseLength = 500 }, "preferences.response_length"},
		{"top_k zero", func(c *Config) { c.Preferences.TopK = 0 }, "preferences.top_k"},
		{"bad theme", func(c *Config) { c.UI.Theme = "solarized" }, "ui.theme"},
		{"bad url", func(c *Config) { c.Server.URL = "not a url" }, "server.url"},
		{"zero timeout", func(c *Config) { c.Server.TimeoutSecs = 0 }, "server.timeout_secs"},
		{"negative history cap", func(c *Config) { c.History.MaxEntries = -1 }, "history.max_entries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q does not name field %s", err, tt.field)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("RAGCHAT_SERVER_URL", "http://backend.internal:9000")
	t.Setenv("RAGCHAT_RESPONSE_LENGTH", "30")
	t.Setenv("RAGCHAT_THEME", "auto")
	t.Setenv("RAGCHAT_NO_HISTORY", "1")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Server.URL != "http://backend.internal:9000" {
		t.Errorf("server url = %q", cfg.Server.URL)
	}
	if cfg.Preferences.ResponseLength != 30 {
		t.Errorf("response_length = %d", cfg.Preferences.ResponseLength)
	}
	if cfg.UI.Theme != "auto" {
		t.Errorf("theme = %q", cfg.UI.Theme)
	}
	if cfg.History.Enabled {
		t.Error("history still enabled")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Preferences.ResponseLength = 75
	cfg.UI.CompactMode = true
	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config perm = %o, want 0600", perm)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if loaded.Preferences.ResponseLength != 75 {
		t.Errorf("response_length = %d after round trip", loaded.Preferences.ResponseLength)
	}
	if !loaded.UI.CompactMode {
		t.Error("compact_mode lost in round trip")
	}
}

func TestGetSetDotNotation(t *testing.T) {
	cfg := Default()

	if err := cfg.Set("preferences.response_length", "90"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if cfg.Preferences.ResponseLength != 90 {
		t.Errorf("response_length = %d", cfg.Preferences.ResponseLength)
	}

	if err := cfg.Set("server.url", "http://example.com"); err != nil {
		t.Fatalf("Set url: %v", err)
	}
	if err := cfg.Set("ui.compact_mode", "true"); err != nil {
		t.Fatalf("Set bool: %v", err)
	}
	if !cfg.UI.CompactMode {
		t.Error("compact_mode not set")
	}

	got, err := cfg.Get("preferences.top_k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.(int) != 4 {
		t.Errorf("top_k = %v", got)
	}

	if _, err := cfg.Get("no.such.key"); err == nil {
		t.Error("Get of unknown key succeeded")
	}
	if err := cfg.Set("preferences", "x"); err == nil {
		t.Error("Set on a section succeeded")
	}
}

func TestAllKeysResolve(t *testing.T) {
	cfg := Default()
	for _, key := range AllKeys() {
		if _, err := cfg.Get(key); err != nil {
			t.Errorf("Get(%q): %v", key, err)
		}
	}
}

func TestSettingsStoreUpdateNotifies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	store := NewSettingsStore(Default(), path)
	sub := store.Subscribe()

	next := Default()
	next.Preferences.EnableFeedback = false
	if err := store.Update(next); err != nil {
		t.Fatalf("Update: %v", err)
	}

	select {
	case <-sub:
	default:
		t.Error("subscriber not notified")
	}
	if store.FeedbackEnabled() {
		t.Error("FeedbackEnabled() still true after update")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("update not persisted: %v", err)
	}
}

func TestSettingsStoreRejectsInvalidUpdate(t *testing.T) {
	store := NewSettingsStore(Default(), filepath.Join(t.TempDir(), "config.toml"))
	bad := Default()
	bad.Preferences.ResponseLength = 1
	if err := store.Update(bad); err == nil {
		t.Fatal("invalid update accepted")
	}
	if store.ResponseLength() != 50 {
		t.Error("invalid update applied")
	}
}

func TestUnlimitedHistorySurvivesLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[history]
enabled = true
max_entries = -1
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.History.MaxEntries != -1 {
		t.Errorf("max_entries = %d, want -1 (unlimited)", cfg.History.MaxEntries)
	}

	// Unset still picks up the default cap.
	cfg2, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg2.History.MaxEntries != 5000 {
		t.Errorf("default max_entries = %d, want 5000", cfg2.History.MaxEntries)
	}

	// Anything below the sentinel is rejected.
	bad := Default()
	bad.History.MaxEntries = -2
	if err := bad.Validate(); err == nil {
		t.Error("max_entries = -2 accepted")
	}
}
