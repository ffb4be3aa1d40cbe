// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/akjha-17/ragchat-tui/internal/api"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete ragchat configuration.
type Config struct {
	Version string `toml:"version"`

	// Server is the backend connection configuration.
	Server ServerConfig `toml:"server"`

	// Preferences shape how exchanges are asked and displayed.
	Preferences PreferencesConfig `toml:"preferences"`

	// UI is terminal presentation configuration.
	UI UIConfig `toml:"ui"`

	// History is the local exchange log configuration.
	History HistoryConfig `toml:"history"`
}

// ServerConfig contains backend connection settings.
type ServerConfig struct {
	// URL is the base URL of the backend.
	URL string `toml:"url"`
	// TimeoutSecs is the per-request timeout. Answer synthesis is slow;
	// keep this generous.
	TimeoutSecs int `toml:"timeout_secs"`
	// MaxRetries is the retry budget for idempotent requests.
	MaxRetries int `toml:"max_retries"`
	// Verbose logs request/response summaries (never bodies or tokens).
	Verbose bool `toml:"verbose"`
}

// PreferencesConfig contains the user-tunable exchange knobs.
type PreferencesConfig struct {
	// ResponseLength is the requested answer length in words. Range 10-100.
	ResponseLength int `toml:"response_length"`
	// TopK is the number of retrieval hits requested per ask. Range 1-20.
	TopK int `toml:"top_k"`
	// ShowSources toggles the source list under each answer.
	ShowSources bool `toml:"show_sources"`
	// EnableFeedback toggles the per-answer rating controls.
	EnableFeedback bool `toml:"enable_feedback"`
	// RenderMarkdown renders answers through the terminal markdown
	// renderer instead of printing them raw.
	RenderMarkdown bool `toml:"render_markdown"`
}

// UIConfig contains terminal presentation settings.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme"`
	// CompactMode tightens message spacing.
	CompactMode bool `toml:"compact_mode"`
	// ShowTimestamps prints a timestamp next to each message.
	ShowTimestamps bool `toml:"show_timestamps"`
}

// HistoryConfig contains local exchange log settings.
type HistoryConfig struct {
	// Enabled controls whether completed exchanges are recorded locally.
	Enabled bool `toml:"enabled"`
	// Path overrides the database location (default ~/.ragchat/history.db).
	Path string `toml:"path"`
	// MaxEntries caps the local log; older entries are pruned. Leaving it
	// unset (0) uses the default cap; -1 disables pruning entirely.
	MaxEntries int `toml:"max_entries"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Server: ServerConfig{
			URL:         api.DefaultBaseURL,
			TimeoutSecs: 120,
			MaxRetries:  api.DefaultMaxRetries,
		},

		Preferences: PreferencesConfig{
			ResponseLength: 50,
			TopK:           4,
			ShowSources:    true,
			EnableFeedback: true,
			RenderMarkdown: true,
		},

		UI: UIConfig{
			Theme:          "dark",
			CompactMode:    false,
			ShowTimestamps: false,
		},

		History: HistoryConfig{
			Enabled:    true,
			MaxEntries: 5000,
		},
	}
}

// =============================================================================
// PATH HELPERS
// =============================================================================

// Dir returns the ragchat configuration directory path.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".ragchat"), nil
}

// Path returns the path to the config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureDir ensures the config directory exists and returns its path.
func EnsureDir() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads the config file, fills defaults, applies environment
// overrides, and validates. A missing file is not an error: defaults are
// returned.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file path.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	cfg.fillDefaults()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults fills any zero values left by a sparse config file.
func (c *Config) fillDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.Server.URL == "" {
		c.Server.URL = defaults.Server.URL
	}
	if c.Server.TimeoutSecs == 0 {
		c.Server.TimeoutSecs = defaults.Server.TimeoutSecs
	}
	if c.Server.MaxRetries == 0 {
		c.Server.MaxRetries = defaults.Server.MaxRetries
	}
	if c.Preferences.ResponseLength == 0 {
		c.Preferences.ResponseLength = defaults.Preferences.ResponseLength
	}
	if c.Preferences.TopK == 0 {
		c.Preferences.TopK = defaults.Preferences.TopK
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
	if c.History.MaxEntries == 0 {
		c.History.MaxEntries = defaults.History.MaxEntries
	}
}

// Save writes the configuration to the default config file with 0600
// permissions.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the configuration to a specific path.
func SaveTo(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	fmt.Fprintln(file, "# ragchat configuration file")
	fmt.Fprintln(file, "# Generated by ragchat - edit with care")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Server.URL != "" {
		if u, err := url.Parse(c.Server.URL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "server.url",
				Message: fmt.Sprintf("invalid URL '%s'", c.Server.URL),
			})
		}
	}
	if c.Server.TimeoutSecs < 1 {
		errs = append(errs, ValidationError{
			Field:   "server.timeout_secs",
			Message: fmt.Sprintf("must be at least 1, got %d", c.Server.TimeoutSecs),
		})
	}
	if c.Server.MaxRetries < 0 || c.Server.MaxRetries > 10 {
		errs = append(errs, ValidationError{
			Field:   "server.max_retries",
			Message: fmt.Sprintf("must be 0-10, got %d", c.Server.MaxRetries),
		})
	}

	if c.Preferences.ResponseLength < 10 || c.Preferences.ResponseLength > 100 {
		errs = append(errs, ValidationError{
			Field:   "preferences.response_length",
			Message: fmt.Sprintf("must be 10-100 words, got %d", c.Preferences.ResponseLength),
		})
	}
	if c.Preferences.TopK < 1 || c.Preferences.TopK > 20 {
		errs = append(errs, ValidationError{
			Field:   "preferences.top_k",
			Message: fmt.Sprintf("must be 1-20, got %d", c.Preferences.TopK),
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	if c.History.MaxEntries < -1 {
		errs = append(errs, ValidationError{
			Field:   "history.max_entries",
			Message: fmt.Sprintf("must be -1 (unlimited) or non-negative, got %d", c.History.MaxEntries),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - RAGCHAT_SERVER_URL: overrides server.url
//   - RAGCHAT_TIMEOUT_SECS: overrides server.timeout_secs
//   - RAGCHAT_VERBOSE: set to "1" or "true" to log request summaries
//   - RAGCHAT_RESPONSE_LENGTH: overrides preferences.response_length
//   - RAGCHAT_THEME: overrides ui.theme
//   - RAGCHAT_NO_HISTORY: set to "1" or "true" to disable local history
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("RAGCHAT_SERVER_URL"); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv("RAGCHAT_TIMEOUT_SECS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			c.Server.TimeoutSecs = secs
		}
	}
	if v := os.Getenv("RAGCHAT_VERBOSE"); v != "" {
		c.Server.Verbose = envBool(v)
	}
	if v := os.Getenv("RAGCHAT_RESPONSE_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Preferences.ResponseLength = n
		}
	}
	if v := os.Getenv("RAGCHAT_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("RAGCHAT_NO_HISTORY"); v != "" && envBool(v) {
		c.History.Enabled = false
	}
}

func envBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation
// (e.g., "preferences.response_length").
func (c *Config) Get(key string) (any, error) {
	field, err := c.locate(key, false)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type.
func (c *Config) Set(key string, value string) error {
	field, err := c.locate(key, true)
	if err != nil {
		return err
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %v", key, err)
		}
		field.SetInt(n)
	case reflect.Bool:
		field.SetBool(envBool(value))
	default:
		return fmt.Errorf("cannot set field of type %s", field.Type())
	}
	return nil
}

// locate walks the config struct following a dot-notation key.
func (c *Config) locate(key string, settable bool) (reflect.Value, error) {
	parts := strings.Split(key, ".")
	if len(parts) == 0 || key == "" {
		return reflect.Value{}, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			if settable && !field.CanSet() {
				return reflect.Value{}, fmt.Errorf("cannot set field: %s", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})
	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	// Initialisms the simple title-casing above gets wrong.
	switch s := result.String(); s {
	case "Url":
		return "URL"
	case "Ui":
		return "UI"
	case "Topk":
		return "TopK"
	default:
		return s
	}
}

// AllKeys returns every configuration key in dot notation, for the config
// CLI's listing and completion.
func AllKeys() []string {
	return []string{
		"version",
		"server.url",
		"server.timeout_secs",
		"server.max_retries",
		"server.verbose",
		"preferences.response_length",
		"preferences.top_k",
		"preferences.show_sources",
		"preferences.enable_feedback",
		"preferences.render_markdown",
		"ui.theme",
		"ui.compact_mode",
		"ui.show_timestamps",
		"history.enabled",
		"history.path",
		"history.max_entries",
	}
}
