// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for ragchat.
//
// Configuration lives in ~/.ragchat/config.toml with sensible defaults and
// validation. Precedence, highest first:
//   - Environment variables (RAGCHAT_*)
//   - ~/.ragchat/config.toml
//   - Built-in defaults
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// For the interactive UI, wrap the config in a SettingsStore and call
// Watch to pick up on-disk edits without a restart:
//
//	store := config.NewSettingsStore(cfg, path)
//	store.Watch(ctx)
package config
