// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli defines the ragchat command tree. The bare command opens
// the chat TUI; subcommands cover authentication, one-shot questions,
// session management, the local history log, and admin tasks (upload,
// reindex, feedback analytics).
//
// Every command builds its wiring through newApp: config load, API
// client construction, and credential restore. Commands that talk to
// the backend gate on requireLogin / requireAdmin first so failures
// are immediate and readable instead of surfacing as a 401 later.
package cli
