// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the interactive chat view for the TUI.
//
// The view follows the Bubble Tea model-view-update split:
//   - model.go: the Model struct and its construction
//   - update.go: message and key handling
//   - view.go: rendering (sidebar, message log, input, status bar)
//   - messages.go: typed tea.Msg definitions
//   - commands.go: tea.Cmd wrappers around the chat controller
//   - keys.go: keyboard bindings
//
// All backend work runs through the chat controller on command
// goroutines; the Update loop only ever touches controller snapshots, so
// the UI never blocks on the network.
package chat
