// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file defines all Bubble Tea message types used by the chat view.
// The controller owns the actual conversation state; these messages only
// signal that a background operation finished so the view re-reads its
// snapshot.

package chat

// =============================================================================
// SESSION MESSAGES
// =============================================================================

// SessionsLoadedMsg signals that the session list fetch finished.
type SessionsLoadedMsg struct {
	// Selected is the session auto-selected by the load, "" when none.
	Selected string
	Err      error
}

// HistoryLoadedMsg signals that the active session's history fetch
// finished. Stale results arrive with Err == chat.ErrStale and are
// ignored.
type HistoryLoadedMsg struct {
	SessionID string
	Err       error
}

// SessionDeletedMsg signals a session delete completion.
type SessionDeletedMsg struct {
	SessionID string
	Err       error
}

// SessionRenamedMsg signals a session rename completion.
type SessionRenamedMsg struct {
	SessionID string
	Err       error
}

// =============================================================================
// EXCHANGE MESSAGES
// =============================================================================

// ExchangeDoneMsg signals that a submitted query completed, successfully
// or not. On failure the controller has already rolled the log back and
// holds the input text for restore.
type ExchangeDoneMsg struct {
	Err error
}

// ReconciledMsg signals that the post-exchange history reconcile
// finished and server message ids may now be available.
type ReconciledMsg struct {
	Err error
}

// =============================================================================
// FEEDBACK MESSAGES
// =============================================================================

// FeedbackSentMsg signals a feedback submission completion.
type FeedbackSentMsg struct {
	MessageID string
	Err       error
}

// =============================================================================
// SETTINGS MESSAGES
// =============================================================================

// SettingsChangedMsg signals that the configuration was reloaded from
// disk and preference-dependent rendering should refresh.
type SettingsChangedMsg struct{}

// =============================================================================
// UI MESSAGES
// =============================================================================

// ErrDismissMsg clears the error banner after its display period.
type ErrDismissMsg struct{}
