// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the conversation state machine sitting between the UI
// and the backend client.
//
// The Controller tracks the session list, the active session, and its
// message log, and drives exchanges with optimistic updates: the user
// message and a pending assistant placeholder appear immediately, the
// placeholder is replaced when the answer arrives, and both entries are
// rolled back (with the input text preserved) when the ask fails.
//
// Results of slow calls are fenced with a sequence number so that a
// history fetch or an answer landing after the user has switched sessions
// is discarded instead of corrupting the newly selected log.
package chat
