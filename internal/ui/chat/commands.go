// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file defines the tea.Cmd wrappers around the chat controller. Each
// command runs one blocking controller call on its own goroutine and
// reports completion with a typed message.

package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/akjha-17/ragchat-tui/internal/model"
)

// commandTimeout bounds every controller call issued by the UI. The ask
// itself is bounded separately by the API client's own timeout.
const commandTimeout = 3 * time.Minute

func (m *Model) loadSessionsCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		selected, err := m.controller.LoadSessions(ctx)
		return SessionsLoadedMsg{Selected: selected, Err: err}
	}
}

func (m *Model) selectSessionCmd(id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		err := m.controller.SelectSession(ctx, id)
		return HistoryLoadedMsg{SessionID: id, Err: err}
	}
}

func (m *Model) submitQueryCmd(text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return ExchangeDoneMsg{Err: m.controller.SubmitQuery(ctx, text)}
	}
}

func (m *Model) reconcileCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return ReconciledMsg{Err: m.controller.ReconcileActive(ctx)}
	}
}

func (m *Model) refreshSessionsCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		// Selection is preserved; reuse the loaded message without an
		// auto-select target.
		return SessionsLoadedMsg{Err: m.controller.RefreshSessions(ctx)}
	}
}

func (m *Model) renameSessionCmd(id, title string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return SessionRenamedMsg{SessionID: id, Err: m.controller.RenameSession(ctx, id, title)}
	}
}

func (m *Model) deleteSessionCmd(id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return SessionDeletedMsg{SessionID: id, Err: m.controller.DeleteSession(ctx, id)}
	}
}

func (m *Model) feedbackCmd(messageID string, rating int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		err := m.controller.SubmitMessageFeedback(ctx, messageID, rating, model.FeedbackThumbs, "")
		return FeedbackSentMsg{MessageID: messageID, Err: err}
	}
}

// watchSettingsCmd blocks until the settings store reports a reload.
// Re-issued after each tick so edits keep flowing in.
func (m *Model) watchSettingsCmd() tea.Cmd {
	return func() tea.Msg {
		<-m.settingsSub
		return SettingsChangedMsg{}
	}
}

func dismissErrorCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return ErrDismissMsg{}
	})
}

// afterExchangeCmd refreshes the session list and reconciles server
// message ids once an exchange lands.
func (m *Model) afterExchangeCmd() tea.Cmd {
	return tea.Batch(m.refreshSessionsCmd(), m.reconcileCmd())
}
