// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/akjha-17/ragchat-tui/internal/api"
	core "github.com/akjha-17/ragchat-tui/internal/chat"
	"github.com/akjha-17/ragchat-tui/internal/model"
)

// Update is the Bubble Tea update loop.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.controller.Busy() || m.controller.LoadingHistory() {
			// Optimistic entries land from the command goroutine; the tick
			// is what makes them visible while the answer is in flight.
			m.refreshViewport(true)
		}
		return m, cmd

	case SessionsLoadedMsg:
		if msg.Err != nil {
			return m.showError(msg.Err)
		}
		if msg.Selected != "" {
			return m, m.selectSessionCmd(msg.Selected)
		}
		m.refreshViewport(false)
		return m, nil

	case HistoryLoadedMsg:
		if errors.Is(msg.Err, core.ErrStale) {
			return m, nil
		}
		if msg.Err != nil {
			return m.showError(msg.Err)
		}
		m.refreshViewport(true)
		return m, nil

	case ExchangeDoneMsg:
		m.refreshViewport(true)
		if errors.Is(msg.Err, core.ErrStale) {
			return m, nil
		}
		if msg.Err != nil {
			// The controller rolled the log back; put the query back in
			// the input box for editing.
			if restore := m.controller.RestoreInput(); restore != "" {
				m.input.SetValue(restore)
				m.input.CursorEnd()
			}
			return m.showError(msg.Err)
		}
		return m, m.afterExchangeCmd()

	case ReconciledMsg:
		// Best effort; failures were already logged.
		m.refreshViewport(false)
		return m, nil

	case SessionDeletedMsg:
		if msg.Err != nil {
			return m.showError(msg.Err)
		}
		m.refreshViewport(true)
		return m, nil

	case SessionRenamedMsg:
		if msg.Err != nil {
			return m.showError(msg.Err)
		}
		return m, nil

	case FeedbackSentMsg:
		// Feedback is non-critical: submission failures are already logged
		// by the controller and never raise the banner. Only local
		// validation problems are worth telling the user about.
		if msg.Err != nil && (errors.Is(msg.Err, core.ErrFeedbackDisabled) ||
			errors.Is(msg.Err, core.ErrInvalidRating)) {
			return m.showError(msg.Err)
		}
		m.refreshViewport(false)
		return m, nil

	case SettingsChangedMsg:
		m.showSources = m.settings.ShowSources()
		m.refreshViewport(false)
		return m, m.watchSettingsCmd()

	case ErrDismissMsg:
		m.errText = ""
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleKey dispatches key presses.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.renaming {
		return m.handleRenameKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		text := m.input.Value()
		if text == "" || m.controller.Busy() {
			return m, nil
		}
		m.input.Reset()
		m.refreshViewport(true)
		return m, m.submitQueryCmd(text)

	case key.Matches(msg, m.keys.Rename):
		session, ok := m.controller.Active()
		if !ok || m.controller.Busy() {
			return m, nil
		}
		m.renaming = true
		m.input.SetValue(session.Title)
		m.input.CursorEnd()
		return m, nil

	case key.Matches(msg, m.keys.NewSession):
		if err := m.controller.StartNewSession(); err != nil {
			return m.showError(err)
		}
		m.refreshViewport(true)
		return m, nil

	case key.Matches(msg, m.keys.PrevSession):
		return m.stepSession(-1)

	case key.Matches(msg, m.keys.NextSession):
		return m.stepSession(1)

	case key.Matches(msg, m.keys.Delete):
		if id := m.controller.ActiveID(); id != "" {
			return m, m.deleteSessionCmd(id)
		}
		return m, nil

	case key.Matches(msg, m.keys.Sources):
		m.showSources = !m.showSources
		m.refreshViewport(false)
		return m, nil

	case key.Matches(msg, m.keys.ThumbsUp):
		return m.rateLast(model.RatingThumbsUp)

	case key.Matches(msg, m.keys.ThumbsDown):
		return m.rateLast(model.RatingThumbsDown)

	case key.Matches(msg, m.keys.Up):
		m.viewport.LineUp(1)
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.viewport.LineDown(1)
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleRenameKey runs while the input box is editing the active session
// title. Enter commits, Esc abandons.
func (m *Model) handleRenameKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.renaming = false
		m.input.Reset()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		title := m.input.Value()
		id := m.controller.ActiveID()
		m.renaming = false
		m.input.Reset()
		if title == "" || id == "" {
			return m, nil
		}
		return m, m.renameSessionCmd(id, title)

	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// stepSession moves the selection through the session list. Selection is
// refused while an exchange is in flight so the in-flight answer has a
// stable target; the controller would fence it anyway.
func (m *Model) stepSession(delta int) (tea.Model, tea.Cmd) {
	if m.controller.Busy() {
		return m, nil
	}
	sessions := m.controller.Sessions()
	if len(sessions) == 0 {
		return m, nil
	}

	active := m.controller.ActiveID()
	idx := -1
	for i, s := range sessions {
		if s.ID == active {
			idx = i
			break
		}
	}
	next := idx + delta
	if next < 0 || next >= len(sessions) {
		return m, nil
	}
	return m, m.selectSessionCmd(sessions[next].ID)
}

// rateLast submits thumbs feedback for the newest eligible answer.
func (m *Model) rateLast(rating int) (tea.Model, tea.Cmd) {
	if !m.settings.FeedbackEnabled() {
		return m, nil
	}
	id, ok := m.lastRatable()
	if !ok {
		return m, nil
	}
	return m, m.feedbackCmd(id, rating)
}

// showError surfaces an error in the banner with a concise, user-facing
// detail line.
func (m *Model) showError(err error) (tea.Model, tea.Cmd) {
	m.errText = api.Detail(err, err.Error())
	return m, dismissErrorCmd()
}
