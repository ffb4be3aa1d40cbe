// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/akjha-17/ragchat-tui/internal/model"
	"github.com/akjha-17/ragchat-tui/internal/util"
)

// View renders the full chat screen.
func (m *Model) View() string {
	if !m.ready {
		return "loading..."
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderSidebar(),
		lipgloss.JoinVertical(lipgloss.Left,
			m.viewport.View(),
			m.renderInput(),
		),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderStatusBar(),
	)
}

// refreshViewport rebuilds the message log content from the controller
// snapshot. gotoBottom forces the scroll position to the newest message.
func (m *Model) refreshViewport(gotoBottom bool) {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderMessages())
	if gotoBottom {
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// HEADER AND STATUS BAR
// =============================================================================

func (m *Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("ragchat")
	sub := ""
	if session, ok := m.controller.Active(); ok && session.Title != "" {
		sub = m.theme.HeaderSubtitle.Render(" - " + util.TruncateWidth(session.Title, 48))
	}
	who := ""
	if m.greeting != "" {
		who = m.theme.HeaderSubtitle.Render("  (" + m.greeting + ")")
	}
	return m.theme.Header.Width(m.width).Render(title + sub + who)
}

func (m *Model) renderStatusBar() string {
	if m.errText != "" {
		return m.theme.ErrorBox.Width(m.width - 2).Render(
			m.theme.ErrorTitle.Render("error: ") + m.theme.ErrorMessage.Render(m.errText))
	}

	if m.showHelp {
		return m.theme.StatusBar.Width(m.width).Render(m.helpLine())
	}

	var status string
	switch {
	case m.renaming:
		status = m.theme.ShortcutDesc.Render("renaming session: ") +
			m.theme.ShortcutKey.Render("Enter") + m.theme.ShortcutDesc.Render(" save  ") +
			m.theme.ShortcutKey.Render("Esc") + m.theme.ShortcutDesc.Render(" cancel")
	case m.controller.Busy():
		status = m.spinner.View() + m.theme.ThinkingText.Render(" thinking...")
	case m.controller.LoadingHistory():
		status = m.spinner.View() + m.theme.ThinkingText.Render(" loading history...")
	default:
		status = m.theme.ShortcutKey.Render("C-h") + m.theme.ShortcutDesc.Render(" help  ") +
			m.theme.ShortcutKey.Render("C-n") + m.theme.ShortcutDesc.Render(" new chat  ") +
			m.theme.ShortcutKey.Render("C-c") + m.theme.ShortcutDesc.Render(" quit")
	}
	return m.theme.StatusBar.Width(m.width).Render(status)
}

func (m *Model) helpLine() string {
	pairs := []struct{ k, d string }{
		{"Enter", "send"},
		{"C-n", "new chat"},
		{"C-p/C-j", "switch session"},
		{"C-x", "delete session"},
		{"C-r", "rename session"},
		{"C-g/C-b", "rate answer"},
		{"C-s", "sources"},
		{"PgUp/PgDn", "scroll"},
		{"C-c", "quit"},
	}
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(m.theme.ShortcutKey.Render(p.k))
		b.WriteString(m.theme.ShortcutDesc.Render(" " + p.d))
	}
	return b.String()
}

// =============================================================================
// SIDEBAR
// =============================================================================

func (m *Model) renderSidebar() string {
	sessions := m.controller.Sessions()
	active := m.controller.ActiveID()

	var b strings.Builder
	b.WriteString(m.theme.SessionMeta.Render("sessions"))
	b.WriteString("\n")

	if len(sessions) == 0 {
		b.WriteString(m.theme.SessionMeta.Render("(none yet)"))
	}
	for _, s := range sessions {
		title := s.Title
		if title == "" {
			title = "untitled"
		}
		line := util.TruncateWidth(title, sidebarWidth-4)
		if s.ID == active {
			b.WriteString(m.theme.SessionItemSelected.Render(line))
		} else {
			b.WriteString(m.theme.SessionItem.Render(line))
		}
		b.WriteString("\n")
		if s.MessageCount > 0 {
			b.WriteString(m.theme.SessionMeta.Render(fmt.Sprintf("   %d messages", s.MessageCount)))
			b.WriteString("\n")
		}
	}

	return m.theme.Sidebar.
		Width(sidebarWidth).
		Height(m.viewport.Height + 3).
		Render(b.String())
}

// =============================================================================
// MESSAGE LOG
// =============================================================================

func (m *Model) renderMessages() string {
	msgs := m.controller.Messages()
	if len(msgs) == 0 {
		if m.controller.ActiveID() == "" {
			return m.theme.ThinkingText.Render("Start a new conversation: type a question and press Enter.")
		}
		return ""
	}

	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 && !m.settings.Current().UI.CompactMode {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderMessage(msg model.Message) string {
	role := m.theme.MessageRole.Render(msg.Role.DisplayName())
	if m.settings.Current().UI.ShowTimestamps && !msg.Timestamp.IsZero() {
		role += m.theme.MessageTime.Render("  " + msg.Timestamp.Format("15:04"))
	}

	switch {
	case msg.IsPending():
		return role + "\n" + m.theme.PendingBubble.Render(m.spinner.View()+" waiting for answer...")

	case msg.Role == model.RoleUser:
		return role + "\n" + m.theme.UserBubble.Render(msg.Content)

	default:
		body := strings.TrimRight(m.renderMarkdown(msg.Content), "\n")
		out := role + "\n" + m.theme.AssistantBubble.Render(body)
		if m.showSources && len(msg.Sources) > 0 {
			out += "\n" + m.renderSources(msg.Sources)
		}
		if note := m.feedbackNote(msg); note != "" {
			out += "\n" + note
		}
		return out
	}
}

func (m *Model) renderSources(sources []model.Source) string {
	var b strings.Builder
	b.WriteString(m.theme.SourceItem.Render("sources:"))
	for _, s := range sources {
		b.WriteString("\n  - ")
		b.WriteString(s.Label())
		if s.Score > 0 {
			b.WriteString(fmt.Sprintf(" (%.2f)", s.Score))
		}
	}
	return m.theme.SourceList.Render(b.String())
}

// feedbackNote renders the rating state under an answer.
func (m *Model) feedbackNote(msg model.Message) string {
	if !m.settings.FeedbackEnabled() {
		return ""
	}
	if msg.FeedbackSubmitted && msg.Rating != nil {
		switch *msg.Rating {
		case model.RatingThumbsUp:
			return m.theme.FeedbackDone.Render("  rated: helpful")
		case model.RatingThumbsDown:
			return m.theme.FeedbackDone.Render("  rated: not helpful")
		default:
			return m.theme.FeedbackDone.Render(fmt.Sprintf("  rated: %d/5", *msg.Rating))
		}
	}
	if msg.HasServerID() {
		return m.theme.FeedbackHint.Render("  C-g helpful / C-b not helpful")
	}
	return ""
}

// =============================================================================
// INPUT
// =============================================================================

func (m *Model) renderInput() string {
	return m.theme.InputContainer.
		Width(m.viewport.Width).
		Render(m.input.View())
}
