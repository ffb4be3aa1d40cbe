// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	core "github.com/akjha-17/ragchat-tui/internal/chat"
	"github.com/akjha-17/ragchat-tui/internal/config"
	"github.com/akjha-17/ragchat-tui/internal/model"
	"github.com/akjha-17/ragchat-tui/internal/ui/styles"
)

// sidebarWidth is the fixed width of the session list column.
const sidebarWidth = 28

// Model is the Bubble Tea model for the chat view. Conversation state
// lives in the controller; the model only holds presentation state.
type Model struct {
	controller  *core.Controller
	settings    *config.SettingsStore
	settingsSub <-chan struct{}
	theme       *styles.Theme
	keys        KeyMap

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	width  int
	height int
	ready  bool

	// greeting is shown in the header, e.g. the logged-in username.
	greeting string

	showHelp    bool
	showSources bool
	errText     string

	// renaming switches the input box to edit the active session title.
	renaming bool
}

// New creates the chat view over an initialized controller and settings
// store.
func New(controller *core.Controller, settings *config.SettingsStore, greeting string) *Model {
	theme := styles.NewTheme(settings.Current().UI.Theme)

	input := textinput.New()
	input.Placeholder = "Ask a question..."
	input.Prompt = "> "
	input.PromptStyle = theme.InputPrompt
	input.PlaceholderStyle = theme.InputPlaceholder
	input.TextStyle = theme.InputText
	input.CharLimit = 4000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	return &Model{
		controller:  controller,
		settings:    settings,
		settingsSub: settings.Subscribe(),
		theme:       theme,
		keys:        DefaultKeyMap(),
		input:       input,
		spinner:     sp,
		greeting:    greeting,
		showSources: settings.ShowSources(),
	}
}

// Init starts the initial session load and the settings watcher.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadSessionsCmd(),
		m.watchSettingsCmd(),
		m.spinner.Tick,
	)
}

// resize recomputes the layout and rebuilds the markdown renderer for the
// new wrap width.
func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.ready = true

	contentWidth := width - sidebarWidth - 4
	if contentWidth < 20 {
		contentWidth = 20
	}

	viewportHeight := height - 6 // header, input, status bar
	if viewportHeight < 3 {
		viewportHeight = 3
	}
	m.viewport = viewport.New(contentWidth, viewportHeight)
	m.input.Width = contentWidth - 4

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(contentWidth-4),
	)
	if err == nil {
		m.renderer = renderer
	}

	m.refreshViewport(true)
}

// renderMarkdown renders assistant content, falling back to the raw text
// when the renderer is unavailable or preferences disable it.
func (m *Model) renderMarkdown(content string) string {
	if m.renderer == nil || !m.settings.RenderMarkdown() {
		return content
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return out
}

// lastRatable returns the local id of the newest assistant message that
// can still take feedback.
func (m *Model) lastRatable() (string, bool) {
	msgs := m.controller.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		msg := msgs[i]
		if msg.Role == model.RoleAssistant && msg.HasServerID() && !msg.FeedbackSubmitted {
			return msg.ID, true
		}
	}
	return "", false
}
