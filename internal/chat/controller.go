// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/akjha-17/ragchat-tui/internal/api"
	"github.com/akjha-17/ragchat-tui/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrEmptyQuery is returned when the submitted text is blank.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrBusy is returned when an exchange is already in flight.
	ErrBusy = errors.New("an exchange is already in progress")

	// ErrStale marks a completed operation whose result was discarded
	// because the user navigated away while it was in flight. Callers
	// treat it as a non-event.
	ErrStale = errors.New("result discarded: selection changed")

	// ErrFeedbackSubmitted is returned when a message already has feedback.
	ErrFeedbackSubmitted = errors.New("feedback already submitted for this message")

	// ErrFeedbackDisabled is returned when feedback is turned off in
	// preferences.
	ErrFeedbackDisabled = errors.New("feedback is disabled in preferences")

	// ErrNotEligible is returned for messages that cannot take feedback:
	// user messages, pending placeholders, or answers the backend has not
	// assigned an id to yet.
	ErrNotEligible = errors.New("message is not eligible for feedback")

	// ErrInvalidRating is returned for ratings outside 1-5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)

// =============================================================================
// PHASE
// =============================================================================

// Phase is the controller's exchange lifecycle state. At most one exchange
// is in flight at a time; input submission is refused outside PhaseIdle.
type Phase int

const (
	// PhaseIdle accepts input.
	PhaseIdle Phase = iota

	// PhaseCreatingSession covers the implicit session-create that runs
	// before the first ask of a fresh conversation.
	PhaseCreatingSession

	// PhaseAwaitingAnswer covers an in-flight ask.
	PhaseAwaitingAnswer
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCreatingSession:
		return "creating-session"
	case PhaseAwaitingAnswer:
		return "awaiting-answer"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// Backend is the slice of the API client the controller needs. *api.Client
// satisfies it; tests substitute a fake.
type Backend interface {
	ListSessions(ctx context.Context) ([]model.Session, error)
	CreateSession(ctx context.Context, title string) (model.Session, error)
	SessionDetail(ctx context.Context, id string) (model.Session, []model.Message, error)
	RenameSession(ctx context.Context, id, title string) error
	DeleteSession(ctx context.Context, id string) error
	Ask(ctx context.Context, req api.AskRequest) (*api.AskResponse, error)
	SubmitMessageFeedback(ctx context.Context, messageID int64, rating int, comment string) error
}

// Preferences supplies the user-tunable knobs that shape an exchange.
type Preferences interface {
	ResponseLength() int
	FeedbackEnabled() bool
}

// ExchangeRecord is one completed question/answer pair, handed to the
// optional Recorder after every successful ask.
type ExchangeRecord struct {
	SessionID string
	Query     string
	Answer    string
	Sources   int
	Duration  time.Duration
	AskedAt   time.Time
}

// Recorder receives completed exchanges for local history. Implementations
// must not block for long; recording failures are logged, never surfaced.
type Recorder interface {
	Record(ctx context.Context, rec ExchangeRecord) error
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns the client-side conversation state: the session list, the
// active session, its message log, and the optimistic-update lifecycle of
// an exchange. All methods are safe for concurrent use; the blocking ones
// take a context and are meant to run on their own goroutine (a bubbletea
// command or a CLI call).
type Controller struct {
	backend  Backend
	prefs    Preferences
	recorder Recorder

	mu       sync.Mutex
	sessions []model.Session
	activeID string
	messages []model.Message
	phase    Phase

	// restoreText holds the verbatim input of a failed submission so the
	// UI can put it back in the input box.
	restoreText string

	// fetchSeq fences history fetches and exchange completions: any
	// result carrying a stale sequence number is discarded instead of
	// being applied to whatever session the user has since selected.
	fetchSeq uint64

	loadingHistory bool
}

// NewController creates a controller over the given backend.
func NewController(backend Backend, prefs Preferences) *Controller {
	return &Controller{backend: backend, prefs: prefs}
}

// WithRecorder attaches a local exchange recorder.
func (c *Controller) WithRecorder(r Recorder) *Controller {
	c.recorder = r
	return c
}

// =============================================================================
// SESSION LIST
// =============================================================================

// LoadSessions fetches the session list. When nothing is selected yet and
// the list is non-empty, the most recent session is selected and its id
// returned so the caller can fetch its history. A load failure leaves the
// current list untouched.
func (c *Controller) LoadSessions(ctx context.Context) (selected string, err error) {
	sessions, err := c.backend.ListSessions(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load sessions: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions = sessions
	if c.activeID == "" && len(sessions) > 0 {
		c.activeID = sessions[0].ID
		return sessions[0].ID, nil
	}
	return "", nil
}

// RefreshSessions refetches the list without touching the selection. Used
// after an exchange to pick up server-side message counts and titles.
func (c *Controller) RefreshSessions(ctx context.Context) error {
	sessions, err := c.backend.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh sessions: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions = sessions
	return nil
}

// SelectSession makes id the active session and fetches its message log.
// If the user selects something else before the fetch lands, the stale
// result is discarded and ErrStale returned.
func (c *Controller) SelectSession(ctx context.Context, id string) error {
	c.mu.Lock()
	c.fetchSeq++
	seq := c.fetchSeq
	c.activeID = id
	c.messages = nil
	c.loadingHistory = true
	c.mu.Unlock()

	session, messages, err := c.backend.SessionDetail(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.fetchSeq {
		return ErrStale
	}
	c.loadingHistory = false
	if err != nil {
		return fmt.Errorf("failed to load session history: %w", err)
	}
	c.messages = messages
	c.updateSessionLocked(session)
	return nil
}

// StartNewSession clears the active selection so the next submission
// creates a fresh session. Refused while an exchange is in flight.
func (c *Controller) StartNewSession() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseIdle {
		return ErrBusy
	}
	c.fetchSeq++
	c.activeID = ""
	c.messages = nil
	c.loadingHistory = false
	return nil
}

// DeleteSession removes a session on the backend and locally. Deleting the
// active session clears the message log and selection. On failure nothing
// changes locally.
func (c *Controller) DeleteSession(ctx context.Context, id string) error {
	if err := c.backend.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, s := range c.sessions {
		if s.ID == id {
			c.sessions = append(c.sessions[:i], c.sessions[i+1:]...)
			break
		}
	}
	if c.activeID == id {
		c.fetchSeq++
		c.activeID = ""
		c.messages = nil
		c.loadingHistory = false
	}
	return nil
}

// RenameSession sets a new title on the backend and mirrors it locally.
func (c *Controller) RenameSession(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return errors.New("title is empty")
	}
	if err := c.backend.RenameSession(ctx, id, title); err != nil {
		return fmt.Errorf("failed to rename session: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.sessions {
		if c.sessions[i].ID == id {
			c.sessions[i].Title = title
			break
		}
	}
	return nil
}

// =============================================================================
// EXCHANGE
// =============================================================================

// SubmitQuery runs one full exchange: optimistic append of the user message
// and a pending placeholder, implicit session creation with a synthesized
// title when nothing is selected, the ask itself, and either placeholder
// replacement or rollback.
//
// On failure both optimistic entries are removed and the verbatim input is
// made available through RestoreInput, so the log returns to its
// pre-exchange state and the user can edit and resubmit.
func (c *Controller) SubmitQuery(ctx context.Context, text string) error {
	query := strings.TrimSpace(text)
	if query == "" {
		return ErrEmptyQuery
	}

	c.mu.Lock()
	if c.phase != PhaseIdle {
		c.mu.Unlock()
		return ErrBusy
	}
	sessionID := c.activeID
	needSession := sessionID == ""
	if needSession {
		c.phase = PhaseCreatingSession
	} else {
		c.phase = PhaseAwaitingAnswer
	}
	c.restoreText = ""
	seq := c.fetchSeq
	c.mu.Unlock()

	if needSession {
		session, err := c.backend.CreateSession(ctx, SynthesizeTitle(query))
		c.mu.Lock()
		if err != nil {
			c.phase = PhaseIdle
			c.restoreText = text
			c.mu.Unlock()
			return fmt.Errorf("failed to create session: %w", err)
		}
		c.sessions = append([]model.Session{session}, c.sessions...)
		c.activeID = session.ID
		c.phase = PhaseAwaitingAnswer
		sessionID = session.ID
		seq = c.fetchSeq
		c.mu.Unlock()
	}

	userMsg := model.NewUserMessage(query)
	placeholder := model.NewPendingMessage()
	c.mu.Lock()
	c.messages = append(c.messages, userMsg, placeholder)
	c.mu.Unlock()

	started := time.Now()
	resp, err := c.backend.Ask(ctx, api.AskRequest{
		Query:          query,
		UseSynthesis:   true,
		SessionID:      sessionID,
		ResponseLength: c.prefs.ResponseLength(),
	})
	elapsed := time.Since(started)

	c.mu.Lock()
	c.phase = PhaseIdle
	stale := seq != c.fetchSeq || c.activeID != sessionID
	if stale {
		// The user switched away mid-flight; the optimistic entries were
		// already dropped with the old log. On success the backend has
		// recorded the exchange, so history stays correct.
		c.mu.Unlock()
		if err != nil {
			log.Printf("chat: ask for abandoned session %s failed: %v", sessionID, err)
			return ErrStale
		}
		c.record(ctx, sessionID, query, resp, elapsed)
		return ErrStale
	}
	if err != nil {
		c.removeMessageLocked(placeholder.ID)
		c.removeMessageLocked(userMsg.ID)
		c.restoreText = text
		c.mu.Unlock()
		return fmt.Errorf("failed to get answer: %w", err)
	}
	answer := model.NewAssistantMessage(resp.Answer, resp.Sources)
	c.replaceMessageLocked(placeholder.ID, answer)
	c.touchSessionLocked(sessionID)
	c.mu.Unlock()

	c.record(ctx, sessionID, query, resp, elapsed)
	return nil
}

// ReconcileActive refetches the active session's log so optimistic entries
// gain server identity (needed for feedback). The fetch is fenced the same
// way as SelectSession; it is skipped outright while an exchange is in
// flight.
func (c *Controller) ReconcileActive(ctx context.Context) error {
	c.mu.Lock()
	if c.activeID == "" || c.phase != PhaseIdle {
		c.mu.Unlock()
		return nil
	}
	id := c.activeID
	seq := c.fetchSeq
	c.mu.Unlock()

	session, messages, err := c.backend.SessionDetail(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.fetchSeq || c.activeID != id || c.phase != PhaseIdle {
		return ErrStale
	}
	if err != nil {
		// Best effort: the optimistic log is already correct content-wise.
		log.Printf("chat: history reconcile for %s failed: %v", id, err)
		return nil
	}
	c.messages = messages
	c.updateSessionLocked(session)
	return nil
}

func (c *Controller) record(ctx context.Context, sessionID, query string, resp *api.AskResponse, elapsed time.Duration) {
	if c.recorder == nil {
		return
	}
	rec := ExchangeRecord{
		SessionID: sessionID,
		Query:     query,
		Answer:    resp.Answer,
		Sources:   len(resp.Sources),
		Duration:  elapsed,
		AskedAt:   time.Now().Add(-elapsed),
	}
	if err := c.recorder.Record(ctx, rec); err != nil {
		log.Printf("chat: failed to record exchange: %v", err)
	}
}

// =============================================================================
// FEEDBACK
// =============================================================================

// SubmitMessageFeedback rates an assistant answer. Only delivered messages
// with server identity are eligible, and each message takes feedback at
// most once. Thumbs map to the discrete ratings in the model package.
func (c *Controller) SubmitMessageFeedback(ctx context.Context, messageID string, rating int, kind model.FeedbackKind, comment string) error {
	if !c.prefs.FeedbackEnabled() {
		return ErrFeedbackDisabled
	}
	if !model.ValidRating(rating) {
		return ErrInvalidRating
	}

	c.mu.Lock()
	idx := c.indexOfLocked(messageID)
	if idx < 0 {
		c.mu.Unlock()
		return ErrNotEligible
	}
	msg := c.messages[idx]
	switch {
	case msg.Role != model.RoleAssistant, msg.State != model.StateDelivered, !msg.HasServerID():
		c.mu.Unlock()
		return ErrNotEligible
	case msg.FeedbackSubmitted:
		c.mu.Unlock()
		return ErrFeedbackSubmitted
	}
	serverID := msg.ServerID
	c.mu.Unlock()

	if err := c.backend.SubmitMessageFeedback(ctx, serverID, rating, comment); err != nil {
		log.Printf("chat: feedback for message %d failed: %v", serverID, err)
		return fmt.Errorf("failed to submit feedback: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Re-locate: the log may have been reconciled while the call ran.
	for i := range c.messages {
		if c.messages[i].ServerID == serverID {
			r := rating
			c.messages[i].Rating = &r
			c.messages[i].FeedbackComment = comment
			c.messages[i].FeedbackKind = kind
			c.messages[i].FeedbackSubmitted = true
			break
		}
	}
	return nil
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Sessions returns a copy of the session list, most recent first.
func (c *Controller) Sessions() []model.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Session, len(c.sessions))
	copy(out, c.sessions)
	return out
}

// Messages returns a copy of the active session's message log.
func (c *Controller) Messages() []model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Active returns the active session, if any.
func (c *Controller) Active() (model.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeID == "" {
		return model.Session{}, false
	}
	for _, s := range c.sessions {
		if s.ID == c.activeID {
			return s, true
		}
	}
	// Selected but not yet present in the list (fresh session whose list
	// refresh has not landed).
	return model.Session{ID: c.activeID}, true
}

// ActiveID returns the active session id, or "".
func (c *Controller) ActiveID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeID
}

// Phase returns the exchange lifecycle phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Busy reports whether an exchange is in flight.
func (c *Controller) Busy() bool {
	return c.Phase() != PhaseIdle
}

// LoadingHistory reports whether a history fetch is outstanding.
func (c *Controller) LoadingHistory() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadingHistory
}

// RestoreInput returns the input text of the last failed submission and
// clears it. Returns "" when there is nothing to restore.
func (c *Controller) RestoreInput() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	text := c.restoreText
	c.restoreText = ""
	return text
}

// =============================================================================
// INTERNAL HELPERS
// =============================================================================

func (c *Controller) indexOfLocked(id string) int {
	for i := range c.messages {
		if c.messages[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Controller) removeMessageLocked(id string) {
	if i := c.indexOfLocked(id); i >= 0 {
		c.messages = append(c.messages[:i], c.messages[i+1:]...)
	}
}

func (c *Controller) replaceMessageLocked(id string, with model.Message) {
	if i := c.indexOfLocked(id); i >= 0 {
		c.messages[i] = with
	}
}

func (c *Controller) updateSessionLocked(session model.Session) {
	for i := range c.sessions {
		if c.sessions[i].ID == session.ID {
			c.sessions[i] = session
			return
		}
	}
}

// touchSessionLocked bumps local session metadata after an exchange so the
// sidebar stays plausible until the next list refresh.
func (c *Controller) touchSessionLocked(id string) {
	for i := range c.sessions {
		if c.sessions[i].ID == id {
			now := time.Now()
			c.sessions[i].MessageCount += 2
			c.sessions[i].UpdatedAt = now
			c.sessions[i].LastMessageTime = now
			return
		}
	}
}
