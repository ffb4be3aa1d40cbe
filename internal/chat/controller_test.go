// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/akjha-17/ragchat-tui/internal/api"
	"github.com/akjha-17/ragchat-tui/internal/model"
)

// =============================================================================
// FAKE COLLABORATORS
// =============================================================================

type fakePrefs struct {
	length   int
	feedback bool
}

func (p fakePrefs) ResponseLength() int   { return p.length }
func (p fakePrefs) FeedbackEnabled() bool { return p.feedback }

// fakeBackend is an in-memory Backend. Hook fields override individual
// calls; everything else behaves like a well-behaved server.
type fakeBackend struct {
	mu       sync.Mutex
	sessions []model.Session
	detail   map[string][]model.Message

	asks      []api.AskRequest
	feedbacks []int64

	askHook    func(req api.AskRequest) (*api.AskResponse, error)
	detailHook func(id string) ([]model.Message, error)
	createErr  error
	deleteErr  error
	fbErr      error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{detail: map[string][]model.Message{}}
}

func (f *fakeBackend) addSession(id, title string, msgs ...model.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, model.Session{ID: id, Title: title, MessageCount: len(msgs)})
	f.detail[id] = msgs
}

func (f *fakeBackend) ListSessions(ctx context.Context) ([]model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Session, len(f.sessions))
	copy(out, f.sessions)
	return out, nil
}

func (f *fakeBackend) CreateSession(ctx context.Context, title string) (model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return model.Session{}, f.createErr
	}
	id := "s-" + time.Now().Format("150405.000000")
	s := model.Session{ID: id, Title: title, CreatedAt: time.Now()}
	f.sessions = append([]model.Session{s}, f.sessions...)
	f.detail[id] = nil
	return s, nil
}

func (f *fakeBackend) SessionDetail(ctx context.Context, id string) (model.Session, []model.Message, error) {
	if f.detailHook != nil {
		msgs, err := f.detailHook(id)
		return model.Session{ID: id}, msgs, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.ID == id {
			return s, f.detail[id], nil
		}
	}
	return model.Session{}, nil, api.ErrNotFound
}

func (f *fakeBackend) RenameSession(ctx context.Context, id, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.sessions {
		if f.sessions[i].ID == id {
			f.sessions[i].Title = title
			return nil
		}
	}
	return api.ErrNotFound
}

func (f *fakeBackend) DeleteSession(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i := range f.sessions {
		if f.sessions[i].ID == id {
			f.sessions = append(f.sessions[:i], f.sessions[i+1:]...)
			delete(f.detail, id)
			return nil
		}
	}
	return api.ErrNotFound
}

func (f *fakeBackend) Ask(ctx context.Context, req api.AskRequest) (*api.AskResponse, error) {
	f.mu.Lock()
	f.asks = append(f.asks, req)
	f.mu.Unlock()
	if f.askHook != nil {
		return f.askHook(req)
	}
	return &api.AskResponse{
		Query:     req.Query,
		Answer:    "answer to: " + req.Query,
		Sources:   []model.Source{{File: "doc.pdf", PageNumber: 3}},
		SessionID: req.SessionID,
	}, nil
}

func (f *fakeBackend) SubmitMessageFeedback(ctx context.Context, messageID int64, rating int, comment string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fbErr != nil {
		return f.fbErr
	}
	f.feedbacks = append(f.feedbacks, messageID)
	return nil
}

func newController(backend Backend) *Controller {
	return NewController(backend, fakePrefs{length: 50, feedback: true})
}

// =============================================================================
// EXCHANGE TESTS
// =============================================================================

func TestSubmitQueryExistingSession(t *testing.T) {
	backend := newFakeBackend()
	backend.addSession("s1", "First")
	ctrl := newController(backend)

	if _, err := ctrl.LoadSessions(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := ctrl.SelectSession(context.Background(), "s1"); err != nil {
		t.Fatal(err)
	}

	if err := ctrl.SubmitQuery(context.Background(), "what is the refund policy?"); err != nil {
		t.Fatalf("SubmitQuery: %v", err)
	}

	msgs := ctrl.Messages()
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != model.RoleUser || msgs[0].Content != "what is the refund policy?" {
		t.Errorf("user message = %+v", msgs[0])
	}
	if msgs[1].Role != model.RoleAssistant || msgs[1].IsPending() {
		t.Errorf("assistant message not delivered: %+v", msgs[1])
	}
	if len(msgs[1].Sources) != 1 {
		t.Errorf("sources not attached: %+v", msgs[1])
	}
	if ctrl.Phase() != PhaseIdle {
		t.Errorf("phase = %v after exchange", ctrl.Phase())
	}
	// Exactly one backend ask, carrying the session and preferences.
	if len(backend.asks) != 1 {
		t.Fatalf("backend saw %d asks, want 1", len(backend.asks))
	}
	if req := backend.asks[0]; req.SessionID != "s1" || req.ResponseLength != 50 || !req.UseSynthesis {
		t.Errorf("ask request = %+v", req)
	}
}

func TestSubmitQueryCreatesSessionWithSynthesizedTitle(t *testing.T) {
	backend := newFakeBackend()
	ctrl := newController(backend)

	if err := ctrl.SubmitQuery(context.Background(), "What is the refund policy?"); err != nil {
		t.Fatalf("SubmitQuery: %v", err)
	}

	sessions := ctrl.Sessions()
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions))
	}
	if sessions[0].Title != "The refund policy" {
		t.Errorf("synthesized title = %q", sessions[0].Title)
	}
	if ctrl.ActiveID() != sessions[0].ID {
		t.Error("new session not selected")
	}
	if len(ctrl.Messages()) != 2 {
		t.Errorf("got %d messages, want 2", len(ctrl.Messages()))
	}
}

func TestSubmitQueryFailureRollsBackBothMessages(t *testing.T) {
	backend := newFakeBackend()
	backend.addSession("s1", "First")
	backend.askHook = func(api.AskRequest) (*api.AskResponse, error) {
		return nil, errors.New("backend exploded")
	}
	ctrl := newController(backend)
	if err := ctrl.SelectSession(context.Background(), "s1"); err != nil {
		t.Fatal(err)
	}

	input := "  why did the build fail?  "
	err := ctrl.SubmitQuery(context.Background(), input)
	if err == nil {
		t.Fatal("expected error")
	}

	if n := len(ctrl.Messages()); n != 0 {
		t.Errorf("log has %d messages after rollback, want 0", n)
	}
	if got := ctrl.RestoreInput(); got != input {
		t.Errorf("RestoreInput() = %q, want verbatim %q", got, input)
	}
	// Restore is one-shot.
	if got := ctrl.RestoreInput(); got != "" {
		t.Errorf("second RestoreInput() = %q, want empty", got)
	}
	if ctrl.Phase() != PhaseIdle {
		t.Errorf("phase = %v after failure", ctrl.Phase())
	}
}

func TestSubmitQueryCreateSessionFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.createErr = errors.New("quota exceeded")
	ctrl := newController(backend)

	err := ctrl.SubmitQuery(context.Background(), "hello there")
	if err == nil {
		t.Fatal("expected error")
	}
	if len(ctrl.Messages()) != 0 || len(ctrl.Sessions()) != 0 {
		t.Error("state mutated by failed session create")
	}
	if ctrl.RestoreInput() != "hello there" {
		t.Error("input not restored after failed session create")
	}
	if len(backend.asks) != 0 {
		t.Error("ask sent despite failed session create")
	}
}

func TestSubmitQueryEmptyRejected(t *testing.T) {
	ctrl := newController(newFakeBackend())
	for _, q := range []string{"", "   ", "\t\n"} {
		if err := ctrl.SubmitQuery(context.Background(), q); !errors.Is(err, ErrEmptyQuery) {
			t.Errorf("SubmitQuery(%q) err = %v, want ErrEmptyQuery", q, err)
		}
	}
}

func TestSubmitQueryRefusedWhileBusy(t *testing.T) {
	backend := newFakeBackend()
	backend.addSession("s1", "First")
	release := make(chan struct{})
	backend.askHook = func(req api.AskRequest) (*api.AskResponse, error) {
		<-release
		return &api.AskResponse{Answer: "late"}, nil
	}
	ctrl := newController(backend)
	if err := ctrl.SelectSession(context.Background(), "s1"); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- ctrl.SubmitQuery(context.Background(), "slow one") }()

	// Wait for the first exchange to reach the backend.
	for i := 0; ctrl.Phase() != PhaseAwaitingAnswer && i < 100; i++ {
		time.Sleep(time.Millisecond)
	}
	if err := ctrl.SubmitQuery(context.Background(), "second"); !errors.Is(err, ErrBusy) {
		t.Errorf("concurrent submit err = %v, want ErrBusy", err)
	}
	if err := ctrl.StartNewSession(); !errors.Is(err, ErrBusy) {
		t.Errorf("StartNewSession while busy err = %v, want ErrBusy", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first exchange: %v", err)
	}
	if len(backend.asks) != 1 {
		t.Errorf("backend saw %d asks, want exactly 1", len(backend.asks))
	}
}

func TestSubmitQueryResultDiscardedAfterSwitch(t *testing.T) {
	backend := newFakeBackend()
	backend.addSession("s1", "First")
	backend.addSession("s2", "Second", model.Message{ID: "srv-9", ServerID: 9, Role: model.RoleAssistant, Content: "old answer", State: model.StateDelivered})
	release := make(chan struct{})
	backend.askHook = func(req api.AskRequest) (*api.AskResponse, error) {
		<-release
		return &api.AskResponse{Answer: "late answer"}, nil
	}
	ctrl := newController(backend)
	if err := ctrl.SelectSession(context.Background(), "s1"); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- ctrl.SubmitQuery(context.Background(), "slow question") }()
	for i := 0; ctrl.Phase() != PhaseAwaitingAnswer && i < 100; i++ {
		time.Sleep(time.Millisecond)
	}

	// User switches away while the answer is in flight.
	if err := ctrl.SelectSession(context.Background(), "s2"); err != nil {
		t.Fatalf("SelectSession(s2): %v", err)
	}

	close(release)
	if err := <-done; !errors.Is(err, ErrStale) {
		t.Fatalf("abandoned exchange err = %v, want ErrStale", err)
	}

	msgs := ctrl.Messages()
	if len(msgs) != 1 || msgs[0].Content != "old answer" {
		t.Errorf("late answer leaked into the newly selected log: %+v", msgs)
	}
}

// =============================================================================
// SELECTION AND FENCING
// =============================================================================

func TestSelectSessionFencing(t *testing.T) {
	backend := newFakeBackend()
	backend.addSession("slow", "Slow")
	backend.addSession("fast", "Fast")

	gate := make(chan struct{})
	backend.detailHook = func(id string) ([]model.Message, error) {
		if id == "slow" {
			<-gate
			return []model.Message{{ID: "srv-1", ServerID: 1, Role: model.RoleAssistant, Content: "slow history", State: model.StateDelivered}}, nil
		}
		return []model.Message{{ID: "srv-2", ServerID: 2, Role: model.RoleAssistant, Content: "fast history", State: model.StateDelivered}}, nil
	}
	ctrl := newController(backend)

	done := make(chan error, 1)
	go func() { done <- ctrl.SelectSession(context.Background(), "slow") }()
	for i := 0; ctrl.ActiveID() != "slow" && i < 100; i++ {
		time.Sleep(time.Millisecond)
	}

	if err := ctrl.SelectSession(context.Background(), "fast"); err != nil {
		t.Fatalf("SelectSession(fast): %v", err)
	}
	close(gate)
	if err := <-done; !errors.Is(err, ErrStale) {
		t.Fatalf("stale select err = %v, want ErrStale", err)
	}

	msgs := ctrl.Messages()
	if len(msgs) != 1 || msgs[0].Content != "fast history" {
		t.Errorf("stale history applied: %+v", msgs)
	}
	if ctrl.ActiveID() != "fast" {
		t.Errorf("active = %q, want fast", ctrl.ActiveID())
	}
}

func TestLoadSessionsAutoSelectsFirst(t *testing.T) {
	backend := newFakeBackend()
	backend.addSession("s1", "Newest")
	backend.addSession("s2", "Older")
	ctrl := newController(backend)

	selected, err := ctrl.LoadSessions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if selected != "s1" {
		t.Errorf("selected = %q, want s1", selected)
	}
	if ctrl.ActiveID() != "s1" {
		t.Errorf("active = %q, want s1", ctrl.ActiveID())
	}

	// A later load keeps the existing selection.
	if selected, _ = ctrl.LoadSessions(context.Background()); selected != "" {
		t.Errorf("second load re-selected %q", selected)
	}
}

// =============================================================================
// SESSION MANAGEMENT
// =============================================================================

func TestDeleteActiveSessionClearsLog(t *testing.T) {
	backend := newFakeBackend()
	backend.addSession("s1", "First", model.Message{ID: "srv-1", ServerID: 1, Role: model.RoleUser, Content: "q", State: model.StateDelivered})
	ctrl := newController(backend)
	if err := ctrl.SelectSession(context.Background(), "s1"); err != nil {
		t.Fatal(err)
	}

	if err := ctrl.DeleteSession(context.Background(), "s1"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if ctrl.ActiveID() != "" {
		t.Error("active session survived its own deletion")
	}
	if len(ctrl.Messages()) != 0 {
		t.Error("message log survived deletion of its session")
	}
	if len(ctrl.Sessions()) != 0 {
		t.Error("session still listed after deletion")
	}
}

func TestDeleteOtherSessionKeepsLog(t *testing.T) {
	backend := newFakeBackend()
	backend.addSession("s1", "Active", model.Message{ID: "srv-1", ServerID: 1, Role: model.RoleUser, Content: "q", State: model.StateDelivered})
	backend.addSession("s2", "Doomed")
	ctrl := newController(backend)
	if err := ctrl.SelectSession(context.Background(), "s1"); err != nil {
		t.Fatal(err)
	}

	if err := ctrl.DeleteSession(context.Background(), "s2"); err != nil {
		t.Fatal(err)
	}
	if ctrl.ActiveID() != "s1" {
		t.Error("selection changed by deleting another session")
	}
	if len(ctrl.Messages()) != 1 {
		t.Error("log changed by deleting another session")
	}
}

func TestDeleteSessionFailureChangesNothing(t *testing.T) {
	backend := newFakeBackend()
	backend.addSession("s1", "First")
	backend.deleteErr = errors.New("forbidden")
	ctrl := newController(backend)
	if _, err := ctrl.LoadSessions(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := ctrl.DeleteSession(context.Background(), "s1"); err == nil {
		t.Fatal("expected error")
	}
	if len(ctrl.Sessions()) != 1 {
		t.Error("session removed locally despite backend failure")
	}
}

func TestRenameSession(t *testing.T) {
	backend := newFakeBackend()
	backend.addSession("s1", "Old title")
	ctrl := newController(backend)
	if _, err := ctrl.LoadSessions(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := ctrl.RenameSession(context.Background(), "s1", "New title"); err != nil {
		t.Fatal(err)
	}
	if got := ctrl.Sessions()[0].Title; got != "New title" {
		t.Errorf("title = %q", got)
	}

	if err := ctrl.RenameSession(context.Background(), "s1", "   "); err == nil {
		t.Error("blank rename accepted")
	}
}

// =============================================================================
// FEEDBACK
// =============================================================================

func TestSubmitMessageFeedback(t *testing.T) {
	backend := newFakeBackend()
	backend.addSession("s1", "First",
		model.Message{ID: "srv-7", ServerID: 7, Role: model.RoleAssistant, Content: "answer", State: model.StateDelivered})
	ctrl := newController(backend)
	if err := ctrl.SelectSession(context.Background(), "s1"); err != nil {
		t.Fatal(err)
	}

	err := ctrl.SubmitMessageFeedback(context.Background(), "srv-7", model.RatingThumbsUp, model.FeedbackThumbs, "useful")
	if err != nil {
		t.Fatalf("SubmitMessageFeedback: %v", err)
	}
	if len(backend.feedbacks) != 1 || backend.feedbacks[0] != 7 {
		t.Errorf("backend feedbacks = %v", backend.feedbacks)
	}

	msg := ctrl.Messages()[0]
	if !msg.FeedbackSubmitted || msg.Rating == nil || *msg.Rating != model.RatingThumbsUp {
		t.Errorf("feedback not reflected locally: %+v", msg)
	}
	if msg.FeedbackKind != model.FeedbackThumbs {
		t.Errorf("kind = %q", msg.FeedbackKind)
	}

	// Second submission for the same message is refused locally.
	err = ctrl.SubmitMessageFeedback(context.Background(), "srv-7", model.RatingThumbsDown, model.FeedbackThumbs, "")
	if !errors.Is(err, ErrFeedbackSubmitted) {
		t.Errorf("double submit err = %v, want ErrFeedbackSubmitted", err)
	}
	if len(backend.feedbacks) != 1 {
		t.Error("double submit reached the backend")
	}
}

func TestFeedbackEligibility(t *testing.T) {
	backend := newFakeBackend()
	backend.addSession("s1", "First",
		model.Message{ID: "u-1", ServerID: 1, Role: model.RoleUser, Content: "q", State: model.StateDelivered},
		model.Message{ID: "local-1", Role: model.RoleAssistant, Content: "unreconciled", State: model.StateDelivered})
	ctrl := newController(backend)
	if err := ctrl.SelectSession(context.Background(), "s1"); err != nil {
		t.Fatal(err)
	}

	// User messages never take feedback.
	if err := ctrl.SubmitMessageFeedback(context.Background(), "u-1", 3, model.FeedbackStars, ""); !errors.Is(err, ErrNotEligible) {
		t.Errorf("user message err = %v, want ErrNotEligible", err)
	}
	// Answers without server identity are not yet eligible.
	if err := ctrl.SubmitMessageFeedback(context.Background(), "local-1", 3, model.FeedbackStars, ""); !errors.Is(err, ErrNotEligible) {
		t.Errorf("no-server-id err = %v, want ErrNotEligible", err)
	}
	// Unknown ids.
	if err := ctrl.SubmitMessageFeedback(context.Background(), "ghost", 3, model.FeedbackStars, ""); !errors.Is(err, ErrNotEligible) {
		t.Errorf("unknown id err = %v, want ErrNotEligible", err)
	}
	// Out-of-range ratings.
	if err := ctrl.SubmitMessageFeedback(context.Background(), "u-1", 9, model.FeedbackStars, ""); !errors.Is(err, ErrInvalidRating) {
		t.Errorf("bad rating err = %v, want ErrInvalidRating", err)
	}
}

func TestFeedbackDisabledByPreference(t *testing.T) {
	backend := newFakeBackend()
	ctrl := NewController(backend, fakePrefs{length: 50, feedback: false})
	err := ctrl.SubmitMessageFeedback(context.Background(), "any", 4, model.FeedbackThumbs, "")
	if !errors.Is(err, ErrFeedbackDisabled) {
		t.Errorf("err = %v, want ErrFeedbackDisabled", err)
	}
}

// =============================================================================
// RECONCILE AND RECORDING
// =============================================================================

func TestReconcileActiveAssignsServerIDs(t *testing.T) {
	backend := newFakeBackend()
	backend.addSession("s1", "First")
	ctrl := newController(backend)
	if err := ctrl.SelectSession(context.Background(), "s1"); err != nil {
		t.Fatal(err)
	}
	if err := ctrl.SubmitQuery(context.Background(), "question one"); err != nil {
		t.Fatal(err)
	}

	// Server has persisted the exchange with real ids.
	backend.mu.Lock()
	backend.detail["s1"] = []model.Message{
		{ID: "srv-10", ServerID: 10, Role: model.RoleUser, Content: "question one", State: model.StateDelivered},
		{ID: "srv-11", ServerID: 11, Role: model.RoleAssistant, Content: "answer to: question one", State: model.StateDelivered},
	}
	backend.mu.Unlock()

	if err := ctrl.ReconcileActive(context.Background()); err != nil {
		t.Fatalf("ReconcileActive: %v", err)
	}
	msgs := ctrl.Messages()
	if len(msgs) != 2 || !msgs[1].HasServerID() {
		t.Errorf("reconcile did not adopt server identity: %+v", msgs)
	}
}

type fakeRecorder struct {
	mu   sync.Mutex
	recs []ExchangeRecord
}

func (r *fakeRecorder) Record(ctx context.Context, rec ExchangeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, rec)
	return nil
}

func TestSuccessfulExchangeIsRecorded(t *testing.T) {
	backend := newFakeBackend()
	backend.addSession("s1", "First")
	rec := &fakeRecorder{}
	ctrl := newController(backend).WithRecorder(rec)
	if err := ctrl.SelectSession(context.Background(), "s1"); err != nil {
		t.Fatal(err)
	}

	if err := ctrl.SubmitQuery(context.Background(), "record me"); err != nil {
		t.Fatal(err)
	}
	if len(rec.recs) != 1 {
		t.Fatalf("recorded %d exchanges, want 1", len(rec.recs))
	}
	got := rec.recs[0]
	if got.SessionID != "s1" || got.Query != "record me" || got.Sources != 1 {
		t.Errorf("record = %+v", got)
	}
}
