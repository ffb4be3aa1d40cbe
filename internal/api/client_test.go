// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestBearerTokenAttached(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(server.URL).WithTokenSource(StaticToken("tok-123"))
	if _, err := client.ListSessions(context.Background()); err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q, want Bearer tok-123", gotAuth)
	}
}

func TestUnauthenticatedOmitsHeader(t *testing.T) {
	var sawAuth bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawAuth = r.Header["Authorization"]
		w.Write([]byte(`{"status":"ok","llm_backend":"ollama","embedding":"hf"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if _, err := client.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}
	if sawAuth {
		t.Error("Authorization header sent without a token")
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
		detail   string
	}{
		{"unauthorized", 401, `{"detail":"Invalid token"}`, ErrUnauthorized, "Invalid token"},
		{"forbidden", 403, `{"detail":"Admin privileges required"}`, ErrForbidden, "Admin privileges required"},
		{"not found", 404, `{"detail":"Chat session not found"}`, ErrNotFound, "Chat session not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL)
			err := client.DeleteSession(context.Background(), "s1")
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("error = %v, want %v sentinel", err, tt.sentinel)
			}
			if err.Error() == tt.sentinel.Error() {
				t.Errorf("server detail %q was dropped from %v", tt.detail, err)
			}
		})
	}
}

func TestAPIErrorDetailPreserved(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"Empty query"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Ask(context.Background(), AskRequest{Query: "q", UseSynthesis: true})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Status != 400 || apiErr.Detail != "Empty query" {
		t.Errorf("APIError = %+v", apiErr)
	}
	if got := Detail(err, "generic"); got != "Empty query" {
		t.Errorf("Detail() = %q, want server text", got)
	}
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"status":"ok","llm_backend":"ollama","embedding":"hf"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	h, err := client.Health(context.Background())
	if err != nil {
		t.Fatalf("Health after retries: %v", err)
	}
	if h.Status != "ok" {
		t.Errorf("Status = %q", h.Status)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server saw %d calls, want 3", got)
	}
}

func TestGetDoesNotRetryAuthFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Invalid token"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if _, err := client.ListSessions(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrUnauthorized", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server saw %d calls, want 1 (no retry on 401)", got)
	}
}

func TestAskNeverRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Ask(context.Background(), AskRequest{Query: "hello", UseSynthesis: true})
	if err == nil {
		t.Fatal("expected error from 502")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server saw %d ask calls, want exactly 1", got)
	}
}

func TestAskRejectsEmptyQueryLocally(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if _, err := client.Ask(context.Background(), AskRequest{Query: "   "}); err == nil {
		t.Fatal("expected error for whitespace-only query")
	}
	if calls.Load() != 0 {
		t.Error("empty query reached the network")
	}
}

func TestSessionDetailNormalizesHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/sessions/abc" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{
			"session": {"id":"abc","title":"T","created_at":"2024-06-01 10:00:00","updated_at":"2024-06-01 11:00:00","message_count":2},
			"messages": [
				{"id":1,"message_type":"user","content":"q","timestamp":"2024-06-01T10:00:01"},
				{"id":2,"message_type":"assistant","content":"a","sources":[{"file":"f.pdf","chunkId":"c","score_normalized":0.4,"text":"t"}],"timestamp":"2024-06-01T10:00:05"}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	session, messages, err := client.SessionDetail(context.Background(), "abc")
	if err != nil {
		t.Fatalf("SessionDetail: %v", err)
	}
	if session.ID != "abc" || session.MessageCount != 2 {
		t.Errorf("session = %+v", session)
	}
	if len(messages) != 2 {
		t.Fatalf("got %d messages", len(messages))
	}
	if messages[0].Role != "user" || messages[1].Role != "assistant" {
		t.Errorf("roles = %q, %q", messages[0].Role, messages[1].Role)
	}
	if messages[1].Sources[0].ChunkID != "c" || messages[1].Sources[0].Preview != "t" {
		t.Errorf("aliased source not normalized: %+v", messages[1].Sources[0])
	}
}

func TestUploadRejectsBadExtension(t *testing.T) {
	client := NewClient("http://unused.invalid")
	_, err := client.Upload(context.Background(), []string{"/tmp/evil.exe"})
	if !errors.Is(err, ErrFileType) {
		t.Errorf("error = %v, want ErrFileType", err)
	}
}

func TestUserStatsCarriesAllCounters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user/stats" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{
			"total_chats": 3,
			"total_messages": 14,
			"feedback_given": 2,
			"documents_viewed": 9,
			"recent_activity": [{"message_type":"user","content":"q","timestamp":"2024-06-01T10:00:00","session_title":"T"}]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	stats, err := client.UserStats(context.Background())
	if err != nil {
		t.Fatalf("UserStats: %v", err)
	}
	if stats.TotalChats != 3 || stats.TotalMessages != 14 || stats.FeedbackGiven != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.DocumentsViewed != 9 {
		t.Errorf("DocumentsViewed = %d, want 9", stats.DocumentsViewed)
	}
	if len(stats.RecentActivity) != 1 {
		t.Errorf("got %d activity items", len(stats.RecentActivity))
	}
}

func TestSubmitSessionFeedback(t *testing.T) {
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/feedback" || r.Method != http.MethodPost {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	err := client.SubmitSessionFeedback(context.Background(), SessionFeedbackRequest{
		SessionID: "s1",
		Query:     "refund policy",
		Rating:    4,
		Comment:   "helpful",
	})
	if err != nil {
		t.Fatalf("SubmitSessionFeedback: %v", err)
	}

	var sent SessionFeedbackRequest
	if err := json.Unmarshal(gotBody, &sent); err != nil {
		t.Fatalf("unmarshal sent body: %v", err)
	}
	if sent.SessionID != "s1" || sent.Rating != 4 || sent.Comment != "helpful" {
		t.Errorf("sent = %+v", sent)
	}
}

func TestSubmitSessionFeedbackRejectsBadRating(t *testing.T) {
	var called bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := NewClient(server.URL)
	err := client.SubmitSessionFeedback(context.Background(), SessionFeedbackRequest{SessionID: "s1", Rating: 6})
	if err == nil {
		t.Fatal("rating 6 accepted")
	}
	if called {
		t.Error("request sent despite invalid rating")
	}
}
