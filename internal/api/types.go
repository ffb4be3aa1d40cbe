// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/akjha-17/ragchat-tui/internal/model"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// AskRequest is the payload for POST /ask.
type AskRequest struct {
	Query          string `json:"query"`
	TopK           int    `json:"top_k,omitempty"`
	UseSynthesis   bool   `json:"use_synthesis"`
	SessionID      string `json:"session_id,omitempty"`
	ResponseLength int    `json:"response_length,omitempty"`
}

// LoginRequest is the payload for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest is the payload for POST /auth/register.
type RegisterRequest struct {
	Username      string `json:"username"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	FullName      string `json:"full_name"`
	PreferredName string `json:"preferred_name"`
	Role          string `json:"role,omitempty"`
	Organization  string `json:"organization,omitempty"`
}

// ProfileUpdate carries the optional fields for PUT /auth/profile.
// Nil fields are omitted so the backend only touches what was set.
type ProfileUpdate struct {
	Email         *string `json:"email,omitempty"`
	PreferredName *string `json:"preferred_name,omitempty"`
	FullName      *string `json:"full_name,omitempty"`
	Organization  *string `json:"organization,omitempty"`
}

// MessageFeedbackRequest is the payload for POST /chat/feedback.
type MessageFeedbackRequest struct {
	MessageID int64  `json:"message_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

// SessionFeedbackRequest is the payload for POST /feedback.
type SessionFeedbackRequest struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// LoginResponse is returned by login and register.
type LoginResponse struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	User        model.User `json:"user"`
}

// AskResponse is the normalized result of POST /ask.
type AskResponse struct {
	Query     string
	Language  string
	Answer    string
	Sources   []model.Source
	SessionID string
}

// Health is returned by GET /health.
type Health struct {
	Status     string `json:"status"`
	LLMBackend string `json:"llm_backend"`
	Embedding  string `json:"embedding"`
}

// UploadResult is one entry of the POST /upload response.
type UploadResult struct {
	File        string `json:"file"`
	ChunksAdded int    `json:"chunks_added"`
}

// ReindexResult is returned by POST /reindex. ChunksIndexed is -1 when the
// reindex was queued as a background task.
type ReindexResult struct {
	Folder        string `json:"folder"`
	ChunksIndexed int    `json:"chunks_indexed"`
}

// FeedbackRecord is one row of the admin GET /feedbacks listing.
type FeedbackRecord struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Username  string    `json:"username"`
	Query     string    `json:"query"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	Timestamp time.Time `json:"-"`
}

// UserStats is returned by GET /user/stats.
type UserStats struct {
	TotalChats      int            `json:"total_chats"`
	TotalMessages   int            `json:"total_messages"`
	FeedbackGiven   int            `json:"feedback_given"`
	DocumentsViewed int            `json:"documents_viewed"`
	RecentActivity  []ActivityItem `json:"recent_activity"`
}

// ActivityItem is one entry of the recent-activity feed.
type ActivityItem struct {
	MessageType  string `json:"message_type"`
	Content      string `json:"content"`
	Timestamp    string `json:"timestamp"`
	SessionTitle string `json:"session_title"`
}

// =============================================================================
// WIRE SHAPES AND NORMALIZATION
// =============================================================================

// sourceWire tolerates every aliased spelling the backend has been observed
// to emit for retrieval hits. Normalization happens here, once, so internal
// code only ever sees model.Source.
type sourceWire struct {
	File            string   `json:"file"`
	ChunkID         string   `json:"chunk_id"`
	ChunkIDAlt      string   `json:"chunkId"`
	Score           *float64 `json:"score"`
	ScoreNormalized *float64 `json:"score_normalized"`
	Preview         string   `json:"preview"`
	Text            string   `json:"text"`
	Snippet         string   `json:"snippet"`
	PageNumber      *int     `json:"page_number"`
}

// normalize folds the aliased fields into the canonical source shape.
// Missing fields get defined fallbacks: "unknown" file, the normalized
// score when the raw score is absent, and the UnknownPage sentinel.
func (w sourceWire) normalize() model.Source {
	s := model.Source{
		File:       w.File,
		ChunkID:    w.ChunkID,
		Preview:    w.Preview,
		PageNumber: model.UnknownPage,
	}
	if s.File == "" {
		s.File = "unknown"
	}
	if s.ChunkID == "" {
		s.ChunkID = w.ChunkIDAlt
	}
	switch {
	case w.Score != nil:
		s.Score = *w.Score
	case w.ScoreNormalized != nil:
		s.Score = *w.ScoreNormalized
	}
	if s.Preview == "" {
		s.Preview = w.Text
	}
	if s.Preview == "" {
		s.Preview = w.Snippet
	}
	if w.PageNumber != nil {
		s.PageNumber = *w.PageNumber
	}
	return s
}

func normalizeSources(wires []sourceWire) []model.Source {
	if len(wires) == 0 {
		return nil
	}
	sources := make([]model.Source, 0, len(wires))
	for _, w := range wires {
		sources = append(sources, w.normalize())
	}
	return sources
}

// askWire is the raw POST /ask response.
type askWire struct {
	Query     string       `json:"query"`
	Language  string       `json:"language"`
	Answer    string       `json:"answer"`
	Sources   []sourceWire `json:"sources"`
	SessionID string       `json:"session_id"`
}

func (w askWire) normalize() *AskResponse {
	return &AskResponse{
		Query:     w.Query,
		Language:  w.Language,
		Answer:    w.Answer,
		Sources:   normalizeSources(w.Sources),
		SessionID: w.SessionID,
	}
}

// sessionWire is the raw chat session shape.
type sessionWire struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
	MessageCount    int    `json:"message_count"`
	LastMessageTime string `json:"last_message_time"`
}

func (w sessionWire) normalize() model.Session {
	return model.Session{
		ID:              w.ID,
		Title:           w.Title,
		CreatedAt:       parseBackendTime(w.CreatedAt),
		UpdatedAt:       parseBackendTime(w.UpdatedAt),
		MessageCount:    w.MessageCount,
		LastMessageTime: parseBackendTime(w.LastMessageTime),
	}
}

// messageWire is the raw chat message shape from GET /chat/sessions/{id}.
type messageWire struct {
	ID              int64        `json:"id"`
	MessageType     string       `json:"message_type"`
	Content         string       `json:"content"`
	Sources         []sourceWire `json:"sources"`
	Rating          *int         `json:"rating"`
	FeedbackComment string       `json:"feedback_comment"`
	Timestamp       string       `json:"timestamp"`
}

func (w messageWire) normalize() model.Message {
	msg := model.Message{
		ID:              serverMessageID(w.ID),
		ServerID:        w.ID,
		Role:            model.Role(w.MessageType),
		Content:         w.Content,
		Timestamp:       parseBackendTime(w.Timestamp),
		State:           model.StateDelivered,
		Sources:         normalizeSources(w.Sources),
		Rating:          w.Rating,
		FeedbackComment: w.FeedbackComment,
	}
	if w.Rating != nil {
		msg.FeedbackSubmitted = true
	}
	return msg
}

// serverMessageID renders a stable local id for a server-assigned message.
func serverMessageID(id int64) string {
	return "srv-" + strconv.FormatInt(id, 10)
}

// sessionDetailWire is the raw GET /chat/sessions/{id} response.
type sessionDetailWire struct {
	Session  sessionWire   `json:"session"`
	Messages []messageWire `json:"messages"`
}

// feedbackWire is the raw /feedbacks row; the timestamp field needs the
// same lenient parsing as everything else.
type feedbackWire struct {
	ID        int64  `json:"id"`
	SessionID string `json:"session_id"`
	Username  string `json:"username"`
	Query     string `json:"query"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
	Timestamp string `json:"timestamp"`
}

func (w feedbackWire) normalize() FeedbackRecord {
	return FeedbackRecord{
		ID:        w.ID,
		SessionID: w.SessionID,
		Username:  w.Username,
		Query:     w.Query,
		Rating:    w.Rating,
		Comment:   w.Comment,
		Timestamp: parseBackendTime(w.Timestamp),
	}
}

// apiErrorResponse is FastAPI's error envelope. The detail field is usually
// a string but validation errors nest structures, so it is captured raw and
// flattened to text.
type apiErrorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

func (e apiErrorResponse) detailText() string {
	if len(e.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Detail, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(e.Detail))
}

// =============================================================================
// TIME PARSING
// =============================================================================

// backendTimeLayouts covers the formats the backend mixes freely: Python
// isoformat with and without fractional seconds, and SQLite's
// CURRENT_TIMESTAMP default.
var backendTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseBackendTime parses a backend timestamp string, returning the zero
// time for empty or unparseable input. Backend timestamps are UTC.
func parseBackendTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return time.Time{}
	}
	for _, layout := range backendTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}
