// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// DELIVERY STATE
// =============================================================================

// DeliveryState tags a message's position in the optimistic-update lifecycle.
//
// A Pending message is a locally inserted placeholder standing in for an
// in-flight backend response. It is replaced wholesale (never patched) by a
// Delivered message when the answer arrives, or rolled back on failure.
type DeliveryState int

const (
	// StateDelivered is the normal state: content confirmed by the backend
	// or loaded from session history.
	StateDelivered DeliveryState = iota

	// StatePending marks the single placeholder assistant message that is
	// awaiting an in-flight ask response.
	StatePending

	// StateFailed marks a message whose exchange failed. Failed entries are
	// removed from the log by the controller; the state exists so a message
	// is never ambiguous between "empty answer" and "no answer yet".
	StateFailed
)

// String returns the delivery state name.
func (s DeliveryState) String() string {
	switch s {
	case StateDelivered:
		return "delivered"
	case StatePending:
		return "pending"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("DeliveryState(%d)", int(s))
	}
}

// =============================================================================
// SOURCE TYPE
// =============================================================================

// UnknownPage is the backend's sentinel for "no page number available".
const UnknownPage = -1

// Source is a normalized retrieval hit attached to an assistant answer.
//
// The backend emits several aliased field spellings (score vs
// score_normalized, chunk_id vs chunkId, preview vs text vs snippet); the
// api package folds all of them into this one canonical shape at the wire
// boundary so nothing downstream has to care.
type Source struct {
	File       string  `json:"file"`
	ChunkID    string  `json:"chunk_id"`
	Score      float64 `json:"score"`
	PageNumber int     `json:"page_number"`
	Preview    string  `json:"preview"`
}

// HasPage reports whether the source carries a usable page number.
func (s Source) HasPage() bool {
	return s.PageNumber > UnknownPage
}

// Label returns a short display label like "handbook.pdf p.12".
func (s Source) Label() string {
	file := s.File
	if file == "" {
		file = "unknown"
	}
	if s.HasPage() {
		return fmt.Sprintf("%s p.%d", file, s.PageNumber)
	}
	return file
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a chat session.
//
// Messages loaded from the backend carry a ServerID; optimistic entries
// created locally carry only the provisional ID until the next history
// reconcile assigns server identity.
type Message struct {
	// Identity. ID is always set; for locally created entries it is a
	// provisional UUID that is never reused once the entry is replaced.
	ID       string `json:"id"`
	ServerID int64  `json:"server_id,omitempty"`

	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// State tracks the optimistic-update lifecycle.
	State DeliveryState `json:"-"`

	// Sources are the retrieval hits behind an assistant answer.
	// Always empty for user messages.
	Sources []Source `json:"sources,omitempty"`

	// Feedback state. Rating is nil until feedback has been submitted.
	Rating            *int         `json:"rating,omitempty"`
	FeedbackComment   string       `json:"feedback_comment,omitempty"`
	FeedbackKind      FeedbackKind `json:"feedback_kind,omitempty"`
	FeedbackSubmitted bool         `json:"-"`
}

// NewUserMessage creates a delivered user message with a provisional ID.
func NewUserMessage(content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now(),
		State:     StateDelivered,
	}
}

// NewPendingMessage creates the assistant placeholder for an in-flight ask.
// Content is empty until the placeholder is replaced.
func NewPendingMessage() Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Timestamp: time.Now(),
		State:     StatePending,
	}
}

// NewAssistantMessage creates a delivered assistant message.
func NewAssistantMessage(content string, sources []Source) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Content:   content,
		Timestamp: time.Now(),
		State:     StateDelivered,
		Sources:   sources,
	}
}

// IsPending reports whether the message is an in-flight placeholder.
func (m Message) IsPending() bool {
	return m.State == StatePending
}

// HasServerID reports whether the backend has assigned this message an id.
// Feedback can only be submitted for messages with server identity.
func (m Message) HasServerID() bool {
	return m.ServerID != 0
}

// =============================================================================
// FEEDBACK
// =============================================================================

// FeedbackKind distinguishes thumbs feedback from star ratings client-side.
// The wire format carries only the numeric rating; the kind is kept locally
// so analytics never have to guess from rating values alone.
type FeedbackKind string

const (
	FeedbackNone   FeedbackKind = ""
	FeedbackThumbs FeedbackKind = "thumbs"
	FeedbackStars  FeedbackKind = "stars"
)

// Discrete rating values used by the thumbs UI. Star ratings use the full
// 1-5 range.
const (
	RatingThumbsUp   = 4
	RatingThumbsDown = 2
)

// ValidRating reports whether r is an acceptable 1-5 feedback score.
func ValidRating(r int) bool {
	return r >= 1 && r <= 5
}
