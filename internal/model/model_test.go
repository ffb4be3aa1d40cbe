// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"testing"
)

func TestNewPendingMessage(t *testing.T) {
	msg := NewPendingMessage()

	if msg.Role != RoleAssistant {
		t.Errorf("pending message role = %q, want assistant", msg.Role)
	}
	if msg.Content != "" {
		t.Errorf("pending message content = %q, want empty", msg.Content)
	}
	if !msg.IsPending() {
		t.Error("IsPending() = false for a fresh placeholder")
	}
	if msg.ID == "" {
		t.Error("pending message has no provisional ID")
	}
	if msg.HasServerID() {
		t.Error("pending message must not carry a server ID")
	}
}

func TestProvisionalIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		msg := NewUserMessage("hello")
		if seen[msg.ID] {
			t.Fatalf("duplicate provisional ID %q", msg.ID)
		}
		seen[msg.ID] = true
	}
}

func TestSourceLabel(t *testing.T) {
	tests := []struct {
		name   string
		source Source
		want   string
	}{
		{"file with page", Source{File: "handbook.pdf", PageNumber: 12}, "handbook.pdf p.12"},
		{"page zero is valid", Source{File: "notes.md", PageNumber: 0}, "notes.md p.0"},
		{"unknown page sentinel", Source{File: "notes.md", PageNumber: UnknownPage}, "notes.md"},
		{"missing file", Source{File: "", PageNumber: UnknownPage}, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.source.Label(); got != tt.want {
				t.Errorf("Label() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidRating(t *testing.T) {
	for r := 1; r <= 5; r++ {
		if !ValidRating(r) {
			t.Errorf("ValidRating(%d) = false", r)
		}
	}
	for _, r := range []int{0, -1, 6, 100} {
		if ValidRating(r) {
			t.Errorf("ValidRating(%d) = true", r)
		}
	}
}

func TestThumbRatingsAreValidStars(t *testing.T) {
	// Thumbs reuse the 1-5 scale; both discrete values must stay in range.
	if !ValidRating(RatingThumbsUp) || !ValidRating(RatingThumbsDown) {
		t.Error("thumb rating constants fall outside the 1-5 scale")
	}
}

func TestRoleDisplayName(t *testing.T) {
	if got := RoleUser.DisplayName(); got != "You" {
		t.Errorf("RoleUser.DisplayName() = %q", got)
	}
	if got := RoleAssistant.DisplayName(); got != "Assistant" {
		t.Errorf("RoleAssistant.DisplayName() = %q", got)
	}
	if got := Role("tool").DisplayName(); got != "tool" {
		t.Errorf("unknown role DisplayName() = %q", got)
	}
}
