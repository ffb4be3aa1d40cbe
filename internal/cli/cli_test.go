// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akjha-17/ragchat-tui/internal/api"
)

func TestSummarizeFeedback(t *testing.T) {
	now := time.Now()
	records := []api.FeedbackRecord{
		{ID: 1, Query: "old bad", Rating: 1, Timestamp: now.Add(-2 * time.Hour)},
		{ID: 2, Query: "good", Rating: 5, Timestamp: now.Add(-1 * time.Hour)},
		{ID: 3, Query: "new bad", Rating: 1, Timestamp: now},
		{ID: 4, Query: "fine", Rating: 4, Timestamp: now},
	}

	s := summarizeFeedback(records)

	assert.Equal(t, 4, s.Total)
	assert.InDelta(t, 2.75, s.Average, 0.001)
	assert.Equal(t, 2, s.Distribution[1])
	assert.Equal(t, 1, s.Distribution[4])
	assert.Equal(t, 1, s.Distribution[5])

	// Worst first, newest of the ties leading.
	require.Len(t, s.Worst, 4)
	assert.Equal(t, "new bad", s.Worst[0].Query)
	assert.Equal(t, "old bad", s.Worst[1].Query)
	assert.Equal(t, "good", s.Worst[3].Query)
}

func TestSummarizeFeedbackEmpty(t *testing.T) {
	s := summarizeFeedback(nil)
	assert.Equal(t, 0, s.Total)
	assert.Zero(t, s.Average)
	assert.Empty(t, s.Worst)
}

func TestValidateUpload(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(good, []byte("# notes"), 0o644))
	assert.NoError(t, validateUpload(good))

	upper := filepath.Join(dir, "SLIDES.PDF")
	require.NoError(t, os.WriteFile(upper, []byte("%PDF"), 0o644))
	assert.NoError(t, validateUpload(upper))

	bad := filepath.Join(dir, "tool.exe")
	require.NoError(t, os.WriteFile(bad, []byte("MZ"), 0o644))
	assert.Error(t, validateUpload(bad))

	assert.Error(t, validateUpload(filepath.Join(dir, "missing.pdf")))
	assert.Error(t, validateUpload(dir+string(os.PathSeparator)))
}

func TestRelativeTime(t *testing.T) {
	now := time.Now()

	assert.Equal(t, "-", relativeTime(time.Time{}))
	assert.Equal(t, "just now", relativeTime(now.Add(-10*time.Second)))
	assert.Equal(t, "5m ago", relativeTime(now.Add(-5*time.Minute)))
	assert.Equal(t, "3h ago", relativeTime(now.Add(-3*time.Hour)))
	assert.Equal(t, "2d ago", relativeTime(now.Add(-49*time.Hour)))

	old := now.Add(-30 * 24 * time.Hour)
	assert.Equal(t, old.Format("2006-01-02"), relativeTime(old))
}

func TestRoleText(t *testing.T) {
	assert.Equal(t, "user", roleText("", false))
	assert.Equal(t, "analyst", roleText("analyst", false))
	assert.Equal(t, "admin (admin)", roleText("admin", true))
	assert.Equal(t, "user (admin)", roleText("", true))
}
