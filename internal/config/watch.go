// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// SettingsStore holds the live configuration behind a mutex and keeps it
// current while the TUI runs: edits to the config file on disk are picked
// up without a restart. It satisfies the preferences interface the chat
// controller consumes.
type SettingsStore struct {
	mu   sync.RWMutex
	cfg  *Config
	path string

	// subscribers are notified (non-blocking) after each reload.
	subs []chan struct{}
}

// NewSettingsStore wraps an already-loaded config. path is the file to
// watch; it may not exist yet.
func NewSettingsStore(cfg *Config, path string) *SettingsStore {
	return &SettingsStore{cfg: cfg, path: path}
}

// Current returns the live configuration snapshot.
func (s *SettingsStore) Current() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Update replaces the live configuration, persists it, and notifies
// subscribers. Used by in-app settings edits.
func (s *SettingsStore) Update(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := SaveTo(cfg, s.path); err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	s.notify()
	return nil
}

// Subscribe returns a channel that receives a tick after every reload.
// The channel is never closed and drops ticks when the receiver lags.
func (s *SettingsStore) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

func (s *SettingsStore) notify() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Watch reloads the config whenever the file changes on disk, until ctx
// is done. Invalid edits are logged and the previous config kept. The
// directory is watched rather than the file itself so atomic
// rename-into-place saves are seen.
func (s *SettingsStore) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()

		// Editors fire bursts of events per save; debounce them.
		var pending *time.Timer
		reload := func() {
			cfg, err := LoadFromPath(s.path)
			if err != nil {
				log.Printf("config: reload failed, keeping previous: %v", err)
				return
			}
			s.mu.Lock()
			s.cfg = cfg
			s.mu.Unlock()
			s.notify()
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(s.path) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if pending != nil {
					pending.Stop()
				}
				pending = time.AfterFunc(200*time.Millisecond, reload)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("config: watcher error: %v", err)
			}
		}
	}()
	return nil
}

// =============================================================================
// PREFERENCE ACCESSORS
// =============================================================================

// ResponseLength returns the requested answer length in words.
func (s *SettingsStore) ResponseLength() int {
	return s.Current().Preferences.ResponseLength
}

// TopK returns the number of retrieval hits requested per ask.
func (s *SettingsStore) TopK() int {
	return s.Current().Preferences.TopK
}

// FeedbackEnabled reports whether rating controls are active.
func (s *SettingsStore) FeedbackEnabled() bool {
	return s.Current().Preferences.EnableFeedback
}

// ShowSources reports whether the source list is rendered under answers.
func (s *SettingsStore) ShowSources() bool {
	return s.Current().Preferences.ShowSources
}

// RenderMarkdown reports whether answers go through the markdown renderer.
func (s *SettingsStore) RenderMarkdown() bool {
	return s.Current().Preferences.RenderMarkdown
}
