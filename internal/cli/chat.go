// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/akjha-17/ragchat-tui/internal/chat"
	"github.com/akjha-17/ragchat-tui/internal/config"
	"github.com/akjha-17/ragchat-tui/internal/history"
	uichat "github.com/akjha-17/ragchat-tui/internal/ui/chat"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive chat TUI (the default command)",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	if err := app.requireLogin(); err != nil {
		return err
	}

	settings := config.NewSettingsStore(app.cfg, app.cfgPath)
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if err := settings.Watch(ctx); err != nil {
		// Live reload is a convenience; the TUI works without it.
		log.Printf("config: watch disabled: %v", err)
	}

	controller := chat.NewController(app.client, settings)

	if app.cfg.History.Enabled {
		store, err := openHistory(app.cfg)
		if err != nil {
			log.Printf("history: disabled: %v", err)
		} else {
			defer store.Close()
			controller = controller.WithRecorder(store)
		}
	}

	model := uichat.New(controller, settings, app.gateway.User().DisplayName())
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// openHistory opens the local exchange log under the config dir unless a
// custom path is configured.
func openHistory(cfg *config.Config) (*history.Store, error) {
	path := cfg.History.Path
	if path == "" {
		dir, err := config.EnsureDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "history.db")
	}
	return history.Open(path, cfg.History.MaxEntries)
}
