// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/akjha-17/ragchat-tui/internal/api"
	"github.com/akjha-17/ragchat-tui/internal/auth"
	"github.com/akjha-17/ragchat-tui/internal/config"
)

// Version information (can be overridden at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	flagServer  string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ragchat",
	Short: "Terminal client for a RAG chat backend",
	Long: `ragchat is a terminal client for a retrieval-augmented chat backend.

Run it with no arguments to open the interactive chat TUI. One-shot
questions, session management, and admin tasks are available as
subcommands.

Quick start:
  ragchat login                 Authenticate against the backend
  ragchat                       Open the chat TUI
  ragchat ask "a question"      Ask without opening the TUI
  ragchat sessions list         List saved conversations`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", api.Detail(err, err.Error()))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", "", "Backend base URL (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log API requests")
	rootCmd.SetVersionTemplate(`{{printf "ragchat %s\n" .Version}}`)
}

// app bundles the wiring every command needs: loaded config, API client,
// and the credential gateway with stored credentials already read.
type app struct {
	cfg     *config.Config
	cfgPath string
	client  *api.Client
	gateway *auth.Gateway
}

// newApp loads configuration, builds the API client, and loads any stored
// credentials. It never requires a login; commands that need one call
// requireLogin.
func newApp() (*app, error) {
	dir, err := config.EnsureDir()
	if err != nil {
		return nil, err
	}
	path, err := config.Path()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadFromPath(path)
	if err != nil {
		return nil, err
	}
	if flagServer != "" {
		cfg.Server.URL = flagServer
	}
	if flagVerbose {
		cfg.Server.Verbose = true
	}

	client := api.NewClient(cfg.Server.URL).
		WithTimeout(time.Duration(cfg.Server.TimeoutSecs) * time.Second).
		WithMaxRetries(cfg.Server.MaxRetries).
		WithVerbose(cfg.Server.Verbose)

	gateway := auth.NewGateway(client, dir)
	if err := gateway.Load(); err != nil {
		// Unreadable credentials should not brick the CLI; the user can
		// log in again.
		log.Printf("auth: %v", err)
	}
	client.WithTokenSource(gateway)

	return &app{cfg: cfg, cfgPath: path, client: client, gateway: gateway}, nil
}

// requireLogin fails fast with a friendly message instead of letting the
// first API call come back 401.
func (a *app) requireLogin() error {
	if !a.gateway.LoggedIn() {
		return auth.ErrNotLoggedIn
	}
	return nil
}

func (a *app) requireAdmin() error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	if !a.gateway.IsAdmin() {
		return fmt.Errorf("this command requires an admin account")
	}
	return nil
}
