// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/akjha-17/ragchat-tui/internal/api"
	"github.com/akjha-17/ragchat-tui/internal/config"
)

var (
	askSession   string
	askTopK      int
	askLength    int
	askNoSources bool
	askPlain     bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a one-shot question, or start a REPL",
	Long: `Ask sends a single question and prints the answer with its retrieval
sources. Without a question it starts a line-edited REPL; each exchange
continues the same backend session, so follow-up questions have context.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		if err := app.requireLogin(); err != nil {
			return err
		}

		if askTopK == 0 {
			askTopK = app.cfg.Preferences.TopK
		}
		if askLength == 0 {
			askLength = app.cfg.Preferences.ResponseLength
		}

		if len(args) > 0 {
			query := strings.Join(args, " ")
			_, err := runAsk(cmd.Context(), app, query, askSession)
			return err
		}
		return runAskREPL(cmd.Context(), app)
	},
}

func init() {
	askCmd.Flags().StringVar(&askSession, "session", "", "Continue an existing session id")
	askCmd.Flags().IntVar(&askTopK, "top-k", 0, "Number of retrieval chunks (default from config)")
	askCmd.Flags().IntVar(&askLength, "length", 0, "Answer length 10-100 (default from config)")
	askCmd.Flags().BoolVar(&askNoSources, "no-sources", false, "Suppress the source list")
	askCmd.Flags().BoolVar(&askPlain, "plain", false, "Print raw text instead of rendered markdown")
	rootCmd.AddCommand(askCmd)
}

// runAsk performs one exchange and prints the result. It returns the
// session id the backend answered under so a REPL can chain exchanges.
func runAsk(ctx context.Context, app *app, query, sessionID string) (string, error) {
	resp, err := app.client.Ask(ctx, api.AskRequest{
		Query:          query,
		TopK:           askTopK,
		UseSynthesis:   true,
		SessionID:      sessionID,
		ResponseLength: askLength,
	})
	if err != nil {
		return sessionID, err
	}

	fmt.Println(renderAnswer(app.cfg, resp.Answer))

	if !askNoSources && app.cfg.Preferences.ShowSources && len(resp.Sources) > 0 {
		fmt.Println("Sources:")
		for _, s := range resp.Sources {
			line := "  - " + s.Label()
			if s.Score > 0 {
				line += fmt.Sprintf(" (score %.2f)", s.Score)
			}
			fmt.Println(line)
		}
	}
	return resp.SessionID, nil
}

// renderAnswer renders markdown when stdout is a terminal and the config
// allows it.
func renderAnswer(cfg *config.Config, answer string) string {
	if askPlain || !cfg.Preferences.RenderMarkdown || !term.IsTerminal(int(os.Stdout.Fd())) {
		return answer
	}
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 || width > 120 {
		width = 100
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-2),
	)
	if err != nil {
		return answer
	}
	out, err := renderer.Render(answer)
	if err != nil {
		return answer
	}
	return strings.TrimRight(out, "\n")
}

// runAskREPL reads questions with line editing and history until EOF or
// an empty "exit"/"quit" command. All exchanges share one session.
func runAskREPL(ctx context.Context, app *app) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyPath := replHistoryPath()
	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			_, _ = line.ReadHistory(f)
			f.Close()
		}
	}

	fmt.Println("ragchat REPL. Type a question; exit with Ctrl-D or \"exit\".")
	sessionID := askSession

	for {
		input, err := line.Prompt("> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				continue
			}
			// io.EOF on Ctrl-D.
			break
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}
		line.AppendHistory(input)

		sessionID, err = runAsk(ctx, app, input, sessionID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", api.Detail(err, err.Error()))
		}
		fmt.Println()
	}

	if historyPath != "" {
		if f, err := os.Create(historyPath); err == nil {
			_, _ = line.WriteHistory(f)
			f.Close()
		}
	}
	return nil
}

func replHistoryPath() string {
	dir, err := config.EnsureDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "repl_history")
}
