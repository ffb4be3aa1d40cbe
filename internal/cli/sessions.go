// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/akjha-17/ragchat-tui/internal/api"
	"github.com/akjha-17/ragchat-tui/internal/model"
	"github.com/akjha-17/ragchat-tui/internal/util"
)

var (
	sessionsDeleteYes   bool
	sessionsRateComment string
	sessionsRateQuery   string
)

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"session"},
	Short:   "Manage saved conversations",
}

var sessionsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		if err := app.requireLogin(); err != nil {
			return err
		}

		sessions, err := app.client.ListSessions(cmd.Context())
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tMESSAGES\tLAST ACTIVITY")
		for _, s := range sessions {
			title := s.Title
			if title == "" {
				title = "untitled"
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
				s.ID,
				util.TruncateWidth(title, 48),
				s.MessageCount,
				relativeTime(s.Touched()),
			)
		}
		return w.Flush()
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a session transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		if err := app.requireLogin(); err != nil {
			return err
		}

		session, messages, err := app.client.SessionDetail(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("%s (%d messages)\n\n", session.Title, len(messages))
		for _, msg := range messages {
			ts := ""
			if !msg.Timestamp.IsZero() {
				ts = msg.Timestamp.Format(" 2006-01-02 15:04")
			}
			fmt.Printf("[%s%s]\n%s\n\n", msg.Role.DisplayName(), ts, strings.TrimSpace(msg.Content))
		}
		return nil
	},
}

var sessionsRenameCmd = &cobra.Command{
	Use:   "rename <id> <title>",
	Short: "Rename a session",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		if err := app.requireLogin(); err != nil {
			return err
		}

		title := strings.Join(args[1:], " ")
		if err := app.client.RenameSession(cmd.Context(), args[0], title); err != nil {
			return err
		}
		fmt.Printf("Renamed %s to %q\n", args[0], title)
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a session",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		if err := app.requireLogin(); err != nil {
			return err
		}

		if !sessionsDeleteYes {
			answer, err := promptLine(fmt.Sprintf("Delete session %s? [y/N] ", args[0]))
			if err != nil {
				return err
			}
			if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
				fmt.Println("Aborted.")
				return nil
			}
		}

		if err := app.client.DeleteSession(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

var sessionsRateCmd = &cobra.Command{
	Use:   "rate <id> <rating>",
	Short: "Rate a whole conversation 1-5 stars",
	Long: `Rate records session-level feedback, independent of the per-answer
thumbs in the TUI. Rating is a star score from 1 to 5.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		if err := app.requireLogin(); err != nil {
			return err
		}

		rating, err := strconv.Atoi(args[1])
		if err != nil || !model.ValidRating(rating) {
			return fmt.Errorf("rating must be a number from 1 to 5")
		}

		err = app.client.SubmitSessionFeedback(cmd.Context(), api.SessionFeedbackRequest{
			SessionID: args[0],
			Query:     sessionsRateQuery,
			Rating:    rating,
			Comment:   sessionsRateComment,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Rated session %s: %d/5\n", args[0], rating)
		return nil
	},
}

// relativeTime prints a compact age like the session sidebar uses.
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	diff := time.Since(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}

func init() {
	sessionsDeleteCmd.Flags().BoolVarP(&sessionsDeleteYes, "yes", "y", false, "Skip the confirmation prompt")
	sessionsRateCmd.Flags().StringVar(&sessionsRateComment, "comment", "", "Optional feedback comment")
	sessionsRateCmd.Flags().StringVar(&sessionsRateQuery, "query", "", "The query this feedback refers to")
	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsRenameCmd, sessionsDeleteCmd, sessionsRateCmd)
	rootCmd.AddCommand(sessionsCmd)
}
