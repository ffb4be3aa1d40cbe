// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/akjha-17/ragchat-tui/internal/history"
	"github.com/akjha-17/ragchat-tui/internal/util"
)

var (
	historyLimit  int
	historySearch string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the local exchange log",
	Long: `History reads the local SQLite log of completed exchanges. The log is
written by the TUI as answers arrive; it never leaves this machine and
survives backend session deletion.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		if !app.cfg.History.Enabled {
			return fmt.Errorf("history is disabled in config (history.enabled)")
		}

		store, err := openHistory(app.cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		var entries []history.Entry
		if historySearch != "" {
			entries, err = store.Search(cmd.Context(), historySearch, historyLimit)
		} else {
			entries, err = store.Recent(cmd.Context(), historyLimit)
		}
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No recorded exchanges.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "WHEN\tQUERY\tANSWER\tSOURCES\tTOOK")
		for _, e := range entries {
			took := (time.Duration(e.DurationMS) * time.Millisecond).Round(100 * time.Millisecond)
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				e.AskedAt.Format("2006-01-02 15:04"),
				util.TruncateWidth(e.Query, 40),
				util.TruncateWidth(e.Answer, 48),
				e.Sources,
				took,
			)
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 30, "Maximum entries to show")
	historyCmd.Flags().StringVar(&historySearch, "search", "", "Filter by a term in query or answer")
	rootCmd.AddCommand(historyCmd)
}
