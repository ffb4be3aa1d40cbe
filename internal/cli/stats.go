// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/akjha-17/ragchat-tui/internal/util"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show your usage statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		if err := app.requireLogin(); err != nil {
			return err
		}

		stats, err := app.client.UserStats(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Chats:             %d\n", stats.TotalChats)
		fmt.Printf("Messages:          %d\n", stats.TotalMessages)
		fmt.Printf("Feedback given:    %d\n", stats.FeedbackGiven)
		fmt.Printf("Documents viewed:  %d\n", stats.DocumentsViewed)

		if len(stats.RecentActivity) > 0 {
			fmt.Println("\nRecent activity:")
			for _, item := range stats.RecentActivity {
				title := item.SessionTitle
				if title == "" {
					title = "untitled"
				}
				fmt.Printf("  [%s] %s - %s\n",
					item.MessageType,
					util.TruncateWidth(title, 32),
					util.TruncateWidth(item.Content, 56),
				)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
