// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/akjha-17/ragchat-tui/internal/api"
	"github.com/akjha-17/ragchat-tui/internal/util"
)

var (
	feedbacksLimit int
	feedbacksWorst int
)

var feedbacksCmd = &cobra.Command{
	Use:   "feedbacks",
	Short: "Summarize answer feedback (admin)",
	Long: `Feedbacks fetches recent answer ratings and prints a summary: total
count, average rating, the rating distribution, and the worst-rated
queries. Useful for spotting questions the knowledge base answers badly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		if err := app.requireAdmin(); err != nil {
			return err
		}

		records, err := app.client.ListFeedbacks(cmd.Context(), feedbacksLimit)
		if err != nil {
			return err
		}
		printFeedbackSummary(summarizeFeedback(records), feedbacksWorst)
		return nil
	},
}

// feedbackSummary is the aggregate over a set of feedback records.
type feedbackSummary struct {
	Total        int
	Average      float64
	Distribution [6]int // index = rating 1..5; 0 unused
	Worst        []api.FeedbackRecord
}

// summarizeFeedback aggregates ratings. Worst is sorted ascending by
// rating, ties broken by recency (newest first).
func summarizeFeedback(records []api.FeedbackRecord) feedbackSummary {
	var s feedbackSummary
	s.Total = len(records)
	if s.Total == 0 {
		return s
	}

	sum := 0
	for _, r := range records {
		sum += r.Rating
		if r.Rating >= 1 && r.Rating <= 5 {
			s.Distribution[r.Rating]++
		}
	}
	s.Average = float64(sum) / float64(s.Total)

	s.Worst = append(s.Worst, records...)
	sort.SliceStable(s.Worst, func(i, j int) bool {
		if s.Worst[i].Rating != s.Worst[j].Rating {
			return s.Worst[i].Rating < s.Worst[j].Rating
		}
		return s.Worst[i].Timestamp.After(s.Worst[j].Timestamp)
	})
	return s
}

func printFeedbackSummary(s feedbackSummary, worstN int) {
	if s.Total == 0 {
		fmt.Println("No feedback recorded yet.")
		return
	}

	fmt.Printf("Feedback entries: %d\n", s.Total)
	fmt.Printf("Average rating:   %.2f / 5\n\n", s.Average)

	fmt.Println("Distribution:")
	for rating := 5; rating >= 1; rating-- {
		count := s.Distribution[rating]
		bar := ""
		if s.Total > 0 {
			width := count * 30 / s.Total
			for i := 0; i < width; i++ {
				bar += "#"
			}
		}
		fmt.Printf("  %d  %4d  %s\n", rating, count, bar)
	}

	if worstN <= 0 || len(s.Worst) == 0 {
		return
	}
	if worstN > len(s.Worst) {
		worstN = len(s.Worst)
	}

	fmt.Println("\nWorst-rated queries:")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  RATING\tUSER\tQUERY\tCOMMENT")
	for _, r := range s.Worst[:worstN] {
		fmt.Fprintf(w, "  %d\t%s\t%s\t%s\n",
			r.Rating,
			r.Username,
			util.TruncateWidth(r.Query, 48),
			util.TruncateWidth(r.Comment, 32),
		)
	}
	_ = w.Flush()
}

func init() {
	feedbacksCmd.Flags().IntVar(&feedbacksLimit, "limit", 200, "Maximum feedback rows to fetch")
	feedbacksCmd.Flags().IntVar(&feedbacksWorst, "worst", 5, "How many worst-rated queries to show (0 to hide)")
	rootCmd.AddCommand(feedbacksCmd)
}
