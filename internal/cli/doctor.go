// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check connectivity and credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}

		fmt.Printf("Server:      %s\n", app.client.BaseURL())

		start := time.Now()
		health, err := app.client.Health(cmd.Context())
		if err != nil {
			fmt.Printf("Health:      UNREACHABLE (%v)\n", err)
			return fmt.Errorf("backend is not reachable")
		}
		fmt.Printf("Health:      %s (%s)\n", health.Status, time.Since(start).Round(time.Millisecond))
		if health.LLMBackend != "" {
			fmt.Printf("LLM:         %s\n", health.LLMBackend)
		}
		if health.Embedding != "" {
			fmt.Printf("Embedding:   %s\n", health.Embedding)
		}

		if !app.gateway.LoggedIn() {
			fmt.Println("Credentials: none (run: ragchat login)")
			return nil
		}
		claims := app.gateway.Claims()
		fmt.Printf("Credentials: %s, token expires %s\n",
			app.gateway.User().Username,
			claims.Expiry().Format("2006-01-02 15:04 MST"))

		if _, err := app.client.Me(cmd.Context()); err != nil {
			fmt.Printf("Token check: FAILED (%v)\n", err)
			return fmt.Errorf("stored token was rejected; log in again")
		}
		fmt.Println("Token check: ok")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
