// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/akjha-17/ragchat-tui/internal/api"
)

var (
	loginUsername string
	loginDev      bool

	registerEmail    string
	registerFullName string
	registerPrefName string
	registerOrg      string

	profileEmail    string
	profilePrefName string
	profileFullName string
	profileOrg      string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate and store credentials",
	Long: `Authenticate against the backend and store the bearer token under
~/.ragchat/credentials.json (mode 0600).

With --dev the backend's development token endpoint is used instead of a
password; this only works against local backends that expose it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}

		username := loginUsername
		if username == "" {
			username, err = promptLine("Username: ")
			if err != nil {
				return err
			}
		}
		if username == "" {
			return fmt.Errorf("username is required")
		}

		if loginDev {
			token, err := app.client.DevToken(cmd.Context(), username)
			if err != nil {
				return err
			}
			if err := app.gateway.AdoptDevToken(cmd.Context(), token); err != nil {
				return err
			}
			fmt.Printf("Logged in as %s (dev token)\n", username)
			return nil
		}

		password, err := promptPassword("Password: ")
		if err != nil {
			return err
		}

		user, err := app.gateway.Login(cmd.Context(), username, password)
		if err != nil {
			return err
		}
		fmt.Printf("Logged in as %s\n", user.DisplayName())
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		if err := app.gateway.Logout(); err != nil {
			return err
		}
		fmt.Println("Logged out.")
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register <username>",
	Short: "Create a new account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}

		password, err := promptPassword("Password: ")
		if err != nil {
			return err
		}
		confirm, err := promptPassword("Confirm password: ")
		if err != nil {
			return err
		}
		if password != confirm {
			return fmt.Errorf("passwords do not match")
		}

		user, err := app.gateway.Register(cmd.Context(), api.RegisterRequest{
			Username:      args[0],
			Email:         registerEmail,
			Password:      password,
			FullName:      registerFullName,
			PreferredName: registerPrefName,
			Organization:  registerOrg,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Account created. Logged in as %s\n", user.DisplayName())
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in account",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		if err := app.requireLogin(); err != nil {
			return err
		}

		if cmd.Flags().Changed("email") || cmd.Flags().Changed("preferred-name") ||
			cmd.Flags().Changed("full-name") || cmd.Flags().Changed("organization") {
			update := api.ProfileUpdate{}
			if cmd.Flags().Changed("email") {
				update.Email = &profileEmail
			}
			if cmd.Flags().Changed("preferred-name") {
				update.PreferredName = &profilePrefName
			}
			if cmd.Flags().Changed("full-name") {
				update.FullName = &profileFullName
			}
			if cmd.Flags().Changed("organization") {
				update.Organization = &profileOrg
			}
			if _, err := app.client.UpdateProfile(cmd.Context(), update); err != nil {
				return err
			}
		}

		user, err := app.gateway.RefreshUser(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Username:   %s\n", user.Username)
		if user.FullName != "" {
			fmt.Printf("Full name:  %s\n", user.FullName)
		}
		if user.PreferredName != "" {
			fmt.Printf("Preferred:  %s\n", user.PreferredName)
		}
		if user.Email != "" {
			fmt.Printf("Email:      %s\n", user.Email)
		}
		if user.Organization != "" {
			fmt.Printf("Org:        %s\n", user.Organization)
		}
		fmt.Printf("Role:       %s\n", roleText(user.Role, user.IsAdmin))
		if claims := app.gateway.Claims(); claims != nil {
			fmt.Printf("Token exp:  %s\n", claims.Expiry().Format("2006-01-02 15:04 MST"))
		}
		return nil
	},
}

func roleText(role string, admin bool) string {
	if role == "" {
		role = "user"
	}
	if admin {
		return role + " (admin)"
	}
	return role
}

// promptLine reads one trimmed line from stdin.
func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads a password without echo.
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	data, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(data), nil
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Username (prompted when omitted)")
	loginCmd.Flags().BoolVar(&loginDev, "dev", false, "Use the backend's dev token endpoint (local backends only)")

	registerCmd.Flags().StringVar(&registerEmail, "email", "", "Email address")
	registerCmd.Flags().StringVar(&registerFullName, "full-name", "", "Full name")
	registerCmd.Flags().StringVar(&registerPrefName, "preferred-name", "", "Preferred name")
	registerCmd.Flags().StringVar(&registerOrg, "organization", "", "Organization")

	whoamiCmd.Flags().StringVar(&profileEmail, "email", "", "Update email address")
	whoamiCmd.Flags().StringVar(&profilePrefName, "preferred-name", "", "Update preferred name")
	whoamiCmd.Flags().StringVar(&profileFullName, "full-name", "", "Update full name")
	whoamiCmd.Flags().StringVar(&profileOrg, "organization", "", "Update organization")

	rootCmd.AddCommand(loginCmd, logoutCmd, registerCmd, whoamiCmd)
}
