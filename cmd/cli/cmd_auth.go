package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

type user struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type authResponse struct {
	Token   string `json:"token"`
	User    user   `json:"user"`
	Message string `json:"message"`
}

var (
	authEmail    string
	authUsername string
	authPassword string
	authVendor   bool
)

// pawfam register
var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and save the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if authEmail == "" || authUsername == "" || authPassword == "" {
			return errors.New("--email, --username and --password are required")
		}
		path := "/auth/register"
		if authVendor {
			path = "/auth/vendor/register"
		}
		var resp authResponse
		err := newClient(apiURL, "").do(cmd.Context(), http.MethodPost, path, map[string]string{
			"username": authUsername,
			"email":    authEmail,
			"password": authPassword,
		}, &resp)
		if err != nil {
			return fmt.Errorf("registration failed: %w", err)
		}
		if err := saveToken(resp.Token); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Registered %s (%s)\n", resp.User.Email, resp.User.Role)
		return nil
	},
}

// pawfam login
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and save the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if authEmail == "" || authPassword == "" {
			return errors.New("--email and --password are required")
		}
		path := "/auth/login"
		if authVendor {
			path = "/auth/vendor/login"
		}
		var resp authResponse
		err := newClient(apiURL, "").do(cmd.Context(), http.MethodPost, path, map[string]string{
			"email":    authEmail,
			"password": authPassword,
		}, &resp)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		if err := saveToken(resp.Token); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Logged in as %s\n", resp.User.Username)
		return nil
	},
}

// pawfam logout
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := removeToken(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Logged out")
		return nil
	},
}

// pawfam whoami
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := authed()
		if err != nil {
			return err
		}
		var resp struct {
			User user `json:"user"`
		}
		if err := c.do(cmd.Context(), http.MethodGet, "/auth/me", nil, &resp); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> role=%s id=%s\n", resp.User.Username, resp.User.Email, resp.User.Role, resp.User.ID)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{registerCmd, loginCmd} {
		c.Flags().StringVar(&authEmail, "email", "", "account email")
		c.Flags().StringVar(&authPassword, "password", "", "account password")
		c.Flags().BoolVar(&authVendor, "vendor", false, "use a vendor account")
	}
	registerCmd.Flags().StringVar(&authUsername, "username", "", "display name")
}
