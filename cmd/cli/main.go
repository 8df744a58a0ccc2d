package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const defaultAPI = "http://localhost:8080/api"

var apiURL string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "pawfam",
	Short:         "PawFam CLI",
	Long:          "Manage your PawFam account, daycare bookings, product orders and adoption applications.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", envOr("PAWFAM_API", defaultAPI), "API endpoint")

	// Auth
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)

	// Resources
	rootCmd.AddCommand(bookingsCmd)
	rootCmd.AddCommand(ordersCmd)
	rootCmd.AddCommand(applicationsCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
