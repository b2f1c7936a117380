// Package main is the entry point for the greeting BFF. It serves the
// browser-facing API and forwards greeting calls to the upstream service.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/angeloszaimis/greeting-bff/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "greeting-bff",
		Short: "Backend-for-frontend for the greeting service UI",
		Long: `Serves the greeting UI's API. Greeting requests are forwarded to the
upstream greeting service with a per-attempt timeout and bounded retries.
Runtime settings are read from AWS SSM Parameter Store under /<service-name>/.`,
		SilenceUsage: true,
		RunE:         runServe,
	}

	rootCmd.PersistentFlags().StringSlice("config-dir", []string{"./config", "."}, "Directories searched for config.yaml")

	rootCmd.AddCommand(newServeCmd(), newSettingsCmd())
	return rootCmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	dirs, err := cmd.Flags().GetStringSlice("config-dir")
	if err != nil {
		return nil, fmt.Errorf("failed to get config-dir flag: %w", err)
	}
	return config.LoadFrom(dirs...)
}
