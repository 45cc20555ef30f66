package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "readlater",
		Short: "Save pages and notes to read later",
		Long: `readlater keeps a local list of pages and notes to read later.

Saved URLs are de-duplicated, tagged from their domain and, with a Gemini API
key, by AI. Signing in syncs the list with the configured cloud store. The
serve command runs the browser extension bridge and the HTTP API.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			envFile, _ := cmd.Flags().GetString("env-file")
			return loadEnv(envFile)
		},
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Path to config file (default: $XDG_CONFIG_HOME/readlater/config.yaml)")
	cmd.PersistentFlags().String("env-file", ".env", "Environment file to load before reading config")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Also log to stderr")

	cmd.AddCommand(NewAddCmd())
	cmd.AddCommand(NewListCmd())
	cmd.AddCommand(NewShowCmd())
	cmd.AddCommand(NewReadCmd())
	cmd.AddCommand(NewDeleteCmd())
	cmd.AddCommand(NewSyncCmd())
	cmd.AddCommand(NewLoginCmd())
	cmd.AddCommand(NewLogoutCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewTagsCmd())
	cmd.AddCommand(NewExportCmd())
	cmd.AddCommand(NewImportCmd())
	cmd.AddCommand(NewNotionCmd())
	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewConfigCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// loadEnv loads variables from path without overriding the environment. A
// missing file is not an error.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
