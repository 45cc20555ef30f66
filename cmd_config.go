package main

import (
	"fmt"

	"github.com/lotas/readlater/internal/storage"
	"github.com/spf13/cobra"
)

// NewConfigCmd creates the config command.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show configuration and manage local settings",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration, secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", path, data)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file and database paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config:   %s\ndatabase: %s\n", path, cfg.DBPath())
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set-key <gemini-api-key>",
		Short: "Save the Gemini API key used for AI tags",
		Long:  `Save the Gemini API key in local settings. An empty key ("") removes it.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cmd, false)
			if err != nil {
				return err
			}
			defer a.close()
			if args[0] == "" {
				if err := storage.DeleteValue(a.db, storage.GeminiKeyKey); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Gemini API key removed")
				return nil
			}
			if err := storage.SetValue(a.db, storage.GeminiKeyKey, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Gemini API key saved")
			return nil
		},
	})
	return cmd
}
