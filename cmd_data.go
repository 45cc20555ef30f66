package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/lotas/readlater/internal/export"
	"github.com/lotas/readlater/internal/notion"
	"github.com/lotas/readlater/internal/types"
	"github.com/lotas/readlater/internal/views"
	"github.com/spf13/cobra"
)

// NewTagsCmd creates the tags command.
func NewTagsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags <title> [url]",
		Short: "Suggest tags for a title and URL",
		Long: `Print the tags a save would get: domain tags, plus AI tags when a Gemini key
is set (see readlater config set-key). With --ai-only the model is asked
directly and errors are reported instead of falling back.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cmd, false)
			if err != nil {
				return err
			}
			defer a.close()

			title, rawURL := args[0], ""
			if len(args) == 2 {
				rawURL = args[1]
			}
			var tags []string
			if aiOnly, _ := cmd.Flags().GetBool("ai-only"); aiOnly {
				key := a.geminiKey()
				if key == "" {
					key = a.cfg.Gemini.APIKey
				}
				if key == "" {
					return errors.New("no Gemini API key configured")
				}
				tags, err = a.tags.AITags(cmd.Context(), key, title, rawURL, "")
				if err != nil {
					return err
				}
			} else {
				tags = a.tags.Generate(cmd.Context(), title, rawURL, "")
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(tags, ", "))
			return nil
		},
	}
	cmd.Flags().Bool("ai-only", false, "Only ask the model")
	return cmd
}

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export saved pages",
		Long: `Export saved pages as JSON, Markdown or a compressed backup.

Examples:
  readlater export --format markdown -o pages.md
  readlater export --format backup -o pages.rlbak
  readlater export --tab unread`,
		Args: cobra.NoArgs,
		RunE: runExport,
	}
	cmd.Flags().StringP("format", "f", "json", "Output format: json, markdown, backup")
	cmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	cmd.Flags().String("tab", "all", "Only export this tab: all or unread")
	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")
	tabName, _ := cmd.Flags().GetString("tab")

	a, err := openApp(cmd.Context(), cmd, false)
	if err != nil {
		return err
	}
	defer a.close()

	list := a.store.Get()
	switch tabName {
	case "all":
	case "unread":
		list = views.ForTab(list, types.TabUnread, "")
	default:
		return fmt.Errorf("unknown tab %q (want all or unread)", tabName)
	}

	if output == "" {
		return writeExport(cmd.OutOrStdout(), format, list, a.cfg.StaleDays)
	}
	f, err := os.Create(output)
	if err != nil {
		return err
	}
	defer f.Close()
	bw := bufio.NewWriter(f)
	if err := writeExport(bw, format, list, a.cfg.StaleDays); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return f.Close()
}

func writeExport(w io.Writer, format string, list []types.Page, staleDays int) error {
	now := time.Now()
	switch format {
	case "json":
		doc, err := export.JSON(list, staleDays, now)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, doc)
		return err
	case "markdown", "md":
		return export.Markdown(w, list, staleDays, now)
	case "backup":
		return export.WriteBackup(w, list)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// NewImportCmd creates the import command.
func NewImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import pages from a backup or JSON export",
		Long: `Add pages from a compressed backup, a JSON export or a plain JSON page
array. Pages whose id is already present are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			list, err := export.ReadBackup(f)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, cmd, true)
			if err != nil {
				return err
			}
			defer a.close()
			a.restore(ctx)

			n, err := a.svc.Import(ctx, list)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d of %d pages\n", n, len(list))
			return nil
		},
	}
}

// NewNotionCmd creates the notion command.
func NewNotionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notion",
		Short: "Export saved pages to a Notion database",
		Long: `Create one row per page in a Notion database. The database needs the
properties Name (title), URL (url), Tags (multi-select), Read (checkbox),
Saved (date) and Excerpt (text).

Set NOTION_API_KEY and NOTION_DATABASE_ID, or notion.token and
notion.database_id in the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), cmd, false)
			if err != nil {
				return err
			}
			defer a.close()

			exp, err := notion.New(a.cfg.Notion.Token, a.cfg.Notion.DatabaseID, a.cfg.Cloud.Timeout)
			if err != nil {
				return err
			}
			list := a.store.Get()
			if unread, _ := cmd.Flags().GetBool("unread"); unread {
				list = views.ForTab(list, types.TabUnread, "")
			}
			n, err := exp.Export(cmd.Context(), list)
			fmt.Fprintf(cmd.OutOrStdout(), "created %d of %d pages\n", n, len(list))
			return err
		},
	}
	cmd.Flags().Bool("unread", false, "Only export unread pages")
	return cmd
}
