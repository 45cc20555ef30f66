package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lotas/readlater/internal/pages"
	"github.com/lotas/readlater/internal/tui"
	"github.com/lotas/readlater/internal/types"
	"github.com/lotas/readlater/internal/views"
	"github.com/spf13/cobra"
)

const listWidth = 100

// NewAddCmd creates the add command.
func NewAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <url-or-text>...",
		Short: "Save a page or a note",
		Long: `Save a URL, or free text as a note. Text that contains a URL saves the URL.

Examples:
  readlater add https://go.dev/blog/
  readlater add --title "Weekend reading" "check this https://example.com/a"
  readlater add "buy milk" --note "2 bottles"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAdd,
	}
	cmd.Flags().StringP("title", "t", "", "Title (default: page title or domain)")
	cmd.Flags().StringP("note", "n", "", "Note kept with the page")
	return cmd
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer a.close()
	a.restore(ctx)

	title, _ := cmd.Flags().GetString("title")
	note, _ := cmd.Flags().GetString("note")
	p, err := a.svc.Save(ctx, pages.SaveInput{Text: strings.Join(args, " "), Title: title, Note: note})
	fmt.Fprintln(cmd.OutOrStdout(), pages.Notice(err))
	if err != nil {
		if errors.Is(err, pages.ErrDuplicate) {
			return nil
		}
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tui.RenderList([]types.Page{p}, time.Now(), listWidth))
	return nil
}

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved pages",
		Long: `List saved pages by tab: all, unread, sites, tags or sns.

Examples:
  readlater list
  readlater list --tab unread -q golang
  readlater list --tab tags
  readlater list --json`,
		Args: cobra.NoArgs,
		RunE: runList,
	}
	cmd.Flags().String("tab", "all", "Tab to show: all, unread, sites, tags, sns")
	cmd.Flags().StringP("query", "q", "", "Only pages whose title, domain, tags or platform match")
	cmd.Flags().BoolP("json", "j", false, "Output the selected pages as JSON")
	return cmd
}

func runList(cmd *cobra.Command, _ []string) error {
	tabName, _ := cmd.Flags().GetString("tab")
	tab, ok := types.ParseTab(tabName)
	if !ok {
		return fmt.Errorf("unknown tab %q", tabName)
	}
	query, _ := cmd.Flags().GetString("query")
	asJSON, _ := cmd.Flags().GetBool("json")

	a, err := openApp(cmd.Context(), cmd, false)
	if err != nil {
		return err
	}
	defer a.close()

	all := a.store.Get()
	now := time.Now()
	out := cmd.OutOrStdout()

	if asJSON {
		list := views.ForTab(all, tab, query)
		if list == nil {
			list = []types.Page{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}

	fmt.Fprintln(out, tui.RenderNavbar(tab, views.ComputeStats(all, a.cfg.StaleDays, now), "", listWidth))
	fmt.Fprintln(out)
	filtered := views.Filter(all, query)
	switch tab {
	case types.TabSites:
		fmt.Fprintln(out, tui.RenderSites(views.Sites(filtered)))
	case types.TabTags:
		fmt.Fprintln(out, tui.RenderTags(views.Tags(filtered)))
	case types.TabSNS:
		fmt.Fprintln(out, tui.RenderSNS(views.SNS(filtered)))
	default:
		fmt.Fprintln(out, tui.RenderList(views.ForTab(all, tab, query), now, listWidth))
	}
	return nil
}

// NewShowCmd creates the show command.
func NewShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show every field of a saved page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cmd, false)
			if err != nil {
				return err
			}
			defer a.close()
			p, ok := a.store.Find(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", pages.ErrNotFound, args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), tui.RenderDetail(p, time.Now(), listWidth))
			return nil
		},
	}
}

// NewReadCmd creates the read command.
func NewReadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read <id>...",
		Short: "Toggle the read flag of pages",
		Long: `Toggle pages between read and unread. With --mark, pages are marked read
regardless of their current state.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRead,
	}
	cmd.Flags().BoolP("mark", "m", false, "Mark read instead of toggling")
	return cmd
}

func runRead(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	mark, _ := cmd.Flags().GetBool("mark")
	a, err := openApp(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer a.close()
	a.restore(ctx)

	var errs []error
	for _, id := range args {
		read := true
		var err error
		if mark {
			err = a.svc.MarkRead(ctx, id)
		} else {
			read, err = a.svc.ToggleRead(ctx, id)
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		state := "未読"
		if read {
			state = "既読"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", id, state)
	}
	return errors.Join(errs...)
}

// NewDeleteCmd creates the delete command.
func NewDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Delete saved pages",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, cmd, true)
			if err != nil {
				return err
			}
			defer a.close()
			a.restore(ctx)

			var errs []error
			for _, id := range args {
				if err := a.svc.Delete(ctx, id); err != nil {
					errs = append(errs, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", id, pages.NoticeDeleted)
			}
			return errors.Join(errs...)
		},
	}
}
