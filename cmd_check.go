package main

import (
	"fmt"
	"time"

	"github.com/lotas/readlater/internal/analyzer"
	"github.com/lotas/readlater/internal/tui"
	"github.com/spf13/cobra"
)

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report duplicate, stale and dead pages",
		Long: `Report pages saved more than once under equivalent URLs, unread pages older
than stale_days, and with --links, pages whose URL no longer resolves.`,
		Args: cobra.NoArgs,
		RunE: runCheck,
	}
	cmd.Flags().Bool("links", false, "Also check every URL over the network")
	cmd.Flags().Int("stale-days", -1, "Override stale_days from config")
	return cmd
}

func runCheck(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context(), cmd, false)
	if err != nil {
		return err
	}
	defer a.close()

	staleDays := a.cfg.StaleDays
	if d, _ := cmd.Flags().GetInt("stale-days"); d >= 0 {
		staleDays = d
	}
	list := a.store.Get()
	report := tui.CheckReport{
		Duplicates: analyzer.AnalyzeDuplicates(list),
		Stale:      analyzer.AnalyzeStale(list, staleDays, time.Now()),
	}

	if links, _ := cmd.Flags().GetBool("links"); links {
		report.Checked = true
		results := make(chan analyzer.DeadLinkResult)
		go func() {
			analyzer.AnalyzeDeadLinks(cmd.Context(), list, results)
			close(results)
		}()
		for r := range results {
			if r.IsDead {
				report.Dead = append(report.Dead, r)
			}
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), tui.RenderCheck(report, list))
	return nil
}
