package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lotas/readlater/internal/analyzer"
	"github.com/lotas/readlater/internal/types"
)

// CheckReport is the outcome of a library health check.
type CheckReport struct {
	Dead       []analyzer.DeadLinkResult
	Duplicates map[string][]string // normalized url -> page ids
	Stale      []analyzer.StalePage
	Checked    bool // whether links were checked at all
}

// RenderCheck renders a CheckReport, resolving page ids to titles via list.
func RenderCheck(r CheckReport, list []types.Page) string {
	titles := make(map[string]string, len(list))
	for _, p := range list {
		titles[p.ID] = p.Title
	}

	var b strings.Builder
	section := func(title string, n int) {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(headerStyle.Render(fmt.Sprintf("%s (%d)", title, n)))
	}

	if r.Checked {
		section("Dead links", len(r.Dead))
		for _, d := range r.Dead {
			b.WriteString("\n  " + warnStyle.Render("✗") + " " + titles[d.PageID] + "  " + dimStyle.Render(d.URL+" · "+d.Reason))
		}
	}

	keys := make([]string, 0, len(r.Duplicates))
	for k := range r.Duplicates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	section("Duplicates", len(keys))
	for _, k := range keys {
		b.WriteString("\n  " + dupStyle.Render("≡") + " " + k)
		for _, id := range r.Duplicates[k] {
			b.WriteString("\n      " + titles[id] + "  " + dimStyle.Render(id))
		}
	}

	section("Stale", len(r.Stale))
	for _, s := range r.Stale {
		b.WriteString("\n  " + staleStyle.Render(fmt.Sprintf("%dd", s.Days)) + " " + s.Page.Title + "  " + dimStyle.Render(s.Page.ID))
	}
	return b.String()
}
