// Package tui renders pages, views and reports for the terminal.
package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/readlater/internal/types"
)

var tabLabels = map[types.Tab]string{
	types.TabAll:    "すべて",
	types.TabUnread: "未読",
	types.TabSites:  "サイト",
	types.TabTags:   "タグ",
	types.TabSNS:    "SNS",
}

var tabOrder = []types.Tab{types.TabAll, types.TabUnread, types.TabSites, types.TabTags, types.TabSNS}

func tabCount(t types.Tab, st types.Stats) int {
	switch t {
	case types.TabAll:
		return st.Total
	case types.TabUnread:
		return st.Unread
	case types.TabSites:
		return st.Sites
	case types.TabTags:
		return st.Tags
	case types.TabSNS:
		return st.Platforms
	}
	return 0
}

// RenderNavbar renders the tab bar with counts, and the sync status on the
// right.
func RenderNavbar(active types.Tab, st types.Stats, status string, width int) string {
	activeStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62")).Underline(true)
	inactiveStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	countStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	var tabs string
	for i, t := range tabOrder {
		if i > 0 {
			tabs += inactiveStyle.Render(" │ ")
		}
		name := tabLabels[t]
		countSuffix := ""
		if n := tabCount(t, st); n > 0 {
			countSuffix = fmt.Sprintf(" (%d)", n)
		}
		if t == active {
			tabs += activeStyle.Render(name + countSuffix)
		} else {
			tabs += inactiveStyle.Render(name) + countStyle.Render(countSuffix)
		}
	}

	left := " " + tabs
	if status == "" {
		return left
	}
	right := statusStyle.Render(status)
	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 1
	if gap < 1 {
		gap = 1
	}
	padding := lipgloss.NewStyle().Width(gap)

	return left + padding.Render("") + right + " "
}
