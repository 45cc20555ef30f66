package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/readlater/internal/types"
	"github.com/lotas/readlater/internal/views"
)

// RenderDetail renders every field of p inside a rounded border.
func RenderDetail(p types.Page, now time.Time, width int) string {
	labelStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	inner := width - 4
	if inner < 20 {
		inner = 20
	}

	var b strings.Builder
	field := func(label, value string) {
		if value == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(labelStyle.Render(label) + "\n" + value)
	}

	field("Title", p.Title)
	field("URL", wrap(p.URL, inner))
	field("Domain", p.Domain)
	if p.SNS != nil {
		field("SNS", p.SNS.Icon+" "+p.SNS.Name)
	}
	if len(p.Tags) > 0 {
		tags := make([]string, len(p.Tags))
		for i, t := range p.Tags {
			tags[i] = tagStyle.Render("#" + t)
		}
		field("Tags", strings.Join(tags, " "))
	}
	field("Excerpt", p.Excerpt)
	state := unreadStyle.Render("未読")
	if p.Read {
		state = readStyle.Render("既読")
	}
	field("Status", state)
	field("Saved", fmt.Sprintf("%s (%s)", p.SavedAt.Local().Format("2006-01-02 15:04"), views.TimeAgo(p.SavedAt, now)))
	field("ID", dimStyle.Render(p.ID))

	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(0, 1).
		Width(inner)
	return border.Render(b.String())
}

func wrap(s string, width int) string {
	if width < 1 || len(s) <= width {
		return s
	}
	var lines []string
	for len(s) > width {
		lines = append(lines, s[:width])
		s = s[width:]
	}
	return strings.Join(append(lines, s), "\n")
}
