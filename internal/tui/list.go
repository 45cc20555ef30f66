package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/readlater/internal/types"
	"github.com/lotas/readlater/internal/views"
)

var (
	unreadStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("44"))
	readStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	tagStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("135"))
	headerStyle = lipgloss.NewStyle().Bold(true)
	countStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	staleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	dupStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Bold(true)
)

// RenderList renders one line per page: read marker, title, domain, tags
// and age. Lines are cut to width.
func RenderList(list []types.Page, now time.Time, width int) string {
	if len(list) == 0 {
		return dimStyle.Render("  保存されたページはありません")
	}
	var b strings.Builder
	for i, p := range list {
		marker := unreadStyle.Render("●")
		if p.Read {
			marker = readStyle.Render("○")
		}
		title := p.Title
		if p.IsNote() {
			title = "📝 " + title
		}
		meta := views.TimeAgo(p.SavedAt, now)
		if p.Domain != "" {
			meta = p.Domain + " · " + meta
		}
		var tags string
		for _, t := range p.Tags {
			tags += " " + tagStyle.Render("#"+t)
		}
		id := dimStyle.Render(p.ID)

		room := width - lipgloss.Width(meta) - lipgloss.Width(tags) - lipgloss.Width(p.ID) - 10
		line := fmt.Sprintf("  %s %s  %s%s  %s", marker, Truncate(title, room), dimStyle.Render(meta), tags, id)
		b.WriteString(line)
		if i < len(list)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// noDomain labels the group of pages that have no domain.
const noDomain = "(ドメインなし)"

// RenderSites renders the per-domain grouping.
func RenderSites(sites []views.Site) string {
	rows := make([][2]string, len(sites))
	for i, s := range sites {
		domain := s.Domain
		if domain == "" {
			domain = noDomain
		}
		rows[i] = [2]string{domain, fmt.Sprint(s.Count)}
	}
	return renderGroups("サイト", rows)
}

// RenderTags renders the per-tag grouping.
func RenderTags(tags []views.TagCount) string {
	rows := make([][2]string, len(tags))
	for i, t := range tags {
		rows[i] = [2]string{"#" + t.Tag, fmt.Sprint(t.Count)}
	}
	return renderGroups("タグ", rows)
}

// RenderSNS renders the per-platform grouping, colored by platform.
func RenderSNS(platforms []views.PlatformCount) string {
	rows := make([][2]string, len(platforms))
	for i, p := range platforms {
		label := p.Icon + " " + p.Name
		if p.Color != "" {
			label = lipgloss.NewStyle().Foreground(lipgloss.Color(p.Color)).Render(label)
		}
		rows[i] = [2]string{label, fmt.Sprint(p.Count)}
	}
	return renderGroups("SNS", rows)
}

func renderGroups(title string, rows [][2]string) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(title))
	if len(rows) == 0 {
		b.WriteString("\n" + dimStyle.Render("  なし"))
		return b.String()
	}
	labelWidth := 0
	for _, r := range rows {
		if w := lipgloss.Width(r[0]); w > labelWidth {
			labelWidth = w
		}
	}
	label := lipgloss.NewStyle().Width(labelWidth)
	for _, r := range rows {
		b.WriteString("\n  " + label.Render(r[0]) + "  " + countStyle.Render(r[1]))
	}
	return b.String()
}

// Truncate cuts s to at most width terminal cells, marking the cut with "…".
func Truncate(s string, width int) string {
	if width < 1 {
		width = 1
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > width {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}
