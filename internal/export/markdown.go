package export

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/lotas/readlater/internal/types"
	"github.com/lotas/readlater/internal/views"
	"github.com/nao1215/markdown"
)

// Markdown writes the page list as a markdown document: a summary table, then
// unread and read sections.
func Markdown(w io.Writer, pages []types.Page, staleDays int, now time.Time) error {
	md := markdown.NewMarkdown(w)

	md.H1("ReadLater")
	md.PlainText("")
	md.PlainTextf("Exported %s", now.Format("2006-01-02 15:04"))
	md.PlainText("")

	st := views.ComputeStats(pages, staleDays, now)
	md.Table(markdown.TableSet{
		Header: []string{"", "Count"},
		Rows: [][]string{
			{"Saved", strconv.Itoa(st.Total)},
			{"Unread", strconv.Itoa(st.Unread)},
			{"Notes", strconv.Itoa(st.Notes)},
			{"Sites", strconv.Itoa(st.Sites)},
			{"Tags", strconv.Itoa(st.Tags)},
			{"Stale", strconv.Itoa(st.Stale)},
		},
	})
	md.PlainText("")

	var unread, read []types.Page
	for _, p := range pages {
		if p.Read {
			read = append(read, p)
		} else {
			unread = append(unread, p)
		}
	}
	writeSection(md, "Unread", unread, now)
	writeSection(md, "Read", read, now)

	return md.Build()
}

func writeSection(md *markdown.Markdown, name string, pages []types.Page, now time.Time) {
	if len(pages) == 0 {
		return
	}
	noun := "pages"
	if len(pages) == 1 {
		noun = "page"
	}
	md.H2f("%s (%d %s)", name, len(pages), noun)
	md.PlainText("")

	items := make([]string, 0, len(pages))
	for _, p := range pages {
		items = append(items, item(p, now))
	}
	md.BulletList(items...)
	md.PlainText("")
}

func item(p types.Page, now time.Time) string {
	var b strings.Builder
	title := p.Title
	if title == "" {
		title = p.URL
	}
	if p.IsNote() {
		b.WriteString("📝 " + title)
	} else {
		b.WriteString(markdown.Link(title, p.URL))
	}
	b.WriteString(" · " + views.TimeAgo(p.SavedAt, now))
	for _, t := range p.Tags {
		b.WriteString(" " + markdown.Code(t))
	}
	if p.Excerpt != "" && p.IsNote() {
		b.WriteString(" · " + p.Excerpt)
	}
	return b.String()
}
