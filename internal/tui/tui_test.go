package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/readlater/internal/analyzer"
	"github.com/lotas/readlater/internal/sns"
	"github.com/lotas/readlater/internal/types"
	"github.com/lotas/readlater/internal/views"
	"github.com/stretchr/testify/assert"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testPages() []types.Page {
	return []types.Page{
		{ID: "1", URL: "https://github.com/golang/go", Title: "golang/go", Domain: "github.com", Tags: []string{"開発", "GitHub"}, SNS: sns.Classify("https://github.com/golang/go"), SavedAt: now.Add(-2 * time.Hour)},
		{ID: "2", Title: "buy milk", Read: true, SavedAt: now.Add(-3 * 24 * time.Hour)},
	}
}

func TestRenderNavbar(t *testing.T) {
	out := RenderNavbar(types.TabUnread, types.Stats{Total: 5, Unread: 2, Sites: 3}, "synced", 80)
	for _, want := range []string{"すべて (5)", "未読 (2)", "サイト (3)", "タグ", "SNS", "synced"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "タグ (0)")
}

func TestRenderNavbarNoStatus(t *testing.T) {
	out := RenderNavbar(types.TabAll, types.Stats{}, "", 80)
	assert.True(t, strings.HasPrefix(out, " "))
	assert.NotContains(t, out, "(")
}

func TestRenderList(t *testing.T) {
	out := RenderList(testPages(), now, 120)
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "●")
	assert.Contains(t, lines[0], "golang/go")
	assert.Contains(t, lines[0], "github.com · 2時間前")
	assert.Contains(t, lines[0], "#開発")
	assert.Contains(t, lines[1], "○")
	assert.Contains(t, lines[1], "📝 buy milk")
	assert.Contains(t, lines[1], "3日前")
}

func TestRenderListEmpty(t *testing.T) {
	assert.Contains(t, RenderList(nil, now, 80), "ありません")
}

func TestRenderListTruncatesTitle(t *testing.T) {
	p := types.Page{ID: "x", URL: "https://a.example", Title: strings.Repeat("長", 200), Domain: "a.example", SavedAt: now}
	out := RenderList([]types.Page{p}, now, 80)
	assert.Contains(t, out, "…")
	assert.LessOrEqual(t, lipgloss.Width(out), 80)
}

func TestRenderGroups(t *testing.T) {
	list := testPages()
	out := RenderSites(views.Sites(list))
	assert.Contains(t, out, "github.com")
	assert.Contains(t, out, "1")

	out = RenderTags(views.Tags(list))
	assert.Contains(t, out, "#開発")

	out = RenderSNS(views.SNS(list))
	assert.Contains(t, out, "GitHub")

	assert.Contains(t, RenderSites(nil), "なし")
	assert.Contains(t, RenderSites([]views.Site{{Count: 2}}), "(ドメインなし)")
}

func TestRenderDetail(t *testing.T) {
	out := RenderDetail(testPages()[0], now, 60)
	for _, want := range []string{"golang/go", "https://github.com/golang/go", "#GitHub", "未読", "2時間前", "ID"} {
		assert.Contains(t, out, want)
	}
	assert.Contains(t, RenderDetail(testPages()[1], now, 60), "既読")
}

func TestRenderCheck(t *testing.T) {
	list := testPages()
	out := RenderCheck(CheckReport{
		Checked:    true,
		Dead:       []analyzer.DeadLinkResult{{PageID: "1", URL: "https://github.com/golang/go", IsDead: true, Reason: "404"}},
		Duplicates: map[string][]string{"https://github.com/golang/go": {"1", "2"}},
		Stale:      []analyzer.StalePage{{Page: list[0], Days: 40}},
	}, list)
	for _, want := range []string{"Dead links (1)", "404", "Duplicates (1)", "buy milk", "Stale (1)", "40d"} {
		assert.Contains(t, out, want)
	}

	out = RenderCheck(CheckReport{}, list)
	assert.NotContains(t, out, "Dead links")
	assert.Contains(t, out, "Duplicates (0)")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 10))
	assert.Equal(t, "hel…", Truncate("hello", 4))
	assert.Equal(t, "日本…", Truncate("日本語です", 5))
}
