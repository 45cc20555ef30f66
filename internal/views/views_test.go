package views

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/lotas/readlater/internal/sns"
	"github.com/lotas/readlater/internal/types"
	"github.com/stretchr/testify/assert"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func page(id, rawURL, domain string, tags ...string) types.Page {
	return types.Page{
		ID: id, URL: rawURL, Title: id, Domain: domain, Tags: tags,
		SNS: sns.Classify(rawURL), SavedAt: now,
	}
}

func fixture() []types.Page {
	gh := page("Go compiler", "https://github.com/golang/go", "github.com", "開発", "GitHub")
	gh2 := page("Second repo", "https://github.com/x/y", "github.com", "開発")
	gh2.Read = true
	yt := page("Talk", "https://www.youtube.com/watch?v=1", "www.youtube.com", "動画")
	blog := page("Blog", "https://example.com/post", "example.com")
	note := page("買い物メモ", "", "", "メモ")
	return []types.Page{gh, gh2, yt, blog, note}
}

func ids(list []types.Page) []string {
	var out []string
	for _, p := range list {
		out = append(out, p.ID)
	}
	return out
}

func TestFilter(t *testing.T) {
	list := fixture()
	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"Go compiler", "Second repo", "Talk", "Blog", "買い物メモ"}},
		{"  ", []string{"Go compiler", "Second repo", "Talk", "Blog", "買い物メモ"}},
		{"GO COMPILER", []string{"Go compiler"}},
		{"github", []string{"Go compiler", "Second repo"}},
		{"開発", []string{"Go compiler", "Second repo"}},
		{"youtube", []string{"Talk"}},
		{"メモ", []string{"買い物メモ"}},
		{"nothing-matches", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ids(Filter(list, tt.query))); diff != "" {
				t.Errorf("Filter(%q) mismatch (-want +got):\n%s", tt.query, diff)
			}
		})
	}
}

func TestMatchesFoldsCase(t *testing.T) {
	p := types.Page{Title: "STRASSE Guide"}
	assert.True(t, Matches(p, "strasse"))
	assert.False(t, Matches(types.Page{Title: "x"}, "undefined"), "missing platform is not searchable text")
}

func TestForTab(t *testing.T) {
	list := fixture()
	assert.Len(t, ForTab(list, types.TabAll, ""), 5)
	assert.Equal(t, []string{"Go compiler", "Talk", "Blog", "買い物メモ"}, ids(ForTab(list, types.TabUnread, "")))
	assert.Equal(t, []string{"Go compiler"}, ids(ForTab(list, types.TabUnread, "github")))
}

func TestSites(t *testing.T) {
	got := Sites(fixture())
	want := []Site{
		{Domain: "github.com", Count: 2, Favicon: "https://www.google.com/s2/favicons?domain=github.com&sz=64"},
		{Domain: "www.youtube.com", Count: 1, Favicon: "https://www.google.com/s2/favicons?domain=www.youtube.com&sz=64"},
		{Domain: "example.com", Count: 1, Favicon: "https://www.google.com/s2/favicons?domain=example.com&sz=64"},
		{Domain: "", Count: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Sites mismatch (-want +got):\n%s", diff)
	}
}

func TestTags(t *testing.T) {
	got := Tags(fixture())
	want := []TagCount{{"開発", 2}, {"GitHub", 1}, {"動画", 1}, {"メモ", 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Tags mismatch (-want +got):\n%s", diff)
	}
}

func TestSNS(t *testing.T) {
	got := SNS(fixture())
	assert.Equal(t, 3, len(got))
	assert.Equal(t, "GitHub", got[0].Name)
	assert.Equal(t, 2, got[0].Count)
	// ties keep first-seen order
	assert.Equal(t, sns.Other.Name, got[1].Name)
	assert.Equal(t, sns.Other.Icon, got[1].Icon)
	assert.Equal(t, 2, got[1].Count)
	assert.Equal(t, "YouTube", got[2].Name)
	assert.Equal(t, 1, got[2].Count)
}

func TestComputeStats(t *testing.T) {
	list := fixture()
	list[2].SavedAt = now.Add(-10 * 24 * time.Hour)
	list[1].SavedAt = now.Add(-30 * 24 * time.Hour) // read, never stale

	got := ComputeStats(list, 7, now)
	want := types.Stats{Total: 5, Unread: 4, Notes: 1, Sites: 3, Tags: 4, Platforms: 2, Stale: 1}
	assert.Equal(t, want, got)

	assert.Zero(t, ComputeStats(list, 0, now).Stale)
	assert.Equal(t, types.Stats{}, ComputeStats(nil, 7, now))
}

func TestTimeAgo(t *testing.T) {
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{0, "たった今"},
		{59 * time.Second, "たった今"},
		{time.Minute, "1分前"},
		{59 * time.Minute, "59分前"},
		{2 * time.Hour, "2時間前"},
		{36 * time.Hour, "1日前"},
		{8 * 24 * time.Hour, "1週間前"},
		{45 * 24 * time.Hour, "1ヶ月前"},
		{400 * 24 * time.Hour, "1年前"},
		{-time.Hour, "たった今"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TimeAgo(now.Add(-tt.ago), now), tt.ago.String())
	}
}
