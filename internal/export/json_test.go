package export

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/lotas/readlater/internal/types"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func samplePages() []types.Page {
	return []types.Page{
		{ID: "1", URL: "https://go.dev/doc", Title: "Go docs", Domain: "go.dev", Tags: []string{"Go", "開発"}, SavedAt: now.Add(-3 * 24 * time.Hour)},
		{ID: "2", URL: "https://github.com/golang/go", Title: "golang/go", Domain: "github.com", Tags: []string{"GitHub"}, Read: true, SavedAt: now.Add(-5 * time.Hour)},
		{ID: "3", Title: "buy milk", Excerpt: "2 bottles", SavedAt: now.Add(-40 * 24 * time.Hour)},
	}
}

func TestJSON_Pages(t *testing.T) {
	result, err := JSON(samplePages(), 30, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed jsonExport
	if err := json.Unmarshal([]byte(result), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v\noutput:\n%s", err, result)
	}

	if parsed.Count != 3 || len(parsed.Pages) != 3 {
		t.Fatalf("expected 3 pages, got count=%d len=%d", parsed.Count, len(parsed.Pages))
	}
	if !parsed.ExportedAt.Equal(now) {
		t.Errorf("exported_at = %v", parsed.ExportedAt)
	}
	if parsed.Stats.Unread != 2 || parsed.Stats.Notes != 1 {
		t.Errorf("stats = %+v", parsed.Stats)
	}

	p0 := parsed.Pages[0]
	if p0.Domain != "go.dev" {
		t.Errorf("expected domain 'go.dev', got %q", p0.Domain)
	}
	if p0.SavedAtPretty != "3日前" {
		t.Errorf("expected saved_at_pretty '3日前', got %q", p0.SavedAtPretty)
	}
	if p0.SavedDays != 3 {
		t.Errorf("expected saved_days 3, got %d", p0.SavedDays)
	}
	if len(p0.Tags) != 2 || p0.Tags[1] != "開発" {
		t.Errorf("tags = %v", p0.Tags)
	}
}

func TestJSON_AnalysisFields(t *testing.T) {
	result, err := JSON(samplePages(), 30, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var parsed jsonExport
	if err := json.Unmarshal([]byte(result), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	pages := parsed.Pages
	if pages[0].IsStale || pages[1].IsStale {
		t.Errorf("recent pages flagged stale")
	}
	if !pages[2].IsStale {
		t.Errorf("expected 40-day-old unread note to be stale")
	}
	if !pages[2].IsNote || pages[0].IsNote {
		t.Errorf("is_note flags wrong: %v %v", pages[0].IsNote, pages[2].IsNote)
	}
}

func TestJSON_Empty(t *testing.T) {
	result, err := JSON(nil, 30, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(result), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	pages, ok := parsed["pages"].([]any)
	if !ok || len(pages) != 0 {
		t.Errorf("expected empty pages array, got %v", parsed["pages"])
	}
}

func TestJSON_NilTagsBecomeArray(t *testing.T) {
	result, err := JSON([]types.Page{{ID: "x", URL: "https://a.example", SavedAt: now}}, 0, now)
	if err != nil {
		t.Fatal(err)
	}
	var parsed map[string][]map[string]any
	_ = json.Unmarshal([]byte(result), &parsed)
	if tags, ok := parsed["pages"][0]["tags"].([]any); !ok || len(tags) != 0 {
		t.Errorf("tags = %v, want []", parsed["pages"][0]["tags"])
	}
}
