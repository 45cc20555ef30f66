package export

import (
	"encoding/json"
	"time"

	"github.com/lotas/readlater/internal/analyzer"
	"github.com/lotas/readlater/internal/types"
	"github.com/lotas/readlater/internal/views"
)

type jsonExport struct {
	ExportedAt time.Time   `json:"exported_at"`
	Count      int         `json:"count"`
	Stats      types.Stats `json:"stats"`
	Pages      []jsonPage  `json:"pages"`
}

type jsonPage struct {
	types.Page
	SavedAtPretty string `json:"saved_at_pretty"`
	SavedDays     int    `json:"saved_days"`
	IsStale       bool   `json:"is_stale,omitempty"`
	IsNote        bool   `json:"is_note,omitempty"`
}

// JSON formats the page list as a JSON document. Pages older than staleDays
// that are still unread are flagged.
func JSON(pages []types.Page, staleDays int, now time.Time) (string, error) {
	stale := map[string]bool{}
	for _, s := range analyzer.AnalyzeStale(pages, staleDays, now) {
		stale[s.Page.ID] = true
	}

	out := jsonExport{
		ExportedAt: now,
		Count:      len(pages),
		Stats:      views.ComputeStats(pages, staleDays, now),
		Pages:      make([]jsonPage, 0, len(pages)),
	}
	for _, p := range pages {
		p = p.Clone()
		if p.Tags == nil {
			p.Tags = []string{}
		}
		out.Pages = append(out.Pages, jsonPage{
			Page:          p,
			SavedAtPretty: views.TimeAgo(p.SavedAt, now),
			SavedDays:     int(now.Sub(p.SavedAt).Hours() / 24),
			IsStale:       stale[p.ID],
			IsNote:        p.IsNote(),
		})
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}
