package analyzer

import (
	"time"

	"github.com/lotas/readlater/internal/types"
)

// StalePage is an unread page saved longer ago than the threshold.
type StalePage struct {
	Page types.Page
	Days int
}

// AnalyzeStale returns unread pages older than thresholdDays, in list order.
// A threshold of 0 disables the check.
func AnalyzeStale(pages []types.Page, thresholdDays int, now time.Time) []StalePage {
	if thresholdDays <= 0 {
		return nil
	}
	threshold := time.Duration(thresholdDays) * 24 * time.Hour

	var out []StalePage
	for _, p := range pages {
		if p.Read || p.SavedAt.IsZero() {
			continue
		}
		age := now.Sub(p.SavedAt)
		if age > threshold {
			out = append(out, StalePage{Page: p, Days: int(age.Hours() / 24)})
		}
	}
	return out
}
