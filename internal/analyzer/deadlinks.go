package analyzer

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lotas/readlater/internal/types"
)

type DeadLinkResult struct {
	PageID string
	URL    string
	IsDead bool
	Reason string
}

func shouldSkip(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	return !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://")
}

// AnalyzeDeadLinks HEAD-checks every saved URL with up to 10 requests in flight
// and sends one result per checked page. Notes and non-http URLs are skipped.
// 404, 410 and unreachable hosts count as dead.
func AnalyzeDeadLinks(ctx context.Context, pages []types.Page, results chan<- DeadLinkResult) {
	client := &http.Client{
		Timeout: 5 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	sem := make(chan struct{}, 10)
	var wg sync.WaitGroup

	for _, page := range pages {
		if page.IsNote() || shouldSkip(page.URL) {
			continue
		}

		wg.Add(1)
		go func(p types.Page) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			result := DeadLinkResult{PageID: p.ID, URL: p.URL}

			req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.URL, nil)
			if err != nil {
				result.IsDead = true
				result.Reason = "invalid URL"
				results <- result
				return
			}

			resp, err := client.Do(req)
			if err != nil {
				result.IsDead = true
				result.Reason = "unreachable"
				results <- result
				return
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
				result.IsDead = true
				result.Reason = fmt.Sprintf("%d", resp.StatusCode)
			}

			results <- result
		}(page)
	}

	wg.Wait()
}
