// Package metadata prefills title, excerpt and image for a saved URL.
package metadata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"
)

const (
	userAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxBodyBytes  = 4 << 20
	maxExcerptLen = 300
)

// Meta is what a page says about itself.
type Meta struct {
	Title    string
	Excerpt  string
	Image    string // og:image, used as the favicon when none is given
	SiteName string
}

// Fetcher scrapes page metadata over HTTP.
type Fetcher struct {
	Client  *http.Client
	Timeout time.Duration
}

// NewFetcher returns a Fetcher whose requests give up after timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{Client: &http.Client{}, Timeout: timeout}
}

// Fetch downloads rawURL and extracts its metadata with readability.
// Returns an error for non-HTTP URLs, HTTP errors, or if extraction fails.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Meta, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return Meta{}, fmt.Errorf("skipping non-HTTP URL: %s", rawURL)
	}

	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Meta{}, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := f.Client.Do(req)
	if err != nil {
		return Meta{}, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Meta{}, fmt.Errorf("fetch %s: HTTP %d", rawURL, resp.StatusCode)
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxBodyBytes), u)
	if err != nil {
		return Meta{}, fmt.Errorf("extract metadata from %s: %w", rawURL, err)
	}

	return Meta{
		Title:    strings.TrimSpace(article.Title),
		Excerpt:  truncate(strings.TrimSpace(article.Excerpt), maxExcerptLen),
		Image:    article.Image,
		SiteName: article.SiteName,
	}, nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}
