// Package tagging derives tags for saved pages from a static domain table and,
// when a Gemini API key is available, from the model.
package tagging

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lotas/readlater/internal/applog"
	"github.com/lotas/readlater/internal/sns"
)

// Sentinel tags.
const (
	MemoTag          = "メモ"
	UncategorizedTag = "未分類"
)

const (
	maxTagRunes = 20 // tags must be shorter than this
	maxAITags   = 5
)

type domainTags struct {
	domain string
	tags   []string
}

// First substring match wins.
var domainTable = []domainTags{
	{"github.com", []string{"開発", "GitHub"}},
	{"youtube.com", []string{"動画", "YouTube"}},
	{"twitter.com", []string{"SNS", "Twitter"}},
	{"x.com", []string{"SNS", "X"}},
	{"qiita.com", []string{"技術記事", "Qiita"}},
	{"zenn.dev", []string{"技術記事", "Zenn"}},
	{"note.com", []string{"ブログ", "Note"}},
	{"medium.com", []string{"ブログ", "Medium"}},
}

// KeyFunc returns the current Gemini API key, or "" when none is configured.
// It is called on every generation so key changes apply immediately.
type KeyFunc func() string

// Options configures a Generator.
type Options struct {
	Model   string
	BaseURL string        // Gemini endpoint override; empty uses the SDK default
	Timeout time.Duration // per AI call
}

// Generator produces tags for pages.
type Generator struct {
	opts Options
	key  KeyFunc
}

// NewGenerator returns a Generator. A nil key disables AI tags.
func NewGenerator(opts Options, key KeyFunc) *Generator {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Model == "" {
		opts.Model = "gemini-2.0-flash-exp"
	}
	if key == nil {
		key = func() string { return "" }
	}
	return &Generator{opts: opts, key: key}
}

// Generate returns the deduplicated tags for a page. Notes get the memo tag.
// AI failures are logged and never surface; a page with no tags gets the
// uncategorized tag.
func (g *Generator) Generate(ctx context.Context, title, rawURL, excerpt string) []string {
	if rawURL == "" {
		return []string{MemoTag}
	}

	tags := DomainTags(rawURL)

	if key := g.key(); key != "" {
		ai, err := g.AITags(ctx, key, title, rawURL, excerpt)
		if err != nil {
			applog.Warn("tagging.ai_failed", "url", rawURL, "err", err.Error())
		} else {
			applog.Debug("tagging.ai", "url", rawURL, "tags", strings.Join(ai, ","))
			tags = append(tags, ai...)
		}
	}

	tags = Dedupe(tags)
	if len(tags) == 0 {
		return []string{UncategorizedTag}
	}
	return tags
}

// DomainTags returns the static tags for the URL's host, or nil.
func DomainTags(rawURL string) []string {
	host := sns.Hostname(rawURL)
	if host == "" {
		return nil
	}
	for _, d := range domainTable {
		if strings.Contains(host, d.domain) {
			return append([]string(nil), d.tags...)
		}
	}
	return nil
}

// ParseTags splits model output on commas (ASCII and ideographic), trims each
// fragment and keeps at most five non-empty fragments shorter than 20 runes.
func ParseTags(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == '、' || r == '，' || r == '\n'
	})
	var out []string
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if !ValidTag(f) {
			continue
		}
		out = append(out, f)
		if len(out) == maxAITags {
			break
		}
	}
	return out
}

// ValidTag reports whether t is non-empty and shorter than 20 runes.
func ValidTag(t string) bool {
	return t != "" && utf8.RuneCountInString(t) < maxTagRunes
}

// Dedupe drops invalid tags and exact duplicates, keeping first occurrences.
func Dedupe(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if !ValidTag(t) || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
