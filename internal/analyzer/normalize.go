package analyzer

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/lotas/readlater/internal/types"
)

// Query parameters that identify the sharer or campaign rather than the content.
var trackingParams = map[string]bool{
	"fbclid":         true,
	"gclid":          true,
	"igshid":         true,
	"igsh":           true,
	"si":             true,
	"feature":        true,
	"ref_src":        true,
	"ref_url":        true,
	"share_id":       true,
	"sender_device":  true,
	"sender_web_id":  true,
	"is_from_webapp": true,
	"_r":             true,
	"_t":             true,
}

func isTrackingParam(key string) bool {
	key = strings.ToLower(key)
	return strings.HasPrefix(key, "utm_") || trackingParams[key]
}

// NormalizeURL reduces a URL to the form used for duplicate detection:
// no fragment, user info, tracking parameters or trailing slashes, remaining
// query parameters sorted, everything lower-cased. Input that is not an absolute
// URL is only trimmed, stripped of trailing slashes and lower-cased.
// NormalizeURL(NormalizeURL(u)) == NormalizeURL(u) for every u.
func NormalizeURL(rawURL string) string {
	s := strings.ToLower(strings.TrimSpace(rawURL))
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return strings.TrimRightFunc(s, func(r rune) bool { return r == '/' || unicode.IsSpace(r) })
	}

	params := u.Query()
	for k := range params {
		if isTrackingParam(k) {
			delete(params, k)
			continue
		}
		sort.Strings(params[k])
	}

	var b strings.Builder
	b.WriteString(u.Scheme)
	b.WriteString("://")
	b.WriteString(u.Host)
	b.WriteString(strings.TrimRight(u.EscapedPath(), "/"))
	if q := params.Encode(); q != "" {
		b.WriteByte('?')
		b.WriteString(q)
	}
	return strings.ToLower(b.String())
}

// IsDuplicate reports whether candidate matches the URL of an existing page.
// Empty candidates and generic feed URLs are never duplicates.
func IsDuplicate(candidate string, pages []types.Page) bool {
	return FindDuplicate(candidate, pages) != nil
}

// FindDuplicate returns a copy of the page whose URL normalizes to the same
// value as candidate, or nil.
func FindDuplicate(candidate string, pages []types.Page) *types.Page {
	if strings.TrimSpace(candidate) == "" || IsGenericFeed(candidate) {
		return nil
	}
	want := NormalizeURL(candidate)
	for _, p := range pages {
		if p.URL == "" {
			continue
		}
		if NormalizeURL(p.URL) == want {
			c := p.Clone()
			return &c
		}
	}
	return nil
}

// AnalyzeDuplicates groups pages sharing a normalized URL. The result maps the
// normalized URL to page ids, in list order, for every group of two or more.
func AnalyzeDuplicates(pages []types.Page) map[string][]string {
	groups := make(map[string][]string)
	for _, p := range pages {
		if p.URL == "" || IsGenericFeed(p.URL) {
			continue
		}
		n := NormalizeURL(p.URL)
		groups[n] = append(groups[n], p.ID)
	}
	for k, ids := range groups {
		if len(ids) < 2 {
			delete(groups, k)
		}
	}
	return groups
}

var urlInText = regexp.MustCompile(`(?i)https?://\S+`)

// ExtractURL returns the first http(s) URL embedded in free text, or "".
func ExtractURL(text string) string {
	return urlInText.FindString(text)
}
