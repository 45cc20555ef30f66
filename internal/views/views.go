// Package views derives the list, grouping and count views shown to the user.
// Everything here is a pure function of the page list.
package views

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lotas/readlater/internal/analyzer"
	"github.com/lotas/readlater/internal/sns"
	"github.com/lotas/readlater/internal/types"
	"golang.org/x/text/cases"
)

// Site is one domain and how many pages were saved from it.
type Site struct {
	Domain  string `json:"domain"`
	Count   int    `json:"count"`
	Favicon string `json:"favicon"`
}

// TagCount is one tag and how many pages carry it.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// PlatformCount is one platform and how many pages belong to it.
type PlatformCount struct {
	types.Platform
	Count int `json:"count"`
}

var folder = cases.Fold()

// Matches reports whether query occurs in the title, domain, tags or
// platform name of p, ignoring case.
func Matches(p types.Page, query string) bool {
	q := folder.String(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	var b strings.Builder
	b.WriteString(p.Title)
	b.WriteByte(' ')
	b.WriteString(p.Domain)
	b.WriteByte(' ')
	b.WriteString(strings.Join(p.Tags, " "))
	if p.SNS != nil {
		b.WriteByte(' ')
		b.WriteString(p.SNS.Name)
	}
	return strings.Contains(folder.String(b.String()), q)
}

// Filter returns the pages matching query, in order.
func Filter(list []types.Page, query string) []types.Page {
	out := make([]types.Page, 0, len(list))
	for _, p := range list {
		if Matches(p, query) {
			out = append(out, p)
		}
	}
	return out
}

// ForTab returns the filtered list for the all and unread tabs. Grouping
// tabs show every page.
func ForTab(list []types.Page, tab types.Tab, query string) []types.Page {
	if tab == types.TabUnread {
		unread := make([]types.Page, 0, len(list))
		for _, p := range list {
			if !p.Read {
				unread = append(unread, p)
			}
		}
		list = unread
	}
	return Filter(list, query)
}

// Sites groups pages by domain, most pages first. Pages without a domain,
// notes included, share the group with an empty domain and no favicon.
func Sites(list []types.Page) []Site {
	idx := map[string]int{}
	var out []Site
	for _, p := range list {
		i, ok := idx[p.Domain]
		if !ok {
			i = len(out)
			idx[p.Domain] = i
			site := Site{Domain: p.Domain}
			if p.Domain != "" {
				site.Favicon = "https://www.google.com/s2/favicons?domain=" + p.Domain + "&sz=64"
			}
			out = append(out, site)
		}
		out[i].Count++
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Count > out[b].Count })
	return out
}

// Tags counts tag use, most used first.
func Tags(list []types.Page) []TagCount {
	idx := map[string]int{}
	var out []TagCount
	for _, p := range list {
		for _, t := range p.Tags {
			i, ok := idx[t]
			if !ok {
				i = len(out)
				idx[t] = i
				out = append(out, TagCount{Tag: t})
			}
			out[i].Count++
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Count > out[b].Count })
	return out
}

// SNS groups pages by platform, most pages first. Pages on no known
// platform fall into sns.Other.
func SNS(list []types.Page) []PlatformCount {
	idx := map[string]int{}
	var out []PlatformCount
	for _, p := range list {
		name := sns.Other.Name
		if p.SNS != nil && p.SNS.Name != "" {
			name = p.SNS.Name
		}
		i, ok := idx[name]
		if !ok {
			i = len(out)
			idx[name] = i
			out = append(out, PlatformCount{Platform: sns.Lookup(name)})
		}
		out[i].Count++
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Count > out[b].Count })
	return out
}

// ComputeStats summarises the list. Unread pages saved more than staleDays
// ago count as stale; staleDays <= 0 disables that count.
func ComputeStats(list []types.Page, staleDays int, now time.Time) types.Stats {
	st := types.Stats{Total: len(list)}
	domains := map[string]bool{}
	tags := map[string]bool{}
	platforms := map[string]bool{}
	for _, p := range list {
		if !p.Read {
			st.Unread++
		}
		if p.IsNote() {
			st.Notes++
		}
		if p.Domain != "" {
			domains[p.Domain] = true
		}
		for _, t := range p.Tags {
			tags[t] = true
		}
		if p.SNS != nil {
			platforms[p.SNS.Name] = true
		}
	}
	st.Sites = len(domains)
	st.Tags = len(tags)
	st.Platforms = len(platforms)
	st.Stale = len(analyzer.AnalyzeStale(list, staleDays, now))
	return st
}

var ageUnits = []struct {
	label   string
	seconds int64
}{
	{"年", 31536000},
	{"ヶ月", 2592000},
	{"週間", 604800},
	{"日", 86400},
	{"時間", 3600},
	{"分", 60},
}

// TimeAgo renders how long ago t was, in the largest whole unit.
func TimeAgo(t, now time.Time) string {
	secs := int64(now.Sub(t) / time.Second)
	for _, u := range ageUnits {
		if n := secs / u.seconds; n >= 1 {
			return fmt.Sprintf("%d%s前", n, u.label)
		}
	}
	return "たった今"
}
