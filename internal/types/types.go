package types

import "time"

// Page is a single saved bookmark or note.
type Page struct {
	ID      string    `json:"id"`
	URL     string    `json:"url"` // empty for note-only entries
	Title   string    `json:"title"`
	Favicon string    `json:"favicon"`
	Domain  string    `json:"domain"`
	Excerpt string    `json:"excerpt"`
	SNS     *Platform `json:"sns"`
	Tags    []string  `json:"tags"`
	Read    bool      `json:"read"`
	SavedAt time.Time `json:"savedAt"`
}

// IsNote reports whether the page is a note without a URL.
func (p Page) IsNote() bool {
	return p.URL == ""
}

// Clone returns a copy of the page that shares no slices or pointers with p.
func (p Page) Clone() Page {
	c := p
	if p.Tags != nil {
		c.Tags = append(p.Tags[:0:0], p.Tags...)
	}
	if p.SNS != nil {
		s := *p.SNS
		c.SNS = &s
	}
	return c
}

// ClonePages deep-copies a page list.
func ClonePages(pages []Page) []Page {
	if pages == nil {
		return nil
	}
	out := make([]Page, len(pages))
	for i, p := range pages {
		out[i] = p.Clone()
	}
	return out
}

// Platform is the SNS classification attached to a page.
type Platform struct {
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

// Stats holds aggregate counts over the page list.
type Stats struct {
	Total     int `json:"total"`
	Unread    int `json:"unread"`
	Notes     int `json:"notes"`
	Sites     int `json:"sites"`
	Tags      int `json:"tags"`
	Platforms int `json:"platforms"`
	Stale     int `json:"stale"`
}

// Tab selects which view of the page list is shown.
type Tab int

const (
	TabAll Tab = iota
	TabUnread
	TabSites
	TabTags
	TabSNS
)

var tabNames = []string{"all", "unread", "sites", "tags", "sns"}

func (t Tab) String() string {
	if int(t) < 0 || int(t) >= len(tabNames) {
		return "unknown"
	}
	return tabNames[t]
}

// ParseTab maps a tab name to a Tab. Unknown names map to TabAll.
func ParseTab(name string) (Tab, bool) {
	for i, n := range tabNames {
		if n == name {
			return Tab(i), true
		}
	}
	return TabAll, false
}
