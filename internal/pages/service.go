package pages

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lotas/readlater/internal/analyzer"
	"github.com/lotas/readlater/internal/applog"
	"github.com/lotas/readlater/internal/metadata"
	"github.com/lotas/readlater/internal/sns"
	"github.com/lotas/readlater/internal/types"
)

var (
	ErrValidation = errors.New("nothing to save")
	ErrInvalidURL = errors.New("invalid url")
	ErrDuplicate  = errors.New("already saved")
	ErrNotFound   = errors.New("page not found")
)

// UntitledTitle is used when neither a title nor a domain is available.
const UntitledTitle = "Untitled"

// TagGenerator produces tags for a new page.
type TagGenerator interface {
	Generate(ctx context.Context, title, rawURL, excerpt string) []string
}

// MetaFetcher scrapes title and excerpt from a page.
type MetaFetcher interface {
	Fetch(ctx context.Context, rawURL string) (metadata.Meta, error)
}

// Mutator forwards local changes to the cloud. Implementations must not block
// on the network.
type Mutator interface {
	Upsert(p types.Page)
	SetRead(id string, read bool)
	Delete(id string)
}

// SaveInput is what a user typed into the add dialog.
type SaveInput struct {
	Text    string // url or free text
	Title   string
	Note    string
	Favicon string
}

// Service applies user actions to the Store and forwards them to the cloud.
type Service struct {
	Store  *Store
	Tags   TagGenerator
	Meta   MetaFetcher // nil disables metadata prefill
	Remote Mutator     // nil when cloud sync is off
	Now    func() time.Time
	NewID  func() string
}

func NewService(store *Store, tags TagGenerator) *Service {
	return &Service{Store: store, Tags: tags}
}

// FaviconURL is the icon service address for domain.
func FaviconURL(domain string) string {
	return "https://www.google.com/s2/favicons?domain=" + url.QueryEscape(domain) + "&sz=64"
}

// NewID returns a time-prefixed random page id.
func NewID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%d-%s", now.UnixMilli(), suffix)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return NewID(s.now())
}

// Save creates a page from the add dialog. It returns ErrDuplicate, wrapped
// with the existing title, when the URL is already saved.
func (s *Service) Save(ctx context.Context, in SaveInput) (types.Page, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return types.Page{}, ErrValidation
	}
	target := analyzer.ExtractURL(text)
	if target == "" {
		target = text
	}
	title := strings.TrimSpace(in.Title)
	note := strings.TrimSpace(in.Note)

	if !isWebURL(target) {
		return s.add(ctx, types.Page{Title: text, Excerpt: note})
	}

	domain, err := domainOf(target)
	if err != nil {
		return types.Page{}, err
	}
	if dup := analyzer.FindDuplicate(target, s.Store.Get()); dup != nil {
		return types.Page{}, fmt.Errorf("%w: %s", ErrDuplicate, dup.Title)
	}

	favicon := in.Favicon
	if favicon == "" {
		favicon = FaviconURL(domain)
	}
	if title == "" && s.Meta != nil {
		if m, err := s.Meta.Fetch(ctx, target); err != nil {
			applog.Debug("pages.meta_failed", "url", target, "err", err.Error())
		} else {
			title = m.Title
			if note == "" {
				note = m.Excerpt
			}
		}
	}
	if title == "" {
		title = domain
	}
	return s.add(ctx, types.Page{URL: target, Domain: domain, Title: title, Favicon: favicon, Excerpt: note})
}

// ExternalSave saves a page sent over the extension bridge. An empty url is
// ignored and returns ErrValidation.
func (s *Service) ExternalSave(ctx context.Context, rawURL, title, favicon string) (types.Page, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return types.Page{}, ErrValidation
	}
	target := analyzer.ExtractURL(rawURL)
	if target == "" {
		target = rawURL
	}
	if dup := analyzer.FindDuplicate(target, s.Store.Get()); dup != nil {
		return types.Page{}, fmt.Errorf("%w: %s", ErrDuplicate, dup.Title)
	}
	domain, err := domainOf(target)
	if err != nil {
		return types.Page{}, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = domain
	}
	if favicon == "" {
		favicon = FaviconURL(domain)
	}
	return s.add(ctx, types.Page{URL: target, Domain: domain, Title: title, Favicon: favicon})
}

// add tags p, prepends it and forwards the upsert.
func (s *Service) add(ctx context.Context, p types.Page) (types.Page, error) {
	if p.Title == "" {
		p.Title = UntitledTitle
	}
	if s.Tags != nil {
		p.Tags = s.Tags.Generate(ctx, p.Title, p.URL, p.Excerpt)
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	p.ID = s.newID()
	p.SNS = sns.Classify(p.URL)
	p.SavedAt = s.now()

	err := s.Store.Update(func(cur []types.Page) ([]types.Page, error) {
		// The list may have been replaced while tags were generated.
		if !p.IsNote() {
			if dup := analyzer.FindDuplicate(p.URL, cur); dup != nil {
				return nil, fmt.Errorf("%w: %s", ErrDuplicate, dup.Title)
			}
		}
		return append([]types.Page{p}, cur...), nil
	})
	if err != nil {
		return types.Page{}, err
	}
	applog.Info("pages.saved", "id", p.ID, "domain", p.Domain, "tags", len(p.Tags))
	if s.Remote != nil {
		s.Remote.Upsert(p.Clone())
	}
	return p, nil
}

// ToggleRead flips the read flag of id and returns the new value.
func (s *Service) ToggleRead(ctx context.Context, id string) (bool, error) {
	return s.setRead(id, func(cur bool) bool { return !cur })
}

// MarkRead sets the read flag of id.
func (s *Service) MarkRead(ctx context.Context, id string) error {
	_, err := s.setRead(id, func(bool) bool { return true })
	return err
}

func (s *Service) setRead(id string, next func(bool) bool) (bool, error) {
	var read bool
	err := s.Store.Update(func(cur []types.Page) ([]types.Page, error) {
		for i := range cur {
			if cur[i].ID == id {
				cur[i].Read = next(cur[i].Read)
				read = cur[i].Read
				return cur, nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	})
	if err != nil {
		return false, err
	}
	if s.Remote != nil {
		s.Remote.SetRead(id, read)
	}
	return read, nil
}

// Delete removes id locally, then forwards the delete. A remote failure
// never brings the page back.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.Store.Update(func(cur []types.Page) ([]types.Page, error) {
		for i := range cur {
			if cur[i].ID == id {
				return append(cur[:i], cur[i+1:]...), nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	})
	if err != nil {
		return err
	}
	applog.Info("pages.deleted", "id", id)
	if s.Remote != nil {
		s.Remote.Delete(id)
	}
	return nil
}

// Import adds pages whose id is not already present and returns how many
// were added. Imported pages are forwarded like new saves.
func (s *Service) Import(ctx context.Context, in []types.Page) (int, error) {
	var added []types.Page
	err := s.Store.Update(func(cur []types.Page) ([]types.Page, error) {
		seen := make(map[string]bool, len(cur))
		for _, p := range cur {
			seen[p.ID] = true
		}
		added = added[:0]
		for _, p := range in {
			if p.ID == "" || seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			added = append(added, Coerce(p.Clone()))
		}
		merged := append(cur, added...)
		SortBySavedAt(merged)
		return merged, nil
	})
	if err != nil {
		return 0, err
	}
	if s.Remote != nil {
		for _, p := range added {
			s.Remote.Upsert(p)
		}
	}
	applog.Info("pages.imported", "count", len(added))
	return len(added), nil
}

func isWebURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func domainOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
	}
	return strings.ToLower(u.Hostname()), nil
}
