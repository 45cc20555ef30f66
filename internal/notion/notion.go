package notion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jomei/notionapi"
	"github.com/lotas/readlater/internal/applog"
	"github.com/lotas/readlater/internal/types"
)

//go:generate mockgen -source=notion.go -destination=mock_notion/mock_notion.go -package=mock_notion

// PageService is the part of the Notion page API the exporter uses.
type PageService interface {
	Create(context.Context, *notionapi.PageCreateRequest) (*notionapi.Page, error)
}

// Database property names. The target database must define them with these
// types: Name (title), URL (url), Tags (multi-select), Read (checkbox),
// Saved (date), Excerpt (rich text).
const (
	PropName    = "Name"
	PropURL     = "URL"
	PropTags    = "Tags"
	PropRead    = "Read"
	PropSaved   = "Saved"
	PropExcerpt = "Excerpt"
)

const (
	maxAttempts = 3
	maxText     = 2000 // Notion rich text content limit, in characters
)

// Exporter writes pages as rows of a Notion database.
type Exporter struct {
	pages      PageService
	databaseID notionapi.DatabaseID
	timeout    time.Duration
	retryDelay time.Duration
}

// New creates an Exporter backed by the Notion API.
func New(token, databaseID string, timeout time.Duration) (*Exporter, error) {
	if token == "" {
		return nil, errors.New("notion api key is not set")
	}
	client := notionapi.NewClient(notionapi.Token(token))
	return NewExporter(client.Page, databaseID, timeout)
}

// NewExporter creates an Exporter on top of an existing page service.
func NewExporter(pages PageService, databaseID string, timeout time.Duration) (*Exporter, error) {
	if databaseID == "" {
		return nil, errors.New("notion database id is not set")
	}
	return &Exporter{
		pages:      pages,
		databaseID: notionapi.DatabaseID(databaseID),
		timeout:    timeout,
		retryDelay: time.Second,
	}, nil
}

// Export creates one database row per page and returns how many were
// created. Pages that still fail after retries are reported in the joined
// error; the rest are still exported.
func (e *Exporter) Export(ctx context.Context, list []types.Page) (int, error) {
	var created int
	var errs []error
	for _, p := range list {
		if err := e.create(ctx, p); err != nil {
			if ctx.Err() != nil {
				return created, ctx.Err()
			}
			applog.Error("notion.create", err, "id", p.ID)
			errs = append(errs, fmt.Errorf("page %s: %w", p.ID, err))
			continue
		}
		created++
	}
	applog.Info("notion.export", "created", created, "failed", len(errs))
	return created, errors.Join(errs...)
}

func (e *Exporter) create(ctx context.Context, p types.Page) error {
	req := e.request(p)
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = e.createOnce(ctx, req)
		if err == nil {
			return nil
		}
		applog.Debug("notion.retry", "id", p.ID, "attempt", attempt, "err", err.Error())
		if attempt == maxAttempts {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.retryDelay):
		}
	}
	return fmt.Errorf("create page after %d attempts: %w", maxAttempts, err)
}

func (e *Exporter) createOnce(ctx context.Context, req *notionapi.PageCreateRequest) error {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	_, err := e.pages.Create(ctx, req)
	return err
}

func (e *Exporter) request(p types.Page) *notionapi.PageCreateRequest {
	title := p.Title
	if title == "" {
		title = p.URL
	}
	props := notionapi.Properties{
		PropName: notionapi.TitleProperty{
			Title: richText(title),
		},
		PropRead: notionapi.CheckboxProperty{
			Checkbox: p.Read,
		},
	}
	if p.URL != "" {
		props[PropURL] = notionapi.URLProperty{URL: p.URL}
	}
	if len(p.Tags) > 0 {
		opts := make([]notionapi.Option, 0, len(p.Tags))
		for _, t := range p.Tags {
			opts = append(opts, notionapi.Option{Name: t})
		}
		props[PropTags] = notionapi.MultiSelectProperty{MultiSelect: opts}
	}
	if !p.SavedAt.IsZero() {
		saved := notionapi.Date(p.SavedAt)
		props[PropSaved] = notionapi.DateProperty{Date: &notionapi.DateObject{Start: &saved}}
	}
	if p.Excerpt != "" {
		props[PropExcerpt] = notionapi.RichTextProperty{RichText: richText(p.Excerpt)}
	}

	return &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       "database_id",
			DatabaseID: e.databaseID,
		},
		Properties: props,
	}
}

func richText(s string) []notionapi.RichText {
	if r := []rune(s); len(r) > maxText {
		s = string(r[:maxText])
	}
	return []notionapi.RichText{{Text: &notionapi.Text{Content: s}}}
}
