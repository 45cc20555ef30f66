package notion

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/jomei/notionapi"
	"github.com/lotas/readlater/internal/notion/mock_notion"
	"github.com/lotas/readlater/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var saved = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestExporter(t *testing.T) (*Exporter, *mock_notion.MockPageService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	mockPage := mock_notion.NewMockPageService(ctrl)
	e, err := NewExporter(mockPage, "db-1", time.Second)
	require.NoError(t, err)
	e.retryDelay = 0
	return e, mockPage
}

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		token, db   string
		expectError bool
	}{
		{"valid configuration", "secret", "db", false},
		{"missing API key", "", "db", true},
		{"missing database ID", "secret", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := New(tt.token, tt.db, time.Second)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, e)
		})
	}
}

func TestExportProperties(t *testing.T) {
	e, mockPage := newTestExporter(t)
	page := types.Page{
		ID: "1", URL: "https://go.dev/doc", Title: "Go docs", Tags: []string{"Go", "開発"},
		Read: true, Excerpt: "docs", SavedAt: saved,
	}

	mockPage.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
			assert.Equal(t, notionapi.DatabaseID("db-1"), req.Parent.DatabaseID)

			title := req.Properties[PropName].(notionapi.TitleProperty)
			assert.Equal(t, "Go docs", title.Title[0].Text.Content)
			assert.Equal(t, "https://go.dev/doc", req.Properties[PropURL].(notionapi.URLProperty).URL)
			assert.True(t, req.Properties[PropRead].(notionapi.CheckboxProperty).Checkbox)

			tags := req.Properties[PropTags].(notionapi.MultiSelectProperty).MultiSelect
			require.Len(t, tags, 2)
			assert.Equal(t, "開発", tags[1].Name)

			date := req.Properties[PropSaved].(notionapi.DateProperty).Date
			assert.True(t, time.Time(*date.Start).Equal(saved))

			excerpt := req.Properties[PropExcerpt].(notionapi.RichTextProperty)
			assert.Equal(t, "docs", excerpt.RichText[0].Text.Content)
			return &notionapi.Page{ID: "n1"}, nil
		})

	n, err := e.Export(context.Background(), []types.Page{page})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestExportNoteOmitsURL(t *testing.T) {
	e, mockPage := newTestExporter(t)
	mockPage.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
			_, hasURL := req.Properties[PropURL]
			assert.False(t, hasURL)
			_, hasTags := req.Properties[PropTags]
			assert.False(t, hasTags)
			return &notionapi.Page{}, nil
		})

	n, err := e.Export(context.Background(), []types.Page{{ID: "n", Title: "buy milk"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestExportRetries(t *testing.T) {
	e, mockPage := newTestExporter(t)
	gomock.InOrder(
		mockPage.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, errors.New("rate limited")),
		mockPage.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, errors.New("rate limited")),
		mockPage.EXPECT().Create(gomock.Any(), gomock.Any()).Return(&notionapi.Page{}, nil),
	)

	n, err := e.Export(context.Background(), []types.Page{{ID: "1", URL: "https://a.example", Title: "A"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestExportGivesUpAfterThreeAttempts(t *testing.T) {
	e, mockPage := newTestExporter(t)
	mockPage.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, errors.New("bad property")).Times(3)
	mockPage.EXPECT().Create(gomock.Any(), gomock.Any()).Return(&notionapi.Page{}, nil)

	n, err := e.Export(context.Background(), []types.Page{
		{ID: "bad", URL: "https://a.example", Title: "A"},
		{ID: "good", URL: "https://b.example", Title: "B"},
	})
	assert.Equal(t, 1, n)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page bad")
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestExportStopsOnCancel(t *testing.T) {
	e, mockPage := newTestExporter(t)
	ctx, cancel := context.WithCancel(context.Background())
	mockPage.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, *notionapi.PageCreateRequest) (*notionapi.Page, error) {
			cancel()
			return nil, context.Canceled
		})

	n, err := e.Export(ctx, []types.Page{
		{ID: "1", URL: "https://a.example"},
		{ID: "2", URL: "https://b.example"},
	})
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRichTextTruncates(t *testing.T) {
	long := strings.Repeat("あ", maxText+10)
	got := richText(long)[0].Text.Content
	assert.Equal(t, maxText, len([]rune(got)))
}

func TestTitleFallsBackToURL(t *testing.T) {
	e, _ := newTestExporter(t)
	req := e.request(types.Page{URL: "https://a.example"})
	title := req.Properties[PropName].(notionapi.TitleProperty)
	assert.Equal(t, "https://a.example", title.Title[0].Text.Content)
}
