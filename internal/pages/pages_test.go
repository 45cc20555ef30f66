package pages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lotas/readlater/internal/metadata"
	"github.com/lotas/readlater/internal/storage"
	"github.com/lotas/readlater/internal/tagging"
	"github.com/lotas/readlater/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

type mutation struct {
	op   string
	id   string
	read bool
}

type fakeRemote struct {
	mu    sync.Mutex
	calls []mutation
}

func (f *fakeRemote) Upsert(p types.Page) { f.add(mutation{op: "upsert", id: p.ID}) }
func (f *fakeRemote) SetRead(id string, read bool) {
	f.add(mutation{op: "set_read", id: id, read: read})
}
func (f *fakeRemote) Delete(id string) { f.add(mutation{op: "delete", id: id}) }

func (f *fakeRemote) add(m mutation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, m)
}

func (f *fakeRemote) all() []mutation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mutation(nil), f.calls...)
}

type fakeMeta struct {
	meta metadata.Meta
	err  error
}

func (f fakeMeta) Fetch(context.Context, string) (metadata.Meta, error) { return f.meta, f.err }

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, db *sql.DB) (*Service, *fakeRemote) {
	t.Helper()
	remote := &fakeRemote{}
	n := 0
	svc := &Service{
		Store:  NewStore(db),
		Tags:   tagging.NewGenerator(tagging.Options{}, nil),
		Remote: remote,
		Now:    func() time.Time { return testNow },
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
	}
	return svc, remote
}

func TestSaveGitHubWithoutAIKey(t *testing.T) {
	svc, remote := newTestService(t, testDB(t))

	p, err := svc.Save(context.Background(), SaveInput{Text: "https://github.com/foo/bar"})
	require.NoError(t, err)

	assert.Equal(t, "github.com", p.Title)
	assert.Equal(t, "github.com", p.Domain)
	assert.Contains(t, p.Tags, "開発")
	assert.Contains(t, p.Tags, "GitHub")
	require.NotNil(t, p.SNS)
	assert.Equal(t, "GitHub", p.SNS.Name)
	assert.Equal(t, FaviconURL("github.com"), p.Favicon)
	assert.Equal(t, testNow, p.SavedAt)
	assert.False(t, p.Read)

	assert.Equal(t, []mutation{{op: "upsert", id: p.ID}}, remote.all())
	assert.Len(t, svc.Store.Get(), 1)
}

func TestSaveNote(t *testing.T) {
	svc, _ := newTestService(t, nil)

	p, err := svc.Save(context.Background(), SaveInput{Text: "牛乳を買う", Note: "帰りに"})
	require.NoError(t, err)
	assert.True(t, p.IsNote())
	assert.Equal(t, "牛乳を買う", p.Title)
	assert.Equal(t, "帰りに", p.Excerpt)
	assert.Equal(t, []string{tagging.MemoTag}, p.Tags)
	assert.Nil(t, p.SNS)
}

func TestSaveExtractsURLFromSharedText(t *testing.T) {
	svc, _ := newTestService(t, nil)

	p, err := svc.Save(context.Background(), SaveInput{Text: "面白い記事 https://zenn.dev/foo/articles/bar です", Title: "記事"})
	require.NoError(t, err)
	assert.Equal(t, "https://zenn.dev/foo/articles/bar", p.URL)
	assert.Equal(t, "記事", p.Title)
	assert.Equal(t, "Zenn", p.SNS.Name)
}

func TestSaveValidation(t *testing.T) {
	svc, remote := newTestService(t, nil)

	_, err := svc.Save(context.Background(), SaveInput{Text: "   "})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Save(context.Background(), SaveInput{Text: "https://"})
	assert.ErrorIs(t, err, ErrInvalidURL)

	assert.Empty(t, svc.Store.Get())
	assert.Empty(t, remote.all())
}

func TestSaveRejectsDuplicate(t *testing.T) {
	svc, remote := newTestService(t, nil)
	ctx := context.Background()

	first, err := svc.Save(ctx, SaveInput{Text: "https://example.com/post?utm_source=x", Title: "Post"})
	require.NoError(t, err)

	for _, dup := range []string{
		"https://example.com/post",
		"https://EXAMPLE.com/post/",
		"https://example.com/post?utm_medium=y&fbclid=1",
	} {
		_, err := svc.Save(ctx, SaveInput{Text: dup})
		assert.ErrorIs(t, err, ErrDuplicate, dup)
		assert.ErrorContains(t, err, "Post")
	}
	_, err = svc.ExternalSave(ctx, "https://example.com/post/", "", "")
	assert.ErrorIs(t, err, ErrDuplicate)

	assert.Len(t, svc.Store.Get(), 1)
	assert.Equal(t, []mutation{{op: "upsert", id: first.ID}}, remote.all())
}

// slowTags replaces the store contents while tags are being generated.
type slowTags struct {
	store *Store
	page  types.Page
}

func (s slowTags) Generate(context.Context, string, string, string) []string {
	s.store.Replace([]types.Page{s.page})
	return []string{"x"}
}

func TestSaveRechecksDuplicateAfterTagging(t *testing.T) {
	store := NewStore(nil)
	svc := &Service{
		Store: store,
		Tags:  slowTags{store: store, page: types.Page{ID: "remote", URL: "https://example.com/a", Title: "From cloud"}},
	}
	_, err := svc.Save(context.Background(), SaveInput{Text: "https://example.com/a"})
	assert.ErrorIs(t, err, ErrDuplicate)
	got := store.Get()
	require.Len(t, got, 1)
	assert.Equal(t, "remote", got[0].ID)
}

func TestSaveMetadataPrefill(t *testing.T) {
	svc, _ := newTestService(t, nil)
	svc.Meta = fakeMeta{meta: metadata.Meta{Title: "Scraped", Excerpt: "summary"}}

	p, err := svc.Save(context.Background(), SaveInput{Text: "https://example.com/a"})
	require.NoError(t, err)
	assert.Equal(t, "Scraped", p.Title)
	assert.Equal(t, "summary", p.Excerpt)

	// a typed title wins and a failing scrape degrades to the domain
	p, err = svc.Save(context.Background(), SaveInput{Text: "https://example.com/b", Title: "Mine"})
	require.NoError(t, err)
	assert.Equal(t, "Mine", p.Title)

	svc.Meta = fakeMeta{err: errors.New("timeout")}
	p, err = svc.Save(context.Background(), SaveInput{Text: "https://example.com/c"})
	require.NoError(t, err)
	assert.Equal(t, "example.com", p.Title)
}

func TestExternalSave(t *testing.T) {
	svc, remote := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.ExternalSave(ctx, "", "ignored", "")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, remote.all())

	p, err := svc.ExternalSave(ctx, "https://www.youtube.com/watch?v=1", "Video", "https://yt/icon.png")
	require.NoError(t, err)
	assert.Equal(t, "Video", p.Title)
	assert.Equal(t, "https://yt/icon.png", p.Favicon)
	assert.Equal(t, "YouTube", p.SNS.Name)
	assert.Empty(t, p.Excerpt)

	p, err = svc.ExternalSave(ctx, "https://qiita.com/x", "", "")
	require.NoError(t, err)
	assert.Equal(t, "qiita.com", p.Title)
	assert.Equal(t, FaviconURL("qiita.com"), p.Favicon)

	got := svc.Store.Get()
	require.Len(t, got, 2)
	assert.Equal(t, p.ID, got[0].ID, "newest first")
}

func TestToggleReadForwardsOneScopedUpdate(t *testing.T) {
	svc, remote := newTestService(t, nil)
	ctx := context.Background()
	p, err := svc.Save(ctx, SaveInput{Text: "https://example.com/a"})
	require.NoError(t, err)
	other, err := svc.Save(ctx, SaveInput{Text: "https://example.com/b"})
	require.NoError(t, err)

	before := len(remote.all())
	read, err := svc.ToggleRead(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, read)

	calls := remote.all()[before:]
	assert.Equal(t, []mutation{{op: "set_read", id: p.ID, read: true}}, calls)

	got, _ := svc.Store.Find(p.ID)
	assert.True(t, got.Read)
	untouched, _ := svc.Store.Find(other.ID)
	assert.False(t, untouched.Read)

	read, err = svc.ToggleRead(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, read)

	_, err = svc.ToggleRead(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, remote.all(), before+2)
}

func TestMarkRead(t *testing.T) {
	svc, remote := newTestService(t, nil)
	ctx := context.Background()
	p, _ := svc.Save(ctx, SaveInput{Text: "https://example.com/a"})

	require.NoError(t, svc.MarkRead(ctx, p.ID))
	require.NoError(t, svc.MarkRead(ctx, p.ID))
	got, _ := svc.Store.Find(p.ID)
	assert.True(t, got.Read)
	assert.Equal(t, mutation{op: "set_read", id: p.ID, read: true}, remote.all()[2])
}

func TestDeleteRemovesLocallyFirst(t *testing.T) {
	db := testDB(t)
	svc, remote := newTestService(t, db)
	ctx := context.Background()
	p, _ := svc.Save(ctx, SaveInput{Text: "https://example.com/a"})
	keep, _ := svc.Save(ctx, SaveInput{Text: "https://example.com/b"})

	require.NoError(t, svc.Delete(ctx, p.ID))

	_, ok := svc.Store.Find(p.ID)
	assert.False(t, ok)
	persisted, err := storage.LoadPages(db)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, keep.ID, persisted[0].ID)

	calls := remote.all()
	assert.Equal(t, mutation{op: "delete", id: p.ID}, calls[len(calls)-1])

	assert.ErrorIs(t, svc.Delete(ctx, p.ID), ErrNotFound)
}

func TestImportSkipsKnownIDs(t *testing.T) {
	svc, remote := newTestService(t, nil)
	ctx := context.Background()
	existing, _ := svc.Save(ctx, SaveInput{Text: "https://example.com/a"})

	n, err := svc.Import(ctx, []types.Page{
		existing,
		{ID: "old", URL: "https://github.com/x", Title: "x", SavedAt: testNow.Add(-time.Hour)},
		{ID: "", Title: "no id"},
		{ID: "newer", Title: "note", SavedAt: testNow.Add(time.Hour)},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got := svc.Store.Get()
	require.Len(t, got, 3)
	assert.Equal(t, []string{"newer", existing.ID, "old"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, "GitHub", got[2].SNS.Name, "coerced")
	assert.NotNil(t, got[0].Tags)
	assert.Len(t, remote.all(), 3)
}

func TestImportCleansTags(t *testing.T) {
	svc, _ := newTestService(t, nil)
	n, err := svc.Import(context.Background(), []types.Page{
		{ID: "b", URL: "https://example.com/b", Title: "b", SavedAt: testNow,
			Tags: []string{"go", "go", "this-tag-is-way-too-long-to-keep"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	p, ok := svc.Store.Find("b")
	require.True(t, ok)
	assert.Equal(t, []string{"go"}, p.Tags)
}

func TestNewIDShape(t *testing.T) {
	id := NewID(testNow)
	assert.Regexp(t, `^\d{13}-[0-9a-f]{9}$`, id)
	assert.NotEqual(t, id, NewID(testNow))
}

func TestNotice(t *testing.T) {
	assert.Equal(t, NoticeSaved, Notice(nil))
	assert.Equal(t, NoticeDuplicate, Notice(fmt.Errorf("%w: x", ErrDuplicate)))
	assert.Equal(t, NoticeEmpty, Notice(ErrValidation))
	assert.Equal(t, NoticeInvalidURL, Notice(fmt.Errorf("%w: x", ErrInvalidURL)))
	assert.Equal(t, NoticeFailed, Notice(errors.New("disk full")))
}
