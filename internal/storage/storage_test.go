package storage

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lotas/readlater/internal/types"
)

// testDB creates a temporary database for testing.
func testDB(t *testing.T) *sql.DB {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	db, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("OpenDB(%q): %v", dbPath, err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenDB(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "dir", "readlater.db")

	db, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("database file not created: %v", err)
	}
	v, err := SchemaVersion(db)
	if err != nil {
		t.Fatal(err)
	}
	if v != len(migrations) {
		t.Errorf("schema version = %d, want %d", v, len(migrations))
	}
}

func TestOpenDBTwiceIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "readlater.db")
	db, err := OpenDB(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := SetValue(db, "k", "v"); err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = OpenDB(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	v, ok, err := GetValue(db, "k")
	if err != nil || !ok || v != "v" {
		t.Fatalf("GetValue after reopen = %q, %v, %v", v, ok, err)
	}
}

func TestKV(t *testing.T) {
	db := testDB(t)

	if _, ok, err := GetValue(db, GeminiKeyKey); err != nil || ok {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}
	if err := SetValue(db, GeminiKeyKey, "one"); err != nil {
		t.Fatal(err)
	}
	if err := SetValue(db, GeminiKeyKey, "two"); err != nil {
		t.Fatal(err)
	}
	v, ok, err := GetValue(db, GeminiKeyKey)
	if err != nil || !ok || v != "two" {
		t.Fatalf("GetValue = %q, %v, %v", v, ok, err)
	}
	if err := DeleteValue(db, GeminiKeyKey); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := GetValue(db, GeminiKeyKey); ok {
		t.Error("key still present after delete")
	}
	if err := DeleteValue(db, "never-set"); err != nil {
		t.Errorf("deleting missing key: %v", err)
	}
}

func TestKeysPrefix(t *testing.T) {
	db := testDB(t)
	for _, k := range []string{"sb-abc-auth-token", "sb-xyz-auth-token", "sbx", "readlater_pages"} {
		if err := SetValue(db, k, "x"); err != nil {
			t.Fatal(err)
		}
	}
	keys, err := Keys(db, "sb-")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 || keys[0] != "sb-abc-auth-token" || keys[1] != "sb-xyz-auth-token" {
		t.Errorf("Keys(sb-) = %v", keys)
	}
}

func TestPagesRoundTrip(t *testing.T) {
	db := testDB(t)

	pages, err := LoadPages(db)
	if err != nil {
		t.Fatal(err)
	}
	if pages == nil || len(pages) != 0 {
		t.Fatalf("empty store should yield empty non-nil list, got %#v", pages)
	}

	saved := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	in := []types.Page{
		{ID: "1-a", URL: "https://github.com/x", Title: "github.com", Domain: "github.com",
			Tags: []string{"開発", "GitHub"}, SavedAt: saved,
			SNS: &types.Platform{Name: "GitHub", Icon: "🐙", Color: "#333"}},
		{ID: "2-b", Title: "note", Excerpt: "remember", Tags: []string{"メモ"}, Read: true, SavedAt: saved.Add(-time.Hour)},
	}
	if err := SavePages(db, in); err != nil {
		t.Fatal(err)
	}
	out, err := LoadPages(db)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d pages", len(out))
	}
	if out[0].SNS == nil || out[0].SNS.Name != "GitHub" || out[0].Tags[0] != "開発" {
		t.Errorf("first page mismatch: %+v", out[0])
	}
	if !out[1].Read || !out[1].SavedAt.Equal(saved.Add(-time.Hour)) {
		t.Errorf("second page mismatch: %+v", out[1])
	}
}

func TestLoadPagesLegacyJSON(t *testing.T) {
	db := testDB(t)
	legacy := `[{"id":"1","url":"https://x.com/a","title":"a","savedAt":"2023-01-01T00:00:00.000Z"}]`
	if err := SetValue(db, PagesKey, legacy); err != nil {
		t.Fatal(err)
	}
	pages, err := LoadPages(db)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 1 || pages[0].Tags != nil || pages[0].SNS != nil {
		t.Errorf("legacy record decoded unexpectedly: %+v", pages)
	}
}

func TestLoadPagesCorrupt(t *testing.T) {
	db := testDB(t)
	if err := SetValue(db, PagesKey, "{not json"); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPages(db); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestOutboxOrderAndScope(t *testing.T) {
	db := testDB(t)

	entries := []OutboxEntry{
		{ID: "e1", UserID: "u1", Op: OpUpsert, PageID: "p1", Payload: `{"id":"p1"}`},
		{ID: "e2", UserID: "u2", Op: OpDelete, PageID: "p9"},
		{ID: "e3", UserID: "u1", Op: OpSetRead, PageID: "p1", Payload: "true"},
		{ID: "e4", UserID: "u1", Op: OpDelete, PageID: "p1"},
	}
	for _, e := range entries {
		if err := EnqueueOutbox(db, e); err != nil {
			t.Fatal(err)
		}
	}
	if err := EnqueueOutbox(db, entries[0]); err == nil {
		t.Error("duplicate outbox id accepted")
	}

	got, err := PendingOutbox(db, "u1", 0)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, e := range got {
		ids = append(ids, e.ID)
	}
	if len(ids) != 3 || ids[0] != "e1" || ids[1] != "e3" || ids[2] != "e4" {
		t.Fatalf("pending for u1 = %v", ids)
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("created_at not populated")
	}

	limited, err := PendingOutbox(db, "u1", 1)
	if err != nil || len(limited) != 1 || limited[0].ID != "e1" {
		t.Fatalf("limit 1 = %v, %v", limited, err)
	}

	if err := FailOutbox(db, "e1", errors.New("timeout")); err != nil {
		t.Fatal(err)
	}
	got, _ = PendingOutbox(db, "u1", 1)
	if got[0].Attempts != 1 || got[0].LastError != "timeout" {
		t.Errorf("after failure: %+v", got[0])
	}

	if err := CompleteOutbox(db, "e1"); err != nil {
		t.Fatal(err)
	}
	n, err := CountOutbox(db)
	if err != nil || n != 3 {
		t.Errorf("CountOutbox = %d, %v; want 3", n, err)
	}
}
