// Package pages owns the in-memory page list and the user-facing mutations on it.
package pages

import (
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"github.com/lotas/readlater/internal/sns"
	"github.com/lotas/readlater/internal/storage"
	"github.com/lotas/readlater/internal/tagging"
	"github.com/lotas/readlater/internal/types"
)

// Store is the single mutable page list of a process. Every change is written
// through to the local database before it becomes visible.
type Store struct {
	db *sql.DB // nil keeps the list in memory only

	mu    sync.Mutex
	pages []types.Page

	subMu   sync.Mutex
	subs    map[int]func([]types.Page)
	nextSub int
}

// NewStore returns an empty store persisting to db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, pages: []types.Page{}, subs: make(map[int]func([]types.Page))}
}

// Load replaces the in-memory list with the persisted one. Legacy records
// without tags get an empty list and records without a platform get one
// derived from their URL.
func (s *Store) Load() error {
	if s.db == nil {
		return nil
	}
	loaded, err := storage.LoadPages(s.db)
	if err != nil {
		return err
	}
	for i := range loaded {
		loaded[i] = Coerce(loaded[i])
	}
	s.mu.Lock()
	s.pages = loaded
	snapshot := types.ClonePages(loaded)
	s.mu.Unlock()
	s.notify(snapshot)
	return nil
}

// Coerce fills fields that older records may lack and drops duplicate or
// invalid tags.
func Coerce(p types.Page) types.Page {
	p.Tags = tagging.Dedupe(p.Tags)
	if p.SNS == nil {
		p.SNS = sns.Classify(p.URL)
	}
	return p
}

// Get returns a copy of the current list.
func (s *Store) Get() []types.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return types.ClonePages(s.pages)
}

// Find returns a copy of the page with id.
func (s *Store) Find(id string) (types.Page, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pages {
		if p.ID == id {
			return p.Clone(), true
		}
	}
	return types.Page{}, false
}

// Replace swaps in a whole new list.
func (s *Store) Replace(pages []types.Page) error {
	return s.Update(func([]types.Page) ([]types.Page, error) {
		return pages, nil
	})
}

// Update runs fn on a copy of the current list and stores its result. fn runs
// under the store lock, so it sees the latest list and must not block. If fn
// or the write fails, nothing changes.
func (s *Store) Update(fn func([]types.Page) ([]types.Page, error)) error {
	s.mu.Lock()
	next, err := fn(types.ClonePages(s.pages))
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if next == nil {
		next = []types.Page{}
	}
	next = types.ClonePages(next)
	if s.db != nil {
		if err := storage.SavePages(s.db, next); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("persist pages: %w", err)
		}
	}
	s.pages = next
	snapshot := types.ClonePages(next)
	s.mu.Unlock()

	s.notify(snapshot)
	return nil
}

// Subscribe registers fn to receive the list after every change. The
// returned function removes the subscription.
func (s *Store) Subscribe(fn func([]types.Page)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(pages []types.Page) {
	s.subMu.Lock()
	fns := make([]func([]types.Page), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(types.ClonePages(pages))
	}
}

// SortBySavedAt orders pages newest first; equal timestamps keep their order.
func SortBySavedAt(pages []types.Page) {
	sort.SliceStable(pages, func(i, j int) bool {
		return pages[i].SavedAt.After(pages[j].SavedAt)
	})
}
