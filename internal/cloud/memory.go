package cloud

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/lotas/readlater/internal/types"
)

// Memory is an in-process Repository with change fan-out.
type Memory struct {
	mu      sync.Mutex
	rows    map[string]map[string]types.Page // user -> id -> page
	subs    map[string]map[int]chan Change
	nextSub int
}

func NewMemory() *Memory {
	return &Memory{
		rows: make(map[string]map[string]types.Page),
		subs: make(map[string]map[int]chan Change),
	}
}

func (m *Memory) List(ctx context.Context, userID string) ([]types.Page, error) {
	if userID == "" {
		return nil, ErrNoIdentity
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]types.Page, 0, len(m.rows[userID]))
	for _, p := range m.rows[userID] {
		out = append(out, withSNS(p.Clone()))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SavedAt.Equal(out[j].SavedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].SavedAt.After(out[j].SavedAt)
	})
	return out, nil
}

func (m *Memory) Upsert(ctx context.Context, userID string, p types.Page) error {
	if userID == "" {
		return ErrNoIdentity
	}
	if p.ID == "" {
		return errors.New("cloud: page without id")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.rows[userID]
	if rows == nil {
		rows = make(map[string]types.Page)
		m.rows[userID] = rows
	}
	op := OpInsert
	if _, ok := rows[p.ID]; ok {
		op = OpUpdate
	}
	rows[p.ID] = p.Clone()
	m.publish(Change{Op: op, UserID: userID, PageID: p.ID})
	return nil
}

func (m *Memory) SetRead(ctx context.Context, userID, id string, read bool) error {
	if userID == "" {
		return ErrNoIdentity
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.rows[userID][id]
	if !ok {
		return nil
	}
	p.Read = read
	m.rows[userID][id] = p
	m.publish(Change{Op: OpUpdate, UserID: userID, PageID: id})
	return nil
}

func (m *Memory) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ErrNoIdentity
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rows[userID][id]; !ok {
		return nil
	}
	delete(m.rows[userID], id)
	m.publish(Change{Op: OpDelete, UserID: userID, PageID: id})
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, userID string) (<-chan Change, error) {
	if userID == "" {
		return nil, ErrNoIdentity
	}
	ch := make(chan Change, changeBuffer)

	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	if m.subs[userID] == nil {
		m.subs[userID] = make(map[int]chan Change)
	}
	m.subs[userID][id] = ch
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subs[userID], id)
		m.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}

// Subscribers returns the number of live subscriptions for userID.
func (m *Memory) Subscribers(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs[userID])
}

func (m *Memory) Close() error { return nil }

// publish must be called with m.mu held.
func (m *Memory) publish(c Change) {
	for _, ch := range m.subs[c.UserID] {
		send(ch, c)
	}
}
