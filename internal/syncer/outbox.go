package syncer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lotas/readlater/internal/applog"
	"github.com/lotas/readlater/internal/cloud"
	"github.com/lotas/readlater/internal/storage"
	"github.com/lotas/readlater/internal/types"
)

var errBadEntry = errors.New("undeliverable outbox entry")

// Outbox queues cloud mutations in the local database and delivers them in
// order, at least once. Only entries owned by the current user are sent.
type Outbox struct {
	db      *sql.DB
	repo    cloud.Repository
	timeout time.Duration
	kick    chan struct{}

	mu     sync.Mutex
	userID string

	flushMu sync.Mutex
}

// NewOutbox returns an outbox delivering to repo with a per-call timeout.
func NewOutbox(db *sql.DB, repo cloud.Repository, timeout time.Duration) *Outbox {
	return &Outbox{db: db, repo: repo, timeout: timeout, kick: make(chan struct{}, 1)}
}

// SetUser selects whose entries are delivered. "" pauses delivery.
func (o *Outbox) SetUser(userID string) {
	o.mu.Lock()
	o.userID = userID
	o.mu.Unlock()
}

func (o *Outbox) user() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.userID
}

// EnqueueUpsert queues p for userID.
func (o *Outbox) EnqueueUpsert(userID string, p types.Page) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal page: %w", err)
	}
	return o.enqueue(userID, storage.OpUpsert, p.ID, string(data))
}

// EnqueueSetRead queues a read-flag change for userID.
func (o *Outbox) EnqueueSetRead(userID, id string, read bool) error {
	return o.enqueue(userID, storage.OpSetRead, id, strconv.FormatBool(read))
}

// EnqueueDelete queues a delete for userID.
func (o *Outbox) EnqueueDelete(userID, id string) error {
	return o.enqueue(userID, storage.OpDelete, id, "")
}

func (o *Outbox) enqueue(userID, op, pageID, payload string) error {
	if userID == "" {
		return cloud.ErrNoIdentity
	}
	err := storage.EnqueueOutbox(o.db, storage.OutboxEntry{
		ID: uuid.NewString(), UserID: userID, Op: op, PageID: pageID, Payload: payload,
	})
	if err != nil {
		return err
	}
	o.Kick()
	return nil
}

// Kick asks Run to flush soon. It never blocks.
func (o *Outbox) Kick() {
	select {
	case o.kick <- struct{}{}:
	default:
	}
}

// Pending returns the undelivered entries of the current user.
func (o *Outbox) Pending() ([]storage.OutboxEntry, error) {
	u := o.user()
	if u == "" {
		return nil, nil
	}
	return storage.PendingOutbox(o.db, u, 0)
}

// Flush delivers pending entries of the current user in enqueue order. It
// stops at the first failure so later entries never overtake it, and returns
// how many were delivered.
func (o *Outbox) Flush(ctx context.Context) (int, error) {
	o.flushMu.Lock()
	defer o.flushMu.Unlock()

	userID := o.user()
	if userID == "" || o.repo == nil {
		return 0, nil
	}
	entries, err := storage.PendingOutbox(o.db, userID, 0)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}
		err := o.deliver(ctx, e)
		if errors.Is(err, errBadEntry) {
			applog.Error("outbox.drop", err, "op", e.Op, "id", e.PageID)
			if err := storage.CompleteOutbox(o.db, e.ID); err != nil {
				return delivered, err
			}
			continue
		}
		if err != nil {
			applog.Error("outbox.deliver", err, "op", e.Op, "id", e.PageID, "attempts", e.Attempts+1)
			if ferr := storage.FailOutbox(o.db, e.ID, err); ferr != nil {
				applog.Error("outbox.record_failure", ferr, "entry", e.ID)
			}
			return delivered, err
		}
		if err := storage.CompleteOutbox(o.db, e.ID); err != nil {
			return delivered, err
		}
		delivered++
	}
	if delivered > 0 {
		applog.Info("outbox.flushed", "user", userID, "delivered", delivered)
	}
	return delivered, nil
}

func (o *Outbox) deliver(ctx context.Context, e storage.OutboxEntry) error {
	ctx, cancel := withTimeout(ctx, o.timeout)
	defer cancel()

	switch e.Op {
	case storage.OpUpsert:
		var p types.Page
		if err := json.Unmarshal([]byte(e.Payload), &p); err != nil {
			return fmt.Errorf("%w: %v", errBadEntry, err)
		}
		return o.repo.Upsert(ctx, e.UserID, p)
	case storage.OpSetRead:
		read, err := strconv.ParseBool(e.Payload)
		if err != nil {
			return fmt.Errorf("%w: %v", errBadEntry, err)
		}
		return o.repo.SetRead(ctx, e.UserID, e.PageID, read)
	case storage.OpDelete:
		return o.repo.Delete(ctx, e.UserID, e.PageID)
	default:
		return fmt.Errorf("%w: op %q", errBadEntry, e.Op)
	}
}

// Run flushes whenever Kick is called and every interval until ctx is done.
func (o *Outbox) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-o.kick:
		case <-ticker.C:
		}
		o.Flush(ctx)
	}
}

// Overlay applies the current user's undelivered mutations to a freshly
// fetched list, so a refetch does not undo local changes still in flight.
func (o *Outbox) Overlay(list []types.Page) []types.Page {
	entries, err := o.Pending()
	if err != nil {
		applog.Error("outbox.pending", err)
		return list
	}
	for _, e := range entries {
		idx := -1
		for i := range list {
			if list[i].ID == e.PageID {
				idx = i
				break
			}
		}
		switch e.Op {
		case storage.OpUpsert:
			var p types.Page
			if json.Unmarshal([]byte(e.Payload), &p) != nil {
				continue
			}
			if idx >= 0 {
				list[idx] = p
			} else {
				list = append(list, p)
			}
		case storage.OpSetRead:
			if read, err := strconv.ParseBool(e.Payload); err == nil && idx >= 0 {
				list[idx].Read = read
			}
		case storage.OpDelete:
			if idx >= 0 {
				list = append(list[:idx], list[idx+1:]...)
			}
		}
	}
	return list
}
