package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lotas/readlater/internal/applog"
	"github.com/lotas/readlater/internal/auth"
	"github.com/lotas/readlater/internal/cloud"
	"github.com/lotas/readlater/internal/pages"
	"github.com/lotas/readlater/internal/types"
)

// ErrSyncDisabled is returned by SignIn when no cloud provider is configured.
var ErrSyncDisabled = errors.New("cloud sync is not configured")

// State is where a Session is in its sign-in lifecycle.
type State int

const (
	StateSignedOut State = iota
	StateSigningIn
	StateSynced
)

func (s State) String() string {
	switch s {
	case StateSignedOut:
		return "signed-out"
	case StateSigningIn:
		return "signing-in"
	case StateSynced:
		return "synced"
	}
	return "unknown"
}

// resubscribeDelay is how long the watcher waits before reopening a change
// stream that closed on its own.
var resubscribeDelay = 5 * time.Second

// Session ties the local store to one signed-in identity. It implements
// pages.Mutator: while an identity is present, every local change is queued
// in the outbox for that identity.
type Session struct {
	repo    cloud.Repository
	store   *pages.Store
	outbox  *Outbox
	timeout time.Duration

	mu       sync.Mutex
	state    State
	identity auth.Identity
	cancel   context.CancelFunc
	done     chan struct{}
}

var _ pages.Mutator = (*Session)(nil)

// NewSession returns a signed-out session. repo may be nil when cloud sync is
// off; timeout bounds every remote call.
func NewSession(repo cloud.Repository, store *pages.Store, outbox *Outbox, timeout time.Duration) *Session {
	return &Session{repo: repo, store: store, outbox: outbox, timeout: timeout}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Identity returns the current identity and whether there is one.
func (s *Session) Identity() (auth.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity, s.identity.UserID != ""
}

func (s *Session) userID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity.UserID
}

// SignIn reconciles the local list with the cloud for id and starts
// following remote changes. A failed initial fetch leaves the local list
// untouched and is returned, but the session still follows changes.
// Signing in again first signs the previous identity out.
func (s *Session) SignIn(ctx context.Context, id auth.Identity) error {
	if s.repo == nil {
		return ErrSyncDisabled
	}
	if id.UserID == "" {
		return cloud.ErrNoIdentity
	}
	s.SignOut()

	s.mu.Lock()
	s.state = StateSigningIn
	s.identity = id
	s.mu.Unlock()
	s.outbox.SetUser(id.UserID)
	applog.Info("sync.sign_in", "user", id.UserID)

	res, syncErr := Reconcile(ctx, s.repo, id.UserID, s.store.Get(), s.timeout)
	if syncErr != nil {
		applog.Error("sync.reconcile", syncErr, "user", id.UserID)
	} else {
		for _, p := range res.Failed {
			if err := s.outbox.EnqueueUpsert(id.UserID, p); err != nil {
				applog.Error("sync.enqueue", err, "id", p.ID)
			}
		}
		// a page deleted while offline is still in the remote list until
		// its queued delete is delivered
		merged := s.outbox.Overlay(res.Pages)
		if err := s.store.Update(func(cur []types.Page) ([]types.Page, error) {
			return keepNewLocal(merged, cur), nil
		}); err != nil {
			applog.Error("sync.replace", err)
			syncErr = err
		} else {
			applog.Info("sync.merged", "remote", res.Remote, "pushed", len(res.Pushed), "failed", len(res.Failed))
		}
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.mu.Lock()
	if s.identity.UserID != id.UserID {
		// signed out while reconciling
		s.mu.Unlock()
		cancel()
		return syncErr
	}
	s.state = StateSynced
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	changes, err := s.repo.Subscribe(watchCtx, id.UserID)
	if err != nil {
		applog.Error("sync.subscribe", err, "user", id.UserID)
		changes = nil
	}
	go s.watch(watchCtx, id.UserID, changes, done)

	if _, err := s.outbox.Flush(ctx); err != nil {
		applog.Warn("sync.flush_deferred", "err", err.Error())
	}
	return syncErr
}

// keepNewLocal returns merged plus any page in cur that merged does not know,
// which covers saves made while reconciliation was running.
func keepNewLocal(merged, cur []types.Page) []types.Page {
	known := make(map[string]bool, len(merged))
	for _, p := range merged {
		known[p.ID] = true
	}
	out := append([]types.Page(nil), merged...)
	added := false
	for _, p := range cur {
		if !known[p.ID] {
			out = append(out, p)
			added = true
		}
	}
	if added {
		pages.SortBySavedAt(out)
	}
	return out
}

// SignOut stops following changes and forgets the identity. The local list
// is kept as is.
func (s *Session) SignOut() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	wasIn := s.identity.UserID != ""
	s.cancel, s.done = nil, nil
	s.state = StateSignedOut
	s.identity = auth.Identity{}
	s.mu.Unlock()

	s.outbox.SetUser("")
	if cancel != nil {
		cancel()
		<-done
	}
	if wasIn {
		applog.Info("sync.sign_out")
	}
}

// Close signs out and waits for the watcher to exit.
func (s *Session) Close() {
	s.SignOut()
}

// Refresh replaces the local list with the remote one. Mutations still in
// the outbox are applied on top.
func (s *Session) Refresh(ctx context.Context) error {
	userID := s.userID()
	if s.repo == nil || userID == "" {
		return cloud.ErrNoIdentity
	}
	return s.refresh(ctx, userID)
}

func (s *Session) refresh(ctx context.Context, userID string) error {
	lctx, cancel := withTimeout(ctx, s.timeout)
	remote, err := s.repo.List(lctx, userID)
	cancel()
	if err != nil {
		return fmt.Errorf("refetch: %w", err)
	}
	for i := range remote {
		remote[i] = pages.Coerce(remote[i])
	}
	list := s.outbox.Overlay(remote)
	pages.SortBySavedAt(list)
	if s.userID() != userID {
		return nil
	}
	if err := s.store.Replace(list); err != nil {
		return err
	}
	applog.Debug("sync.refetched", "user", userID, "pages", len(list))
	return nil
}

// watch refetches on every change until ctx is done. Changes that pile up
// while a fetch runs collapse into one more fetch.
func (s *Session) watch(ctx context.Context, userID string, changes <-chan cloud.Change, done chan struct{}) {
	defer close(done)
	for {
		if changes == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(resubscribeDelay):
			}
			ch, err := s.repo.Subscribe(ctx, userID)
			if err != nil {
				if ctx.Err() == nil {
					applog.Error("sync.resubscribe", err, "user", userID)
				}
				continue
			}
			changes = ch
			applog.Info("sync.resubscribed", "user", userID)
			if err := s.refresh(ctx, userID); err != nil && ctx.Err() == nil {
				applog.Error("sync.refetch", err, "user", userID)
			}
		}

		select {
		case <-ctx.Done():
			return
		case c, ok := <-changes:
			if !ok {
				if ctx.Err() != nil {
					return
				}
				applog.Warn("sync.stream_closed", "user", userID)
				changes = nil
				continue
			}
			drain(changes)
			applog.Debug("sync.change", "op", c.Op, "id", c.PageID)
			if err := s.refresh(ctx, userID); err != nil && ctx.Err() == nil {
				applog.Error("sync.refetch", err, "user", userID)
			}
		}
	}
}

func drain(ch <-chan cloud.Change) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// Upsert queues p for the signed-in identity. Signed out, it does nothing.
func (s *Session) Upsert(p types.Page) {
	if u := s.userID(); u != "" {
		if err := s.outbox.EnqueueUpsert(u, p); err != nil {
			applog.Error("sync.enqueue", err, "op", "upsert", "id", p.ID)
		}
	}
}

// SetRead queues a read-flag change for the signed-in identity.
func (s *Session) SetRead(id string, read bool) {
	if u := s.userID(); u != "" {
		if err := s.outbox.EnqueueSetRead(u, id, read); err != nil {
			applog.Error("sync.enqueue", err, "op", "set_read", "id", id)
		}
	}
}

// Delete queues a delete for the signed-in identity.
func (s *Session) Delete(id string) {
	if u := s.userID(); u != "" {
		if err := s.outbox.EnqueueDelete(u, id); err != nil {
			applog.Error("sync.enqueue", err, "op", "delete", "id", id)
		}
	}
}

// Flush delivers queued mutations now.
func (s *Session) Flush(ctx context.Context) (int, error) {
	return s.outbox.Flush(ctx)
}
