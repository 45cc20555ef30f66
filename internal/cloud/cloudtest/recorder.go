// Package cloudtest provides a call-recording Repository for tests.
package cloudtest

import (
	"context"
	"sync"

	"github.com/lotas/readlater/internal/cloud"
	"github.com/lotas/readlater/internal/types"
)

// Method names used by Recorder.
const (
	List      = "List"
	Upsert    = "Upsert"
	SetRead   = "SetRead"
	Delete    = "Delete"
	Subscribe = "Subscribe"
)

// Call is one recorded Repository call.
type Call struct {
	Method string
	UserID string
	PageID string
	Read   bool
}

// Recorder wraps a Repository, records every call and can inject failures.
type Recorder struct {
	inner cloud.Repository

	mu    sync.Mutex
	calls []Call
	fail  map[string]error
}

// NewRecorder wraps inner; nil means a fresh cloud.Memory.
func NewRecorder(inner cloud.Repository) *Recorder {
	if inner == nil {
		inner = cloud.NewMemory()
	}
	return &Recorder{inner: inner, fail: make(map[string]error)}
}

// FailOn makes every call to method return err. A nil err clears it.
func (r *Recorder) FailOn(method string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.fail, method)
		return
	}
	r.fail[method] = err
}

// Calls returns the recorded calls to method, or all calls when method is "".
func (r *Recorder) Calls(method string) []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Call
	for _, c := range r.calls {
		if method == "" || c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// Inner returns the wrapped repository.
func (r *Recorder) Inner() cloud.Repository { return r.inner }

func (r *Recorder) record(c Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
	return r.fail[c.Method]
}

func (r *Recorder) List(ctx context.Context, userID string) ([]types.Page, error) {
	if err := r.record(Call{Method: List, UserID: userID}); err != nil {
		return nil, err
	}
	return r.inner.List(ctx, userID)
}

func (r *Recorder) Upsert(ctx context.Context, userID string, p types.Page) error {
	if err := r.record(Call{Method: Upsert, UserID: userID, PageID: p.ID}); err != nil {
		return err
	}
	return r.inner.Upsert(ctx, userID, p)
}

func (r *Recorder) SetRead(ctx context.Context, userID, id string, read bool) error {
	if err := r.record(Call{Method: SetRead, UserID: userID, PageID: id, Read: read}); err != nil {
		return err
	}
	return r.inner.SetRead(ctx, userID, id, read)
}

func (r *Recorder) Delete(ctx context.Context, userID, id string) error {
	if err := r.record(Call{Method: Delete, UserID: userID, PageID: id}); err != nil {
		return err
	}
	return r.inner.Delete(ctx, userID, id)
}

func (r *Recorder) Subscribe(ctx context.Context, userID string) (<-chan cloud.Change, error) {
	if err := r.record(Call{Method: Subscribe, UserID: userID}); err != nil {
		return nil, err
	}
	return r.inner.Subscribe(ctx, userID)
}

func (r *Recorder) Close() error { return r.inner.Close() }
