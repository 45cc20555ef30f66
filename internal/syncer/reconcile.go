// Package syncer keeps the local page list and the cloud repository in step.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lotas/readlater/internal/applog"
	"github.com/lotas/readlater/internal/cloud"
	"github.com/lotas/readlater/internal/pages"
	"github.com/lotas/readlater/internal/types"
	"golang.org/x/sync/errgroup"
)

// pushConcurrency bounds parallel uploads of local-only pages.
const pushConcurrency = 8

// Result is the outcome of one reconciliation.
type Result struct {
	Pages  []types.Page // merged list, newest first
	Remote int          // pages fetched from the cloud
	Pushed []string     // ids uploaded because they only existed locally
	Failed []types.Page // local-only pages whose upload failed
}

// Reconcile merges the remote set for userID with local. Shared ids take the
// remote version. Local-only pages are uploaded and kept; a page missing
// remotely is never deleted locally. Each call to repo gets its own timeout.
// If the remote list cannot be fetched, Reconcile returns the error and no
// result.
func Reconcile(ctx context.Context, repo cloud.Repository, userID string, local []types.Page, timeout time.Duration) (Result, error) {
	listCtx, cancel := withTimeout(ctx, timeout)
	remote, err := repo.List(listCtx, userID)
	cancel()
	if err != nil {
		return Result{}, fmt.Errorf("fetch remote pages: %w", err)
	}

	byID := make(map[string]bool, len(remote))
	merged := make([]types.Page, 0, len(remote)+len(local))
	for _, p := range remote {
		byID[p.ID] = true
		merged = append(merged, pages.Coerce(p))
	}
	var localOnly []types.Page
	for _, p := range local {
		if byID[p.ID] {
			continue
		}
		byID[p.ID] = true
		localOnly = append(localOnly, p)
		merged = append(merged, p)
	}

	res := Result{Remote: len(remote)}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pushConcurrency)
	for _, p := range localOnly {
		g.Go(func() error {
			pctx, cancel := withTimeout(gctx, timeout)
			defer cancel()
			err := repo.Upsert(pctx, userID, p)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				applog.Error("sync.push", err, "id", p.ID)
				res.Failed = append(res.Failed, p)
				return nil
			}
			res.Pushed = append(res.Pushed, p.ID)
			return nil
		})
	}
	g.Wait()

	pages.SortBySavedAt(merged)
	res.Pages = merged
	return res, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
