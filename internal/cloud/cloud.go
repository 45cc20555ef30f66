// Package cloud stores pages remotely, scoped by owner, and streams change
// notifications so other devices can refetch.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lotas/readlater/internal/applog"
	"github.com/lotas/readlater/internal/config"
	"github.com/lotas/readlater/internal/sns"
	"github.com/lotas/readlater/internal/types"
)

// ErrNoIdentity is returned by every Repository call made without a user id.
var ErrNoIdentity = errors.New("cloud: no authenticated identity")

// Change operations.
const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
	// OpResync means notifications may have been lost; refetch everything.
	OpResync = "resync"
)

// Change is a row-level notification for one owner.
type Change struct {
	Op     string `json:"op"`
	UserID string `json:"user_id"`
	PageID string `json:"id"`
}

// Repository is the remote page store. All calls are scoped by userID and are
// idempotent by page id.
type Repository interface {
	// List returns every page owned by userID, newest first.
	List(ctx context.Context, userID string) ([]types.Page, error)
	// Upsert inserts or replaces the page with p.ID.
	Upsert(ctx context.Context, userID string, p types.Page) error
	// SetRead updates only the read flag. A missing page is not an error.
	SetRead(ctx context.Context, userID, id string, read bool) error
	// Delete removes the page. A missing page is not an error.
	Delete(ctx context.Context, userID, id string) error
	// Subscribe streams changes for userID until ctx is done, then closes the channel.
	Subscribe(ctx context.Context, userID string) (<-chan Change, error)
	Close() error
}

// Open connects the configured provider. ProviderNone yields a nil Repository.
func Open(ctx context.Context, cfg config.CloudConfig) (Repository, error) {
	switch cfg.Provider {
	case "", config.ProviderNone:
		return nil, nil
	case config.ProviderMemory:
		return NewMemory(), nil
	case config.ProviderPostgres:
		pg, err := NewPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		return pg, nil
	case config.ProviderRedis:
		client, err := Connect(ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			PoolSize:       cfg.RedisPoolSize,
			DialTimeout:    5 * time.Second,
			ReadTimeout:    3 * time.Second,
			WriteTimeout:   3 * time.Second,
			ConnectTimeout: cfg.ConnectTimeout,
			RetryInterval:  500 * time.Millisecond,
			MaxWait:        5 * time.Second,
			PingTimeout:    2 * time.Second,
			WarnThreshold:  3,
		})
		if err != nil {
			return nil, err
		}
		return NewRedis(client), nil
	default:
		return nil, fmt.Errorf("unknown cloud provider %q", cfg.Provider)
	}
}

// withSNS fills the platform for rows that do not carry one.
func withSNS(p types.Page) types.Page {
	if p.SNS == nil {
		p.SNS = sns.Classify(p.URL)
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return p
}

// send delivers c unless the buffer is full. Every change triggers a full
// refetch, so a dropped change is covered by the one already queued.
func send(ch chan Change, c Change) {
	select {
	case ch <- c:
	default:
		applog.Debug("cloud.change_coalesced", "user", c.UserID, "id", c.PageID)
	}
}

const changeBuffer = 16
