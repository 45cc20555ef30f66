package syncer

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lotas/readlater/internal/applog"
	"github.com/lotas/readlater/internal/auth"
	"github.com/lotas/readlater/internal/storage"
)

// Vault keeps the auth provider's session string in the local settings
// table, under the provider's sb-<ref>-auth-token key.
type Vault struct {
	db  *sql.DB
	ref string
}

func NewVault(db *sql.DB, projectRef string) *Vault {
	return &Vault{db: db, ref: projectRef}
}

// Key returns the settings key the session lives under.
func (v *Vault) Key() (string, error) {
	keys, err := storage.Keys(v.db, "sb-")
	if err != nil {
		return "", err
	}
	return auth.FindSessionKey(keys, v.ref), nil
}

// Load returns the stored session and its identity. ok is false when no
// session is stored.
func (v *Vault) Load() (id auth.Identity, ok bool, err error) {
	key, err := v.Key()
	if err != nil {
		return auth.Identity{}, false, err
	}
	blob, ok, err := storage.GetValue(v.db, key)
	if err != nil || !ok {
		return auth.Identity{}, false, err
	}
	id, err = auth.ParseSession(blob)
	if err != nil {
		return auth.Identity{}, false, fmt.Errorf("stored session: %w", err)
	}
	return id, true, nil
}

// Put stores blob verbatim unless it equals the stored value. It reports
// whether anything changed. Blobs without a user are rejected.
func (v *Vault) Put(blob string) (bool, error) {
	if _, err := auth.ParseSession(blob); err != nil {
		return false, err
	}
	key, err := v.Key()
	if err != nil {
		return false, err
	}
	cur, ok, err := storage.GetValue(v.db, key)
	if err != nil {
		return false, err
	}
	if ok && cur == blob {
		return false, nil
	}
	if err := storage.SetValue(v.db, key, blob); err != nil {
		return false, err
	}
	return true, nil
}

// Clear removes the stored session.
func (v *Vault) Clear() error {
	key, err := v.Key()
	if err != nil {
		return err
	}
	return storage.DeleteValue(v.db, key)
}

// Restore signs in with the stored session, if there is one.
func (s *Session) Restore(ctx context.Context, v *Vault) error {
	id, ok, err := v.Load()
	if err != nil || !ok {
		return err
	}
	return s.SignIn(ctx, id)
}

// Inject stores a session handed over by the browser extension and, when it
// differs from the stored one, signs in again as its user.
func (s *Session) Inject(ctx context.Context, v *Vault, blob string) (bool, error) {
	changed, err := v.Put(blob)
	if err != nil || !changed {
		return false, err
	}
	id, err := auth.ParseSession(blob)
	if err != nil {
		return true, err
	}
	applog.Info("sync.session_injected", "user", id.UserID)
	return true, s.SignIn(ctx, id)
}
