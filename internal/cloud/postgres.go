package cloud

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/lotas/readlater/internal/applog"
	"github.com/lotas/readlater/internal/types"
)

// NotifyChannel is the LISTEN/NOTIFY channel fed by the pages trigger.
const NotifyChannel = "pages_changes"

const pagesSchema = `
CREATE TABLE IF NOT EXISTS pages (
    id        TEXT PRIMARY KEY,
    user_id   TEXT NOT NULL,
    url       TEXT NOT NULL DEFAULT '',
    title     TEXT NOT NULL DEFAULT '',
    favicon   TEXT NOT NULL DEFAULT '',
    domain    TEXT NOT NULL DEFAULT '',
    excerpt   TEXT NOT NULL DEFAULT '',
    tags      TEXT[] NOT NULL DEFAULT '{}',
    read      BOOLEAN NOT NULL DEFAULT FALSE,
    saved_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS pages_user_saved_idx ON pages (user_id, saved_at DESC);

CREATE OR REPLACE FUNCTION readlater_notify_pages() RETURNS trigger AS $$
DECLARE
    r RECORD;
BEGIN
    IF TG_OP = 'DELETE' THEN
        r := OLD;
    ELSE
        r := NEW;
    END IF;
    PERFORM pg_notify('pages_changes',
        json_build_object('op', lower(TG_OP), 'user_id', r.user_id, 'id', r.id)::text);
    RETURN NULL;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS pages_notify ON pages;
CREATE TRIGGER pages_notify AFTER INSERT OR UPDATE OR DELETE ON pages
    FOR EACH ROW EXECUTE FUNCTION readlater_notify_pages();`

// Postgres is a Repository backed by a pages table and LISTEN/NOTIFY.
type Postgres struct {
	db  *sql.DB
	dsn string
}

// NewPostgres opens and pings the database at dsn.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{db: db, dsn: dsn}, nil
}

// EnsureSchema creates the pages table, its index and the notify trigger.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, pagesSchema); err != nil {
		return fmt.Errorf("ensure pages schema: %w", err)
	}
	return nil
}

func (p *Postgres) List(ctx context.Context, userID string) ([]types.Page, error) {
	if userID == "" {
		return nil, ErrNoIdentity
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, url, title, favicon, domain, excerpt, tags, read, saved_at
		FROM pages WHERE user_id = $1 ORDER BY saved_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	out := []types.Page{}
	for rows.Next() {
		var pg types.Page
		var tags pq.StringArray
		if err := rows.Scan(&pg.ID, &pg.URL, &pg.Title, &pg.Favicon, &pg.Domain, &pg.Excerpt,
			&tags, &pg.Read, &pg.SavedAt); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		pg.Tags = []string(tags)
		out = append(out, withSNS(pg))
	}
	return out, rows.Err()
}

func (p *Postgres) Upsert(ctx context.Context, userID string, pg types.Page) error {
	if userID == "" {
		return ErrNoIdentity
	}
	if pg.ID == "" {
		return errors.New("cloud: page without id")
	}
	savedAt := pg.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}
	tags := pg.Tags
	if tags == nil {
		tags = []string{}
	}
	// The owner check keeps one user from overwriting another's id.
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO pages (id, user_id, url, title, favicon, domain, excerpt, tags, read, saved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			url = EXCLUDED.url, title = EXCLUDED.title, favicon = EXCLUDED.favicon,
			domain = EXCLUDED.domain, excerpt = EXCLUDED.excerpt, tags = EXCLUDED.tags,
			read = EXCLUDED.read, saved_at = EXCLUDED.saved_at
		WHERE pages.user_id = EXCLUDED.user_id`,
		pg.ID, userID, pg.URL, pg.Title, pg.Favicon, pg.Domain, pg.Excerpt,
		pq.Array(tags), pg.Read, savedAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert page %s: %w", pg.ID, err)
	}
	return nil
}

func (p *Postgres) SetRead(ctx context.Context, userID, id string, read bool) error {
	if userID == "" {
		return ErrNoIdentity
	}
	if _, err := p.db.ExecContext(ctx,
		`UPDATE pages SET read = $3 WHERE id = $1 AND user_id = $2`, id, userID, read); err != nil {
		return fmt.Errorf("set read %s: %w", id, err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ErrNoIdentity
	}
	if _, err := p.db.ExecContext(ctx,
		`DELETE FROM pages WHERE id = $1 AND user_id = $2`, id, userID); err != nil {
		return fmt.Errorf("delete page %s: %w", id, err)
	}
	return nil
}

// Subscribe listens on NotifyChannel and forwards notifications for userID.
// A dropped and re-established listener connection is reported as OpResync.
func (p *Postgres) Subscribe(ctx context.Context, userID string) (<-chan Change, error) {
	if userID == "" {
		return nil, ErrNoIdentity
	}

	listener := pq.NewListener(p.dsn, time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			applog.Error("cloud.pg_listener", err, "event", int(ev))
		}
	})
	if err := listener.Listen(NotifyChannel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("listen %s: %w", NotifyChannel, err)
	}

	out := make(chan Change, changeBuffer)
	go func() {
		defer close(out)
		defer listener.Close()

		ping := time.NewTicker(90 * time.Second)
		defer ping.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-listener.Notify:
				if !ok {
					return
				}
				if n == nil {
					send(out, Change{Op: OpResync, UserID: userID})
					continue
				}
				var c Change
				if err := json.Unmarshal([]byte(n.Extra), &c); err != nil {
					applog.Error("cloud.pg_notify_decode", err, "payload", n.Extra)
					continue
				}
				if c.UserID != userID {
					continue
				}
				send(out, c)
			case <-ping.C:
				go listener.Ping()
			}
		}
	}()
	return out, nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
