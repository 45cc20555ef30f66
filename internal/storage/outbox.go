package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Outbox operations.
const (
	OpUpsert  = "upsert"
	OpSetRead = "set_read"
	OpDelete  = "delete"
)

// OutboxEntry is one pending cloud mutation.
type OutboxEntry struct {
	Seq       int64
	ID        string
	UserID    string
	Op        string
	PageID    string
	Payload   string // JSON page for upserts, "true"/"false" for set_read
	Attempts  int
	LastError string
	CreatedAt time.Time
}

// EnqueueOutbox appends an entry. ID must be unique.
func EnqueueOutbox(db *sql.DB, e OutboxEntry) error {
	_, err := db.Exec(`INSERT INTO outbox (id, user_id, op, page_id, payload) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Op, e.PageID, e.Payload)
	if err != nil {
		return fmt.Errorf("enqueue %s %s: %w", e.Op, e.PageID, err)
	}
	return nil
}

// PendingOutbox returns up to limit entries owned by userID in enqueue order.
// limit <= 0 means no limit.
func PendingOutbox(db *sql.DB, userID string, limit int) ([]OutboxEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(`SELECT seq, id, user_id, op, page_id, payload, attempts, last_error, created_at
		FROM outbox WHERE user_id = ? ORDER BY seq LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var out []OutboxEntry
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.Seq, &e.ID, &e.UserID, &e.Op, &e.PageID, &e.Payload,
			&e.Attempts, &e.LastError, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CompleteOutbox removes a delivered entry.
func CompleteOutbox(db *sql.DB, id string) error {
	if _, err := db.Exec("DELETE FROM outbox WHERE id = ?", id); err != nil {
		return fmt.Errorf("complete outbox %s: %w", id, err)
	}
	return nil
}

// FailOutbox records a failed delivery attempt.
func FailOutbox(db *sql.DB, id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if _, err := db.Exec("UPDATE outbox SET attempts = attempts + 1, last_error = ? WHERE id = ?", msg, id); err != nil {
		return fmt.Errorf("fail outbox %s: %w", id, err)
	}
	return nil
}

// CountOutbox returns the number of pending entries across all users.
func CountOutbox(db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM outbox").Scan(&n); err != nil {
		return 0, fmt.Errorf("count outbox: %w", err)
	}
	return n, nil
}
