package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lotas/readlater/internal/types"
)

// Well-known keys.
const (
	PagesKey     = "readlater_pages"
	GeminiKeyKey = "gemini_api_key"
)

// GetValue returns the value stored under key. ok is false when the key is absent.
func GetValue(db *sql.DB, key string) (value string, ok bool, err error) {
	err = db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// SetValue stores value under key, replacing any previous value.
func SetValue(db *sql.DB, key, value string) error {
	_, err := db.Exec(`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// DeleteValue removes key. Deleting a missing key is not an error.
func DeleteValue(db *sql.DB, key string) error {
	if _, err := db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Keys lists stored keys with the given prefix, sorted.
func Keys(db *sql.DB, prefix string) ([]string, error) {
	rows, err := db.Query("SELECT key FROM kv WHERE key LIKE ? ESCAPE '\\' ORDER BY key", escapeLike(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// LoadPages decodes the persisted page list. A missing entry yields an empty list.
func LoadPages(db *sql.DB) ([]types.Page, error) {
	raw, ok, err := GetValue(db, PagesKey)
	if err != nil {
		return nil, err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return []types.Page{}, nil
	}
	var pages []types.Page
	if err := json.Unmarshal([]byte(raw), &pages); err != nil {
		return nil, fmt.Errorf("decode %s: %w", PagesKey, err)
	}
	if pages == nil {
		pages = []types.Page{}
	}
	return pages, nil
}

// SavePages rewrites the whole page list as one JSON array.
func SavePages(db *sql.DB, pages []types.Page) error {
	if pages == nil {
		pages = []types.Page{}
	}
	data, err := json.Marshal(pages)
	if err != nil {
		return fmt.Errorf("encode pages: %w", err)
	}
	return SetValue(db, PagesKey, string(data))
}
