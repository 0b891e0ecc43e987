package dedup

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/couponlens/backend/internal/domain"
	_ "modernc.org/sqlite"
)

var (
	_ domain.DedupStore    = (*Store)(nil)
	_ domain.KeyRepository = (*SQLiteRepository)(nil)
)

const keysSchema = `
CREATE TABLE IF NOT EXISTS coupon_keys (
	key        TEXT PRIMARY KEY,
	code       TEXT NOT NULL,
	brand      TEXT NOT NULL,
	source     TEXT NOT NULL DEFAULT '',
	first_seen TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_coupon_keys_code ON coupon_keys(code);
`

// SQLiteRepository is the append-only key table. Rows are inserted with
// INSERT OR IGNORE and never deleted.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (creating if needed) the key database at path
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One writer; a second pooled connection to :memory: would see an empty database
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(keysSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating coupon_keys: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// LoadKeys returns every persisted key in insertion order
func (r *SQLiteRepository) LoadKeys(ctx context.Context) ([]domain.KeyEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT key, code, brand, source, first_seen FROM coupon_keys ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying coupon_keys: %w", err)
	}
	defer rows.Close()

	var entries []domain.KeyEntry
	for rows.Next() {
		var e domain.KeyEntry
		var key, firstSeen string
		if err := rows.Scan(&key, &e.Code, &e.Brand, &e.Source, &firstSeen); err != nil {
			return nil, fmt.Errorf("scanning coupon_keys: %w", err)
		}
		e.Key = domain.DedupKey(key)
		e.FirstSeen, _ = time.Parse(time.RFC3339Nano, firstSeen)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AppendKey inserts entry unless its key already exists
func (r *SQLiteRepository) AppendKey(ctx context.Context, entry domain.KeyEntry) error {
	firstSeen := entry.FirstSeen
	if firstSeen.IsZero() {
		firstSeen = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO coupon_keys (key, code, brand, source, first_seen) VALUES (?, ?, ?, ?, ?)`,
		string(entry.Key), entry.Code, entry.Brand, entry.Source, firstSeen.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("inserting key %s: %w", entry.Key, err)
	}
	return nil
}

// Count returns the number of persisted keys
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM coupon_keys`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting coupon_keys: %w", err)
	}
	return n, nil
}

// Close closes the database
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
