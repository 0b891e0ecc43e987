package domain

import (
	"context"
	"time"
)

// DedupStore is the persistent identity set of emitted code+brand pairs.
// Keys are write-once: inserted on acceptance and never removed.
type DedupStore interface {
	Contains(ctx context.Context, key DedupKey) (bool, error)
	Insert(ctx context.Context, key DedupKey) error
	// Admit atomically checks and inserts the key for code+brand and reports
	// whether it was new, a new brand for a known code, or a duplicate.
	Admit(ctx context.Context, code, brand string) (DedupStatus, error)
}

// KeyEntry is a persisted dedup key with its provenance
type KeyEntry struct {
	Key       DedupKey
	Code      string
	Brand     string
	Source    string
	FirstSeen time.Time
}

// KeyRepository is the append-only persistence backend behind a DedupStore
type KeyRepository interface {
	LoadKeys(ctx context.Context) ([]KeyEntry, error)
	AppendKey(ctx context.Context, entry KeyEntry) error
	Close() error
}
