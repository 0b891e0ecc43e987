// Package dedup holds the persistent identity set of emitted code+brand pairs.
package dedup

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/couponlens/backend/internal/domain"
	"go.uber.org/zap"
)

// Stats summarizes the store contents and admissions since startup
type Stats struct {
	Keys                int            `json:"keys"`
	Codes               int            `json:"codes"`
	Loaded              int            `json:"loaded"`
	AdmittedNew         int            `json:"admitted_new"`
	AdmittedSameCode    int            `json:"admitted_same_code_different_brand"`
	DuplicatesRejected  int            `json:"duplicates_rejected"`
	ArtifactParseErrors int            `json:"artifact_parse_errors"`
	LoadedBySource      map[string]int `json:"loaded_by_source"`
	PersistentBackend   bool           `json:"persistent_backend"`
}

// Store is a thread-safe in-memory key set with an optional append-only backend.
// Keys are never removed.
type Store struct {
	keys   map[domain.DedupKey]bool
	brands map[string]map[string]bool // code -> normalized brands
	repo   domain.KeyRepository
	stats  Stats
	logger *zap.Logger
	mutex  sync.RWMutex
}

// NewStore creates an empty store. repo may be nil for a process-local store.
func NewStore(repo domain.KeyRepository, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		keys:   make(map[domain.DedupKey]bool),
		brands: make(map[string]map[string]bool),
		repo:   repo,
		stats:  Stats{LoadedBySource: make(map[string]int), PersistentBackend: repo != nil},
		logger: logger,
	}
}

// Open creates a store and loads every key already persisted in repo
func Open(ctx context.Context, repo domain.KeyRepository, logger *zap.Logger) (*Store, error) {
	s := NewStore(repo, logger)
	if repo == nil {
		return s, nil
	}

	entries, err := repo.LoadKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: loading keys: %v", domain.ErrStoreUnavailable, err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, e := range entries {
		if s.addLocked(e.Code, e.Brand) {
			s.stats.Loaded++
			s.stats.LoadedBySource["repository"]++
		}
	}

	s.logger.Info("dedup store opened", zap.Int("keys", len(s.keys)))
	return s, nil
}

// Contains reports whether key was emitted before
func (s *Store) Contains(ctx context.Context, key domain.DedupKey) (bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.keys[normalizeKey(key)], nil
}

// ContainsPair reports whether the code+brand pair was emitted before
func (s *Store) ContainsPair(code, brand string) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.keys[domain.NewDedupKey(code, brand)]
}

// Insert adds key and persists it. Inserting a known key is a no-op.
func (s *Store) Insert(ctx context.Context, key domain.DedupKey) error {
	code, brand, ok := normalizeKey(key).Split()
	if !ok {
		return fmt.Errorf("%w: key %q has no code_brand separator", domain.ErrInvalidRequest, key)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.insertLocked(ctx, code, brand, "insert")
}

// Admit atomically classifies and records a code+brand pair.
// The lookup, insert and persist happen under one lock so concurrent callers
// cannot both admit the same key.
func (s *Store) Admit(ctx context.Context, code, brand string) (domain.DedupStatus, error) {
	code = domain.NormalizeCode(code)
	normBrand := domain.NormalizeBrand(brand)
	key := domain.NewDedupKey(code, normBrand)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.keys[key] {
		s.stats.DuplicatesRejected++
		s.logger.Debug("[DEDUP] duplicate", zap.String("key", string(key)))
		return domain.DedupDuplicate, nil
	}

	status := domain.DedupNew
	if len(s.brands[code]) > 0 {
		status = domain.DedupSameCodeDifferentBrand
	}

	if err := s.insertLocked(ctx, code, normBrand, "extraction"); err != nil {
		return "", err
	}

	if status == domain.DedupNew {
		s.stats.AdmittedNew++
	} else {
		s.stats.AdmittedSameCode++
	}
	s.logger.Debug("[DEDUP] admitted", zap.String("key", string(key)), zap.String("status", string(status)))
	return status, nil
}

// Stats returns a snapshot of the store counters
func (s *Store) Stats() Stats {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	snapshot := s.stats
	snapshot.Keys = len(s.keys)
	snapshot.Codes = len(s.brands)
	snapshot.LoadedBySource = make(map[string]int, len(s.stats.LoadedBySource))
	for k, v := range s.stats.LoadedBySource {
		snapshot.LoadedBySource[k] = v
	}
	return snapshot
}

// Size returns the number of keys
func (s *Store) Size() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.keys)
}

// Close releases the persistence backend
func (s *Store) Close() error {
	if s.repo == nil {
		return nil
	}
	return s.repo.Close()
}

// load records pairs read from a historical artifact and persists the new ones
func (s *Store) load(ctx context.Context, pairs []pair, source string, malformed int) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.stats.ArtifactParseErrors += malformed

	added := 0
	for _, p := range pairs {
		code, brand := domain.NormalizeCode(p.code), domain.NormalizeBrand(p.brand)
		if s.keys[domain.NewDedupKey(code, brand)] {
			continue
		}
		if err := s.insertLocked(ctx, code, brand, source); err != nil {
			return added, err
		}
		added++
	}

	s.stats.Loaded += added
	s.stats.LoadedBySource[source] += added
	return added, nil
}

// insertLocked persists then indexes a pair; caller holds the write lock
func (s *Store) insertLocked(ctx context.Context, code, brand, source string) error {
	key := domain.NewDedupKey(code, brand)
	if s.keys[key] {
		return nil
	}

	if s.repo != nil {
		err := s.repo.AppendKey(ctx, domain.KeyEntry{
			Key:       key,
			Code:      code,
			Brand:     brand,
			Source:    source,
			FirstSeen: time.Now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}
	}

	s.addLocked(code, brand)
	return nil
}

// addLocked indexes a pair in memory and reports whether it was new
func (s *Store) addLocked(code, brand string) bool {
	code, brand = domain.NormalizeCode(code), domain.NormalizeBrand(brand)
	key := domain.NewDedupKey(code, brand)
	if s.keys[key] {
		return false
	}
	s.keys[key] = true
	if s.brands[code] == nil {
		s.brands[code] = make(map[string]bool)
	}
	s.brands[code][brand] = true
	return true
}

func normalizeKey(key domain.DedupKey) domain.DedupKey {
	code, brand, ok := key.Split()
	if !ok {
		return key
	}
	return domain.NewDedupKey(code, brand)
}

// Options locates the persistent backend and the historical artifacts to seed from
type Options struct {
	DBPath       string // "" keeps keys in memory only
	ArtifactsDir string
	HistoryLog   string
	LogMarker    string
}

// OpenWithHistory opens the SQLite backend (if configured), then seeds the store
// from the artifacts directory and the history log. Missing artifacts are not errors.
func OpenWithHistory(ctx context.Context, opts Options, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var repo domain.KeyRepository
	if opts.DBPath != "" {
		sqliteRepo, err := NewSQLiteRepository(opts.DBPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}
		repo = sqliteRepo
	}

	store, err := Open(ctx, repo, logger)
	if err != nil {
		if repo != nil {
			repo.Close()
		}
		return nil, err
	}

	if opts.ArtifactsDir != "" {
		if _, statErr := os.Stat(opts.ArtifactsDir); statErr == nil {
			if _, err := store.LoadDir(ctx, opts.ArtifactsDir, opts.LogMarker); err != nil {
				store.Close()
				return nil, err
			}
		} else {
			logger.Warn("artifacts directory not found", zap.String("path", opts.ArtifactsDir))
		}
	}

	if opts.HistoryLog != "" {
		if _, statErr := os.Stat(opts.HistoryLog); statErr == nil {
			if _, err := store.LoadLog(ctx, opts.HistoryLog, opts.LogMarker); err != nil {
				store.Close()
				return nil, err
			}
		}
	}

	return store, nil
}
