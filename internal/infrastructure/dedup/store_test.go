package dedup

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/couponlens/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingRepository rejects every write
type failingRepository struct{}

func (failingRepository) LoadKeys(ctx context.Context) ([]domain.KeyEntry, error) { return nil, nil }
func (failingRepository) AppendKey(ctx context.Context, entry domain.KeyEntry) error {
	return errors.New("database is locked")
}
func (failingRepository) Close() error { return nil }

func TestStore_Admit(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil, nil)

	status, err := store.Admit(ctx, "save2024", "BrandA")
	require.NoError(t, err)
	assert.Equal(t, domain.DedupNew, status)

	status, err = store.Admit(ctx, "SAVE2024", "brandb")
	require.NoError(t, err)
	assert.Equal(t, domain.DedupSameCodeDifferentBrand, status)

	status, err = store.Admit(ctx, " SAVE2024 ", "BRANDA")
	require.NoError(t, err)
	assert.Equal(t, domain.DedupDuplicate, status)

	stats := store.Stats()
	assert.Equal(t, 2, stats.Keys)
	assert.Equal(t, 1, stats.Codes)
	assert.Equal(t, 1, stats.AdmittedNew)
	assert.Equal(t, 1, stats.AdmittedSameCode)
	assert.Equal(t, 1, stats.DuplicatesRejected)
	assert.False(t, stats.PersistentBackend)
}

func TestStore_ContainsAndInsert(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil, nil)

	require.NoError(t, store.Insert(ctx, "welcome25_nykaa"))

	ok, err := store.Contains(ctx, "WELCOME25_Nykaa")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, store.ContainsPair("welcome25", "NYKAA"))
	assert.False(t, store.ContainsPair("WELCOME25", "Myntra"))

	// Codes may contain underscores; the brand follows the last one
	require.NoError(t, store.Insert(ctx, "FLAT_50_Ajio"))
	assert.True(t, store.ContainsPair("FLAT_50", "Ajio"))

	err = store.Insert(ctx, "NOSEPARATOR")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.Equal(t, 2, store.Size())
}

func TestStore_ConcurrentAdmit(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil, nil)

	const workers = 50
	statuses := make(chan domain.DedupStatus, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, err := store.Admit(ctx, "WELCOME25", "Nykaa")
			assert.NoError(t, err)
			statuses <- status
		}()
	}
	wg.Wait()
	close(statuses)

	counts := make(map[domain.DedupStatus]int)
	for s := range statuses {
		counts[s]++
	}
	assert.Equal(t, 1, counts[domain.DedupNew])
	assert.Equal(t, workers-1, counts[domain.DedupDuplicate])
	assert.Equal(t, 1, store.Size())
}

func TestStore_PersistenceFailure(t *testing.T) {
	store := NewStore(failingRepository{}, nil)

	_, err := store.Admit(context.Background(), "WELCOME25", "Nykaa")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.False(t, store.ContainsPair("WELCOME25", "Nykaa"), "a key that failed to persist must not be indexed")
}
