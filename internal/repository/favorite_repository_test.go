package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFavoriteRows is an in-memory favoriteRows that mirrors the
// database semantics Toggle relies on: a unique (customer, deal) pair
// and a deal lookup. raceInsert simulates a concurrent toggle slipping
// a row in between Toggle's delete and insert.
type fakeFavoriteRows struct {
	mu         sync.Mutex
	deals      map[uint64]uint64    // dealID -> storeID
	favs       map[[2]uint64]uint64 // {customerID, dealID} -> storeID
	raceInsert bool
}

func newFakeFavoriteRows() *fakeFavoriteRows {
	return &fakeFavoriteRows{
		deals: map[uint64]uint64{1: 7, 2: 9},
		favs:  make(map[[2]uint64]uint64),
	}
}

func (f *fakeFavoriteRows) dealStore(ctx context.Context, dealID uint64) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	storeID, ok := f.deals[dealID]
	if !ok {
		return 0, ErrDealNotFound
	}
	return storeID, nil
}

func (f *fakeFavoriteRows) delete(ctx context.Context, customerID, dealID uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := [2]uint64{customerID, dealID}
	if _, ok := f.favs[key]; !ok {
		return false, nil
	}
	delete(f.favs, key)
	return true, nil
}

func (f *fakeFavoriteRows) insert(ctx context.Context, customerID, dealID, storeID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := [2]uint64{customerID, dealID}
	if f.raceInsert {
		// Another request won the race just before this insert.
		f.favs[key] = storeID
		f.raceInsert = false
	}
	if _, ok := f.favs[key]; ok {
		return errFavoriteExists
	}
	f.favs[key] = storeID
	return nil
}

func (f *fakeFavoriteRows) has(customerID, dealID uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.favs[[2]uint64{customerID, dealID}]
	return ok
}

func newFavoriteRepoWith(rows favoriteRows) *FavoriteRepo {
	return &FavoriteRepo{rows: rows}
}

func TestToggleFavoriteRoundTrip(t *testing.T) {
	fr := newFakeFavoriteRows()
	repo := newFavoriteRepoWith(fr)
	ctx := context.Background()

	// First toggle adds, second removes, restoring the original state.
	on, err := repo.Toggle(ctx, 42, 1)
	require.NoError(t, err)
	assert.True(t, on)
	assert.True(t, fr.has(42, 1))

	off, err := repo.Toggle(ctx, 42, 1)
	require.NoError(t, err)
	assert.False(t, off)
	assert.False(t, fr.has(42, 1))

	// A third toggle behaves like the first again.
	on, err = repo.Toggle(ctx, 42, 1)
	require.NoError(t, err)
	assert.True(t, on)
}

func TestToggleFavoriteIsPerCustomerPerDeal(t *testing.T) {
	fr := newFakeFavoriteRows()
	repo := newFavoriteRepoWith(fr)
	ctx := context.Background()

	_, err := repo.Toggle(ctx, 42, 1)
	require.NoError(t, err)

	// Another customer and another deal are independent pairs.
	on, err := repo.Toggle(ctx, 43, 1)
	require.NoError(t, err)
	assert.True(t, on)
	on, err = repo.Toggle(ctx, 42, 2)
	require.NoError(t, err)
	assert.True(t, on)

	assert.True(t, fr.has(42, 1))
	assert.True(t, fr.has(43, 1))
	assert.True(t, fr.has(42, 2))
}

func TestToggleFavoriteUnknownDeal(t *testing.T) {
	repo := newFavoriteRepoWith(newFakeFavoriteRows())

	_, err := repo.Toggle(context.Background(), 42, 999)
	assert.True(t, errors.Is(err, ErrDealNotFound))
}

func TestToggleFavoriteConcurrentDuplicate(t *testing.T) {
	// When a concurrent request inserts the row between Toggle's delete
	// and insert, the unique-index rejection still resolves to "now a
	// favorite" instead of an error.
	fr := newFakeFavoriteRows()
	fr.raceInsert = true
	repo := newFavoriteRepoWith(fr)

	on, err := repo.Toggle(context.Background(), 42, 1)
	require.NoError(t, err)
	assert.True(t, on)
	assert.True(t, fr.has(42, 1))
}
