package redemption

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localspothub/deals-api/internal/model"
)

// fakeStore is an in-memory Store that mirrors the database semantics
// the engine relies on: a uniqueness constraint on (customer, deal) and
// a capacity-guarded counter increment, both enforced under one lock so
// concurrent InsertAtomic calls race exactly like rows in MySQL would.
type fakeStore struct {
	mu       sync.Mutex
	deals    map[uint64]*model.Deal
	rows     map[[2]uint64]*model.Redemption // key: {customerID, dealID}
	nextID   uint64
	failWith error // when set, every call fails with this error
}

func newFakeStore(deals ...*model.Deal) *fakeStore {
	fs := &fakeStore{
		deals: make(map[uint64]*model.Deal),
		rows:  make(map[[2]uint64]*model.Redemption),
	}
	for _, d := range deals {
		fs.deals[d.ID] = d
	}
	return fs
}

func (f *fakeStore) GetDeal(ctx context.Context, dealID uint64) (*model.Deal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	d, ok := f.deals[dealID]
	if !ok {
		return nil, ErrDealNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeStore) FindRedemption(ctx context.Context, customerID, dealID uint64) (*model.Redemption, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	if r, ok := f.rows[[2]uint64{customerID, dealID}]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStore) InsertAtomic(ctx context.Context, r *model.Redemption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	key := [2]uint64{r.CustomerID, r.DealID}
	if _, ok := f.rows[key]; ok {
		return ErrDuplicate
	}
	d, ok := f.deals[r.DealID]
	if !ok {
		return ErrDealNotFound
	}
	if d.MaxRedemptions != nil && d.CurrentRedemptions >= *d.MaxRedemptions {
		return ErrLimitReached
	}
	f.nextID++
	r.ID = f.nextID
	cp := *r
	f.rows[key] = &cp
	d.CurrentRedemptions++
	return nil
}

func (f *fakeStore) rowCount(dealID uint64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for k := range f.rows {
		if k[1] == dealID {
			n++
		}
	}
	return n
}

func u32(v uint32) *uint32 { return &v }

func testDeal(id uint64, max *uint32) *model.Deal {
	return &model.Deal{
		ID:             id,
		StoreID:        7,
		Title:          "half-price tacos",
		Kind:           model.KindPercentage,
		StartsAt:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndsAt:         time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		MaxRedemptions: max,
		IsActive:       true,
	}
}

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC) }
}

func TestRedeemCreatesRowAndCode(t *testing.T) {
	fs := newFakeStore(testDeal(1, u32(10)))
	svc := NewService(fs).WithClock(fixedClock())

	res, err := svc.Redeem(context.Background(), 1, 42)
	require.NoError(t, err)
	assert.True(t, res.CreatedNew)
	assert.Equal(t, uint64(42), res.Redemption.CustomerID)
	assert.Equal(t, uint64(7), res.Redemption.StoreID)
	assert.Equal(t, model.StatusRedeemed, res.Redemption.Status)
	assert.Regexp(t, `^LSH[0-9A-Z]+$`, res.Redemption.Code)
	assert.Equal(t, uint32(1), fs.deals[1].CurrentRedemptions)
}

func TestRedeemTwiceReturnsSameCode(t *testing.T) {
	fs := newFakeStore(testDeal(1, u32(1)))
	svc := NewService(fs).WithClock(fixedClock())

	first, err := svc.Redeem(context.Background(), 1, 42)
	require.NoError(t, err)
	require.True(t, first.CreatedNew)

	// Sequential retry: same code, CreatedNew=false, no second row,
	// and no limit error even though the cap is now exhausted.
	second, err := svc.Redeem(context.Background(), 1, 42)
	require.NoError(t, err)
	assert.False(t, second.CreatedNew)
	assert.Equal(t, first.Redemption.Code, second.Redemption.Code)
	assert.Equal(t, 1, fs.rowCount(1))
	assert.Equal(t, uint32(1), fs.deals[1].CurrentRedemptions)
}

func TestRedeemGuestRejectedWithoutRow(t *testing.T) {
	fs := newFakeStore(testDeal(1, nil))
	svc := NewService(fs).WithClock(fixedClock())

	_, err := svc.Redeem(context.Background(), 1, GuestID)
	assert.ErrorIs(t, err, ErrSignInRequired)
	assert.Equal(t, 0, fs.rowCount(1))
}

func TestRedeemExpiredDeal(t *testing.T) {
	d := testDeal(1, nil)
	d.EndsAt = time.Date(2026, 6, 14, 0, 0, 0, 0, time.UTC) // yesterday
	fs := newFakeStore(d)
	svc := NewService(fs).WithClock(fixedClock())

	_, err := svc.Redeem(context.Background(), 1, 42)
	assert.ErrorIs(t, err, ErrDealExpired)
}

func TestRedeemLimitReachedForOtherCustomer(t *testing.T) {
	d := testDeal(1, u32(5))
	d.CurrentRedemptions = 5
	fs := newFakeStore(d)
	svc := NewService(fs).WithClock(fixedClock())

	_, err := svc.Redeem(context.Background(), 1, 99)
	assert.ErrorIs(t, err, ErrLimitReached)
}

func TestRedeemUnknownDeal(t *testing.T) {
	svc := NewService(newFakeStore()).WithClock(fixedClock())
	_, err := svc.Redeem(context.Background(), 404, 42)
	assert.ErrorIs(t, err, ErrDealNotFound)
}

func TestRedeemStoreFailureIsRetryable(t *testing.T) {
	fs := newFakeStore(testDeal(1, nil))
	fs.failWith = errors.New("connection refused")
	svc := NewService(fs).WithClock(fixedClock())

	_, err := svc.Redeem(context.Background(), 1, 42)
	require.ErrorIs(t, err, ErrStoreUnavailable)

	// The store comes back; the retry succeeds because nothing was
	// persisted during the failure.
	fs.mu.Lock()
	fs.failWith = nil
	fs.mu.Unlock()
	res, err := svc.Redeem(context.Background(), 1, 42)
	require.NoError(t, err)
	assert.True(t, res.CreatedNew)
}

// TestRedeemConcurrentSameCustomer drives many simultaneous attempts by
// one customer on one deal. Exactly one row may exist afterwards and
// every caller must end up holding the same code — the constraint at
// the store, not the advisory pre-check, decides the winner.
func TestRedeemConcurrentSameCustomer(t *testing.T) {
	fs := newFakeStore(testDeal(1, u32(100)))
	svc := NewService(fs).WithClock(fixedClock())

	const attempts = 32
	codes := make([]string, attempts)
	created := make([]bool, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.Redeem(context.Background(), 1, 42)
			if err != nil {
				t.Errorf("attempt %d: %v", i, err)
				return
			}
			codes[i] = res.Redemption.Code
			created[i] = res.CreatedNew
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, fs.rowCount(1))
	assert.Equal(t, uint32(1), fs.deals[1].CurrentRedemptions)
	winners := 0
	for i := 1; i < attempts; i++ {
		assert.Equal(t, codes[0], codes[i], "all callers must see the same code")
	}
	for _, c := range created {
		if c {
			winners++
		}
	}
	assert.Equal(t, 1, winners, "exactly one attempt may create the row")
}

// TestRedeemConcurrentCapacity hammers a capped deal with distinct
// customers; the counter must never exceed the cap and must match the
// number of persisted rows.
func TestRedeemConcurrentCapacity(t *testing.T) {
	const capacity = 5
	fs := newFakeStore(testDeal(1, u32(capacity)))
	svc := NewService(fs).WithClock(fixedClock())

	const attempts = 20
	var wg sync.WaitGroup
	var okCount int32
	var mu sync.Mutex
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(customer uint64) {
			defer wg.Done()
			_, err := svc.Redeem(context.Background(), 1, customer)
			if err == nil {
				mu.Lock()
				okCount++
				mu.Unlock()
			} else if !errors.Is(err, ErrLimitReached) {
				t.Errorf("customer %d: unexpected error %v", customer, err)
			}
		}(uint64(100 + i))
	}
	wg.Wait()

	assert.Equal(t, int32(capacity), okCount)
	assert.Equal(t, capacity, fs.rowCount(1))
	assert.Equal(t, uint32(capacity), fs.deals[1].CurrentRedemptions)
}

func TestCheckUsesFreshState(t *testing.T) {
	d := testDeal(1, u32(1))
	fs := newFakeStore(d)
	svc := NewService(fs).WithClock(fixedClock())

	require.NoError(t, svc.Check(context.Background(), 1, 42))

	_, err := svc.Redeem(context.Background(), 1, 42)
	require.NoError(t, err)

	// Same customer now reports already-redeemed, a different one hits
	// the exhausted cap.
	assert.ErrorIs(t, svc.Check(context.Background(), 1, 42), ErrAlreadyRedeemed)
	assert.ErrorIs(t, svc.Check(context.Background(), 1, 43), ErrLimitReached)
}
