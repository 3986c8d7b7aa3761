package redemption

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/localspothub/deals-api/internal/model"
)

// Store is the contract the engine requires from the data layer. The
// production implementation lives in internal/repository and is backed
// by MySQL; tests substitute an in-memory fake.
//
// InsertAtomic must persist the redemption row and bump the deal's
// live counter in one atomic unit, enforcing both the per-customer
// uniqueness constraint and the capacity cap at the store itself,
// because the state observed by callers can be stale by the time the
// write lands.
type Store interface {
	// GetDeal returns a current snapshot of the deal or ErrDealNotFound.
	GetDeal(ctx context.Context, dealID uint64) (*model.Deal, error)
	// FindRedemption returns the customer's redemption of the deal, or
	// nil when none exists.
	FindRedemption(ctx context.Context, customerID, dealID uint64) (*model.Redemption, error)
	// InsertAtomic inserts the row and increments the counter in one
	// transaction. It returns ErrDuplicate on the uniqueness constraint
	// and ErrLimitReached when the guarded increment finds no capacity.
	InsertAtomic(ctx context.Context, r *model.Redemption) error
}

// ErrDuplicate is returned by Store implementations when the
// (customer, deal) uniqueness constraint rejects an insert. The engine
// treats it as an expected outcome, not a failure.
var ErrDuplicate = errors.New("redemption already exists")

// ErrStoreUnavailable wraps infrastructure failures from the Store.
// Retrying the whole Redeem call is safe: the uniqueness constraint
// makes the operation idempotent.
var ErrStoreUnavailable = errors.New("deal store unavailable")

// Result is the outcome of a redemption attempt. CreatedNew is false
// when the customer had already redeemed the deal, in which case
// Redemption carries their original row so the same code is shown
// instead of an error.
type Result struct {
	Redemption model.Redemption
	CreatedNew bool
}

// Service orchestrates redemption attempts. The clock is injectable so
// eligibility windows and code generation are deterministic in tests.
type Service struct {
	store   Store
	now     func() time.Time
	timeout time.Duration
}

// NewService builds a Service with the default wall clock and a
// bounded per-attempt timeout on store calls.
func NewService(store Store) *Service {
	if store == nil {
		panic("nil store passed to redemption.NewService")
	}
	return &Service{store: store, now: time.Now, timeout: 5 * time.Second}
}

// WithClock overrides the time source. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Check runs the advisory eligibility check against fresh deal state.
// It exists so the UI can disable the redeem button with a precise
// reason; the authoritative check happens again inside Redeem.
func (s *Service) Check(ctx context.Context, dealID, customerID uint64) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	deal, err := s.store.GetDeal(ctx, dealID)
	if err != nil {
		return s.classify(err)
	}
	already := false
	if customerID != GuestID {
		existing, err := s.store.FindRedemption(ctx, customerID, dealID)
		if err != nil {
			return s.classify(err)
		}
		already = existing != nil
	}
	return CheckEligibility(deal, customerID, already, s.now().UTC())
}

// Redeem executes a redemption attempt end to end: re-verify
// eligibility against the freshest state, generate a code, and insert
// the row with the counter increment in a single atomic store call.
//
// The pre-insert FindRedemption is only a fast path; two concurrent
// attempts can both miss it. The uniqueness constraint at the store is
// the sole source of truth, so a duplicate-key rejection is converted
// into the already-redeemed outcome: the loser is handed the winner's
// code with CreatedNew=false rather than an error.
func (s *Service) Redeem(ctx context.Context, dealID, customerID uint64) (*Result, error) {
	if customerID == GuestID {
		return nil, ErrSignInRequired
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	deal, err := s.store.GetDeal(ctx, dealID)
	if err != nil {
		return nil, s.classify(err)
	}

	if existing, err := s.store.FindRedemption(ctx, customerID, dealID); err != nil {
		return nil, s.classify(err)
	} else if existing != nil {
		return &Result{Redemption: *existing, CreatedNew: false}, nil
	}

	now := s.now().UTC()
	if err := CheckEligibility(deal, customerID, false, now); err != nil {
		return nil, err
	}

	code, err := GenerateCode(now)
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}

	rec := &model.Redemption{
		CustomerID: customerID,
		DealID:     deal.ID,
		StoreID:    deal.StoreID,
		Code:       code,
		Status:     model.StatusRedeemed,
		RedeemedAt: now,
	}
	if err := s.store.InsertAtomic(ctx, rec); err != nil {
		if errors.Is(err, ErrDuplicate) {
			// Lost the race: surface the winner's code.
			existing, ferr := s.store.FindRedemption(ctx, customerID, dealID)
			if ferr != nil || existing == nil {
				return nil, s.classify(ferr)
			}
			return &Result{Redemption: *existing, CreatedNew: false}, nil
		}
		if errors.Is(err, ErrLimitReached) {
			return nil, ErrLimitReached
		}
		return nil, s.classify(err)
	}
	return &Result{Redemption: *rec, CreatedNew: true}, nil
}

// classify maps store failures onto the engine's taxonomy. Business
// sentinels pass through untouched; anything else (network, timeout)
// becomes a retryable ErrStoreUnavailable.
func (s *Service) classify(err error) error {
	switch {
	case err == nil:
		return fmt.Errorf("%w: inconsistent store state", ErrStoreUnavailable)
	case errors.Is(err, ErrDealNotFound), errors.Is(err, ErrLimitReached):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}
