package redemption

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/localspothub/deals-api/internal/model"
)

func TestCheckEligibilityRuleOrder(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	// Worst-case deal: expired AND at capacity. A guest must still be
	// told to sign in first, and a customer who already redeemed must
	// hear that before any expiry or capacity reason.
	d := &model.Deal{
		ID:                 1,
		StartsAt:           now.Add(-48 * time.Hour),
		EndsAt:             now.Add(-24 * time.Hour),
		MaxRedemptions:     u32(3),
		CurrentRedemptions: 3,
		IsActive:           true,
	}

	assert.ErrorIs(t, CheckEligibility(d, GuestID, false, now), ErrSignInRequired)
	assert.ErrorIs(t, CheckEligibility(d, GuestID, true, now), ErrSignInRequired)
	assert.ErrorIs(t, CheckEligibility(d, 42, true, now), ErrAlreadyRedeemed)
	assert.ErrorIs(t, CheckEligibility(d, 42, false, now), ErrDealExpired)
}

func TestCheckEligibilityCases(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	base := func() *model.Deal {
		return &model.Deal{
			ID:       1,
			StartsAt: now.Add(-time.Hour),
			EndsAt:   now.Add(time.Hour),
			IsActive: true,
		}
	}

	t.Run("eligible", func(t *testing.T) {
		assert.NoError(t, CheckEligibility(base(), 42, false, now))
	})

	t.Run("eligible unlimited at high count", func(t *testing.T) {
		d := base()
		d.CurrentRedemptions = 100000
		assert.NoError(t, CheckEligibility(d, 42, false, now))
	})

	t.Run("paused deal", func(t *testing.T) {
		d := base()
		d.IsActive = false
		assert.ErrorIs(t, CheckEligibility(d, 42, false, now), ErrDealNotActive)
	})

	t.Run("not started yet", func(t *testing.T) {
		d := base()
		d.StartsAt = now.Add(time.Minute)
		assert.ErrorIs(t, CheckEligibility(d, 42, false, now), ErrDealNotActive)
	})

	t.Run("expires exactly now", func(t *testing.T) {
		d := base()
		d.EndsAt = now
		assert.ErrorIs(t, CheckEligibility(d, 42, false, now), ErrDealExpired)
	})

	t.Run("limit reached for fresh customer", func(t *testing.T) {
		d := base()
		d.MaxRedemptions = u32(5)
		d.CurrentRedemptions = 5
		assert.ErrorIs(t, CheckEligibility(d, 42, false, now), ErrLimitReached)
	})

	t.Run("one slot left", func(t *testing.T) {
		d := base()
		d.MaxRedemptions = u32(5)
		d.CurrentRedemptions = 4
		assert.NoError(t, CheckEligibility(d, 42, false, now))
	})
}
