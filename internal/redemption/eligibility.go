// Package redemption implements the deal redemption engine: the
// eligibility rules deciding whether a customer may redeem a deal, the
// generation of redemption codes, and the orchestration of the actual
// redemption against the data store. The package is independent of any
// HTTP or UI concern so the rules can be tested in isolation.
package redemption

import (
	"errors"
	"time"

	"github.com/localspothub/deals-api/internal/model"
)

// Sentinel errors describing why a redemption attempt may not proceed.
// Handlers translate each into its own HTTP status and message; they
// are never collapsed into a generic failure because the customer
// needs to know the specific reason.
var (
	ErrSignInRequired  = errors.New("sign-in required")
	ErrAlreadyRedeemed = errors.New("already redeemed")
	ErrDealNotActive   = errors.New("deal not active")
	ErrDealExpired     = errors.New("deal expired")
	ErrLimitReached    = errors.New("redemption limit reached")
	ErrDealNotFound    = errors.New("deal not found")
)

// GuestID is the customer ID value representing an unauthenticated
// visitor. Guests may browse but never redeem or favorite.
const GuestID uint64 = 0

// CheckEligibility decides whether a redemption attempt should proceed.
// Rules are evaluated in a fixed order and the first violated rule
// wins, so the reported reason is unambiguous: a guest looking at an
// expired, sold-out deal is told to sign in, not that the deal is gone.
//
//  1. guest customers must sign in
//  2. a customer who already redeemed gets their existing code path
//  3. inactive or out-of-window deals cannot be redeemed
//  4. a capped deal must still have capacity
//
// The function is pure: it has no side effects and depends only on its
// inputs plus the supplied clock value.
func CheckEligibility(deal *model.Deal, customerID uint64, alreadyRedeemed bool, now time.Time) error {
	if customerID == GuestID {
		return ErrSignInRequired
	}
	if alreadyRedeemed {
		return ErrAlreadyRedeemed
	}
	if !deal.IsActive || now.Before(deal.StartsAt) {
		return ErrDealNotActive
	}
	if !now.Before(deal.EndsAt) {
		return ErrDealExpired
	}
	if deal.MaxRedemptions != nil && deal.CurrentRedemptions >= *deal.MaxRedemptions {
		return ErrLimitReached
	}
	return nil
}
