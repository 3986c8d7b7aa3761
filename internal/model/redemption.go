package model

import "time"

// StatusRedeemed is the only redemption status the system records. The
// lifecycle is intentionally single-state: a row either exists (the
// customer claimed the deal) or it does not. Register-side states such
// as "used" or "cancelled" are out of scope.
const StatusRedeemed = "REDEEMED"

// Redemption records that a specific customer claimed a specific deal,
// carrying the one-time code presented at the register. The pair
// (CustomerID, DealID) is unique at the database level; that constraint,
// not any client-side check, is what guarantees at-most-one redemption
// per customer per deal.
//
// Fields:
//  ID         – primary key identifier.
//  CustomerID – user who redeemed the deal.
//  DealID     – deal being redeemed.
//  StoreID    – store the deal belongs to (denormalized for reporting).
//  Code       – human-presentable redemption code, stable once issued.
//  Status     – always StatusRedeemed.
//  RedeemedAt – when the redemption was created.
type Redemption struct {
	ID         uint64    // deal_redemptions.id
	CustomerID uint64    // deal_redemptions.customer_id
	DealID     uint64    // deal_redemptions.deal_id
	StoreID    uint64    // deal_redemptions.store_id
	Code       string    // deal_redemptions.code
	Status     string    // deal_redemptions.status
	RedeemedAt time.Time // deal_redemptions.redeemed_at
}
