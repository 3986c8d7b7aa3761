package model

import (
	"fmt"
	"strings"
	"time"
)

// DealKind is the closed set of deal shapes the marketplace supports.
// Persisted as a string enum in the deals.kind column. Keeping the set
// closed means there is exactly one place that decides how a discount
// is displayed, instead of ad-hoc string checks in every handler.
type DealKind string

const (
	KindPercentage  DealKind = "percentage"   // percent off the original price
	KindFixedAmount DealKind = "fixed_amount" // fixed money amount off
	KindBogo        DealKind = "bogo"         // buy one get one
	KindOther       DealKind = "other"        // free-form offer, title says it all
)

// ParseDealKind normalizes a raw kind string into a DealKind. Legacy
// spellings like "fixed" are folded into the canonical values; anything
// unrecognized maps to KindOther rather than failing, since a deal with
// an odd kind is still browsable.
func ParseDealKind(raw string) DealKind {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "percentage", "percent":
		return KindPercentage
	case "fixed_amount", "fixed":
		return KindFixedAmount
	case "bogo":
		return KindBogo
	default:
		return KindOther
	}
}

// Deal represents a time-boxed, capacity-bounded discount offer from a
// store as stored in the `deals` table.
//
// Fields:
//  ID                 – primary key identifier.
//  StoreID            – store offering the deal.
//  Title              – short description shown in lists.
//  Kind               – shape of the discount (see DealKind).
//  OriginalPrice      – optional pre-discount price in cents.
//  DiscountPrice      – optional discounted price in cents.
//  DiscountPercent    – optional percentage 1–100 (for KindPercentage).
//  StartsAt, EndsAt   – validity window; redemptions only inside it.
//  MaxRedemptions     – optional cap; nil means unlimited.
//  CurrentRedemptions – denormalized live counter, kept in sync with
//                       the deal_redemptions table.
//  IsActive           – owners can pause a deal without deleting it.
//  CreatedAt          – creation timestamp.
//  UpdatedAt          – last update timestamp.
type Deal struct {
	ID                 uint64    // deals.id
	StoreID            uint64    // deals.store_id
	Title              string    // deals.title
	Kind               DealKind  // deals.kind
	OriginalPrice      *int64    // deals.original_price_cents (nullable)
	DiscountPrice      *int64    // deals.discount_price_cents (nullable)
	DiscountPercent    *int32    // deals.discount_percent (nullable, 1-100)
	StartsAt           time.Time // deals.starts_at
	EndsAt             time.Time // deals.ends_at
	MaxRedemptions     *uint32   // deals.max_redemptions (nullable = unlimited)
	CurrentRedemptions uint32    // deals.current_redemptions
	IsActive           bool      // deals.is_active
	CreatedAt          time.Time // deals.created_at
	UpdatedAt          time.Time // deals.updated_at
}

// DiscountLabel is the single authoritative formatter for how a deal's
// discount is presented to customers. Handlers must not re-derive this
// from the raw fields.
func (d *Deal) DiscountLabel() string {
	switch d.Kind {
	case KindPercentage:
		if d.DiscountPercent != nil {
			return fmt.Sprintf("%d%% off", *d.DiscountPercent)
		}
	case KindFixedAmount:
		if d.OriginalPrice != nil && d.DiscountPrice != nil && *d.OriginalPrice > *d.DiscountPrice {
			return fmt.Sprintf("$%.2f off", float64(*d.OriginalPrice-*d.DiscountPrice)/100)
		}
		if d.DiscountPrice != nil {
			return fmt.Sprintf("now $%.2f", float64(*d.DiscountPrice)/100)
		}
	case KindBogo:
		return "buy one get one"
	}
	return "special offer"
}

// Remaining returns how many redemptions are left before the cap is
// reached, or nil when the deal is uncapped.
func (d *Deal) Remaining() *uint32 {
	if d.MaxRedemptions == nil {
		return nil
	}
	var left uint32
	if *d.MaxRedemptions > d.CurrentRedemptions {
		left = *d.MaxRedemptions - d.CurrentRedemptions
	}
	return &left
}
