// Package queue defines message payloads exchanged over the message broker.
package queue

// DealRedeemedEvent is published when a redemption is created. It
// carries enough information for downstream consumers to log, notify,
// or feed analytics without querying the primary database.
type DealRedeemedEvent struct {
	RedemptionID uint64 `json:"redemption_id"`
	CustomerID   uint64 `json:"customer_id"`
	DealID       uint64 `json:"deal_id"`
	DealTitle    string `json:"deal_title"`
	StoreID      uint64 `json:"store_id"`
	StoreName    string `json:"store_name"`
	Code         string `json:"code"`
	Label        string `json:"label"`
	RedeemedAt   string `json:"redeemed_at"`
}
