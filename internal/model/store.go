package model

import "time"

// Store represents a merchant location owned by an OWNER account.
// Deals always belong to exactly one store. Coordinates are optional
// because owners may register a store before pinning it on the map;
// browse endpoints sort such stores after the ones with a known
// distance.
//
// Fields:
//  ID        – primary key identifier.
//  OwnerID   – user who owns the store.
//  Name      – display name of the store.
//  Address   – free-form street address.
//  Lat, Lng  – optional coordinates (nil when not set).
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Store struct {
	ID        uint64    // stores.id
	OwnerID   uint64    // stores.owner_id
	Name      string    // stores.name
	Address   string    // stores.address
	Lat       *float64  // stores.lat (nullable)
	Lng       *float64  // stores.lng (nullable)
	CreatedAt time.Time // stores.created_at
	UpdatedAt time.Time // stores.updated_at
}
