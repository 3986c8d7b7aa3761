package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Preferences are small per-customer UI settings that are cheap to lose,
// so they live in Redis rather than MySQL. The server degrades to
// defaults when Redis is down or the key is missing.
type Preferences struct {
	LastStoreID uint64  `json:"last_store_id,omitempty"`
	SearchLat   float64 `json:"search_lat,omitempty"`
	SearchLng   float64 `json:"search_lng,omitempty"`
	HasLocation bool    `json:"has_location,omitempty"`
}

// PreferenceRepo stores customer preferences in Redis under a TTL so
// stale entries age out on their own.
type PreferenceRepo struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPreferenceRepo(rdb *redis.Client) *PreferenceRepo {
	return &PreferenceRepo{rdb: rdb, ttl: 90 * 24 * time.Hour}
}

func prefKey(customerID uint64) string {
	return fmt.Sprintf("prefs:customer:%d", customerID)
}

// Get returns the stored preferences, or zero-value defaults when none
// are stored or Redis is unavailable.
func (r *PreferenceRepo) Get(ctx context.Context, customerID uint64) (Preferences, error) {
	var p Preferences
	if r.rdb == nil {
		return p, nil
	}
	raw, err := r.rdb.Get(ctx, prefKey(customerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return p, nil
		}
		return p, err
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		// A corrupt entry is treated as absent and will be overwritten
		// on the next Set.
		return Preferences{}, nil
	}
	return p, nil
}

// Set stores the preferences, refreshing the TTL.
func (r *PreferenceRepo) Set(ctx context.Context, customerID uint64, p Preferences) error {
	if r.rdb == nil {
		return nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, prefKey(customerID), raw, r.ttl).Err()
}
