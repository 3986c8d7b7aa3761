// This file defines repository methods for merchant stores. A Store is
// the venue a deal belongs to; only minimal fields should be exposed in
// public API responses.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/localspothub/deals-api/internal/model"
)

// StoreRepo encapsulates all database queries related to stores. It
// depends on a sql.DB connection configured at startup.
type StoreRepo struct {
	db *sql.DB
}

// NewStoreRepo constructs a StoreRepo with the provided DB handle.
func NewStoreRepo(db *sql.DB) *StoreRepo {
	return &StoreRepo{db: db}
}

// DB exposes the underlying handle so handlers can open transactions
// spanning several repositories.
func (r *StoreRepo) DB() *sql.DB { return r.db }

const storeCols = "id, owner_id, name, address, lat, lng, created_at, updated_at"

func scanStore(row interface{ Scan(...any) error }) (*model.Store, error) {
	var s model.Store
	var lat, lng sql.NullFloat64
	if err := row.Scan(&s.ID, &s.OwnerID, &s.Name, &s.Address, &lat, &lng, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if lat.Valid {
		v := lat.Float64
		s.Lat = &v
	}
	if lng.Valid {
		v := lng.Float64
		s.Lng = &v
	}
	return &s, nil
}

// Create inserts a new store. On success the ID and timestamp fields
// are populated via a follow-up SELECT so callers receive a fully
// populated record.
func (r *StoreRepo) Create(ctx context.Context, s *model.Store) error {
	const qInsert = "INSERT INTO stores (owner_id, name, address, lat, lng) VALUES (?, ?, ?, ?, ?)"
	res, err := r.db.ExecContext(ctx, qInsert, s.OwnerID, s.Name, s.Address, s.Lat, s.Lng)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)

	const qSelect = "SELECT " + storeCols + " FROM stores WHERE id = ?"
	full, err := scanStore(r.db.QueryRowContext(ctx, qSelect, s.ID))
	if err != nil {
		return err
	}
	*s = *full
	return nil
}

// GetByID fetches a store by its ID regardless of owner. It returns
// ErrStoreNotFound when no row exists.
func (r *StoreRepo) GetByID(ctx context.Context, id uint64) (*model.Store, error) {
	const q = "SELECT " + storeCols + " FROM stores WHERE id = ?"
	s, err := scanStore(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStoreNotFound
		}
		return nil, err
	}
	return s, nil
}

// GetByIDAndOwner fetches a store by id but only if it belongs to the
// specified owner. Rows owned by someone else report ErrStoreNotFound
// rather than leaking existence.
func (r *StoreRepo) GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (*model.Store, error) {
	const q = "SELECT " + storeCols + " FROM stores WHERE id = ? AND owner_id = ?"
	s, err := scanStore(r.db.QueryRowContext(ctx, q, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStoreNotFound
		}
		return nil, err
	}
	return s, nil
}

// ListByOwner returns every store belonging to the owner, newest first.
func (r *StoreRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Store, error) {
	const q = "SELECT " + storeCols + " FROM stores WHERE owner_id = ? ORDER BY created_at DESC"
	return r.list(ctx, q, ownerID)
}

// ListAll returns every store, for the public browse endpoint.
func (r *StoreRepo) ListAll(ctx context.Context) ([]model.Store, error) {
	const q = "SELECT " + storeCols + " FROM stores ORDER BY name"
	return r.list(ctx, q)
}

func (r *StoreRepo) list(ctx context.Context, q string, args ...any) ([]model.Store, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Store, 0)
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// Update modifies the mutable fields of a store owned by ownerID. It
// returns ErrStoreNotFound when no matching row was updated.
func (r *StoreRepo) Update(ctx context.Context, s *model.Store, ownerID uint64) error {
	const q = "UPDATE stores SET name = ?, address = ?, lat = ?, lng = ? WHERE id = ? AND owner_id = ?"
	res, err := r.db.ExecContext(ctx, q, s.Name, s.Address, s.Lat, s.Lng, s.ID, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish "not yours" from "no change": a same-values
		// update also affects zero rows, so re-check existence.
		if _, err := r.GetByIDAndOwner(ctx, s.ID, ownerID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a store owned by ownerID. Stores that still have deals
// report ErrConflict so owners retire deals first.
func (r *StoreRepo) Delete(ctx context.Context, id, ownerID uint64) error {
	var count int
	const qCount = "SELECT COUNT(*) FROM deals WHERE store_id = ?"
	if err := r.db.QueryRowContext(ctx, qCount, id).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return ErrConflict
	}
	const q = "DELETE FROM stores WHERE id = ? AND owner_id = ?"
	res, err := r.db.ExecContext(ctx, q, id, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStoreNotFound
	}
	return nil
}
