// This file defines repository methods for deals: owner CRUD, the
// public browse and search queries, and the capacity snapshot the
// redemption engine reads.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/localspothub/deals-api/internal/model"
)

// ErrDealNotFound is returned when a deal cannot be found in the DB.
var ErrDealNotFound = errors.New("deal not found")

// DealRepo encapsulates all database queries related to deals.
type DealRepo struct {
	db *sql.DB
}

// NewDealRepo constructs a DealRepo with the provided DB handle.
func NewDealRepo(db *sql.DB) *DealRepo {
	return &DealRepo{db: db}
}

// DB exposes the underlying handle for transaction-spanning callers.
func (r *DealRepo) DB() *sql.DB { return r.db }

const dealCols = `id, store_id, title, kind, original_price_cents, discount_price_cents,
	discount_percent, starts_at, ends_at, max_redemptions, current_redemptions,
	is_active, created_at, updated_at`

func scanDeal(row interface{ Scan(...any) error }) (*model.Deal, error) {
	var d model.Deal
	var kind string
	var origPrice, discPrice sql.NullInt64
	var discPct sql.NullInt32
	var maxRed sql.NullInt64
	if err := row.Scan(&d.ID, &d.StoreID, &d.Title, &kind, &origPrice, &discPrice,
		&discPct, &d.StartsAt, &d.EndsAt, &maxRed, &d.CurrentRedemptions,
		&d.IsActive, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.Kind = model.ParseDealKind(kind)
	if origPrice.Valid {
		v := origPrice.Int64
		d.OriginalPrice = &v
	}
	if discPrice.Valid {
		v := discPrice.Int64
		d.DiscountPrice = &v
	}
	if discPct.Valid {
		v := discPct.Int32
		d.DiscountPercent = &v
	}
	if maxRed.Valid {
		v := uint32(maxRed.Int64)
		d.MaxRedemptions = &v
	}
	return &d, nil
}

// Create inserts a new deal. On success the ID, counter and timestamp
// fields are populated via a follow-up SELECT.
func (r *DealRepo) Create(ctx context.Context, d *model.Deal) error {
	const qInsert = `INSERT INTO deals
		(store_id, title, kind, original_price_cents, discount_price_cents,
		 discount_percent, starts_at, ends_at, max_redemptions, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, qInsert, d.StoreID, d.Title, string(d.Kind),
		d.OriginalPrice, d.DiscountPrice, d.DiscountPercent,
		d.StartsAt, d.EndsAt, d.MaxRedemptions, d.IsActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)

	full, err := r.GetByID(ctx, d.ID)
	if err != nil {
		return err
	}
	*d = *full
	return nil
}

// GetByID fetches a current snapshot of a deal. Returns ErrDealNotFound
// when no row exists.
func (r *DealRepo) GetByID(ctx context.Context, id uint64) (*model.Deal, error) {
	const q = "SELECT " + dealCols + " FROM deals WHERE id = ?"
	d, err := scanDeal(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDealNotFound
		}
		return nil, err
	}
	return d, nil
}

// GetByIDForOwner fetches a deal and verifies the calling owner owns
// the deal's store. It returns ErrDealNotFound when the deal does not
// exist and ErrForbidden when it belongs to another owner.
func (r *DealRepo) GetByIDForOwner(ctx context.Context, id, ownerID uint64) (*model.Deal, error) {
	d, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	const q = "SELECT owner_id FROM stores WHERE id = ?"
	var actualOwner uint64
	if err := r.db.QueryRowContext(ctx, q, d.StoreID).Scan(&actualOwner); err != nil {
		return nil, err
	}
	if actualOwner != ownerID {
		return nil, ErrForbidden
	}
	return d, nil
}

// ListByOwner returns all deals across the owner's stores, newest
// first.
func (r *DealRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Deal, error) {
	const q = `SELECT ` + dealCols + ` FROM deals
		WHERE store_id IN (SELECT id FROM stores WHERE owner_id = ?)
		ORDER BY created_at DESC`
	return r.list(ctx, q, ownerID)
}

// ListByStore returns deals for one store, newest first. Used by the
// public store page, so only live deals are included.
func (r *DealRepo) ListByStore(ctx context.Context, storeID uint64) ([]model.Deal, error) {
	const q = `SELECT ` + dealCols + ` FROM deals
		WHERE store_id = ? AND is_active = 1 AND ends_at > NOW()
		ORDER BY created_at DESC`
	return r.list(ctx, q, storeID)
}

func (r *DealRepo) list(ctx context.Context, q string, args ...any) ([]model.Deal, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Deal, 0)
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// Update modifies the mutable fields of a deal after verifying
// ownership through the store join. The live counter is deliberately
// not updatable here; it only moves through redemptions and the
// recount job.
func (r *DealRepo) Update(ctx context.Context, d *model.Deal, ownerID uint64) error {
	if _, err := r.GetByIDForOwner(ctx, d.ID, ownerID); err != nil {
		return err
	}
	const q = `UPDATE deals SET title = ?, kind = ?, original_price_cents = ?,
		discount_price_cents = ?, discount_percent = ?, starts_at = ?, ends_at = ?,
		max_redemptions = ?, is_active = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, d.Title, string(d.Kind), d.OriginalPrice,
		d.DiscountPrice, d.DiscountPercent, d.StartsAt, d.EndsAt,
		d.MaxRedemptions, d.IsActive, d.ID)
	return err
}

// Delete removes a deal after verifying ownership. Deals that already
// have redemptions cannot be deleted (the rows reference them); owners
// should deactivate instead, so ErrConflict is returned.
func (r *DealRepo) Delete(ctx context.Context, id, ownerID uint64) error {
	if _, err := r.GetByIDForOwner(ctx, id, ownerID); err != nil {
		return err
	}
	var count int
	const qCount = "SELECT COUNT(*) FROM deal_redemptions WHERE deal_id = ?"
	if err := r.db.QueryRowContext(ctx, qCount, id).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return ErrConflict
	}
	const q = "DELETE FROM deals WHERE id = ?"
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

// DealWithStore pairs a deal with the store fields public responses
// need: name for display, coordinates for the distance sort.
type DealWithStore struct {
	Deal      model.Deal
	StoreName string
	StoreLat  *float64
	StoreLng  *float64
}

// DealSearchQuery captures the filters for browsing and searching live
// deals.
type DealSearchQuery struct {
	Title    string         // substring match on the deal title
	Store    string         // substring match on the store name
	Kind     model.DealKind // empty = all kinds
	Page     int
	PageSize int
}

// SearchLive returns live deals (active, inside their validity window)
// matching the query, along with the total match count for pagination.
func (r *DealRepo) SearchLive(ctx context.Context, q DealSearchQuery) ([]DealWithStore, int64, error) {
	where := []string{"d.is_active = 1", "d.starts_at <= NOW()", "d.ends_at > NOW()"}
	args := []any{}
	if q.Title != "" {
		where = append(where, "d.title LIKE ?")
		args = append(args, "%"+q.Title+"%")
	}
	if q.Store != "" {
		where = append(where, "s.name LIKE ?")
		args = append(args, "%"+q.Store+"%")
	}
	if q.Kind != "" {
		where = append(where, "d.kind = ?")
		args = append(args, string(q.Kind))
	}
	cond := strings.Join(where, " AND ")

	countQ := "SELECT COUNT(*) FROM deals d JOIN stores s ON s.id = d.store_id WHERE " + cond
	var total int64
	if err := r.db.QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sel := `SELECT d.id, d.store_id, d.title, d.kind, d.original_price_cents,
			d.discount_price_cents, d.discount_percent, d.starts_at, d.ends_at,
			d.max_redemptions, d.current_redemptions, d.is_active, d.created_at,
			d.updated_at, s.name, s.lat, s.lng
		FROM deals d JOIN stores s ON s.id = d.store_id
		WHERE ` + cond + ` ORDER BY d.ends_at ASC LIMIT ? OFFSET ?`
	args = append(args, q.PageSize, (q.Page-1)*q.PageSize)

	rows, err := r.db.QueryContext(ctx, sel, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]DealWithStore, 0)
	for rows.Next() {
		var item DealWithStore
		var kind string
		var origPrice, discPrice sql.NullInt64
		var discPct sql.NullInt32
		var maxRed sql.NullInt64
		var lat, lng sql.NullFloat64
		d := &item.Deal
		if err := rows.Scan(&d.ID, &d.StoreID, &d.Title, &kind, &origPrice, &discPrice,
			&discPct, &d.StartsAt, &d.EndsAt, &maxRed, &d.CurrentRedemptions,
			&d.IsActive, &d.CreatedAt, &d.UpdatedAt,
			&item.StoreName, &lat, &lng); err != nil {
			return nil, 0, err
		}
		d.Kind = model.ParseDealKind(kind)
		if origPrice.Valid {
			v := origPrice.Int64
			d.OriginalPrice = &v
		}
		if discPrice.Valid {
			v := discPrice.Int64
			d.DiscountPrice = &v
		}
		if discPct.Valid {
			v := discPct.Int32
			d.DiscountPercent = &v
		}
		if maxRed.Valid {
			v := uint32(maxRed.Int64)
			d.MaxRedemptions = &v
		}
		if lat.Valid {
			v := lat.Float64
			item.StoreLat = &v
		}
		if lng.Valid {
			v := lng.Float64
			item.StoreLng = &v
		}
		out = append(out, item)
	}
	return out, total, rows.Err()
}
