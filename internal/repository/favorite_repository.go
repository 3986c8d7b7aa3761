package repository

import (
	"context"
	"database/sql"
	"errors"
)

// errFavoriteExists signals that the (customer, deal) favorite row was
// already present when an insert ran; Toggle folds it into the "now a
// favorite" outcome.
var errFavoriteExists = errors.New("favorite already exists")

// favoriteRows is the minimal row-level surface Toggle needs. The
// SQL-backed implementation lives below; tests substitute an in-memory
// fake so the toggle semantics can be exercised without a database.
type favoriteRows interface {
	// dealStore returns the store a deal belongs to, or ErrDealNotFound.
	dealStore(ctx context.Context, dealID uint64) (uint64, error)
	// delete removes the favorite and reports whether a row existed.
	delete(ctx context.Context, customerID, dealID uint64) (bool, error)
	// insert adds the favorite, errFavoriteExists on the unique index.
	insert(ctx context.Context, customerID, dealID, storeID uint64) error
}

// FavoriteRepo persists customer favorites. A favorite is a plain
// (customer, deal) pair; the UNIQUE index on it makes Toggle safe under
// double-taps from the client.
type FavoriteRepo struct {
	db   *sql.DB
	rows favoriteRows
}

func NewFavoriteRepo(db *sql.DB) *FavoriteRepo {
	return &FavoriteRepo{db: db, rows: sqlFavoriteRows{db: db}}
}

// Toggle flips the favorite state for the customer and deal. It reports
// the resulting state: true when the deal is now a favorite, false when
// the toggle removed it. Two successive toggles always restore the
// original state.
func (r *FavoriteRepo) Toggle(ctx context.Context, customerID, dealID uint64) (bool, error) {
	storeID, err := r.rows.dealStore(ctx, dealID)
	if err != nil {
		return false, err
	}

	removed, err := r.rows.delete(ctx, customerID, dealID)
	if err != nil {
		return false, err
	}
	if removed {
		return false, nil
	}

	if err := r.rows.insert(ctx, customerID, dealID, storeID); err != nil {
		// A concurrent toggle already inserted the row; the deal is a
		// favorite either way.
		if errors.Is(err, errFavoriteExists) {
			return true, nil
		}
		return false, err
	}
	return true, nil
}

// sqlFavoriteRows is the MySQL implementation of favoriteRows.
type sqlFavoriteRows struct {
	db *sql.DB
}

func (s sqlFavoriteRows) dealStore(ctx context.Context, dealID uint64) (uint64, error) {
	var storeID uint64
	if err := s.db.QueryRowContext(ctx,
		"SELECT store_id FROM deals WHERE id = ?", dealID).Scan(&storeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrDealNotFound
		}
		return 0, err
	}
	return storeID, nil
}

func (s sqlFavoriteRows) delete(ctx context.Context, customerID, dealID uint64) (bool, error) {
	const q = "DELETE FROM favorites WHERE customer_id = ? AND deal_id = ?"
	res, err := s.db.ExecContext(ctx, q, customerID, dealID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s sqlFavoriteRows) insert(ctx context.Context, customerID, dealID, storeID uint64) error {
	const q = "INSERT INTO favorites (customer_id, deal_id, store_id) VALUES (?, ?, ?)"
	if _, err := s.db.ExecContext(ctx, q, customerID, dealID, storeID); err != nil {
		if isDuplicateKey(err) {
			return errFavoriteExists
		}
		return err
	}
	return nil
}

// FavoriteDetail joins a favorite with the display fields lists need.
type FavoriteDetail struct {
	DealID    uint64 `json:"deal_id"`
	DealTitle string `json:"deal_title"`
	StoreID   uint64 `json:"store_id"`
	StoreName string `json:"store_name"`
	Live      bool   `json:"live"`
}

// ListByCustomer returns the customer's favorites, most recently added
// first. Deals that have since ended or been deactivated stay in the
// list but are flagged not live.
func (r *FavoriteRepo) ListByCustomer(ctx context.Context, customerID uint64) ([]FavoriteDetail, error) {
	const q = `SELECT f.deal_id, d.title, f.store_id, s.name,
			(d.is_active = 1 AND d.starts_at <= NOW() AND d.ends_at > NOW()) AS live
		FROM favorites f
		JOIN deals d ON d.id = f.deal_id
		JOIN stores s ON s.id = f.store_id
		WHERE f.customer_id = ?
		ORDER BY f.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]FavoriteDetail, 0)
	for rows.Next() {
		var det FavoriteDetail
		if err := rows.Scan(&det.DealID, &det.DealTitle, &det.StoreID, &det.StoreName, &det.Live); err != nil {
			return nil, err
		}
		out = append(out, det)
	}
	return out, rows.Err()
}

// IsFavorite reports whether the customer has favorited the deal.
func (r *FavoriteRepo) IsFavorite(ctx context.Context, customerID, dealID uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM favorites WHERE customer_id = ? AND deal_id = ? LIMIT 1",
		customerID, dealID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
