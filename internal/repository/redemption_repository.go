// This file implements the redemption engine's Store contract on MySQL
// plus the listing queries handlers need. The UNIQUE(customer_id,
// deal_id) index on deal_redemptions is the authority for the
// one-redemption-per-customer invariant; the guarded counter update in
// the same transaction is the authority for the capacity invariant.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/localspothub/deals-api/internal/model"
	"github.com/localspothub/deals-api/internal/redemption"
)

// RedemptionRepo persists deal redemptions. It satisfies
// redemption.Store so the engine can run against it directly.
type RedemptionRepo struct {
	db *sql.DB
}

// NewRedemptionRepo returns a RedemptionRepo bound to the given
// database.
func NewRedemptionRepo(db *sql.DB) *RedemptionRepo { return &RedemptionRepo{db: db} }

// GetDeal returns a current snapshot of the deal, translated onto the
// engine's error vocabulary.
func (r *RedemptionRepo) GetDeal(ctx context.Context, dealID uint64) (*model.Deal, error) {
	const q = "SELECT " + dealCols + " FROM deals WHERE id = ?"
	d, err := scanDeal(r.db.QueryRowContext(ctx, q, dealID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, redemption.ErrDealNotFound
		}
		return nil, err
	}
	return d, nil
}

const redemptionCols = "id, customer_id, deal_id, store_id, code, status, redeemed_at"

func scanRedemption(row interface{ Scan(...any) error }) (*model.Redemption, error) {
	var rec model.Redemption
	if err := row.Scan(&rec.ID, &rec.CustomerID, &rec.DealID, &rec.StoreID,
		&rec.Code, &rec.Status, &rec.RedeemedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

// FindRedemption returns the customer's redemption of the deal, or nil
// when none exists.
func (r *RedemptionRepo) FindRedemption(ctx context.Context, customerID, dealID uint64) (*model.Redemption, error) {
	const q = "SELECT " + redemptionCols + " FROM deal_redemptions WHERE customer_id = ? AND deal_id = ? LIMIT 1"
	rec, err := scanRedemption(r.db.QueryRowContext(ctx, q, customerID, dealID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

// InsertAtomic inserts the redemption row and increments the deal's
// live counter inside one transaction, so a crash between the two
// statements can never leave the counter out of sync. The duplicate-key
// rejection from the unique index surfaces as redemption.ErrDuplicate;
// a guarded increment that finds no capacity rolls the insert back and
// surfaces redemption.ErrLimitReached.
func (r *RedemptionRepo) InsertAtomic(ctx context.Context, rec *model.Redemption) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const qInsert = `INSERT INTO deal_redemptions
		(customer_id, deal_id, store_id, code, status, redeemed_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, qInsert, rec.CustomerID, rec.DealID,
		rec.StoreID, rec.Code, rec.Status, rec.RedeemedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return redemption.ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = uint64(id)

	// The WHERE clause re-checks capacity under the row lock; the
	// counter is never computed client-side.
	const qBump = `UPDATE deals
		SET current_redemptions = current_redemptions + 1
		WHERE id = ? AND (max_redemptions IS NULL OR current_redemptions < max_redemptions)`
	bump, err := tx.ExecContext(ctx, qBump, rec.DealID)
	if err != nil {
		return err
	}
	n, err := bump.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either the deal vanished or the cap filled up since the
		// eligibility check. Rolling back discards the inserted row.
		var exists int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM deals WHERE id = ?", rec.DealID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return redemption.ErrDealNotFound
		}
		return redemption.ErrLimitReached
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// RedemptionDetail is a redemption joined with the deal and store
// fields customer-facing lists display.
type RedemptionDetail struct {
	ID         uint64    `json:"id"`
	DealID     uint64    `json:"deal_id"`
	DealTitle  string    `json:"deal_title"`
	StoreID    uint64    `json:"store_id"`
	StoreName  string    `json:"store_name"`
	Code       string    `json:"code"`
	Status     string    `json:"status"`
	RedeemedAt time.Time `json:"redeemed_at"`
}

// ListByCustomer returns the customer's redemptions newest first.
func (r *RedemptionRepo) ListByCustomer(ctx context.Context, customerID uint64) ([]RedemptionDetail, error) {
	const q = `SELECT r.id, r.deal_id, d.title, r.store_id, s.name, r.code, r.status, r.redeemed_at
		FROM deal_redemptions r
		JOIN deals d ON d.id = r.deal_id
		JOIN stores s ON s.id = r.store_id
		WHERE r.customer_id = ?
		ORDER BY r.redeemed_at DESC`
	rows, err := r.db.QueryContext(ctx, q, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]RedemptionDetail, 0)
	for rows.Next() {
		var det RedemptionDetail
		if err := rows.Scan(&det.ID, &det.DealID, &det.DealTitle, &det.StoreID,
			&det.StoreName, &det.Code, &det.Status, &det.RedeemedAt); err != nil {
			return nil, err
		}
		out = append(out, det)
	}
	return out, rows.Err()
}

// GetByIDForCustomer returns a single redemption owned by the calling
// customer, or sql.ErrNoRows.
func (r *RedemptionRepo) GetByIDForCustomer(ctx context.Context, id, customerID uint64) (*RedemptionDetail, error) {
	const q = `SELECT r.id, r.deal_id, d.title, r.store_id, s.name, r.code, r.status, r.redeemed_at
		FROM deal_redemptions r
		JOIN deals d ON d.id = r.deal_id
		JOIN stores s ON s.id = r.store_id
		WHERE r.id = ? AND r.customer_id = ?`
	var det RedemptionDetail
	if err := r.db.QueryRowContext(ctx, q, id, customerID).Scan(&det.ID, &det.DealID,
		&det.DealTitle, &det.StoreID, &det.StoreName, &det.Code, &det.Status,
		&det.RedeemedAt); err != nil {
		return nil, err
	}
	return &det, nil
}

// ListByDealForOwner returns all redemptions of a deal for the owner of
// its store. It returns ErrForbidden when the caller does not own the
// store and sql.ErrNoRows when the deal does not exist.
func (r *RedemptionRepo) ListByDealForOwner(ctx context.Context, dealID, ownerID uint64) ([]RedemptionDetail, error) {
	const checkQ = `SELECT s.owner_id FROM deals d JOIN stores s ON s.id = d.store_id WHERE d.id = ?`
	var actualOwner uint64
	if err := r.db.QueryRowContext(ctx, checkQ, dealID).Scan(&actualOwner); err != nil {
		return nil, err
	}
	if actualOwner != ownerID {
		return nil, ErrForbidden
	}
	const q = `SELECT r.id, r.deal_id, d.title, r.store_id, s.name, r.code, r.status, r.redeemed_at
		FROM deal_redemptions r
		JOIN deals d ON d.id = r.deal_id
		JOIN stores s ON s.id = r.store_id
		WHERE r.deal_id = ?
		ORDER BY r.redeemed_at DESC`
	rows, err := r.db.QueryContext(ctx, q, dealID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]RedemptionDetail, 0)
	for rows.Next() {
		var det RedemptionDetail
		if err := rows.Scan(&det.ID, &det.DealID, &det.DealTitle, &det.StoreID,
			&det.StoreName, &det.Code, &det.Status, &det.RedeemedAt); err != nil {
			return nil, err
		}
		out = append(out, det)
	}
	return out, rows.Err()
}

// RecountAll re-derives every deal's live counter from the true count
// of redemption rows. The in-transaction increment keeps the counter
// correct on the happy path; this recount heals any drift left behind
// by manual data fixes or restored backups. Returns the number of deals
// whose counter changed.
func (r *RedemptionRepo) RecountAll(ctx context.Context) (int64, error) {
	const q = `UPDATE deals d
		SET d.current_redemptions = (
			SELECT COUNT(*) FROM deal_redemptions r WHERE r.deal_id = d.id
		)
		WHERE d.current_redemptions <> (
			SELECT COUNT(*) FROM deal_redemptions r WHERE r.deal_id = d.id
		)`
	res, err := r.db.ExecContext(ctx, q)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
