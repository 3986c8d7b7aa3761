// This file defines the customer-facing deal endpoints: redeeming a
// deal, listing redemptions, rendering a redemption code as a QR image,
// toggling favorites and storing preferences.
package handler

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/labstack/echo/v4"

	"github.com/localspothub/deals-api/internal/queue"
	"github.com/localspothub/deals-api/internal/redemption"
	"github.com/localspothub/deals-api/internal/repository"
	queue_publisher "github.com/localspothub/deals-api/internal/service"
)

// CustomerHandler bundles everything the customer endpoints need. The
// redemption engine owns eligibility and atomicity; the handler only
// translates its outcomes onto HTTP.
type CustomerHandler struct {
	Engine      *redemption.Service
	Redemptions *repository.RedemptionRepo
	Deals       *repository.DealRepo
	Stores      *repository.StoreRepo
	Favorites   *repository.FavoriteRepo
	Prefs       *repository.PreferenceRepo
}

func NewCustomerHandler(engine *redemption.Service, red *repository.RedemptionRepo,
	deals *repository.DealRepo, stores *repository.StoreRepo,
	fav *repository.FavoriteRepo, prefs *repository.PreferenceRepo) *CustomerHandler {
	if engine == nil || red == nil || deals == nil || stores == nil || fav == nil {
		panic("nil dependency passed to NewCustomerHandler")
	}
	return &CustomerHandler{Engine: engine, Redemptions: red, Deals: deals,
		Stores: stores, Favorites: fav, Prefs: prefs}
}

type redeemResp struct {
	RedemptionID uint64    `json:"redemption_id"`
	DealID       uint64    `json:"deal_id"`
	Code         string    `json:"code"`
	Status       string    `json:"status"`
	RedeemedAt   time.Time `json:"redeemed_at"`
	New          bool      `json:"new"`
}

// redeemError maps an engine outcome onto an HTTP response. Repeat
// redemptions never reach here; the engine reports them as success with
// the original code.
func redeemError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, redemption.ErrSignInRequired):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "sign in to redeem deals"})
	case errors.Is(err, redemption.ErrDealNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "deal not found"})
	case errors.Is(err, redemption.ErrDealNotActive):
		return c.JSON(http.StatusConflict, echo.Map{"error": "deal is not active yet"})
	case errors.Is(err, redemption.ErrDealExpired):
		return c.JSON(http.StatusGone, echo.Map{"error": "deal has expired"})
	case errors.Is(err, redemption.ErrLimitReached):
		return c.JSON(http.StatusConflict, echo.Map{"error": "deal is fully redeemed"})
	case errors.Is(err, redemption.ErrStoreUnavailable):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "temporarily unavailable, try again"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "redeem failed"})
	}
}

// Redeem claims the deal for the signed-in customer. The call is
// idempotent: redeeming an already-redeemed deal returns the original
// code with "new": false and HTTP 200.
func (h *CustomerHandler) Redeem(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	dealID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	res, err := h.Engine.Redeem(c.Request().Context(), dealID, uid)
	if err != nil {
		return redeemError(c, err)
	}

	if res.CreatedNew {
		go h.publishRedeemed(res)
	}

	status := http.StatusOK
	if res.CreatedNew {
		status = http.StatusCreated
	}
	r := res.Redemption
	return c.JSON(status, redeemResp{
		RedemptionID: r.ID,
		DealID:       r.DealID,
		Code:         r.Code,
		Status:       r.Status,
		RedeemedAt:   r.RedeemedAt,
		New:          res.CreatedNew,
	})
}

// publishRedeemed enriches the committed redemption with display names
// and hands it to the broker. Runs on its own goroutine after the HTTP
// response; failures are logged by the publisher and dropped.
func (h *CustomerHandler) publishRedeemed(res *redemption.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r := res.Redemption
	ev := queue.DealRedeemedEvent{
		RedemptionID: r.ID,
		CustomerID:   r.CustomerID,
		DealID:       r.DealID,
		StoreID:      r.StoreID,
		Code:         r.Code,
		RedeemedAt:   r.RedeemedAt.UTC().Format(time.RFC3339),
	}
	if d, err := h.Deals.GetByID(ctx, r.DealID); err == nil {
		ev.DealTitle = d.Title
		ev.Label = d.DiscountLabel()
	}
	if s, err := h.Stores.GetByID(ctx, r.StoreID); err == nil {
		ev.StoreName = s.Name
	}
	_ = queue_publisher.PublishDealRedeemed(ctx, ev)
}

// Eligibility is the advisory pre-check UIs call to enable or disable
// the redeem button. The answer can go stale immediately; Redeem is the
// authority.
func (h *CustomerHandler) Eligibility(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	dealID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	if err := h.Engine.Check(c.Request().Context(), dealID, uid); err != nil {
		switch {
		case errors.Is(err, redemption.ErrStoreUnavailable):
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "temporarily unavailable, try again"})
		case errors.Is(err, redemption.ErrDealNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "deal not found"})
		}
		return c.JSON(http.StatusOK, echo.Map{"eligible": false, "reason": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"eligible": true})
}

// MyRedemptions lists the customer's redemptions, newest first.
func (h *CustomerHandler) MyRedemptions(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Redemptions.ListByCustomer(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetRedemption returns one of the customer's redemptions.
func (h *CustomerHandler) GetRedemption(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	det, err := h.Redemptions.GetByIDForCustomer(c.Request().Context(), id, uid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "redemption not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, det)
}

// RedemptionQR renders the redemption code as a PNG QR image suitable
// for scanning at the counter.
func (h *CustomerHandler) RedemptionQR(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	det, err := h.Redemptions.GetByIDForCustomer(c.Request().Context(), id, uid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "redemption not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	png, err := qrcode.Encode(det.Code, qrcode.Medium, 256)
	if err != nil {
		log.Printf("qr encode failed for redemption %d: %v", det.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "qr render failed"})
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

// ToggleFavorite flips the favorite state of a deal and reports the
// resulting state.
func (h *CustomerHandler) ToggleFavorite(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	dealID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	fav, err := h.Favorites.Toggle(c.Request().Context(), uid, dealID)
	if err != nil {
		if errors.Is(err, repository.ErrDealNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "deal not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"deal_id": dealID, "favorite": fav})
}

// MyFavorites lists the customer's favorites, most recently added first.
func (h *CustomerHandler) MyFavorites(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Favorites.ListByCustomer(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetPreferences returns the customer's stored preferences. Missing or
// unreachable preference storage degrades to defaults rather than
// failing the request.
func (h *CustomerHandler) GetPreferences(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	p, err := h.Prefs.Get(c.Request().Context(), uid)
	if err != nil {
		log.Printf("preferences load failed for user %d: %v", uid, err)
		p = repository.Preferences{}
	}
	return c.JSON(http.StatusOK, p)
}

// PutPreferences replaces the customer's stored preferences.
func (h *CustomerHandler) PutPreferences(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var p repository.Preferences
	if err := c.Bind(&p); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := h.Prefs.Set(c.Request().Context(), uid, p); err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "preferences store unavailable"})
	}
	return c.JSON(http.StatusOK, p)
}
