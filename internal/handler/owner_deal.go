// This file defines the owner endpoints for managing deals and viewing
// their redemptions.
package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/localspothub/deals-api/internal/model"
	"github.com/localspothub/deals-api/internal/repository"
)

type dealReq struct {
	StoreID         uint64    `json:"store_id"`
	Title           string    `json:"title"`
	Kind            string    `json:"kind"`
	OriginalPrice   *int64    `json:"original_price_cents"`
	DiscountPrice   *int64    `json:"discount_price_cents"`
	DiscountPercent *int32    `json:"discount_percent"`
	StartsAt        time.Time `json:"starts_at"`
	EndsAt          time.Time `json:"ends_at"`
	MaxRedemptions  *uint32   `json:"max_redemptions"`
	IsActive        *bool     `json:"is_active"`
}

// validate normalizes the request and returns a client-facing message
// when the deal is malformed, empty string when it is fine.
func (r *dealReq) validate() string {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return "title required"
	}
	if !r.EndsAt.After(r.StartsAt) {
		return "ends_at must be after starts_at"
	}
	kind := model.ParseDealKind(r.Kind)
	switch kind {
	case model.KindPercentage:
		if r.DiscountPercent == nil || *r.DiscountPercent < 1 || *r.DiscountPercent > 100 {
			return "percentage deals need discount_percent between 1 and 100"
		}
	case model.KindFixedAmount:
		if r.OriginalPrice == nil || r.DiscountPrice == nil {
			return "fixed amount deals need original and discount prices"
		}
		if *r.DiscountPrice >= *r.OriginalPrice || *r.DiscountPrice < 0 {
			return "discount price must be below the original price"
		}
	}
	if r.MaxRedemptions != nil && *r.MaxRedemptions == 0 {
		return "max_redemptions must be positive or omitted"
	}
	return ""
}

func (r *dealReq) toModel() model.Deal {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return model.Deal{
		StoreID:         r.StoreID,
		Title:           r.Title,
		Kind:            model.ParseDealKind(r.Kind),
		OriginalPrice:   r.OriginalPrice,
		DiscountPrice:   r.DiscountPrice,
		DiscountPercent: r.DiscountPercent,
		StartsAt:        r.StartsAt,
		EndsAt:          r.EndsAt,
		MaxRedemptions:  r.MaxRedemptions,
		IsActive:        active,
	}
}

// CreateDeal publishes a new deal under one of the owner's stores.
func (h *OwnerHandler) CreateDeal(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req dealReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx := c.Request().Context()
	// The store must exist and belong to the caller.
	if _, err := h.StoreRepo.GetByIDAndOwner(ctx, req.StoreID, uid); err != nil {
		if errors.Is(err, repository.ErrStoreNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "store not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	d := req.toModel()
	if err := h.DealRepo.Create(ctx, &d); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create deal failed"})
	}
	return c.JSON(http.StatusCreated, d)
}

// ListDeals returns every deal across the owner's stores.
func (h *OwnerHandler) ListDeals(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.DealRepo.ListByOwner(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetDeal returns one deal owned by the caller, including the live
// redemption counter.
func (h *OwnerHandler) GetDeal(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	d, err := h.DealRepo.GetByIDForOwner(c.Request().Context(), id, uid)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDealNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "deal not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not your deal"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
	}
	return c.JSON(http.StatusOK, d)
}

// UpdateDeal modifies a deal's mutable fields. The redemption counter
// cannot be set through this endpoint.
func (h *OwnerHandler) UpdateDeal(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req dealReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	d := req.toModel()
	d.ID = id
	if err := h.DealRepo.Update(c.Request().Context(), &d, uid); err != nil {
		switch {
		case errors.Is(err, repository.ErrDealNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "deal not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not your deal"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update deal failed"})
		}
	}
	full, err := h.DealRepo.GetByIDForOwner(c.Request().Context(), id, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, full)
}

// DeleteDeal removes a deal that has no redemptions yet. Deals with
// redemptions respond 409; owners deactivate those instead.
func (h *OwnerHandler) DeleteDeal(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.DealRepo.Delete(c.Request().Context(), id, uid); err != nil {
		switch {
		case errors.Is(err, repository.ErrDealNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "deal not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not your deal"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "deal already has redemptions, deactivate it instead"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete deal failed"})
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// ListDealRedemptions returns all redemptions of one of the owner's
// deals, newest first.
func (h *OwnerHandler) ListDealRedemptions(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	items, err := h.RedemptionRepo.ListByDealForOwner(c.Request().Context(), id, uid)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "deal not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not your deal"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
