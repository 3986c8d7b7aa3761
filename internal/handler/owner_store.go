// This file defines the owner endpoints for managing stores. Every
// operation verifies ownership inside the repository so a handler bug
// can never expose another owner's rows.
package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/localspothub/deals-api/internal/model"
	"github.com/localspothub/deals-api/internal/repository"
)

// OwnerHandler bundles repositories for owners to manage their stores
// and deals.
type OwnerHandler struct {
	StoreRepo      *repository.StoreRepo
	DealRepo       *repository.DealRepo
	RedemptionRepo *repository.RedemptionRepo
}

// NewOwnerHandler constructs a new OwnerHandler and panics if any
// dependency is nil.
func NewOwnerHandler(storeRepo *repository.StoreRepo, dealRepo *repository.DealRepo, redemptionRepo *repository.RedemptionRepo) *OwnerHandler {
	if storeRepo == nil || dealRepo == nil || redemptionRepo == nil {
		panic("nil repository passed to NewOwnerHandler")
	}
	return &OwnerHandler{StoreRepo: storeRepo, DealRepo: dealRepo, RedemptionRepo: redemptionRepo}
}

type storeReq struct {
	Name    string   `json:"name"`
	Address string   `json:"address"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
}

func (r *storeReq) validate() string {
	r.Name = strings.TrimSpace(r.Name)
	r.Address = strings.TrimSpace(r.Address)
	if r.Name == "" {
		return "name required"
	}
	if (r.Lat == nil) != (r.Lng == nil) {
		return "lat and lng must be set together"
	}
	if r.Lat != nil && (*r.Lat < -90 || *r.Lat > 90 || *r.Lng < -180 || *r.Lng > 180) {
		return "coordinates out of range"
	}
	return ""
}

// CreateStore registers a new store for the calling owner.
func (h *OwnerHandler) CreateStore(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req storeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	s := model.Store{OwnerID: uid, Name: req.Name, Address: req.Address, Lat: req.Lat, Lng: req.Lng}
	if err := h.StoreRepo.Create(c.Request().Context(), &s); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create store failed"})
	}
	return c.JSON(http.StatusCreated, s)
}

// ListStores returns all stores belonging to the calling owner.
func (h *OwnerHandler) ListStores(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.StoreRepo.ListByOwner(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetStore returns one of the owner's stores.
func (h *OwnerHandler) GetStore(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	s, err := h.StoreRepo.GetByIDAndOwner(c.Request().Context(), id, uid)
	if err != nil {
		if errors.Is(err, repository.ErrStoreNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "store not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, s)
}

// UpdateStore modifies one of the owner's stores.
func (h *OwnerHandler) UpdateStore(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req storeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	s := model.Store{ID: id, Name: req.Name, Address: req.Address, Lat: req.Lat, Lng: req.Lng}
	if err := h.StoreRepo.Update(c.Request().Context(), &s, uid); err != nil {
		if errors.Is(err, repository.ErrStoreNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "store not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update store failed"})
	}
	full, err := h.StoreRepo.GetByIDAndOwner(c.Request().Context(), id, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, full)
}

// DeleteStore removes one of the owner's stores. Stores that still have
// deals respond 409 so the owner retires deals first.
func (h *OwnerHandler) DeleteStore(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.StoreRepo.Delete(c.Request().Context(), id, uid); err != nil {
		switch {
		case errors.Is(err, repository.ErrStoreNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "store not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "store still has deals"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete store failed"})
		}
	}
	return c.NoContent(http.StatusNoContent)
}
