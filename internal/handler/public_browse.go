// Package handler exposes HTTP handlers for both authenticated and public endpoints.
// This file defines handlers for the public browsing API. These routes allow
// unauthenticated users to browse stores and live deals without an account.
// Sensitive fields (owner IDs, redemption counters, timestamps) are filtered
// from responses.

package handler

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/localspothub/deals-api/internal/model"
	"github.com/localspothub/deals-api/internal/repository"
	"github.com/localspothub/deals-api/internal/utils"
)

// PublicHandler aggregates repositories needed for unauthenticated browsing.
// It produces sanitized responses suitable for public consumption.
type PublicHandler struct {
	StoreRepo *repository.StoreRepo
	DealRepo  *repository.DealRepo
}

// PublicStore represents a store exposed via the public API. It contains
// only safe fields.
type PublicStore struct {
	ID      uint64   `json:"id"`
	Name    string   `json:"name"`
	Address string   `json:"address"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

// PublicDeal represents a deal in public list and detail responses. The
// price is summarized through the discount label; remaining is omitted
// for unlimited deals.
type PublicDeal struct {
	ID            uint64    `json:"id"`
	Title         string    `json:"title"`
	Kind          string    `json:"kind"`
	Label         string    `json:"label"`
	EndsAt        time.Time `json:"ends_at"`
	Remaining     *uint32   `json:"remaining,omitempty"`
	StoreID       uint64    `json:"store_id"`
	StoreName     string    `json:"store_name,omitempty"`
	DistanceMiles *float64  `json:"distance_miles,omitempty"`
}

func publicDeal(d *model.Deal) PublicDeal {
	return PublicDeal{
		ID:        d.ID,
		Title:     d.Title,
		Kind:      string(d.Kind),
		Label:     d.DiscountLabel(),
		EndsAt:    d.EndsAt,
		Remaining: d.Remaining(),
		StoreID:   d.StoreID,
	}
}

// GetPublicStores returns all stores for unauthenticated browsing.
// Response JSON contains an "items" array of PublicStore.
func (h *PublicHandler) GetPublicStores(c echo.Context) error {
	ctx := c.Request().Context()
	stores, err := h.StoreRepo.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]PublicStore, 0, len(stores))
	for _, s := range stores {
		out = append(out, PublicStore{ID: s.ID, Name: s.Name, Address: s.Address, Lat: s.Lat, Lng: s.Lng})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetPublicStore returns one store and its currently live deals.
func (h *PublicHandler) GetPublicStore(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	s, err := h.StoreRepo.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrStoreNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "store not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	deals, err := h.DealRepo.ListByStore(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	items := make([]PublicDeal, 0, len(deals))
	for i := range deals {
		pd := publicDeal(&deals[i])
		pd.StoreName = s.Name
		items = append(items, pd)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"store": PublicStore{ID: s.ID, Name: s.Name, Address: s.Address, Lat: s.Lat, Lng: s.Lng},
		"deals": items,
	})
}

// SearchPublicDeals lists live deals with optional filters:
//
//	q      substring match on the deal title
//	store  substring match on the store name
//	kind   deal kind (percentage, fixed_amount, bogo, other)
//	lat,lng  viewer position; when both are present the page is sorted
//	         nearest first, deals at stores without coordinates last
//	page, page_size  pagination (defaults 1 and 20, page_size capped at 100)
func (h *PublicHandler) SearchPublicDeals(c echo.Context) error {
	ctx := c.Request().Context()

	q := repository.DealSearchQuery{
		Title:    c.QueryParam("q"),
		Store:    c.QueryParam("store"),
		Page:     1,
		PageSize: 20,
	}
	if k := c.QueryParam("kind"); k != "" {
		q.Kind = model.ParseDealKind(k)
	}
	if v, err := strconv.Atoi(c.QueryParam("page")); err == nil && v > 0 {
		q.Page = v
	}
	if v, err := strconv.Atoi(c.QueryParam("page_size")); err == nil && v > 0 {
		q.PageSize = v
	}
	if q.PageSize > 100 {
		q.PageSize = 100
	}

	items, total, err := h.DealRepo.SearchLive(ctx, q)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	out := make([]PublicDeal, 0, len(items))
	for i := range items {
		pd := publicDeal(&items[i].Deal)
		pd.StoreName = items[i].StoreName
		out = append(out, pd)
	}

	lat, latErr := strconv.ParseFloat(c.QueryParam("lat"), 64)
	lng, lngErr := strconv.ParseFloat(c.QueryParam("lng"), 64)
	if latErr == nil && lngErr == nil {
		type ranked struct {
			deal PublicDeal
			dist float64
		}
		rk := make([]ranked, len(out))
		for i := range items {
			d := utils.DistanceMilesTo(lat, lng, items[i].StoreLat, items[i].StoreLng)
			if d != utils.DistanceUnknown {
				v := d
				out[i].DistanceMiles = &v
			}
			rk[i] = ranked{deal: out[i], dist: d}
		}
		// Stores without coordinates carry the sentinel distance, so
		// they naturally sort to the end.
		sort.SliceStable(rk, func(a, b int) bool { return rk[a].dist < rk[b].dist })
		for i := range rk {
			out[i] = rk[i].deal
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"items":     out,
		"total":     total,
		"page":      q.Page,
		"page_size": q.PageSize,
	})
}

// GetPublicDeal returns a single deal with its store, regardless of the
// viewer's sign-in state. Expired or inactive deals are still viewable
// here; only redemption is gated.
func (h *PublicHandler) GetPublicDeal(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	d, err := h.DealRepo.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrDealNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "deal not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	pd := publicDeal(d)
	if s, err := h.StoreRepo.GetByID(ctx, d.StoreID); err == nil {
		pd.StoreName = s.Name
	}
	return c.JSON(http.StatusOK, pd)
}
