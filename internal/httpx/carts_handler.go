package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ariefcatur/go-commerce-checkout.git/internal/cart"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/pricing"
)

type CartsHandler struct {
	Store cart.Store
	Calc  *pricing.Calculator
}

type CreateCartReq struct {
	Region   string `json:"region"`
	Currency string `json:"currency"`
}

type CartItemReq struct {
	VariantID string `json:"variant_id"`
	Qty       int    `json:"qty"`
}

type CartResp struct {
	ID               string          `json:"id"`
	Region           string          `json:"region"`
	Currency         string          `json:"currency"`
	PromoCode        string          `json:"promo_code,omitempty"`
	ShippingMethodID string          `json:"shipping_method_id,omitempty"`
	Completed        bool            `json:"completed"`
	Totals           *pricing.Totals `json:"totals"`
}

func (h *CartsHandler) Register(r *chi.Mux) {
	r.Post("/carts", h.createCart)
	r.Get("/carts/{id}", h.getCart)
	r.Post("/carts/{id}/items", h.setItem)
	r.Delete("/carts/{id}/items/{variantID}", h.removeItem)
	r.Post("/carts/{id}/promotions", h.setPromotion)
	r.Post("/carts/{id}/shipping-method", h.setShippingMethod)
}

func (h *CartsHandler) createCart(w http.ResponseWriter, r *http.Request) {
	var req CreateCartReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Region == "" || req.Currency == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "region and currency are required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	c := &cart.Cart{
		ID:         uuid.NewString(),
		CustomerID: auth(r).CustomerID,
		Region:     req.Region,
		Currency:   req.Currency,
	}
	if err := h.Store.CreateCart(ctx, c); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CartResp{
		ID: c.ID, Region: c.Region, Currency: c.Currency,
		Totals: &pricing.Totals{Currency: c.Currency},
	})
}

// getCart reprices on every read: stored carts hold quantities only, so the
// response always reflects current catalog prices and promotion state.
func (h *CartsHandler) getCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	c, err := h.Store.GetCart(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	totals, err := h.price(ctx, r, c)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CartResp{
		ID: c.ID, Region: c.Region, Currency: c.Currency,
		PromoCode: c.PromoCode, ShippingMethodID: c.ShippingMethodID,
		Completed: c.Completed(), Totals: totals,
	})
}

func (h *CartsHandler) setItem(w http.ResponseWriter, r *http.Request) {
	var req CartItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.VariantID == "" || req.Qty < 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "variant_id required, qty must be >= 0"})
		return
	}
	h.mutate(w, r, func(ctx context.Context, cartID string) error {
		return h.Store.SetItemQty(ctx, cartID, req.VariantID, req.Qty)
	})
}

func (h *CartsHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	variantID := chi.URLParam(r, "variantID")
	h.mutate(w, r, func(ctx context.Context, cartID string) error {
		return h.Store.SetItemQty(ctx, cartID, variantID, 0)
	})
}

func (h *CartsHandler) setPromotion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	h.mutate(w, r, func(ctx context.Context, cartID string) error {
		return h.Store.SetPromoCode(ctx, cartID, req.Code)
	})
}

func (h *CartsHandler) setShippingMethod(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MethodID string `json:"method_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	h.mutate(w, r, func(ctx context.Context, cartID string) error {
		return h.Store.SetShippingMethod(ctx, cartID, req.MethodID)
	})
}

// mutate applies one cart change, then returns the repriced cart.
func (h *CartsHandler) mutate(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, cartID string) error) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	cartID := chi.URLParam(r, "id")
	if err := fn(ctx, cartID); err != nil {
		writeErr(w, err)
		return
	}
	c, err := h.Store.GetCart(ctx, cartID)
	if err != nil {
		writeErr(w, err)
		return
	}
	totals, err := h.price(ctx, r, c)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CartResp{
		ID: c.ID, Region: c.Region, Currency: c.Currency,
		PromoCode: c.PromoCode, ShippingMethodID: c.ShippingMethodID,
		Completed: c.Completed(), Totals: totals,
	})
}

func (h *CartsHandler) price(ctx context.Context, r *http.Request, c *cart.Cart) (*pricing.Totals, error) {
	lines := make([]pricing.Line, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, pricing.Line{VariantID: it.VariantID, Qty: it.Qty})
	}
	return h.Calc.Price(ctx, pricing.Input{
		Region:           c.Region,
		Currency:         c.Currency,
		CustomerID:       auth(r).CustomerID,
		CustomerGroup:    r.Header.Get("X-Customer-Group"),
		PromoCode:        c.PromoCode,
		ShippingMethodID: c.ShippingMethodID,
		Lines:            lines,
	})
}
