package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ariefcatur/go-commerce-checkout.git/internal/cart"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/checkout"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/inventory"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/orders"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/payments"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/pricing"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/promo"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps domain errors onto status codes: missing resources 404,
// state conflicts 409, semantic rejections 422, provider outage 502.
func writeErr(w http.ResponseWriter, err error) {
	var stock *inventory.InsufficientStockError
	var transition *orders.InvalidTransitionError
	var promoInvalid *checkout.PromotionInvalidError

	switch {
	case errors.Is(err, cart.ErrNotFound),
		errors.Is(err, orders.ErrNotFound),
		errors.Is(err, orders.ErrFulfillmentNotFound),
		errors.Is(err, promo.ErrNotFound),
		errors.Is(err, pricing.ErrVariantNotFound),
		errors.Is(err, pricing.ErrShippingNotFound),
		errors.Is(err, inventory.ErrLevelNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})

	case errors.As(err, &stock),
		errors.As(err, &transition),
		errors.As(err, &promoInvalid),
		errors.Is(err, cart.ErrCompleted),
		errors.Is(err, promo.ErrLimitExceeded),
		errors.Is(err, orders.ErrTooManyFulfilled):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})

	case errors.Is(err, checkout.ErrEmptyCart):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})

	case errors.Is(err, payments.ErrProvider):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})

	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
