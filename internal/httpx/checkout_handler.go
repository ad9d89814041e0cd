package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-commerce-checkout.git/internal/checkout"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/events"
	kafkax "github.com/ariefcatur/go-commerce-checkout.git/internal/kafka"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/orders"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/redisx"
)

type CheckoutHandler struct {
	Service  *checkout.Service
	Producer *kafkax.Producer
	Redis    *redis.Client
	Name     string
}

type CheckoutReq struct {
	CartID           string          `json:"cart_id"`
	ShippingAddress  orders.Address  `json:"shipping_address"`
	BillingAddress   *orders.Address `json:"billing_address,omitempty"`
	ShippingMethodID string          `json:"shipping_method_id,omitempty"`
}

func (h *CheckoutHandler) Register(r *chi.Mux) {
	r.Post("/checkout", h.startCheckout)
}

func (h *CheckoutHandler) startCheckout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.CartID == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "cart_id is required"})
		return
	}
	if req.ShippingAddress.Line1 == "" || req.ShippingAddress.Country == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "shipping_address incomplete"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	a := auth(r)
	res, err := h.Service.Start(ctx, checkout.Input{
		CartID:           req.CartID,
		CustomerID:       a.CustomerID,
		CustomerGroup:    r.Header.Get("X-Customer-Group"),
		ShippingAddress:  req.ShippingAddress,
		BillingAddress:   req.BillingAddress,
		ShippingMethodID: req.ShippingMethodID,
	})
	if err != nil {
		writeErr(w, err)
		return
	}

	statusKey := fmt.Sprintf(redisx.KeyOrderStatus, res.OrderID)
	_ = h.Redis.Set(ctx, statusKey,
		statusCacheBody(orders.StatusPending, orders.PaymentAwaiting, orders.FulfillmentNotFulfilled),
		redisx.TTLStatusCache).Err()

	ev := events.Envelope{
		EventID:       uuid.NewString(),
		EventType:     events.EventOrderCreated,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Name,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: res.OrderID,
	}
	ev.Payload = kafkax.MustMarshal(events.OrderCreatedPayload{
		OrderID:       res.OrderID,
		OrderNumber:   res.OrderNumber,
		CartID:        req.CartID,
		CustomerID:    a.CustomerID,
		Currency:      res.Totals.Currency,
		GrandTotal:    res.Totals.GrandTotal,
		PaymentIntent: res.PaymentIntentRef,
	})
	h.Producer.Publish(events.PartitionKey(res.OrderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(events.EventOrderCreated)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)

	writeJSON(w, http.StatusCreated, res)
}
