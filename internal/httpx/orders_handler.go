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

	"github.com/ariefcatur/go-commerce-checkout.git/internal/events"
	kafkax "github.com/ariefcatur/go-commerce-checkout.git/internal/kafka"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/orders"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/redisx"
)

type OrdersHandler struct {
	Store    orders.Store
	Producer *kafkax.Producer // order.updated
	Redis    *redis.Client
	Name     string
}

type OrderItemResp struct {
	VariantID      string `json:"variant_id"`
	SKU            string `json:"sku"`
	Title          string `json:"title"`
	Qty            int    `json:"qty"`
	UnitPriceMinor int64  `json:"unit_price_minor"`
	LineTotalMinor int64  `json:"line_total_minor"`
}

type FulfillmentResp struct {
	ID          string        `json:"id"`
	LocationID  string        `json:"location_id"`
	Status      string        `json:"status"`
	TrackingNum string        `json:"tracking_num,omitempty"`
	TrackingURL string        `json:"tracking_url,omitempty"`
	Items       []CartItemReq `json:"items"`
	CreatedAt   time.Time     `json:"created_at"`
}

type OrderResp struct {
	ID                string            `json:"id"`
	Number            int64             `json:"number"`
	Currency          string            `json:"currency"`
	Status            string            `json:"status"`
	PaymentStatus     string            `json:"payment_status"`
	FulfillmentStatus string            `json:"fulfillment_status"`
	ShippingAddress   orders.Address    `json:"shipping_address"`
	BillingAddress    orders.Address    `json:"billing_address"`
	SubtotalMinor     int64             `json:"subtotal_minor"`
	DiscountMinor     int64             `json:"discount_total_minor"`
	TaxMinor          int64             `json:"tax_total_minor"`
	ShippingMinor     int64             `json:"shipping_total_minor"`
	GrandTotalMinor   int64             `json:"grand_total_minor"`
	RefundedMinor     int64             `json:"refunded_minor"`
	Items             []OrderItemResp   `json:"items"`
	Fulfillments      []FulfillmentResp `json:"fulfillments,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

func toOrderResp(ord *orders.Order) OrderResp {
	resp := OrderResp{
		ID: ord.ID, Number: ord.Number, Currency: ord.Currency,
		Status:            string(ord.Status),
		PaymentStatus:     string(ord.PaymentStatus),
		FulfillmentStatus: string(ord.FulfillmentStatus),
		ShippingAddress:   ord.ShippingAddress,
		BillingAddress:    ord.BillingAddress,
		SubtotalMinor:     ord.SubtotalMinor,
		DiscountMinor:     ord.DiscountMinor,
		TaxMinor:          ord.TaxMinor,
		ShippingMinor:     ord.ShippingMinor,
		GrandTotalMinor:   ord.GrandTotalMinor,
		RefundedMinor:     ord.RefundedMinor,
		CreatedAt:         ord.CreatedAt,
		UpdatedAt:         ord.UpdatedAt,
	}
	for _, it := range ord.Items {
		resp.Items = append(resp.Items, OrderItemResp{
			VariantID: it.VariantID, SKU: it.SKU, Title: it.Title,
			Qty: it.Qty, UnitPriceMinor: it.UnitPriceMinor, LineTotalMinor: it.LineTotalMinor,
		})
	}
	for _, f := range ord.Fulfillments {
		fr := FulfillmentResp{
			ID: f.ID, LocationID: f.LocationID, Status: string(f.Status),
			TrackingNum: f.TrackingNum, TrackingURL: f.TrackingURL,
			CreatedAt: f.CreatedAt,
		}
		for _, fi := range f.Items {
			fr.Items = append(fr.Items, CartItemReq{VariantID: fi.VariantID, Qty: fi.Qty})
		}
		resp.Fulfillments = append(resp.Fulfillments, fr)
	}
	return resp
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Get("/orders/{id}", h.getOrder)
	r.Post("/orders/{id}/status", h.updateStatus)
	r.Post("/orders/{id}/cancel", h.cancelOrder)
	r.Post("/orders/{id}/fulfillments", h.createFulfillment)
	r.Post("/fulfillments/{id}/ship", h.shipFulfillment)
	r.Post("/fulfillments/{id}/deliver", h.deliverFulfillment)
	r.Post("/fulfillments/{id}/cancel", h.cancelFulfillment)
	r.Post("/fulfillments/{id}/return", h.returnFulfillment)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ord, err := h.Store.GetOrder(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	a := auth(r)
	if !a.staff() && ord.CustomerID != "" && ord.CustomerID != a.CustomerID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}
	writeJSON(w, http.StatusOK, toOrderResp(ord))
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	if !auth(r).staff() {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "staff only"})
		return
	}
	var req struct {
		Target string `json:"target"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ord, err := h.Store.UpdateStatus(ctx, chi.URLParam(r, "id"), orders.Status(req.Target))
	if err != nil {
		writeErr(w, err)
		return
	}
	h.publishUpdate(ctx, r, ord, "manual status change")
	writeJSON(w, http.StatusOK, toOrderResp(ord))
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	a := auth(r)
	if !a.staff() {
		ord, err := h.Store.GetOrder(ctx, chi.URLParam(r, "id"))
		if err != nil {
			writeErr(w, err)
			return
		}
		if ord.CustomerID != "" && ord.CustomerID != a.CustomerID {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
	}

	ord, err := h.Store.CancelOrder(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	h.publishUpdate(ctx, r, ord, "cancelled")
	writeJSON(w, http.StatusOK, toOrderResp(ord))
}

type CreateFulfillmentReq struct {
	LocationID string        `json:"location_id"`
	Items      []CartItemReq `json:"items"`
}

func (h *OrdersHandler) createFulfillment(w http.ResponseWriter, r *http.Request) {
	if !auth(r).staff() {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "staff only"})
		return
	}
	var req CreateFulfillmentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.LocationID == "" || len(req.Items) == 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "location_id and items are required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	items := make([]orders.FulfillmentItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, orders.FulfillmentItem{VariantID: it.VariantID, Qty: it.Qty})
	}
	f, err := h.Store.CreateFulfillment(ctx, chi.URLParam(r, "id"), req.LocationID, items)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"fulfillment_id": f.ID, "status": string(f.Status)})
}

type ShipReq struct {
	TrackingNum string `json:"tracking_num"`
	TrackingURL string `json:"tracking_url"`
}

func (h *OrdersHandler) shipFulfillment(w http.ResponseWriter, r *http.Request) {
	var req ShipReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	h.moveFulfillment(w, r, "shipped", func(ctx context.Context, id string) (*orders.Order, error) {
		return h.Store.ShipFulfillment(ctx, id, req.TrackingNum, req.TrackingURL)
	})
}

func (h *OrdersHandler) deliverFulfillment(w http.ResponseWriter, r *http.Request) {
	h.moveFulfillment(w, r, "delivered", h.Store.DeliverFulfillment)
}

func (h *OrdersHandler) cancelFulfillment(w http.ResponseWriter, r *http.Request) {
	h.moveFulfillment(w, r, "fulfillment cancelled", h.Store.CancelFulfillment)
}

func (h *OrdersHandler) returnFulfillment(w http.ResponseWriter, r *http.Request) {
	h.moveFulfillment(w, r, "returned", h.Store.ReturnFulfillment)
}

func (h *OrdersHandler) moveFulfillment(w http.ResponseWriter, r *http.Request, reason string, fn func(ctx context.Context, id string) (*orders.Order, error)) {
	if !auth(r).staff() {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "staff only"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ord, err := fn(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	h.publishUpdate(ctx, r, ord, reason)
	writeJSON(w, http.StatusOK, toOrderResp(ord))
}

// statusCacheBody is the JSON every status-cache writer stores under
// KeyOrderStatus; building it from the enum constants keeps cache readers
// and the order rows on the same vocabulary.
func statusCacheBody(s orders.Status, p orders.PaymentStatus, f orders.FulfillmentStatus) []byte {
	b, _ := json.Marshal(map[string]string{
		"status":             string(s),
		"payment_status":     string(p),
		"fulfillment_status": string(f),
	})
	return b
}

func (h *OrdersHandler) publishUpdate(ctx context.Context, r *http.Request, ord *orders.Order, reason string) {
	statusKey := fmt.Sprintf(redisx.KeyOrderStatus, ord.ID)
	b := statusCacheBody(ord.Status, ord.PaymentStatus, ord.FulfillmentStatus)
	_ = h.Redis.Set(ctx, statusKey, b, redisx.TTLStatusCache).Err()

	ev := events.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventTypeFor(ord.Status),
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Name,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: ord.ID,
	}
	ev.Payload = kafkax.MustMarshal(events.OrderUpdatedPayload{
		OrderID:           ord.ID,
		OrderStatus:       string(ord.Status),
		PaymentStatus:     string(ord.PaymentStatus),
		FulfillmentStatus: string(ord.FulfillmentStatus),
		Reason:            reason,
	})
	h.Producer.Publish(events.PartitionKey(ord.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(ev.EventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func eventTypeFor(s orders.Status) string {
	switch s {
	case orders.StatusCancelled:
		return events.EventOrderCancelled
	case orders.StatusRefunded:
		return events.EventOrderRefunded
	case orders.StatusConfirmed:
		return events.EventOrderConfirmed
	default:
		return events.EventFulfillmentMoved
	}
}
