package httpx

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-commerce-checkout.git/internal/events"
	kafkax "github.com/ariefcatur/go-commerce-checkout.git/internal/kafka"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/payments"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/redisx"
)

// EventPublisher is the durable hand-off for inbound provider events.
type EventPublisher interface {
	PublishSync(ctx context.Context, key, value []byte, headers ...kafkago.Header) error
}

// WebhookHandler accepts provider callbacks, verifies the signature on the
// raw body, and hands the event to Kafka before acknowledging: a broker
// failure surfaces as 502 so the provider redelivers. Applying the event to
// the order happens in the worker.
type WebhookHandler struct {
	Secret   string
	Producer EventPublisher // payment.events
	Redis    *redis.Client  // optional replay filter
	Name     string
}

var _ EventPublisher = (*kafkax.Producer)(nil)

func (h *WebhookHandler) Register(r *chi.Mux) {
	r.Post("/webhooks/payment", h.handle)
}

func (h *WebhookHandler) handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read body"})
		return
	}

	ev, err := payments.ConstructEvent(body, r.Header.Get("X-Signature"), h.Secret)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	// fast-path replay filter; the processed_payment_events constraint in the
	// worker remains the source of truth
	dedupKey := fmt.Sprintf(redisx.KeyWebhookDedup, ev.ID)
	if h.Redis != nil {
		if ok, _ := redisx.Exists(r.Context(), h.Redis, dedupKey); ok {
			writeJSON(w, http.StatusOK, map[string]string{"status": "already processed"})
			return
		}
	}

	env := events.Envelope{
		EventID:       uuid.NewString(),
		EventType:     events.EventPaymentInbound,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Name,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: ev.OrderID,
	}
	env.Payload = kafkax.MustMarshal(ev)
	err = h.Producer.PublishSync(r.Context(), events.PartitionKey(ev.OrderID), kafkax.MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(events.EventPaymentInbound)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
	if err != nil {
		log.Printf("webhook %s: publish: %v", ev.ID, err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "event not accepted"})
		return
	}

	// only after the write: a dedup mark for an event that never reached the
	// broker would swallow the provider's retry
	if h.Redis != nil {
		_ = h.Redis.Set(r.Context(), dedupKey, "1", redisx.TTLDedup).Err()
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
