package events

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated     = "OrderCreated"
	EventOrderConfirmed   = "OrderConfirmed"
	EventOrderCancelled   = "OrderCancelled"
	EventOrderRefunded    = "OrderRefunded"
	EventPaymentInbound   = "PaymentProviderEvent"
	EventStockReleased    = "StockReleased"
	EventFulfillmentMoved = "FulfillmentStatusChanged"
)

// Envelope wraps every message published to Kafka. Payload stays raw so
// consumers can decode only the event types they care about.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // usually order_id
	Payload       json.RawMessage `json:"payload"`
}
