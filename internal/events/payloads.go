package events

import "time"

// Provider event kinds as they arrive on the payment webhook.
const (
	KindCaptureSucceeded = "capture.succeeded"
	KindCaptureFailed    = "capture.failed"
	KindRefundIssued     = "refund.issued"
)

// ProviderEvent is the payload of TopicPaymentEvents: a webhook event that
// already passed signature verification. ID is the provider's unique event
// ID and is the idempotency key downstream.
type ProviderEvent struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	OrderID     string    `json:"order_id"`
	IntentRef   string    `json:"intent_ref,omitempty"`
	AmountMinor int64     `json:"amount_minor,omitempty"`
	Currency    string    `json:"currency,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type OrderCreatedPayload struct {
	OrderID       string `json:"order_id"`
	OrderNumber   int64  `json:"order_number"`
	CartID        string `json:"cart_id"`
	CustomerID    string `json:"customer_id,omitempty"`
	Currency      string `json:"currency"`
	GrandTotal    int64  `json:"grand_total_minor"`
	PaymentIntent string `json:"payment_intent_ref"`
}

type OrderUpdatedPayload struct {
	OrderID           string `json:"order_id"`
	OrderStatus       string `json:"order_status"`
	PaymentStatus     string `json:"payment_status"`
	FulfillmentStatus string `json:"fulfillment_status"`
	Reason            string `json:"reason,omitempty"`
}
