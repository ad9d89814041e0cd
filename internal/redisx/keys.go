package redisx

import "time"

const (
	// FX rate cache: rate:{from}:{to} -> decimal string
	KeyRate = "rate:%s:%s"

	// Default tax rate cache: tax:{region} -> decimal string ("" = untaxed)
	KeyTaxRate = "tax:%s"

	// Order status cache: order_status:{order_id} -> JSON of the 3 statuses
	KeyOrderStatus = "order_status:%s"

	// Webhook dedup fast path: dedup:webhook:{provider_event_id}.
	// The processed_payment_events unique constraint stays the truth;
	// this only short-circuits obvious replays before Kafka.
	KeyWebhookDedup = "dedup:webhook:%s"
)

var (
	TTLRateCache   = 5 * time.Minute
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
