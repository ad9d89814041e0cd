package orders

import (
	"context"
	"errors"
)

var (
	ErrNotFound            = errors.New("order not found")
	ErrFulfillmentNotFound = errors.New("fulfillment not found")
	ErrTooManyFulfilled    = errors.New("fulfillment exceeds ordered quantity")
	ErrRefundExceeded      = errors.New("refund exceeds remaining captured amount")
)

// Store is the durable order state. Every mutation is serialized per order
// (row lock in the pg implementation) and either fully applies or returns
// InvalidTransitionError with nothing changed.
type Store interface {
	GetOrder(ctx context.Context, id string) (*Order, error)

	// UpdateStatus applies a manual order-status transition. PENDING ->
	// CONFIRMED is rejected unless payment is already CAPTURED; targets
	// REFUNDED/CANCELLED have their own guards.
	UpdateStatus(ctx context.Context, id string, target Status) (*Order, error)

	// CancelOrder moves a pre-SHIPPED order to CANCELLED and releases all
	// of its ACTIVE stock reservations in the same transaction.
	CancelOrder(ctx context.Context, id string) (*Order, error)

	CreateFulfillment(ctx context.Context, orderID, locationID string, items []FulfillmentItem) (*Fulfillment, error)
	ShipFulfillment(ctx context.Context, id, trackingNum, trackingURL string) (*Order, error)
	DeliverFulfillment(ctx context.Context, id string) (*Order, error)
	CancelFulfillment(ctx context.Context, id string) (*Order, error)

	// ReturnFulfillment records that a shipped or delivered fulfillment came
	// back. Settlement happens separately through the refund flow.
	ReturnFulfillment(ctx context.Context, id string) (*Order, error)
}
