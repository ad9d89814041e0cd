package payments

import (
	"context"
	"fmt"
	"log"

	"github.com/ariefcatur/go-commerce-checkout.git/internal/events"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/orders"
)

// Applier is the durable side of event processing. Each method records the
// provider event ID and applies its side effects in one transaction, then
// returns the updated order. A nil order means the ID was processed before
// and nothing changed.
type Applier interface {
	ApplyCaptureSucceeded(ctx context.Context, eventID, orderID string) (*orders.Order, error)
	ApplyCaptureFailed(ctx context.Context, eventID, orderID, reason string) (*orders.Order, error)
	ApplyRefund(ctx context.Context, eventID, orderID string, amountMinor int64) (*orders.Order, error)
}

// Processor turns verified provider events into order state. Replays of an
// already-processed event ID succeed silently with no side effects; the
// provider's at-least-once redelivery plus that guard gives effective
// exactly-once processing.
type Processor struct {
	Store Applier
}

// Process applies one event. The returned order is nil for an idempotent
// replay.
func (p *Processor) Process(ctx context.Context, ev *events.ProviderEvent) (*orders.Order, error) {
	var ord *orders.Order
	var err error
	switch ev.Kind {
	case events.KindCaptureSucceeded:
		ord, err = p.Store.ApplyCaptureSucceeded(ctx, ev.ID, ev.OrderID)
	case events.KindCaptureFailed:
		ord, err = p.Store.ApplyCaptureFailed(ctx, ev.ID, ev.OrderID, ev.Reason)
	case events.KindRefundIssued:
		ord, err = p.Store.ApplyRefund(ctx, ev.ID, ev.OrderID, ev.AmountMinor)
	default:
		return nil, fmt.Errorf("unknown provider event kind %q", ev.Kind)
	}
	if err != nil {
		return nil, err
	}
	if ord == nil {
		log.Printf("payment event %s already processed, skipping", ev.ID)
	}
	return ord, nil
}
