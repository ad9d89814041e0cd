package payments_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ariefcatur/go-commerce-checkout.git/internal/cart"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/events"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/memstore"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/orders"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/payments"
)

// pendingOrder persists an AWAITING order with a 2160-minor grand total and
// an active 2-unit reservation, the state right after checkout.
func pendingOrder(t *testing.T, st *memstore.Store) *orders.Order {
	t.Helper()
	ctx := context.Background()
	st.SeedLevel("v1", "main", 10)

	c := &cart.Cart{ID: uuid.NewString(), Region: "us-ca", Currency: "USD"}
	if err := st.CreateCart(ctx, c); err != nil {
		t.Fatalf("create cart: %v", err)
	}
	if err := st.SetItemQty(ctx, c.ID, "v1", 2); err != nil {
		t.Fatalf("set item: %v", err)
	}

	ord := &orders.Order{
		ID:               uuid.NewString(),
		CartID:           c.ID,
		Region:           "us-ca",
		Currency:         "USD",
		PaymentIntentRef: "pi_test",
		Items: []orders.OrderItem{{
			VariantID: "v1", SKU: "TEE", Title: "Tee",
			Qty: 2, UnitPriceMinor: 1000, LineTotalMinor: 2000,
		}},
		SubtotalMinor:     2000,
		TaxMinor:          160,
		GrandTotalMinor:   2160,
		Status:            orders.StatusPending,
		PaymentStatus:     orders.PaymentAwaiting,
		FulfillmentStatus: orders.FulfillmentNotFulfilled,
	}
	if _, err := st.Reserve(ctx, "v1", "main", 2, ord.ID, time.Minute); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := st.CreateFromCheckout(ctx, ord); err != nil {
		t.Fatalf("create order: %v", err)
	}
	return ord
}

func event(kind, orderID string, amount int64) *events.ProviderEvent {
	return &events.ProviderEvent{
		ID: uuid.NewString(), Kind: kind, OrderID: orderID,
		IntentRef: "pi_test", AmountMinor: amount, Currency: "USD",
		OccurredAt: time.Now().UTC(),
	}
}

func TestCaptureSucceededConfirmsAndCommitsStock(t *testing.T) {
	st := memstore.New()
	ord := pendingOrder(t, st)
	proc := &payments.Processor{Store: st}

	got, err := proc.Process(context.Background(), event(events.KindCaptureSucceeded, ord.ID, 2160))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if got.Status != orders.StatusConfirmed || got.PaymentStatus != orders.PaymentCaptured {
		t.Fatalf("order %s / %s, want CONFIRMED / CAPTURED", got.Status, got.PaymentStatus)
	}

	ls, _ := st.Levels(context.Background(), "v1")
	if ls[0].OnHand != 8 || ls[0].Reserved != 0 {
		t.Fatalf("stock after capture: %+v", ls[0])
	}
}

func TestDuplicateDeliveryIsIdempotent(t *testing.T) {
	st := memstore.New()
	ord := pendingOrder(t, st)
	proc := &payments.Processor{Store: st}
	ev := event(events.KindCaptureSucceeded, ord.ID, 2160)

	if _, err := proc.Process(context.Background(), ev); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	got, err := proc.Process(context.Background(), ev)
	if err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if got != nil {
		t.Fatal("replay must return a nil order")
	}
	if !st.Processed(ev.ID) {
		t.Fatal("event should be recorded as processed")
	}

	// stock was only committed once
	ls, _ := st.Levels(context.Background(), "v1")
	if ls[0].OnHand != 8 || ls[0].Reserved != 0 {
		t.Fatalf("stock after replay: %+v", ls[0])
	}
}

func TestCaptureFailedCancelsAndReleases(t *testing.T) {
	st := memstore.New()
	ord := pendingOrder(t, st)
	proc := &payments.Processor{Store: st}

	ev := event(events.KindCaptureFailed, ord.ID, 0)
	ev.Reason = "card_declined"
	got, err := proc.Process(context.Background(), ev)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if got.Status != orders.StatusCancelled || got.PaymentStatus != orders.PaymentNotPaid {
		t.Fatalf("order %s / %s, want CANCELLED / NOT_PAID", got.Status, got.PaymentStatus)
	}

	// reservations released, stock back to fully available
	ls, _ := st.Levels(context.Background(), "v1")
	if ls[0].OnHand != 10 || ls[0].Reserved != 0 {
		t.Fatalf("stock after failure: %+v", ls[0])
	}
	if sum := st.ActiveReservedSum("v1", "main"); sum != 0 {
		t.Fatalf("active reservations remain: %d", sum)
	}
}

func TestRefundPartialThenFull(t *testing.T) {
	st := memstore.New()
	ord := pendingOrder(t, st)
	proc := &payments.Processor{Store: st}
	ctx := context.Background()

	if _, err := proc.Process(ctx, event(events.KindCaptureSucceeded, ord.ID, 2160)); err != nil {
		t.Fatalf("capture: %v", err)
	}

	got, err := proc.Process(ctx, event(events.KindRefundIssued, ord.ID, 500))
	if err != nil {
		t.Fatalf("partial refund: %v", err)
	}
	if got.PaymentStatus != orders.PaymentPartiallyRefunded || got.RefundedMinor != 500 {
		t.Fatalf("after partial: %s, refunded %d", got.PaymentStatus, got.RefundedMinor)
	}
	if got.Status != orders.StatusConfirmed {
		t.Fatalf("partial refund must not change order status, got %s", got.Status)
	}

	// amount 0 refunds the remainder
	got, err = proc.Process(ctx, event(events.KindRefundIssued, ord.ID, 0))
	if err != nil {
		t.Fatalf("full refund: %v", err)
	}
	if got.PaymentStatus != orders.PaymentRefunded || got.RefundedMinor != 2160 {
		t.Fatalf("after full: %s, refunded %d", got.PaymentStatus, got.RefundedMinor)
	}
	if got.Status != orders.StatusRefunded {
		t.Fatalf("fully refunded order should be REFUNDED, got %s", got.Status)
	}
}

func TestRefundBeyondRemainingRejected(t *testing.T) {
	st := memstore.New()
	ord := pendingOrder(t, st)
	proc := &payments.Processor{Store: st}
	ctx := context.Background()

	if _, err := proc.Process(ctx, event(events.KindCaptureSucceeded, ord.ID, 2160)); err != nil {
		t.Fatalf("capture: %v", err)
	}
	if _, err := proc.Process(ctx, event(events.KindRefundIssued, ord.ID, 500)); err != nil {
		t.Fatalf("partial refund: %v", err)
	}

	// 1660 remains captured; refunding more must not go through
	ev := event(events.KindRefundIssued, ord.ID, 2000)
	if _, err := proc.Process(ctx, ev); !errors.Is(err, orders.ErrRefundExceeded) {
		t.Fatalf("got %v, want ErrRefundExceeded", err)
	}
	if st.Processed(ev.ID) {
		t.Error("rejected refund must not be marked processed")
	}

	got, err := st.GetOrder(ctx, ord.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.RefundedMinor != 500 || got.PaymentStatus != orders.PaymentPartiallyRefunded {
		t.Fatalf("state changed by rejected refund: %s, refunded %d", got.PaymentStatus, got.RefundedMinor)
	}
}

func TestRefundBeforeCaptureRejected(t *testing.T) {
	st := memstore.New()
	ord := pendingOrder(t, st)
	proc := &payments.Processor{Store: st}

	_, err := proc.Process(context.Background(), event(events.KindRefundIssued, ord.ID, 500))
	var transition *orders.InvalidTransitionError
	if !errors.As(err, &transition) {
		t.Fatalf("got %v, want InvalidTransitionError", err)
	}
}

func TestUnknownKindRejected(t *testing.T) {
	st := memstore.New()
	ord := pendingOrder(t, st)
	proc := &payments.Processor{Store: st}

	if _, err := proc.Process(context.Background(), event("charge.disputed", ord.ID, 0)); err == nil {
		t.Fatal("unknown kind must fail")
	}
}
