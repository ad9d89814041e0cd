package memstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ariefcatur/go-commerce-checkout.git/internal/cart"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/memstore"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/orders"
)

// createOrder walks an order through cart creation and checkout persistence,
// leaving it PENDING / AWAITING with an active reservation.
func createOrder(t *testing.T, st *memstore.Store, qty int) *orders.Order {
	t.Helper()
	ctx := context.Background()

	c := &cart.Cart{ID: uuid.NewString(), Region: "us-ca", Currency: "USD"}
	if err := st.CreateCart(ctx, c); err != nil {
		t.Fatalf("create cart: %v", err)
	}
	if err := st.SetItemQty(ctx, c.ID, "v1", qty); err != nil {
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
			Qty: qty, UnitPriceMinor: 1000, LineTotalMinor: 1000 * int64(qty),
		}},
		SubtotalMinor:     1000 * int64(qty),
		GrandTotalMinor:   1080 * int64(qty),
		TaxMinor:          80 * int64(qty),
		Status:            orders.StatusPending,
		PaymentStatus:     orders.PaymentAwaiting,
		FulfillmentStatus: orders.FulfillmentNotFulfilled,
	}
	if _, err := st.Reserve(ctx, "v1", "main", qty, ord.ID, time.Minute); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := st.CreateFromCheckout(ctx, ord); err != nil {
		t.Fatalf("create order: %v", err)
	}
	return ord
}

func capture(t *testing.T, st *memstore.Store, orderID string) {
	t.Helper()
	if _, err := st.ApplyCaptureSucceeded(context.Background(), uuid.NewString(), orderID); err != nil {
		t.Fatalf("capture: %v", err)
	}
}

func TestCreateFromCheckoutCompletesCart(t *testing.T) {
	st := memstore.New()
	st.SeedLevel("v1", "main", 10)
	ord := createOrder(t, st, 2)

	got, err := st.GetOrder(context.Background(), ord.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Number < 1000 {
		t.Errorf("order number %d not assigned from sequence", got.Number)
	}
	if got.PaymentStatus != orders.PaymentAwaiting {
		t.Errorf("payment = %s, want AWAITING", got.PaymentStatus)
	}

	c, err := st.GetCart(context.Background(), ord.CartID)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if !c.Completed() {
		t.Error("cart should be completed after checkout")
	}
	// a completed cart rejects further mutation
	if err := st.SetItemQty(context.Background(), c.ID, "v1", 5); !errors.Is(err, cart.ErrCompleted) {
		t.Errorf("mutating completed cart: got %v, want ErrCompleted", err)
	}
}

func TestManualConfirmRequiresCapture(t *testing.T) {
	st := memstore.New()
	st.SeedLevel("v1", "main", 10)
	ord := createOrder(t, st, 1)

	_, err := st.UpdateStatus(context.Background(), ord.ID, orders.StatusConfirmed)
	var transition *orders.InvalidTransitionError
	if !errors.As(err, &transition) {
		t.Fatalf("confirm before capture: got %v, want InvalidTransitionError", err)
	}

	capture(t, st, ord.ID)
	got, err := st.GetOrder(context.Background(), ord.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != orders.StatusConfirmed || got.PaymentStatus != orders.PaymentCaptured {
		t.Fatalf("after capture: %s / %s", got.Status, got.PaymentStatus)
	}
}

func TestCancelReleasesReservations(t *testing.T) {
	st := memstore.New()
	st.SeedLevel("v1", "main", 10)
	ord := createOrder(t, st, 3)

	got, err := st.CancelOrder(context.Background(), ord.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != orders.StatusCancelled {
		t.Fatalf("status = %s, want CANCELLED", got.Status)
	}
	if sum := st.ActiveReservedSum("v1", "main"); sum != 0 {
		t.Fatalf("active reservations after cancel: %d", sum)
	}
}

func TestFulfillmentLifecycle(t *testing.T) {
	st := memstore.New()
	st.SeedLevel("v1", "main", 10)
	ctx := context.Background()
	ord := createOrder(t, st, 2)
	capture(t, st, ord.ID)

	// over-fulfilling is rejected up front
	_, err := st.CreateFulfillment(ctx, ord.ID, "main", []orders.FulfillmentItem{{VariantID: "v1", Qty: 3}})
	if !errors.Is(err, orders.ErrTooManyFulfilled) {
		t.Fatalf("over-fulfill: got %v, want ErrTooManyFulfilled", err)
	}

	f1, err := st.CreateFulfillment(ctx, ord.ID, "main", []orders.FulfillmentItem{{VariantID: "v1", Qty: 1}})
	if err != nil {
		t.Fatalf("fulfillment 1: %v", err)
	}
	got, _ := st.GetOrder(ctx, ord.ID)
	if got.FulfillmentStatus != orders.FulfillmentPartiallyFulfilled {
		t.Fatalf("after partial: %s", got.FulfillmentStatus)
	}
	if got.Status != orders.StatusProcessing {
		t.Fatalf("order should move to PROCESSING, got %s", got.Status)
	}

	f2, err := st.CreateFulfillment(ctx, ord.ID, "main", []orders.FulfillmentItem{{VariantID: "v1", Qty: 1}})
	if err != nil {
		t.Fatalf("fulfillment 2: %v", err)
	}

	if _, err := st.ShipFulfillment(ctx, f1.ID, "TRK1", ""); err != nil {
		t.Fatalf("ship 1: %v", err)
	}
	got, _ = st.GetOrder(ctx, ord.ID)
	if got.FulfillmentStatus != orders.FulfillmentFulfilled {
		t.Fatalf("one shipped, one pending: %s", got.FulfillmentStatus)
	}

	if _, err := st.ShipFulfillment(ctx, f2.ID, "TRK2", ""); err != nil {
		t.Fatalf("ship 2: %v", err)
	}
	got, _ = st.GetOrder(ctx, ord.ID)
	if got.FulfillmentStatus != orders.FulfillmentShipped || got.Status != orders.StatusShipped {
		t.Fatalf("all shipped: %s / %s", got.FulfillmentStatus, got.Status)
	}

	// shipped fulfillments cannot be cancelled
	var transition *orders.InvalidTransitionError
	if _, err := st.CancelFulfillment(ctx, f1.ID); !errors.As(err, &transition) {
		t.Fatalf("cancel shipped: got %v", err)
	}

	if _, err := st.DeliverFulfillment(ctx, f1.ID); err != nil {
		t.Fatalf("deliver 1: %v", err)
	}
	if _, err := st.DeliverFulfillment(ctx, f2.ID); err != nil {
		t.Fatalf("deliver 2: %v", err)
	}
	got, _ = st.GetOrder(ctx, ord.ID)
	if got.FulfillmentStatus != orders.FulfillmentDelivered || got.Status != orders.StatusDelivered {
		t.Fatalf("all delivered: %s / %s", got.FulfillmentStatus, got.Status)
	}
}

func TestCancelledFulfillmentFreesQuantity(t *testing.T) {
	st := memstore.New()
	st.SeedLevel("v1", "main", 10)
	ctx := context.Background()
	ord := createOrder(t, st, 1)
	capture(t, st, ord.ID)

	f, err := st.CreateFulfillment(ctx, ord.ID, "main", []orders.FulfillmentItem{{VariantID: "v1", Qty: 1}})
	if err != nil {
		t.Fatalf("fulfillment: %v", err)
	}
	// all quantity is spoken for
	if _, err := st.CreateFulfillment(ctx, ord.ID, "main", []orders.FulfillmentItem{{VariantID: "v1", Qty: 1}}); !errors.Is(err, orders.ErrTooManyFulfilled) {
		t.Fatalf("second fulfillment: got %v", err)
	}

	if _, err := st.CancelFulfillment(ctx, f.ID); err != nil {
		t.Fatalf("cancel fulfillment: %v", err)
	}
	// cancelled fulfillment's quantity is available again
	if _, err := st.CreateFulfillment(ctx, ord.ID, "main", []orders.FulfillmentItem{{VariantID: "v1", Qty: 1}}); err != nil {
		t.Fatalf("refulfill after cancel: %v", err)
	}
}

func TestReturnFlow(t *testing.T) {
	st := memstore.New()
	st.SeedLevel("v1", "main", 10)
	ctx := context.Background()
	ord := createOrder(t, st, 2)
	capture(t, st, ord.ID)

	f, err := st.CreateFulfillment(ctx, ord.ID, "main", []orders.FulfillmentItem{{VariantID: "v1", Qty: 2}})
	if err != nil {
		t.Fatalf("fulfillment: %v", err)
	}

	// nothing has shipped yet, so there is nothing to return
	var transition *orders.InvalidTransitionError
	if _, err := st.ReturnFulfillment(ctx, f.ID); !errors.As(err, &transition) {
		t.Fatalf("return before shipping: got %v", err)
	}

	if _, err := st.ShipFulfillment(ctx, f.ID, "TRK1", ""); err != nil {
		t.Fatalf("ship: %v", err)
	}
	if _, err := st.DeliverFulfillment(ctx, f.ID); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	got, err := st.ReturnFulfillment(ctx, f.ID)
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if got.FulfillmentStatus != orders.FulfillmentReturned {
		t.Fatalf("fulfillment status = %s, want RETURNED", got.FulfillmentStatus)
	}
	// the money side settles through the refund flow, not the return itself
	if got.Status != orders.StatusDelivered {
		t.Fatalf("order status = %s, want DELIVERED", got.Status)
	}
}

func TestFulfillmentOnCancelledOrder(t *testing.T) {
	st := memstore.New()
	st.SeedLevel("v1", "main", 10)
	ctx := context.Background()
	ord := createOrder(t, st, 1)

	if _, err := st.CancelOrder(ctx, ord.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	var transition *orders.InvalidTransitionError
	if _, err := st.CreateFulfillment(ctx, ord.ID, "main", []orders.FulfillmentItem{{VariantID: "v1", Qty: 1}}); !errors.As(err, &transition) {
		t.Fatalf("fulfillment on cancelled order: got %v", err)
	}
}
