package orders

import "testing"

func TestOrderTransitions(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusPending, StatusConfirmed},
		{StatusPending, StatusCancelled},
		{StatusConfirmed, StatusProcessing},
		{StatusConfirmed, StatusCancelled},
		{StatusProcessing, StatusShipped},
		{StatusShipped, StatusDelivered},
		{StatusDelivered, StatusRefunded},
		{StatusCancelled, StatusRefunded},
	}
	for _, c := range allowed {
		if !CanTransition(c.from, c.to) {
			t.Errorf("%s -> %s should be allowed", c.from, c.to)
		}
	}

	denied := []struct{ from, to Status }{
		{StatusPending, StatusShipped},
		{StatusPending, StatusProcessing},
		{StatusShipped, StatusCancelled}, // past the shipping point of no return
		{StatusDelivered, StatusCancelled},
		{StatusRefunded, StatusPending},
		{StatusCancelled, StatusConfirmed},
		{StatusDelivered, StatusShipped}, // no going back
	}
	for _, c := range denied {
		if CanTransition(c.from, c.to) {
			t.Errorf("%s -> %s should be rejected", c.from, c.to)
		}
	}
}

func TestPaymentTransitions(t *testing.T) {
	if !CanTransitionPayment(PaymentAwaiting, PaymentCaptured) {
		t.Error("AWAITING -> CAPTURED should be allowed")
	}
	if !CanTransitionPayment(PaymentAwaiting, PaymentNotPaid) {
		t.Error("AWAITING -> NOT_PAID (capture failure) should be allowed")
	}
	if !CanTransitionPayment(PaymentCaptured, PaymentPartiallyRefunded) {
		t.Error("CAPTURED -> PARTIALLY_REFUNDED should be allowed")
	}
	if !CanTransitionPayment(PaymentPartiallyRefunded, PaymentPartiallyRefunded) {
		t.Error("repeated partial refunds should be allowed")
	}
	if CanTransitionPayment(PaymentNotPaid, PaymentCaptured) {
		t.Error("capture without an awaiting intent should be rejected")
	}
	if CanTransitionPayment(PaymentRefunded, PaymentCaptured) {
		t.Error("REFUNDED is terminal")
	}
}

func TestShipmentTransitions(t *testing.T) {
	if !CanTransitionShipment(ShipmentPending, ShipmentShipped) {
		t.Error("PENDING -> SHIPPED should be allowed")
	}
	if !CanTransitionShipment(ShipmentPending, ShipmentCancelled) {
		t.Error("PENDING -> CANCELLED should be allowed")
	}
	if !CanTransitionShipment(ShipmentShipped, ShipmentReturned) {
		t.Error("SHIPPED -> RETURNED (return to sender) should be allowed")
	}
	if !CanTransitionShipment(ShipmentDelivered, ShipmentReturned) {
		t.Error("DELIVERED -> RETURNED (customer return) should be allowed")
	}
	if CanTransitionShipment(ShipmentShipped, ShipmentCancelled) {
		t.Error("a shipped fulfillment cannot be cancelled")
	}
	if CanTransitionShipment(ShipmentDelivered, ShipmentShipped) {
		t.Error("no going back from DELIVERED")
	}
	if CanTransitionShipment(ShipmentPending, ShipmentReturned) {
		t.Error("an unshipped fulfillment has nothing to return")
	}
	if CanTransitionShipment(ShipmentReturned, ShipmentShipped) {
		t.Error("RETURNED is terminal")
	}
}

func TestInvalidTransitionError(t *testing.T) {
	err := &InvalidTransitionError{Dimension: "order", From: "PENDING", To: "SHIPPED"}
	want := "invalid order transition PENDING -> SHIPPED"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}
