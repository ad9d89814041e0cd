package payments

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-commerce-checkout.git/internal/inventory"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/orders"
)

// Repo is the Postgres Applier. The processed-event insert and every side
// effect share one transaction, so a crash between them cannot lose an
// event: either the whole application happened or the redelivery will retry
// it from scratch.
type Repo struct{ DB *pgxpool.Pool }

// markProcessed claims the event ID inside tx. false = already processed.
func markProcessed(ctx context.Context, tx pgx.Tx, eventID string) (bool, error) {
	ct, err := tx.Exec(ctx, `
		INSERT INTO processed_payment_events(event_id, processed_at)
		VALUES ($1, now())
		ON CONFLICT (event_id) DO NOTHING`, eventID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *Repo) ApplyCaptureSucceeded(ctx context.Context, eventID, orderID string) (*orders.Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	fresh, err := markProcessed(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}
	if !fresh {
		return nil, nil
	}

	ord, err := orders.ScanOrderInTx(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if !orders.CanTransitionPayment(ord.PaymentStatus, orders.PaymentCaptured) {
		return nil, &orders.InvalidTransitionError{
			Dimension: "payment", From: string(ord.PaymentStatus), To: string(orders.PaymentCaptured),
		}
	}
	ord.PaymentStatus = orders.PaymentCaptured
	// capture confirms the order; not reachable by hand before this
	if orders.CanTransition(ord.Status, orders.StatusConfirmed) {
		ord.Status = orders.StatusConfirmed
	}

	// capture is what permanently removes the reserved stock
	if err := inventory.CommitOrderInTx(ctx, tx, orderID); err != nil {
		return nil, err
	}
	if err := orders.SetStatusesInTx(ctx, tx, ord.ID, ord.Status, ord.PaymentStatus, ord.FulfillmentStatus); err != nil {
		return nil, err
	}
	return ord, tx.Commit(ctx)
}

func (r *Repo) ApplyCaptureFailed(ctx context.Context, eventID, orderID, reason string) (*orders.Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	fresh, err := markProcessed(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}
	if !fresh {
		return nil, nil
	}

	ord, err := orders.ScanOrderInTx(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if !orders.CanTransition(ord.Status, orders.StatusCancelled) {
		return nil, &orders.InvalidTransitionError{
			Dimension: "order", From: string(ord.Status), To: string(orders.StatusCancelled),
		}
	}
	ord.Status = orders.StatusCancelled
	if orders.CanTransitionPayment(ord.PaymentStatus, orders.PaymentNotPaid) {
		ord.PaymentStatus = orders.PaymentNotPaid
	}

	if _, err := inventory.ReleaseOrderInTx(ctx, tx, orderID); err != nil {
		return nil, err
	}
	if err := orders.SetStatusesInTx(ctx, tx, ord.ID, ord.Status, ord.PaymentStatus, ord.FulfillmentStatus); err != nil {
		return nil, err
	}
	return ord, tx.Commit(ctx)
}

// ApplyRefund advances the payment dimension and, once the refunded amount
// covers the grand total, moves the order itself to REFUNDED. amountMinor 0
// means a full refund.
func (r *Repo) ApplyRefund(ctx context.Context, eventID, orderID string, amountMinor int64) (*orders.Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	fresh, err := markProcessed(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}
	if !fresh {
		return nil, nil
	}

	ord, err := orders.ScanOrderInTx(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	remaining := ord.GrandTotalMinor - ord.RefundedMinor
	if amountMinor <= 0 {
		amountMinor = remaining
	} else if amountMinor > remaining {
		return nil, orders.ErrRefundExceeded
	}
	target := orders.PaymentPartiallyRefunded
	if ord.RefundedMinor+amountMinor >= ord.GrandTotalMinor {
		target = orders.PaymentRefunded
	}
	if !orders.CanTransitionPayment(ord.PaymentStatus, target) {
		return nil, &orders.InvalidTransitionError{
			Dimension: "payment", From: string(ord.PaymentStatus), To: string(target),
		}
	}
	ord.PaymentStatus = target
	ord.RefundedMinor += amountMinor
	if target == orders.PaymentRefunded && orders.CanTransition(ord.Status, orders.StatusRefunded) {
		ord.Status = orders.StatusRefunded
	}

	if _, err := tx.Exec(ctx, `
		UPDATE orders SET refunded_minor=$2 WHERE id=$1`, ord.ID, ord.RefundedMinor); err != nil {
		return nil, err
	}
	if err := orders.SetStatusesInTx(ctx, tx, ord.ID, ord.Status, ord.PaymentStatus, ord.FulfillmentStatus); err != nil {
		return nil, err
	}
	return ord, tx.Commit(ctx)
}
