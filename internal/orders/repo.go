package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-commerce-checkout.git/internal/inventory"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/promo"
)

type Repo struct{ DB *pgxpool.Pool }

// CreateFromCheckout materializes an order from a priced, reserved cart
// snapshot. Order + items insert, promotion redemption, and cart completion
// commit in one transaction; a lost promotion race surfaces as
// promo.ErrLimitExceeded with nothing persisted.
func (r *Repo) CreateFromCheckout(ctx context.Context, ord *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ship, err := json.Marshal(ord.ShippingAddress)
	if err != nil {
		return err
	}
	bill, err := json.Marshal(ord.BillingAddress)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	ord.CreatedAt, ord.UpdatedAt = now, now
	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, cart_id, customer_id, region, currency,
			shipping_address, billing_address, promotion_id, payment_intent_ref,
			subtotal_minor, discount_minor, tax_minor, shipping_minor,
			grand_total_minor, refunded_minor,
			status, payment_status, fulfillment_status, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3,''), $4, $5, $6, $7, NULLIF($8,''), NULLIF($9,''),
			$10, $11, $12, $13, $14, 0, $15, $16, $17, $18, $18)
		RETURNING number`,
		ord.ID, ord.CartID, ord.CustomerID, ord.Region, ord.Currency,
		ship, bill, ord.PromotionID, ord.PaymentIntentRef,
		ord.SubtotalMinor, ord.DiscountMinor, ord.TaxMinor, ord.ShippingMinor,
		ord.GrandTotalMinor,
		ord.Status, ord.PaymentStatus, ord.FulfillmentStatus, now).
		Scan(&ord.Number)
	if err != nil {
		return err
	}

	for i := range ord.Items {
		it := &ord.Items[i]
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		it.OrderID = ord.ID
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, variant_id, sku, title, qty, unit_price_minor, line_total_minor)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			it.ID, it.OrderID, it.VariantID, it.SKU, it.Title,
			it.Qty, it.UnitPriceMinor, it.LineTotalMinor); err != nil {
			return err
		}
	}

	// redemption happens here, not at validation, so abandoned carts never
	// burn promotion uses
	if ord.PromotionID != "" {
		if err := promo.RedeemInTx(ctx, tx, ord.PromotionID, ord.CustomerID); err != nil {
			return err
		}
	}

	ct, err := tx.Exec(ctx, `
		UPDATE carts SET completed_at = $2, updated_at = $2
		WHERE id = $1 AND completed_at IS NULL`, ord.CartID, now)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("cart %s: %w", ord.CartID, errCartRace)
	}

	return tx.Commit(ctx)
}

var errCartRace = errors.New("already completed by a concurrent checkout")

func (r *Repo) GetOrder(ctx context.Context, id string) (*Order, error) {
	ord, err := scanOrder(ctx, r.DB, id, false)
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, ord); err != nil {
		return nil, err
	}
	if err := r.loadFulfillments(ctx, ord); err != nil {
		return nil, err
	}
	return ord, nil
}

// UpdateStatus applies a manual order-status transition under a row lock.
// CONFIRMED requires captured payment (it is normally reached by the payment
// event, not by hand); REFUNDED requires the payment dimension to be there
// already; CANCELLED routes through CancelOrder so reservations are released.
func (r *Repo) UpdateStatus(ctx context.Context, id string, target Status) (*Order, error) {
	if target == StatusCancelled {
		return r.CancelOrder(ctx, id)
	}
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ord, err := scanOrder(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	if !CanTransition(ord.Status, target) {
		return nil, &InvalidTransitionError{Dimension: "order", From: string(ord.Status), To: string(target)}
	}
	if target == StatusConfirmed && ord.PaymentStatus != PaymentCaptured {
		return nil, &InvalidTransitionError{Dimension: "order", From: string(ord.Status), To: string(target)}
	}
	if target == StatusRefunded &&
		ord.PaymentStatus != PaymentRefunded && ord.PaymentStatus != PaymentPartiallyRefunded {
		return nil, &InvalidTransitionError{Dimension: "order", From: string(ord.Status), To: string(target)}
	}

	if err := setStatuses(ctx, tx, id, target, ord.PaymentStatus, ord.FulfillmentStatus); err != nil {
		return nil, err
	}
	ord.Status = target
	return ord, tx.Commit(ctx)
}

// CancelOrder moves a pre-SHIPPED order to CANCELLED and releases its
// ACTIVE reservations in the same transaction.
func (r *Repo) CancelOrder(ctx context.Context, id string) (*Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ord, err := scanOrder(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	if !CanTransition(ord.Status, StatusCancelled) {
		return nil, &InvalidTransitionError{Dimension: "order", From: string(ord.Status), To: string(StatusCancelled)}
	}
	if err := setStatuses(ctx, tx, id, StatusCancelled, ord.PaymentStatus, ord.FulfillmentStatus); err != nil {
		return nil, err
	}
	if _, err := inventory.ReleaseOrderInTx(ctx, tx, id); err != nil {
		return nil, err
	}
	ord.Status = StatusCancelled
	return ord, tx.Commit(ctx)
}

func (r *Repo) CreateFulfillment(ctx context.Context, orderID, locationID string, items []FulfillmentItem) (*Fulfillment, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ord, err := scanOrder(ctx, tx, orderID, true)
	if err != nil {
		return nil, err
	}
	if ord.Status == StatusCancelled || ord.Status == StatusRefunded {
		return nil, &InvalidTransitionError{Dimension: "order", From: string(ord.Status), To: string(StatusProcessing)}
	}
	if err := r.loadItems(ctx, ord); err != nil {
		return nil, err
	}
	if err := r.loadFulfillmentsTx(ctx, tx, ord); err != nil {
		return nil, err
	}

	// quantities across non-cancelled fulfillments may not exceed ordered
	remaining := map[string]int{}
	for _, it := range ord.Items {
		remaining[it.VariantID] += it.Qty
	}
	for _, f := range ord.Fulfillments {
		if f.Status == ShipmentCancelled {
			continue
		}
		for _, fi := range f.Items {
			remaining[fi.VariantID] -= fi.Qty
		}
	}
	for _, fi := range items {
		if fi.Qty <= 0 || remaining[fi.VariantID] < fi.Qty {
			return nil, fmt.Errorf("variant %s: %w", fi.VariantID, ErrTooManyFulfilled)
		}
	}

	now := time.Now().UTC()
	f := &Fulfillment{
		ID: uuid.NewString(), OrderID: orderID, LocationID: locationID,
		Status: ShipmentPending, Items: items, CreatedAt: now, UpdatedAt: now,
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO fulfillments(id, order_id, location_id, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$5)`,
		f.ID, f.OrderID, f.LocationID, f.Status, now); err != nil {
		return nil, err
	}
	for i := range f.Items {
		f.Items[i].FulfillmentID = f.ID
		if _, err := tx.Exec(ctx, `
			INSERT INTO fulfillment_items(fulfillment_id, variant_id, qty)
			VALUES ($1,$2,$3)`, f.ID, f.Items[i].VariantID, f.Items[i].Qty); err != nil {
			return nil, err
		}
	}

	ord.Fulfillments = append(ord.Fulfillments, *f)
	if err := r.refreshDerivedStatus(ctx, tx, ord); err != nil {
		return nil, err
	}
	return f, tx.Commit(ctx)
}

func (r *Repo) ShipFulfillment(ctx context.Context, id, trackingNum, trackingURL string) (*Order, error) {
	return r.moveFulfillment(ctx, id, ShipmentShipped, trackingNum, trackingURL)
}

func (r *Repo) DeliverFulfillment(ctx context.Context, id string) (*Order, error) {
	return r.moveFulfillment(ctx, id, ShipmentDelivered, "", "")
}

func (r *Repo) CancelFulfillment(ctx context.Context, id string) (*Order, error) {
	return r.moveFulfillment(ctx, id, ShipmentCancelled, "", "")
}

func (r *Repo) ReturnFulfillment(ctx context.Context, id string) (*Order, error) {
	return r.moveFulfillment(ctx, id, ShipmentReturned, "", "")
}

func (r *Repo) moveFulfillment(ctx context.Context, id string, target ShipmentStatus, trackingNum, trackingURL string) (*Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var orderID string
	var current ShipmentStatus
	err = tx.QueryRow(ctx, `
		SELECT order_id, status FROM fulfillments WHERE id=$1 FOR UPDATE`, id).
		Scan(&orderID, &current)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFulfillmentNotFound
	}
	if err != nil {
		return nil, err
	}
	if !CanTransitionShipment(current, target) {
		return nil, &InvalidTransitionError{Dimension: "shipment", From: string(current), To: string(target)}
	}

	if target == ShipmentShipped {
		_, err = tx.Exec(ctx, `
			UPDATE fulfillments SET status=$2, tracking_num=NULLIF($3,''),
			       tracking_url=NULLIF($4,''), updated_at=now()
			WHERE id=$1`, id, target, trackingNum, trackingURL)
	} else {
		_, err = tx.Exec(ctx, `
			UPDATE fulfillments SET status=$2, updated_at=now() WHERE id=$1`, id, target)
	}
	if err != nil {
		return nil, err
	}

	ord, err := scanOrder(ctx, tx, orderID, true)
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, ord); err != nil {
		return nil, err
	}
	if err := r.loadFulfillmentsTx(ctx, tx, ord); err != nil {
		return nil, err
	}
	if err := r.refreshDerivedStatus(ctx, tx, ord); err != nil {
		return nil, err
	}
	return ord, tx.Commit(ctx)
}

// refreshDerivedStatus recomputes the order-level fulfillment status and
// nudges the order status along SHIPPED/DELIVERED edges when the table
// allows it.
func (r *Repo) refreshDerivedStatus(ctx context.Context, tx pgx.Tx, ord *Order) error {
	ord.FulfillmentStatus = DeriveFulfillmentStatus(ord.Items, ord.Fulfillments)

	switch ord.FulfillmentStatus {
	case FulfillmentShipped:
		if CanTransition(ord.Status, StatusShipped) {
			ord.Status = StatusShipped
		}
	case FulfillmentDelivered:
		if CanTransition(ord.Status, StatusDelivered) {
			ord.Status = StatusDelivered
		}
	case FulfillmentReturned:
		// returns settle through the refund flow; the order status stays put
	default:
		// creating the first fulfillment moves a confirmed order into
		// processing
		if ord.FulfillmentStatus != FulfillmentNotFulfilled &&
			CanTransition(ord.Status, StatusProcessing) {
			ord.Status = StatusProcessing
		}
	}
	return setStatuses(ctx, tx, ord.ID, ord.Status, ord.PaymentStatus, ord.FulfillmentStatus)
}

// --- row helpers ---

type queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func scanOrder(ctx context.Context, q queryer, id string, forUpdate bool) (*Order, error) {
	sql := `
		SELECT id, number, cart_id, COALESCE(customer_id,''), region, currency,
		       shipping_address, billing_address, COALESCE(promotion_id,''),
		       COALESCE(payment_intent_ref,''),
		       subtotal_minor, discount_minor, tax_minor, shipping_minor,
		       grand_total_minor, refunded_minor,
		       status, payment_status, fulfillment_status, created_at, updated_at
		FROM orders WHERE id=$1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	var ord Order
	var ship, bill []byte
	err := q.QueryRow(ctx, sql, id).Scan(
		&ord.ID, &ord.Number, &ord.CartID, &ord.CustomerID, &ord.Region, &ord.Currency,
		&ship, &bill, &ord.PromotionID, &ord.PaymentIntentRef,
		&ord.SubtotalMinor, &ord.DiscountMinor, &ord.TaxMinor, &ord.ShippingMinor,
		&ord.GrandTotalMinor, &ord.RefundedMinor,
		&ord.Status, &ord.PaymentStatus, &ord.FulfillmentStatus,
		&ord.CreatedAt, &ord.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(ship, &ord.ShippingAddress); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(bill, &ord.BillingAddress); err != nil {
		return nil, err
	}
	return &ord, nil
}

func (r *Repo) loadItems(ctx context.Context, ord *Order) error {
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, variant_id, sku, title, qty, unit_price_minor, line_total_minor
		FROM order_items WHERE order_id=$1`, ord.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	ord.Items = ord.Items[:0]
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.VariantID, &it.SKU, &it.Title,
			&it.Qty, &it.UnitPriceMinor, &it.LineTotalMinor); err != nil {
			return err
		}
		ord.Items = append(ord.Items, it)
	}
	return rows.Err()
}

func (r *Repo) loadFulfillments(ctx context.Context, ord *Order) error {
	return loadFulfillments(ctx, r.DB, ord)
}

func (r *Repo) loadFulfillmentsTx(ctx context.Context, tx pgx.Tx, ord *Order) error {
	return loadFulfillments(ctx, tx, ord)
}

func loadFulfillments(ctx context.Context, q queryer, ord *Order) error {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, location_id, status,
		       COALESCE(tracking_num,''), COALESCE(tracking_url,''),
		       created_at, updated_at
		FROM fulfillments WHERE order_id=$1 ORDER BY created_at`, ord.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	ord.Fulfillments = ord.Fulfillments[:0]
	for rows.Next() {
		var f Fulfillment
		if err := rows.Scan(&f.ID, &f.OrderID, &f.LocationID, &f.Status,
			&f.TrackingNum, &f.TrackingURL, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return err
		}
		ord.Fulfillments = append(ord.Fulfillments, f)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range ord.Fulfillments {
		f := &ord.Fulfillments[i]
		irows, err := q.Query(ctx, `
			SELECT fulfillment_id, variant_id, qty
			FROM fulfillment_items WHERE fulfillment_id=$1`, f.ID)
		if err != nil {
			return err
		}
		for irows.Next() {
			var fi FulfillmentItem
			if err := irows.Scan(&fi.FulfillmentID, &fi.VariantID, &fi.Qty); err != nil {
				irows.Close()
				return err
			}
			f.Items = append(f.Items, fi)
		}
		irows.Close()
		if err := irows.Err(); err != nil {
			return err
		}
	}
	return nil
}

func setStatuses(ctx context.Context, tx pgx.Tx, id string, s Status, p PaymentStatus, f FulfillmentStatus) error {
	_, err := tx.Exec(ctx, `
		UPDATE orders SET status=$2, payment_status=$3, fulfillment_status=$4, updated_at=now()
		WHERE id=$1`, id, s, p, f)
	return err
}

// SetStatusesInTx lets the payment event repo update the status columns
// inside its own transaction after its guards passed.
func SetStatusesInTx(ctx context.Context, tx pgx.Tx, id string, s Status, p PaymentStatus, f FulfillmentStatus) error {
	return setStatuses(ctx, tx, id, s, p, f)
}

// ScanOrderInTx loads and locks an order row inside the caller's
// transaction.
func ScanOrderInTx(ctx context.Context, tx pgx.Tx, id string) (*Order, error) {
	return scanOrder(ctx, tx, id, true)
}
