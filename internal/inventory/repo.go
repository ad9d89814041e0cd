package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the Postgres ledger. Each operation locks the rows it mutates
// (FOR UPDATE) inside one transaction so concurrent checkouts cannot
// together exceed available stock.
type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Reserve(ctx context.Context, variantID, locationID string, qty int, orderID string, ttl time.Duration) (*Reservation, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var onHand, reserved int
	err = tx.QueryRow(ctx, `
		SELECT on_hand, reserved FROM inventory_levels
		WHERE variant_id=$1 AND location_id=$2
		FOR UPDATE`, variantID, locationID).Scan(&onHand, &reserved)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLevelNotFound
	}
	if err != nil {
		return nil, err
	}
	if onHand-reserved < qty {
		return nil, &InsufficientStockError{
			VariantID: variantID, LocationID: locationID,
			Requested: qty, Available: onHand - reserved,
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE inventory_levels SET reserved = reserved + $3
		WHERE variant_id=$1 AND location_id=$2`, variantID, locationID, qty); err != nil {
		return nil, err
	}

	res := &Reservation{
		ID:         uuid.NewString(),
		VariantID:  variantID,
		LocationID: locationID,
		Qty:        qty,
		OrderID:    orderID,
		Status:     ReservationActive,
		ExpiresAt:  time.Now().UTC().Add(ttl),
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO stock_reservations(id, variant_id, location_id, qty, order_id, status, expires_at, created_at)
		VALUES ($1,$2,$3,$4,NULLIF($5,''),$6,$7,$8)`,
		res.ID, res.VariantID, res.LocationID, res.Qty, res.OrderID,
		res.Status, res.ExpiresAt, res.CreatedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Repo) Commit(ctx context.Context, reservationID string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := commitOne(ctx, tx, reservationID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repo) Release(ctx context.Context, reservationID string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := releaseOne(ctx, tx, reservationID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repo) CommitOrder(ctx context.Context, orderID string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := CommitOrderInTx(ctx, tx, orderID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repo) ReleaseOrder(ctx context.Context, orderID string) (int, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	n, err := ReleaseOrderInTx(ctx, tx, orderID)
	if err != nil {
		return 0, err
	}
	return n, tx.Commit(ctx)
}

// ExpireDue releases every ACTIVE reservation past its expiry, returning
// abandoned-checkout stock to availability.
func (r *Repo) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ids, err := lockReservations(ctx, tx, `
		SELECT id FROM stock_reservations
		WHERE status='ACTIVE' AND expires_at <= $1
		FOR UPDATE SKIP LOCKED`, now)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := releaseOne(ctx, tx, id); err != nil {
			return 0, err
		}
	}
	return len(ids), tx.Commit(ctx)
}

func (r *Repo) Levels(ctx context.Context, variantID string) ([]Level, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT variant_id, location_id, on_hand, reserved
		FROM inventory_levels WHERE variant_id=$1`, variantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Level
	for rows.Next() {
		var l Level
		if err := rows.Scan(&l.VariantID, &l.LocationID, &l.OnHand, &l.Reserved); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// --- transactional pieces shared with the order/payment repos ---

func commitOne(ctx context.Context, tx pgx.Tx, reservationID string) error {
	var variantID, locationID string
	var qty int
	var status ReservationStatus
	err := tx.QueryRow(ctx, `
		SELECT variant_id, location_id, qty, status FROM stock_reservations
		WHERE id=$1 FOR UPDATE`, reservationID).
		Scan(&variantID, &locationID, &qty, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrReservationNotFound
	}
	if err != nil {
		return err
	}
	if status != ReservationActive {
		return ErrNotActive
	}

	if _, err := tx.Exec(ctx, `
		UPDATE inventory_levels SET on_hand = on_hand - $3, reserved = reserved - $3
		WHERE variant_id=$1 AND location_id=$2`, variantID, locationID, qty); err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE stock_reservations SET status='COMMITTED' WHERE id=$1`, reservationID)
	return err
}

func releaseOne(ctx context.Context, tx pgx.Tx, reservationID string) error {
	var variantID, locationID string
	var qty int
	var status ReservationStatus
	err := tx.QueryRow(ctx, `
		SELECT variant_id, location_id, qty, status FROM stock_reservations
		WHERE id=$1 FOR UPDATE`, reservationID).
		Scan(&variantID, &locationID, &qty, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrReservationNotFound
	}
	if err != nil {
		return err
	}
	if status != ReservationActive {
		return nil // idempotent
	}

	if _, err := tx.Exec(ctx, `
		UPDATE inventory_levels SET reserved = reserved - $3
		WHERE variant_id=$1 AND location_id=$2`, variantID, locationID, qty); err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE stock_reservations SET status='RELEASED' WHERE id=$1`, reservationID)
	return err
}

// CommitOrderInTx commits all ACTIVE reservations of an order inside the
// caller's transaction (payment capture).
func CommitOrderInTx(ctx context.Context, tx pgx.Tx, orderID string) error {
	ids, err := lockReservations(ctx, tx, `
		SELECT id FROM stock_reservations
		WHERE order_id=$1 AND status='ACTIVE'
		FOR UPDATE`, orderID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := commitOne(ctx, tx, id); err != nil {
			return err
		}
	}
	return nil
}

// ReleaseOrderInTx releases all ACTIVE reservations of an order inside the
// caller's transaction (cancellation, capture failure).
func ReleaseOrderInTx(ctx context.Context, tx pgx.Tx, orderID string) (int, error) {
	ids, err := lockReservations(ctx, tx, `
		SELECT id FROM stock_reservations
		WHERE order_id=$1 AND status='ACTIVE'
		FOR UPDATE`, orderID)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := releaseOne(ctx, tx, id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

func lockReservations(ctx context.Context, tx pgx.Tx, query string, arg any) ([]string, error) {
	rows, err := tx.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
