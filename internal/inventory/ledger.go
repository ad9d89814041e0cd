package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "ACTIVE"
	ReservationCommitted ReservationStatus = "COMMITTED"
	ReservationReleased  ReservationStatus = "RELEASED"
)

var (
	ErrLevelNotFound       = errors.New("inventory level not found")
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrNotActive: Commit on a reservation that is no longer ACTIVE.
	// Release, by contrast, is an idempotent no-op in that case.
	ErrNotActive = errors.New("reservation not active")
)

// InsufficientStockError names the offending variant so the caller can tell
// the customer what to remove.
type InsufficientStockError struct {
	VariantID  string
	LocationID string
	Requested  int
	Available  int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for variant %s at %s: requested %d, available %d",
		e.VariantID, e.LocationID, e.Requested, e.Available)
}

// Level invariant: 0 <= Reserved <= OnHand, and Reserved equals the sum of
// quantities of this pair's ACTIVE reservations.
type Level struct {
	VariantID  string
	LocationID string
	OnHand     int
	Reserved   int
}

func (l Level) Available() int { return l.OnHand - l.Reserved }

// Reservations are never deleted; they stay as an audit trail for disputes
// and stock reconciliation.
type Reservation struct {
	ID         string
	VariantID  string
	LocationID string
	Qty        int
	OrderID    string
	Status     ReservationStatus
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// Ledger owns every mutation of inventory levels. Implementations serialize
// per (variant, location) key: row locks in Postgres, one mutex in memstore.
type Ledger interface {
	// Reserve claims qty units if available, incrementing reserved and
	// recording an ACTIVE reservation that expires at now+ttl. Fails fast
	// with InsufficientStockError, never queues.
	Reserve(ctx context.Context, variantID, locationID string, qty int, orderID string, ttl time.Duration) (*Reservation, error)

	// Commit permanently removes an ACTIVE reservation's stock: onHand and
	// reserved both drop by its quantity. The only operation that removes
	// stock.
	Commit(ctx context.Context, reservationID string) error

	// Release returns an ACTIVE reservation's units to availability.
	// Releasing a RELEASED or COMMITTED reservation is a no-op.
	Release(ctx context.Context, reservationID string) error

	// CommitOrder / ReleaseOrder apply to all ACTIVE reservations of one
	// order (payment capture and cancellation respectively).
	CommitOrder(ctx context.Context, orderID string) error
	ReleaseOrder(ctx context.Context, orderID string) (int, error)

	// ExpireDue releases ACTIVE reservations whose expiry passed; returns
	// how many it released. Called by the sweeper.
	ExpireDue(ctx context.Context, now time.Time) (int, error)

	Levels(ctx context.Context, variantID string) ([]Level, error)
}
