package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ariefcatur/go-commerce-checkout.git/internal/inventory"
)

// inventory.Ledger. The single store mutex serializes every level mutation,
// matching the row-lock guarantee of the pgx ledger.

func (s *Store) Reserve(_ context.Context, variantID, locationID string, qty int, orderID string, ttl time.Duration) (*inventory.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lvl, ok := s.levels[levelKey(variantID, locationID)]
	if !ok {
		return nil, inventory.ErrLevelNotFound
	}
	if lvl.Available() < qty {
		return nil, &inventory.InsufficientStockError{
			VariantID: variantID, LocationID: locationID,
			Requested: qty, Available: lvl.Available(),
		}
	}
	lvl.Reserved += qty

	now := time.Now().UTC()
	res := &inventory.Reservation{
		ID:         uuid.NewString(),
		VariantID:  variantID,
		LocationID: locationID,
		Qty:        qty,
		OrderID:    orderID,
		Status:     inventory.ReservationActive,
		ExpiresAt:  now.Add(ttl),
		CreatedAt:  now,
	}
	s.reservations[res.ID] = res
	cp := *res
	return &cp, nil
}

func (s *Store) Commit(_ context.Context, reservationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked(reservationID)
}

func (s *Store) commitLocked(reservationID string) error {
	res, ok := s.reservations[reservationID]
	if !ok {
		return inventory.ErrReservationNotFound
	}
	if res.Status != inventory.ReservationActive {
		return inventory.ErrNotActive
	}
	lvl := s.levels[levelKey(res.VariantID, res.LocationID)]
	lvl.OnHand -= res.Qty
	lvl.Reserved -= res.Qty
	res.Status = inventory.ReservationCommitted
	return nil
}

func (s *Store) Release(_ context.Context, reservationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releaseLocked(reservationID)
}

func (s *Store) releaseLocked(reservationID string) error {
	res, ok := s.reservations[reservationID]
	if !ok {
		return inventory.ErrReservationNotFound
	}
	if res.Status != inventory.ReservationActive {
		return nil // idempotent
	}
	lvl := s.levels[levelKey(res.VariantID, res.LocationID)]
	lvl.Reserved -= res.Qty
	res.Status = inventory.ReservationReleased
	return nil
}

func (s *Store) CommitOrder(_ context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitOrderLocked(orderID)
}

func (s *Store) commitOrderLocked(orderID string) error {
	for id, res := range s.reservations {
		if res.OrderID == orderID && res.Status == inventory.ReservationActive {
			if err := s.commitLocked(id); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) ReleaseOrder(_ context.Context, orderID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releaseOrderLocked(orderID)
}

func (s *Store) releaseOrderLocked(orderID string) (int, error) {
	n := 0
	for id, res := range s.reservations {
		if res.OrderID == orderID && res.Status == inventory.ReservationActive {
			if err := s.releaseLocked(id); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

func (s *Store) ExpireDue(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, res := range s.reservations {
		if res.Status == inventory.ReservationActive && !res.ExpiresAt.After(now) {
			if err := s.releaseLocked(id); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

func (s *Store) Levels(_ context.Context, variantID string) ([]inventory.Level, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []inventory.Level
	for _, lvl := range s.levels {
		if lvl.VariantID == variantID {
			out = append(out, *lvl)
		}
	}
	return out, nil
}

// Reservation returns a copy of one reservation, for tests.
func (s *Store) Reservation(id string) (inventory.Reservation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.reservations[id]
	if !ok {
		return inventory.Reservation{}, false
	}
	return *res, true
}

// ActiveReservedSum sums ACTIVE reservation quantities for a level, for the
// conservation checks in tests.
func (s *Store) ActiveReservedSum(variantID, locationID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := 0
	for _, res := range s.reservations {
		if res.VariantID == variantID && res.LocationID == locationID &&
			res.Status == inventory.ReservationActive {
			sum += res.Qty
		}
	}
	return sum
}
