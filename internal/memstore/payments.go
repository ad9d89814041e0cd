package memstore

import (
	"context"
	"time"

	"github.com/ariefcatur/go-commerce-checkout.git/internal/orders"
)

// payments.Applier. The store mutex covers the processed-event check and the
// side effects together, matching the single-transaction pg repo.

func (s *Store) ApplyCaptureSucceeded(_ context.Context, eventID, orderID string) (*orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, done := s.processed[eventID]; done {
		return nil, nil
	}
	ord, ok := s.orders[orderID]
	if !ok {
		return nil, orders.ErrNotFound
	}
	if !orders.CanTransitionPayment(ord.PaymentStatus, orders.PaymentCaptured) {
		return nil, &orders.InvalidTransitionError{
			Dimension: "payment", From: string(ord.PaymentStatus), To: string(orders.PaymentCaptured),
		}
	}
	s.processed[eventID] = time.Now().UTC()
	ord.PaymentStatus = orders.PaymentCaptured
	if orders.CanTransition(ord.Status, orders.StatusConfirmed) {
		ord.Status = orders.StatusConfirmed
	}
	if err := s.commitOrderLocked(orderID); err != nil {
		return nil, err
	}
	ord.UpdatedAt = time.Now().UTC()
	return copyOrder(ord), nil
}

func (s *Store) ApplyCaptureFailed(_ context.Context, eventID, orderID, _ string) (*orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, done := s.processed[eventID]; done {
		return nil, nil
	}
	ord, ok := s.orders[orderID]
	if !ok {
		return nil, orders.ErrNotFound
	}
	if !orders.CanTransition(ord.Status, orders.StatusCancelled) {
		return nil, &orders.InvalidTransitionError{
			Dimension: "order", From: string(ord.Status), To: string(orders.StatusCancelled),
		}
	}
	s.processed[eventID] = time.Now().UTC()
	ord.Status = orders.StatusCancelled
	if orders.CanTransitionPayment(ord.PaymentStatus, orders.PaymentNotPaid) {
		ord.PaymentStatus = orders.PaymentNotPaid
	}
	if _, err := s.releaseOrderLocked(orderID); err != nil {
		return nil, err
	}
	ord.UpdatedAt = time.Now().UTC()
	return copyOrder(ord), nil
}

func (s *Store) ApplyRefund(_ context.Context, eventID, orderID string, amountMinor int64) (*orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, done := s.processed[eventID]; done {
		return nil, nil
	}
	ord, ok := s.orders[orderID]
	if !ok {
		return nil, orders.ErrNotFound
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
	s.processed[eventID] = time.Now().UTC()
	ord.PaymentStatus = target
	ord.RefundedMinor += amountMinor
	if target == orders.PaymentRefunded && orders.CanTransition(ord.Status, orders.StatusRefunded) {
		ord.Status = orders.StatusRefunded
	}
	ord.UpdatedAt = time.Now().UTC()
	return copyOrder(ord), nil
}

// Processed reports whether a provider event ID has been applied, for tests.
func (s *Store) Processed(eventID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, done := s.processed[eventID]
	return done
}
