package memstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ariefcatur/go-commerce-checkout.git/internal/cart"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/orders"
)

// checkout.OrderCreator + orders.Store

func (s *Store) CreateFromCheckout(_ context.Context, ord *orders.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.carts[ord.CartID]
	if !ok {
		return cart.ErrNotFound
	}
	if c.Completed() {
		return cart.ErrCompleted
	}

	if ord.PromotionID != "" {
		if err := s.redeemLocked(ord.PromotionID, ord.CustomerID); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	s.nextOrderNumber++
	ord.Number = s.nextOrderNumber
	ord.CreatedAt, ord.UpdatedAt = now, now
	for i := range ord.Items {
		if ord.Items[i].ID == "" {
			ord.Items[i].ID = uuid.NewString()
		}
		ord.Items[i].OrderID = ord.ID
	}
	s.orders[ord.ID] = copyOrder(ord)
	c.CompletedAt = &now
	c.UpdatedAt = now
	return nil
}

func (s *Store) GetOrder(_ context.Context, id string) (*orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ord, ok := s.orders[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	return copyOrder(ord), nil
}

func (s *Store) UpdateStatus(ctx context.Context, id string, target orders.Status) (*orders.Order, error) {
	if target == orders.StatusCancelled {
		return s.CancelOrder(ctx, id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ord, ok := s.orders[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	if !orders.CanTransition(ord.Status, target) {
		return nil, &orders.InvalidTransitionError{Dimension: "order", From: string(ord.Status), To: string(target)}
	}
	if target == orders.StatusConfirmed && ord.PaymentStatus != orders.PaymentCaptured {
		return nil, &orders.InvalidTransitionError{Dimension: "order", From: string(ord.Status), To: string(target)}
	}
	if target == orders.StatusRefunded &&
		ord.PaymentStatus != orders.PaymentRefunded && ord.PaymentStatus != orders.PaymentPartiallyRefunded {
		return nil, &orders.InvalidTransitionError{Dimension: "order", From: string(ord.Status), To: string(target)}
	}
	ord.Status = target
	ord.UpdatedAt = time.Now().UTC()
	return copyOrder(ord), nil
}

func (s *Store) CancelOrder(_ context.Context, id string) (*orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ord, ok := s.orders[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	if !orders.CanTransition(ord.Status, orders.StatusCancelled) {
		return nil, &orders.InvalidTransitionError{Dimension: "order", From: string(ord.Status), To: string(orders.StatusCancelled)}
	}
	ord.Status = orders.StatusCancelled
	ord.UpdatedAt = time.Now().UTC()
	if _, err := s.releaseOrderLocked(id); err != nil {
		return nil, err
	}
	return copyOrder(ord), nil
}

func (s *Store) CreateFulfillment(_ context.Context, orderID, locationID string, items []orders.FulfillmentItem) (*orders.Fulfillment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ord, ok := s.orders[orderID]
	if !ok {
		return nil, orders.ErrNotFound
	}
	if ord.Status == orders.StatusCancelled || ord.Status == orders.StatusRefunded {
		return nil, &orders.InvalidTransitionError{Dimension: "order", From: string(ord.Status), To: string(orders.StatusProcessing)}
	}

	remaining := map[string]int{}
	for _, it := range ord.Items {
		remaining[it.VariantID] += it.Qty
	}
	for _, f := range ord.Fulfillments {
		if f.Status == orders.ShipmentCancelled {
			continue
		}
		for _, fi := range f.Items {
			remaining[fi.VariantID] -= fi.Qty
		}
	}
	for _, fi := range items {
		if fi.Qty <= 0 || remaining[fi.VariantID] < fi.Qty {
			return nil, fmt.Errorf("variant %s: %w", fi.VariantID, orders.ErrTooManyFulfilled)
		}
	}

	now := time.Now().UTC()
	f := orders.Fulfillment{
		ID: uuid.NewString(), OrderID: orderID, LocationID: locationID,
		Status: orders.ShipmentPending, CreatedAt: now, UpdatedAt: now,
	}
	for _, fi := range items {
		fi.FulfillmentID = f.ID
		f.Items = append(f.Items, fi)
	}
	ord.Fulfillments = append(ord.Fulfillments, f)
	s.refreshDerivedLocked(ord)
	cp := f
	cp.Items = append([]orders.FulfillmentItem(nil), f.Items...)
	return &cp, nil
}

func (s *Store) ShipFulfillment(_ context.Context, id, trackingNum, trackingURL string) (*orders.Order, error) {
	return s.moveFulfillment(id, orders.ShipmentShipped, trackingNum, trackingURL)
}

func (s *Store) DeliverFulfillment(_ context.Context, id string) (*orders.Order, error) {
	return s.moveFulfillment(id, orders.ShipmentDelivered, "", "")
}

func (s *Store) CancelFulfillment(_ context.Context, id string) (*orders.Order, error) {
	return s.moveFulfillment(id, orders.ShipmentCancelled, "", "")
}

func (s *Store) ReturnFulfillment(_ context.Context, id string) (*orders.Order, error) {
	return s.moveFulfillment(id, orders.ShipmentReturned, "", "")
}

func (s *Store) moveFulfillment(id string, target orders.ShipmentStatus, trackingNum, trackingURL string) (*orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ord := range s.orders {
		for i := range ord.Fulfillments {
			f := &ord.Fulfillments[i]
			if f.ID != id {
				continue
			}
			if !orders.CanTransitionShipment(f.Status, target) {
				return nil, &orders.InvalidTransitionError{Dimension: "shipment", From: string(f.Status), To: string(target)}
			}
			f.Status = target
			if target == orders.ShipmentShipped {
				f.TrackingNum, f.TrackingURL = trackingNum, trackingURL
			}
			f.UpdatedAt = time.Now().UTC()
			s.refreshDerivedLocked(ord)
			return copyOrder(ord), nil
		}
	}
	return nil, orders.ErrFulfillmentNotFound
}

func (s *Store) refreshDerivedLocked(ord *orders.Order) {
	ord.FulfillmentStatus = orders.DeriveFulfillmentStatus(ord.Items, ord.Fulfillments)
	switch ord.FulfillmentStatus {
	case orders.FulfillmentShipped:
		if orders.CanTransition(ord.Status, orders.StatusShipped) {
			ord.Status = orders.StatusShipped
		}
	case orders.FulfillmentDelivered:
		if orders.CanTransition(ord.Status, orders.StatusDelivered) {
			ord.Status = orders.StatusDelivered
		}
	case orders.FulfillmentReturned:
		// returns settle through the refund flow; the order status stays put
	default:
		if ord.FulfillmentStatus != orders.FulfillmentNotFulfilled &&
			orders.CanTransition(ord.Status, orders.StatusProcessing) {
			ord.Status = orders.StatusProcessing
		}
	}
	ord.UpdatedAt = time.Now().UTC()
}

func copyOrder(ord *orders.Order) *orders.Order {
	cp := *ord
	cp.Items = append([]orders.OrderItem(nil), ord.Items...)
	cp.Fulfillments = nil
	for _, f := range ord.Fulfillments {
		fc := f
		fc.Items = append([]orders.FulfillmentItem(nil), f.Items...)
		cp.Fulfillments = append(cp.Fulfillments, fc)
	}
	return &cp
}
