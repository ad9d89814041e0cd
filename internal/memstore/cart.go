package memstore

import (
	"context"
	"time"

	"github.com/ariefcatur/go-commerce-checkout.git/internal/cart"
)

// cart.Store

func (s *Store) CreateCart(_ context.Context, c *cart.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	cp := *c
	cp.Items = append([]cart.Item(nil), c.Items...)
	s.carts[c.ID] = &cp
	return nil
}

func (s *Store) GetCart(_ context.Context, id string) (*cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[id]
	if !ok {
		return nil, cart.ErrNotFound
	}
	cp := *c
	cp.Items = append([]cart.Item(nil), c.Items...)
	return &cp, nil
}

func (s *Store) SetItemQty(_ context.Context, cartID, variantID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[cartID]
	if !ok {
		return cart.ErrNotFound
	}
	if c.Completed() {
		return cart.ErrCompleted
	}
	for i, it := range c.Items {
		if it.VariantID != variantID {
			continue
		}
		if qty <= 0 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
		} else {
			c.Items[i].Qty = qty
		}
		c.UpdatedAt = time.Now().UTC()
		return nil
	}
	if qty > 0 {
		c.Items = append(c.Items, cart.Item{CartID: cartID, VariantID: variantID, Qty: qty})
		c.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (s *Store) SetPromoCode(_ context.Context, cartID, code string) error {
	return s.setCartField(cartID, func(c *cart.Cart) { c.PromoCode = code })
}

func (s *Store) SetShippingMethod(_ context.Context, cartID, methodID string) error {
	return s.setCartField(cartID, func(c *cart.Cart) { c.ShippingMethodID = methodID })
}

func (s *Store) setCartField(cartID string, apply func(*cart.Cart)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[cartID]
	if !ok {
		return cart.ErrNotFound
	}
	if c.Completed() {
		return cart.ErrCompleted
	}
	apply(c)
	c.UpdatedAt = time.Now().UTC()
	return nil
}
