package memstore

import (
	"context"
	"strings"

	"github.com/ariefcatur/go-commerce-checkout.git/internal/promo"
)

// promo.Store

func (s *Store) FindByCode(_ context.Context, code string) (*promo.Promotion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.promos {
		if strings.EqualFold(p.Code, code) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, promo.ErrNotFound
}

func (s *Store) CustomerUsage(_ context.Context, promotionID, customerID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.promoUsage[promotionID+":"+customerID], nil
}

func (s *Store) Redeem(_ context.Context, promotionID, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.redeemLocked(promotionID, customerID)
}

// redeemLocked is the compare-and-increment; callers hold s.mu.
func (s *Store) redeemLocked(promotionID, customerID string) error {
	p, ok := s.promos[promotionID]
	if !ok {
		return promo.ErrNotFound
	}
	if p.UsageLimit > 0 && p.UsageCount >= p.UsageLimit {
		return promo.ErrLimitExceeded
	}
	if customerID != "" && p.PerCustomerLimit > 0 &&
		s.promoUsage[promotionID+":"+customerID] >= p.PerCustomerLimit {
		return promo.ErrLimitExceeded
	}
	p.UsageCount++
	if customerID != "" {
		s.promoUsage[promotionID+":"+customerID]++
	}
	return nil
}

// PromotionUsage reports the global counter, for tests.
func (s *Store) PromotionUsage(promotionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.promos[promotionID]; ok {
		return p.UsageCount
	}
	return 0
}
