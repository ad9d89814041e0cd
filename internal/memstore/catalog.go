package memstore

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-commerce-checkout.git/internal/pricing"
)

// pricing.Catalog

func (s *Store) Variant(_ context.Context, id string) (*pricing.Variant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.variants[id]
	if !ok {
		return nil, pricing.ErrVariantNotFound
	}
	return &v, nil
}

func (s *Store) PriceListEntries(_ context.Context, variantID, currency string) ([]pricing.PriceListEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []pricing.PriceListEntry
	for _, e := range s.priceEntries[variantID] {
		if e.Currency == currency {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) ShippingMethod(_ context.Context, id string) (*pricing.ShippingMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.shipping[id]
	if !ok {
		return nil, pricing.ErrShippingNotFound
	}
	return &m, nil
}

// pricing.RateSource

func (s *Store) Rate(_ context.Context, from, to string, _ time.Time) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.fxRates[from+":"+to]
	if !ok {
		return decimal.Decimal{}, pricing.ErrNoRate
	}
	return r, nil
}

func (s *Store) DefaultTaxRate(_ context.Context, region string) (decimal.Decimal, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.taxRates[region]
	return r, ok, nil
}
