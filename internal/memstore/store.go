// Package memstore is an in-memory implementation of the domain store
// interfaces, backed by mutex-protected maps. It powers package tests and
// local development without Postgres; the pgx repos are the production
// path. One mutex guards everything, which also gives the multi-entity
// operations (checkout creation, payment events) their atomicity.
package memstore

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-commerce-checkout.git/internal/cart"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/inventory"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/orders"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/pricing"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/promo"
)

type Store struct {
	mu sync.Mutex

	variants     map[string]pricing.Variant
	priceEntries map[string][]pricing.PriceListEntry // by variant ID
	shipping     map[string]pricing.ShippingMethod
	fxRates      map[string]decimal.Decimal // "FROM:TO"
	taxRates     map[string]decimal.Decimal // region -> default rate

	promos     map[string]*promo.Promotion // by ID
	promoUsage map[string]int              // "promoID:customerID"

	carts map[string]*cart.Cart

	levels       map[string]*inventory.Level // "variant:location"
	reservations map[string]*inventory.Reservation

	orders    map[string]*orders.Order
	processed map[string]time.Time // provider event ID -> processed at

	nextOrderNumber int64
}

func New() *Store {
	return &Store{
		variants:        map[string]pricing.Variant{},
		priceEntries:    map[string][]pricing.PriceListEntry{},
		shipping:        map[string]pricing.ShippingMethod{},
		fxRates:         map[string]decimal.Decimal{},
		taxRates:        map[string]decimal.Decimal{},
		promos:          map[string]*promo.Promotion{},
		promoUsage:      map[string]int{},
		carts:           map[string]*cart.Cart{},
		levels:          map[string]*inventory.Level{},
		reservations:    map[string]*inventory.Reservation{},
		orders:          map[string]*orders.Order{},
		processed:       map[string]time.Time{},
		nextOrderNumber: 1000,
	}
}

// --- seeding helpers ---

func (s *Store) SeedVariant(v pricing.Variant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.variants[v.ID] = v
}

func (s *Store) SeedPriceListEntry(e pricing.PriceListEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.priceEntries[e.VariantID] = append(s.priceEntries[e.VariantID], e)
}

func (s *Store) SeedShippingMethod(m pricing.ShippingMethod) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shipping[m.ID] = m
}

func (s *Store) SeedRate(from, to string, rate decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fxRates[from+":"+to] = rate
}

func (s *Store) SeedDefaultTaxRate(region string, rate decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.taxRates[region] = rate
}

func (s *Store) SeedPromotion(p promo.Promotion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.promos[p.ID] = &p
}

func (s *Store) SeedLevel(variantID, locationID string, onHand int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.levels[levelKey(variantID, locationID)] = &inventory.Level{
		VariantID: variantID, LocationID: locationID, OnHand: onHand,
	}
}

func levelKey(variantID, locationID string) string { return variantID + ":" + locationID }
