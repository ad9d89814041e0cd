package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrVariantNotFound  = errors.New("variant not found")
	ErrShippingNotFound = errors.New("shipping method not found")
	ErrNoRate           = errors.New("no exchange rate for currency pair")
)

type Variant struct {
	ID             string
	SKU            string
	Title          string
	BaseCurrency   string
	BasePriceMinor int64
}

// PriceListEntry overrides a variant's price for a currency, optionally
// narrowed by region and customer group, within an effective window.
// A zero EndsAt means open-ended.
type PriceListEntry struct {
	ID            string
	VariantID     string
	Currency      string
	Region        string // empty = any region
	CustomerGroup string // empty = any group
	PriceMinor    int64
	StartsAt      time.Time
	EndsAt        time.Time
}

type TaxRate struct {
	ID        string
	Region    string
	Rate      decimal.Decimal // fraction, 0..1
	IsDefault bool
}

type ShippingMethod struct {
	ID          string
	Name        string
	Currency    string
	AmountMinor int64
}

// Catalog is the read side the calculator needs; callers fetch exactly the
// rows a price computation uses, nothing implicit.
type Catalog interface {
	Variant(ctx context.Context, id string) (*Variant, error)
	PriceListEntries(ctx context.Context, variantID, currency string) ([]PriceListEntry, error)
	ShippingMethod(ctx context.Context, id string) (*ShippingMethod, error)
}

// RateSource resolves FX and tax rates for a point in time.
type RateSource interface {
	// Rate returns the most recent from->to rate effective at or before t.
	Rate(ctx context.Context, from, to string, t time.Time) (decimal.Decimal, error)
	// DefaultTaxRate returns the region's default rate; ok=false means the
	// region is untaxed, which is valid and yields a zero tax total.
	DefaultTaxRate(ctx context.Context, region string) (decimal.Decimal, bool, error)
}
