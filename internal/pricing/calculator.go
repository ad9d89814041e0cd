package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/ariefcatur/go-commerce-checkout.git/internal/money"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/promo"
)

type Line struct {
	VariantID string
	Qty       int
}

// Input is a snapshot of everything a price computation depends on. Given
// the same input and unchanged catalog rows, Price is pure: it always
// produces the same totals.
type Input struct {
	Region           string
	Currency         string
	CustomerID       string
	CustomerGroup    string
	PromoCode        string
	ShippingMethodID string
	Lines            []Line
	At               time.Time // zero = now
}

type LineTotal struct {
	VariantID      string `json:"variant_id"`
	SKU            string `json:"sku"`
	Title          string `json:"title"`
	Qty            int    `json:"qty"`
	UnitPriceMinor int64  `json:"unit_price_minor"`
	LineTotalMinor int64  `json:"line_total_minor"`
}

type Totals struct {
	Currency       string      `json:"currency"`
	Lines          []LineTotal `json:"lines"`
	SubtotalMinor  int64       `json:"subtotal_minor"`
	DiscountMinor  int64       `json:"discount_total_minor"`
	TaxMinor       int64       `json:"tax_total_minor"`
	ShippingMinor  int64       `json:"shipping_total_minor"`
	GrandTotal     int64       `json:"grand_total_minor"`
	ShippingWaived bool        `json:"shipping_waived,omitempty"`
	PromotionID    string      `json:"-"`
	PromoReason    string      `json:"promo_reason,omitempty"`
}

type Calculator struct {
	Catalog Catalog
	Rates   RateSource
	Promos  *promo.Engine
}

// Price resolves each line's unit price, applies at most one promotion, and
// computes tax on the discounted subtotal with the region's default rate.
// All rounding is half-even to the currency's minor units.
func (c *Calculator) Price(ctx context.Context, in Input) (*Totals, error) {
	at := in.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	t := &Totals{Currency: in.Currency}
	for _, ln := range in.Lines {
		if ln.Qty <= 0 {
			return nil, fmt.Errorf("variant %s: invalid qty %d", ln.VariantID, ln.Qty)
		}
		unit, err := c.unitPrice(ctx, ln.VariantID, in, at)
		if err != nil {
			return nil, err
		}
		v, err := c.Catalog.Variant(ctx, ln.VariantID)
		if err != nil {
			return nil, err
		}
		lt := LineTotal{
			VariantID:      ln.VariantID,
			SKU:            v.SKU,
			Title:          v.Title,
			Qty:            ln.Qty,
			UnitPriceMinor: unit,
			LineTotalMinor: unit * int64(ln.Qty),
		}
		t.Lines = append(t.Lines, lt)
		t.SubtotalMinor += lt.LineTotalMinor
	}

	if in.PromoCode != "" {
		val, err := c.Promos.Validate(ctx, in.PromoCode, t.SubtotalMinor, in.CustomerID, in.CustomerGroup)
		if err != nil {
			return nil, err
		}
		if val.OK {
			t.PromotionID = val.PromotionID
			t.DiscountMinor = money.Clamp(val.DiscountMinor, t.SubtotalMinor)
			t.ShippingWaived = val.ShippingWaived
		} else {
			t.PromoReason = val.Reason
		}
	}

	rate, ok, err := c.Rates.DefaultTaxRate(ctx, in.Region)
	if err != nil {
		return nil, err
	}
	if ok {
		t.TaxMinor = money.Percent(t.SubtotalMinor-t.DiscountMinor, rate)
	}

	if in.ShippingMethodID != "" && !t.ShippingWaived {
		m, err := c.Catalog.ShippingMethod(ctx, in.ShippingMethodID)
		if err != nil {
			return nil, err
		}
		t.ShippingMinor = m.AmountMinor
		if m.Currency != in.Currency {
			fx, err := c.Rates.Rate(ctx, m.Currency, in.Currency, at)
			if err != nil {
				return nil, err
			}
			t.ShippingMinor = money.Convert(m.AmountMinor, m.Currency, in.Currency, fx)
		}
	}

	t.GrandTotal = t.SubtotalMinor - t.DiscountMinor + t.TaxMinor + t.ShippingMinor
	return t, nil
}

// unitPrice applies price list precedence, falling back to the variant base
// price converted into the cart currency when no entry matches.
func (c *Calculator) unitPrice(ctx context.Context, variantID string, in Input, at time.Time) (int64, error) {
	entries, err := c.Catalog.PriceListEntries(ctx, variantID, in.Currency)
	if err != nil {
		return 0, err
	}
	if p, ok := ResolveUnitPrice(entries, in.Region, in.CustomerGroup, at); ok {
		return p, nil
	}

	v, err := c.Catalog.Variant(ctx, variantID)
	if err != nil {
		return 0, err
	}
	if v.BaseCurrency == in.Currency {
		return v.BasePriceMinor, nil
	}
	fx, err := c.Rates.Rate(ctx, v.BaseCurrency, in.Currency, at)
	if err != nil {
		return 0, err
	}
	return money.Convert(v.BasePriceMinor, v.BaseCurrency, in.Currency, fx), nil
}
