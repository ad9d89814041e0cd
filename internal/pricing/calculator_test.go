package pricing_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-commerce-checkout.git/internal/memstore"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/pricing"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/promo"
)

func newCalc() (*memstore.Store, *pricing.Calculator) {
	st := memstore.New()
	st.SeedVariant(pricing.Variant{
		ID: "v1", SKU: "TEE-BLK-M", Title: "Black Tee M",
		BaseCurrency: "USD", BasePriceMinor: 1000,
	})
	st.SeedDefaultTaxRate("us-ca", decimal.RequireFromString("0.08"))
	return st, &pricing.Calculator{Catalog: st, Rates: st, Promos: promo.NewEngine(st)}
}

func usdCart(qty int) pricing.Input {
	return pricing.Input{
		Region:   "us-ca",
		Currency: "USD",
		Lines:    []pricing.Line{{VariantID: "v1", Qty: qty}},
	}
}

func TestPriceSubtotalAndTax(t *testing.T) {
	_, calc := newCalc()

	got, err := calc.Price(context.Background(), usdCart(2))
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if got.SubtotalMinor != 2000 {
		t.Errorf("subtotal = %d, want 2000", got.SubtotalMinor)
	}
	if got.TaxMinor != 160 {
		t.Errorf("tax = %d, want 160", got.TaxMinor)
	}
	if got.GrandTotal != 2160 {
		t.Errorf("grand total = %d, want 2160", got.GrandTotal)
	}
	if len(got.Lines) != 1 || got.Lines[0].UnitPriceMinor != 1000 || got.Lines[0].LineTotalMinor != 2000 {
		t.Errorf("unexpected lines: %+v", got.Lines)
	}
}

func TestPricePercentagePromo(t *testing.T) {
	st, calc := newCalc()
	st.SeedPromotion(promo.Promotion{
		ID: "p1", Code: "SAVE10", Kind: promo.KindPercentage,
		Value: decimal.RequireFromString("0.10"), Enabled: true,
	})

	in := usdCart(2)
	in.PromoCode = "SAVE10"
	got, err := calc.Price(context.Background(), in)
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if got.DiscountMinor != 200 {
		t.Errorf("discount = %d, want 200", got.DiscountMinor)
	}
	// tax is computed on the discounted subtotal
	if got.TaxMinor != 144 {
		t.Errorf("tax = %d, want 144", got.TaxMinor)
	}
	if got.GrandTotal != 1944 {
		t.Errorf("grand total = %d, want 1944", got.GrandTotal)
	}
	if got.PromotionID != "p1" {
		t.Errorf("promotion id = %q, want p1", got.PromotionID)
	}
}

func TestPriceInvalidPromoKeepsTotals(t *testing.T) {
	_, calc := newCalc()

	in := usdCart(2)
	in.PromoCode = "NOPE"
	got, err := calc.Price(context.Background(), in)
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if got.DiscountMinor != 0 || got.GrandTotal != 2160 {
		t.Errorf("invalid code must not discount: %+v", got)
	}
	if got.PromoReason != promo.ReasonNotFound {
		t.Errorf("promo reason = %q, want %q", got.PromoReason, promo.ReasonNotFound)
	}
}

func TestPriceIsRepeatable(t *testing.T) {
	st, calc := newCalc()
	st.SeedPromotion(promo.Promotion{
		ID: "p1", Code: "SAVE10", Kind: promo.KindPercentage,
		Value: decimal.RequireFromString("0.10"), Enabled: true,
	})

	in := usdCart(3)
	in.PromoCode = "SAVE10"
	in.At = time.Now().UTC()
	first, err := calc.Price(context.Background(), in)
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	for i := 0; i < 20; i++ {
		got, err := calc.Price(context.Background(), in)
		if err != nil {
			t.Fatalf("price #%d: %v", i, err)
		}
		if got.GrandTotal != first.GrandTotal || got.TaxMinor != first.TaxMinor ||
			got.DiscountMinor != first.DiscountMinor {
			t.Fatalf("iteration %d drifted: %+v vs %+v", i, got, first)
		}
	}
}

func TestPriceUntaxedRegion(t *testing.T) {
	_, calc := newCalc()

	in := usdCart(2)
	in.Region = "oregon" // no default rate seeded
	got, err := calc.Price(context.Background(), in)
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if got.TaxMinor != 0 {
		t.Errorf("untaxed region: tax = %d, want 0", got.TaxMinor)
	}
	if got.GrandTotal != 2000 {
		t.Errorf("grand total = %d, want 2000", got.GrandTotal)
	}
}

func TestPricePriceListOverridesBase(t *testing.T) {
	st, calc := newCalc()
	st.SeedPriceListEntry(pricing.PriceListEntry{
		ID: "e1", VariantID: "v1", Currency: "USD",
		Region: "us-ca", PriceMinor: 900,
	})

	got, err := calc.Price(context.Background(), usdCart(1))
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if got.Lines[0].UnitPriceMinor != 900 {
		t.Errorf("unit price = %d, want price-list 900", got.Lines[0].UnitPriceMinor)
	}
}

func TestPriceBasePriceConvertedForForeignCart(t *testing.T) {
	st, calc := newCalc()
	st.SeedRate("USD", "EUR", decimal.RequireFromString("0.9"))

	in := usdCart(1)
	in.Currency = "EUR"
	got, err := calc.Price(context.Background(), in)
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if got.Lines[0].UnitPriceMinor != 900 {
		t.Errorf("unit price = %d, want 900 (10.00 USD at 0.9)", got.Lines[0].UnitPriceMinor)
	}
}

func TestPriceShippingAndFreeShippingPromo(t *testing.T) {
	st, calc := newCalc()
	st.SeedShippingMethod(pricing.ShippingMethod{
		ID: "std", Name: "Standard", Currency: "USD", AmountMinor: 500,
	})
	st.SeedPromotion(promo.Promotion{
		ID: "p2", Code: "FREESHIP", Kind: promo.KindFreeShipping, Enabled: true,
	})

	in := usdCart(2)
	in.ShippingMethodID = "std"
	got, err := calc.Price(context.Background(), in)
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if got.ShippingMinor != 500 || got.GrandTotal != 2660 {
		t.Errorf("with shipping: %+v", got)
	}

	in.PromoCode = "FREESHIP"
	got, err = calc.Price(context.Background(), in)
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if !got.ShippingWaived || got.ShippingMinor != 0 {
		t.Errorf("free shipping: waived=%v shipping=%d", got.ShippingWaived, got.ShippingMinor)
	}
	if got.DiscountMinor != 0 {
		t.Errorf("free shipping must not discount the subtotal: %d", got.DiscountMinor)
	}
	if got.GrandTotal != 2160 {
		t.Errorf("grand total = %d, want 2160", got.GrandTotal)
	}
}

func TestPriceRejectsInvalidQty(t *testing.T) {
	_, calc := newCalc()
	if _, err := calc.Price(context.Background(), usdCart(0)); err == nil {
		t.Fatal("zero qty must fail")
	}
}
