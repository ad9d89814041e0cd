package promo_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-commerce-checkout.git/internal/memstore"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/promo"
)

func seeded(p promo.Promotion) (*memstore.Store, *promo.Engine) {
	st := memstore.New()
	st.SeedPromotion(p)
	return st, promo.NewEngine(st)
}

func active(code string) promo.Promotion {
	return promo.Promotion{
		ID: "p1", Code: code, Kind: promo.KindPercentage,
		Value: decimal.RequireFromString("0.10"), Enabled: true,
	}
}

func TestValidateHappyPath(t *testing.T) {
	_, e := seeded(active("SAVE10"))

	v, err := e.Validate(context.Background(), "SAVE10", 2000, "cust-1", "")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !v.OK || v.DiscountMinor != 200 || v.PromotionID != "p1" {
		t.Fatalf("unexpected validation: %+v", v)
	}
}

func TestValidateIsCaseInsensitive(t *testing.T) {
	_, e := seeded(active("SAVE10"))
	v, err := e.Validate(context.Background(), "save10", 2000, "", "")
	if err != nil || !v.OK {
		t.Fatalf("lowercase lookup failed: %+v err=%v", v, err)
	}
}

func TestValidateRejections(t *testing.T) {
	now := time.Now().UTC()
	cases := []struct {
		name   string
		mut    func(*promo.Promotion)
		amount int64
		group  string
		reason string
	}{
		{"disabled", func(p *promo.Promotion) { p.Enabled = false }, 2000, "", promo.ReasonDisabled},
		{"not started", func(p *promo.Promotion) { p.StartsAt = now.Add(time.Hour) }, 2000, "", promo.ReasonNotStarted},
		{"expired", func(p *promo.Promotion) { p.EndsAt = now.Add(-time.Hour) }, 2000, "", promo.ReasonExpired},
		{"below minimum", func(p *promo.Promotion) { p.MinAmountMinor = 5000 }, 2000, "", promo.ReasonMinAmount},
		{"wrong group", func(p *promo.Promotion) { p.CustomerGroup = "vip" }, 2000, "regular", promo.ReasonCustomerGroup},
		{"usage limit reached", func(p *promo.Promotion) { p.UsageLimit = 3; p.UsageCount = 3 }, 2000, "", promo.ReasonUsageLimit},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := active("SAVE10")
			c.mut(&p)
			_, e := seeded(p)
			v, err := e.Validate(context.Background(), "SAVE10", c.amount, "cust-1", c.group)
			if err != nil {
				t.Fatalf("validate: %v", err)
			}
			if v.OK || v.Reason != c.reason {
				t.Fatalf("got %+v, want reason %q", v, c.reason)
			}
		})
	}
}

func TestValidateUnknownCode(t *testing.T) {
	_, e := seeded(active("SAVE10"))
	v, err := e.Validate(context.Background(), "MISSING", 2000, "", "")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if v.OK || v.Reason != promo.ReasonNotFound {
		t.Fatalf("got %+v, want not_found", v)
	}
}

func TestValidatePerCustomerLimit(t *testing.T) {
	p := active("SAVE10")
	p.PerCustomerLimit = 1
	_, e := seeded(p)

	if err := e.Redeem(context.Background(), "p1", "cust-1"); err != nil {
		t.Fatalf("first redeem: %v", err)
	}

	v, err := e.Validate(context.Background(), "SAVE10", 2000, "cust-1", "")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if v.OK || v.Reason != promo.ReasonCustomerLimit {
		t.Fatalf("got %+v, want per_customer_limit", v)
	}

	// a different customer is unaffected
	v, err = e.Validate(context.Background(), "SAVE10", 2000, "cust-2", "")
	if err != nil || !v.OK {
		t.Fatalf("other customer should pass: %+v err=%v", v, err)
	}
}

func TestValidateFixedAmountClamps(t *testing.T) {
	p := active("TAKE5")
	p.Kind = promo.KindFixedAmount
	p.Value = decimal.NewFromInt(500)
	_, e := seeded(p)

	v, err := e.Validate(context.Background(), "TAKE5", 300, "", "")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if v.DiscountMinor != 300 {
		t.Fatalf("discount = %d, want clamped to subtotal 300", v.DiscountMinor)
	}
}

func TestConcurrentRedemptionHonorsLimit(t *testing.T) {
	p := active("LAST1")
	p.UsageLimit = 1
	st, e := seeded(p)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = e.Redeem(context.Background(), "p1", "")
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else if err != promo.ErrLimitExceeded {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("%d redemptions succeeded, want exactly 1", wins)
	}
	if st.PromotionUsage("p1") != 1 {
		t.Fatalf("usage count = %d, want 1", st.PromotionUsage("p1"))
	}
}
