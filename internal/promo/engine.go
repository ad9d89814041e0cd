package promo

import (
	"context"
	"errors"
	"time"

	"github.com/ariefcatur/go-commerce-checkout.git/internal/money"
)

// Validation rejection reasons, surfaced to the cart owner.
const (
	ReasonNotFound      = "not_found"
	ReasonDisabled      = "disabled"
	ReasonNotStarted    = "not_started"
	ReasonExpired       = "expired"
	ReasonMinAmount     = "minimum_order_amount"
	ReasonCustomerGroup = "customer_group"
	ReasonUsageLimit    = "usage_limit"
	ReasonCustomerLimit = "per_customer_limit"
)

type Validation struct {
	OK             bool
	Reason         string
	PromotionID    string
	DiscountMinor  int64
	ShippingWaived bool
}

// Store is the durable promotion state. Redeem must be atomic: it increments
// both usage counters only while they are below their limits, failing with
// ErrLimitExceeded otherwise.
type Store interface {
	FindByCode(ctx context.Context, code string) (*Promotion, error)
	CustomerUsage(ctx context.Context, promotionID, customerID string) (int, error)
	Redeem(ctx context.Context, promotionID, customerID string) error
}

// Engine validates codes against a proposed order amount. Validation never
// increments counters; redemption happens at order confirmation so abandoned
// carts do not burn uses.
type Engine struct {
	Store Store

	now func() time.Time
}

func NewEngine(store Store) *Engine {
	return &Engine{Store: store, now: time.Now}
}

// Validate runs the checks in a fixed order and short-circuits on the first
// failure. amountMinor is the cart subtotal in the cart currency.
func (e *Engine) Validate(ctx context.Context, code string, amountMinor int64, customerID, customerGroup string) (Validation, error) {
	p, err := e.Store.FindByCode(ctx, code)
	if errors.Is(err, ErrNotFound) {
		return Validation{Reason: ReasonNotFound}, nil
	}
	if err != nil {
		return Validation{}, err
	}
	if !p.Enabled {
		return Validation{Reason: ReasonDisabled}, nil
	}
	now := e.now()
	if now.Before(p.StartsAt) {
		return Validation{Reason: ReasonNotStarted}, nil
	}
	if !p.windowContains(now) {
		return Validation{Reason: ReasonExpired}, nil
	}
	if amountMinor < p.MinAmountMinor {
		return Validation{Reason: ReasonMinAmount}, nil
	}
	if p.CustomerGroup != "" && p.CustomerGroup != customerGroup {
		return Validation{Reason: ReasonCustomerGroup}, nil
	}
	if p.UsageLimit > 0 && p.UsageCount >= p.UsageLimit {
		return Validation{Reason: ReasonUsageLimit}, nil
	}
	if p.PerCustomerLimit > 0 && customerID != "" {
		used, err := e.Store.CustomerUsage(ctx, p.ID, customerID)
		if err != nil {
			return Validation{}, err
		}
		if used >= p.PerCustomerLimit {
			return Validation{Reason: ReasonCustomerLimit}, nil
		}
	}

	v := Validation{OK: true, PromotionID: p.ID}
	switch p.Kind {
	case KindPercentage:
		v.DiscountMinor = money.Percent(amountMinor, p.Value)
	case KindFixedAmount:
		v.DiscountMinor = money.Clamp(p.Value.IntPart(), amountMinor)
	case KindFreeShipping:
		// shipping is waived via the flag, never folded into the discount
		v.ShippingWaived = true
	}
	return v, nil
}

// Redeem charges one use against the promotion for this customer. Called
// only at order confirmation, inside the checkout transaction.
func (e *Engine) Redeem(ctx context.Context, promotionID, customerID string) error {
	return e.Store.Redeem(ctx, promotionID, customerID)
}
