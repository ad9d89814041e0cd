package promo

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindPercentage   Kind = "PERCENTAGE"
	KindFixedAmount  Kind = "FIXED_AMOUNT"
	KindFreeShipping Kind = "FREE_SHIPPING"
)

var (
	ErrNotFound = errors.New("promotion not found")

	// ErrLimitExceeded is returned by Redeem when the compare-and-increment
	// loses a race against another redemption of the last remaining use.
	ErrLimitExceeded = errors.New("promotion usage limit exceeded")
)

// Promotion codes are unique case-insensitively. Value is a decimal fraction
// for PERCENTAGE (0.10 = 10%) and a minor-unit amount for FIXED_AMOUNT;
// FREE_SHIPPING ignores it. Zero limits mean unlimited; a zero EndsAt means
// no expiry.
type Promotion struct {
	ID               string
	Code             string
	Kind             Kind
	Value            decimal.Decimal
	Enabled          bool
	StartsAt         time.Time
	EndsAt           time.Time
	MinAmountMinor   int64
	CustomerGroup    string // empty = no restriction
	UsageLimit       int
	PerCustomerLimit int
	UsageCount       int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (p *Promotion) windowContains(t time.Time) bool {
	if t.Before(p.StartsAt) {
		return false
	}
	return p.EndsAt.IsZero() || t.Before(p.EndsAt)
}
