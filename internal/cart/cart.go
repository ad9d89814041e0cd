package cart

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("cart not found")

	// ErrCompleted: the cart already produced an order and is frozen.
	ErrCompleted = errors.New("cart already completed")
)

// Cart stays mutable until checkout completes it. Quantities are the only
// durable line state; prices are resolved on every read so totals always
// reflect the current pricing context.
type Cart struct {
	ID               string
	CustomerID       string
	Region           string
	Currency         string
	PromoCode        string
	ShippingMethodID string
	Items            []Item
	CompletedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Item struct {
	CartID    string
	VariantID string
	Qty       int
}

func (c *Cart) Completed() bool { return c.CompletedAt != nil }

type Store interface {
	CreateCart(ctx context.Context, c *Cart) error
	GetCart(ctx context.Context, id string) (*Cart, error)

	// SetItemQty upserts a line; qty 0 deletes it. Fails with ErrCompleted
	// on a completed cart.
	SetItemQty(ctx context.Context, cartID, variantID string, qty int) error

	// SetPromoCode attaches a single code, replacing any existing one
	// (no stacking); empty clears it.
	SetPromoCode(ctx context.Context, cartID, code string) error

	SetShippingMethod(ctx context.Context, cartID, methodID string) error
}
