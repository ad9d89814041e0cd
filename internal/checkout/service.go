package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ariefcatur/go-commerce-checkout.git/internal/cart"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/inventory"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/orders"
	"github.com/ariefcatur/go-commerce-checkout.git/internal/pricing"
)

// attempt states, for logs only; durable state lives on the order
const (
	stateStarted        = "STARTED"
	statePriced         = "PRICED"
	stateReserved       = "RESERVED"
	statePaymentPending = "PAYMENT_PENDING"
	stateOrderCreated   = "ORDER_CREATED"
	stateFailed         = "FAILED"
)

var ErrEmptyCart = errors.New("cart is empty")

// PromotionInvalidError: the attached code failed validation at checkout
// time (it may have been valid when attached).
type PromotionInvalidError struct{ Reason string }

func (e *PromotionInvalidError) Error() string {
	return fmt.Sprintf("promotion invalid: %s", e.Reason)
}

// OrderCreator is the slice of the order store checkout needs.
type OrderCreator interface {
	CreateFromCheckout(ctx context.Context, ord *orders.Order) error
}

// IntentCreator is the payment collaborator boundary.
type IntentCreator interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency, orderID string) (string, error)
}

type Input struct {
	CartID           string
	CustomerID       string
	CustomerGroup    string
	ShippingAddress  orders.Address
	BillingAddress   *orders.Address // nil = same as shipping
	ShippingMethodID string          // overrides the cart's when set
}

type Result struct {
	OrderID          string          `json:"order_id"`
	OrderNumber      int64           `json:"order_number"`
	PaymentIntentRef string          `json:"payment_intent_ref"`
	Totals           *pricing.Totals `json:"totals"`
}

// Service is the checkout transaction: cart in, PENDING order with a
// payment intent out. Every failure path releases the reservations this
// attempt acquired; callers never orchestrate compensation.
type Service struct {
	Carts           cart.Store
	Calc            *pricing.Calculator
	Ledger          inventory.Ledger
	Orders          OrderCreator
	Provider        IntentCreator
	StockLocationID string
	ReservationTTL  time.Duration
}

func (s *Service) Start(ctx context.Context, in Input) (*Result, error) {
	state := stateStarted

	c, err := s.Carts.GetCart(ctx, in.CartID)
	if err != nil {
		return nil, err
	}
	if c.Completed() {
		return nil, cart.ErrCompleted
	}
	if len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}

	// recompute server-side; client totals are never trusted
	shippingMethod := c.ShippingMethodID
	if in.ShippingMethodID != "" {
		shippingMethod = in.ShippingMethodID
	}
	lines := make([]pricing.Line, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, pricing.Line{VariantID: it.VariantID, Qty: it.Qty})
	}
	totals, err := s.Calc.Price(ctx, pricing.Input{
		Region:           c.Region,
		Currency:         c.Currency,
		CustomerID:       in.CustomerID,
		CustomerGroup:    in.CustomerGroup,
		PromoCode:        c.PromoCode,
		ShippingMethodID: shippingMethod,
		Lines:            lines,
	})
	if err != nil {
		return nil, err
	}
	if c.PromoCode != "" && totals.PromotionID == "" {
		return nil, &PromotionInvalidError{Reason: totals.PromoReason}
	}
	state = statePriced

	orderID := uuid.NewString()
	reserved := make([]*inventory.Reservation, 0, len(c.Items))
	releaseAll := func() {
		for _, res := range reserved {
			if err := s.Ledger.Release(ctx, res.ID); err != nil {
				log.Printf("checkout %s: release reservation %s: %v", orderID, res.ID, err)
			}
		}
	}
	for _, it := range c.Items {
		res, err := s.Ledger.Reserve(ctx, it.VariantID, s.StockLocationID, it.Qty, orderID, s.ReservationTTL)
		if err != nil {
			releaseAll()
			log.Printf("checkout %s: %s -> %s: %v", orderID, state, stateFailed, err)
			return nil, err
		}
		reserved = append(reserved, res)
	}
	state = stateReserved

	ord := &orders.Order{
		ID:                orderID,
		CartID:            c.ID,
		CustomerID:        in.CustomerID,
		Region:            c.Region,
		Currency:          c.Currency,
		ShippingAddress:   in.ShippingAddress,
		BillingAddress:    in.ShippingAddress,
		PromotionID:       totals.PromotionID,
		SubtotalMinor:     totals.SubtotalMinor,
		DiscountMinor:     totals.DiscountMinor,
		TaxMinor:          totals.TaxMinor,
		ShippingMinor:     totals.ShippingMinor,
		GrandTotalMinor:   totals.GrandTotal,
		Status:            orders.StatusPending,
		PaymentStatus:     orders.PaymentNotPaid,
		FulfillmentStatus: orders.FulfillmentNotFulfilled,
	}
	if in.BillingAddress != nil {
		ord.BillingAddress = *in.BillingAddress
	}
	for _, lt := range totals.Lines {
		ord.Items = append(ord.Items, orders.OrderItem{
			VariantID:      lt.VariantID,
			SKU:            lt.SKU,
			Title:          lt.Title,
			Qty:            lt.Qty,
			UnitPriceMinor: lt.UnitPriceMinor,
			LineTotalMinor: lt.LineTotalMinor,
		})
	}

	// the provider call happens before anything durable: a failure here
	// leaves no order row, no redeemed promotion use, and an open cart, so
	// the customer can simply retry. An intent the provider created for an
	// attempt that then lost the promotion race just expires unused.
	intentRef, err := s.Provider.CreateIntent(ctx, ord.GrandTotalMinor, ord.Currency, ord.ID)
	if err != nil {
		releaseAll()
		log.Printf("checkout %s: %s -> %s: %v", orderID, state, stateFailed, err)
		return nil, err
	}
	ord.PaymentIntentRef = intentRef
	ord.PaymentStatus = orders.PaymentAwaiting
	state = statePaymentPending

	// order + items, promotion redemption, and cart completion commit in one
	// transaction; losing the redemption race rolls all of it back
	if err := s.Orders.CreateFromCheckout(ctx, ord); err != nil {
		releaseAll()
		log.Printf("checkout %s: %s -> %s: %v", orderID, state, stateFailed, err)
		return nil, err
	}
	state = stateOrderCreated
	log.Printf("checkout %s: %s, order number %d", orderID, state, ord.Number)

	return &Result{
		OrderID:          ord.ID,
		OrderNumber:      ord.Number,
		PaymentIntentRef: intentRef,
		Totals:           totals,
	}, nil
}
