package orders

import "time"

type Address struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Province   string `json:"province,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// Order line items are price-locked at checkout; after creation only the
// three status fields and the refunded counter change.
type Order struct {
	ID                string
	Number            int64 // display sequence
	CartID            string
	CustomerID        string
	Region            string
	Currency          string
	ShippingAddress   Address
	BillingAddress    Address
	PromotionID       string
	PaymentIntentRef  string
	SubtotalMinor     int64
	DiscountMinor     int64
	TaxMinor          int64
	ShippingMinor     int64
	GrandTotalMinor   int64
	RefundedMinor     int64
	Status            Status
	PaymentStatus     PaymentStatus
	FulfillmentStatus FulfillmentStatus
	Items             []OrderItem
	Fulfillments      []Fulfillment
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// OrderItem keeps title/SKU/price snapshots so historical orders stay
// accurate when the variant is later repriced or deleted.
type OrderItem struct {
	ID             string
	OrderID        string
	VariantID      string
	SKU            string
	Title          string
	Qty            int
	UnitPriceMinor int64
	LineTotalMinor int64
}

type Fulfillment struct {
	ID          string
	OrderID     string
	LocationID  string
	Status      ShipmentStatus
	TrackingNum string
	TrackingURL string
	Items       []FulfillmentItem
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type FulfillmentItem struct {
	FulfillmentID string
	VariantID     string
	Qty           int
}
