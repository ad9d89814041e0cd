package orders

import "fmt"

// Three independent status dimensions live on one order. Each has its own
// transition table; a request that does not match an edge fails with
// InvalidTransitionError and leaves the row untouched.

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
	StatusRefunded   Status = "REFUNDED"
)

type PaymentStatus string

const (
	PaymentNotPaid           PaymentStatus = "NOT_PAID"
	PaymentAwaiting          PaymentStatus = "AWAITING"
	PaymentCaptured          PaymentStatus = "CAPTURED"
	PaymentPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
	PaymentRefunded          PaymentStatus = "REFUNDED"
)

type FulfillmentStatus string

const (
	FulfillmentNotFulfilled       FulfillmentStatus = "NOT_FULFILLED"
	FulfillmentPartiallyFulfilled FulfillmentStatus = "PARTIALLY_FULFILLED"
	FulfillmentFulfilled          FulfillmentStatus = "FULFILLED"
	FulfillmentShipped            FulfillmentStatus = "SHIPPED"
	FulfillmentDelivered          FulfillmentStatus = "DELIVERED"
	FulfillmentReturned           FulfillmentStatus = "RETURNED"
)

// ShipmentStatus is the status of a single fulfillment record; an order can
// have several, and the order-level FulfillmentStatus is derived from them.
type ShipmentStatus string

const (
	ShipmentPending   ShipmentStatus = "PENDING"
	ShipmentShipped   ShipmentStatus = "SHIPPED"
	ShipmentDelivered ShipmentStatus = "DELIVERED"
	ShipmentCancelled ShipmentStatus = "CANCELLED"
	ShipmentReturned  ShipmentStatus = "RETURNED"
)

// CANCELLED is reachable from every pre-SHIPPED state. REFUNDED additionally
// requires the payment dimension to be (partially) refunded; the store checks
// that guard before applying the edge.
var orderNext = map[Status]map[Status]bool{
	StatusPending:    {StatusConfirmed: true, StatusCancelled: true},
	StatusConfirmed:  {StatusProcessing: true, StatusCancelled: true, StatusRefunded: true},
	StatusProcessing: {StatusShipped: true, StatusCancelled: true, StatusRefunded: true},
	StatusShipped:    {StatusDelivered: true, StatusRefunded: true},
	StatusDelivered:  {StatusRefunded: true},
	StatusCancelled:  {StatusRefunded: true},
	StatusRefunded:   {},
}

var paymentNext = map[PaymentStatus]map[PaymentStatus]bool{
	PaymentNotPaid:           {PaymentAwaiting: true},
	PaymentAwaiting:          {PaymentCaptured: true, PaymentNotPaid: true},
	PaymentCaptured:          {PaymentPartiallyRefunded: true, PaymentRefunded: true},
	PaymentPartiallyRefunded: {PaymentPartiallyRefunded: true, PaymentRefunded: true},
	PaymentRefunded:          {},
}

// a shipment that left the warehouse can come back: RETURNED is reachable
// from SHIPPED (return to sender) and DELIVERED (customer return)
var shipmentNext = map[ShipmentStatus]map[ShipmentStatus]bool{
	ShipmentPending:   {ShipmentShipped: true, ShipmentCancelled: true},
	ShipmentShipped:   {ShipmentDelivered: true, ShipmentReturned: true},
	ShipmentDelivered: {ShipmentReturned: true},
	ShipmentCancelled: {},
	ShipmentReturned:  {},
}

func CanTransition(from, to Status) bool                 { return orderNext[from][to] }
func CanTransitionPayment(from, to PaymentStatus) bool   { return paymentNext[from][to] }
func CanTransitionShipment(from, to ShipmentStatus) bool { return shipmentNext[from][to] }

// InvalidTransitionError reports a rejected edge on one of the status
// dimensions. State is unchanged when it is returned.
type InvalidTransitionError struct {
	Dimension string // "order" | "payment" | "shipment"
	From, To  string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition %s -> %s", e.Dimension, e.From, e.To)
}
