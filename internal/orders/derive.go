package orders

// progress levels per unit, ordered
const (
	progressNone = iota
	progressFulfilled
	progressShipped
	progressDelivered
)

// DeriveFulfillmentStatus computes the order-level fulfillment status
// bottom-up from the order's fulfillment records: the minimum common
// progress across all ordered quantities. Cancelled fulfillments do not
// count toward progress. Returned shipments did reach full progress; when
// every ordered unit has come back the order as a whole is RETURNED.
func DeriveFulfillmentStatus(items []OrderItem, fulfillments []Fulfillment) FulfillmentStatus {
	ordered := map[string]int{}
	for _, it := range items {
		ordered[it.VariantID] += it.Qty
	}

	// per variant: how many units reached at least each level
	atLeast := map[string][4]int{}
	returned := map[string]int{}
	for _, f := range fulfillments {
		if f.Status == ShipmentCancelled {
			continue
		}
		lvl := progressFulfilled
		switch f.Status {
		case ShipmentShipped:
			lvl = progressShipped
		case ShipmentDelivered:
			lvl = progressDelivered
		case ShipmentReturned:
			lvl = progressDelivered
			for _, fi := range f.Items {
				returned[fi.VariantID] += fi.Qty
			}
		}
		for _, fi := range f.Items {
			counts := atLeast[fi.VariantID]
			for l := progressFulfilled; l <= lvl; l++ {
				counts[l] += fi.Qty
			}
			atLeast[fi.VariantID] = counts
		}
	}

	min := progressDelivered
	any := false
	for variant, qty := range ordered {
		counts := atLeast[variant]
		if counts[progressFulfilled] > 0 {
			any = true
		}
		lvl := progressNone
		for l := progressDelivered; l >= progressFulfilled; l-- {
			if counts[l] >= qty {
				lvl = l
				break
			}
		}
		if lvl < min {
			min = lvl
		}
	}

	switch {
	case min == progressDelivered:
		for variant, qty := range ordered {
			if returned[variant] < qty {
				return FulfillmentDelivered
			}
		}
		return FulfillmentReturned
	case min == progressShipped:
		return FulfillmentShipped
	case min == progressFulfilled:
		return FulfillmentFulfilled
	case any:
		return FulfillmentPartiallyFulfilled
	default:
		return FulfillmentNotFulfilled
	}
}
