package events

const (
	// TopicOrderCreated carries one event per successful checkout.
	TopicOrderCreated = "checkout.order.created"

	// TopicOrderUpdated carries lifecycle changes (confirmed, cancelled,
	// refunded, fulfillment progress) after the order exists.
	TopicOrderUpdated = "order.updated"

	// TopicPaymentEvents is the internal feed of verified provider webhook
	// events, consumed by the worker's payment event processor.
	TopicPaymentEvents = "payment.events"
)

// PartitionKey keeps all events of one order on one partition so consumers
// see them in order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
