package kafka

import "time"

// EventType определяет тип события
type EventType string

const (
	// События оформления заказа
	EventTypeCheckoutStarted EventType = "checkout.started"
	EventTypeCheckoutFailed  EventType = "checkout.failed"

	// События заказа
	EventTypeOrderCreated EventType = "order.created"
	EventTypeOrderPlaced  EventType = "order.placed"

	// События оплаты
	EventTypePaymentVerified EventType = "payment.verified"
	EventTypePaymentFailed   EventType = "payment.failed"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "storefront.order.events"
	TopicCheckoutEvents  = "storefront.checkout.events"
	TopicDeadLetterQueue = "storefront.dlq" // Dead Letter Queue для failed messages
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// OrderEvent представляет событие жизненного цикла заказа
type OrderEvent struct {
	EventType     EventType              `json:"event_type"`
	OrderID       string                 `json:"order_id"`
	UserID        string                 `json:"user_id"`
	Status        string                 `json:"status"`
	PaymentMethod string                 `json:"payment_method"`
	AmountMinor   int64                  `json:"amount_minor"`
	Currency      string                 `json:"currency"`
	Timestamp     time.Time              `json:"timestamp"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// CheckoutEvent представляет событие попытки оформления
type CheckoutEvent struct {
	EventType EventType              `json:"event_type"`
	UserID    string                 `json:"user_id"`
	Mode      string                 `json:"mode"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewOrderEvent создает новое событие заказа
func NewOrderEvent(eventType EventType, orderID, userID, status string, metadata map[string]interface{}) *OrderEvent {
	return &OrderEvent{
		EventType: eventType,
		OrderID:   orderID,
		UserID:    userID,
		Status:    status,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}

// NewCheckoutEvent создает новое событие оформления
func NewCheckoutEvent(eventType EventType, userID, mode string, metadata map[string]interface{}) *CheckoutEvent {
	return &CheckoutEvent{
		EventType: eventType,
		UserID:    userID,
		Mode:      mode,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}
