package kafka

import "time"

// EventType определяет тип события
type EventType string

const (
	// Order события
	EventTypeOrderCreated EventType = "order.created"

	// Confirmation события
	EventTypeConfirmationCreated   EventType = "payment.confirmation.created"
	EventTypeConfirmationConfirmed EventType = "payment.confirmation.confirmed"
	EventTypeConfirmationFailed    EventType = "payment.confirmation.failed"
	EventTypeConfirmationCancelled EventType = "payment.confirmation.cancelled"

	// Inventory события
	EventTypeStockReserved EventType = "inventory.reserved"
	EventTypeStockReleased EventType = "inventory.released"
	EventTypeLowStock      EventType = "inventory.low_stock"
)

// Типы агрегатов outbox-сообщений. По ним роутер выбирает topic.
const (
	AggregateOrder        = "order"
	AggregateConfirmation = "payment_confirmation"
	AggregateInventory    = "inventory"
)

// Topics для Kafka
const (
	TopicOrderEvents        = "commerce.order.events"
	TopicConfirmationEvents = "commerce.confirmation.events"
	TopicNotifications      = "commerce.notifications"
	TopicDeadLetterQueue    = "commerce.dlq" // Dead Letter Queue для failed messages
)

// OrderEvent представляет событие заказа
type OrderEvent struct {
	EventType   EventType              `json:"event_type"`
	OrderID     string                 `json:"order_id"`
	OrderNumber string                 `json:"order_number"`
	OwnerType   string                 `json:"owner_type"`
	OwnerID     string                 `json:"owner_id"`
	Status      string                 `json:"status"`
	Timestamp   time.Time              `json:"timestamp"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// ConfirmationEvent представляет событие платёжного подтверждения
type ConfirmationEvent struct {
	EventType      EventType `json:"event_type"`
	ConfirmationID string    `json:"confirmation_id"`
	PaymentID      string    `json:"payment_id"`
	OrderID        string    `json:"order_id"`
	Status         string    `json:"status"`
	Note           string    `json:"note,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// InventoryEvent представляет движение складских остатков
type InventoryEvent struct {
	EventType EventType `json:"event_type"`
	ProductID string    `json:"product_id"`
	OrderID   string    `json:"order_id,omitempty"`
	Qty       int32     `json:"qty"`
	Reserved  int32     `json:"reserved"`
	Available int32     `json:"available"`
	Timestamp time.Time `json:"timestamp"`
}

// NewOrderEvent создает новое событие заказа
func NewOrderEvent(eventType EventType, orderID, orderNumber, ownerType, ownerID, status string, metadata map[string]interface{}) *OrderEvent {
	return &OrderEvent{
		EventType:   eventType,
		OrderID:     orderID,
		OrderNumber: orderNumber,
		OwnerType:   ownerType,
		OwnerID:     ownerID,
		Status:      status,
		Timestamp:   time.Now(),
		Metadata:    metadata,
	}
}

// NewConfirmationEvent создает новое событие подтверждения платежа
func NewConfirmationEvent(eventType EventType, confirmationID, paymentID, orderID, status, note string) *ConfirmationEvent {
	return &ConfirmationEvent{
		EventType:      eventType,
		ConfirmationID: confirmationID,
		PaymentID:      paymentID,
		OrderID:        orderID,
		Status:         status,
		Note:           note,
		Timestamp:      time.Now(),
	}
}

// NewInventoryEvent создает новое событие движения остатков
func NewInventoryEvent(eventType EventType, productID, orderID string, qty, reserved, available int32) *InventoryEvent {
	return &InventoryEvent{
		EventType: eventType,
		ProductID: productID,
		OrderID:   orderID,
		Qty:       qty,
		Reserved:  reserved,
		Available: available,
		Timestamp: time.Now(),
	}
}
