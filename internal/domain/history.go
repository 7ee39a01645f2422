package domain

import "time"

// HistoryEventType — тип события в журнале заказа.
type HistoryEventType string

const (
	HistoryEventOrderCreated   HistoryEventType = "order_created"
	HistoryEventStatusChanged  HistoryEventType = "status_changed"
	HistoryEventPaymentUpdated HistoryEventType = "payment_updated"
	HistoryEventInventory      HistoryEventType = "inventory_updated"
	HistoryEventCheckout       HistoryEventType = "checkout_updated"
)

// ChangeSource — откуда пришло изменение.
type ChangeSource string

const (
	SourceCustomer ChangeSource = "customer"
	SourceAdmin    ChangeSource = "admin"
	SourceSystem   ChangeSource = "system"
	SourceGateway  ChangeSource = "payment_gateway"
	SourceWebhook  ChangeSource = "webhook"
	SourceAPIToken ChangeSource = "api_token"
)

// OrderHistoryEvent — неизменяемая аудит-запись по заказу.
// Журнал append-only: записи никогда не обновляются и не удаляются.
type OrderHistoryEvent struct {
	ID            string
	OrderID       string
	EventType     HistoryEventType
	Source        ChangeSource
	PreviousValue string
	NewValue      string
	Actor         Owner
	Note          string
	Occurred      time.Time
}
