package history

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/aqualaguna/direct-commerce-sub001/internal/domain"
)

// Recorder пишет аудит-журнал заказов. Контракт чисто append-only:
// существующие записи никогда не обновляются и не удаляются.
// Используется сборщиком заказов и движком подтверждений как побочный
// эффект внутри их транзакций.
type Recorder struct {
	logger *log.Entry
	clock  domain.Clock
}

// NewRecorder создаёт рекордер аудита.
func NewRecorder(logger *log.Entry) *Recorder {
	if logger == nil {
		logger = log.WithField("component", "order-history")
	}
	return &Recorder{
		logger: logger,
		clock:  domain.SystemClock(),
	}
}

// Record добавляет произвольное событие в журнал заказа в рамках переданного tx.
func (r *Recorder) Record(ctx context.Context, tx domain.Store, eventType domain.HistoryEventType, orderID, previous, current string, actor domain.Owner, source domain.ChangeSource, note string) error {
	event := domain.OrderHistoryEvent{
		OrderID:       orderID,
		EventType:     eventType,
		Source:        source,
		PreviousValue: previous,
		NewValue:      current,
		Actor:         actor,
		Note:          note,
		Occurred:      r.clock.Now(),
	}

	if err := tx.History().Append(ctx, event); err != nil {
		return fmt.Errorf("append order history: %w", err)
	}
	return nil
}

// OrderCreated фиксирует создание заказа.
func (r *Recorder) OrderCreated(ctx context.Context, tx domain.Store, order *domain.Order, actor domain.Owner, source domain.ChangeSource) error {
	return r.Record(ctx, tx, domain.HistoryEventOrderCreated, order.ID, "", order.Number, actor, source, "")
}

// StatusChanged фиксирует смену статуса заказа.
func (r *Recorder) StatusChanged(ctx context.Context, tx domain.Store, orderID string, previous, current domain.OrderStatus, actor domain.Owner, source domain.ChangeSource) error {
	return r.Record(ctx, tx, domain.HistoryEventStatusChanged, orderID, string(previous), string(current), actor, source, "")
}

// PaymentUpdated фиксирует смену платёжного статуса заказа.
func (r *Recorder) PaymentUpdated(ctx context.Context, tx domain.Store, orderID string, previous, current domain.OrderPaymentStatus, actor domain.Owner, source domain.ChangeSource, note string) error {
	return r.Record(ctx, tx, domain.HistoryEventPaymentUpdated, orderID, string(previous), string(current), actor, source, note)
}

// SourceForOwner выводит источник изменения из типа актора.
func SourceForOwner(owner domain.Owner) domain.ChangeSource {
	switch owner.Type {
	case domain.OwnerTypeAdmin:
		return domain.SourceAdmin
	case domain.OwnerTypeSystem:
		return domain.SourceSystem
	case domain.OwnerTypeAPIToken:
		return domain.SourceAPIToken
	default:
		return domain.SourceCustomer
	}
}
