package inventory

import (
	"context"
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/aqualaguna/direct-commerce-sub001/internal/domain"
	"github.com/aqualaguna/direct-commerce-sub001/internal/messaging/kafka"
	"github.com/aqualaguna/direct-commerce-sub001/internal/metrics"
)

// Ledger — единственная точка мутации складских записей. Каждая операция
// reserve/release/adjust пересчитывает available = quantity - reserved и
// добавляет в InventoryHistory запись со счётчиками до/после.
type Ledger struct {
	store   domain.Store
	logger  *log.Entry
	metrics *metrics.CommerceMetrics
	clock   domain.Clock
}

// NewLedger создаёт рабочий экземпляр с метриками.
func NewLedger(store domain.Store, logger *log.Entry) *Ledger {
	if logger == nil {
		logger = log.WithField("component", "inventory-ledger")
	}
	return &Ledger{
		store:   store,
		logger:  logger,
		metrics: metrics.NewCommerceMetrics(),
		clock:   domain.SystemClock(),
	}
}

// NewLedgerWithoutMetrics создаёт ledger без метрик (для тестов).
func NewLedgerWithoutMetrics(store domain.Store, logger *log.Entry) *Ledger {
	ledger := NewLedger(store, logger)
	ledger.metrics = nil
	return ledger
}

// Reserve ставит резерв под заказ в собственной транзакции.
func (l *Ledger) Reserve(ctx context.Context, productID string, qty int32, ictx domain.InventoryContext) error {
	return l.store.WithinTx(ctx, func(tx domain.Store) error {
		return l.ReserveTx(ctx, tx, productID, qty, ictx)
	})
}

// ReserveTx ставит резерв в рамках уже открытой транзакции — так сборка
// заказа удерживает резерв и запись заказа в одном атомарном блоке.
// Если available < qty, возвращается ErrInsufficientStock и транзакция
// вызывающего обязана откатиться целиком.
func (l *Ledger) ReserveTx(ctx context.Context, tx domain.Store, productID string, qty int32, ictx domain.InventoryContext) error {
	if err := validateMovement(productID, qty); err != nil {
		return err
	}

	record, err := tx.Inventory().Get(ctx, productID)
	if err != nil {
		return err
	}

	if record.Available < qty {
		if l.metrics != nil {
			l.metrics.RecordInventoryOp("insufficient")
		}
		l.logger.WithFields(log.Fields{
			"product_id": productID,
			"requested":  qty,
			"available":  record.Available,
			"order_id":   ictx.OrderID,
		}).Warn("reservation rejected: insufficient stock")
		return fmt.Errorf("product %s: %w", productID, domain.ErrInsufficientStock)
	}

	before := record
	record.Reserved += qty
	record.Available = record.Quantity - record.Reserved

	if err := l.apply(ctx, tx, domain.InventoryActionReserve, before, record, qty, ictx); err != nil {
		return err
	}

	if l.metrics != nil {
		l.metrics.RecordInventoryOp("reserved")
	}
	return nil
}

// Release снимает резерв в собственной транзакции (отмена/возврат заказа).
func (l *Ledger) Release(ctx context.Context, productID string, qty int32, ictx domain.InventoryContext) error {
	return l.store.WithinTx(ctx, func(tx domain.Store) error {
		return l.ReleaseTx(ctx, tx, productID, qty, ictx)
	})
}

// ReleaseTx снимает резерв в рамках открытой транзакции.
// Reserved никогда не опускается ниже нуля.
func (l *Ledger) ReleaseTx(ctx context.Context, tx domain.Store, productID string, qty int32, ictx domain.InventoryContext) error {
	if err := validateMovement(productID, qty); err != nil {
		return err
	}

	record, err := tx.Inventory().Get(ctx, productID)
	if err != nil {
		return err
	}

	if record.Reserved < qty {
		return fmt.Errorf("product %s: %w", productID, domain.ErrReleaseUnderflow)
	}

	before := record
	record.Reserved -= qty
	record.Available = record.Quantity - record.Reserved

	if err := l.apply(ctx, tx, domain.InventoryActionRelease, before, record, qty, ictx); err != nil {
		return err
	}

	if l.metrics != nil {
		l.metrics.RecordInventoryOp("released")
	}
	return nil
}

// Adjust выполняет ручную корректировку физического остатка (приёмка,
// инвентаризация). Остаток не может опуститься ниже текущего резерва.
func (l *Ledger) Adjust(ctx context.Context, productID string, delta int32, ictx domain.InventoryContext) error {
	return l.store.WithinTx(ctx, func(tx domain.Store) error {
		if productID == "" {
			return domain.ErrProductIDRequired
		}

		record, err := tx.Inventory().Get(ctx, productID)
		if err != nil {
			return err
		}

		newQuantity := record.Quantity + delta
		if newQuantity < record.Reserved {
			return fmt.Errorf("product %s: %w", productID, domain.ErrInsufficientStock)
		}

		before := record
		record.Quantity = newQuantity
		record.Available = record.Quantity - record.Reserved

		if err := l.apply(ctx, tx, domain.InventoryActionAdjust, before, record, delta, ictx); err != nil {
			return err
		}

		if l.metrics != nil {
			l.metrics.RecordInventoryOp("adjusted")
		}
		return nil
	})
}

// apply сохраняет запись, добавляет движение в историю и кладёт событие в
// outbox одним блоком. Пересечение порога low-stock даёт отдельное событие
// и warn в лог ровно один раз, на самом пересечении.
func (l *Ledger) apply(ctx context.Context, tx domain.Store, action domain.InventoryAction, before, after domain.InventoryRecord, qty int32, ictx domain.InventoryContext) error {
	if err := after.CheckInvariant(); err != nil {
		return err
	}
	if err := tx.Inventory().Save(ctx, after); err != nil {
		return fmt.Errorf("save inventory record: %w", err)
	}

	entry := domain.InventoryHistory{
		ProductID:       after.ProductID,
		Action:          action,
		Qty:             qty,
		QuantityBefore:  before.Quantity,
		QuantityAfter:   after.Quantity,
		ReservedBefore:  before.Reserved,
		ReservedAfter:   after.Reserved,
		AvailableBefore: before.Available,
		AvailableAfter:  after.Available,
		OrderID:         ictx.OrderID,
		Actor:           ictx.Owner,
		Reason:          ictx.Reason,
		Occurred:        l.clock.Now(),
	}
	if err := tx.Inventory().AppendHistory(ctx, entry); err != nil {
		return fmt.Errorf("append inventory history: %w", err)
	}

	var movementType kafka.EventType
	switch action {
	case domain.InventoryActionReserve:
		movementType = kafka.EventTypeStockReserved
	case domain.InventoryActionRelease:
		movementType = kafka.EventTypeStockReleased
	}
	if movementType != "" {
		if err := l.emit(ctx, tx, movementType, after, qty, ictx.OrderID); err != nil {
			return err
		}
	}

	if after.IsLowStock() && !before.IsLowStock() {
		l.logger.WithFields(log.Fields{
			"product_id": after.ProductID,
			"available":  after.Available,
			"threshold":  after.LowStockThreshold,
		}).Warn("product is low on stock")
		if err := l.emit(ctx, tx, kafka.EventTypeLowStock, after, qty, ictx.OrderID); err != nil {
			return err
		}
	}
	return nil
}

// emit кладёт складское событие в outbox той же транзакцией.
func (l *Ledger) emit(ctx context.Context, tx domain.Store, eventType kafka.EventType, record domain.InventoryRecord, qty int32, orderID string) error {
	payload, err := json.Marshal(kafka.NewInventoryEvent(eventType, record.ProductID, orderID, qty, record.Reserved, record.Available))
	if err != nil {
		return fmt.Errorf("marshal inventory event: %w", err)
	}

	msg := domain.OutboxMessage{
		AggregateType: kafka.AggregateInventory,
		AggregateID:   record.ProductID,
		EventType:     string(eventType),
		Payload:       payload,
	}
	if _, err := tx.Outbox().Enqueue(ctx, msg); err != nil {
		return fmt.Errorf("enqueue inventory event: %w", err)
	}
	if l.metrics != nil {
		l.metrics.RecordOutboxEvent()
	}
	return nil
}

func validateMovement(productID string, qty int32) error {
	if productID == "" {
		return domain.ErrProductIDRequired
	}
	if qty <= 0 {
		return domain.ErrQtyInvalid
	}
	return nil
}
