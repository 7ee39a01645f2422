package domain

import "time"

// InventoryAction — тип движения остатков товара.
type InventoryAction string

const (
	// InventoryActionReserve — постановка резерва под заказ.
	InventoryActionReserve InventoryAction = "reserve"
	// InventoryActionRelease — снятие резерва (отмена/возврат).
	InventoryActionRelease InventoryAction = "release"
	// InventoryActionAdjust — ручная корректировка остатка.
	InventoryActionAdjust InventoryAction = "adjust"
)

// InventoryRecord — складская запись товара (1:1 с товаром).
// Инвариант: Available == Quantity - Reserved и Reserved >= 0.
// Мутируется исключительно операциями reserve/release/adjust,
// каждая из которых добавляет запись в InventoryHistory.
type InventoryRecord struct {
	ProductID         string
	Quantity          int32 // Физический остаток на складе.
	Reserved          int32 // Удержано под незавершённые заказы.
	Available         int32 // Quantity - Reserved, поддерживается операциями.
	LowStockThreshold int32
	Version           int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsLowStock сообщает, опустился ли доступный остаток до порога предупреждения.
func (r *InventoryRecord) IsLowStock() bool {
	return r.Available <= r.LowStockThreshold
}

// CheckInvariant проверяет согласованность счётчиков записи.
func (r *InventoryRecord) CheckInvariant() error {
	if r.Reserved < 0 || r.Quantity < 0 || r.Available < 0 {
		return ErrValidation
	}
	if r.Available != r.Quantity-r.Reserved {
		return ErrValidation
	}
	return nil
}

// InventoryContext фиксирует, от чьего имени и под какой заказ выполнено движение.
type InventoryContext struct {
	OrderID string
	Owner   Owner
	Reason  string
}

// InventoryHistory — append-only запись движения остатков:
// счётчики до/после, действие, контекст заказа и владельца.
type InventoryHistory struct {
	ID              string
	ProductID       string
	Action          InventoryAction
	Qty             int32
	QuantityBefore  int32
	QuantityAfter   int32
	ReservedBefore  int32
	ReservedAfter   int32
	AvailableBefore int32
	AvailableAfter  int32
	OrderID         string
	Actor           Owner
	Reason          string
	Occurred        time.Time
}
