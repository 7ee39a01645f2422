package domain

import "time"

// PaymentStatus описывает состояние платежа.
type PaymentStatus string

const (
	// PaymentStatusPending — платёж создан, решение по нему не принято.
	PaymentStatusPending PaymentStatus = "pending"
	// PaymentStatusConfirmed — платёж подтверждён вручную или автоматикой.
	PaymentStatusConfirmed PaymentStatus = "confirmed"
	// PaymentStatusRejected — платёж отклонён оператором.
	PaymentStatusRejected PaymentStatus = "rejected"
	// PaymentStatusCancelled — платёж отменён до подтверждения.
	PaymentStatusCancelled PaymentStatus = "cancelled"
	// PaymentStatusRefunded — средства возвращены.
	PaymentStatusRefunded PaymentStatus = "refunded"
	// PaymentStatusFailed — платёж завершился ошибкой.
	PaymentStatusFailed PaymentStatus = "failed"
)

// Payment описывает платёж, связанный с заказом.
type Payment struct {
	ID          string
	OrderID     string
	MethodCode  string // Код способа оплаты: cash, bank_transfer, cod и т.п.
	AmountMinor int64
	Currency    string
	Status      PaymentStatus
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate проверяет корректность полей платежа и возвращает ошибки, если они есть.
func (p *Payment) Validate() []error {
	var errs []error

	if p.OrderID == "" {
		errs = append(errs, ErrOrderIDRequired)
	}
	if p.MethodCode == "" {
		errs = append(errs, ErrValidation)
	}
	if p.AmountMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}

	return errs
}
