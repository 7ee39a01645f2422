package domain

import "time"

// ConfirmationType различает ручной и автоматический путь подтверждения.
type ConfirmationType string

const (
	ConfirmationTypeManual    ConfirmationType = "manual"
	ConfirmationTypeAutomated ConfirmationType = "automated"
)

// ConfirmationStatus — состояние подтверждения платежа.
// pending → {confirmed, failed, cancelled}; все три конечных, дальнейших переходов нет.
type ConfirmationStatus string

const (
	ConfirmationStatusPending   ConfirmationStatus = "pending"
	ConfirmationStatusConfirmed ConfirmationStatus = "confirmed"
	ConfirmationStatusFailed    ConfirmationStatus = "failed"
	ConfirmationStatusCancelled ConfirmationStatus = "cancelled"
)

// IsTerminal сообщает, достигло ли подтверждение конечного состояния.
func (s ConfirmationStatus) IsTerminal() bool {
	switch s {
	case ConfirmationStatusConfirmed, ConfirmationStatusFailed, ConfirmationStatusCancelled:
		return true
	default:
		return false
	}
}

// ConfirmationEvent — запись журнала подтверждения. Журнал строго append-only:
// записи никогда не редактируются и не удаляются.
type ConfirmationEvent struct {
	Status   ConfirmationStatus
	Action   string
	Actor    Owner
	Note     string
	Occurred time.Time
}

// PaymentConfirmation — workflow-запись решения по платежу, строго 1:1 с Payment.
type PaymentConfirmation struct {
	ID          string
	PaymentID   string
	OrderID     string
	Type        ConfirmationType
	Status      ConfirmationStatus
	Method      string
	RetryCount  int32
	NextRetryAt time.Time
	History     []ConfirmationEvent
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AppendEvent добавляет запись в журнал подтверждения.
func (c *PaymentConfirmation) AppendEvent(status ConfirmationStatus, action string, actor Owner, note string, now time.Time) {
	c.History = append(c.History, ConfirmationEvent{
		Status:   status,
		Action:   action,
		Actor:    actor,
		Note:     note,
		Occurred: now,
	})
}

// Validate проверяет поля подтверждения при создании.
func (c *PaymentConfirmation) Validate() []error {
	var errs []error

	if c.PaymentID == "" {
		errs = append(errs, ErrPaymentIDRequired)
	}
	if c.OrderID == "" {
		errs = append(errs, ErrOrderIDRequired)
	}
	switch c.Type {
	case ConfirmationTypeManual, ConfirmationTypeAutomated:
	default:
		errs = append(errs, ErrValidation)
	}

	return errs
}
