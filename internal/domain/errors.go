package domain

import "errors"

var (
	// ErrValidation — входные данные нарушают инварианты модели (проверяется до любых мутаций).
	ErrValidation = errors.New("validation failed")
	// ErrCheckoutNotFound возвращается, если checkout-сессия не найдена в хранилище.
	ErrCheckoutNotFound = errors.New("checkout session not found")
	// ErrCartNotFound возвращается, если корзина не найдена.
	ErrCartNotFound = errors.New("cart not found")
	// ErrOrderNotFound возвращается, если заказ не найден.
	ErrOrderNotFound = errors.New("order not found")
	// ErrProductNotFound возвращается, если складская запись товара отсутствует.
	ErrProductNotFound = errors.New("inventory record not found")
	// ErrPaymentNotFound возвращается, если платёж не найден.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrConfirmationNotFound возвращается, если подтверждение платежа не найдено.
	ErrConfirmationNotFound = errors.New("payment confirmation not found")
	// ErrInvalidState — запрошенный переход недопустим из текущего статуса
	// (например, подтверждение уже подтверждённого платежа).
	ErrInvalidState = errors.New("invalid state for requested transition")
	// ErrInsufficientStock — резервирование увело бы available ниже нуля.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrOrderNumberExhausted — исчерпаны попытки сгенерировать уникальный номер заказа.
	ErrOrderNumberExhausted = errors.New("order number generation exhausted")
	// ErrUnauthorized — владелец запроса не совпадает с владельцем checkout/заказа.
	ErrUnauthorized = errors.New("owner mismatch")
	// ErrCheckoutLocked — checkout уже захвачен конкурентным завершением (CAS не прошёл).
	ErrCheckoutLocked = errors.New("checkout is locked by another completion")
	// ErrConfirmationExists — для платежа уже создано подтверждение (связь строго 1:1).
	ErrConfirmationExists = errors.New("confirmation already exists for payment")
	// ErrVersionConflict сигнализирует о конфликте версий при optimistic locking.
	ErrVersionConflict = errors.New("version conflict")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")

	// Ошибки заполнения полей (Validate*-методы возвращают их списком).
	ErrOwnerRequired     = errors.New("owner reference is required")
	ErrOwnerAmbiguous    = errors.New("owner must be exactly one of user or guest session")
	ErrItemsRequired     = errors.New("order must contain at least one item")
	ErrItemQtyInvalid    = errors.New("item qty must be greater than zero")
	ErrItemPriceInvalid  = errors.New("item price must be non-negative")
	ErrAmountNegative    = errors.New("monetary amount must be non-negative")
	ErrAmountMismatch    = errors.New("order amounts do not match items sum")
	ErrOrderIDRequired   = errors.New("order_id is required")
	ErrProductIDRequired = errors.New("product_id is required")
	ErrQtyInvalid        = errors.New("qty must be greater than zero")
	ErrReleaseUnderflow  = errors.New("release would drive reserved below zero")
	ErrAddressRequired   = errors.New("shipping and billing addresses are required")
	ErrPaymentIDRequired = errors.New("payment_id is required")
)

// IsNotFound проверяет, относится ли ошибка к классу "не найдено".
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCheckoutNotFound) ||
		errors.Is(err, ErrCartNotFound) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrPaymentNotFound) ||
		errors.Is(err, ErrConfirmationNotFound)
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
