package domain

import (
	"context"
	"time"
)

// Store — абстракция документного хранилища платформы: по репозиторию на
// сущность плюс транзакционный примитив WithinTx. Ядро никогда не зависит
// от конкретной реализации.
type Store interface {
	Checkouts() CheckoutRepository
	Carts() CartRepository
	Orders() OrderRepository
	Inventory() InventoryRepository
	Payments() PaymentRepository
	Confirmations() ConfirmationRepository
	History() OrderHistoryRepository
	Outbox() OutboxRepository

	// WithinTx выполняет fn в рамках одной транзакции: любая ошибка из fn
	// откатывает все записи. Переданный fn получает tx-привязанный Store.
	// Вложенный вызов исполняется в уже открытой транзакции.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

// CheckoutRepository описывает хранилище checkout-сессий.
type CheckoutRepository interface {
	Create(ctx context.Context, checkout CheckoutSession) error
	// Get возвращает сессию или ErrCheckoutNotFound.
	Get(ctx context.Context, id string) (CheckoutSession, error)
	// Save применяет обновления с учётом optimistic locking (Version).
	Save(ctx context.Context, checkout CheckoutSession) error
	// TransitionStatus атомарно переводит сессию из from в to.
	// Если текущий статус не совпадает с from — ErrCheckoutLocked.
	// Это compare-and-swap, закрывающий гонку двойного завершения.
	TransitionStatus(ctx context.Context, id string, from, to CheckoutStatus) error
}

// CartRepository описывает хранилище корзин.
type CartRepository interface {
	Create(ctx context.Context, cart Cart) error
	Get(ctx context.Context, id string) (Cart, error)
	// Save перезаписывает корзину вместе с позициями (включая soft-deleted).
	Save(ctx context.Context, cart Cart) error
}

// OrderRepository описывает хранилище заказов.
type OrderRepository interface {
	// Create сохраняет заказ вместе с позициями одной операцией.
	Create(ctx context.Context, order Order) error
	Get(ctx context.Context, id string) (Order, error)
	Save(ctx context.Context, order Order) error
	// NumberExists проверяет занятость номера заказа.
	NumberExists(ctx context.Context, number string) (bool, error)
	// ListByOwner возвращает заказы владельца, новые первыми.
	ListByOwner(ctx context.Context, owner Owner, limit int) ([]Order, error)
}

// InventoryRepository описывает хранилище складских записей.
type InventoryRepository interface {
	Create(ctx context.Context, record InventoryRecord) error
	// Get возвращает запись товара; внутри транзакции реализация обязана
	// удерживать блокировку строки до конца транзакции (SELECT ... FOR UPDATE),
	// чтобы конкурентные резервы не потеряли обновления.
	Get(ctx context.Context, productID string) (InventoryRecord, error)
	// Save сохраняет запись с проверкой версии.
	Save(ctx context.Context, record InventoryRecord) error
	// AppendHistory добавляет движение остатков; записи никогда не мутируются.
	AppendHistory(ctx context.Context, entry InventoryHistory) error
	ListHistory(ctx context.Context, productID string) ([]InventoryHistory, error)
}

// PaymentRepository описывает хранилище платежей.
type PaymentRepository interface {
	Create(ctx context.Context, payment Payment) error
	Get(ctx context.Context, id string) (Payment, error)
	Save(ctx context.Context, payment Payment) error
}

// ConfirmationRepository описывает хранилище подтверждений платежей.
type ConfirmationRepository interface {
	// Create сохраняет подтверждение; если для платежа оно уже существует —
	// ErrConfirmationExists (связь строго 1:1).
	Create(ctx context.Context, confirmation PaymentConfirmation) error
	Get(ctx context.Context, id string) (PaymentConfirmation, error)
	GetByPayment(ctx context.Context, paymentID string) (PaymentConfirmation, error)
	Save(ctx context.Context, confirmation PaymentConfirmation) error
	// ListRequiringRetry возвращает pending-подтверждения с NextRetryAt <= now,
	// отсортированные по NextRetryAt по возрастанию.
	ListRequiringRetry(ctx context.Context, now time.Time, limit int) ([]PaymentConfirmation, error)
}

// OrderHistoryRepository — append-only журнал аудита заказов.
type OrderHistoryRepository interface {
	Append(ctx context.Context, event OrderHistoryEvent) error
	ListByOrder(ctx context.Context, orderID string) ([]OrderHistoryEvent, error)
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}
