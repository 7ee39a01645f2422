package domain

import "time"

// NotificationSender отправляет уведомления, инициированные действиями
// правил автоподтверждения. Реализация может публиковать в брокер или
// вызывать внешний сервис; отказ уведомления не должен ронять подтверждение.
type NotificationSender interface {
	Send(orderID string, owner Owner, subject, body string) error
}

// OutboxPublisher публикует события из transactional outbox.
// Должен быть идемпотентным: сообщение может прийти повторно.
type OutboxPublisher interface {
	Publish(event OutboxMessage) error
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// Clock абстрагирует источник времени для тестируемости retry-политик.
type Clock interface {
	Now() time.Time
}

// ClockFunc адаптирует функцию к интерфейсу Clock.
type ClockFunc func() time.Time

// Now возвращает текущее время из обёрнутой функции.
func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock возвращает часы на базе time.Now (UTC).
func SystemClock() Clock {
	return ClockFunc(func() time.Time { return time.Now().UTC() })
}
