package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/aqualaguna/direct-commerce-sub001/internal/domain"
)

// historyRepository хранит аудит-журнал заказов в памяти.
// Контракт строго append-only: обновления и удаления не предусмотрены.
type historyRepository struct {
	a accessor
}

// Append добавляет событие в журнал заказа.
func (r *historyRepository) Append(ctx context.Context, event domain.OrderHistoryEvent) error {
	if event.OrderID == "" {
		return domain.ErrOrderIDRequired
	}
	return r.a.update(func(st *state) error {
		if event.ID == "" {
			event.ID = uuid.NewString()
		}
		st.orderHistory[event.OrderID] = append(st.orderHistory[event.OrderID], event)
		return nil
	})
}

// ListByOrder возвращает события заказа в хронологическом порядке.
func (r *historyRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.OrderHistoryEvent, error) {
	var result []domain.OrderHistoryEvent
	r.a.view(func(st *state) {
		result = append([]domain.OrderHistoryEvent(nil), st.orderHistory[orderID]...)
	})
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Occurred.Before(result[j].Occurred)
	})
	return result, nil
}

var _ domain.OrderHistoryRepository = (*historyRepository)(nil)
