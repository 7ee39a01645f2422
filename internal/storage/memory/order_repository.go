package memory

import (
	"context"
	"sort"
	"time"

	"github.com/aqualaguna/direct-commerce-sub001/internal/domain"
)

// orderRepository — in-memory реализация OrderRepository.
type orderRepository struct {
	a accessor
}

// Create сохраняет заказ вместе с позициями, если ID и номер свободны.
func (r *orderRepository) Create(ctx context.Context, order domain.Order) error {
	return r.a.update(func(st *state) error {
		if _, exists := st.orders[order.ID]; exists {
			return domain.ErrVersionConflict
		}
		if _, taken := st.orderNumbers[order.Number]; taken {
			return domain.ErrVersionConflict
		}
		st.orders[order.ID] = cloneOrder(order)
		st.orderNumbers[order.Number] = order.ID
		return nil
	})
}

func (r *orderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	var (
		order domain.Order
		found bool
	)
	r.a.view(func(st *state) {
		var o domain.Order
		if o, found = st.orders[id]; found {
			order = cloneOrder(o)
		}
	})
	if !found {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

// Save перезаписывает заказ, проверяя версию (optimistic locking).
// Позиции заказа неизменяемы и не перезаписываются.
func (r *orderRepository) Save(ctx context.Context, order domain.Order) error {
	return r.a.update(func(st *state) error {
		current, ok := st.orders[order.ID]
		if !ok {
			return domain.ErrOrderNotFound
		}
		if current.Version != order.Version {
			return domain.ErrVersionConflict
		}
		order.Items = current.Items
		order.Version++
		order.UpdatedAt = time.Now().UTC()
		st.orders[order.ID] = cloneOrder(order)
		return nil
	})
}

// NumberExists проверяет занятость номера заказа.
func (r *orderRepository) NumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	r.a.view(func(st *state) {
		_, exists = st.orderNumbers[number]
	})
	return exists, nil
}

// ListByOwner возвращает заказы владельца, новые первыми, ограничивая выборку limit (если >0).
func (r *orderRepository) ListByOwner(ctx context.Context, owner domain.Owner, limit int) ([]domain.Order, error) {
	var result []domain.Order
	r.a.view(func(st *state) {
		for _, order := range st.orders {
			if !order.Owner.Equals(owner) {
				continue
			}
			result = append(result, cloneOrder(order))
		}
	})

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
