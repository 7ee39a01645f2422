package memory

import (
	"context"
	"time"

	"github.com/aqualaguna/direct-commerce-sub001/internal/domain"
)

// checkoutRepository — in-memory реализация CheckoutRepository.
type checkoutRepository struct {
	a accessor
}

// Create сохраняет новую сессию, если ID ещё не занят.
func (r *checkoutRepository) Create(ctx context.Context, checkout domain.CheckoutSession) error {
	return r.a.update(func(st *state) error {
		if _, exists := st.checkouts[checkout.ID]; exists {
			return domain.ErrVersionConflict
		}
		st.checkouts[checkout.ID] = cloneCheckout(checkout)
		return nil
	})
}

// Get возвращает сессию или ErrCheckoutNotFound.
func (r *checkoutRepository) Get(ctx context.Context, id string) (domain.CheckoutSession, error) {
	var (
		checkout domain.CheckoutSession
		found    bool
	)
	r.a.view(func(st *state) {
		var c domain.CheckoutSession
		if c, found = st.checkouts[id]; found {
			checkout = cloneCheckout(c)
		}
	})
	if !found {
		return domain.CheckoutSession{}, domain.ErrCheckoutNotFound
	}
	return checkout, nil
}

// Save перезаписывает сессию, проверяя версию (optimistic locking).
func (r *checkoutRepository) Save(ctx context.Context, checkout domain.CheckoutSession) error {
	return r.a.update(func(st *state) error {
		current, ok := st.checkouts[checkout.ID]
		if !ok {
			return domain.ErrCheckoutNotFound
		}
		if current.Version != checkout.Version {
			return domain.ErrVersionConflict
		}
		checkout.Version++
		checkout.UpdatedAt = time.Now().UTC()
		st.checkouts[checkout.ID] = cloneCheckout(checkout)
		return nil
	})
}

// TransitionStatus — атомарный compare-and-swap статуса сессии.
func (r *checkoutRepository) TransitionStatus(ctx context.Context, id string, from, to domain.CheckoutStatus) error {
	return r.a.update(func(st *state) error {
		current, ok := st.checkouts[id]
		if !ok {
			return domain.ErrCheckoutNotFound
		}
		if current.Status != from {
			return domain.ErrCheckoutLocked
		}
		current.Status = to
		current.Version++
		current.UpdatedAt = time.Now().UTC()
		st.checkouts[id] = current
		return nil
	})
}

var _ domain.CheckoutRepository = (*checkoutRepository)(nil)
