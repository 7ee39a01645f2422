package memory

import (
	"context"
	"time"

	"github.com/aqualaguna/direct-commerce-sub001/internal/domain"
)

// cartRepository — in-memory реализация CartRepository.
type cartRepository struct {
	a accessor
}

func (r *cartRepository) Create(ctx context.Context, cart domain.Cart) error {
	return r.a.update(func(st *state) error {
		if _, exists := st.carts[cart.ID]; exists {
			return domain.ErrVersionConflict
		}
		st.carts[cart.ID] = cloneCart(cart)
		return nil
	})
}

func (r *cartRepository) Get(ctx context.Context, id string) (domain.Cart, error) {
	var (
		cart  domain.Cart
		found bool
	)
	r.a.view(func(st *state) {
		var c domain.Cart
		if c, found = st.carts[id]; found {
			cart = cloneCart(c)
		}
	})
	if !found {
		return domain.Cart{}, domain.ErrCartNotFound
	}
	return cart, nil
}

// Save перезаписывает корзину вместе с позициями, проверяя версию.
func (r *cartRepository) Save(ctx context.Context, cart domain.Cart) error {
	return r.a.update(func(st *state) error {
		current, ok := st.carts[cart.ID]
		if !ok {
			return domain.ErrCartNotFound
		}
		if current.Version != cart.Version {
			return domain.ErrVersionConflict
		}
		cart.Version++
		cart.UpdatedAt = time.Now().UTC()
		st.carts[cart.ID] = cloneCart(cart)
		return nil
	})
}

var _ domain.CartRepository = (*cartRepository)(nil)
