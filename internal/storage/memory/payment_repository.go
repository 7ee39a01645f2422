package memory

import (
	"context"
	"time"

	"github.com/aqualaguna/direct-commerce-sub001/internal/domain"
)

// paymentRepository — in-memory реализация PaymentRepository.
type paymentRepository struct {
	a accessor
}

func (r *paymentRepository) Create(ctx context.Context, payment domain.Payment) error {
	return r.a.update(func(st *state) error {
		if _, exists := st.payments[payment.ID]; exists {
			return domain.ErrVersionConflict
		}
		st.payments[payment.ID] = payment
		return nil
	})
}

func (r *paymentRepository) Get(ctx context.Context, id string) (domain.Payment, error) {
	var (
		payment domain.Payment
		found   bool
	)
	r.a.view(func(st *state) {
		payment, found = st.payments[id]
	})
	if !found {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	return payment, nil
}

func (r *paymentRepository) Save(ctx context.Context, payment domain.Payment) error {
	return r.a.update(func(st *state) error {
		current, ok := st.payments[payment.ID]
		if !ok {
			return domain.ErrPaymentNotFound
		}
		if current.Version != payment.Version {
			return domain.ErrVersionConflict
		}
		payment.Version++
		payment.UpdatedAt = time.Now().UTC()
		st.payments[payment.ID] = payment
		return nil
	})
}

var _ domain.PaymentRepository = (*paymentRepository)(nil)
