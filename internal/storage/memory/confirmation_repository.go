package memory

import (
	"context"
	"sort"
	"time"

	"github.com/aqualaguna/direct-commerce-sub001/internal/domain"
)

// confirmationRepository — in-memory реализация ConfirmationRepository.
type confirmationRepository struct {
	a accessor
}

// Create сохраняет подтверждение, отвергая второе подтверждение того же платежа.
func (r *confirmationRepository) Create(ctx context.Context, confirmation domain.PaymentConfirmation) error {
	return r.a.update(func(st *state) error {
		if _, exists := st.confirmations[confirmation.ID]; exists {
			return domain.ErrVersionConflict
		}
		if _, taken := st.confByPayment[confirmation.PaymentID]; taken {
			return domain.ErrConfirmationExists
		}
		st.confirmations[confirmation.ID] = cloneConfirmation(confirmation)
		st.confByPayment[confirmation.PaymentID] = confirmation.ID
		return nil
	})
}

func (r *confirmationRepository) Get(ctx context.Context, id string) (domain.PaymentConfirmation, error) {
	var (
		confirmation domain.PaymentConfirmation
		found        bool
	)
	r.a.view(func(st *state) {
		var c domain.PaymentConfirmation
		if c, found = st.confirmations[id]; found {
			confirmation = cloneConfirmation(c)
		}
	})
	if !found {
		return domain.PaymentConfirmation{}, domain.ErrConfirmationNotFound
	}
	return confirmation, nil
}

func (r *confirmationRepository) GetByPayment(ctx context.Context, paymentID string) (domain.PaymentConfirmation, error) {
	var (
		confirmation domain.PaymentConfirmation
		found        bool
	)
	r.a.view(func(st *state) {
		id, ok := st.confByPayment[paymentID]
		if !ok {
			return
		}
		var c domain.PaymentConfirmation
		if c, found = st.confirmations[id]; found {
			confirmation = cloneConfirmation(c)
		}
	})
	if !found {
		return domain.PaymentConfirmation{}, domain.ErrConfirmationNotFound
	}
	return confirmation, nil
}

// Save перезаписывает подтверждение, проверяя версию. Журнал может только расти:
// попытка укоротить History отвергается как нарушение append-only контракта.
func (r *confirmationRepository) Save(ctx context.Context, confirmation domain.PaymentConfirmation) error {
	return r.a.update(func(st *state) error {
		current, ok := st.confirmations[confirmation.ID]
		if !ok {
			return domain.ErrConfirmationNotFound
		}
		if current.Version != confirmation.Version {
			return domain.ErrVersionConflict
		}
		if len(confirmation.History) < len(current.History) {
			return domain.ErrValidation
		}
		confirmation.Version++
		confirmation.UpdatedAt = time.Now().UTC()
		st.confirmations[confirmation.ID] = cloneConfirmation(confirmation)
		return nil
	})
}

// ListRequiringRetry возвращает pending-подтверждения, чей срок повторной
// оценки наступил, по возрастанию NextRetryAt.
func (r *confirmationRepository) ListRequiringRetry(ctx context.Context, now time.Time, limit int) ([]domain.PaymentConfirmation, error) {
	var result []domain.PaymentConfirmation
	r.a.view(func(st *state) {
		for _, c := range st.confirmations {
			if c.Status != domain.ConfirmationStatusPending {
				continue
			}
			if c.NextRetryAt.IsZero() || c.NextRetryAt.After(now) {
				continue
			}
			result = append(result, cloneConfirmation(c))
		}
	})

	sort.Slice(result, func(i, j int) bool {
		return result[i].NextRetryAt.Before(result[j].NextRetryAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

var _ domain.ConfirmationRepository = (*confirmationRepository)(nil)
