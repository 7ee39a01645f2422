package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aqualaguna/direct-commerce-sub001/internal/domain"
)

type paymentRepository struct {
	q querier
}

func (r *paymentRepository) Create(ctx context.Context, payment domain.Payment) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO payments (
			id, order_id, method_code, amount_minor, currency,
			status, version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		payment.ID, payment.OrderID, payment.MethodCode, payment.AmountMinor, payment.Currency,
		string(payment.Status), payment.Version, payment.CreatedAt, payment.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrVersionConflict
		}
		return fmt.Errorf("insert payment: %w", err)
	}

	return nil
}

func (r *paymentRepository) Get(ctx context.Context, id string) (domain.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		payment domain.Payment
		status  string
	)

	err := r.q.QueryRowContext(ctx, `
		SELECT id, order_id, method_code, amount_minor, currency,
		       status, version, created_at, updated_at
		FROM payments
		WHERE id = $1
	`, id).Scan(
		&payment.ID, &payment.OrderID, &payment.MethodCode, &payment.AmountMinor, &payment.Currency,
		&status, &payment.Version, &payment.CreatedAt, &payment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Payment{}, domain.ErrPaymentNotFound
		}
		return domain.Payment{}, fmt.Errorf("select payment: %w", err)
	}
	payment.Status = domain.PaymentStatus(status)

	return payment, nil
}

func (r *paymentRepository) Save(ctx context.Context, payment domain.Payment) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.q.ExecContext(ctx, `
		UPDATE payments
		SET status = $1,
		    version = version + 1,
		    updated_at = $2
		WHERE id = $3
		  AND version = $4
	`, string(payment.Status), time.Now().UTC(), payment.ID, payment.Version)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		if _, err := r.Get(ctx, payment.ID); err != nil {
			return err
		}
		return domain.ErrVersionConflict
	}

	return nil
}

var _ domain.PaymentRepository = (*paymentRepository)(nil)
