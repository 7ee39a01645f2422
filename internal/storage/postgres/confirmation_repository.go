package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aqualaguna/direct-commerce-sub001/internal/domain"
)

type confirmationRepository struct {
	q querier
}

// Create сохраняет подтверждение. Уникальный индекс по payment_id
// обеспечивает строгую связь 1:1 на уровне базы.
func (r *confirmationRepository) Create(ctx context.Context, confirmation domain.PaymentConfirmation) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	history, err := encodeConfirmationHistory(confirmation.History)
	if err != nil {
		return err
	}

	var nextRetryAt sql.NullTime
	if !confirmation.NextRetryAt.IsZero() {
		nextRetryAt = sql.NullTime{Time: confirmation.NextRetryAt, Valid: true}
	}

	_, err = r.q.ExecContext(ctx, `
		INSERT INTO payment_confirmations (
			id, payment_id, order_id, type, status, method,
			retry_count, next_retry_at, history,
			version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		confirmation.ID, confirmation.PaymentID, confirmation.OrderID,
		string(confirmation.Type), string(confirmation.Status), confirmation.Method,
		confirmation.RetryCount, nextRetryAt, history,
		confirmation.Version, confirmation.CreatedAt, confirmation.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConfirmationExists
		}
		return fmt.Errorf("insert payment confirmation: %w", err)
	}

	return nil
}

func (r *confirmationRepository) Get(ctx context.Context, id string) (domain.PaymentConfirmation, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return r.selectOne(ctx, `WHERE id = $1`, id)
}

func (r *confirmationRepository) GetByPayment(ctx context.Context, paymentID string) (domain.PaymentConfirmation, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return r.selectOne(ctx, `WHERE payment_id = $1`, paymentID)
}

// Save перезаписывает подтверждение. Журнал append-only: сохранение с
// более коротким History отклоняется ещё до UPDATE.
func (r *confirmationRepository) Save(ctx context.Context, confirmation domain.PaymentConfirmation) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	current, err := r.selectOne(ctx, `WHERE id = $1`, confirmation.ID)
	if err != nil {
		return err
	}
	if len(confirmation.History) < len(current.History) {
		return fmt.Errorf("confirmation history cannot shrink: %w", domain.ErrValidation)
	}

	history, err := encodeConfirmationHistory(confirmation.History)
	if err != nil {
		return err
	}

	var nextRetryAt sql.NullTime
	if !confirmation.NextRetryAt.IsZero() {
		nextRetryAt = sql.NullTime{Time: confirmation.NextRetryAt, Valid: true}
	}

	res, err := r.q.ExecContext(ctx, `
		UPDATE payment_confirmations
		SET status = $1,
		    retry_count = $2,
		    next_retry_at = $3,
		    history = $4,
		    version = version + 1,
		    updated_at = $5
		WHERE id = $6
		  AND version = $7
	`,
		string(confirmation.Status), confirmation.RetryCount, nextRetryAt, history,
		time.Now().UTC(), confirmation.ID, confirmation.Version,
	)
	if err != nil {
		return fmt.Errorf("update payment confirmation: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrVersionConflict
	}

	return nil
}

func (r *confirmationRepository) ListRequiringRetry(ctx context.Context, now time.Time, limit int) ([]domain.PaymentConfirmation, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}

	rows, err := r.q.QueryContext(ctx, selectConfirmationQuery+`
		WHERE status = 'pending'
		  AND next_retry_at IS NOT NULL
		  AND next_retry_at <= $1
		ORDER BY next_retry_at ASC, id ASC
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list confirmations requiring retry: %w", err)
	}
	defer rows.Close()

	confirmations := make([]domain.PaymentConfirmation, 0, limit)
	for rows.Next() {
		confirmation, err := scanConfirmation(rows)
		if err != nil {
			return nil, err
		}
		confirmations = append(confirmations, confirmation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate confirmation rows: %w", err)
	}

	return confirmations, nil
}

const selectConfirmationQuery = `
	SELECT id, payment_id, order_id, type, status, method,
	       retry_count, next_retry_at, history,
	       version, created_at, updated_at
	FROM payment_confirmations
`

func (r *confirmationRepository) selectOne(ctx context.Context, where string, arg any) (domain.PaymentConfirmation, error) {
	confirmation, err := scanConfirmation(r.q.QueryRowContext(ctx, selectConfirmationQuery+where, arg))
	if err != nil {
		return domain.PaymentConfirmation{}, err
	}
	return confirmation, nil
}

func scanConfirmation(row rowScanner) (domain.PaymentConfirmation, error) {
	var (
		confirmation domain.PaymentConfirmation
		ctype        string
		status       string
		nextRetryAt  sql.NullTime
		history      []byte
	)

	err := row.Scan(
		&confirmation.ID, &confirmation.PaymentID, &confirmation.OrderID,
		&ctype, &status, &confirmation.Method,
		&confirmation.RetryCount, &nextRetryAt, &history,
		&confirmation.Version, &confirmation.CreatedAt, &confirmation.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PaymentConfirmation{}, domain.ErrConfirmationNotFound
		}
		return domain.PaymentConfirmation{}, fmt.Errorf("scan payment confirmation: %w", err)
	}

	confirmation.Type = domain.ConfirmationType(ctype)
	confirmation.Status = domain.ConfirmationStatus(status)
	if nextRetryAt.Valid {
		confirmation.NextRetryAt = nextRetryAt.Time.UTC()
	}
	if confirmation.History, err = decodeConfirmationHistory(history); err != nil {
		return domain.PaymentConfirmation{}, err
	}

	return confirmation, nil
}

var _ domain.ConfirmationRepository = (*confirmationRepository)(nil)
