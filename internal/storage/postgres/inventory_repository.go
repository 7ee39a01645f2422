package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aqualaguna/direct-commerce-sub001/internal/domain"
)

type inventoryRepository struct {
	q       querier
	locking bool
}

func (r *inventoryRepository) Create(ctx context.Context, record domain.InventoryRecord) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO inventory (
			product_id, quantity, reserved, available, low_stock_threshold,
			version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		record.ProductID, record.Quantity, record.Reserved, record.Available,
		record.LowStockThreshold, record.Version, record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrVersionConflict
		}
		return fmt.Errorf("insert inventory record: %w", err)
	}

	return nil
}

// Get читает складскую запись; внутри транзакции строка блокируется
// через SELECT ... FOR UPDATE, чтобы конкурентные резервы сериализовались.
func (r *inventoryRepository) Get(ctx context.Context, productID string) (domain.InventoryRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := `
		SELECT product_id, quantity, reserved, available, low_stock_threshold,
		       version, created_at, updated_at
		FROM inventory
		WHERE product_id = $1
	`
	if r.locking {
		query += " FOR UPDATE"
	}

	var record domain.InventoryRecord
	err := r.q.QueryRowContext(ctx, query, productID).Scan(
		&record.ProductID, &record.Quantity, &record.Reserved, &record.Available,
		&record.LowStockThreshold, &record.Version, &record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.InventoryRecord{}, domain.ErrProductNotFound
		}
		return domain.InventoryRecord{}, fmt.Errorf("select inventory record: %w", err)
	}

	return record, nil
}

func (r *inventoryRepository) Save(ctx context.Context, record domain.InventoryRecord) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.q.ExecContext(ctx, `
		UPDATE inventory
		SET quantity = $1,
		    reserved = $2,
		    available = $3,
		    low_stock_threshold = $4,
		    version = version + 1,
		    updated_at = $5
		WHERE product_id = $6
		  AND version = $7
	`,
		record.Quantity, record.Reserved, record.Available, record.LowStockThreshold,
		time.Now().UTC(), record.ProductID, record.Version,
	)
	if err != nil {
		return fmt.Errorf("update inventory record: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		if _, err := r.Get(ctx, record.ProductID); err != nil {
			return err
		}
		return domain.ErrVersionConflict
	}

	return nil
}

func (r *inventoryRepository) AppendHistory(ctx context.Context, entry domain.InventoryHistory) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO inventory_history (
			id, product_id, action, qty,
			quantity_before, quantity_after,
			reserved_before, reserved_after,
			available_before, available_after,
			order_id, actor_type, actor_id, reason, occurred_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`,
		entry.ID, entry.ProductID, string(entry.Action), entry.Qty,
		entry.QuantityBefore, entry.QuantityAfter,
		entry.ReservedBefore, entry.ReservedAfter,
		entry.AvailableBefore, entry.AvailableAfter,
		entry.OrderID, string(entry.Actor.Type), entry.Actor.ID, entry.Reason, entry.Occurred,
	)
	if err != nil {
		return fmt.Errorf("insert inventory history: %w", err)
	}

	return nil
}

func (r *inventoryRepository) ListHistory(ctx context.Context, productID string) ([]domain.InventoryHistory, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.q.QueryContext(ctx, `
		SELECT id, product_id, action, qty,
		       quantity_before, quantity_after,
		       reserved_before, reserved_after,
		       available_before, available_after,
		       order_id, actor_type, actor_id, reason, occurred_at
		FROM inventory_history
		WHERE product_id = $1
		ORDER BY occurred_at ASC, id ASC
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("list inventory history: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.InventoryHistory, 0)
	for rows.Next() {
		var (
			entry     domain.InventoryHistory
			action    string
			actorType string
		)
		if err := rows.Scan(
			&entry.ID, &entry.ProductID, &action, &entry.Qty,
			&entry.QuantityBefore, &entry.QuantityAfter,
			&entry.ReservedBefore, &entry.ReservedAfter,
			&entry.AvailableBefore, &entry.AvailableAfter,
			&entry.OrderID, &actorType, &entry.Actor.ID, &entry.Reason, &entry.Occurred,
		); err != nil {
			return nil, fmt.Errorf("scan inventory history: %w", err)
		}
		entry.Action = domain.InventoryAction(action)
		entry.Actor.Type = domain.OwnerType(actorType)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inventory history: %w", err)
	}

	return entries, nil
}

var _ domain.InventoryRepository = (*inventoryRepository)(nil)
