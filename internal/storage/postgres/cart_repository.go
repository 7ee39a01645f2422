package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aqualaguna/direct-commerce-sub001/internal/domain"
)

type cartRepository struct {
	q querier
}

func (r *cartRepository) Create(ctx context.Context, cart domain.Cart) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO carts (
			id, owner_type, owner_id, subtotal_minor, version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		cart.ID, string(cart.Owner.Type), cart.Owner.ID,
		cart.SubtotalMinor, cart.Version, cart.CreatedAt, cart.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrVersionConflict
		}
		return fmt.Errorf("insert cart: %w", err)
	}

	for _, item := range cart.Items {
		if err := r.insertItem(ctx, cart.ID, item); err != nil {
			return err
		}
	}

	return nil
}

func (r *cartRepository) Get(ctx context.Context, id string) (domain.Cart, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		cart      domain.Cart
		ownerType string
	)

	err := r.q.QueryRowContext(ctx, `
		SELECT id, owner_type, owner_id, subtotal_minor, version, created_at, updated_at
		FROM carts
		WHERE id = $1
	`, id).Scan(
		&cart.ID, &ownerType, &cart.Owner.ID,
		&cart.SubtotalMinor, &cart.Version, &cart.CreatedAt, &cart.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Cart{}, domain.ErrCartNotFound
		}
		return domain.Cart{}, fmt.Errorf("select cart: %w", err)
	}
	cart.Owner.Type = domain.OwnerType(ownerType)

	items, err := r.loadItems(ctx, cart.ID)
	if err != nil {
		return domain.Cart{}, err
	}
	cart.Items = items

	return cart, nil
}

// Save перезаписывает корзину вместе с позициями: строки позиций заменяются,
// soft-deleted позиции сохраняются со своим deleted_at.
func (r *cartRepository) Save(ctx context.Context, cart domain.Cart) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.q.ExecContext(ctx, `
		UPDATE carts
		SET subtotal_minor = $1,
		    version = version + 1,
		    updated_at = $2
		WHERE id = $3
		  AND version = $4
	`, cart.SubtotalMinor, time.Now().UTC(), cart.ID, cart.Version)
	if err != nil {
		return fmt.Errorf("update cart: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		if _, err := r.Get(ctx, cart.ID); err != nil {
			return err
		}
		return domain.ErrVersionConflict
	}

	if _, err := r.q.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cart.ID); err != nil {
		return fmt.Errorf("replace cart items: %w", err)
	}
	for _, item := range cart.Items {
		if err := r.insertItem(ctx, cart.ID, item); err != nil {
			return err
		}
	}

	return nil
}

func (r *cartRepository) insertItem(ctx context.Context, cartID string, item domain.CartItem) error {
	var deletedAt sql.NullTime
	if item.DeletedAt != nil {
		deletedAt = sql.NullTime{Time: *item.DeletedAt, Valid: true}
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO cart_items (
			id, cart_id, product_id, variant_id, qty, price_minor, deleted_at, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		item.ID, cartID, item.ProductID, item.VariantID,
		item.Qty, item.PriceMinor, deletedAt, item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert cart item: %w", err)
	}
	return nil
}

func (r *cartRepository) loadItems(ctx context.Context, cartID string) ([]domain.CartItem, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, product_id, variant_id, qty, price_minor, deleted_at, created_at
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY created_at ASC, id ASC
	`, cartID)
	if err != nil {
		return nil, fmt.Errorf("load cart items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.CartItem, 0)
	for rows.Next() {
		var (
			item      domain.CartItem
			deletedAt sql.NullTime
		)
		if err := rows.Scan(
			&item.ID, &item.ProductID, &item.VariantID,
			&item.Qty, &item.PriceMinor, &deletedAt, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		if deletedAt.Valid {
			t := deletedAt.Time.UTC()
			item.DeletedAt = &t
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart items: %w", err)
	}

	return items, nil
}

var _ domain.CartRepository = (*cartRepository)(nil)
