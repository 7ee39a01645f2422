package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aqualaguna/direct-commerce-sub001/internal/domain"
)

type orderRepository struct {
	q querier
}

func (r *orderRepository) Create(ctx context.Context, order domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	shipping, err := encodeAddress(order.ShippingAddress)
	if err != nil {
		return err
	}
	billing, err := encodeAddress(order.BillingAddress)
	if err != nil {
		return err
	}

	_, err = r.q.ExecContext(ctx, `
		INSERT INTO orders (
			id, number, owner_type, owner_id, checkout_id,
			status, payment_status,
			subtotal_minor, tax_minor, shipping_minor, discount_minor, total_minor, currency,
			shipping_address, billing_address, shipping_method,
			version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
	`,
		order.ID, order.Number, string(order.Owner.Type), order.Owner.ID, order.CheckoutID,
		string(order.Status), string(order.PaymentStatus),
		order.SubtotalMinor, order.TaxMinor, order.ShippingMinor, order.DiscountMinor, order.TotalMinor, order.Currency,
		shipping, billing, order.ShippingMethod,
		order.Version, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("order id or number already exists: %w", domain.ErrVersionConflict)
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		if _, err = r.q.ExecContext(ctx, `
			INSERT INTO order_items (
				id, order_id, product_id, variant_id, qty, price_minor, subtotal_minor, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`,
			item.ID, order.ID, item.ProductID, item.VariantID,
			item.Qty, item.PriceMinor, item.SubtotalMinor, item.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	order, err := r.scanOrder(r.q.QueryRowContext(ctx, selectOrderQuery+` WHERE id = $1`, id))
	if err != nil {
		return domain.Order{}, err
	}

	items, err := r.loadItems(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items

	return order, nil
}

func (r *orderRepository) Save(ctx context.Context, order domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	// Позиции и денежный снапшот заказа неизменяемы после создания.
	res, err := r.q.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
		    payment_status = $2,
		    version = version + 1,
		    updated_at = $3
		WHERE id = $4
		  AND version = $5
	`,
		string(order.Status), string(order.PaymentStatus),
		time.Now().UTC(), order.ID, order.Version,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		if _, err := r.Get(ctx, order.ID); err != nil {
			return err
		}
		return domain.ErrVersionConflict
	}

	return nil
}

func (r *orderRepository) NumberExists(ctx context.Context, number string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var id string
	err := r.q.QueryRowContext(ctx, `SELECT id FROM orders WHERE number = $1`, number).Scan(&id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check order number: %w", err)
}

func (r *orderRepository) ListByOwner(ctx context.Context, owner domain.Owner, limit int) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := selectOrderQuery + `
		WHERE owner_type = $1 AND owner_id = $2
		ORDER BY created_at DESC, id DESC
	`

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.q.QueryContext(ctx, query+" LIMIT $3", string(owner.Type), owner.ID, limit)
	} else {
		rows, err = r.q.QueryContext(ctx, query, string(owner.Type), owner.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	for i := range orders {
		items, err := r.loadItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}

	return orders, nil
}

const selectOrderQuery = `
	SELECT id, number, owner_type, owner_id, checkout_id,
	       status, payment_status,
	       subtotal_minor, tax_minor, shipping_minor, discount_minor, total_minor, currency,
	       shipping_address, billing_address, shipping_method,
	       version, created_at, updated_at
	FROM orders
`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *orderRepository) scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order         domain.Order
		ownerType     string
		status        string
		paymentStatus string
		shipping      []byte
		billing       []byte
	)

	err := row.Scan(
		&order.ID, &order.Number, &ownerType, &order.Owner.ID, &order.CheckoutID,
		&status, &paymentStatus,
		&order.SubtotalMinor, &order.TaxMinor, &order.ShippingMinor, &order.DiscountMinor, &order.TotalMinor, &order.Currency,
		&shipping, &billing, &order.ShippingMethod,
		&order.Version, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("scan order: %w", err)
	}

	order.Owner.Type = domain.OwnerType(ownerType)
	order.Status = domain.OrderStatus(status)
	order.PaymentStatus = domain.OrderPaymentStatus(paymentStatus)
	if order.ShippingAddress, err = decodeAddress(shipping); err != nil {
		return domain.Order{}, err
	}
	if order.BillingAddress, err = decodeAddress(billing); err != nil {
		return domain.Order{}, err
	}

	return order, nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, order_id, product_id, variant_id, qty, price_minor, subtotal_minor, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.VariantID,
			&item.Qty, &item.PriceMinor, &item.SubtotalMinor, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return items, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
