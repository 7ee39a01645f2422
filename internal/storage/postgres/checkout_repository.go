package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aqualaguna/direct-commerce-sub001/internal/domain"
)

type checkoutRepository struct {
	q querier
}

func (r *checkoutRepository) Create(ctx context.Context, checkout domain.CheckoutSession) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	itemIDs, err := encodeStringSlice(checkout.CartItemIDs)
	if err != nil {
		return err
	}
	shipping, err := encodeAddress(checkout.ShippingAddress)
	if err != nil {
		return err
	}
	billing, err := encodeAddress(checkout.BillingAddress)
	if err != nil {
		return err
	}

	_, err = r.q.ExecContext(ctx, `
		INSERT INTO checkout_sessions (
			id, owner_type, owner_id, cart_id, cart_item_ids,
			shipping_address, billing_address, shipping_method, payment_method,
			status, version, expires_at, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`,
		checkout.ID, string(checkout.Owner.Type), checkout.Owner.ID, checkout.CartID, itemIDs,
		shipping, billing, checkout.ShippingMethod, checkout.PaymentMethod,
		string(checkout.Status), checkout.Version, checkout.ExpiresAt, checkout.CreatedAt, checkout.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrVersionConflict
		}
		return fmt.Errorf("insert checkout session: %w", err)
	}

	return nil
}

func (r *checkoutRepository) Get(ctx context.Context, id string) (domain.CheckoutSession, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		checkout  domain.CheckoutSession
		ownerType string
		status    string
		itemIDs   []byte
		shipping  []byte
		billing   []byte
	)

	err := r.q.QueryRowContext(ctx, `
		SELECT id, owner_type, owner_id, cart_id, cart_item_ids,
		       shipping_address, billing_address, shipping_method, payment_method,
		       status, version, expires_at, created_at, updated_at
		FROM checkout_sessions
		WHERE id = $1
	`, id).Scan(
		&checkout.ID, &ownerType, &checkout.Owner.ID, &checkout.CartID, &itemIDs,
		&shipping, &billing, &checkout.ShippingMethod, &checkout.PaymentMethod,
		&status, &checkout.Version, &checkout.ExpiresAt, &checkout.CreatedAt, &checkout.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.CheckoutSession{}, domain.ErrCheckoutNotFound
		}
		return domain.CheckoutSession{}, fmt.Errorf("select checkout session: %w", err)
	}

	checkout.Owner.Type = domain.OwnerType(ownerType)
	checkout.Status = domain.CheckoutStatus(status)
	if checkout.CartItemIDs, err = decodeStringSlice(itemIDs); err != nil {
		return domain.CheckoutSession{}, err
	}
	if checkout.ShippingAddress, err = decodeAddress(shipping); err != nil {
		return domain.CheckoutSession{}, err
	}
	if checkout.BillingAddress, err = decodeAddress(billing); err != nil {
		return domain.CheckoutSession{}, err
	}

	return checkout, nil
}

func (r *checkoutRepository) Save(ctx context.Context, checkout domain.CheckoutSession) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	itemIDs, err := encodeStringSlice(checkout.CartItemIDs)
	if err != nil {
		return err
	}
	shipping, err := encodeAddress(checkout.ShippingAddress)
	if err != nil {
		return err
	}
	billing, err := encodeAddress(checkout.BillingAddress)
	if err != nil {
		return err
	}

	res, err := r.q.ExecContext(ctx, `
		UPDATE checkout_sessions
		SET cart_item_ids = $1,
		    shipping_address = $2,
		    billing_address = $3,
		    shipping_method = $4,
		    payment_method = $5,
		    status = $6,
		    version = version + 1,
		    expires_at = $7,
		    updated_at = $8
		WHERE id = $9
		  AND version = $10
	`,
		itemIDs, shipping, billing, checkout.ShippingMethod, checkout.PaymentMethod,
		string(checkout.Status), checkout.ExpiresAt, time.Now().UTC(),
		checkout.ID, checkout.Version,
	)
	if err != nil {
		return fmt.Errorf("update checkout session: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		if _, err := r.Get(ctx, checkout.ID); err != nil {
			return err
		}
		return domain.ErrVersionConflict
	}

	return nil
}

// TransitionStatus — атомарный compare-and-swap статуса одним условным UPDATE.
func (r *checkoutRepository) TransitionStatus(ctx context.Context, id string, from, to domain.CheckoutStatus) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.q.ExecContext(ctx, `
		UPDATE checkout_sessions
		SET status = $1,
		    version = version + 1,
		    updated_at = $2
		WHERE id = $3
		  AND status = $4
	`, string(to), time.Now().UTC(), id, string(from))
	if err != nil {
		return fmt.Errorf("transition checkout status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return domain.ErrCheckoutLocked
	}

	return nil
}

var _ domain.CheckoutRepository = (*checkoutRepository)(nil)
