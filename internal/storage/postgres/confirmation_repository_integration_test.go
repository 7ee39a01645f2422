package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aqualaguna/direct-commerce-sub001/internal/domain"
)

func seedConfirmationFixtures(t *testing.T, store *Store, now time.Time) {
	t.Helper()
	ctx := context.Background()

	order := sampleOrder("order-1", "ORD-AAA", now)
	require.NoError(t, store.Orders().Create(ctx, order))

	payment := domain.Payment{
		ID: "pay-1", OrderID: order.ID, MethodCode: "cash",
		AmountMinor: 2000, Currency: "USD", Status: domain.PaymentStatusPending,
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, store.Payments().Create(ctx, payment))
}

func TestConfirmationRepository_PostgresOnePerPaymentAndHistory(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	ctx := context.Background()
	now := time.Now().UTC().Round(time.Microsecond)
	seedConfirmationFixtures(t, store, now)

	confirmation := domain.PaymentConfirmation{
		ID:          "conf-1",
		PaymentID:   "pay-1",
		OrderID:     "order-1",
		Type:        domain.ConfirmationTypeAutomated,
		Status:      domain.ConfirmationStatusPending,
		Method:      "cash",
		NextRetryAt: now.Add(-time.Minute),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	confirmation.AppendEvent(domain.ConfirmationStatusPending, "created", domain.SystemOwner(), "", now)

	require.NoError(t, store.Confirmations().Create(ctx, confirmation))

	// UNIQUE(payment_id) — второе подтверждение того же платежа отвергается.
	second := confirmation
	second.ID = "conf-2"
	err := store.Confirmations().Create(ctx, second)
	require.Error(t, err)
	require.True(t, errors.Is(err, domain.ErrConfirmationExists))

	got, err := store.Confirmations().GetByPayment(ctx, "pay-1")
	require.NoError(t, err)
	require.Equal(t, "conf-1", got.ID)
	require.Len(t, got.History, 1)
	require.Equal(t, domain.OwnerTypeSystem, got.History[0].Actor.Type)
	require.Equal(t, "created", got.History[0].Action)

	byID, err := store.Confirmations().Get(ctx, "conf-1")
	require.NoError(t, err)
	require.Equal(t, got.Version, byID.Version)

	_, err = store.Confirmations().Get(ctx, "missing")
	require.True(t, errors.Is(err, domain.ErrConfirmationNotFound))
}

func TestConfirmationRepository_PostgresRetryFeedAndShrinkGuard(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	ctx := context.Background()
	now := time.Now().UTC().Round(time.Microsecond)
	seedConfirmationFixtures(t, store, now)

	confirmation := domain.PaymentConfirmation{
		ID:          "conf-1",
		PaymentID:   "pay-1",
		OrderID:     "order-1",
		Type:        domain.ConfirmationTypeAutomated,
		Status:      domain.ConfirmationStatusPending,
		Method:      "cash",
		NextRetryAt: now.Add(-time.Minute),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	confirmation.AppendEvent(domain.ConfirmationStatusPending, "created", domain.SystemOwner(), "", now)
	require.NoError(t, store.Confirmations().Create(ctx, confirmation))

	due, err := store.Confirmations().ListRequiringRetry(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, "conf-1", due[0].ID)

	resolved := due[0]
	resolved.Status = domain.ConfirmationStatusConfirmed
	resolved.NextRetryAt = time.Time{}
	resolved.AppendEvent(domain.ConfirmationStatusConfirmed, "confirm", domain.SystemOwner(), "", now)
	require.NoError(t, store.Confirmations().Save(ctx, resolved))

	due, err = store.Confirmations().ListRequiringRetry(ctx, now.Add(time.Hour), 10)
	require.NoError(t, err)
	require.Empty(t, due)

	// Укорачивание журнала отвергается.
	got, err := store.Confirmations().Get(ctx, "conf-1")
	require.NoError(t, err)
	require.Len(t, got.History, 2)
	got.History = got.History[:1]
	err = store.Confirmations().Save(ctx, got)
	require.True(t, errors.Is(err, domain.ErrValidation))
}
