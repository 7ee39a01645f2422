package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aqualaguna/direct-commerce-sub001/internal/domain"
)

func sampleCheckout(id string, now time.Time) domain.CheckoutSession {
	return domain.CheckoutSession{
		ID:          id,
		Owner:       domain.UserOwner("customer-1"),
		CartID:      "cart-1",
		CartItemIDs: []string{"item-1", "item-2"},
		ShippingAddress: domain.Address{ID: "addr-1", Recipient: "Ivan", Line1: "Main st 1", City: "Springfield", PostalCode: "12345", Country: "US"},
		BillingAddress:  domain.Address{ID: "addr-2", Recipient: "Ivan", Line1: "Main st 1", City: "Springfield", PostalCode: "12345", Country: "US"},
		ShippingMethod:  "standard",
		PaymentMethod:   "cash",
		Status:          domain.CheckoutStatusActive,
		ExpiresAt:       now.Add(time.Hour),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func sampleOrder(id, number string, now time.Time) domain.Order {
	return domain.Order{
		ID:            id,
		Number:        number,
		Owner:         domain.UserOwner("customer-1"),
		CheckoutID:    "chk-1",
		Status:        domain.OrderStatusPending,
		PaymentStatus: domain.OrderPaymentPending,
		SubtotalMinor: 2000,
		TotalMinor:    2000,
		Currency:      "USD",
		ShippingAddress: domain.Address{ID: "addr-1", Recipient: "Ivan", Line1: "Main st 1", City: "Springfield", PostalCode: "12345", Country: "US"},
		BillingAddress:  domain.Address{ID: "addr-2", Recipient: "Ivan", Line1: "Main st 1", City: "Springfield", PostalCode: "12345", Country: "US"},
		ShippingMethod:  "standard",
		Items: []domain.OrderItem{
			{ID: id + "-1", OrderID: id, ProductID: "p-1", Qty: 1, PriceMinor: 1000, SubtotalMinor: 1000, CreatedAt: now},
			{ID: id + "-2", OrderID: id, ProductID: "p-2", Qty: 2, PriceMinor: 500, SubtotalMinor: 1000, CreatedAt: now.Add(time.Millisecond)},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCheckoutRepository_PostgresLifecycleAndCAS(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	ctx := context.Background()
	now := time.Now().UTC().Round(time.Microsecond)

	checkout := sampleCheckout("chk-1", now)
	if err := store.Checkouts().Create(ctx, checkout); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Checkouts().Create(ctx, checkout); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("duplicate create err = %v, want ErrVersionConflict", err)
	}

	got, err := store.Checkouts().Get(ctx, "chk-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Owner != checkout.Owner || got.Status != domain.CheckoutStatusActive {
		t.Fatalf("unexpected checkout payload: %+v", got)
	}
	if len(got.CartItemIDs) != 2 || got.ShippingAddress.City != "Springfield" {
		t.Fatalf("jsonb fields not round-tripped: %+v", got)
	}

	got.ShippingMethod = "express"
	if err := store.Checkouts().Save(ctx, got); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Повтор с устаревшей версией.
	if err := store.Checkouts().Save(ctx, got); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("stale save err = %v, want ErrVersionConflict", err)
	}

	if err := store.Checkouts().TransitionStatus(ctx, "chk-1", domain.CheckoutStatusActive, domain.CheckoutStatusLocked); err != nil {
		t.Fatalf("transition: %v", err)
	}
	err = store.Checkouts().TransitionStatus(ctx, "chk-1", domain.CheckoutStatusActive, domain.CheckoutStatusLocked)
	if !errors.Is(err, domain.ErrCheckoutLocked) {
		t.Fatalf("second transition err = %v, want ErrCheckoutLocked", err)
	}
	err = store.Checkouts().TransitionStatus(ctx, "missing", domain.CheckoutStatusActive, domain.CheckoutStatusLocked)
	if !errors.Is(err, domain.ErrCheckoutNotFound) {
		t.Fatalf("missing transition err = %v, want ErrCheckoutNotFound", err)
	}
}

func TestOrderRepository_PostgresCreateGetListAndSave(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	ctx := context.Background()
	now := time.Now().UTC().Round(time.Microsecond)

	order1 := sampleOrder("order-1", "ORD-AAA", now.Add(-2*time.Minute))
	order2 := sampleOrder("order-2", "ORD-BBB", now.Add(-time.Minute))

	if err := store.Orders().Create(ctx, order1); err != nil {
		t.Fatalf("create order1: %v", err)
	}
	if err := store.Orders().Create(ctx, order2); err != nil {
		t.Fatalf("create order2: %v", err)
	}

	// Номер заказа уникален на уровне БД.
	dup := sampleOrder("order-3", "ORD-AAA", now)
	if err := store.Orders().Create(ctx, dup); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("duplicate number err = %v, want ErrVersionConflict", err)
	}

	got, err := store.Orders().Get(ctx, order1.ID)
	if err != nil {
		t.Fatalf("get order1: %v", err)
	}
	if got.Number != "ORD-AAA" || len(got.Items) != 2 {
		t.Fatalf("unexpected order payload: %+v", got)
	}
	if got.Items[0].ProductID != "p-1" || got.Items[1].Qty != 2 {
		t.Fatalf("items not round-tripped: %+v", got.Items)
	}

	exists, err := store.Orders().NumberExists(ctx, "ORD-AAA")
	if err != nil {
		t.Fatalf("number exists: %v", err)
	}
	if !exists {
		t.Fatal("ORD-AAA must exist")
	}

	listed, err := store.Orders().ListByOwner(ctx, order1.Owner, 1)
	if err != nil {
		t.Fatalf("list with limit: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != order2.ID {
		t.Fatalf("unexpected list head: %+v", listed)
	}

	got.Status = domain.OrderStatusConfirmed
	got.PaymentStatus = domain.OrderPaymentPaid
	if err := store.Orders().Save(ctx, got); err != nil {
		t.Fatalf("save: %v", err)
	}
	updated, err := store.Orders().Get(ctx, order1.ID)
	if err != nil {
		t.Fatalf("get updated: %v", err)
	}
	if updated.Status != domain.OrderStatusConfirmed || updated.PaymentStatus != domain.OrderPaymentPaid {
		t.Fatalf("statuses not saved: %+v", updated)
	}
	if updated.Version != got.Version+1 {
		t.Fatalf("version = %d, want %d", updated.Version, got.Version+1)
	}
	// Денежный снапшот и позиции неизменяемы.
	if updated.SubtotalMinor != 2000 || len(updated.Items) != 2 {
		t.Fatalf("immutable snapshot changed: %+v", updated)
	}
}

func TestInventoryRepository_PostgresCountersAndHistory(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	ctx := context.Background()
	now := time.Now().UTC().Round(time.Microsecond)

	record := domain.InventoryRecord{
		ProductID:         "p-1",
		Quantity:          10,
		Reserved:          0,
		Available:         10,
		LowStockThreshold: 2,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := store.Inventory().Create(ctx, record); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.Inventory().Get(ctx, "p-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got.Reserved = 3
	got.Available = 7
	if err := store.Inventory().Save(ctx, got); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Inventory().Save(ctx, got); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("stale save err = %v, want ErrVersionConflict", err)
	}

	entry := domain.InventoryHistory{
		ProductID:       "p-1",
		Action:          domain.InventoryActionReserve,
		Qty:             3,
		QuantityBefore:  10,
		QuantityAfter:   10,
		ReservedBefore:  0,
		ReservedAfter:   3,
		AvailableBefore: 10,
		AvailableAfter:  7,
		OrderID:         "order-1",
		Actor:           domain.UserOwner("customer-1"),
		Reason:          "order ORD-AAA",
		Occurred:        now,
	}
	if err := store.Inventory().AppendHistory(ctx, entry); err != nil {
		t.Fatalf("append history: %v", err)
	}

	history, err := store.Inventory().ListHistory(ctx, "p-1")
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history entries = %d, want 1", len(history))
	}
	if history[0].ID == "" {
		t.Fatal("history entry must receive an id")
	}
	if history[0].ReservedAfter != 3 || history[0].Reason != "order ORD-AAA" {
		t.Fatalf("history not round-tripped: %+v", history[0])
	}
}

func TestOutboxRepository_PostgresFlow(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	ctx := context.Background()

	msg, err := store.Outbox().Enqueue(ctx, domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   "order-1",
		EventType:     "order.created",
		Payload:       []byte(`{"order_id":"order-1"}`),
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if msg.ID == "" {
		t.Fatal("enqueue must assign an id")
	}

	pending, err := store.Outbox().PullPending(ctx, 10)
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if len(pending) != 1 || pending[0].EventType != "order.created" {
		t.Fatalf("unexpected pending: %+v", pending)
	}

	stats, err := store.Outbox().Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.PendingCount != 1 || stats.OldestPendingAt.IsZero() {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	if err := store.Outbox().MarkSent(ctx, msg.ID); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	pending, err = store.Outbox().PullPending(ctx, 10)
	if err != nil {
		t.Fatalf("pull after mark: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("pending after mark = %d, want 0", len(pending))
	}
}

func TestStore_PostgresWithinTxRollsBack(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	ctx := context.Background()
	now := time.Now().UTC().Round(time.Microsecond)

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(tx domain.Store) error {
		if err := tx.Checkouts().Create(ctx, sampleCheckout("chk-tx", now)); err != nil {
			return err
		}
		if _, err := tx.Outbox().Enqueue(ctx, domain.OutboxMessage{
			AggregateType: "order", AggregateID: "order-tx", EventType: "order.created", Payload: []byte(`{}`),
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("tx err = %v, want boom", err)
	}

	if _, err := store.Checkouts().Get(ctx, "chk-tx"); !errors.Is(err, domain.ErrCheckoutNotFound) {
		t.Fatalf("checkout err = %v, want ErrCheckoutNotFound (rolled back)", err)
	}
	stats, err := store.Outbox().Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.PendingCount != 0 {
		t.Fatalf("outbox pending = %d, want 0", stats.PendingCount)
	}
}
