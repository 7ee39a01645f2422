package confirmation

import (
	"context"
	"testing"
	"time"

	"github.com/aqualaguna/direct-commerce-sub001/internal/domain"
	"github.com/aqualaguna/direct-commerce-sub001/internal/storage/memory"
)

func seedDueConfirmation(t *testing.T, store *memory.Store, engine *Engine, suffix string) domain.PaymentConfirmation {
	t.Helper()
	ctx := context.Background()

	seedOrder(t, store, "ord-"+suffix, domain.UserOwner("u-1"), 5000)
	seedPayment(t, store, "pay-"+suffix, "ord-"+suffix, "cash", 5000)
	created, err := engine.CreateConfirmation(ctx, "pay-"+suffix, domain.ConfirmationTypeAutomated, "cash")
	if err != nil {
		t.Fatalf("create confirmation: %v", err)
	}

	created.NextRetryAt = time.Now().UTC().Add(-time.Minute)
	if err := store.Confirmations().Save(ctx, created); err != nil {
		t.Fatalf("mark due: %v", err)
	}
	reloaded, err := store.Confirmations().Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	return reloaded
}

func TestRetryWorkerProcessOnce(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	engine := newTestEngine(store)

	first := seedDueConfirmation(t, store, engine, "a")
	second := seedDueConfirmation(t, store, engine, "b")

	rules := func() []domain.AutomationRule {
		return []domain.AutomationRule{{ID: "rule-1", Name: "match all", Enabled: true}}
	}
	worker := NewRetryWorker(engine, rules, WithWorkerInterval(time.Hour), WithWorkerBatchSize(10))

	processed := worker.ProcessOnce(ctx)
	if processed != 2 {
		t.Fatalf("processed = %d, want 2", processed)
	}

	for _, id := range []string{first.ID, second.ID} {
		loaded, err := store.Confirmations().Get(ctx, id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if loaded.Status != domain.ConfirmationStatusConfirmed {
			t.Fatalf("confirmation %s status = %s, want confirmed", id, loaded.Status)
		}
	}

	// Повторный цикл: лента пуста.
	if processed := worker.ProcessOnce(ctx); processed != 0 {
		t.Fatalf("second sweep processed = %d, want 0", processed)
	}
}

func TestRetryWorkerSkipsResolvedRace(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	engine := newTestEngine(store)

	due := seedDueConfirmation(t, store, engine, "a")

	// Гонка: между выборкой и переоценкой подтверждение стало терминальным.
	racingRules := func() []domain.AutomationRule {
		if _, err := engine.ConfirmManually(ctx, due.ID, adminOwner(), "manual wins"); err != nil {
			t.Errorf("manual confirm: %v", err)
		}
		return []domain.AutomationRule{{ID: "rule-1", Name: "match all", Enabled: true}}
	}
	worker := NewRetryWorker(engine, racingRules, WithWorkerInterval(time.Hour))

	if processed := worker.ProcessOnce(ctx); processed != 0 {
		t.Fatalf("processed = %d, want 0 (terminal race skipped)", processed)
	}

	loaded, err := store.Confirmations().Get(ctx, due.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.Status != domain.ConfirmationStatusConfirmed {
		t.Fatalf("status = %s, want confirmed", loaded.Status)
	}
}

func TestRetryWorkerNoRetrySchedulesNext(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	engine := newTestEngine(store, WithRetryPolicy(FixedIntervalPolicy{Interval: time.Hour}))

	due := seedDueConfirmation(t, store, engine, "a")

	// Ни одно правило не совпадает — воркер переносит переоценку на будущее.
	rules := func() []domain.AutomationRule {
		return []domain.AutomationRule{{ID: "rule-1", Name: "disabled", Enabled: false}}
	}
	worker := NewRetryWorker(engine, rules, WithWorkerInterval(time.Hour))

	if processed := worker.ProcessOnce(ctx); processed != 1 {
		t.Fatalf("processed = %d, want 1", processed)
	}

	loaded, err := store.Confirmations().Get(ctx, due.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.Status != domain.ConfirmationStatusPending {
		t.Fatalf("status = %s, want pending", loaded.Status)
	}
	if loaded.RetryCount != 1 {
		t.Fatalf("retry count = %d, want 1", loaded.RetryCount)
	}
	if !loaded.NextRetryAt.After(time.Now().UTC()) {
		t.Fatalf("next retry at = %s, want in the future", loaded.NextRetryAt)
	}
}
