package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewCommerceMetricsIsIdempotent(t *testing.T) {
	registry := prometheus.NewRegistry()

	first := newCommerceMetricsWithRegisterer(registry)
	// Повторная регистрация тех же коллекторов не должна паниковать:
	// каждый сервис создаёт свой экземпляр поверх общего registerer.
	second := newCommerceMetricsWithRegisterer(registry)

	if first == nil || second == nil {
		t.Fatal("constructors returned nil")
	}

	first.RecordOrderCreated()
	second.RecordOrderCreated()

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != "commerce_orders_created_total" {
			continue
		}
		if got := family.GetMetric()[0].GetCounter().GetValue(); got != 2 {
			t.Fatalf("orders created = %v, want 2 (shared collector)", got)
		}
		return
	}
	t.Fatal("commerce_orders_created_total not found in registry")
}

func TestCommerceMetricsRecorders(t *testing.T) {
	m := newCommerceMetricsWithRegisterer(prometheus.NewRegistry())

	m.RecordOrderCreated()
	m.RecordAssemblyFailed()
	m.RecordCheckoutConflict()
	m.RecordAssemblyDuration(120 * time.Millisecond)
	m.RecordInventoryOp("reserved")
	m.RecordInventoryOp("insufficient")
	m.RecordConfirmation("confirmed")
	m.RecordHistoryEvent()
	m.RecordOutboxEvent()
	m.RecordAssemblyStarted()
	m.RecordAssemblyFinished()
}
