package domain

import (
	"testing"
	"time"
)

func testCart() Cart {
	now := time.Now().UTC()
	return Cart{
		ID:    "cart-1",
		Owner: UserOwner("u-1"),
		Items: []CartItem{
			{ID: "item-1", ProductID: "p-1", Qty: 1, PriceMinor: 1000, CreatedAt: now},
			{ID: "item-2", ProductID: "p-2", Qty: 2, PriceMinor: 500, CreatedAt: now},
			{ID: "item-3", ProductID: "p-3", Qty: 3, PriceMinor: 100, CreatedAt: now},
		},
		SubtotalMinor: 2300,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestCartRetireItems(t *testing.T) {
	cart := testCart()
	now := time.Now().UTC()

	retired := cart.RetireItems([]string{"item-1", "item-2", "missing"}, now)
	if retired != 2 {
		t.Fatalf("retired %d items, want 2", retired)
	}
	if cart.SubtotalMinor != 300 {
		t.Fatalf("subtotal = %d, want 300", cart.SubtotalMinor)
	}
	if cart.Items[0].DeletedAt == nil || cart.Items[1].DeletedAt == nil {
		t.Fatal("retired items must carry DeletedAt")
	}
	if cart.Items[2].DeletedAt != nil {
		t.Fatal("item-3 must stay active")
	}

	// Повторное списание тех же позиций ничего не меняет.
	if again := cart.RetireItems([]string{"item-1"}, now); again != 0 {
		t.Fatalf("second retire returned %d, want 0", again)
	}
}

func TestCartActiveItems(t *testing.T) {
	cart := testCart()
	cart.RetireItems([]string{"item-2"}, time.Now().UTC())

	active := cart.ActiveItems()
	if len(active) != 2 {
		t.Fatalf("active items = %d, want 2", len(active))
	}
	for _, item := range active {
		if item.ID == "item-2" {
			t.Fatal("retired item returned as active")
		}
	}
}

func TestCartRecomputeTotals(t *testing.T) {
	cart := testCart()
	cart.SubtotalMinor = 0
	cart.RecomputeTotals()
	if cart.SubtotalMinor != 2300 {
		t.Fatalf("subtotal = %d, want 2300", cart.SubtotalMinor)
	}
}
