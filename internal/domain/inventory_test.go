package domain

import (
	"errors"
	"testing"
)

func TestInventoryCheckInvariant(t *testing.T) {
	tests := []struct {
		name    string
		record  InventoryRecord
		wantErr bool
	}{
		{"consistent", InventoryRecord{Quantity: 10, Reserved: 3, Available: 7}, false},
		{"fully reserved", InventoryRecord{Quantity: 5, Reserved: 5, Available: 0}, false},
		{"stale available", InventoryRecord{Quantity: 10, Reserved: 3, Available: 8}, true},
		{"negative reserved", InventoryRecord{Quantity: 10, Reserved: -1, Available: 11}, true},
		{"negative quantity", InventoryRecord{Quantity: -1, Reserved: 0, Available: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.CheckInvariant()
			if tt.wantErr && !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestInventoryIsLowStock(t *testing.T) {
	r := InventoryRecord{Quantity: 10, Reserved: 5, Available: 5, LowStockThreshold: 5}
	if !r.IsLowStock() {
		t.Fatal("available at threshold must be low stock")
	}
	r.Reserved = 4
	r.Available = 6
	if r.IsLowStock() {
		t.Fatal("available above threshold must not be low stock")
	}
}
