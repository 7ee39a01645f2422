package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/aqualaguna/direct-commerce-sub001/internal/domain"
)

// inventoryRepository — in-memory реализация InventoryRepository.
// Глобальная блокировка Store сериализует транзакции, поэтому отдельная
// строчная блокировка здесь не нужна.
type inventoryRepository struct {
	a accessor
}

func (r *inventoryRepository) Create(ctx context.Context, record domain.InventoryRecord) error {
	return r.a.update(func(st *state) error {
		if _, exists := st.inventory[record.ProductID]; exists {
			return domain.ErrVersionConflict
		}
		st.inventory[record.ProductID] = record
		return nil
	})
}

func (r *inventoryRepository) Get(ctx context.Context, productID string) (domain.InventoryRecord, error) {
	var (
		record domain.InventoryRecord
		found  bool
	)
	r.a.view(func(st *state) {
		record, found = st.inventory[productID]
	})
	if !found {
		return domain.InventoryRecord{}, domain.ErrProductNotFound
	}
	return record, nil
}

// Save сохраняет запись с проверкой версии.
func (r *inventoryRepository) Save(ctx context.Context, record domain.InventoryRecord) error {
	return r.a.update(func(st *state) error {
		current, ok := st.inventory[record.ProductID]
		if !ok {
			return domain.ErrProductNotFound
		}
		if current.Version != record.Version {
			return domain.ErrVersionConflict
		}
		record.Version++
		record.UpdatedAt = time.Now().UTC()
		st.inventory[record.ProductID] = record
		return nil
	})
}

// AppendHistory добавляет движение остатков. Записи не мутируются и не удаляются.
func (r *inventoryRepository) AppendHistory(ctx context.Context, entry domain.InventoryHistory) error {
	return r.a.update(func(st *state) error {
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		st.invHistory[entry.ProductID] = append(st.invHistory[entry.ProductID], entry)
		return nil
	})
}

// ListHistory возвращает движения товара в хронологическом порядке.
func (r *inventoryRepository) ListHistory(ctx context.Context, productID string) ([]domain.InventoryHistory, error) {
	var result []domain.InventoryHistory
	r.a.view(func(st *state) {
		result = append([]domain.InventoryHistory(nil), st.invHistory[productID]...)
	})
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Occurred.Before(result[j].Occurred)
	})
	return result, nil
}

var _ domain.InventoryRepository = (*inventoryRepository)(nil)
