package domain

import "time"

// CartItem — позиция корзины. После сборки заказа позиция не удаляется
// физически, а помечается DeletedAt (soft delete) для аудита.
type CartItem struct {
	ID         string
	ProductID  string
	VariantID  string
	Qty        int32
	PriceMinor int64
	DeletedAt  *time.Time
	CreatedAt  time.Time
}

// Active сообщает, учитывается ли позиция в итогах корзины.
func (i CartItem) Active() bool {
	return i.DeletedAt == nil
}

// Cart агрегирует позиции покупателя до создания checkout-сессии.
type Cart struct {
	ID            string
	Owner         Owner
	Items         []CartItem
	SubtotalMinor int64
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RecomputeTotals пересчитывает агрегаты корзины по оставшимся активным позициям.
func (c *Cart) RecomputeTotals() {
	var subtotal int64
	for _, item := range c.Items {
		if !item.Active() {
			continue
		}
		subtotal += int64(item.Qty) * item.PriceMinor
	}
	c.SubtotalMinor = subtotal
}

// RetireItems помечает перечисленные позиции удалёнными и пересчитывает итоги.
// Возвращает количество фактически помеченных позиций.
func (c *Cart) RetireItems(ids []string, now time.Time) int {
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	retired := 0
	for i := range c.Items {
		if _, ok := wanted[c.Items[i].ID]; !ok {
			continue
		}
		if c.Items[i].DeletedAt != nil {
			continue
		}
		ts := now
		c.Items[i].DeletedAt = &ts
		retired++
	}

	c.RecomputeTotals()
	return retired
}

// ActiveItems возвращает позиции, не помеченные удалёнными.
func (c *Cart) ActiveItems() []CartItem {
	result := make([]CartItem, 0, len(c.Items))
	for _, item := range c.Items {
		if item.Active() {
			result = append(result, item)
		}
	}
	return result
}
