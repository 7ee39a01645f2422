package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aqualaguna/direct-commerce-sub001/internal/domain"
)

// outboxRecord хранит сообщение и служебные поля для in-memory реализации.
type outboxRecord struct {
	msg        domain.OutboxMessage
	status     string
	attemptCnt int
	createdAt  time.Time
	updatedAt  time.Time
}

// state — всё содержимое хранилища. Клонируется целиком при входе в транзакцию,
// чтобы откат сводился к отбрасыванию клона.
type state struct {
	checkouts     map[string]domain.CheckoutSession
	carts         map[string]domain.Cart
	orders        map[string]domain.Order
	orderNumbers  map[string]string // номер заказа → id
	inventory     map[string]domain.InventoryRecord
	invHistory    map[string][]domain.InventoryHistory
	payments      map[string]domain.Payment
	confirmations map[string]domain.PaymentConfirmation
	confByPayment map[string]string // payment id → confirmation id
	orderHistory  map[string][]domain.OrderHistoryEvent
	outbox        map[string]*outboxRecord
}

func newState() *state {
	return &state{
		checkouts:     make(map[string]domain.CheckoutSession),
		carts:         make(map[string]domain.Cart),
		orders:        make(map[string]domain.Order),
		orderNumbers:  make(map[string]string),
		inventory:     make(map[string]domain.InventoryRecord),
		invHistory:    make(map[string][]domain.InventoryHistory),
		payments:      make(map[string]domain.Payment),
		confirmations: make(map[string]domain.PaymentConfirmation),
		confByPayment: make(map[string]string),
		orderHistory:  make(map[string][]domain.OrderHistoryEvent),
		outbox:        make(map[string]*outboxRecord),
	}
}

// clone делает глубокую копию состояния: все карты и вложенные слайсы копируются,
// чтобы изменения в транзакции не протекали в зафиксированное состояние.
func (s *state) clone() *state {
	c := newState()
	for k, v := range s.checkouts {
		c.checkouts[k] = cloneCheckout(v)
	}
	for k, v := range s.carts {
		c.carts[k] = cloneCart(v)
	}
	for k, v := range s.orders {
		c.orders[k] = cloneOrder(v)
	}
	for k, v := range s.orderNumbers {
		c.orderNumbers[k] = v
	}
	for k, v := range s.inventory {
		c.inventory[k] = v
	}
	for k, v := range s.invHistory {
		c.invHistory[k] = append([]domain.InventoryHistory(nil), v...)
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	for k, v := range s.confirmations {
		c.confirmations[k] = cloneConfirmation(v)
	}
	for k, v := range s.confByPayment {
		c.confByPayment[k] = v
	}
	for k, v := range s.orderHistory {
		c.orderHistory[k] = append([]domain.OrderHistoryEvent(nil), v...)
	}
	for k, v := range s.outbox {
		rec := *v
		c.outbox[k] = &rec
	}
	return c
}

func cloneCheckout(c domain.CheckoutSession) domain.CheckoutSession {
	c.CartItemIDs = append([]string(nil), c.CartItemIDs...)
	return c
}

func cloneCart(c domain.Cart) domain.Cart {
	items := make([]domain.CartItem, len(c.Items))
	copy(items, c.Items)
	for i := range items {
		if items[i].DeletedAt != nil {
			ts := *items[i].DeletedAt
			items[i].DeletedAt = &ts
		}
	}
	c.Items = items
	return c
}

func cloneOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.OrderItem(nil), o.Items...)
	return o
}

func cloneConfirmation(c domain.PaymentConfirmation) domain.PaymentConfirmation {
	c.History = append([]domain.ConfirmationEvent(nil), c.History...)
	return c
}

// accessor абстрагирует доступ к состоянию: снаружи транзакции операции
// берут блокировку Store, внутри транзакции работают с клоном напрямую.
type accessor interface {
	view(fn func(*state))
	update(fn func(*state) error) error
}

// Store — in-memory реализация domain.Store для локальной разработки и тестов.
// Один RWMutex на всё хранилище даёт сериализуемость транзакций.
type Store struct {
	mu sync.RWMutex
	st *state
}

// NewStore создаёт пустое in-memory хранилище.
func NewStore() *Store {
	return &Store{st: newState()}
}

func (s *Store) view(fn func(*state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.st)
}

func (s *Store) update(fn func(*state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

// WithinTx исполняет fn над клоном состояния под эксклюзивной блокировкой.
// Успех — клон становится новым состоянием; ошибка — клон отбрасывается,
// то есть все записи fn откатываются разом.
func (s *Store) WithinTx(ctx context.Context, fn func(tx domain.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	draft := s.st.clone()
	if err := fn(&txStore{st: draft}); err != nil {
		return err
	}
	s.st = draft
	return nil
}

func (s *Store) Checkouts() domain.CheckoutRepository         { return &checkoutRepository{a: s} }
func (s *Store) Carts() domain.CartRepository                 { return &cartRepository{a: s} }
func (s *Store) Orders() domain.OrderRepository               { return &orderRepository{a: s} }
func (s *Store) Inventory() domain.InventoryRepository        { return &inventoryRepository{a: s} }
func (s *Store) Payments() domain.PaymentRepository           { return &paymentRepository{a: s} }
func (s *Store) Confirmations() domain.ConfirmationRepository { return &confirmationRepository{a: s} }
func (s *Store) History() domain.OrderHistoryRepository       { return &historyRepository{a: s} }
func (s *Store) Outbox() domain.OutboxRepository              { return &outboxRepository{a: s} }

// txStore — представление хранилища внутри открытой транзакции.
// Блокировка уже удержана Store.WithinTx, поэтому доступ прямой.
type txStore struct {
	st *state
}

func (t *txStore) view(fn func(*state)) {
	fn(t.st)
}

func (t *txStore) update(fn func(*state) error) error {
	return fn(t.st)
}

// WithinTx на уже открытой транзакции просто исполняет fn в её рамках.
func (t *txStore) WithinTx(ctx context.Context, fn func(tx domain.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(t)
}

func (t *txStore) Checkouts() domain.CheckoutRepository         { return &checkoutRepository{a: t} }
func (t *txStore) Carts() domain.CartRepository                 { return &cartRepository{a: t} }
func (t *txStore) Orders() domain.OrderRepository               { return &orderRepository{a: t} }
func (t *txStore) Inventory() domain.InventoryRepository        { return &inventoryRepository{a: t} }
func (t *txStore) Payments() domain.PaymentRepository           { return &paymentRepository{a: t} }
func (t *txStore) Confirmations() domain.ConfirmationRepository { return &confirmationRepository{a: t} }
func (t *txStore) History() domain.OrderHistoryRepository       { return &historyRepository{a: t} }
func (t *txStore) Outbox() domain.OutboxRepository              { return &outboxRepository{a: t} }

var _ domain.Store = (*Store)(nil)
var _ domain.Store = (*txStore)(nil)
