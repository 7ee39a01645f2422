package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/aqualaguna/direct-commerce-sub001/internal/domain"
	"github.com/aqualaguna/direct-commerce-sub001/internal/messaging/kafka"
	"github.com/aqualaguna/direct-commerce-sub001/internal/metrics"
	"github.com/aqualaguna/direct-commerce-sub001/internal/service/history"
	"github.com/aqualaguna/direct-commerce-sub001/internal/service/inventory"
	"github.com/aqualaguna/direct-commerce-sub001/internal/service/ordernum"
)

// Assembler превращает валидированную checkout-сессию в заказ.
// Вся сборка — вставка заказа и позиций, резервы склада, аудит-события,
// завершение сессии и списание корзины — исполняется в одной транзакции:
// любая ошибка откатывает всё, частичных заказов не бывает.
type Assembler struct {
	store    domain.Store
	numbers  *ordernum.Generator
	ledger   *inventory.Ledger
	recorder *history.Recorder
	logger   *log.Entry
	metrics  *metrics.CommerceMetrics
	clock    domain.Clock
}

// NewAssembler создаёт рабочий экземпляр сборщика.
func NewAssembler(
	store domain.Store,
	numbers *ordernum.Generator,
	ledger *inventory.Ledger,
	recorder *history.Recorder,
	logger *log.Entry,
) *Assembler {
	if logger == nil {
		logger = log.WithField("component", "order-assembler")
	}
	return &Assembler{
		store:    store,
		numbers:  numbers,
		ledger:   ledger,
		recorder: recorder,
		logger:   logger,
		metrics:  metrics.NewCommerceMetrics(),
		clock:    domain.SystemClock(),
	}
}

// NewAssemblerWithoutMetrics создаёт сборщик без метрик (для тестов).
func NewAssemblerWithoutMetrics(
	store domain.Store,
	numbers *ordernum.Generator,
	ledger *inventory.Ledger,
	recorder *history.Recorder,
	logger *log.Entry,
) *Assembler {
	a := NewAssembler(store, numbers, ledger, recorder, logger)
	a.metrics = nil
	return a
}

// CompleteCheckoutProcess — полный путь завершения: захват сессии через CAS
// active → locked, атомарная сборка заказа, возврат заказа с позициями.
// Второе конкурентное завершение той же сессии получает ErrCheckoutLocked
// на CAS-шаге и не доходит до транзакции.
func (a *Assembler) CompleteCheckoutProcess(ctx context.Context, checkoutID string, requester domain.Owner) (domain.Order, error) {
	if err := requester.Validate(); err != nil {
		return domain.Order{}, err
	}

	if err := a.store.Checkouts().TransitionStatus(ctx, checkoutID, domain.CheckoutStatusActive, domain.CheckoutStatusLocked); err != nil {
		if errors.Is(err, domain.ErrCheckoutLocked) && a.metrics != nil {
			a.metrics.RecordCheckoutConflict()
		}
		a.logger.WithError(err).WithField("checkout_id", checkoutID).Warn("checkout lock failed")
		return domain.Order{}, err
	}

	return a.CreateOrderFromCheckout(ctx, checkoutID, requester)
}

// CreateOrderFromCheckout собирает заказ из активной либо уже захваченной
// (locked) сессии. Активная сессия захватывается здесь же через CAS; уже
// захваченную принимаем как есть — так работает и прямой вызов, и путь
// через CompleteCheckoutProcess. При любой ошибке транзакция откатывается
// целиком, сессия остаётся в статусе locked — повторный запуск требует
// разблокировки (UnlockCheckout) или ручного вмешательства.
func (a *Assembler) CreateOrderFromCheckout(ctx context.Context, checkoutID string, requester domain.Owner) (domain.Order, error) {
	err := a.store.Checkouts().TransitionStatus(ctx, checkoutID, domain.CheckoutStatusActive, domain.CheckoutStatusLocked)
	if err != nil && !errors.Is(err, domain.ErrCheckoutLocked) {
		return domain.Order{}, err
	}

	start := time.Now()
	if a.metrics != nil {
		a.metrics.RecordAssemblyStarted()
	}
	defer func() {
		if a.metrics != nil {
			a.metrics.RecordAssemblyFinished()
			a.metrics.RecordAssemblyDuration(time.Since(start))
		}
	}()

	var orderID string
	err = a.store.WithinTx(ctx, func(tx domain.Store) error {
		id, txErr := a.assemble(ctx, tx, checkoutID, requester)
		orderID = id
		return txErr
	})
	if err != nil {
		if a.metrics != nil {
			a.metrics.RecordAssemblyFailed()
		}
		a.logger.WithError(err).WithField("checkout_id", checkoutID).Warn("order assembly rolled back")
		return domain.Order{}, err
	}

	// Перечитываем заказ после коммита, чтобы вернуть его в зафиксированном виде.
	order, err := a.store.Orders().Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("reload created order: %w", err)
	}

	if a.metrics != nil {
		a.metrics.RecordOrderCreated()
	}
	a.logger.WithFields(log.Fields{
		"checkout_id":  checkoutID,
		"order_id":     order.ID,
		"order_number": order.Number,
		"total_minor":  order.TotalMinor,
		"items":        len(order.Items),
	}).Info("order created from checkout")

	return order, nil
}

// assemble выполняет шаги сборки внутри транзакции и возвращает id заказа.
func (a *Assembler) assemble(ctx context.Context, tx domain.Store, checkoutID string, requester domain.Owner) (string, error) {
	checkout, err := tx.Checkouts().Get(ctx, checkoutID)
	if err != nil {
		return "", err
	}
	if errs := checkout.ValidateForCompletion(); len(errs) > 0 {
		return "", fmt.Errorf("%w: %v", domain.ErrValidation, errs)
	}
	if !checkout.Owner.Equals(requester) && requester.Type != domain.OwnerTypeAdmin {
		return "", domain.ErrUnauthorized
	}

	cart, err := tx.Carts().Get(ctx, checkout.CartID)
	if err != nil {
		return "", err
	}
	lines := resolveLineItems(&cart, checkout.CartItemIDs)
	if len(lines) == 0 {
		return "", fmt.Errorf("%w: checkout has no resolvable line items", domain.ErrValidation)
	}

	number, err := a.numbers.Generate(ctx, tx.Orders())
	if err != nil {
		return "", err
	}

	now := a.clock.Now()
	order := buildOrder(&checkout, number, lines, now)

	if err := tx.Orders().Create(ctx, order); err != nil {
		return "", fmt.Errorf("insert order: %w", err)
	}

	// Резервируем остатки по каждой позиции; нехватка по любой из них
	// откатывает всю сборку, а не только эту позицию.
	for _, item := range order.Items {
		ictx := domain.InventoryContext{
			OrderID: order.ID,
			Owner:   checkout.Owner,
			Reason:  "order " + order.Number,
		}
		if err := a.ledger.ReserveTx(ctx, tx, item.ProductID, item.Qty, ictx); err != nil {
			return "", err
		}
	}

	source := history.SourceForOwner(requester)
	if err := a.recorder.OrderCreated(ctx, tx, &order, requester, source); err != nil {
		return "", err
	}
	if err := a.recorder.StatusChanged(ctx, tx, order.ID, domain.OrderStatusPending, domain.OrderStatusPending, requester, source); err != nil {
		return "", err
	}

	if err := tx.Checkouts().TransitionStatus(ctx, checkoutID, domain.CheckoutStatusLocked, domain.CheckoutStatusCompleted); err != nil {
		return "", err
	}

	// Позиции корзины не удаляются физически: помечаем и пересчитываем итоги.
	cart.RetireItems(checkout.CartItemIDs, now)
	if err := tx.Carts().Save(ctx, cart); err != nil {
		return "", fmt.Errorf("retire cart items: %w", err)
	}

	if err := a.emitOrderCreated(ctx, tx, &order); err != nil {
		return "", err
	}

	return order.ID, nil
}

// UnlockCheckout возвращает застрявшую в locked сессию в active.
// Админская операция восстановления после неудачной сборки.
func (a *Assembler) UnlockCheckout(ctx context.Context, checkoutID string, actor domain.Owner) error {
	if actor.Type != domain.OwnerTypeAdmin && actor.Type != domain.OwnerTypeSystem {
		return domain.ErrUnauthorized
	}
	if err := a.store.Checkouts().TransitionStatus(ctx, checkoutID, domain.CheckoutStatusLocked, domain.CheckoutStatusActive); err != nil {
		return err
	}
	a.logger.WithFields(log.Fields{
		"checkout_id": checkoutID,
		"actor":       string(actor.Type),
	}).Info("checkout unlocked")
	return nil
}

// resolveLineItems выбирает активные позиции корзины, заявленные в checkout.
func resolveLineItems(cart *domain.Cart, ids []string) []domain.CartItem {
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	var lines []domain.CartItem
	for _, item := range cart.Items {
		if !item.Active() {
			continue
		}
		if _, ok := wanted[item.ID]; ok {
			lines = append(lines, item)
		}
	}
	return lines
}

// buildOrder формирует заказ с денежным снапшотом из позиций.
// Налог и доставка сейчас проходят нулями — точка расширения для
// будущего pricing-движка.
func buildOrder(checkout *domain.CheckoutSession, number string, lines []domain.CartItem, now time.Time) domain.Order {
	orderID := uuid.NewString()

	var subtotal int64
	items := make([]domain.OrderItem, 0, len(lines))
	for _, line := range lines {
		lineSubtotal := int64(line.Qty) * line.PriceMinor
		subtotal += lineSubtotal
		items = append(items, domain.OrderItem{
			ID:            uuid.NewString(),
			OrderID:       orderID,
			ProductID:     line.ProductID,
			VariantID:     line.VariantID,
			Qty:           line.Qty,
			PriceMinor:    line.PriceMinor,
			SubtotalMinor: lineSubtotal,
			CreatedAt:     now,
		})
	}

	return domain.Order{
		ID:              orderID,
		Number:          number,
		Owner:           checkout.Owner,
		CheckoutID:      checkout.ID,
		Status:          domain.OrderStatusPending,
		PaymentStatus:   domain.OrderPaymentPending,
		SubtotalMinor:   subtotal,
		TaxMinor:        0,
		ShippingMinor:   0,
		DiscountMinor:   0,
		TotalMinor:      subtotal,
		Currency:        "USD",
		ShippingAddress: checkout.ShippingAddress,
		BillingAddress:  checkout.BillingAddress,
		ShippingMethod:  checkout.ShippingMethod,
		Items:           items,
		Version:         0,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// emitOrderCreated кладёт событие о создании заказа в outbox той же транзакцией.
func (a *Assembler) emitOrderCreated(ctx context.Context, tx domain.Store, order *domain.Order) error {
	event := kafka.NewOrderEvent(
		kafka.EventTypeOrderCreated,
		order.ID,
		order.Number,
		string(order.Owner.Type),
		order.Owner.ID,
		string(order.Status),
		map[string]interface{}{
			"total_minor": order.TotalMinor,
			"currency":    order.Currency,
			"items":       len(order.Items),
		},
	)
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order.created event: %w", err)
	}

	msg := domain.OutboxMessage{
		AggregateType: kafka.AggregateOrder,
		AggregateID:   order.ID,
		EventType:     string(kafka.EventTypeOrderCreated),
		Payload:       payload,
	}
	if _, err := tx.Outbox().Enqueue(ctx, msg); err != nil {
		return fmt.Errorf("enqueue order.created: %w", err)
	}
	if a.metrics != nil {
		a.metrics.RecordOutboxEvent()
	}
	return nil
}
