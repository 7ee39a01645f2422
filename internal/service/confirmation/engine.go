package confirmation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/aqualaguna/direct-commerce-sub001/internal/domain"
	"github.com/aqualaguna/direct-commerce-sub001/internal/messaging/kafka"
	"github.com/aqualaguna/direct-commerce-sub001/internal/metrics"
	"github.com/aqualaguna/direct-commerce-sub001/internal/service/history"
)

// Engine управляет машиной состояний подтверждения платежа:
// pending → {confirmed, failed, cancelled}, все три конечные.
// Каждая мутирующая операция добавляет запись в журнал подтверждения
// и исполняется в одной транзакции с изменениями платежа и заказа.
type Engine struct {
	store    domain.Store
	recorder *history.Recorder
	notifier domain.NotificationSender
	policy   RetryPolicy
	logger   *log.Entry
	metrics  *metrics.CommerceMetrics
	clock    domain.Clock
}

// Option настраивает Engine.
type Option func(*Engine)

// WithNotifier задаёт отправителя уведомлений для действий правил.
func WithNotifier(notifier domain.NotificationSender) Option {
	return func(e *Engine) {
		e.notifier = notifier
	}
}

// WithRetryPolicy подменяет политику переоценки.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(e *Engine) {
		e.policy = policy
	}
}

// WithClock подменяет источник времени (для тестов).
func WithClock(clock domain.Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithoutMetrics отключает метрики (для тестов).
func WithoutMetrics() Option {
	return func(e *Engine) {
		e.metrics = nil
	}
}

// NewEngine создаёт движок подтверждений.
func NewEngine(store domain.Store, recorder *history.Recorder, logger *log.Entry, options ...Option) *Engine {
	if logger == nil {
		logger = log.WithField("component", "confirmation-engine")
	}

	e := &Engine{
		store:    store,
		recorder: recorder,
		policy:   DefaultRetryPolicy(),
		logger:   logger,
		metrics:  metrics.NewCommerceMetrics(),
		clock:    domain.SystemClock(),
	}
	for _, option := range options {
		option(e)
	}
	return e
}

// CreateConfirmation заводит workflow-запись для платежа сразу после его
// создания. Связь строго 1:1 — второе подтверждение того же платежа
// отвергается с ErrConfirmationExists.
func (e *Engine) CreateConfirmation(ctx context.Context, paymentID string, ctype domain.ConfirmationType, method string) (domain.PaymentConfirmation, error) {
	var created domain.PaymentConfirmation

	err := e.store.WithinTx(ctx, func(tx domain.Store) error {
		payment, err := tx.Payments().Get(ctx, paymentID)
		if err != nil {
			return err
		}

		now := e.clock.Now()
		confirmation := domain.PaymentConfirmation{
			ID:        uuid.NewString(),
			PaymentID: payment.ID,
			OrderID:   payment.OrderID,
			Type:      ctype,
			Status:    domain.ConfirmationStatusPending,
			Method:    method,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if errs := confirmation.Validate(); len(errs) > 0 {
			return fmt.Errorf("%w: %v", domain.ErrValidation, errs)
		}
		confirmation.AppendEvent(domain.ConfirmationStatusPending, "created", domain.SystemOwner(), "", now)

		if err := tx.Confirmations().Create(ctx, confirmation); err != nil {
			return err
		}
		if err := e.emit(ctx, tx, &confirmation, kafka.EventTypeConfirmationCreated, ""); err != nil {
			return err
		}
		created = confirmation
		return nil
	})
	if err != nil {
		return domain.PaymentConfirmation{}, err
	}

	e.logger.WithFields(log.Fields{
		"confirmation_id": created.ID,
		"payment_id":      paymentID,
		"type":            string(created.Type),
	}).Info("payment confirmation created")
	return created, nil
}

// ConfirmManually подтверждает платёж от имени actor. Предусловия:
// подтверждение и платёж в статусе pending. Побочные эффекты одной
// транзакцией: платёж → confirmed, заказ.paymentStatus → paid, записи
// в журнале подтверждения и аудите заказа.
func (e *Engine) ConfirmManually(ctx context.Context, confirmationID string, actor domain.Owner, note string) (domain.PaymentConfirmation, error) {
	return e.resolve(ctx, confirmationID, actor, note, decision{
		action:             "confirm",
		confirmationStatus: domain.ConfirmationStatusConfirmed,
		paymentStatus:      domain.PaymentStatusConfirmed,
		orderPayment:       domain.OrderPaymentPaid,
		metricResult:       "confirmed",
		eventType:          kafka.EventTypeConfirmationConfirmed,
	})
}

// Reject отклоняет pending-платёж: подтверждение → failed,
// платёж → rejected, заказ.paymentStatus → failed.
func (e *Engine) Reject(ctx context.Context, confirmationID string, actor domain.Owner, reason string) (domain.PaymentConfirmation, error) {
	return e.resolve(ctx, confirmationID, actor, reason, decision{
		action:             "reject",
		confirmationStatus: domain.ConfirmationStatusFailed,
		paymentStatus:      domain.PaymentStatusRejected,
		orderPayment:       domain.OrderPaymentFailed,
		metricResult:       "failed",
		eventType:          kafka.EventTypeConfirmationFailed,
	})
}

// Cancel отменяет pending-платёж: подтверждение → cancelled,
// платёж → cancelled, заказ.paymentStatus → failed.
// После confirmed (как и любого конечного статуса) отмена невозможна.
func (e *Engine) Cancel(ctx context.Context, confirmationID string, actor domain.Owner, reason string) (domain.PaymentConfirmation, error) {
	return e.resolve(ctx, confirmationID, actor, reason, decision{
		action:             "cancel",
		confirmationStatus: domain.ConfirmationStatusCancelled,
		paymentStatus:      domain.PaymentStatusCancelled,
		orderPayment:       domain.OrderPaymentFailed,
		metricResult:       "cancelled",
		eventType:          kafka.EventTypeConfirmationCancelled,
	})
}

// decision описывает конечный исход операции над подтверждением.
type decision struct {
	action             string
	confirmationStatus domain.ConfirmationStatus
	paymentStatus      domain.PaymentStatus
	orderPayment       domain.OrderPaymentStatus
	metricResult       string
	eventType          kafka.EventType
}

// resolve — общий путь перевода подтверждения в конечный статус.
func (e *Engine) resolve(ctx context.Context, confirmationID string, actor domain.Owner, note string, d decision) (domain.PaymentConfirmation, error) {
	if err := actor.Validate(); err != nil {
		return domain.PaymentConfirmation{}, err
	}

	var result domain.PaymentConfirmation
	err := e.store.WithinTx(ctx, func(tx domain.Store) error {
		confirmation, err := tx.Confirmations().Get(ctx, confirmationID)
		if err != nil {
			return err
		}
		if confirmation.Status != domain.ConfirmationStatusPending {
			return fmt.Errorf("confirmation is %s: %w", confirmation.Status, domain.ErrInvalidState)
		}

		payment, err := tx.Payments().Get(ctx, confirmation.PaymentID)
		if err != nil {
			return err
		}
		if payment.Status != domain.PaymentStatusPending {
			return fmt.Errorf("payment is %s: %w", payment.Status, domain.ErrInvalidState)
		}

		order, err := tx.Orders().Get(ctx, confirmation.OrderID)
		if err != nil {
			return err
		}

		now := e.clock.Now()
		confirmation.Status = d.confirmationStatus
		confirmation.AppendEvent(d.confirmationStatus, d.action, actor, note, now)
		if err := tx.Confirmations().Save(ctx, confirmation); err != nil {
			return err
		}

		payment.Status = d.paymentStatus
		if err := tx.Payments().Save(ctx, payment); err != nil {
			return err
		}

		previous := order.PaymentStatus
		order.PaymentStatus = d.orderPayment
		if err := tx.Orders().Save(ctx, order); err != nil {
			return err
		}

		source := history.SourceForOwner(actor)
		if err := e.recorder.PaymentUpdated(ctx, tx, order.ID, previous, d.orderPayment, actor, source, note); err != nil {
			return err
		}

		if err := e.emit(ctx, tx, &confirmation, d.eventType, note); err != nil {
			return err
		}

		result = confirmation
		return nil
	})
	if err != nil {
		return domain.PaymentConfirmation{}, err
	}

	if e.metrics != nil {
		e.metrics.RecordConfirmation(d.metricResult)
	}
	e.logger.WithFields(log.Fields{
		"confirmation_id": confirmationID,
		"action":          d.action,
		"actor":           string(actor.Type),
	}).Info("payment confirmation resolved")
	return result, nil
}

// ProcessAutomated прогоняет pending-подтверждение через упорядоченный
// список правил. Условия внутри правила объединяются AND; срабатывает
// первое совпавшее, но оценка продолжается по всем, чтобы отметить
// дополнительные совпадения в заметке. Если не совпало ни одно —
// инкремент retryCount и планирование переоценки по политике.
func (e *Engine) ProcessAutomated(ctx context.Context, confirmationID string, rules []domain.AutomationRule) (domain.PaymentConfirmation, error) {
	confirmation, err := e.store.Confirmations().Get(ctx, confirmationID)
	if err != nil {
		return domain.PaymentConfirmation{}, err
	}
	if confirmation.Status != domain.ConfirmationStatusPending {
		return domain.PaymentConfirmation{}, fmt.Errorf("confirmation is %s: %w", confirmation.Status, domain.ErrInvalidState)
	}

	payment, err := e.store.Payments().Get(ctx, confirmation.PaymentID)
	if err != nil {
		return domain.PaymentConfirmation{}, err
	}
	order, err := e.store.Orders().Get(ctx, confirmation.OrderID)
	if err != nil {
		return domain.PaymentConfirmation{}, err
	}

	input := domain.RuleInput{
		PaymentAmountMinor: payment.AmountMinor,
		PaymentMethod:      payment.MethodCode,
		OrderTotalMinor:    order.TotalMinor,
		Owner:              order.Owner,
		Now:                e.clock.Now(),
	}

	var matched []domain.AutomationRule
	for _, rule := range rules {
		if rule.Matches(input) {
			matched = append(matched, rule)
		}
	}

	if len(matched) == 0 {
		return e.scheduleRetry(ctx, confirmationID)
	}

	fired := matched[0]
	note := automationNote(fired, matched)

	resolved, err := e.resolve(ctx, confirmationID, domain.SystemOwner(), note, decision{
		action:             "auto_confirm",
		confirmationStatus: domain.ConfirmationStatusConfirmed,
		paymentStatus:      domain.PaymentStatusConfirmed,
		orderPayment:       domain.OrderPaymentPaid,
		metricResult:       "auto_confirmed",
		eventType:          kafka.EventTypeConfirmationConfirmed,
	})
	if err != nil {
		return domain.PaymentConfirmation{}, err
	}

	e.executeActions(ctx, fired, &order, &resolved)
	return resolved, nil
}

// scheduleRetry фиксирует безрезультатную оценку: retryCount++, nextRetryAt
// по политике, запись "no rule triggered" в журнал.
func (e *Engine) scheduleRetry(ctx context.Context, confirmationID string) (domain.PaymentConfirmation, error) {
	var result domain.PaymentConfirmation

	err := e.store.WithinTx(ctx, func(tx domain.Store) error {
		confirmation, err := tx.Confirmations().Get(ctx, confirmationID)
		if err != nil {
			return err
		}
		if confirmation.Status != domain.ConfirmationStatusPending {
			return fmt.Errorf("confirmation is %s: %w", confirmation.Status, domain.ErrInvalidState)
		}

		now := e.clock.Now()
		confirmation.RetryCount++
		confirmation.NextRetryAt = e.policy.NextRetry(now, confirmation.RetryCount)
		confirmation.AppendEvent(domain.ConfirmationStatusPending, "automation", domain.SystemOwner(), "no rule triggered", now)

		if err := tx.Confirmations().Save(ctx, confirmation); err != nil {
			return err
		}
		result = confirmation
		return nil
	})
	if err != nil {
		return domain.PaymentConfirmation{}, err
	}

	if e.metrics != nil {
		e.metrics.RecordConfirmation("retry_scheduled")
	}
	e.logger.WithFields(log.Fields{
		"confirmation_id": confirmationID,
		"retry_count":     result.RetryCount,
		"next_retry_at":   result.NextRetryAt,
	}).Debug("no automation rule triggered, retry scheduled")
	return result, nil
}

// executeActions исполняет действия сработавшего правила после коммита
// подтверждения. Отказ уведомления или смены статуса заказа логируется,
// но не откатывает уже подтверждённый платёж.
func (e *Engine) executeActions(ctx context.Context, rule domain.AutomationRule, order *domain.Order, confirmation *domain.PaymentConfirmation) {
	if rule.Actions.Notify && e.notifier != nil {
		subject := "Payment confirmed"
		body := fmt.Sprintf("Payment for order %s was confirmed automatically by rule %q.", order.Number, rule.Name)
		if err := e.notifier.Send(order.ID, order.Owner, subject, body); err != nil {
			e.logger.WithError(err).WithFields(log.Fields{
				"order_id": order.ID,
				"rule":     rule.Name,
			}).Warn("automation notification failed")
		}
	}

	if rule.Actions.SetOrderStatus != "" {
		err := e.store.WithinTx(ctx, func(tx domain.Store) error {
			fresh, err := tx.Orders().Get(ctx, order.ID)
			if err != nil {
				return err
			}
			previous := fresh.Status
			if previous == rule.Actions.SetOrderStatus {
				return nil
			}
			fresh.Status = rule.Actions.SetOrderStatus
			if err := tx.Orders().Save(ctx, fresh); err != nil {
				return err
			}
			return e.recorder.StatusChanged(ctx, tx, fresh.ID, previous, fresh.Status, domain.SystemOwner(), domain.SourceSystem)
		})
		if err != nil {
			e.logger.WithError(err).WithFields(log.Fields{
				"order_id": order.ID,
				"rule":     rule.Name,
			}).Warn("automation order status action failed")
		}
	}
}

// RequiringRetry возвращает подтверждения, срок переоценки которых наступил,
// по возрастанию nextRetryAt. Это лента для периодического воркера.
func (e *Engine) RequiringRetry(ctx context.Context, limit int) ([]domain.PaymentConfirmation, error) {
	return e.store.Confirmations().ListRequiringRetry(ctx, e.clock.Now(), limit)
}

// BulkResult — результат массового подтверждения: частичный успех ожидаем
// и отражается списками, а не единой ошибкой.
type BulkResult struct {
	Confirmed []string
	Failed    []BulkFailure
}

// BulkFailure описывает отказ по конкретному подтверждению.
type BulkFailure struct {
	ConfirmationID string
	Err            error
}

// BulkConfirm применяет ручное подтверждение к каждому id независимо.
// Транзакционности между id нет: отказ одного не откатывает остальные.
func (e *Engine) BulkConfirm(ctx context.Context, ids []string, actor domain.Owner, note string) BulkResult {
	var result BulkResult
	for _, id := range ids {
		if _, err := e.ConfirmManually(ctx, id, actor, note); err != nil {
			result.Failed = append(result.Failed, BulkFailure{ConfirmationID: id, Err: err})
			continue
		}
		result.Confirmed = append(result.Confirmed, id)
	}

	e.logger.WithFields(log.Fields{
		"requested": len(ids),
		"confirmed": len(result.Confirmed),
		"failed":    len(result.Failed),
	}).Info("bulk confirmation finished")
	return result
}

// automationNote собирает заметку о сработавшем правиле: прочие совпадения
// и текст из действия note самого правила.
func automationNote(fired domain.AutomationRule, matched []domain.AutomationRule) string {
	note := fmt.Sprintf("auto-confirmed by rule %q", fired.Name)
	if len(matched) > 1 {
		others := make([]string, 0, len(matched)-1)
		for _, rule := range matched[1:] {
			others = append(others, rule.Name)
		}
		note = fmt.Sprintf("%s (also matched: %s)", note, strings.Join(others, ", "))
	}
	if fired.Actions.Note != "" {
		note = note + ": " + fired.Actions.Note
	}
	return note
}

// emit кладёт событие об исходе подтверждения в outbox той же транзакцией.
func (e *Engine) emit(ctx context.Context, tx domain.Store, confirmation *domain.PaymentConfirmation, eventType kafka.EventType, note string) error {
	event := kafka.NewConfirmationEvent(
		eventType,
		confirmation.ID,
		confirmation.PaymentID,
		confirmation.OrderID,
		string(confirmation.Status),
		note,
	)
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal confirmation event: %w", err)
	}

	msg := domain.OutboxMessage{
		AggregateType: kafka.AggregateConfirmation,
		AggregateID:   confirmation.ID,
		EventType:     string(eventType),
		Payload:       payload,
	}
	if _, err := tx.Outbox().Enqueue(ctx, msg); err != nil {
		return fmt.Errorf("enqueue confirmation event: %w", err)
	}
	if e.metrics != nil {
		e.metrics.RecordOutboxEvent()
	}
	return nil
}
