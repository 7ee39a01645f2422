package domain

import "time"

// RuleConditions — набор условий правила автоподтверждения.
// Nil-поле означает "условие не задано и не проверяется";
// заданные условия объединяются логическим AND.
type RuleConditions struct {
	// AmountMinorMin/AmountMinorMax — допустимый диапазон суммы платежа включительно.
	AmountMinorMin *int64
	AmountMinorMax *int64
	// MethodCodes — допустимые коды способа оплаты.
	MethodCodes []string
	// RequireRegistered: true — только аутентифицированные покупатели,
	// false — только гости.
	RequireRegistered *bool
	// MinOrderTotalMinor — минимальная сумма заказа.
	MinOrderTotalMinor *int64
	// HourFrom/HourTo — окно времени суток (часы UTC, [from, to)).
	// Окно через полночь (from > to) тоже поддерживается.
	HourFrom *int
	HourTo   *int
}

// RuleActions — действия, выполняемые при срабатывании правила.
type RuleActions struct {
	// Notify — отправить уведомление через NotificationSender.
	Notify bool
	// SetOrderStatus — перевести заказ в указанный статус (пусто — не менять).
	SetOrderStatus OrderStatus
	// Note — текст, добавляемый в журнал подтверждения.
	Note string
}

// AutomationRule — пара условия/действия, способная подтвердить платёж
// без участия оператора.
type AutomationRule struct {
	ID         string
	Name       string
	Enabled    bool
	Priority   int32
	Conditions RuleConditions
	Actions    RuleActions
}

// RuleInput — факты, по которым оценивается правило.
type RuleInput struct {
	PaymentAmountMinor int64
	PaymentMethod      string
	OrderTotalMinor    int64
	Owner              Owner
	Now                time.Time
}

// Matches проверяет, выполняются ли все заданные условия правила (логическое AND).
// Отключённое правило не срабатывает никогда.
func (r *AutomationRule) Matches(in RuleInput) bool {
	if !r.Enabled {
		return false
	}

	cond := r.Conditions
	if cond.AmountMinorMin != nil && in.PaymentAmountMinor < *cond.AmountMinorMin {
		return false
	}
	if cond.AmountMinorMax != nil && in.PaymentAmountMinor > *cond.AmountMinorMax {
		return false
	}
	if len(cond.MethodCodes) > 0 && !containsString(cond.MethodCodes, in.PaymentMethod) {
		return false
	}
	if cond.RequireRegistered != nil && in.Owner.IsRegistered() != *cond.RequireRegistered {
		return false
	}
	if cond.MinOrderTotalMinor != nil && in.OrderTotalMinor < *cond.MinOrderTotalMinor {
		return false
	}
	if cond.HourFrom != nil && cond.HourTo != nil {
		hour := in.Now.UTC().Hour()
		from, to := *cond.HourFrom, *cond.HourTo
		if from <= to {
			if hour < from || hour >= to {
				return false
			}
		} else {
			// Окно через полночь: [from, 24) ∪ [0, to).
			if hour < from && hour >= to {
				return false
			}
		}
	}

	return true
}

func containsString(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
