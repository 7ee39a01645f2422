package confirmation

import "time"

// RetryPolicy решает, когда переоценивать подтверждение, по которому
// не сработало ни одно правило.
type RetryPolicy interface {
	NextRetry(now time.Time, retryCount int32) time.Time
}

// FixedIntervalPolicy — фиксированный интервал между переоценками.
// Политика вынесена в стратегию, чтобы тесты могли подставить короткий интервал.
type FixedIntervalPolicy struct {
	Interval time.Duration
}

// NextRetry возвращает now + Interval независимо от числа прошедших попыток.
func (p FixedIntervalPolicy) NextRetry(now time.Time, _ int32) time.Time {
	return now.Add(p.Interval)
}

// DefaultRetryPolicy — принятый в платформе интервал переоценки: один час.
func DefaultRetryPolicy() RetryPolicy {
	return FixedIntervalPolicy{Interval: time.Hour}
}

var _ RetryPolicy = FixedIntervalPolicy{}
