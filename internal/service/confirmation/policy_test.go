package confirmation

import (
	"testing"
	"time"
)

func TestFixedIntervalPolicy(t *testing.T) {
	now := time.Date(2026, 4, 17, 12, 0, 0, 0, time.UTC)
	policy := FixedIntervalPolicy{Interval: 45 * time.Minute}

	// Интервал не зависит от числа прошедших попыток.
	for _, retryCount := range []int32{0, 1, 10} {
		next := policy.NextRetry(now, retryCount)
		if !next.Equal(now.Add(45 * time.Minute)) {
			t.Fatalf("NextRetry(%d) = %s, want %s", retryCount, next, now.Add(45*time.Minute))
		}
	}
}

func TestDefaultRetryPolicy(t *testing.T) {
	now := time.Date(2026, 4, 17, 12, 0, 0, 0, time.UTC)
	next := DefaultRetryPolicy().NextRetry(now, 1)
	if !next.Equal(now.Add(time.Hour)) {
		t.Fatalf("default next retry = %s, want %s", next, now.Add(time.Hour))
	}
}
