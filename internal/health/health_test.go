package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aqualaguna/direct-commerce-sub001/internal/domain"
)

func TestHandlerAggregatesChecks(t *testing.T) {
	handler := NewHandler("v1.2.3")
	handler.RegisterChecker("storage", NewSimpleChecker("storage", func() error {
		return nil
	}))
	handler.RegisterChecker("outbox", NewOutboxBacklogChecker("outbox", func() (domain.OutboxStats, error) {
		return domain.OutboxStats{PendingCount: 3}, nil
	}, 100, time.Hour))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var response Response
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Status != StatusHealthy {
		t.Errorf("expected status healthy, got %s", response.Status)
	}
	if response.Version != "v1.2.3" {
		t.Errorf("expected version v1.2.3, got %s", response.Version)
	}
	if len(response.Checks) != 2 {
		t.Errorf("expected 2 checks, got %d", len(response.Checks))
	}
}

func TestHandlerUnhealthyCheckGives503(t *testing.T) {
	handler := NewHandler("v1.2.3")
	handler.RegisterChecker("storage", NewSimpleChecker("storage", func() error {
		return errors.New("connection refused")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", w.Code)
	}

	var response Response
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Status != StatusUnhealthy {
		t.Errorf("expected status unhealthy, got %s", response.Status)
	}
}

func TestLivenessHandler(t *testing.T) {
	w := httptest.NewRecorder()
	LivenessHandler(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "ok" {
		t.Errorf("expected body 'ok', got %s", w.Body.String())
	}
}

func TestReadinessStaysReadyWhenDegraded(t *testing.T) {
	handler := NewHandler("v1.2.3")
	handler.RegisterChecker("outbox", NewOutboxBacklogChecker("outbox", func() (domain.OutboxStats, error) {
		return domain.OutboxStats{PendingCount: 500}, nil
	}, 100, 0))

	w := httptest.NewRecorder()
	handler.ReadinessHandler(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected degraded instance to stay ready, got %d", w.Code)
	}
	if w.Body.String() != "ready" {
		t.Errorf("expected body 'ready', got %s", w.Body.String())
	}
}

func TestReadinessUnhealthyGives503(t *testing.T) {
	handler := NewHandler("v1.2.3")
	handler.RegisterChecker("storage", NewSimpleChecker("storage", func() error {
		return errors.New("connection refused")
	}))

	w := httptest.NewRecorder()
	handler.ReadinessHandler(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}
	if w.Body.String() != "not ready" {
		t.Errorf("expected body 'not ready', got %s", w.Body.String())
	}
}

func TestSimpleCheckerMeasuresDuration(t *testing.T) {
	checker := NewSimpleChecker("slow", func() error {
		time.Sleep(10 * time.Millisecond)
		return nil
	})

	check := checker.Check()

	if check.Status != StatusHealthy {
		t.Errorf("expected status healthy, got %s", check.Status)
	}
	if check.DurationMs < 10 {
		t.Errorf("expected duration >= 10ms, got %dms", check.DurationMs)
	}
}

func TestSimpleCheckerError(t *testing.T) {
	checker := NewSimpleChecker("broken", func() error {
		return errors.New("test error")
	})

	check := checker.Check()

	if check.Status != StatusUnhealthy {
		t.Errorf("expected status unhealthy, got %s", check.Status)
	}
	if check.Message != "test error" {
		t.Errorf("expected message 'test error', got %s", check.Message)
	}
}

func TestOutboxBacklogChecker(t *testing.T) {
	t.Run("healthy within thresholds", func(t *testing.T) {
		checker := NewOutboxBacklogChecker("outbox", func() (domain.OutboxStats, error) {
			return domain.OutboxStats{PendingCount: 10, OldestPendingAt: time.Now().Add(-time.Minute)}, nil
		}, 100, time.Hour)

		if check := checker.Check(); check.Status != StatusHealthy {
			t.Errorf("expected status healthy, got %s (%s)", check.Status, check.Message)
		}
	})

	t.Run("degraded on pending count", func(t *testing.T) {
		checker := NewOutboxBacklogChecker("outbox", func() (domain.OutboxStats, error) {
			return domain.OutboxStats{PendingCount: 101}, nil
		}, 100, time.Hour)

		check := checker.Check()
		if check.Status != StatusDegraded {
			t.Errorf("expected status degraded, got %s", check.Status)
		}
		if check.Message == "" {
			t.Error("expected message describing the backlog")
		}
	})

	t.Run("degraded on oldest pending age", func(t *testing.T) {
		checker := NewOutboxBacklogChecker("outbox", func() (domain.OutboxStats, error) {
			return domain.OutboxStats{PendingCount: 1, OldestPendingAt: time.Now().Add(-2 * time.Hour)}, nil
		}, 100, time.Hour)

		if check := checker.Check(); check.Status != StatusDegraded {
			t.Errorf("expected status degraded, got %s", check.Status)
		}
	})

	t.Run("unhealthy on stats error", func(t *testing.T) {
		checker := NewOutboxBacklogChecker("outbox", func() (domain.OutboxStats, error) {
			return domain.OutboxStats{}, errors.New("connection refused")
		}, 100, time.Hour)

		check := checker.Check()
		if check.Status != StatusUnhealthy {
			t.Errorf("expected status unhealthy, got %s", check.Status)
		}
		if check.Message != "connection refused" {
			t.Errorf("expected error message, got %s", check.Message)
		}
	})

	t.Run("zero thresholds disable criteria", func(t *testing.T) {
		checker := NewOutboxBacklogChecker("outbox", func() (domain.OutboxStats, error) {
			return domain.OutboxStats{PendingCount: 100000, OldestPendingAt: time.Now().Add(-24 * time.Hour)}, nil
		}, 0, 0)

		if check := checker.Check(); check.Status != StatusHealthy {
			t.Errorf("expected status healthy with disabled thresholds, got %s", check.Status)
		}
	})
}
