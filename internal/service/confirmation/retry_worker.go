package confirmation

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/aqualaguna/direct-commerce-sub001/internal/domain"
)

const (
	defaultRetryPollInterval = time.Minute
	defaultRetryBatchSize    = 100
)

var (
	confirmationRetryRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commerce_confirmation_retry_runs_total",
		Help: "Total number of confirmation retry sweeps grouped by result.",
	}, []string{"result"})
	confirmationRetryProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commerce_confirmation_retry_processed_total",
		Help: "Total number of confirmations re-evaluated by the retry worker.",
	})
	confirmationRetryLastBatch = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "commerce_confirmation_retry_last_batch",
		Help: "Number of confirmations processed during the last retry sweep.",
	})
)

// RulesProvider отдаёт актуальный список правил автоподтверждения.
// Вынесен в функцию, чтобы правила можно было перечитывать между циклами.
type RulesProvider func() []domain.AutomationRule

// RetryWorkerOptions задаёт параметры воркера переоценки подтверждений.
type RetryWorkerOptions struct {
	Logger    *log.Entry
	Interval  time.Duration
	BatchSize int
}

// RetryWorkerOption настраивает RetryWorker.
type RetryWorkerOption func(*RetryWorkerOptions)

// WithWorkerLogger задаёт logger для воркера.
func WithWorkerLogger(logger *log.Entry) RetryWorkerOption {
	return func(opts *RetryWorkerOptions) {
		opts.Logger = logger
	}
}

// WithWorkerInterval задаёт интервал между циклами.
func WithWorkerInterval(interval time.Duration) RetryWorkerOption {
	return func(opts *RetryWorkerOptions) {
		opts.Interval = interval
	}
}

// WithWorkerBatchSize задаёт максимум подтверждений за один цикл.
func WithWorkerBatchSize(batchSize int) RetryWorkerOption {
	return func(opts *RetryWorkerOptions) {
		opts.BatchSize = batchSize
	}
}

// RetryWorker периодически опрашивает ленту подтверждений, ожидающих
// переоценки, и прогоняет каждое через ProcessAutomated. Это in-process
// замена внешнему планировщику; контрактом остаётся сама лента.
type RetryWorker struct {
	engine    *Engine
	rules     RulesProvider
	logger    *log.Entry
	interval  time.Duration
	batchSize int
}

// NewRetryWorker создаёт воркер переоценки.
func NewRetryWorker(engine *Engine, rules RulesProvider, options ...RetryWorkerOption) *RetryWorker {
	opts := RetryWorkerOptions{
		Interval:  defaultRetryPollInterval,
		BatchSize: defaultRetryBatchSize,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "confirmation-retry-worker")
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultRetryPollInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultRetryBatchSize
	}

	return &RetryWorker{
		engine:    engine,
		rules:     rules,
		logger:    logger,
		interval:  opts.Interval,
		batchSize: opts.BatchSize,
	}
}

// Run запускает периодические циклы до отмены ctx.
func (w *RetryWorker) Run(ctx context.Context) {
	if w.engine == nil || w.rules == nil {
		w.logger.Warn("confirmation retry worker is disabled: engine or rules provider is nil")
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.ProcessOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.ProcessOnce(ctx)
		}
	}
}

// ProcessOnce выполняет один цикл переоценки и возвращает число обработанных записей.
func (w *RetryWorker) ProcessOnce(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}

	due, err := w.engine.RequiringRetry(ctx, w.batchSize)
	if err != nil {
		w.logger.WithError(err).Warn("failed to list confirmations requiring retry")
		confirmationRetryRunsTotal.WithLabelValues("error").Inc()
		return 0
	}
	if len(due) == 0 {
		confirmationRetryRunsTotal.WithLabelValues("empty").Inc()
		confirmationRetryLastBatch.Set(0)
		return 0
	}

	rules := w.rules()
	processed := 0
	for _, confirmation := range due {
		if ctx.Err() != nil {
			break
		}

		if _, err := w.engine.ProcessAutomated(ctx, confirmation.ID, rules); err != nil {
			// Гонка с ручным подтверждением: запись уже терминальна, пропускаем.
			if errors.Is(err, domain.ErrInvalidState) {
				continue
			}
			w.logger.WithError(err).WithField("confirmation_id", confirmation.ID).Warn("automated re-evaluation failed")
			continue
		}
		processed++
	}

	confirmationRetryRunsTotal.WithLabelValues("ok").Inc()
	confirmationRetryProcessedTotal.Add(float64(processed))
	confirmationRetryLastBatch.Set(float64(processed))

	w.logger.WithFields(log.Fields{
		"due":       len(due),
		"processed": processed,
	}).Debug("confirmation retry sweep finished")
	return processed
}
