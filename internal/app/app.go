package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/aqualaguna/direct-commerce-sub001/internal/domain"
	healthcheck "github.com/aqualaguna/direct-commerce-sub001/internal/health"
	"github.com/aqualaguna/direct-commerce-sub001/internal/messaging/kafka"
	"github.com/aqualaguna/direct-commerce-sub001/internal/service/confirmation"
	"github.com/aqualaguna/direct-commerce-sub001/internal/service/outbox"
	"github.com/aqualaguna/direct-commerce-sub001/internal/version"
)

// Run собирает граф зависимостей и запускает фоновые воркеры
// до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	rules, err := LoadAutomationRules(cfg.RulesFile)
	if err != nil {
		return err
	}
	if len(rules) > 0 {
		logger.WithField("rules", len(rules)).Info("automation rules loaded")
	}

	// Kafka — опциональный: без брокера сервис работает, события копятся в outbox.
	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)

	var notifier domain.NotificationSender
	if kafkaProducer != nil {
		notifier = kafka.NewTopicNotifier(kafkaProducer, cfg.NotificationTopic)
	}

	deps, err := NewDependencies(ctx, cfg, notifier, logger)
	if err != nil {
		closeKafka(kafkaProducer, logger)
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.WithError(err).Warn("failed to close storage")
		}
	}()

	healthHandler := healthcheck.NewHandler(version.String())
	healthHandler.RegisterChecker("storage", healthcheck.NewSimpleChecker("storage", func() error {
		checkCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return deps.PingStorage(checkCtx)
	}))
	healthHandler.RegisterChecker("outbox", healthcheck.NewOutboxBacklogChecker("outbox", func() (domain.OutboxStats, error) {
		checkCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return deps.Store.Outbox().Stats(checkCtx)
	}, 1000, 5*time.Minute))

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	var wg sync.WaitGroup

	if kafkaProducer != nil {
		publisher := kafka.NewOutboxRouter(kafkaProducer, cfg.OrderTopic, cfg.ConfirmationTopic)
		dlqPublisher := kafka.NewDLQPublisher(kafkaProducer, cfg.DLQTopic)
		outboxWorker := outbox.NewWorker(
			deps.Store.Outbox(),
			publisher,
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
			outbox.WithDLQPublisher(dlqPublisher),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			outboxWorker.Run(ctx)
		}()
	}

	retryWorker := confirmation.NewRetryWorker(
		deps.Engine,
		func() []domain.AutomationRule { return rules },
		confirmation.WithWorkerLogger(logger.WithField("component", "confirmation-retry-worker")),
		confirmation.WithWorkerInterval(cfg.RetryInterval),
		confirmation.WithWorkerBatchSize(cfg.RetryBatchSize),
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		retryWorker.Run(ctx)
	}()

	logger.Info("service started")
	<-ctx.Done()
	logger.Info("получен сигнал остановки, останавливаем воркеры")

	wg.Wait()
	shutdownHTTP(metricsSrv, logger)
	closeKafka(kafkaProducer, logger)

	return ctx.Err()
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
