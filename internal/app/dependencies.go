package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/aqualaguna/direct-commerce-sub001/internal/domain"
	"github.com/aqualaguna/direct-commerce-sub001/internal/service/checkout"
	"github.com/aqualaguna/direct-commerce-sub001/internal/service/confirmation"
	"github.com/aqualaguna/direct-commerce-sub001/internal/service/history"
	"github.com/aqualaguna/direct-commerce-sub001/internal/service/inventory"
	"github.com/aqualaguna/direct-commerce-sub001/internal/service/ordernum"
	"github.com/aqualaguna/direct-commerce-sub001/internal/storage/memory"
	"github.com/aqualaguna/direct-commerce-sub001/internal/storage/postgres"
)

// Dependencies содержит собранный граф сервисов приложения.
type Dependencies struct {
	Store     domain.Store
	Ledger    *inventory.Ledger
	Numbers   *ordernum.Generator
	Recorder  *history.Recorder
	Assembler *checkout.Assembler
	Engine    *confirmation.Engine
	Logger    *log.Entry

	pg *postgres.Store
}

// NewDependencies создаёт хранилище и сервисы по конфигурации.
// notifier допускает nil: тогда действия notify правил пропускаются.
func NewDependencies(ctx context.Context, cfg Config, notifier domain.NotificationSender, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &Dependencies{Logger: logger}

	switch cfg.Storage {
	case StoragePostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres storage requires COMMERCE_POSTGRES_DSN")
		}
		pg, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("init postgres storage: %w", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = pg.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		deps.Store = pg
		deps.pg = pg
		logger.Info("postgres storage initialized")
	case StorageMemory, "":
		deps.Store = memory.NewStore()
		logger.Info("in-memory storage initialized")
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage)
	}

	deps.Recorder = history.NewRecorder(logger.WithField("component", "history-recorder"))
	deps.Numbers = ordernum.NewGenerator(logger.WithField("component", "order-numbers"))
	deps.Ledger = inventory.NewLedger(deps.Store, logger.WithField("component", "inventory-ledger"))
	deps.Assembler = checkout.NewAssembler(
		deps.Store,
		deps.Numbers,
		deps.Ledger,
		deps.Recorder,
		logger.WithField("component", "order-assembler"),
	)

	engineOptions := []confirmation.Option{}
	if notifier != nil {
		engineOptions = append(engineOptions, confirmation.WithNotifier(notifier))
	}
	deps.Engine = confirmation.NewEngine(
		deps.Store,
		deps.Recorder,
		logger.WithField("component", "confirmation-engine"),
		engineOptions...,
	)

	return deps, nil
}

// PingStorage проверяет доступность хранилища, для memory-варианта всегда nil.
func (d *Dependencies) PingStorage(ctx context.Context) error {
	if d.pg != nil {
		return d.pg.Ping(ctx)
	}
	return nil
}

// Close освобождает ресурсы хранилища.
func (d *Dependencies) Close() error {
	if d.pg != nil {
		return d.pg.Close()
	}
	return nil
}
