package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/aqualaguna/direct-commerce-sub001/internal/domain"
)

const (
	defaultConnTimeout     = 5 * time.Second
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 25
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 5 * time.Minute
)

// querier объединяет *sql.DB и *sql.Tx: репозитории работают одинаково
// вне транзакции и внутри неё.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store оборачивает SQL-подключение к PostgreSQL и реализует domain.Store.
type Store struct {
	db *sql.DB
}

// Open открывает подключение к PostgreSQL и проверяет доступность базы.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}
	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Store{db: db}, nil
}

// DB возвращает raw SQL DB, когда нужен низкоуровневый доступ.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping проверяет доступность подключения.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("postgres store is not initialized")
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	return s.db.PingContext(pingCtx)
}

// EnsureSchema применяет все up-миграции.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.MigrateUp(ctx, 0)
}

// Close закрывает подключение к БД.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Checkouts возвращает репозиторий checkout-сессий.
func (s *Store) Checkouts() domain.CheckoutRepository {
	return &checkoutRepository{q: s.db}
}

// Carts возвращает репозиторий корзин.
func (s *Store) Carts() domain.CartRepository {
	return &cartRepository{q: s.db}
}

// Orders возвращает репозиторий заказов.
func (s *Store) Orders() domain.OrderRepository {
	return &orderRepository{q: s.db}
}

// Inventory возвращает репозиторий складских записей.
func (s *Store) Inventory() domain.InventoryRepository {
	return &inventoryRepository{q: s.db}
}

// Payments возвращает репозиторий платежей.
func (s *Store) Payments() domain.PaymentRepository {
	return &paymentRepository{q: s.db}
}

// Confirmations возвращает репозиторий подтверждений платежей.
func (s *Store) Confirmations() domain.ConfirmationRepository {
	return &confirmationRepository{q: s.db}
}

// History возвращает журнал аудита заказов.
func (s *Store) History() domain.OrderHistoryRepository {
	return &historyRepository{q: s.db}
}

// Outbox возвращает репозиторий transactional outbox.
func (s *Store) Outbox() domain.OutboxRepository {
	return &outboxRepository{q: s.db}
}

// WithinTx выполняет fn в рамках одной SQL-транзакции. Все репозитории
// внутри fn привязаны к *sql.Tx, складские чтения удерживают row lock.
func (s *Store) WithinTx(ctx context.Context, fn func(tx domain.Store) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// txStore — domain.Store, привязанный к открытой транзакции.
type txStore struct {
	tx *sql.Tx
}

func (s *txStore) Checkouts() domain.CheckoutRepository {
	return &checkoutRepository{q: s.tx}
}

func (s *txStore) Carts() domain.CartRepository {
	return &cartRepository{q: s.tx}
}

func (s *txStore) Orders() domain.OrderRepository {
	return &orderRepository{q: s.tx}
}

func (s *txStore) Inventory() domain.InventoryRepository {
	return &inventoryRepository{q: s.tx, locking: true}
}

func (s *txStore) Payments() domain.PaymentRepository {
	return &paymentRepository{q: s.tx}
}

func (s *txStore) Confirmations() domain.ConfirmationRepository {
	return &confirmationRepository{q: s.tx}
}

func (s *txStore) History() domain.OrderHistoryRepository {
	return &historyRepository{q: s.tx}
}

func (s *txStore) Outbox() domain.OutboxRepository {
	return &outboxRepository{q: s.tx}
}

// WithinTx внутри уже открытой транзакции просто выполняет fn.
func (s *txStore) WithinTx(_ context.Context, fn func(tx domain.Store) error) error {
	return fn(s)
}

var (
	_ domain.Store = (*Store)(nil)
	_ domain.Store = (*txStore)(nil)
)
