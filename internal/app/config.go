package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aqualaguna/direct-commerce-sub001/internal/messaging/kafka"
)

// StorageBackend задаёт реализацию хранилища.
type StorageBackend string

const (
	StorageMemory   StorageBackend = "memory"
	StoragePostgres StorageBackend = "postgres"
)

// Config описывает настройки запуска сервиса.
type Config struct {
	MetricsAddr string

	Storage     StorageBackend
	PostgresDSN string

	KafkaBrokers      string
	OrderTopic        string
	ConfirmationTopic string
	NotificationTopic string
	DLQTopic          string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int

	RetryInterval  time.Duration
	RetryBatchSize int

	RulesFile string
}

// DefaultConfig возвращает базовую конфигурацию. Topics по умолчанию
// заполняются платформенными значениями, чтобы DLQ никогда не указывал
// на основной поток событий.
func DefaultConfig() Config {
	return Config{
		MetricsAddr:        ":9090",
		Storage:            StorageMemory,
		OrderTopic:         kafka.TopicOrderEvents,
		ConfirmationTopic:  kafka.TopicConfirmationEvents,
		NotificationTopic:  kafka.TopicNotifications,
		DLQTopic:           kafka.TopicDeadLetterQueue,
		OutboxPollInterval: time.Second,
		OutboxBatchSize:    100,
		RetryInterval:      time.Minute,
		RetryBatchSize:     100,
	}
}

// ReadConfig формирует конфигурацию, позволяя переопределить значения
// через переменные окружения COMMERCE_*.
func ReadConfig() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("COMMERCE_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("COMMERCE_STORAGE"))); v != "" {
		cfg.Storage = StorageBackend(v)
	}
	if v := os.Getenv("COMMERCE_POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := os.Getenv("COMMERCE_KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = v
	}
	if v := os.Getenv("COMMERCE_ORDER_TOPIC"); v != "" {
		cfg.OrderTopic = v
	}
	if v := os.Getenv("COMMERCE_CONFIRMATION_TOPIC"); v != "" {
		cfg.ConfirmationTopic = v
	}
	if v := os.Getenv("COMMERCE_NOTIFICATION_TOPIC"); v != "" {
		cfg.NotificationTopic = v
	}
	if v := os.Getenv("COMMERCE_DLQ_TOPIC"); v != "" {
		cfg.DLQTopic = v
	}
	if v := os.Getenv("COMMERCE_OUTBOX_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.OutboxPollInterval = d
		}
	}
	if v := os.Getenv("COMMERCE_OUTBOX_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.OutboxBatchSize = n
		}
	}
	if v := os.Getenv("COMMERCE_RETRY_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.RetryInterval = d
		}
	}
	if v := os.Getenv("COMMERCE_RETRY_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RetryBatchSize = n
		}
	}
	if v := os.Getenv("COMMERCE_RULES_FILE"); v != "" {
		cfg.RulesFile = v
	}

	return cfg
}
