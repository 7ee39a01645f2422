package ordernum

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/aqualaguna/direct-commerce-sub001/internal/domain"
)

const (
	defaultPrefix      = "ORD"
	defaultMaxAttempts = 10
	randomSuffixLen    = 4
	base36Alphabet     = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// Generator выпускает уникальные номера заказов вида <prefix><time><random>
// с проверкой занятости. Количество попыток ограничено: после maxAttempts
// коллизий возвращается ErrOrderNumberExhausted вместо бесконечной рекурсии.
type Generator struct {
	prefix      string
	maxAttempts int
	clock       domain.Clock
	logger      *log.Entry

	mu  sync.Mutex
	rnd *rand.Rand
}

// Option настраивает Generator.
type Option func(*Generator)

// WithPrefix задаёт префикс номера заказа.
func WithPrefix(prefix string) Option {
	return func(g *Generator) {
		g.prefix = prefix
	}
}

// WithMaxAttempts задаёт лимит попыток при коллизиях.
func WithMaxAttempts(attempts int) Option {
	return func(g *Generator) {
		g.maxAttempts = attempts
	}
}

// WithClock подменяет источник времени (для тестов).
func WithClock(clock domain.Clock) Option {
	return func(g *Generator) {
		g.clock = clock
	}
}

// WithRandSource подменяет источник случайности (для детерминированных тестов).
func WithRandSource(src rand.Source) Option {
	return func(g *Generator) {
		g.rnd = rand.New(src)
	}
}

// NewGenerator создаёт генератор с настройками по умолчанию.
func NewGenerator(logger *log.Entry, options ...Option) *Generator {
	if logger == nil {
		logger = log.WithField("component", "ordernum")
	}

	g := &Generator{
		prefix:      defaultPrefix,
		maxAttempts: defaultMaxAttempts,
		clock:       domain.SystemClock(),
		logger:      logger,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, option := range options {
		option(g)
	}
	if g.maxAttempts <= 0 {
		g.maxAttempts = defaultMaxAttempts
	}
	return g
}

// Generate выпускает номер, свободный в переданном репозитории заказов.
// Вызывается внутри транзакции сборки, поэтому проверка занятости видит
// и ещё не зафиксированные заказы той же транзакции.
func (g *Generator) Generate(ctx context.Context, orders domain.OrderRepository) (string, error) {
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		candidate := g.compose()

		exists, err := orders.NumberExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check order number: %w", err)
		}
		if !exists {
			return candidate, nil
		}

		g.logger.WithFields(log.Fields{
			"candidate": candidate,
			"attempt":   attempt,
		}).Warn("order number collision, regenerating")
	}

	return "", domain.ErrOrderNumberExhausted
}

// compose собирает номер: prefix + base36-время + случайный суффикс.
func (g *Generator) compose() string {
	ts := strconv.FormatInt(g.clock.Now().Unix(), 36)

	g.mu.Lock()
	var sb strings.Builder
	for i := 0; i < randomSuffixLen; i++ {
		sb.WriteByte(base36Alphabet[g.rnd.Intn(len(base36Alphabet))])
	}
	g.mu.Unlock()

	return g.prefix + strings.ToUpper(ts) + strings.ToUpper(sb.String())
}
