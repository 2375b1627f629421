package sequence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderdesk/internal/domain"
)

const (
	// counterName — логическое имя счётчика номеров заказов в хранилище.
	counterName = "orders"
	// dateLayout — формат датной части номера заказа.
	dateLayout = "20060102"
	// maxDailySequence — потолок дневного счётчика: формат номера фиксирован
	// на 3 цифры, переполнение — жёсткий отказ, а не тихое расширение.
	maxDailySequence = 999

	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = 50 * time.Millisecond
)

var generateAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "orderdesk_sequence_generate_attempts_total",
	Help: "Total number of order number generation attempts grouped by result.",
}, []string{"result"})

// Option настраивает Generator.
type Option func(*Generator)

// WithMaxAttempts задаёт число попыток инкремента при конфликтах.
func WithMaxAttempts(maxAttempts int) Option {
	return func(g *Generator) {
		if maxAttempts > 0 {
			g.maxAttempts = maxAttempts
		}
	}
}

// WithRetryBaseDelay задаёт базовый delay для exponential backoff.
func WithRetryBaseDelay(delay time.Duration) Option {
	return func(g *Generator) {
		if delay >= 0 {
			g.retryBaseDelay = delay
		}
	}
}

// Generator выдаёт уникальные номера заказов вида INV<YYYYMMDD>-<NNN>.
// Дневной счётчик живёт в хранилище; неделимость инкремента обеспечивает
// транзакция хранилища, генератор лишь повторяет её при конфликтах.
type Generator struct {
	repo           domain.SequenceRepository
	clock          domain.Clock
	logger         *log.Entry
	maxAttempts    int
	retryBaseDelay time.Duration
}

// NewGenerator создаёт генератор номеров заказов.
func NewGenerator(repo domain.SequenceRepository, clock domain.Clock, logger *log.Entry, options ...Option) *Generator {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if logger == nil {
		logger = log.WithField("component", "sequence-generator")
	}

	g := &Generator{
		repo:           repo,
		clock:          clock,
		logger:         logger,
		maxAttempts:    defaultMaxAttempts,
		retryBaseDelay: defaultRetryBaseDelay,
	}
	for _, option := range options {
		option(g)
	}
	return g
}

// Next возвращает следующий номер заказа для текущего календарного дня.
// Конкурентные вызовы никогда не получают одинаковый номер.
func (g *Generator) Next(ctx context.Context) (string, error) {
	dateStr := g.clock.Now().Format(dateLayout)

	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		count, err := g.repo.Next(ctx, counterName, dateStr)
		if err == nil {
			if count > maxDailySequence {
				generateAttempts.WithLabelValues("exhausted").Inc()
				return "", fmt.Errorf("%w: day %s reached %d", domain.ErrSequenceExhausted, dateStr, count)
			}
			generateAttempts.WithLabelValues("ok").Inc()
			return fmt.Sprintf("INV%s-%03d", dateStr, count), nil
		}

		if !errors.Is(err, domain.ErrSequenceConflict) {
			generateAttempts.WithLabelValues("error").Inc()
			return "", fmt.Errorf("generate order number: %w", err)
		}

		lastErr = err
		generateAttempts.WithLabelValues("conflict").Inc()
		g.logger.WithFields(log.Fields{
			"attempt": attempt,
			"date":    dateStr,
		}).Warn("sequence counter conflict, retrying")

		if attempt >= g.maxAttempts {
			break
		}
		if delay := g.backoff(attempt); delay > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return "", fmt.Errorf("%w: %d attempts, last error: %v", domain.ErrSequenceContention, g.maxAttempts, lastErr)
}

func (g *Generator) backoff(attempt int) time.Duration {
	if g.retryBaseDelay <= 0 {
		return 0
	}
	delay := g.retryBaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	return delay
}
