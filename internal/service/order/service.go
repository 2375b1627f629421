package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderdesk/internal/domain"
	"github.com/vladislavdragonenkov/orderdesk/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/orderdesk/internal/metrics"
	"github.com/vladislavdragonenkov/orderdesk/internal/service/sequence"
)

// Service описывает прикладные операции над заказами.
type Service interface {
	Create(ctx context.Context, input domain.OrderInput) (*domain.Order, error)
	Get(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
	Search(ctx context.Context, filter domain.SearchFilter) ([]domain.Order, error)
	Update(ctx context.Context, id string, input domain.OrderInput) (*domain.Order, error)
	Delete(ctx context.Context, id string) error
}

// service реализует бизнес-логику заказов поверх репозитория и генератора номеров.
type service struct {
	orders    domain.OrderRepository
	generator *sequence.Generator
	outbox    domain.OutboxRepository // опциональный transactional outbox
	clock     domain.Clock
	logger    *log.Entry
	metrics   *metrics.OrderMetrics
}

// Option настраивает сервис заказов.
type Option func(*service)

// WithOutbox подключает transactional outbox для публикации событий.
func WithOutbox(outbox domain.OutboxRepository) Option {
	return func(s *service) { s.outbox = outbox }
}

// WithMetrics подключает метрики операций.
func WithMetrics(m *metrics.OrderMetrics) Option {
	return func(s *service) { s.metrics = m }
}

// WithClock подменяет источник времени (для тестов).
func WithClock(clock domain.Clock) Option {
	return func(s *service) { s.clock = clock }
}

// NewService создаёт сервис заказов.
func NewService(orders domain.OrderRepository, generator *sequence.Generator, logger *log.Entry, opts ...Option) Service {
	if logger == nil {
		logger = log.New().WithField("component", "order-service")
	}
	s := &service{
		orders:    orders,
		generator: generator,
		clock:     domain.SystemClock{},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create валидирует вход и сохраняет заказ. Если клиент не прислал номер,
// генератор выдаёт следующий дневной номер.
func (s *service) Create(ctx context.Context, input domain.OrderInput) (*domain.Order, error) {
	start := time.Now()
	defer func() { s.metrics.RecordOpDuration("create", time.Since(start)) }()

	if errs := input.Validate(); len(errs) > 0 {
		s.metrics.RecordOpFailure("create", "validation")
		return nil, &domain.ValidationError{Errs: errs}
	}

	order := s.buildOrder(input)
	order.ID = uuid.NewString()
	now := s.clock.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now
	if order.OrderDate.IsZero() {
		order.OrderDate = now
	}

	// Номер, присланный клиентом, сохраняется; генератор работает
	// только когда номер не задан.
	if order.OrderNo == "" {
		orderNo, err := s.generator.Next(ctx)
		if err != nil {
			s.metrics.RecordOpFailure("create", failureKind(err))
			return nil, fmt.Errorf("generate order number: %w", err)
		}
		order.OrderNo = orderNo
	}

	if err := s.orders.Create(ctx, *order); err != nil {
		s.metrics.RecordOpFailure("create", failureKind(err))
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.metrics.RecordOrderCreated()
	s.enqueueEvent(ctx, kafka.EventTypeOrderCreated, order)

	s.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"order_no": order.OrderNo,
	}).Info("order created")

	return order, nil
}

// Get возвращает заказ по идентификатору. Отсутствие заказа — (nil, nil).
func (s *service) Get(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.orders.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return nil, nil
		}
		s.metrics.RecordOpFailure("get", failureKind(err))
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &order, nil
}

// List возвращает все заказы, отсортированные по дате (новые первыми).
func (s *service) List(ctx context.Context) ([]domain.Order, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		s.metrics.RecordOpFailure("list", failureKind(err))
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// Search возвращает заказы по префиксу номера и/или диапазону дат.
func (s *service) Search(ctx context.Context, filter domain.SearchFilter) ([]domain.Order, error) {
	orders, err := s.orders.Search(ctx, filter)
	if err != nil {
		s.metrics.RecordOpFailure("search", failureKind(err))
		return nil, fmt.Errorf("search orders: %w", err)
	}
	return orders, nil
}

// Update заменяет данные заказа и его позиции. Номер заказа и время создания
// сохраняются, итоги пересчитываются на сервере.
func (s *service) Update(ctx context.Context, id string, input domain.OrderInput) (*domain.Order, error) {
	start := time.Now()
	defer func() { s.metrics.RecordOpDuration("update", time.Since(start)) }()

	if errs := input.Validate(); len(errs) > 0 {
		s.metrics.RecordOpFailure("update", "validation")
		return nil, &domain.ValidationError{Errs: errs}
	}

	order := s.buildOrder(input)
	order.ID = id
	order.UpdatedAt = s.clock.Now().UTC()
	if order.OrderDate.IsZero() {
		order.OrderDate = order.UpdatedAt
	}

	if err := s.orders.Update(ctx, *order); err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			s.metrics.RecordOpFailure("update", "not_found")
			return nil, domain.ErrOrderNotFound
		}
		s.metrics.RecordOpFailure("update", failureKind(err))
		return nil, fmt.Errorf("update order: %w", err)
	}

	updated, err := s.orders.Get(ctx, id)
	if err != nil {
		s.metrics.RecordOpFailure("update", failureKind(err))
		return nil, fmt.Errorf("reload order: %w", err)
	}

	s.metrics.RecordOrderUpdated()
	s.enqueueEvent(ctx, kafka.EventTypeOrderUpdated, &updated)

	s.logger.WithFields(log.Fields{
		"order_id": updated.ID,
		"order_no": updated.OrderNo,
	}).Info("order updated")

	return &updated, nil
}

// Delete удаляет заказ вместе с позициями.
func (s *service) Delete(ctx context.Context, id string) error {
	order, err := s.orders.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			s.metrics.RecordOpFailure("delete", "not_found")
			return domain.ErrOrderNotFound
		}
		s.metrics.RecordOpFailure("delete", failureKind(err))
		return fmt.Errorf("get order: %w", err)
	}

	if err := s.orders.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			s.metrics.RecordOpFailure("delete", "not_found")
			return domain.ErrOrderNotFound
		}
		s.metrics.RecordOpFailure("delete", failureKind(err))
		return fmt.Errorf("delete order: %w", err)
	}

	s.metrics.RecordOrderDeleted()
	s.enqueueEvent(ctx, kafka.EventTypeOrderDeleted, &order)

	s.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"order_no": order.OrderNo,
	}).Info("order deleted")

	return nil
}

// buildOrder собирает доменный заказ из входных данных и пересчитывает итоги.
// Клиентские суммы не принимаются на веру.
func (s *service) buildOrder(input domain.OrderInput) *domain.Order {
	order := &domain.Order{
		OrderNo:      strings.TrimSpace(input.OrderNo),
		CustomerName: input.CustomerName,
		OrderDate:    input.OrderDate,
		Products:     make([]domain.OrderLineItem, 0, len(input.Products)),
	}
	for i, item := range input.Products {
		order.Products = append(order.Products, domain.OrderLineItem{
			ProductName: item.ProductName,
			Qty:         item.Qty,
			Price:       item.Price,
			Position:    int32(i),
		})
	}
	order.Recalculate()
	return order
}

// enqueueEvent кладёт событие заказа в outbox. Отсутствие outbox не ошибка.
func (s *service) enqueueEvent(ctx context.Context, eventType kafka.EventType, order *domain.Order) {
	if s.outbox == nil {
		return
	}

	event := kafka.NewOrderEvent(eventType, order.ID, order.OrderNo, order.CustomerName, order.OrderDate, order.GrandTotal)
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Error("failed to marshal order event")
		return
	}

	msg := domain.OutboxMessage{
		ID:            uuid.NewString(),
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     string(eventType),
		Payload:       payload,
	}
	if _, err := s.outbox.Enqueue(ctx, msg); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Error("failed to enqueue order event")
		return
	}
	s.metrics.RecordOutboxEvent()
}

// failureKind классифицирует ошибку для метрик.
func failureKind(err error) string {
	switch {
	case domain.IsValidation(err):
		return "validation"
	case errors.Is(err, domain.ErrOrderNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrOrderExists):
		return "duplicate"
	case errors.Is(err, domain.ErrSequenceExhausted):
		return "sequence_exhausted"
	case errors.Is(err, domain.ErrSequenceContention):
		return "sequence_contention"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "internal"
	}
}

var _ Service = (*service)(nil)
