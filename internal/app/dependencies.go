package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderdesk/internal/domain"
	"github.com/vladislavdragonenkov/orderdesk/internal/storage/memory"
	"github.com/vladislavdragonenkov/orderdesk/internal/storage/postgres"
)

// Dependencies содержит хранилища приложения.
type Dependencies struct {
	Orders    domain.OrderRepository
	Sequences domain.SequenceRepository
	Outbox    domain.OutboxRepository
	Store     *postgres.Store // nil при in-memory хранилище
	Logger    *log.Entry
}

// NewDependencies собирает хранилища: Postgres при заданном DSN,
// иначе in-memory (для разработки и тестов).
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	if cfg.PostgresDSN == "" {
		logger.Info("postgres DSN not set, using in-memory storage")
		return &Dependencies{
			Orders:    memory.NewOrderRepository(),
			Sequences: memory.NewSequenceRepository(),
			Outbox:    memory.NewOutboxRepository(),
			Logger:    logger,
		}, nil
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	logger.Info("using postgres storage")
	return &Dependencies{
		Orders:    postgres.NewOrderRepository(store),
		Sequences: postgres.NewSequenceRepository(store),
		Outbox:    postgres.NewOutboxRepository(store),
		Store:     store,
		Logger:    logger,
	}, nil
}

// Close освобождает ресурсы хранилища.
func (d *Dependencies) Close() error {
	if d.Store == nil {
		return nil
	}
	return d.Store.Close()
}
