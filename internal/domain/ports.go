package domain

import (
	"context"
	"errors"
	"time"
)

// OrderRepository описывает требования к хранилищу заказов.
// Шапка заказа и его позиции всегда изменяются как единая атомарная запись.
type OrderRepository interface {
	// Create сохраняет шапку заказа вместе со всеми позициями в одной транзакции.
	Create(ctx context.Context, order Order) error
	// Get возвращает заказ с позициями или ErrOrderNotFound, если его нет.
	Get(ctx context.Context, id string) (Order, error)
	// List возвращает все заказы по убыванию order_date (tie-break по id).
	List(ctx context.Context) ([]Order, error)
	// Search возвращает заказы, подходящие под фильтр, в том же порядке, что и List.
	Search(ctx context.Context, filter SearchFilter) ([]Order, error)
	// Update заменяет поля шапки и полностью заменяет набор позиций.
	// Возвращает ErrOrderNotFound, если шапки с таким id не существует.
	Update(ctx context.Context, order Order) error
	// Delete удаляет позиции и шапку заказа в одной транзакции.
	Delete(ctx context.Context, id string) error
}

// SequenceRepository хранит дневные счётчики для генерации номеров заказов.
type SequenceRepository interface {
	// Next атомарно инкрементирует счётчик name для даты date (YYYYMMDD)
	// и возвращает новое значение. Если сохранённая дата счётчика отличается
	// от date, счётчик начинается заново с 1. Read-modify-write неделим
	// по отношению к конкурентным вызовам; при конфликте возвращается
	// ErrSequenceConflict, и вызывающий повторяет попытку.
	Next(ctx context.Context, name, date string) (int, error)
}

// Clock отдаёт текущее время; инжектируется для детерминированных тестов.
type Clock interface {
	Now() time.Time
}

// SystemClock — часы на основе системного времени.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// ErrOutboxPublish используется репозиторием outbox при невозможности
// пометить сообщение как отправленное/проваленное.
var ErrOutboxPublish = errors.New("outbox publish failed")
