package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/orderdesk/internal/domain"
)

type counter struct {
	day   string
	count int
}

// sequenceRepositoryInMemory — in-memory реализация SequenceRepository.
// Мьютекс делает read-modify-write неделимым, как транзакция в базе.
type sequenceRepositoryInMemory struct {
	mu       sync.Mutex
	counters map[string]counter
}

// NewSequenceRepository создаёт in-memory хранилище дневных счётчиков.
func NewSequenceRepository() domain.SequenceRepository {
	return &sequenceRepositoryInMemory{
		counters: make(map[string]counter),
	}
}

func (r *sequenceRepositoryInMemory) Next(_ context.Context, name, date string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.counters[name]
	if c.day == date {
		c.count++
	} else {
		c = counter{day: date, count: 1}
	}
	r.counters[name] = c

	return c.count, nil
}

var _ domain.SequenceRepository = (*sequenceRepositoryInMemory)(nil)
