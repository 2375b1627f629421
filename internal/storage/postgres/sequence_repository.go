package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vladislavdragonenkov/orderdesk/internal/domain"
)

type sequenceRepository struct {
	db *sql.DB
}

// NewSequenceRepository создаёт PostgreSQL-реализацию SequenceRepository.
func NewSequenceRepository(store *Store) domain.SequenceRepository {
	return &sequenceRepository{db: store.DB()}
}

// Next выполняет read-modify-write счётчика одним upsert-стейтментом:
// блокировка строки делает инкремент неделимым для конкурентных вызовов,
// смена даты сбрасывает счётчик на 1.
func (r *sequenceRepository) Next(ctx context.Context, name, date string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var count int
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO sequence_counters (name, day, count, updated_at)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (name) DO UPDATE
		SET count = CASE
		        WHEN sequence_counters.day = EXCLUDED.day THEN sequence_counters.count + 1
		        ELSE 1
		    END,
		    day = EXCLUDED.day,
		    updated_at = NOW()
		RETURNING count
	`, name, date).Scan(&count)
	if err != nil {
		if isSerializationFailure(err) {
			return 0, domain.ErrSequenceConflict
		}
		return 0, fmt.Errorf("increment sequence %q: %w", name, err)
	}

	return count, nil
}

var _ domain.SequenceRepository = (*sequenceRepository)(nil)
