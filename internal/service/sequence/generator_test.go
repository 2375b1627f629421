package sequence_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderdesk/internal/domain"
	"github.com/vladislavdragonenkov/orderdesk/internal/service/sequence"
	"github.com/vladislavdragonenkov/orderdesk/internal/storage/memory"
)

// fixedClock возвращает заранее заданный момент времени.
type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger.WithField("component", "test")
}

func TestGenerator_FormatAndIncrement(t *testing.T) {
	clock := &fixedClock{now: time.Date(2026, time.January, 10, 9, 0, 0, 0, time.UTC)}
	gen := sequence.NewGenerator(memory.NewSequenceRepository(), clock, testLogger())

	first, err := gen.Next(context.Background())
	if err != nil {
		t.Fatalf("next failed: %v", err)
	}
	if first != "INV20260110-001" {
		t.Fatalf("unexpected order number: %s", first)
	}

	second, err := gen.Next(context.Background())
	if err != nil {
		t.Fatalf("next failed: %v", err)
	}
	if second != "INV20260110-002" {
		t.Fatalf("unexpected order number: %s", second)
	}
}

func TestGenerator_ResetsOnNewDay(t *testing.T) {
	clock := &fixedClock{now: time.Date(2026, time.January, 10, 23, 59, 0, 0, time.UTC)}
	gen := sequence.NewGenerator(memory.NewSequenceRepository(), clock, testLogger())

	for i := 0; i < 7; i++ {
		if _, err := gen.Next(context.Background()); err != nil {
			t.Fatalf("next failed: %v", err)
		}
	}

	clock.now = clock.now.Add(2 * time.Minute) // уже следующий день
	got, err := gen.Next(context.Background())
	if err != nil {
		t.Fatalf("next failed: %v", err)
	}
	if got != "INV20260111-001" {
		t.Fatalf("expected sequence reset on day rollover, got %s", got)
	}
}

func TestGenerator_ConcurrentContiguous(t *testing.T) {
	clock := &fixedClock{now: time.Date(2026, time.January, 10, 12, 0, 0, 0, time.UTC)}
	gen := sequence.NewGenerator(memory.NewSequenceRepository(), clock, testLogger())

	const callers = 50

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[string]bool, callers)
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			no, err := gen.Next(context.Background())
			if err != nil {
				t.Errorf("next failed: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if seen[no] {
				t.Errorf("duplicate order number %s", no)
			}
			seen[no] = true
		}()
	}
	wg.Wait()

	if len(seen) != callers {
		t.Fatalf("expected %d distinct numbers, got %d", callers, len(seen))
	}
	for n := 1; n <= callers; n++ {
		want := fmt.Sprintf("INV20260110-%03d", n)
		if !seen[want] {
			t.Fatalf("missing %s: sequence has a gap", want)
		}
	}
}

// conflictingRepo возвращает ErrSequenceConflict заданное число раз.
type conflictingRepo struct {
	conflicts int
	calls     int
	inner     domain.SequenceRepository
}

func (r *conflictingRepo) Next(ctx context.Context, name, date string) (int, error) {
	r.calls++
	if r.calls <= r.conflicts {
		return 0, domain.ErrSequenceConflict
	}
	return r.inner.Next(ctx, name, date)
}

func TestGenerator_RetriesOnConflict(t *testing.T) {
	clock := &fixedClock{now: time.Date(2026, time.January, 10, 12, 0, 0, 0, time.UTC)}
	repo := &conflictingRepo{conflicts: 2, inner: memory.NewSequenceRepository()}
	gen := sequence.NewGenerator(repo, clock, testLogger(),
		sequence.WithMaxAttempts(3), sequence.WithRetryBaseDelay(0))

	got, err := gen.Next(context.Background())
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if got != "INV20260110-001" {
		t.Fatalf("unexpected order number: %s", got)
	}
	if repo.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", repo.calls)
	}
}

func TestGenerator_ContentionExhausted(t *testing.T) {
	clock := &fixedClock{now: time.Date(2026, time.January, 10, 12, 0, 0, 0, time.UTC)}
	repo := &conflictingRepo{conflicts: 100, inner: memory.NewSequenceRepository()}
	gen := sequence.NewGenerator(repo, clock, testLogger(),
		sequence.WithMaxAttempts(3), sequence.WithRetryBaseDelay(0))

	_, err := gen.Next(context.Background())
	if !errors.Is(err, domain.ErrSequenceContention) {
		t.Fatalf("expected ErrSequenceContention, got %v", err)
	}
	if repo.calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", repo.calls)
	}
}

// overflowRepo имитирует счётчик, выдающий значения за пределом формата.
type overflowRepo struct{}

func (overflowRepo) Next(context.Context, string, string) (int, error) {
	return 1000, nil
}

func TestGenerator_OverflowFailsFast(t *testing.T) {
	clock := &fixedClock{now: time.Date(2026, time.January, 10, 12, 0, 0, 0, time.UTC)}
	gen := sequence.NewGenerator(overflowRepo{}, clock, testLogger())

	_, err := gen.Next(context.Background())
	if !errors.Is(err, domain.ErrSequenceExhausted) {
		t.Fatalf("expected ErrSequenceExhausted, got %v", err)
	}
}
