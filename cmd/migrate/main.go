// Утилита применения миграций схемы orderdesk.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/orderdesk/internal/storage/postgres"
)

const migrateTimeout = 30 * time.Second

type args struct {
	direction string
	steps     int
	dsn       string
}

func main() {
	a := readArgs()
	if err := run(context.Background(), a); err != nil {
		fail("%v", err)
	}
}

func readArgs() args {
	var a args
	flag.StringVar(&a.direction, "direction", "up", "migration direction: up|down|status")
	flag.IntVar(&a.steps, "steps", 0, "number of migrations to apply/rollback (0=all for up, 1 for down)")
	flag.StringVar(&a.dsn, "dsn", "", "PostgreSQL DSN (fallback: ORDERDESK_POSTGRES_DSN)")
	flag.Parse()
	return a
}

func run(ctx context.Context, a args) error {
	direction := strings.ToLower(strings.TrimSpace(a.direction))
	switch direction {
	case "up", "down", "status":
	default:
		return fmt.Errorf("unsupported direction: %s (use up|down|status)", a.direction)
	}

	dsn := strings.TrimSpace(a.dsn)
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("ORDERDESK_POSTGRES_DSN"))
	}
	if dsn == "" {
		return fmt.Errorf("ORDERDESK_POSTGRES_DSN (or -dsn) is required")
	}

	ctx, cancel := context.WithTimeout(ctx, migrateTimeout)
	defer cancel()

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		return fmt.Errorf("open postgres store: %w", err)
	}
	defer store.Close()

	switch direction {
	case "up":
		if err := store.MigrateUp(ctx, a.steps); err != nil {
			return fmt.Errorf("migrate up failed: %w", err)
		}
	case "down":
		steps := a.steps
		if steps <= 0 {
			steps = 1
		}
		if err := store.MigrateDown(ctx, steps); err != nil {
			return fmt.Errorf("migrate down failed: %w", err)
		}
	}

	version, count, err := store.MigrationStatus(ctx)
	if err != nil {
		return fmt.Errorf("migration status failed: %w", err)
	}
	fmt.Printf("migrate %s ok: version=%d applied=%d\n", direction, version, count)
	return nil
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
