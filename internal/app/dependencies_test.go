package app

import (
	"context"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestNewDependencies_Memory(t *testing.T) {
	cfg := DefaultConfig()

	deps, err := NewDependencies(context.Background(), cfg, log.WithField("test", "memory-init"))
	if err != nil {
		t.Fatalf("NewDependencies: %v", err)
	}
	defer func() { _ = deps.Close() }()

	if deps.Orders == nil || deps.Sequences == nil || deps.Outbox == nil {
		t.Fatalf("memory dependencies must be initialized: %+v", deps)
	}
	if deps.Store != nil {
		t.Fatal("expected nil store for in-memory storage")
	}
}

func TestNewDependencies_PostgresBadDSN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PostgresDSN = "not-a-dsn"

	deps, err := NewDependencies(context.Background(), cfg, log.WithField("test", "postgres-init"))
	if err == nil {
		_ = deps.Close()
		t.Skip("postgres accepted the dsn, environment has a local server")
	}
}
