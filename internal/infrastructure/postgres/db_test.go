package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewPoolWithConfigDefaults(t *testing.T) {
	ctx := context.Background()

	// using invalid URL should return error
	if _, err := NewPoolWithConfig(ctx, PoolConfig{DatabaseURL: "not-a-url"}); err == nil {
		t.Fatalf("expected error when parsing invalid URL")
	}
}

func TestNewPoolWithConfigPingFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := PoolConfig{
		DatabaseURL: "postgres://invalid:5432/db?connect_timeout=1",
		MaxConns:    1,
		MinConns:    0,
	}

	_, err := NewPoolWithConfig(ctx, cfg)
	if err == nil {
		t.Fatalf("expected error when pool cannot connect")
	}
}

func TestRunMigrationsInvalidSource(t *testing.T) {
	err := RunMigrations("postgres://localhost:1/db?sslmode=disable", "/does/not/exist", zerolog.Nop())
	if err == nil {
		t.Fatalf("expected error for missing migrations directory")
	}
}

func TestRunMigrationsAgainstDatabase(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	if err := RunMigrations(dbURL, "migrations", zerolog.Nop()); err != nil {
		t.Fatalf("migrations failed: %v", err)
	}
	// second run is a no-op
	if err := RunMigrations(dbURL, "migrations", zerolog.Nop()); err != nil {
		t.Fatalf("re-running migrations failed: %v", err)
	}
}
