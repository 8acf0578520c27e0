package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

func TestInitPostgresSkipsWithoutURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	origNew := newPool
	t.Cleanup(func() { newPool = origNew })

	called := false
	newPool = func(ctx context.Context, cfg *pgxpool.Config) (*pgxpool.Pool, error) {
		called = true
		return nil, nil
	}

	InitPostgres(context.Background())
	if called {
		t.Fatal("pool should not be created without DATABASE_URL")
	}
	if Pool != nil {
		t.Fatal("expected nil pool")
	}
}

func TestInitPostgresUsesParsedConfig(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://user:pass@db:5432/solfolio")

	origNew := newPool
	origPing := pingPool
	t.Cleanup(func() {
		newPool = origNew
		pingPool = origPing
		Close()
	})

	var host string
	var maxConns int32
	newPool = func(ctx context.Context, cfg *pgxpool.Config) (*pgxpool.Pool, error) {
		host = cfg.ConnConfig.Host
		maxConns = cfg.MaxConns
		return pgxpool.NewWithConfig(ctx, cfg)
	}
	pingPool = func(ctx context.Context, pool *pgxpool.Pool) error { return nil }

	InitPostgres(context.Background())
	if host != "db" {
		t.Fatalf("expected host db, got %s", host)
	}
	if maxConns != 10 {
		t.Fatalf("expected max conns 10, got %d", maxConns)
	}
	if Pool == nil {
		t.Fatal("expected pool to be set")
	}
}
