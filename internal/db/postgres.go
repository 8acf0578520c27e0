package db

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Pool is nil when DATABASE_URL is unset; callers treat that as "persistence disabled".
var Pool *pgxpool.Pool

var (
	parseConfig = pgxpool.ParseConfig
	newPool     = func(ctx context.Context, cfg *pgxpool.Config) (*pgxpool.Pool, error) {
		return pgxpool.NewWithConfig(ctx, cfg)
	}
	pingPool = func(ctx context.Context, pool *pgxpool.Pool) error {
		return pool.Ping(ctx)
	}
)

func InitPostgres(ctx context.Context) {
	log := zap.L().Named("db")

	dsn := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dsn == "" {
		log.Warn("DATABASE_URL not set, skipping Postgres")
		return
	}

	cfg, err := parseConfig(dsn)
	if err != nil {
		log.Fatal("failed to parse DATABASE_URL", zap.Error(err))
	}
	cfg.MaxConns = 10
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := newPool(ctx, cfg)
	if err != nil {
		log.Fatal("failed to create Postgres pool", zap.Error(err))
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pingPool(pingCtx, pool); err != nil {
		log.Fatal("failed to connect to Postgres", zap.Error(err))
	}

	Pool = pool
	log.Info("connected to Postgres")
}

// Close releases the pool if one was opened.
func Close() {
	if Pool != nil {
		Pool.Close()
		Pool = nil
	}
}
