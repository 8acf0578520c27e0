package cache

import (
	"context"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Client is the shared Redis client, set by InitRedis.
var Client *redis.Client

var (
	newRedisClient = func(opts *redis.Options) *redis.Client {
		return redis.NewClient(opts)
	}
	pingRedis = func(ctx context.Context, client *redis.Client) error {
		return client.Ping(ctx).Err()
	}
	parseRedisURL = redis.ParseURL
)

// InitRedis connects to REDIS_URL. Unlike Postgres, Redis is optional: a
// failed ping leaves Client nil and the price service falls back to live fetches.
func InitRedis(ctx context.Context) {
	log := zap.L().Named("redis")

	addr := os.Getenv("REDIS_URL")
	if addr == "" {
		addr = "localhost:6379"
	}

	opts := &redis.Options{Addr: addr}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := parseRedisURL(addr)
		if err != nil {
			log.Error("failed to parse REDIS_URL", zap.Error(err))
			return
		}
		opts = parsed
	}

	client := newRedisClient(opts)
	if err := pingRedis(ctx, client); err != nil {
		log.Warn("redis unavailable, shared price cache disabled", zap.String("addr", opts.Addr), zap.Error(err))
		_ = client.Close()
		return
	}
	Client = client
	log.Info("connected to Redis", zap.String("addr", opts.Addr))
}
