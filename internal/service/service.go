package service

import (
	"context"
	"errors"
	"time"

	"solfolio/internal/domain"
	"solfolio/internal/provider"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrInvalidWallet = errors.New("invalid solana wallet address")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnavailable   = errors.New("dependency unavailable")
	ErrTokenNotFound = errors.New("token not found")
)

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// EventPublisher receives user-scoped change events.
type EventPublisher interface {
	Publish(userID uuid.UUID, eventType string, payload any)
}

func record(c *domain.SourceCollector, providerName, op string, err error, empty bool) {
	c.Add(provider.Status(providerName, op, err, empty))
}
