package cache

//go:generate go run go.uber.org/mock/mockgen -source=./cache.go -destination=./mocks/cache_mock.go -package=mocks

import (
	"context"
	"ruang/config"
	"ruang/infras/otel"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	otelScopeName         = "cache"
	otelCacheKeyAttribute = "cache.key"
	// Nil is returned (wrapped) by every driver on a cache miss.
	Nil = redis.Nil
)

// Cache stores JSON-encoded values under string keys with a TTL in seconds.
type Cache interface {
	Save(ctx context.Context, key string, value any, duration int) (err error)
	Get(ctx context.Context, key string, value any) (err error)
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context, pattern string) error
}

// New picks the driver named by CACHE_DRIVER. A nil client forces the memory driver.
func New(cfg *config.Config, client *redis.Client, ot otel.Otel) Cache {
	if cfg.Cache.Driver == config.CacheDriverRedis && client != nil {
		return NewRedisCache(client, ot)
	}

	log.Info().Str("driver", config.CacheDriverMemory).Msg("Using in-process cache")

	return NewMemoryCache(ot)
}
