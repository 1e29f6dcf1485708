package redis

import (
	"context"
	"net"
	"ruang/config"
	"time"

	goRedis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const pingTimeout = 5 * time.Second

// Required reports whether any configured driver needs a redis connection.
func Required(cfg *config.Config) bool {
	limiterOnRedis := cfg.App.RateLimiter.Enable && cfg.App.RateLimiter.Driver == config.LimiterDriverRedis

	return cfg.Cache.Driver == config.CacheDriverRedis || limiterOnRedis
}

// New connects to the primary redis. It returns nil when neither the cache nor the limiter uses redis.
func New(cfg *config.Config) *goRedis.Client {
	if !Required(cfg) {
		log.Info().Msg("Redis not required by configured drivers, skipping connection")

		return nil
	}

	primary := cfg.Cache.Redis.Primary

	client := goRedis.NewClient(&goRedis.Options{
		Addr:     net.JoinHostPort(primary.Host, primary.Port),
		Password: primary.Password,
		DB:       primary.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Str("host", primary.Host).Msg("Failed to connect to Redis")
	}

	log.Info().
		Int("db", primary.DB).
		Str("host", primary.Host).
		Str("port", primary.Port).
		Msg("Connected to Redis")

	return client
}
