package cache

import (
	"context"
	"fmt"
	"ruang/infras/otel"
	"strings"
	"time"

	goCache "github.com/patrickmn/go-cache"
)

const memoryCleanupInterval = 10 * time.Minute

type memoryCache struct {
	store *goCache.Cache
	otel  otel.Otel
}

// NewMemoryCache keeps entries in process. Values go through the same encoding as the redis driver.
func NewMemoryCache(ot otel.Otel) Cache {
	return &memoryCache{
		store: goCache.New(goCache.NoExpiration, memoryCleanupInterval),
		otel:  ot,
	}
}

func (cache *memoryCache) Save(ctx context.Context, key string, value any, duration int) error {
	_, scope := cache.otel.NewScope(ctx, otelScopeName, otelScopeName+".memory.Save")
	defer scope.End()

	scope.SetAttribute(otelCacheKeyAttribute, key)

	raw, err := encode(value)
	if err != nil {
		scope.TraceError(err)

		return err
	}

	ttl := goCache.NoExpiration
	if duration > 0 {
		ttl = time.Duration(duration) * time.Second
	}

	cache.store.Set(key, raw, ttl)

	return nil
}

func (cache *memoryCache) Get(ctx context.Context, key string, value any) error {
	_, scope := cache.otel.NewScope(ctx, otelScopeName, otelScopeName+".memory.Get")
	defer scope.End()

	scope.SetAttribute(otelCacheKeyAttribute, key)

	item, found := cache.store.Get(key)
	if !found {
		return fmt.Errorf("failed to get cache value: %w", Nil)
	}

	raw, ok := item.([]byte)
	if !ok {
		return fmt.Errorf("unexpected cache entry type %T for key %s", item, key)
	}

	return decode(raw, value)
}

func (cache *memoryCache) Delete(ctx context.Context, key string) error {
	_, scope := cache.otel.NewScope(ctx, otelScopeName, otelScopeName+".memory.Delete")
	defer scope.End()

	cache.store.Delete(key)

	return nil
}

// Clear supports the trailing '*' patterns produced by shared.InvalidateCaches.
func (cache *memoryCache) Clear(ctx context.Context, pattern string) error {
	_, scope := cache.otel.NewScope(ctx, otelScopeName, otelScopeName+".memory.Clear")
	defer scope.End()

	scope.SetAttribute(otelCacheKeyAttribute, pattern)

	prefix, wildcard := strings.CutSuffix(pattern, "*")

	for key := range cache.store.Items() {
		if key == pattern || (wildcard && strings.HasPrefix(key, prefix)) {
			cache.store.Delete(key)
		}
	}

	return nil
}
