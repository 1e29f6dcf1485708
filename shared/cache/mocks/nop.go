package mocks

import (
	"context"
	"ruang/shared/cache"
)

type nopCache struct{}

// NewNopCache returns a cache that never holds anything. Every Get is a miss.
func NewNopCache() cache.Cache {
	return nopCache{}
}

func (nopCache) Save(_ context.Context, _ string, _ any, _ int) error {
	return nil
}

func (nopCache) Get(_ context.Context, _ string, _ any) error {
	return cache.Nil
}

func (nopCache) Delete(_ context.Context, _ string) error {
	return nil
}

func (nopCache) Clear(_ context.Context, _ string) error {
	return nil
}
