package repository

import (
	"context"
	"time"
)

// CacheRepository is a small key/value cache with TTLs.
type CacheRepository interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// AttemptCounter counts failures per key within a fixed window.
type AttemptCounter interface {
	// Increment adds one failure and returns the count in the current window.
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
	Count(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}
