package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// AttemptCounter is a fixed-window failure counter. The window starts with
// the first failure and the key expires with it.
type AttemptCounter struct {
	client redis.UniversalClient
	prefix string
}

func NewAttemptCounter(client redis.UniversalClient, prefix string) (*AttemptCounter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil for AttemptCounter")
	}
	return &AttemptCounter{client: client, prefix: prefix}, nil
}

func (c *AttemptCounter) key(k string) string {
	return c.prefix + k
}

// Increment counts one failure. The TTL is read in the same round trip and
// set whenever the key has none, so a lost EXPIRE is repaired by the next
// failure instead of pinning the counter forever.
func (c *AttemptCounter) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	k := c.key(key)
	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		ttl = pipe.TTL(ctx, k)
		return nil
	})
	if err != nil {
		return 0, err
	}
	n := incr.Val()
	if ttl.Val() < 0 {
		if err := c.client.Expire(ctx, k, window).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}

func (c *AttemptCounter) Count(ctx context.Context, key string) (int64, error) {
	val, err := c.client.Get(ctx, c.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}

func (c *AttemptCounter) Reset(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.key(key)).Err()
}
