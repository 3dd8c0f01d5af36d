package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisStore returns a Redis-backed slot store. A zero ttl keeps slots forever;
// otherwise each write gets ttl plus up to maxJitter so slots do not expire together.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client:    client,
		baseTTL:   ttl,
		maxJitter: 5 * time.Minute,
	}
}

type RedisStore struct {
	client    *redis.Client
	baseTTL   time.Duration
	maxJitter time.Duration
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, slotKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

func (r *RedisStore) Put(ctx context.Context, key string, data []byte) error {
	if err := r.client.Set(ctx, slotKey(key), data, r.ttl()).Err(); err != nil {
		if isOOM(err) {
			return fmt.Errorf("redis set failed: %w", ErrQuotaExceeded)
		}
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, slotKey(key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisStore) ttl() time.Duration {
	if r.baseTTL <= 0 {
		return 0
	}
	jitter := time.Duration(rand.Int63n(int64(r.maxJitter) + 1))
	return r.baseTTL + jitter
}

// Redis answers writes past maxmemory with an "OOM command not allowed" error reply.
func isOOM(err error) bool {
	var redisErr redis.Error
	if errors.As(err, &redisErr) {
		return strings.HasPrefix(redisErr.Error(), "OOM")
	}
	return false
}

func slotKey(key string) string {
	return fmt.Sprintf("storefront:%s", key)
}
