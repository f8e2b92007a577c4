package devotp

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "nexus:dev-reset-otp:"

// RedisStore keeps dev codes in Redis so every server replica can answer GET /dev/reset-otp.
// Entries expire through the key TTL.
type RedisStore struct {
	client redis.Cmdable
	nowF   func() time.Time
}

// NewRedisStore returns a Store backed by client.
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client, nowF: time.Now}
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// Put stores otp for userID with a TTL up to expiresAt. An already expired code is not stored.
func (s *RedisStore) Put(ctx context.Context, userID, otp string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.nowF())
	if ttl <= 0 {
		return s.client.Del(ctx, keyPrefix+userID).Err()
	}
	return s.client.Set(ctx, keyPrefix+userID, otp, ttl).Err()
}

// Get returns the otp for userID if the key still exists.
func (s *RedisStore) Get(ctx context.Context, userID string) (string, bool, error) {
	otp, err := s.client.Get(ctx, keyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return otp, true, nil
}
