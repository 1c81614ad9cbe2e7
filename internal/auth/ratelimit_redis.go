package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const attemptKeyPrefix = "login_attempts:"

// RedisAttemptStore is the shared AttemptStore for multi-instance
// deployments. The attempt count lives in a counter keyed by client address
// whose TTL is the rate-limit window, so expiry needs no sweeping.
type RedisAttemptStore struct {
	client      *redis.Client
	maxAttempts int
	window      time.Duration
}

func NewRedisAttemptStore(redisURL string, maxAttempts int, window time.Duration) (*RedisAttemptStore, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if window <= 0 {
		window = defaultAttemptWindow
	}

	return &RedisAttemptStore{
		client:      redis.NewClient(options),
		maxAttempts: maxAttempts,
		window:      window,
	}, nil
}

func (s *RedisAttemptStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisAttemptStore) Close() error {
	return s.client.Close()
}

func (s *RedisAttemptStore) Check(ctx context.Context, key string) (Decision, error) {
	pipe := s.client.Pipeline()
	getCmd := pipe.Get(ctx, attemptKeyPrefix+key)
	ttlCmd := pipe.PTTL(ctx, attemptKeyPrefix+key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Decision{}, fmt.Errorf("check login attempts: %w", err)
	}

	count, err := getCmd.Int()
	if errors.Is(err, redis.Nil) {
		return Decision{Allowed: true, Remaining: s.maxAttempts - 1}, nil
	}
	if err != nil {
		return Decision{}, fmt.Errorf("read login attempt count: %w", err)
	}

	ttl, err := ttlCmd.Result()
	if err != nil || ttl <= 0 {
		// Counter without a live window; treat as fresh.
		return Decision{Allowed: true, Remaining: s.maxAttempts - 1}, nil
	}

	resetAt := time.Now().Add(ttl)
	if count >= s.maxAttempts {
		return Decision{Allowed: false, Remaining: 0, ResetAt: resetAt}, nil
	}

	return Decision{Allowed: true, Remaining: s.maxAttempts - count - 1, ResetAt: resetAt}, nil
}

func (s *RedisAttemptStore) Record(ctx context.Context, key string, success bool) error {
	if success {
		if err := s.client.Del(ctx, attemptKeyPrefix+key).Err(); err != nil {
			return fmt.Errorf("reset login attempts: %w", err)
		}
		return nil
	}

	count, err := s.client.Incr(ctx, attemptKeyPrefix+key).Result()
	if err != nil {
		return fmt.Errorf("record login attempt: %w", err)
	}
	if count == 1 {
		if err := s.client.PExpire(ctx, attemptKeyPrefix+key, s.window).Err(); err != nil {
			return fmt.Errorf("set login attempt window: %w", err)
		}
	}

	return nil
}

// Sweep is a no-op; Redis expires attempt keys itself.
func (s *RedisAttemptStore) Sweep(context.Context) (int, error) {
	return 0, nil
}
