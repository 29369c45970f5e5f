// Package session keeps transient per-login state (flash messages and form
// prefixes) keyed by the session id carried in the session token.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store holds per-session values and flash messages.
type Store interface {
	Get(ctx context.Context, sid, key string) (string, error)
	Set(ctx context.Context, sid, key, value string) error
	Delete(ctx context.Context, sid, key string) error
	AddFlash(ctx context.Context, sid, msg string) error
	PopFlashes(ctx context.Context, sid string) ([]string, error)
	Destroy(ctx context.Context, sid string) error
}

// RedisStore stores sessions as one hash plus one flash list per session id.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore creates a store whose keys expire ttl after their last write.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func valuesKey(sid string) string  { return "session:" + sid }
func flashesKey(sid string) string { return "session:" + sid + ":flashes" }

// Get returns the value stored under key, or "" when unset.
func (s *RedisStore) Get(ctx context.Context, sid, key string) (string, error) {
	v, err := s.rdb.HGet(ctx, valuesKey(sid), key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("session get %s: %w", key, err)
	}
	return v, nil
}

// Set stores value under key.
func (s *RedisStore) Set(ctx context.Context, sid, key, value string) error {
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, valuesKey(sid), key, value)
	pipe.Expire(ctx, valuesKey(sid), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session set %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *RedisStore) Delete(ctx context.Context, sid, key string) error {
	if err := s.rdb.HDel(ctx, valuesKey(sid), key).Err(); err != nil {
		return fmt.Errorf("session delete %s: %w", key, err)
	}
	return nil
}

// AddFlash queues a message shown on the next full page render.
func (s *RedisStore) AddFlash(ctx context.Context, sid, msg string) error {
	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, flashesKey(sid), msg)
	pipe.Expire(ctx, flashesKey(sid), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session add flash: %w", err)
	}
	return nil
}

// PopFlashes returns and clears queued messages.
func (s *RedisStore) PopFlashes(ctx context.Context, sid string) ([]string, error) {
	pipe := s.rdb.TxPipeline()
	lr := pipe.LRange(ctx, flashesKey(sid), 0, -1)
	pipe.Del(ctx, flashesKey(sid))
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("session pop flashes: %w", err)
	}
	return lr.Val(), nil
}

// Destroy removes everything stored for sid.
func (s *RedisStore) Destroy(ctx context.Context, sid string) error {
	if err := s.rdb.Del(ctx, valuesKey(sid), flashesKey(sid)).Err(); err != nil {
		return fmt.Errorf("session destroy: %w", err)
	}
	return nil
}
