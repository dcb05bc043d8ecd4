package statestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisNamespace = "jobharvest:state:"

type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func OpenRedis(ctx context.Context, redisURL string, ttl time.Duration) (*Redis, error) {
	rdb, err := NewRedisClient(ctx, redisURL)
	if err != nil {
		return nil, err
	}
	return NewRedis(rdb, ttl), nil
}

func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, ttl: ttl}
}

func (s *Redis) Get(ctx context.Context, session, kind string) ([]byte, error) {
	b, err := s.rdb.Get(ctx, redisNamespace+key(session, kind)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return b, err
}

func (s *Redis) Put(ctx context.Context, session, kind string, value []byte) error {
	return s.rdb.Set(ctx, redisNamespace+key(session, kind), value, s.ttl).Err()
}

func (s *Redis) Delete(ctx context.Context, session, kind string) error {
	return s.rdb.Del(ctx, redisNamespace+key(session, kind)).Err()
}

func (s *Redis) ClearSession(ctx context.Context, session string) error {
	iter := s.rdb.Scan(ctx, 0, redisNamespace+sessionPrefix(session)+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.rdb.Del(ctx, keys...).Err()
}

// Client exposes the connection so the event bridge can share it.
func (s *Redis) Client() *redis.Client { return s.rdb }

func (s *Redis) Close() error { return s.rdb.Close() }
