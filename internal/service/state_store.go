package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// StateStore parks OAuth nonces between the authorization redirect and the
// callback. Consume must be atomic so a nonce is honored at most once.
type StateStore interface {
	Put(ctx context.Context, nonce, value string, ttl time.Duration) error
	Consume(ctx context.Context, nonce string) (string, bool, error)
}

type redisStateStore struct {
	rdb *redis.Client
}

func NewRedisStateStore(rdb *redis.Client) StateStore {
	return &redisStateStore{rdb: rdb}
}

func (s *redisStateStore) Put(ctx context.Context, nonce, value string, ttl time.Duration) error {
	err := s.rdb.Set(ctx, stateKeyPrefix+nonce, value, ttl).Err()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// Consume removes the nonce while reading it, so racing callbacks cannot
// both succeed.
func (s *redisStateStore) Consume(ctx context.Context, nonce string) (string, bool, error) {
	value, err := s.rdb.GetDel(ctx, stateKeyPrefix+nonce).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		slog.Info(err.Error())
		return "", false, err
	}
	return value, true, nil
}
