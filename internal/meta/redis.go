package meta

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "meta:"

// RedisStore keeps one hash per owner, one field per key.
type RedisStore struct {
	R      *redis.Client
	Prefix string
}

func (s *RedisStore) hashKey(owner string) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return prefix + owner
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, owner, key string) ([]byte, bool, error) {
	if s == nil || s.R == nil {
		return nil, false, ErrStoreUnavailable
	}
	value, err := s.R.HGet(ctx, s.hashKey(owner), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Put implements Store.
func (s *RedisStore) Put(ctx context.Context, owner, key string, value []byte) error {
	if s == nil || s.R == nil {
		return ErrStoreUnavailable
	}
	return s.R.HSet(ctx, s.hashKey(owner), key, value).Err()
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, owner, key string) error {
	if s == nil || s.R == nil {
		return ErrStoreUnavailable
	}
	return s.R.HDel(ctx, s.hashKey(owner), key).Err()
}
