package kvstore

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type Redis struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "redis get %s", key)
	}
	return value, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	err := r.rdb.Set(ctx, key, value, 0).Err()
	if err != nil {
		return errors.Wrapf(err, "redis set %s", key)
	}
	return nil
}

func (r *Redis) Clear(ctx context.Context, key string) error {
	err := r.rdb.Del(ctx, key).Err()
	if err != nil {
		return errors.Wrapf(err, "redis del %s", key)
	}
	return nil
}
