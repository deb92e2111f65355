package kvstore

import (
	"context"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/pkg/errors"
)

// Memcache stores values without expiry. Evictions surface as ErrNotFound.
type Memcache struct {
	mc *memcache.Client
}

func NewMemcache(mc *memcache.Client) *Memcache {
	return &Memcache{mc: mc}
}

func (m *Memcache) Get(ctx context.Context, key string) ([]byte, error) {
	item, err := m.mc.Get(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "memcache get %s", key)
	}
	return item.Value, nil
}

func (m *Memcache) Set(ctx context.Context, key string, value []byte) error {
	err := m.mc.Set(&memcache.Item{Key: key, Value: value})
	if err != nil {
		return errors.Wrapf(err, "memcache set %s", key)
	}
	return nil
}

func (m *Memcache) Clear(ctx context.Context, key string) error {
	err := m.mc.Delete(key)
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return errors.Wrapf(err, "memcache delete %s", key)
	}
	return nil
}
