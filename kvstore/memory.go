package kvstore

import (
	"context"
	"os"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
)

// Memory keeps values in process. When path is set every write is flushed to
// that file and NewMemory loads it back.
type Memory struct {
	cache *cache.Cache
	path  string
}

func NewMemory(path string) (*Memory, error) {
	m := &Memory{
		cache: cache.New(cache.NoExpiration, 0),
		path:  path,
	}
	if path == "" {
		return m, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return m, nil
	}
	if err := m.cache.LoadFile(path); err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return m, nil
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	x, found := m.cache.Get(key)
	if !found {
		return nil, ErrNotFound
	}
	value := x.([]byte)
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	m.cache.Set(key, stored, cache.NoExpiration)
	return m.flush()
}

func (m *Memory) Clear(ctx context.Context, key string) error {
	m.cache.Delete(key)
	return m.flush()
}

func (m *Memory) flush() error {
	if m.path == "" {
		return nil
	}
	if err := m.cache.SaveFile(m.path); err != nil {
		return errors.Wrapf(err, "save %s", m.path)
	}
	return nil
}
