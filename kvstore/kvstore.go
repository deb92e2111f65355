// Package kvstore provides the small key-value stores the layout client
// persists node positions in.
package kvstore

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("kvstore: key not found")

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Clear(ctx context.Context, key string) error
}
