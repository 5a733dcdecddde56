// Package docstore defines the key/value document store the rota service
// persists through, and the helpers shared by its backends.
package docstore

import (
	"context"
	"errors"
)

const (
	CollectionRota   = "rota"
	CollectionConfig = "config"
	CollectionTokens = "tokens"
)

var (
	ErrNotFound = errors.New("document not found")
	ErrCorrupt  = errors.New("document store corrupt")
)

// Store reads and atomically replaces whole documents addressed by
// (collection, key). Implementations serialize their own writes.
type Store interface {
	Get(ctx context.Context, collection, key string) ([]byte, error)
	Put(ctx context.Context, collection, key string, doc []byte) error
	Delete(ctx context.Context, collection, key string) error
	List(ctx context.Context, collection string) (map[string][]byte, error)
	Ping(ctx context.Context) error
	Close() error
}
