// Package cache defines the store used to keep capabilities documents
// between runs.
package cache

import (
	"context"
	"time"
)

type Interface interface {
	// Get returns ok=false on a miss.
	Get(ctx context.Context, key string) (val []byte, ok bool, err error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}
