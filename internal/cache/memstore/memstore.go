// Package memstore is an in-process LRU in front of the shared cache.
package memstore

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/mohammed-shakir/wcs-downloader/internal/core/observability"
)

const defaultSize = 16

type Store struct {
	lru *expirable.LRU[string, []byte]
}

// New keeps at most size entries, each for ttl. A zero ttl never expires.
func New(size int, ttl time.Duration) *Store {
	if size <= 0 {
		size = defaultSize
	}
	return &Store{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.lru.Get(key)
	if ok {
		observability.ObserveCacheOp("mem_get", "hit")
	} else {
		observability.ObserveCacheOp("mem_get", "miss")
	}
	return v, ok, nil
}

// Set stores a copy of val. The per-call ttl is bounded by the store ttl.
func (s *Store) Set(_ context.Context, key string, val []byte, _ time.Duration) error {
	cp := make([]byte, len(val))
	copy(cp, val)
	s.lru.Add(key, cp)
	observability.ObserveCacheOp("mem_set", "ok")
	return nil
}

func (s *Store) Len() int { return s.lru.Len() }
