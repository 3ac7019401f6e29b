package cache

import (
	"context"
	"errors"
	"time"
)

// Tiered reads from the first tier that has the key and backfills the
// faster ones. Writes go to every tier.
type Tiered []Interface

func (t Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var errs []error
	for i, c := range t {
		v, ok, err := c.Get(ctx, key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !ok {
			continue
		}
		for _, upper := range t[:i] {
			_ = upper.Set(ctx, key, v, 0)
		}
		return v, true, nil
	}
	return nil, false, errors.Join(errs...)
}

func (t Tiered) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	var errs []error
	for _, c := range t {
		if err := c.Set(ctx, key, val, ttl); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
