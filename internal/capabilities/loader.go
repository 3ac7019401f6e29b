// Package capabilities loads the coverage list a WCS service advertises.
package capabilities

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/mohammed-shakir/wcs-downloader/internal/cache"
	"github.com/mohammed-shakir/wcs-downloader/internal/cache/keys"
	"github.com/mohammed-shakir/wcs-downloader/internal/core/model"
	"github.com/mohammed-shakir/wcs-downloader/internal/core/ogc"
)

type Fetcher interface {
	FetchCapabilities(ctx context.Context) ([]byte, error)
	ServiceURL() string
}

type Option func(*Loader)

// WithCache keeps successfully parsed documents in c for ttl.
func WithCache(c cache.Interface, ttl time.Duration) Option {
	return func(l *Loader) {
		l.cache = c
		l.ttl = ttl
	}
}

type Loader struct {
	fetch  Fetcher
	logger *slog.Logger
	cache  cache.Interface
	ttl    time.Duration
}

func NewLoader(f Fetcher, logger *slog.Logger, opts ...Option) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	l := &Loader{fetch: f, logger: logger}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Load returns the coverages in document order. Cache failures never fail
// the load; the document is then fetched from the service.
func (l *Loader) Load(ctx context.Context) ([]model.CoverageDescriptor, error) {
	key := keys.Capabilities(l.fetch.ServiceURL(), ogc.WCSVersion)

	if l.cache != nil {
		if doc, ok := l.cached(ctx, key); ok {
			covs, err := ogc.ParseCapabilities(bytes.NewReader(doc))
			if err == nil {
				l.logger.InfoContext(ctx, "capabilities from cache", "key", key, "coverages", len(covs))
				return covs, nil
			}
			l.logger.WarnContext(ctx, "cached capabilities unreadable, refetching", "key", key, "err", err)
		}
	}

	doc, err := l.fetch.FetchCapabilities(ctx)
	if err != nil {
		return nil, err
	}
	covs, err := ogc.ParseCapabilities(bytes.NewReader(doc))
	if err != nil {
		return nil, err
	}
	l.logger.InfoContext(ctx, "capabilities fetched", "coverages", len(covs), "bytes", len(doc))

	if l.cache != nil {
		if err := l.cache.Set(ctx, key, doc, l.ttl); err != nil {
			l.logger.WarnContext(ctx, "capabilities cache write failed", "key", key, "err", err)
		}
	}
	return covs, nil
}

func (l *Loader) cached(ctx context.Context, key string) ([]byte, bool) {
	doc, ok, err := l.cache.Get(ctx, key)
	if err != nil {
		l.logger.WarnContext(ctx, "capabilities cache read failed", "key", key, "err", err)
		return nil, false
	}
	return doc, ok
}
