// Package executor performs the upstream WCS HTTP requests.
package executor

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mohammed-shakir/wcs-downloader/internal/core/observability"
	"github.com/mohammed-shakir/wcs-downloader/internal/core/ogc"
	"github.com/mohammed-shakir/wcs-downloader/internal/core/wcserr"
)

type Executor struct {
	logger   *slog.Logger
	client   *http.Client
	baseURL  string
	startNow func() time.Time // for tests
}

func New(logger *slog.Logger, client *http.Client, serviceURL string) (*Executor, error) {
	u, err := url.Parse(serviceURL)
	if err != nil {
		return nil, wcserr.Wrapf(wcserr.ErrConfig, err, "parse service url")
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, wcserr.Errorf(wcserr.ErrConfig, "service url %q must be an absolute http(s) URL", serviceURL)
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{
		logger:   logger,
		client:   client,
		baseURL:  serviceURL,
		startNow: time.Now,
	}, nil
}

func (e *Executor) ServiceURL() string { return e.baseURL }

// FetchCapabilities returns the raw GetCapabilities document.
func (e *Executor) FetchCapabilities(ctx context.Context) ([]byte, error) {
	target, err := ogc.CapabilitiesURL(e.baseURL)
	if err != nil {
		return nil, wcserr.Wrap(wcserr.ErrConfig, err)
	}
	resp, err := e.get(ctx, "GetCapabilities", target)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wcserr.Wrapf(wcserr.ErrNetwork, err, "read capabilities body")
	}
	return b, nil
}

// FetchCoverage streams one GetCoverage response body into w.
func (e *Executor) FetchCoverage(ctx context.Context, coverageID string, w io.Writer) (int64, error) {
	target, err := ogc.CoverageURL(e.baseURL, coverageID)
	if err != nil {
		return 0, wcserr.Wrap(wcserr.ErrConfig, err)
	}
	resp, err := e.get(ctx, "GetCoverage", target)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, wcserr.Wrapf(wcserr.ErrNetwork, err, "copy coverage %s", coverageID)
	}
	return n, nil
}

// get issues the request; the caller closes the body of a 2xx response
func (e *Executor) get(ctx context.Context, request, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, wcserr.Wrapf(wcserr.ErrConfig, err, "build request")
	}

	e.logger.Debug("wcs request", "request", request, "url", target)

	start := e.startNow()
	resp, err := e.client.Do(req)
	dur := time.Since(start)
	observability.ObserveUpstreamLatency(request, dur.Seconds())
	if err != nil {
		return nil, wcserr.Wrapf(wcserr.ErrNetwork, err, "%s", request)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		_ = resp.Body.Close()
		return nil, wcserr.Errorf(wcserr.ErrNetwork, "%s: upstream status %d: %s", request, resp.StatusCode, string(b))
	}

	e.logger.Debug("wcs response",
		"request", request,
		"status", resp.StatusCode,
		"duration", dur.String())
	return resp, nil
}
