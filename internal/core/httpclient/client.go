// Package httpclient configures the HTTP client used to call the WCS service.
package httpclient

import (
	"net"
	"net/http"
	"time"
)

const userAgent = "wcs-downloader"

// NewOutbound creates the client for WCS requests. timeout bounds a whole
// request including the body and headerTimeout the wait for response
// headers; zero leaves either unlimited, so only ctx cancellation stops a
// long coverage transfer.
func NewOutbound(timeout, headerTimeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          4,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: headerTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Transport: &uaTransport{next: transport},
		Timeout:   timeout,
	}
}

type uaTransport struct {
	next http.RoundTripper
}

func (t *uaTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.Header.Get("User-Agent") != "" {
		return t.next.RoundTrip(r)
	}
	r = r.Clone(r.Context())
	r.Header.Set("User-Agent", userAgent)
	return t.next.RoundTrip(r)
}
