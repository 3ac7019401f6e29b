package ogc

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	WCSService = "WCS"
	WCSVersion = "2.0.1"
)

func BuildGetCapabilitiesParams() url.Values {
	params := url.Values{}
	params.Set("REQUEST", "GetCapabilities")
	return params
}

func BuildGetCoverageParams(coverageID string) url.Values {
	params := url.Values{}
	params.Set("VERSION", WCSVersion)
	params.Set("SERVICE", WCSService)
	params.Set("REQUEST", "GetCoverage")
	params.Set("COVERAGEID", coverageID)
	return params
}

// CapabilitiesURL returns the GetCapabilities request URL for a service base URL.
func CapabilitiesURL(base string) (string, error) {
	return withParams(base, BuildGetCapabilitiesParams())
}

// CoverageURL returns the GetCoverage request URL for one coverage id.
func CoverageURL(base, coverageID string) (string, error) {
	if strings.TrimSpace(coverageID) == "" {
		return "", fmt.Errorf("empty coverage id")
	}
	return withParams(base, BuildGetCoverageParams(coverageID))
}

// query parameters already on the base URL (e.g. map=...) are kept
func withParams(base string, params url.Values) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse service url: %w", err)
	}
	q := u.Query()
	for k, vs := range params {
		q[k] = vs
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
