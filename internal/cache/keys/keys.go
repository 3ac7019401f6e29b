// Package keys builds cache keys for capabilities documents.
package keys

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const prefix = "wcs:capabilities"

// Capabilities returns the cache key for the capabilities document of a
// service. Equivalent spellings of the same URL map to the same key.
func Capabilities(serviceURL, version string) string {
	norm := normalizeURL(serviceURL)
	readable := sanitizeForKey(norm)

	const maxReadableLen = 120
	if len(readable) > maxReadableLen {
		readable = readable[:maxReadableLen]
	}

	sum := xxhash.Sum64String(norm + "|" + version)
	return fmt.Sprintf("%s:%s:v=%s:u=%016x", prefix, readable, sanitizeForKey(version), sum)
}

func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	u.Fragment = ""
	// Encode sorts by key
	u.RawQuery = u.Query().Encode()
	return u.String()
}

func sanitizeForKey(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case unicode.IsSpace(r):
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-' || r == '.' || r == '/':
			out = r
		default:
			// Any other rune (including non-ASCII) becomes '-'
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
