// Package wcstest provides an in-process WCS 2.0.1 endpoint for tests.
package wcstest

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

const Path = "/wcs"

type Coverage struct {
	ID    string
	Lower *[2]float64
	Upper *[2]float64
	Body  []byte
}

type Server struct {
	srv *httptest.Server

	mu           sync.Mutex
	coverages    []Coverage
	requests     []url.Values
	failStatus   map[string]int
	capsStatus   int
	capsOverride []byte
}

// New starts a server publishing coverages; it is closed with t.Cleanup.
func New(t testing.TB, coverages ...Coverage) *Server {
	t.Helper()
	s := &Server{
		coverages:  coverages,
		failStatus: map[string]int{},
	}

	r := chi.NewRouter()
	r.Get(Path, s.handle)
	s.srv = httptest.NewServer(r)
	t.Cleanup(s.srv.Close)
	return s
}

// URL is the service base URL to hand to the client.
func (s *Server) URL() string { return s.srv.URL + Path }

func (s *Server) Client() *http.Client { return s.srv.Client() }

// Close stops the server early, e.g. to provoke connection failures.
func (s *Server) Close() { s.srv.Close() }

// FailCoverage makes GetCoverage for id answer with status.
func (s *Server) FailCoverage(id string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failStatus[id] = status
}

// FailCapabilities makes GetCapabilities answer with status.
func (s *Server) FailCapabilities(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capsStatus = status
}

// SetCapabilities replaces the generated capabilities document.
func (s *Server) SetCapabilities(doc []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capsOverride = doc
}

func (s *Server) Requests() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]url.Values, len(s.requests))
	copy(out, s.requests)
	return out
}

// CoverageRequests lists the COVERAGEID of every GetCoverage received.
func (s *Server) CoverageRequests() []string {
	var ids []string
	for _, q := range s.Requests() {
		if q.Get("REQUEST") == "GetCoverage" {
			ids = append(ids, q.Get("COVERAGEID"))
		}
	}
	return ids
}

func (s *Server) CapabilitiesRequests() int {
	n := 0
	for _, q := range s.Requests() {
		if q.Get("REQUEST") == "GetCapabilities" {
			n++
		}
	}
	return n
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	s.mu.Lock()
	s.requests = append(s.requests, q)
	capsStatus := s.capsStatus
	override := s.capsOverride
	coverages := s.coverages
	fail := s.failStatus[q.Get("COVERAGEID")]
	s.mu.Unlock()

	switch q.Get("REQUEST") {
	case "GetCapabilities":
		if capsStatus != 0 {
			http.Error(w, "capabilities unavailable", capsStatus)
			return
		}
		doc := override
		if doc == nil {
			doc = CapabilitiesXML(coverages...)
		}
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write(doc)
	case "GetCoverage":
		if q.Get("VERSION") != "2.0.1" || q.Get("SERVICE") != "WCS" {
			http.Error(w, "unsupported version", http.StatusBadRequest)
			return
		}
		if fail != 0 {
			http.Error(w, "coverage failed", fail)
			return
		}
		id := q.Get("COVERAGEID")
		for _, c := range coverages {
			if c.ID == id {
				w.Header().Set("Content-Type", "image/tiff")
				_, _ = w.Write(c.body())
				return
			}
		}
		http.Error(w, "no such coverage "+id, http.StatusNotFound)
	default:
		http.Error(w, "unsupported request", http.StatusBadRequest)
	}
}

func (c Coverage) body() []byte {
	if c.Body != nil {
		return c.Body
	}
	return []byte("II*\x00" + c.ID)
}

// CapabilitiesXML renders a minimal WCS 2.0.1 capabilities document.
func CapabilitiesXML(coverages ...Coverage) []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<wcs:Capabilities xmlns:wcs="http://www.opengis.net/wcs/2.0" xmlns:ows="http://www.opengis.net/ows/2.0" version="2.0.1">`)
	b.WriteString("\n  <wcs:Contents>\n")
	for _, c := range coverages {
		b.WriteString("    <wcs:CoverageSummary>\n")
		fmt.Fprintf(&b, "      <wcs:CoverageId>%s</wcs:CoverageId>\n", escape(c.ID))
		if c.Lower != nil || c.Upper != nil {
			b.WriteString("      <ows:WGS84BoundingBox>\n")
			if c.Lower != nil {
				fmt.Fprintf(&b, "        <ows:LowerCorner>%g %g</ows:LowerCorner>\n", c.Lower[0], c.Lower[1])
			}
			if c.Upper != nil {
				fmt.Fprintf(&b, "        <ows:UpperCorner>%g %g</ows:UpperCorner>\n", c.Upper[0], c.Upper[1])
			}
			b.WriteString("      </ows:WGS84BoundingBox>\n")
		}
		b.WriteString("    </wcs:CoverageSummary>\n")
	}
	b.WriteString("  </wcs:Contents>\n</wcs:Capabilities>\n")
	return b.Bytes()
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
