package ogc

import (
	"net/url"
	"testing"
)

func TestBuildGetCoverageParams(t *testing.T) {
	v := BuildGetCoverageParams("glacier_2020")
	assertHas := func(k, want string) {
		if got := v.Get(k); got != want {
			t.Fatalf("param %q got %q want %q", k, got, want)
		}
	}
	assertHas("VERSION", "2.0.1")
	assertHas("SERVICE", "WCS")
	assertHas("REQUEST", "GetCoverage")
	assertHas("COVERAGEID", "glacier_2020")
}

func TestCapabilitiesURL(t *testing.T) {
	got, err := CapabilitiesURL("http://example.org/wcs")
	if err != nil {
		t.Fatalf("CapabilitiesURL: %v", err)
	}
	if want := "http://example.org/wcs?REQUEST=GetCapabilities"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestCoverageURL_KeepsBaseQuery(t *testing.T) {
	got, err := CoverageURL("http://example.org/cgi-bin/mapserv?map=glaciers.map", "a b")
	if err != nil {
		t.Fatalf("CoverageURL: %v", err)
	}
	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("invalid URL %q: %v", got, err)
	}
	q := u.Query()
	if q.Get("map") != "glaciers.map" {
		t.Fatalf("base query lost: %q", got)
	}
	if q.Get("COVERAGEID") != "a b" {
		t.Fatalf("coverage id not round-tripped: %q", got)
	}
	if u.Path != "/cgi-bin/mapserv" {
		t.Fatalf("path=%q", u.Path)
	}
}

func TestCoverageURL_RejectsEmptyID(t *testing.T) {
	if _, err := CoverageURL("http://example.org/wcs", " "); err == nil {
		t.Fatalf("expected error for empty id")
	}
}
