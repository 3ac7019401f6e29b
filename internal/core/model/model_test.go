package model

import (
	"testing"

	"github.com/paulmach/orb"
)

func TestBound_RequiresBothCorners(t *testing.T) {
	lo := orb.Point{10, 20}
	hi := orb.Point{12, 22}

	if _, ok := (CoverageDescriptor{ID: "a", LowerCorner: &lo}).Bound(); ok {
		t.Fatalf("bound must be absent with only the lower corner")
	}
	b, ok := (CoverageDescriptor{ID: "a", LowerCorner: &lo, UpperCorner: &hi}).Bound()
	if !ok {
		t.Fatalf("bound expected")
	}
	if c := b.Center(); c[0] != 11 || c[1] != 21 {
		t.Fatalf("center=%v want [11 21]", c)
	}
}

func TestFileName(t *testing.T) {
	if got := (CoverageDescriptor{ID: "glacier_2020"}).FileName(); got != "glacier_2020.tif" {
		t.Fatalf("got %q", got)
	}
}
