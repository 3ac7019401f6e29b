// Package model defines core domain types shared across the tool.
package model

import "github.com/paulmach/orb"

// CoverageDescriptor is one coverage advertised by a WCS service.
// Corners are WGS84 (lon, lat) and nil when the service omits them.
type CoverageDescriptor struct {
	ID          string
	LowerCorner *orb.Point
	UpperCorner *orb.Point
}

// Bound reports the WGS84 bounding box when both corners are known.
func (c CoverageDescriptor) Bound() (orb.Bound, bool) {
	if c.LowerCorner == nil || c.UpperCorner == nil {
		return orb.Bound{}, false
	}
	return orb.Bound{Min: *c.LowerCorner, Max: *c.UpperCorner}, true
}

// FileName is the raster file name before substitution rules run.
func (c CoverageDescriptor) FileName() string {
	return c.ID + ".tif"
}
