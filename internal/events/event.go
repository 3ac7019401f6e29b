// Package events publishes a notice for every coverage file written, so tile
// caches downstream can refresh the affected area.
package events

import (
	"fmt"
	"strings"
	"time"
)

const (
	EventVersion = 1
	OpUpdate     = "update"
	Source       = "wcs-downloader"
)

type CoverageEvent struct {
	Version    int       `json:"version"`
	Op         string    `json:"op"`
	Layer      string    `json:"layer"`
	CoverageID string    `json:"coverage_id"`
	File       string    `json:"file"`
	Bytes      int64     `json:"bytes"`
	TS         time.Time `json:"ts"`
	Source     string    `json:"source,omitempty"`
	BBox       *BBox     `json:"bbox,omitempty"`
	Cell       string    `json:"cell,omitempty"`
}

type BBox struct {
	X1   float64 `json:"x1"`
	Y1   float64 `json:"y1"`
	X2   float64 `json:"x2"`
	Y2   float64 `json:"y2"`
	SRID string  `json:"srid"`
}

func (e CoverageEvent) Validate() error {
	if e.Version != EventVersion {
		return fmt.Errorf("version must be %d", EventVersion)
	}
	if e.Op != OpUpdate {
		return fmt.Errorf("op must be %s", OpUpdate)
	}
	if strings.TrimSpace(e.Layer) == "" {
		return fmt.Errorf("layer is required")
	}
	if strings.TrimSpace(e.CoverageID) == "" {
		return fmt.Errorf("coverage_id is required")
	}
	if e.TS.IsZero() {
		return fmt.Errorf("ts is required")
	}
	if e.BBox == nil {
		return nil
	}
	bb := *e.BBox
	if bb.SRID != "EPSG:4326" {
		return fmt.Errorf("bbox.srid must be EPSG:4326")
	}
	if !(bb.X1 >= -180 && bb.X1 <= 180 && bb.X2 >= -180 && bb.X2 <= 180) {
		return fmt.Errorf("bbox longitude out of range")
	}
	if !(bb.Y1 >= -90 && bb.Y1 <= 90 && bb.Y2 >= -90 && bb.Y2 <= 90) {
		return fmt.Errorf("bbox latitude out of range")
	}
	return nil
}
