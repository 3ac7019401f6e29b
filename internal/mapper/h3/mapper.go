package h3mapper

import (
	"fmt"

	"github.com/paulmach/orb"
	h3 "github.com/uber/h3-go/v4"
)

type Mapper struct{}

func New() *Mapper { return &Mapper{} }

// CenterCell returns the cell containing the center of a WGS84 bound.
func (m *Mapper) CenterCell(b orb.Bound, res int) (string, error) {
	if err := validateRes(res); err != nil {
		return "", err
	}
	c := b.Center()
	if c[1] < -90 || c[1] > 90 || c[0] < -180 || c[0] > 180 {
		return "", fmt.Errorf("center %v outside WGS84 range", c)
	}
	cell, err := h3.LatLngToCell(h3.LatLng{Lat: c[1], Lng: c[0]}, res)
	if err != nil {
		return "", fmt.Errorf("h3 cell: %w", err)
	}
	return cell.String(), nil
}

func validateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("h3 resolution %d out of range 0..15", res)
	}
	return nil
}
