// Package mapper converts coverage extents to H3 cells.
package mapper

import "github.com/paulmach/orb"

type Interface interface {
	CenterCell(b orb.Bound, res int) (string, error)
}
