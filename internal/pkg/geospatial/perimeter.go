package geospatial

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Perimeter is the length of a ring in meters along great circles between
// consecutive positions. Positions that are not pairs are skipped.
func Perimeter(ring Ring) float64 {
	ls := make(orb.LineString, 0, len(ring))
	for _, p := range ring {
		if len(p) == 2 {
			ls = append(ls, orb.Point{p.Lng(), p.Lat()})
		}
	}
	return geo.Length(ls)
}

// Perimeter of the outer ring; holes are not part of the boundary a visitor
// walks around.
func (r Rings) Perimeter() float64 {
	return Perimeter(r.Outer())
}
