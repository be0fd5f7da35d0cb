// Package geospatial holds the polygon geometry core: payload normalization,
// structural validation, ring simplification, planar area and the
// spatial predicates handed to storage.
package geospatial

import (
	"math"

	"github.com/paulmach/orb"
)

// TypePolygon is the only geometry type stored for polygon records.
const TypePolygon = "Polygon"

// Position is a single [longitude, latitude] pair.
type Position []float64

// Lng returns the longitude, or NaN when the position is malformed.
func (p Position) Lng() float64 {
	if len(p) < 1 {
		return math.NaN()
	}
	return p[0]
}

// Lat returns the latitude, or NaN when the position is malformed.
func (p Position) Lat() float64 {
	if len(p) < 2 {
		return math.NaN()
	}
	return p[1]
}

// Equal reports exact equality on both axes.
func (p Position) Equal(o Position) bool {
	if len(p) != 2 || len(o) != 2 {
		return false
	}
	return p[0] == o[0] && p[1] == o[1]
}

// Ring is a closed sequence of positions (first == last).
type Ring []Position

// Rings is the canonical polygon coordinate form: the outer ring first,
// then zero or more holes.
type Rings []Ring

// Outer returns the outer ring, or nil for an empty ring list.
func (r Rings) Outer() Ring {
	if len(r) == 0 {
		return nil
	}
	return r[0]
}

// Holes returns the rings after the outer ring.
func (r Rings) Holes() []Ring {
	if len(r) < 2 {
		return nil
	}
	return r[1:]
}

// PointCount returns the number of positions across all rings.
func (r Rings) PointCount() int {
	n := 0
	for _, ring := range r {
		n += len(ring)
	}
	return n
}

// Clone returns a deep copy.
func (r Rings) Clone() Rings {
	out := make(Rings, len(r))
	for i, ring := range r {
		out[i] = ring.clone()
	}
	return out
}

func (r Ring) clone() Ring {
	out := make(Ring, len(r))
	for i, p := range r {
		out[i] = append(Position(nil), p...)
	}
	return out
}

// Orb converts validated rings to an orb.Polygon. Malformed positions are
// skipped, so callers should validate first.
func (r Rings) Orb() orb.Polygon {
	poly := make(orb.Polygon, 0, len(r))
	for _, ring := range r {
		or := make(orb.Ring, 0, len(ring))
		for _, p := range ring {
			if len(p) != 2 {
				continue
			}
			or = append(or, orb.Point{p[0], p[1]})
		}
		poly = append(poly, or)
	}
	return poly
}

// FromOrb converts an orb.Polygon back into canonical rings.
func FromOrb(p orb.Polygon) Rings {
	out := make(Rings, 0, len(p))
	for _, ring := range p {
		r := make(Ring, 0, len(ring))
		for _, pt := range ring {
			r = append(r, Position{pt[0], pt[1]})
		}
		out = append(out, r)
	}
	return out
}

// Geometry is the stored GeoJSON Polygon object.
type Geometry struct {
	Type        string `json:"type"`
	Coordinates Rings  `json:"coordinates"`
}

// NewGeometry wraps canonical rings in a Polygon geometry.
func NewGeometry(r Rings) Geometry {
	return Geometry{Type: TypePolygon, Coordinates: r}
}
