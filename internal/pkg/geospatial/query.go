package geospatial

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// PredicateOp names the spatial relation a query asks storage to test.
type PredicateOp string

const (
	// OpWithin matches records whose geometry lies entirely inside the
	// predicate geometry.
	OpWithin PredicateOp = "within"
	// OpIntersects matches records whose geometry shares any point with the
	// predicate geometry.
	OpIntersects PredicateOp = "intersects"
)

// Predicate is a storage-agnostic spatial filter. Building one never
// touches storage; repositories translate it into their own query language.
type Predicate struct {
	Op       PredicateOp
	Geometry orb.Geometry
}

// GeoJSON encodes the predicate geometry as a GeoJSON geometry object.
func (p Predicate) GeoJSON() ([]byte, error) {
	if p.Geometry == nil {
		return nil, fmt.Errorf("%w: predicate has no geometry", ErrInvalidGeometryInput)
	}
	return geojson.NewGeometry(p.Geometry).MarshalJSON()
}

// WithinBounds builds a within predicate for a bounding box. The box becomes
// the closed ring NW, NE, SE, SW, NW.
func WithinBounds(b Bounds) (Predicate, error) {
	if !b.Complete() {
		return Predicate{}, fmt.Errorf("%w: bounds must include north, south, east and west", ErrInvalidBoundsInput)
	}
	n, s, e, w := *b.North, *b.South, *b.East, *b.West
	for _, v := range []float64{n, s, e, w} {
		if !finite(v) {
			return Predicate{}, fmt.Errorf("%w: bounds must be finite numbers", ErrInvalidBoundsInput)
		}
	}

	ring := orb.Ring{{w, n}, {e, n}, {e, s}, {w, s}, {w, n}}
	return Predicate{Op: OpWithin, Geometry: orb.Polygon{ring}}, nil
}

// Intersects builds an intersects predicate for any GeoJSON geometry.
func Intersects(g *geojson.Geometry) (Predicate, error) {
	if g == nil || g.Geometry() == nil {
		return Predicate{}, fmt.Errorf("%w: geometry is required", ErrInvalidGeometryInput)
	}
	return Predicate{Op: OpIntersects, Geometry: g.Geometry()}, nil
}
