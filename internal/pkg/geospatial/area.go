package geospatial

import "math"

// Area returns the planar shoelace area of a closed ring in square degrees.
// The closing duplicate is excluded from the sum and the result is
// orientation independent.
func Area(ring Ring) float64 {
	n := len(ring) - 1
	if n < 1 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += ring[i].Lng() * ring[j].Lat()
		sum -= ring[j].Lng() * ring[i].Lat()
	}
	return math.Abs(sum) / 2
}

// Area returns the outer ring area minus the area of every hole, never
// below zero.
func (r Rings) Area() float64 {
	if len(r) == 0 {
		return 0
	}
	a := Area(r[0])
	for _, h := range r.Holes() {
		a -= Area(h)
	}
	return math.Max(a, 0)
}

// Bounds is a bounding box given by its four sides. Sides are pointers so
// that a missing side can be told apart from zero.
type Bounds struct {
	North *float64 `json:"north"`
	South *float64 `json:"south"`
	East  *float64 `json:"east"`
	West  *float64 `json:"west"`
}

// NewBounds builds a fully specified box.
func NewBounds(north, south, east, west float64) Bounds {
	return Bounds{North: &north, South: &south, East: &east, West: &west}
}

// Complete reports whether all four sides are present.
func (b Bounds) Complete() bool {
	return b.North != nil && b.South != nil && b.East != nil && b.West != nil
}

// BBox returns the box as a GeoJSON bbox array [west, south, east, north].
func (b Bounds) BBox() []float64 {
	if !b.Complete() {
		return nil
	}
	return []float64{*b.West, *b.South, *b.East, *b.North}
}

// Envelope returns the bounding box of the outer ring. Holes lie inside the
// outer ring and cannot widen it.
func Envelope(r Rings) Bounds {
	outer := r.Outer()
	if len(outer) == 0 {
		return Bounds{}
	}
	minLng, maxLng := math.Inf(1), math.Inf(-1)
	minLat, maxLat := math.Inf(1), math.Inf(-1)
	for _, p := range outer {
		minLng = math.Min(minLng, p.Lng())
		maxLng = math.Max(maxLng, p.Lng())
		minLat = math.Min(minLat, p.Lat())
		maxLat = math.Max(maxLat, p.Lat())
	}
	return NewBounds(maxLat, minLat, maxLng, minLng)
}
