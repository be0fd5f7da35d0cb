package geospatial

import "math"

// DefaultTolerance is the Douglas-Peucker tolerance in degrees used when a
// caller does not supply one.
const DefaultTolerance = 0.0001

// Simplify reduces a ring with the Douglas-Peucker algorithm. The first and
// last positions are always kept, so a closed ring stays closed. Rings of
// three points or fewer are returned unchanged. A point survives only when
// its distance to the current chord is strictly greater than tolerance.
func Simplify(ring Ring, tolerance float64) Ring {
	if len(ring) <= 3 {
		return ring
	}
	if tolerance < 0 || math.IsNaN(tolerance) {
		tolerance = 0
	}

	keep := make([]bool, len(ring))
	keep[0] = true
	keep[len(ring)-1] = true
	markSegment(ring, 0, len(ring)-1, tolerance, keep)

	out := make(Ring, 0, len(ring))
	for i, k := range keep {
		if k {
			out = append(out, ring[i])
		}
	}
	return out
}

// SimplifyRings simplifies every ring independently.
func SimplifyRings(r Rings, tolerance float64) Rings {
	out := make(Rings, len(r))
	for i, ring := range r {
		out[i] = Simplify(ring, tolerance)
	}
	return out
}

func markSegment(ring Ring, start, end int, tolerance float64, keep []bool) {
	maxDist := 0.0
	maxIdx := 0
	for i := start + 1; i < end; i++ {
		d := segmentDistance(ring[i], ring[start], ring[end])
		if d > maxDist {
			maxDist = d
			maxIdx = i
		}
	}
	if maxDist > tolerance {
		keep[maxIdx] = true
		markSegment(ring, start, maxIdx, tolerance, keep)
		markSegment(ring, maxIdx, end, tolerance, keep)
	}
}

// segmentDistance is the planar distance from p to the segment a-b, with the
// projection clamped to the segment. A zero-length segment falls back to the
// distance from p to a.
func segmentDistance(p, a, b Position) float64 {
	px, py := p.Lng()-a.Lng(), p.Lat()-a.Lat()
	cx, cy := b.Lng()-a.Lng(), b.Lat()-a.Lat()

	lenSq := cx*cx + cy*cy
	if lenSq == 0 {
		return math.Hypot(px, py)
	}

	t := (px*cx + py*cy) / lenSq
	var x, y float64
	switch {
	case t < 0:
		x, y = a.Lng(), a.Lat()
	case t > 1:
		x, y = b.Lng(), b.Lat()
	default:
		x, y = a.Lng()+t*cx, a.Lat()+t*cy
	}
	return math.Hypot(p.Lng()-x, p.Lat()-y)
}
