package geospatial

import (
	"fmt"
	"math"
)

// MinRingPoints is the smallest closed ring: a triangle plus its closing point.
const MinRingPoints = 4

// Result is the outcome of structural validation.
type Result struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// Validate checks canonical rings and stops at the first failure. The outer
// ring is checked first, then each hole; every ring must have at least four
// points, be closed by exact equality, and hold finite [lng, lat] pairs within
// WGS84 bounds.
func Validate(r Rings) Result {
	if len(r) == 0 {
		return Result{Error: "Coordinates must be a non-empty array of rings"}
	}
	for i, ring := range r {
		if msg := validateRing(ring, ringLabel(i)); msg != "" {
			return Result{Error: msg}
		}
	}
	return Result{Valid: true}
}

// ValidateRings is Validate in error form; failures wrap ErrInvalidGeometry.
func ValidateRings(r Rings) error {
	res := Validate(r)
	if res.Valid {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidGeometry, res.Error)
}

func ringLabel(i int) string {
	if i == 0 {
		return "Outer ring"
	}
	return fmt.Sprintf("Hole %d", i)
}

func validateRing(ring Ring, label string) string {
	if len(ring) < MinRingPoints {
		return fmt.Sprintf("%s must have at least %d coordinates", label, MinRingPoints)
	}
	last := len(ring) - 1
	for _, i := range []int{0, last} {
		if !isPair(ring[i]) {
			return pairError(label, i)
		}
	}
	if !ring[0].Equal(ring[last]) {
		return fmt.Sprintf("%s must be closed (first and last coordinates must be the same)", label)
	}
	for i, p := range ring {
		if !isPair(p) {
			return pairError(label, i)
		}
		if p[0] < -180 || p[0] > 180 {
			return fmt.Sprintf("%s longitude at position %d must be between -180 and 180", label, i)
		}
		if p[1] < -90 || p[1] > 90 {
			return fmt.Sprintf("%s latitude at position %d must be between -90 and 90", label, i)
		}
	}
	return ""
}

func isPair(p Position) bool {
	return len(p) == 2 && finite(p[0]) && finite(p[1])
}

func pairError(label string, i int) string {
	return fmt.Sprintf("%s coordinate %d must be a [longitude, latitude] pair of finite numbers", label, i)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
