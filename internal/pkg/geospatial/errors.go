package geospatial

import "errors"

// Error kinds returned by the geometry core. Callers branch on them with
// errors.Is; the wrapped message carries the detail.
var (
	// ErrInvalidGeometryFormat means the payload matched neither the
	// canonical nor the legacy geometry shape.
	ErrInvalidGeometryFormat = errors.New("invalid geometry format")

	// ErrInvalidGeometry means the rings failed structural validation.
	ErrInvalidGeometry = errors.New("invalid geometry")

	// ErrInvalidBoundsInput means a bounding box is missing a side.
	ErrInvalidBoundsInput = errors.New("invalid bounds input")

	// ErrInvalidGeometryInput means a spatial query has no geometry.
	ErrInvalidGeometryInput = errors.New("invalid geometry input")
)
