package domain

import (
	"errors"

	"github.com/partymap/partymap/internal/pkg/geospatial"
)

// Domain error kinds. Adapters map them to transport status codes with
// errors.Is.
var (
	ErrRecordNotFound           = errors.New("record not found")
	ErrAssociatedMarkerNotFound = errors.New("associated marker not found")
	ErrInvalidPolygon           = errors.New("invalid polygon")
	ErrInvalidMarker            = errors.New("invalid marker")
	ErrInvalidProperty          = errors.New("invalid property")
	ErrEmptySelection           = errors.New("no ids provided")
	ErrBatchTooLarge            = errors.New("batch too large")

	ErrInvalidGeometryFormat = geospatial.ErrInvalidGeometryFormat
	ErrInvalidGeometry       = geospatial.ErrInvalidGeometry
	ErrInvalidBoundsInput    = geospatial.ErrInvalidBoundsInput
	ErrInvalidGeometryInput  = geospatial.ErrInvalidGeometryInput
)
