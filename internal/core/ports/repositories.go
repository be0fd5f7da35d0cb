package ports

import (
	"context"

	"github.com/partymap/partymap/internal/core/domain"
	"github.com/partymap/partymap/internal/pkg/geospatial"
)

// PolygonRepository persists polygons. Reads return polygons with the
// associated marker summary populated; a missing id is
// domain.ErrRecordNotFound.
type PolygonRepository interface {
	Create(ctx context.Context, p *domain.Polygon) error
	// CreateBatch stores every polygon or none of them.
	CreateBatch(ctx context.Context, ps []domain.Polygon) error
	GetByID(ctx context.Context, id string) (*domain.Polygon, error)
	List(ctx context.Context, filter domain.PolygonFilter) ([]domain.Polygon, int, error)
	// ListAll ignores Page and Limit.
	ListAll(ctx context.Context, filter domain.PolygonFilter) ([]domain.Polygon, error)
	ListByMarker(ctx context.Context, markerID string) ([]domain.Polygon, error)
	FindByPredicate(ctx context.Context, pred geospatial.Predicate) ([]domain.Polygon, error)
	// Update saves the whole record.
	Update(ctx context.Context, p *domain.Polygon) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int64, error)
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
}

// MarkerRepository persists markers. Deleting a marker clears every polygon
// reference to it.
type MarkerRepository interface {
	Create(ctx context.Context, m *domain.Marker) error
	GetByID(ctx context.Context, id string) (*domain.Marker, error)
	List(ctx context.Context, filter domain.MarkerFilter) ([]domain.Marker, int, error)
	// Delete removes the marker and returns how many polygons were detached.
	Delete(ctx context.Context, id string) (int64, error)
}
