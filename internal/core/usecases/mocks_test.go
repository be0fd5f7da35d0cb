package usecases_test

import (
	"context"
	"errors"
	"sync"

	"github.com/partymap/partymap/internal/core/domain"
	"github.com/partymap/partymap/internal/pkg/geospatial"
)

// --- Mock PolygonRepository ---

type mockPolygonRepo struct {
	createFn          func(ctx context.Context, p *domain.Polygon) error
	createBatchFn     func(ctx context.Context, ps []domain.Polygon) error
	getByIDFn         func(ctx context.Context, id string) (*domain.Polygon, error)
	listFn            func(ctx context.Context, f domain.PolygonFilter) ([]domain.Polygon, int, error)
	listAllFn         func(ctx context.Context, f domain.PolygonFilter) ([]domain.Polygon, error)
	listByMarkerFn    func(ctx context.Context, markerID string) ([]domain.Polygon, error)
	findByPredicateFn func(ctx context.Context, pred geospatial.Predicate) ([]domain.Polygon, error)
	updateFn          func(ctx context.Context, p *domain.Polygon) error
	deleteFn          func(ctx context.Context, id string) error
	deleteAllFn       func(ctx context.Context) (int64, error)
	deleteByIDsFn     func(ctx context.Context, ids []string) (int64, error)
}

func (m *mockPolygonRepo) Create(ctx context.Context, p *domain.Polygon) error {
	if m.createFn != nil {
		return m.createFn(ctx, p)
	}
	p.ID = "generated"
	return nil
}

func (m *mockPolygonRepo) CreateBatch(ctx context.Context, ps []domain.Polygon) error {
	if m.createBatchFn != nil {
		return m.createBatchFn(ctx, ps)
	}
	return nil
}

func (m *mockPolygonRepo) GetByID(ctx context.Context, id string) (*domain.Polygon, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrRecordNotFound
}

func (m *mockPolygonRepo) List(ctx context.Context, f domain.PolygonFilter) ([]domain.Polygon, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, f)
	}
	return nil, 0, nil
}

func (m *mockPolygonRepo) ListAll(ctx context.Context, f domain.PolygonFilter) ([]domain.Polygon, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx, f)
	}
	return nil, nil
}

func (m *mockPolygonRepo) ListByMarker(ctx context.Context, markerID string) ([]domain.Polygon, error) {
	if m.listByMarkerFn != nil {
		return m.listByMarkerFn(ctx, markerID)
	}
	return nil, nil
}

func (m *mockPolygonRepo) FindByPredicate(ctx context.Context, pred geospatial.Predicate) ([]domain.Polygon, error) {
	if m.findByPredicateFn != nil {
		return m.findByPredicateFn(ctx, pred)
	}
	return nil, nil
}

func (m *mockPolygonRepo) Update(ctx context.Context, p *domain.Polygon) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, p)
	}
	return nil
}

func (m *mockPolygonRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockPolygonRepo) DeleteAll(ctx context.Context) (int64, error) {
	if m.deleteAllFn != nil {
		return m.deleteAllFn(ctx)
	}
	return 0, nil
}

func (m *mockPolygonRepo) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if m.deleteByIDsFn != nil {
		return m.deleteByIDsFn(ctx, ids)
	}
	return 0, nil
}

// --- Mock MarkerRepository ---

type mockMarkerRepo struct {
	createFn  func(ctx context.Context, m *domain.Marker) error
	getByIDFn func(ctx context.Context, id string) (*domain.Marker, error)
	listFn    func(ctx context.Context, f domain.MarkerFilter) ([]domain.Marker, int, error)
	deleteFn  func(ctx context.Context, id string) (int64, error)
}

func (m *mockMarkerRepo) Create(ctx context.Context, mk *domain.Marker) error {
	if m.createFn != nil {
		return m.createFn(ctx, mk)
	}
	mk.ID = "marker-generated"
	return nil
}

func (m *mockMarkerRepo) GetByID(ctx context.Context, id string) (*domain.Marker, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrRecordNotFound
}

func (m *mockMarkerRepo) List(ctx context.Context, f domain.MarkerFilter) ([]domain.Marker, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, f)
	}
	return nil, 0, nil
}

func (m *mockMarkerRepo) Delete(ctx context.Context, id string) (int64, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return 0, nil
}

// --- Mock CacheService ---

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets []string
}

func newMockCache() *mockCache {
	return &mockCache{data: map[string][]byte{}}
}

func (c *mockCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, errors.New("cache miss")
	}
	return v, nil
}

func (c *mockCache) Set(_ context.Context, key string, value []byte, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.sets = append(c.sets, key)
	return nil
}

func (c *mockCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *mockCache) wasSet(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range c.sets {
		if k == key {
			return true
		}
	}
	return false
}

// --- Mock EventPublisher ---

type mockEvents struct {
	mu       sync.Mutex
	polygons []domain.PolygonEvent
	markers  []domain.MarkerEvent
	err      error
}

func (e *mockEvents) PublishPolygonEvent(_ context.Context, ev *domain.PolygonEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.polygons = append(e.polygons, *ev)
	return e.err
}

func (e *mockEvents) PublishMarkerEvent(_ context.Context, ev *domain.MarkerEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.markers = append(e.markers, *ev)
	return e.err
}

// --- Mock CleanupScheduler ---

type mockScheduler struct {
	markerID string
	keys     []string
	calls    int
}

func (s *mockScheduler) ScheduleMarkerCleanup(_ context.Context, markerID string, keys []string) error {
	s.calls++
	s.markerID = markerID
	s.keys = keys
	return nil
}

// --- Fixtures ---

func unitSquare() geospatial.Rings {
	return geospatial.Rings{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}
}

func squareInput() *geospatial.Input {
	in := geospatial.CanonicalInput(unitSquare())
	return &in
}

func storedPolygon(id string) *domain.Polygon {
	p := domain.NewPolygon(domain.PolygonInput{Name: "Stage " + id})
	p.ID = id
	p.Geometry = geospatial.NewGeometry(unitSquare())
	return &p
}

func knownMarker(id string) *domain.Marker {
	return &domain.Marker{
		ID:         id,
		MarkerType: "club",
		PlaceName:  "Warehouse",
		Latitude:   52.5,
		Longitude:  13.4,
		PartyTime:  domain.PartyNight,
	}
}

func ptr[T any](v T) *T { return &v }
