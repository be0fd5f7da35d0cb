package usecases

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/partymap/partymap/internal/core/domain"
	"github.com/partymap/partymap/internal/core/ports"
	"github.com/partymap/partymap/internal/pkg/geospatial"
	"github.com/partymap/partymap/internal/pkg/logging"
	"github.com/partymap/partymap/internal/pkg/metrics"
	"github.com/partymap/partymap/internal/pkg/telemetry"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// PolygonOptions tunes geometry handling and bulk operations.
type PolygonOptions struct {
	// Tolerance is the simplification tolerance used when a caller gives none.
	Tolerance float64
	// MaxBulkItems caps the size of every bulk request.
	MaxBulkItems int
	// BulkConcurrency bounds the number of records a bulk update writes at once.
	BulkConcurrency int
}

func (o PolygonOptions) withDefaults() PolygonOptions {
	if o.Tolerance <= 0 {
		o.Tolerance = geospatial.DefaultTolerance
	}
	if o.MaxBulkItems <= 0 {
		o.MaxBulkItems = 500
	}
	if o.BulkConcurrency <= 0 {
		o.BulkConcurrency = 4
	}
	return o
}

// PolygonService handles polygon business logic.
type PolygonService struct {
	polygons ports.PolygonRepository
	markers  ports.MarkerRepository
	cache    polygonCache
	events   ports.EventPublisher
	opts     PolygonOptions
}

// NewPolygonService creates a new PolygonService. cache and events may be nil.
func NewPolygonService(
	polygons ports.PolygonRepository,
	markers ports.MarkerRepository,
	cache ports.CacheService,
	events ports.EventPublisher,
	opts PolygonOptions,
) *PolygonService {
	return &PolygonService{
		polygons: polygons,
		markers:  markers,
		cache:    polygonCache{cache: cache},
		events:   events,
		opts:     opts.withDefaults(),
	}
}

// Create normalizes, validates and stores a new polygon.
func (s *PolygonService) Create(ctx context.Context, in domain.PolygonInput) (_ *domain.Polygon, err error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanPolygonCreate,
		attribute.String(telemetry.AttrInputShape, inputShape(in.Geometry)))
	defer func() { telemetry.EndSpan(span, err) }()

	p, err := s.build(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.polygons.Create(ctx, &p); err != nil {
		return nil, fmt.Errorf("create polygon: %w", err)
	}
	p.Decorate()

	metrics.PolygonWrites.WithLabelValues("create").Inc()
	s.changed(ctx, domain.ActionCreated, "", p.ID)
	return &p, nil
}

// Get returns a single polygon with its computed fields.
func (s *PolygonService) Get(ctx context.Context, id string) (*domain.Polygon, error) {
	var key string
	if s.cache.enabled() {
		key = s.cache.key(ctx, "id", id)
		var cached domain.Polygon
		if s.cache.getJSON(ctx, "polygon", key, &cached) {
			if cached.Marker != nil {
				mid := cached.Marker.ID
				cached.MarkerID = &mid
			}
			return &cached, nil
		}
	}

	p, err := s.polygons.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Decorate()

	if s.cache.enabled() {
		s.cache.setJSON(ctx, key, p, polygonTTL)
	}
	return p, nil
}

// List returns a page of polygons and the total number of matches.
func (s *PolygonService) List(ctx context.Context, filter domain.PolygonFilter) ([]domain.Polygon, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultPageLimit
	}
	if filter.Limit > maxPageLimit {
		filter.Limit = maxPageLimit
	}

	polys, total, err := s.polygons.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	decorate(polys)
	return polys, total, nil
}

// ListAll returns every polygon matching the type and visibility filters.
func (s *PolygonService) ListAll(ctx context.Context, filter domain.PolygonFilter) ([]domain.Polygon, error) {
	polys, err := s.polygons.ListAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	decorate(polys)
	return polys, nil
}

// ExportGeoJSON renders matching polygons as an encoded FeatureCollection.
// Only visible polygons are exported unless visible is set.
func (s *PolygonService) ExportGeoJSON(ctx context.Context, typ domain.PolygonType, visible *bool) (_ []byte, err error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanPolygonExport)
	defer func() { telemetry.EndSpan(span, err) }()

	if visible == nil {
		v := true
		visible = &v
	}

	var key string
	if s.cache.enabled() {
		key = s.cache.key(ctx, "geojson", string(typ), strconv.FormatBool(*visible))
		if data, ok := s.cache.getRaw(ctx, "geojson", key); ok {
			return data, nil
		}
	}

	polys, err := s.polygons.ListAll(ctx, domain.PolygonFilter{Type: typ, Visible: visible})
	if err != nil {
		return nil, err
	}
	data, err := featureCollection(polys).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode feature collection: %w", err)
	}

	if s.cache.enabled() {
		s.cache.setRaw(ctx, key, data, exportTTL)
	}
	return data, nil
}

// ListByMarker returns the polygons attached to a marker.
func (s *PolygonService) ListByMarker(ctx context.Context, markerID string) ([]domain.Polygon, error) {
	if _, err := s.markers.GetByID(ctx, markerID); err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: marker %s", domain.ErrRecordNotFound, markerID)
		}
		return nil, err
	}
	polys, err := s.polygons.ListByMarker(ctx, markerID)
	if err != nil {
		return nil, err
	}
	decorate(polys)
	return polys, nil
}

// Simplified returns the polygon with every ring reduced by Douglas-Peucker.
// A nil tolerance uses the configured default; zero keeps every point that
// is off its chord. Nothing is stored.
func (s *PolygonService) Simplified(ctx context.Context, id string, tolerance *float64) (*domain.Polygon, error) {
	tol := s.opts.Tolerance
	if tolerance != nil {
		if *tolerance < 0 || math.IsNaN(*tolerance) {
			return nil, fmt.Errorf("%w: tolerance must not be negative", domain.ErrInvalidGeometryInput)
		}
		tol = *tolerance
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	before := p.Geometry.Coordinates.PointCount()
	out := *p
	out.Geometry = geospatial.NewGeometry(geospatial.SimplifyRings(p.Geometry.Coordinates, tol))
	out.Decorate()
	metrics.ObserveSimplify(before, out.PointCount)
	return &out, nil
}

// Update applies a partial update. Only a replaced geometry is normalized
// and validated; the merged record is checked against the field rules and
// saved whole.
func (s *PolygonService) Update(ctx context.Context, id string, patch domain.PolygonPatch) (_ *domain.Polygon, err error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanPolygonUpdate,
		attribute.String(telemetry.AttrPolygonID, id))
	defer func() { telemetry.EndSpan(span, err) }()

	p, err := s.polygons.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var rings geospatial.Rings
	if patch.Geometry != nil {
		span.SetAttributes(attribute.String(telemetry.AttrInputShape, inputShape(patch.Geometry)))
		if rings, err = checkGeometry(patch.Geometry); err != nil {
			return nil, err
		}
	}

	patch.ApplyTo(p)
	if rings != nil {
		p.Geometry = geospatial.NewGeometry(rings)
	}
	if err := validatePolygon(p); err != nil {
		return nil, err
	}
	if patch.Marker.Set {
		if err := s.attachMarker(ctx, p); err != nil {
			return nil, err
		}
	}

	if err := s.polygons.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update polygon: %w", err)
	}
	p.Decorate()

	metrics.PolygonWrites.WithLabelValues("update").Inc()
	s.changed(ctx, domain.ActionUpdated, "", p.ID)
	return p, nil
}

// Delete removes a single polygon.
func (s *PolygonService) Delete(ctx context.Context, id string) (err error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanPolygonDelete,
		attribute.String(telemetry.AttrPolygonID, id))
	defer func() { telemetry.EndSpan(span, err) }()

	if err := s.polygons.Delete(ctx, id); err != nil {
		return err
	}
	metrics.PolygonWrites.WithLabelValues("delete").Inc()
	s.changed(ctx, domain.ActionDeleted, "", id)
	return nil
}

// DeleteAll removes every polygon and returns how many were deleted.
func (s *PolygonService) DeleteAll(ctx context.Context) (int64, error) {
	n, err := s.polygons.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete all polygons: %w", err)
	}
	metrics.PolygonWrites.WithLabelValues("delete_all").Add(float64(n))
	s.publish(ctx, &domain.PolygonEvent{Action: domain.ActionDeleted, Count: int(n)})
	s.cache.invalidate(ctx)
	return n, nil
}

// BulkCreate runs every item through the create pipeline and stores all of
// them in one transaction. The first invalid item aborts the batch.
func (s *PolygonService) BulkCreate(ctx context.Context, inputs []domain.PolygonInput) (_ []domain.Polygon, err error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanPolygonBulkCreate,
		attribute.Int(telemetry.AttrBatchSize, len(inputs)))
	defer func() { telemetry.EndSpan(span, err) }()

	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: polygons must be a non-empty array", domain.ErrInvalidPolygon)
	}
	if len(inputs) > s.opts.MaxBulkItems {
		return nil, fmt.Errorf("%w: at most %d polygons per request", domain.ErrBatchTooLarge, s.opts.MaxBulkItems)
	}

	polys := make([]domain.Polygon, 0, len(inputs))
	for i, in := range inputs {
		p, err := s.build(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		polys = append(polys, p)
	}

	if err := s.polygons.CreateBatch(ctx, polys); err != nil {
		return nil, fmt.Errorf("create polygons: %w", err)
	}
	decorate(polys)

	ids := make([]string, len(polys))
	for i := range polys {
		ids[i] = polys[i].ID
	}
	metrics.PolygonWrites.WithLabelValues("bulk_create").Add(float64(len(polys)))
	s.changed(ctx, domain.ActionCreated, "", ids...)
	return polys, nil
}

// BulkDelete removes the given polygons in one statement. Ids that match
// nothing are ignored unless none match at all.
func (s *PolygonService) BulkDelete(ctx context.Context, ids []string) (_ int64, err error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanPolygonBulkDelete,
		attribute.Int(telemetry.AttrBatchSize, len(ids)))
	defer func() { telemetry.EndSpan(span, err) }()

	if len(ids) == 0 {
		return 0, domain.ErrEmptySelection
	}
	if len(ids) > s.opts.MaxBulkItems {
		return 0, fmt.Errorf("%w: at most %d ids per request", domain.ErrBatchTooLarge, s.opts.MaxBulkItems)
	}

	n, err := s.polygons.DeleteByIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("delete polygons: %w", err)
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: no polygons found for the provided ids", domain.ErrRecordNotFound)
	}

	metrics.PolygonWrites.WithLabelValues("bulk_delete").Add(float64(n))
	s.publish(ctx, &domain.PolygonEvent{Action: domain.ActionDeleted, PolygonIDs: ids, Count: int(n)})
	s.cache.invalidate(ctx)
	return n, nil
}

// BulkUpdate applies one patch to many polygons. The patch is validated
// once up front; records that are missing or that the patch would leave
// invalid are skipped. It returns how many records were written, also
// when a later write fails and the error is returned alongside.
func (s *PolygonService) BulkUpdate(ctx context.Context, ids []string, patch domain.PolygonPatch) (_ int64, err error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanPolygonBulkUpdate,
		attribute.Int(telemetry.AttrBatchSize, len(ids)))
	defer func() { telemetry.EndSpan(span, err) }()

	if len(ids) == 0 {
		return 0, domain.ErrEmptySelection
	}
	if len(ids) > s.opts.MaxBulkItems {
		return 0, fmt.Errorf("%w: at most %d ids per request", domain.ErrBatchTooLarge, s.opts.MaxBulkItems)
	}
	if patch.Empty() {
		return 0, fmt.Errorf("%w: updateData must change at least one field", domain.ErrInvalidPolygon)
	}

	var rings geospatial.Rings
	if patch.Geometry != nil {
		if rings, err = checkGeometry(patch.Geometry); err != nil {
			return 0, err
		}
	}
	if err := validatePatch(patch, rings); err != nil {
		return 0, err
	}

	var marker *domain.MarkerSummary
	if patch.Marker.Set && patch.Marker.ID != nil {
		m, err := s.lookupMarker(ctx, *patch.Marker.ID)
		if err != nil {
			return 0, err
		}
		marker = m.Summary()
	}

	log := logging.FromContext(ctx)
	var (
		mu      sync.Mutex
		updated []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.BulkConcurrency)

	for _, id := range ids {
		id := id
		g.Go(func() error {
			p, err := s.polygons.GetByID(gctx, id)
			if errors.Is(err, domain.ErrRecordNotFound) {
				return nil
			}
			if err != nil {
				return err
			}

			patch.ApplyTo(p)
			if rings != nil {
				p.Geometry = geospatial.NewGeometry(rings.Clone())
			}
			if patch.Marker.Set {
				p.Marker = marker
			}
			if err := validatePolygon(p); err != nil {
				log.Warn("bulk update skipped polygon", "polygon_id", id, "error", err)
				return nil
			}

			if err := s.polygons.Update(gctx, p); err != nil {
				if errors.Is(err, domain.ErrRecordNotFound) {
					return nil
				}
				return fmt.Errorf("update polygon %s: %w", id, err)
			}
			mu.Lock()
			updated = append(updated, p.ID)
			mu.Unlock()
			return nil
		})
	}
	err = g.Wait()

	// Records written before a failure stay written, so caches and
	// listeners must hear about them either way.
	n := int64(len(updated))
	metrics.PolygonWrites.WithLabelValues("bulk_update").Add(float64(n))
	if n > 0 {
		s.cache.invalidate(ctx)
		s.publish(ctx, &domain.PolygonEvent{Action: domain.ActionUpdated, PolygonIDs: updated, Count: int(n)})
	}
	return n, err
}

// AssociateMarker attaches an existing marker to a polygon.
func (s *PolygonService) AssociateMarker(ctx context.Context, id, markerID string) (*domain.Polygon, error) {
	if markerID == "" {
		return nil, fmt.Errorf("%w: markerId is required", domain.ErrInvalidPolygon)
	}
	p, err := s.polygons.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	m, err := s.lookupMarker(ctx, markerID)
	if err != nil {
		return nil, err
	}

	p.MarkerID = &m.ID
	p.Marker = m.Summary()
	if err := s.polygons.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update polygon: %w", err)
	}
	p.Decorate()

	metrics.PolygonWrites.WithLabelValues("associate").Inc()
	s.changed(ctx, domain.ActionUpdated, m.ID, p.ID)
	return p, nil
}

// DissociateMarker clears the polygon's marker reference.
func (s *PolygonService) DissociateMarker(ctx context.Context, id string) (*domain.Polygon, error) {
	p, err := s.polygons.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var previous string
	if p.MarkerID != nil {
		previous = *p.MarkerID
	}
	p.MarkerID = nil
	p.Marker = nil
	if err := s.polygons.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update polygon: %w", err)
	}
	p.Decorate()

	metrics.PolygonWrites.WithLabelValues("dissociate").Inc()
	s.changed(ctx, domain.ActionDetached, previous, p.ID)
	return p, nil
}

// WithinBounds returns polygons lying entirely inside the box.
func (s *PolygonService) WithinBounds(ctx context.Context, b geospatial.Bounds) ([]domain.Polygon, error) {
	pred, err := geospatial.WithinBounds(b)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, pred)
}

// Intersecting returns polygons sharing at least one point with g.
func (s *PolygonService) Intersecting(ctx context.Context, g *geojson.Geometry) ([]domain.Polygon, error) {
	pred, err := geospatial.Intersects(g)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, pred)
}

func (s *PolygonService) query(ctx context.Context, pred geospatial.Predicate) (_ []domain.Polygon, err error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanPolygonQuery,
		attribute.String(telemetry.AttrPredicateOp, string(pred.Op)))
	defer func() { telemetry.EndSpan(span, err) }()

	metrics.SpatialQueries.WithLabelValues(string(pred.Op)).Inc()
	polys, err := s.polygons.FindByPredicate(ctx, pred)
	if err != nil {
		return nil, err
	}
	decorate(polys)
	return polys, nil
}

// build turns a create payload into a stored-ready polygon: defaults, then
// geometry normalization and validation, then field rules, then the
// marker reference.
func (s *PolygonService) build(ctx context.Context, in domain.PolygonInput) (domain.Polygon, error) {
	p := domain.NewPolygon(in)
	rings, err := checkGeometry(in.Geometry)
	if err != nil {
		return domain.Polygon{}, err
	}
	p.Geometry = geospatial.NewGeometry(rings)

	if err := validatePolygon(&p); err != nil {
		return domain.Polygon{}, err
	}
	if err := s.attachMarker(ctx, &p); err != nil {
		return domain.Polygon{}, err
	}
	return p, nil
}

// attachMarker resolves the polygon's marker reference into its summary.
func (s *PolygonService) attachMarker(ctx context.Context, p *domain.Polygon) error {
	if p.MarkerID == nil {
		p.Marker = nil
		return nil
	}
	m, err := s.lookupMarker(ctx, *p.MarkerID)
	if err != nil {
		return err
	}
	p.Marker = m.Summary()
	return nil
}

func (s *PolygonService) lookupMarker(ctx context.Context, id string) (*domain.Marker, error) {
	m, err := s.markers.GetByID(ctx, id)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrAssociatedMarkerNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get marker: %w", err)
	}
	return m, nil
}

// changed invalidates cached reads and announces the change.
func (s *PolygonService) changed(ctx context.Context, action domain.EventAction, markerID string, ids ...string) {
	s.cache.invalidate(ctx)
	s.publish(ctx, &domain.PolygonEvent{
		Action:     action,
		PolygonIDs: ids,
		MarkerID:   markerID,
		Count:      len(ids),
	})
}

func (s *PolygonService) publish(ctx context.Context, ev *domain.PolygonEvent) {
	if s.events == nil {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	if err := s.events.PublishPolygonEvent(ctx, ev); err != nil {
		logging.FromContext(ctx).Warn("publish polygon event failed", "action", ev.Action, "error", err)
	}
}

// checkGeometry normalizes and validates a geometry payload.
func checkGeometry(in *geospatial.Input) (geospatial.Rings, error) {
	if in == nil {
		metrics.GeometryRejections.WithLabelValues("format").Inc()
		return nil, fmt.Errorf("%w: geometry is required", geospatial.ErrInvalidGeometryFormat)
	}
	if in.IsLegacy() {
		metrics.LegacyGeometryPayloads.Inc()
	}
	rings, err := geospatial.Normalize(*in)
	if err != nil {
		metrics.GeometryRejections.WithLabelValues("format").Inc()
		return nil, err
	}
	if err := geospatial.ValidateRings(rings); err != nil {
		metrics.GeometryRejections.WithLabelValues("geometry").Inc()
		return nil, err
	}
	return rings, nil
}

// validatePatch checks the patch's own fields against a default record so
// that a bad value is reported once rather than per polygon.
func validatePatch(patch domain.PolygonPatch, rings geospatial.Rings) error {
	tmpl := domain.NewPolygon(domain.PolygonInput{Name: "template"})
	patch.ApplyTo(&tmpl)
	if rings != nil {
		tmpl.Geometry = geospatial.NewGeometry(rings)
	}
	return validatePolygon(&tmpl)
}

func decorate(polys []domain.Polygon) {
	for i := range polys {
		polys[i].Decorate()
	}
}

func inputShape(in *geospatial.Input) string {
	if in == nil {
		return geospatial.KindUnknown.String()
	}
	return in.Kind().String()
}
