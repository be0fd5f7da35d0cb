package usecases

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/partymap/partymap/internal/core/domain"
	"github.com/partymap/partymap/internal/core/ports"
	"github.com/partymap/partymap/internal/pkg/logging"
	"github.com/partymap/partymap/internal/pkg/telemetry"
)

// MarkerService handles the marker operations polygons depend on.
type MarkerService struct {
	markers  ports.MarkerRepository
	cache    polygonCache
	events   ports.EventPublisher
	cleanups ports.CleanupScheduler
}

// NewMarkerService creates a new MarkerService. cache, events and cleanups
// may be nil.
func NewMarkerService(
	markers ports.MarkerRepository,
	cache ports.CacheService,
	events ports.EventPublisher,
	cleanups ports.CleanupScheduler,
) *MarkerService {
	return &MarkerService{
		markers:  markers,
		cache:    polygonCache{cache: cache},
		events:   events,
		cleanups: cleanups,
	}
}

// Create validates and stores a new marker.
func (s *MarkerService) Create(ctx context.Context, in domain.MarkerInput) (*domain.Marker, error) {
	m := domain.NewMarker(in)
	if err := validateMarker(&m); err != nil {
		return nil, err
	}
	if err := s.markers.Create(ctx, &m); err != nil {
		return nil, fmt.Errorf("create marker: %w", err)
	}
	s.publish(ctx, &domain.MarkerEvent{Action: domain.ActionCreated, MarkerID: m.ID, PlaceName: m.PlaceName})
	return &m, nil
}

// Get returns a single marker.
func (s *MarkerService) Get(ctx context.Context, id string) (*domain.Marker, error) {
	return s.markers.GetByID(ctx, id)
}

// List returns a page of markers and the total number of matches.
func (s *MarkerService) List(ctx context.Context, filter domain.MarkerFilter) ([]domain.Marker, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultPageLimit
	}
	if filter.Limit > maxPageLimit {
		filter.Limit = maxPageLimit
	}
	return s.markers.List(ctx, filter)
}

// Delete removes a marker. Polygons that referenced it are detached by
// storage, and the marker's images are handed to the cleanup scheduler.
func (s *MarkerService) Delete(ctx context.Context, id string) (err error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanMarkerDelete,
		attribute.String(telemetry.AttrMarkerID, id))
	defer func() { telemetry.EndSpan(span, err) }()

	m, err := s.markers.GetByID(ctx, id)
	if err != nil {
		return err
	}
	detached, err := s.markers.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete marker: %w", err)
	}

	log := logging.FromContext(ctx)
	log.Info("marker deleted", "marker_id", id, "detached_polygons", detached)

	s.publish(ctx, &domain.MarkerEvent{Action: domain.ActionDeleted, MarkerID: id, PlaceName: m.PlaceName})
	if detached > 0 {
		s.cache.invalidate(ctx)
		if s.events != nil {
			ev := &domain.PolygonEvent{
				Action:     domain.ActionDetached,
				MarkerID:   id,
				Count:      int(detached),
				OccurredAt: time.Now().UTC(),
			}
			if err := s.events.PublishPolygonEvent(ctx, ev); err != nil {
				log.Warn("publish polygon event failed", "action", ev.Action, "error", err)
			}
		}
	}

	if keys := m.ImageKeys(); len(keys) > 0 && s.cleanups != nil {
		if err := s.cleanups.ScheduleMarkerCleanup(ctx, id, keys); err != nil {
			log.Error("schedule marker cleanup failed", "marker_id", id, "error", err)
		}
	}
	return nil
}

func (s *MarkerService) publish(ctx context.Context, ev *domain.MarkerEvent) {
	if s.events == nil {
		return
	}
	ev.OccurredAt = time.Now().UTC()
	if err := s.events.PublishMarkerEvent(ctx, ev); err != nil {
		logging.FromContext(ctx).Warn("publish marker event failed", "action", ev.Action, "error", err)
	}
}
