package ports

import (
	"context"

	"github.com/partymap/partymap/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishPolygonEvent(ctx context.Context, event *domain.PolygonEvent) error
	PublishMarkerEvent(ctx context.Context, event *domain.MarkerEvent) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// ObjectStorage holds marker images.
type ObjectStorage interface {
	DeleteObject(ctx context.Context, key string) error
}

// CleanupScheduler hands work left behind by a deleted marker to a
// durable background runner.
type CleanupScheduler interface {
	ScheduleMarkerCleanup(ctx context.Context, markerID string, imageKeys []string) error
}
