package workflows

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/partymap/partymap/internal/core/ports"
)

// CleanupActivities holds the activity implementations for the marker
// cleanup workflow.
type CleanupActivities struct {
	// Storage may be nil when no object store is configured; deletions are
	// then logged and treated as done.
	Storage ports.ObjectStorage
}

// DeleteImage removes one image from object storage.
func (a *CleanupActivities) DeleteImage(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if a.Storage == nil {
		slog.Info("image delete skipped, no object storage configured", "key", key)
		return nil
	}
	if err := a.Storage.DeleteObject(ctx, key); err != nil {
		return fmt.Errorf("delete image %s: %w", key, err)
	}
	return nil
}
