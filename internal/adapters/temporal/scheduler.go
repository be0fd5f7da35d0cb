package temporaladapter

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/client"

	"github.com/partymap/partymap/internal/pkg/config"
	"github.com/partymap/partymap/internal/pkg/logging"
	"github.com/partymap/partymap/internal/workflows"
)

// Dial connects to the Temporal frontend described by cfg.
func Dial(cfg config.TemporalConfig) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("temporal client: %w", err)
	}
	return c, nil
}

// Scheduler implements ports.CleanupScheduler by starting Temporal workflows.
type Scheduler struct {
	client    client.Client
	taskQueue string
}

// NewScheduler creates a Scheduler starting workflows on taskQueue.
func NewScheduler(c client.Client, taskQueue string) *Scheduler {
	return &Scheduler{client: c, taskQueue: taskQueue}
}

// ScheduleMarkerCleanup starts the cleanup workflow for a deleted marker.
// The workflow id is derived from the marker so a repeated request does not
// start a second run.
func (s *Scheduler) ScheduleMarkerCleanup(ctx context.Context, markerID string, imageKeys []string) error {
	opts := client.StartWorkflowOptions{
		ID:        "marker-cleanup-" + markerID,
		TaskQueue: s.taskQueue,
	}
	run, err := s.client.ExecuteWorkflow(ctx, opts, workflows.MarkerCleanupWorkflow, workflows.MarkerCleanupInput{
		MarkerID:  markerID,
		ImageKeys: imageKeys,
	})
	if err != nil {
		return fmt.Errorf("start cleanup workflow: %w", err)
	}
	logging.FromContext(ctx).Info("cleanup workflow started",
		"workflow_id", run.GetID(), "run_id", run.GetRunID())
	return nil
}
