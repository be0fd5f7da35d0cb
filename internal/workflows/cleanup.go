package workflows

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// MarkerCleanupInput is the input for the marker cleanup workflow.
type MarkerCleanupInput struct {
	MarkerID  string
	ImageKeys []string
}

// MarkerCleanupResult reports what the workflow removed.
type MarkerCleanupResult struct {
	Deleted []string
	Failed  []string
}

// MarkerCleanupWorkflow deletes the object-storage images left behind by a
// deleted marker. Deletions run in parallel; a key that still fails after
// retries is reported and fails the workflow so it shows up for operators.
func MarkerCleanupWorkflow(ctx workflow.Context, input MarkerCleanupInput) (*MarkerCleanupResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting marker cleanup", "markerID", input.MarkerID, "images", len(input.ImageKeys))

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	futures := make([]workflow.Future, len(input.ImageKeys))
	for i, key := range input.ImageKeys {
		futures[i] = workflow.ExecuteActivity(ctx, "DeleteImage", key)
	}

	result := &MarkerCleanupResult{}
	for i, f := range futures {
		key := input.ImageKeys[i]
		if err := f.Get(ctx, nil); err != nil {
			logger.Warn("image delete failed", "key", key, "error", err)
			result.Failed = append(result.Failed, key)
			continue
		}
		result.Deleted = append(result.Deleted, key)
	}

	if len(result.Failed) > 0 {
		return result, fmt.Errorf("marker %s: %d image(s) not deleted: %s",
			input.MarkerID, len(result.Failed), strings.Join(result.Failed, ", "))
	}
	logger.Info("Marker cleanup finished", "markerID", input.MarkerID, "deleted", len(result.Deleted))
	return result, nil
}
