package main

import (
	"log/slog"
	"os"

	"go.temporal.io/sdk/worker"

	temporaladapter "github.com/partymap/partymap/internal/adapters/temporal"
	"github.com/partymap/partymap/internal/pkg/config"
	"github.com/partymap/partymap/internal/pkg/logging"
	"github.com/partymap/partymap/internal/workflows"
)

func main() {
	logging.Setup("partymap-cleaner", os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	cfg, err := config.Load("partymap-cleaner")
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	c, err := temporaladapter.Dial(cfg.Temporal)
	if err != nil {
		slog.Error("temporal", "error", err)
		os.Exit(1)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities. Object storage is not wired in this
	// deployment, so image deletions are logged only.
	w.RegisterWorkflow(workflows.MarkerCleanupWorkflow)
	w.RegisterActivity(&workflows.CleanupActivities{})

	slog.Info("cleanup worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		slog.Error("worker", "error", err)
		os.Exit(1)
	}
}
