package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/partymap/partymap/internal/adapters/http"
	natsadapter "github.com/partymap/partymap/internal/adapters/nats"
	"github.com/partymap/partymap/internal/adapters/postgres"
	temporaladapter "github.com/partymap/partymap/internal/adapters/temporal"
	"github.com/partymap/partymap/internal/adapters/valkey"
	"github.com/partymap/partymap/internal/core/ports"
	"github.com/partymap/partymap/internal/core/usecases"
	"github.com/partymap/partymap/internal/pkg/config"
	"github.com/partymap/partymap/internal/pkg/logging"
	"github.com/partymap/partymap/internal/pkg/metrics"
	"github.com/partymap/partymap/internal/pkg/telemetry"
)

func main() {
	// Structured logging
	logging.Setup("partymap-api", os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	cfg, err := config.Load("partymap-api")
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		slog.Error("database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Cache. Interfaces stay nil when a backend is missing so the services
	// skip it instead of calling through a nil pointer.
	var (
		cache      *valkey.Cache
		cachePort  ports.CacheService
		pub        *natsadapter.Publisher
		eventsPort ports.EventPublisher
		cleanups   ports.CleanupScheduler
		subscriber *natsadapter.Subscriber
	)
	if c, err := valkey.New(cfg.Valkey); err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer c.Close()
		cache, cachePort = c, c
	}

	// NATS
	if p, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer p.Close()
		pub, eventsPort = p, p
		subscriber = natsadapter.NewSubscriber(p.Conn())
	}

	// Temporal (marker image cleanup)
	if cfg.Temporal.Enabled {
		tc, err := temporaladapter.Dial(cfg.Temporal)
		if err != nil {
			slog.Warn("temporal unavailable, marker images will not be cleaned up", "error", err)
		} else {
			defer tc.Close()
			cleanups = temporaladapter.NewScheduler(tc, cfg.Temporal.TaskQueue)
		}
	}

	// Repos
	polygonRepo := postgres.NewPolygonRepo(db)
	markerRepo := postgres.NewMarkerRepo(db)

	// Use cases
	polygonSvc := usecases.NewPolygonService(polygonRepo, markerRepo, cachePort, eventsPort, usecases.PolygonOptions{
		Tolerance:       cfg.Geometry.SimplifyTolerance,
		MaxBulkItems:    cfg.Geometry.MaxBulkItems,
		BulkConcurrency: cfg.Geometry.BulkConcurrency,
	})
	markerSvc := usecases.NewMarkerService(markerRepo, cachePort, eventsPort, cleanups)

	deps := &http.Dependencies{
		Polygons: polygonSvc,
		Markers:  markerSvc,
		Events:   subscriber,
		DB:       db,
		Cache:    cache,
	}
	if pub != nil {
		deps.NATS = pub.Conn()
	}

	// DB pool gauges
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				metrics.UpdateDBPoolMetrics(db.Stat())
			}
		}
	}()

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimitMB * 1024 * 1024,
		AppName:      "PartyMap API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, If-None-Match",
		ExposeHeaders:    "Link, ETag, Deprecation, Sunset, Warning, X-Request-ID",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps, http.DefaultRouterOptions())

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			slog.Error("listen", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
