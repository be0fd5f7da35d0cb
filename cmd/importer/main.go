package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"

	natsadapter "github.com/partymap/partymap/internal/adapters/nats"
	"github.com/partymap/partymap/internal/adapters/postgres"
	"github.com/partymap/partymap/internal/adapters/valkey"
	"github.com/partymap/partymap/internal/core/ports"
	"github.com/partymap/partymap/internal/core/usecases"
	"github.com/partymap/partymap/internal/pkg/config"
	"github.com/partymap/partymap/internal/pkg/logging"
)

// ---------------------------------------------------------------------------
// Manifest types
// ---------------------------------------------------------------------------

type Manifest struct {
	Source string       `json:"source"`
	Layers []LayerEntry `json:"layers"`
}

// LayerEntry is one GeoJSON FeatureCollection to import. Exactly one of
// URL or File is set.
type LayerEntry struct {
	Name        string `json:"name"`
	URL         string `json:"url,omitempty"`
	File        string `json:"file,omitempty"`
	PolygonType string `json:"polygonType,omitempty"`
	MarkerID    string `json:"markerId,omitempty"`
}

// ---------------------------------------------------------------------------
// Main
// ---------------------------------------------------------------------------

func main() {
	logging.Setup("partymap-importer", os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	cfg, err := config.Load("partymap-importer")
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		slog.Error("db", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Cache and events are optional; the import still runs without them.
	var cache ports.CacheService
	if c, err := valkey.New(cfg.Valkey); err != nil {
		slog.Warn("valkey unavailable, API caches will expire on their own", "error", err)
	} else {
		defer c.Close()
		cache = c
	}
	var events ports.EventPublisher
	if p, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, no change events", "error", err)
	} else {
		defer p.Close()
		events = p
	}

	svc := usecases.NewPolygonService(
		postgres.NewPolygonRepo(db),
		postgres.NewMarkerRepo(db),
		cache, events,
		usecases.PolygonOptions{
			Tolerance:       cfg.Geometry.SimplifyTolerance,
			MaxBulkItems:    cfg.Geometry.MaxBulkItems,
			BulkConcurrency: cfg.Geometry.BulkConcurrency,
		},
	)

	// Load manifest
	manifestPath := "manifest.json"
	if len(os.Args) > 1 {
		manifestPath = os.Args[1]
	}

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		slog.Error("read manifest", "error", err)
		os.Exit(1)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		slog.Error("parse manifest", "error", err)
		os.Exit(1)
	}

	slog.Info("PartyMap importer", "layers", len(manifest.Layers), "source", manifest.Source)

	// Filter layers (optional CLI arg: name list)
	nameFilter := map[string]bool{}
	if len(os.Args) > 2 {
		for _, s := range strings.Split(os.Args[2], ",") {
			nameFilter[strings.TrimSpace(s)] = true
		}
	}

	client := &http.Client{Timeout: 120 * time.Second}

	var wg sync.WaitGroup
	sem := make(chan struct{}, 4) // max 4 concurrent layers

	for _, layer := range manifest.Layers {
		if len(nameFilter) > 0 && !nameFilter[layer.Name] {
			continue
		}

		wg.Add(1)
		go func(l LayerEntry) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := importLayer(ctx, svc, client, l, cfg.Geometry.MaxBulkItems); err != nil {
				slog.Error("layer failed", "layer", l.Name, "error", err)
			}
		}(layer)
	}

	wg.Wait()
	slog.Info("import complete")
}

// ---------------------------------------------------------------------------
// Per-layer import
// ---------------------------------------------------------------------------

func importLayer(ctx context.Context, svc *usecases.PolygonService, client *http.Client, layer LayerEntry, batchSize int) error {
	log := slog.With("layer", layer.Name)

	body, err := readLayer(ctx, client, layer)
	if err != nil {
		return err
	}
	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return fmt.Errorf("parse geojson: %w", err)
	}

	inputs := featureInputs(fc, layer)
	log.Info("features read", "features", len(fc.Features), "polygons", len(inputs))

	created := 0
	for i, batch := range chunk(inputs, batchSize) {
		polys, err := svc.BulkCreate(ctx, batch)
		if err != nil {
			// Batches are all-or-nothing; keep going with the rest.
			log.Error("batch rejected", "batch", i, "error", err)
			continue
		}
		created += len(polys)
	}

	log.Info("done", "created", created)
	return nil
}

func readLayer(ctx context.Context, client *http.Client, layer LayerEntry) ([]byte, error) {
	if layer.File != "" {
		return os.ReadFile(layer.File)
	}
	if layer.URL == "" {
		return nil, fmt.Errorf("layer %s has neither url nor file", layer.Name)
	}

	slog.Info("downloading layer", "layer", layer.Name, "url", layer.URL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, layer.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, layer.URL)
	}
	return io.ReadAll(resp.Body)
}
