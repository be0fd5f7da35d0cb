package usecases

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/partymap/partymap/internal/core/ports"
	"github.com/partymap/partymap/internal/pkg/logging"
	"github.com/partymap/partymap/internal/pkg/metrics"
)

const (
	generationKey = "polygons:gen"
	generationTTL = 7 * 24 * 60 * 60

	polygonTTL = 600
	exportTTL  = 300
)

// polygonCache scopes every polygon key under a generation so that any
// write invalidates all cached reads at once.
type polygonCache struct {
	cache ports.CacheService
}

func (c polygonCache) enabled() bool { return c.cache != nil }

func (c polygonCache) generation(ctx context.Context) string {
	data, err := c.cache.Get(ctx, generationKey)
	if err != nil || len(data) == 0 {
		return "0"
	}
	return string(data)
}

func (c polygonCache) key(ctx context.Context, parts ...string) string {
	return "polygons:" + c.generation(ctx) + ":" + strings.Join(parts, ":")
}

// getJSON decodes a cached value into v and reports whether it was found.
func (c polygonCache) getJSON(ctx context.Context, op, key string, v any) bool {
	data, err := c.cache.Get(ctx, key)
	if err != nil {
		metrics.CacheMisses.WithLabelValues(op).Inc()
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		metrics.CacheMisses.WithLabelValues(op).Inc()
		return false
	}
	metrics.CacheHits.WithLabelValues(op).Inc()
	return true
}

func (c polygonCache) getRaw(ctx context.Context, op, key string) ([]byte, bool) {
	data, err := c.cache.Get(ctx, key)
	if err != nil {
		metrics.CacheMisses.WithLabelValues(op).Inc()
		return nil, false
	}
	metrics.CacheHits.WithLabelValues(op).Inc()
	return data, true
}

func (c polygonCache) setJSON(ctx context.Context, key string, v any, ttl int) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.setRaw(ctx, key, data, ttl)
}

func (c polygonCache) setRaw(ctx context.Context, key string, data []byte, ttl int) {
	if err := c.cache.Set(ctx, key, data, ttl); err != nil {
		logging.FromContext(ctx).Warn("cache set failed", "key", key, "error", err)
	}
}

// invalidate moves every polygon read to a fresh generation.
func (c polygonCache) invalidate(ctx context.Context) {
	if c.cache == nil {
		return
	}
	gen := strconv.FormatInt(time.Now().UnixNano(), 36)
	if err := c.cache.Set(ctx, generationKey, []byte(gen), generationTTL); err != nil {
		logging.FromContext(ctx).Warn("cache invalidation failed", "error", err)
	}
}
