package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/partymap/partymap/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// RouterOptions tunes middleware that differs between deployments and tests.
type RouterOptions struct {
	// RateLimit is the number of requests allowed per IP per minute; zero
	// disables the limiter.
	RateLimit int
	// SpecPath points at the OpenAPI document served under /docs.
	SpecPath string
}

// DefaultRouterOptions returns the production settings.
func DefaultRouterOptions() RouterOptions {
	return RouterOptions{RateLimit: 120, SpecPath: DefaultSpecPath}
}

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies, opts RouterOptions) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip). GeoJSON exports compress well.
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting per IP
	if opts.RateLimit > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        opts.RateLimit,
			Expiration: 1 * time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return newError(c, fiber.StatusTooManyRequests, "rate_limited",
					"too many requests, please try again later")
			},
		}))
	}

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	with := func(h fiber.Handler) fiber.Handler {
		return timeout.NewWithContext(h, requestTimeout)
	}

	// REST API v1. Fixed paths are registered before /polygons/:id.
	v1 := app.Group("/v1")
	v1.Post("/polygons", with(CreatePolygonHandler(deps)))
	v1.Get("/polygons", with(ListPolygonsHandler(deps)))
	v1.Delete("/polygons", with(DeleteAllPolygonsHandler(deps)))
	v1.Get("/polygons/all", with(ListAllPolygonsHandler(deps)))
	v1.Get("/polygons/geojson", with(GeoJSONHandler(deps)))
	v1.Post("/polygons/bulk", with(BulkCreateHandler(deps)))
	v1.Post("/polygons/delete-multiple", with(BulkDeleteHandler(deps)))
	v1.Put("/polygons/bulk-update", with(BulkUpdateHandler(deps)))
	v1.Post("/polygons/within-bounds", with(WithinBoundsHandler(deps)))
	v1.Post("/polygons/intersects", with(IntersectsHandler(deps)))
	v1.Get("/polygons/marker/:markerId", with(MarkerPolygonsHandler(deps)))
	v1.Get("/polygons/:id", with(GetPolygonHandler(deps)))
	v1.Get("/polygons/:id/simplified", with(SimplifiedPolygonHandler(deps)))
	v1.Put("/polygons/:id", with(UpdatePolygonHandler(deps)))
	v1.Delete("/polygons/:id", with(DeletePolygonHandler(deps)))
	v1.Post("/polygons/:id/associate-marker", with(AssociateMarkerHandler(deps)))
	v1.Delete("/polygons/:id/dissociate-marker", with(DissociateMarkerHandler(deps)))

	v1.Post("/markers", with(CreateMarkerHandler(deps)))
	v1.Get("/markers", with(ListMarkersHandler(deps)))
	v1.Get("/markers/:id", with(GetMarkerHandler(deps)))
	v1.Delete("/markers/:id", with(DeleteMarkerHandler(deps)))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app, opts.SpecPath)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.Events)))
}
