package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

const readyTimeout = 3 * time.Second

// Version is reported by /v1/health; release builds set it with -ldflags.
var Version = "dev"

// probe is one backend checked by /v1/ready. A nil check means the backend
// is not configured.
type probe struct {
	name     string
	required bool
	check    func(ctx context.Context) error
}

var errDisconnected = errors.New("disconnected")

func readinessProbes(deps *Dependencies) []probe {
	probes := []probe{{name: "database", required: true}}
	if deps.DB != nil {
		probes[0].check = deps.DB.Ping
	}

	nats := probe{name: "nats"}
	if deps.NATS != nil {
		nats.check = func(context.Context) error {
			if !deps.NATS.IsConnected() {
				return errDisconnected
			}
			return nil
		}
	}

	cache := probe{name: "cache"}
	if deps.Cache != nil {
		cache.check = deps.Cache.Ping
	}

	return append(probes, nats, cache)
}

// HealthHandler is the liveness check; it never touches a backend.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).Round(time.Second).String(),
			"version": Version,
		})
	}
}

// ReadyHandler runs every probe concurrently. Only the database is required;
// a missing NATS connection or cache degrades the service without taking it
// out of rotation.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	probes := readinessProbes(deps)

	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), readyTimeout)
		defer cancel()

		results := make([]string, len(probes))
		var g errgroup.Group
		for i, p := range probes {
			i, p := i, p
			g.Go(func() error {
				if p.check == nil {
					results[i] = "not configured"
				} else if err := p.check(ctx); err != nil {
					results[i] = "error: " + err.Error()
				} else {
					results[i] = "ok"
				}
				return nil
			})
		}
		_ = g.Wait()

		checks := make(map[string]string, len(probes))
		ready := true
		for i, p := range probes {
			checks[p.name] = results[i]
			if p.required && results[i] != "ok" {
				ready = false
			}
		}

		if !ready {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "not ready",
				"checks": checks,
			})
		}
		return c.JSON(fiber.Map{"status": "ready", "checks": checks})
	}
}
