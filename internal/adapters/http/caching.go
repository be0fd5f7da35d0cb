package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// cacheRule maps a path to a Cache-Control value. The first match wins.
type cacheRule struct {
	match   func(path string) bool
	control string
}

func exact(p string) func(string) bool    { return func(s string) bool { return s == p } }
func prefix(p string) func(string) bool   { return func(s string) bool { return strings.HasPrefix(s, p) } }
func suffix(sfx string) func(string) bool { return func(s string) bool { return strings.HasSuffix(s, sfx) } }

// Map data is edited live, so API reads are revalidated on every use and
// rely on ETags. The layer export and simplified shapes tolerate a short
// delay.
var cacheRules = []cacheRule{
	{exact("/v1/health"), "no-cache"},
	{exact("/v1/ready"), "no-cache"},
	{exact("/metrics"), "no-cache"},
	{exact("/v1/polygons/geojson"), "public, max-age=60, must-revalidate"},
	{suffix("/simplified"), "public, max-age=300"},
	{prefix("/docs"), "public, max-age=3600"},
	{prefix("/v1/"), "public, max-age=0, must-revalidate"},
}

// CachingMiddleware sets a default Cache-Control on GET responses. Errors
// are never stored and handlers that set their own header keep it.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if c.Method() != fiber.MethodGet || len(c.Response().Header.Peek(fiber.HeaderCacheControl)) > 0 {
			return err
		}

		if err != nil || c.Response().StatusCode() >= fiber.StatusBadRequest {
			c.Set(fiber.HeaderCacheControl, "no-store")
			return err
		}

		path := c.Path()
		for _, r := range cacheRules {
			if r.match(path) {
				c.Set(fiber.HeaderCacheControl, r.control)
				break
			}
		}
		return err
	}
}
