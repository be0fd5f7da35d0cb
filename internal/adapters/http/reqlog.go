package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/partymap/partymap/internal/pkg/logging"
)

// RequestIDLogMiddleware tags the context logger with the request id and
// route so usecase and repository logs for a request can be correlated.
// It must run after requestid.New.
func RequestIDLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid, _ := c.Locals("requestid").(string)
		if rid == "" {
			rid = c.Get(fiber.HeaderXRequestID)
		}
		if rid != "" {
			c.SetUserContext(logging.With(c.UserContext(), "request_id", rid))
		}
		return c.Next()
	}
}
