package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/partymap/partymap/internal/core/domain"
	"github.com/partymap/partymap/internal/pkg/logging"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: invalid_geometry, not_found, internal_error, etc.
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

// errorKinds maps domain error kinds to a status and code, checked in order.
var errorKinds = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrInvalidGeometryFormat, fiber.StatusBadRequest, "invalid_geometry_format"},
	{domain.ErrInvalidGeometry, fiber.StatusBadRequest, "invalid_geometry"},
	{domain.ErrInvalidBoundsInput, fiber.StatusBadRequest, "invalid_bounds"},
	{domain.ErrInvalidGeometryInput, fiber.StatusBadRequest, "invalid_geometry_input"},
	{domain.ErrInvalidPolygon, fiber.StatusBadRequest, "invalid_polygon"},
	{domain.ErrInvalidMarker, fiber.StatusBadRequest, "invalid_marker"},
	{domain.ErrInvalidProperty, fiber.StatusBadRequest, "invalid_property"},
	{domain.ErrEmptySelection, fiber.StatusBadRequest, "empty_selection"},
	{domain.ErrBatchTooLarge, fiber.StatusBadRequest, "batch_too_large"},
	{domain.ErrAssociatedMarkerNotFound, fiber.StatusNotFound, "marker_not_found"},
	{domain.ErrRecordNotFound, fiber.StatusNotFound, "not_found"},
	{context.DeadlineExceeded, fiber.StatusGatewayTimeout, "timeout"},
}

// fail writes the response for a service error. Unknown errors are logged
// and reported without detail.
func fail(c *fiber.Ctx, err error) error {
	status, code, msg := classify(c, err)
	return newError(c, status, code, msg)
}

// partialError reports a batch write that stopped midway together with how
// many records it had already written.
type partialError struct {
	APIError
	UpdatedCount int64 `json:"updatedCount"`
}

// failPartial is fail for batch writes that changed some records.
func failPartial(c *fiber.Ctx, err error, updated int64) error {
	status, code, msg := classify(c, err)
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(partialError{
		APIError:     APIError{Status: status, Code: code, Message: msg, RequestID: reqID},
		UpdatedCount: updated,
	})
}

func classify(c *fiber.Ctx, err error) (int, string, string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.status, k.code, err.Error()
		}
	}
	logging.FromContext(c.UserContext()).Error("request failed",
		"method", c.Method(), "path", c.Path(), "error", err)
	return fiber.StatusInternalServerError, "internal_error", "internal server error"
}

// parseBody decodes the JSON body into out. Decode errors that carry a
// domain kind (bad property values, malformed geometry) keep it.
func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		for _, k := range errorKinds {
			if errors.Is(err, k.err) {
				return fail(c, err)
			}
		}
		return errBadRequest(c, "invalid request body: "+err.Error())
	}
	return nil
}
