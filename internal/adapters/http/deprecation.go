package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/partymap/partymap/internal/core/domain"
	"github.com/partymap/partymap/internal/pkg/geospatial"
)

// legacyGeometrySunset is when the outerRing/holes geometry shape stops
// being accepted.
var legacyGeometrySunset = time.Date(2027, time.June, 30, 0, 0, 0, 0, time.UTC)

// markLegacyGeometry adds Deprecation, Sunset, Link and Warning headers
// (RFC 8594, RFC 8288, RFC 7234) when any of the supplied geometries used
// the legacy shape. The request itself is still served.
func markLegacyGeometry(c *fiber.Ctx, inputs ...*geospatial.Input) {
	legacy := false
	for _, in := range inputs {
		if in != nil && in.IsLegacy() {
			legacy = true
			break
		}
	}
	if !legacy {
		return
	}

	c.Set("Deprecation", "true")
	c.Set("Sunset", legacyGeometrySunset.Format("Mon, 02 Jan 2006 15:04:05 GMT"))
	c.Set("Link", `</docs#/components/schemas/PolygonGeometry>; rel="deprecation"`)

	days := time.Until(legacyGeometrySunset).Hours() / 24
	c.Set("Warning", fmt.Sprintf(
		`299 - "geometry.outerRing/holes is deprecated, send geometry.coordinates; support ends in %.0f days"`, days))
}

func inputGeometries(inputs []domain.PolygonInput) []*geospatial.Input {
	out := make([]*geospatial.Input, len(inputs))
	for i := range inputs {
		out[i] = inputs[i].Geometry
	}
	return out
}
