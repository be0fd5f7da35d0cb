package http

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/paulmach/orb/geojson"

	"github.com/partymap/partymap/internal/core/domain"
	"github.com/partymap/partymap/internal/pkg/geospatial"
)

// ---------------------------------------------------------------------------
// Request bodies
// ---------------------------------------------------------------------------

type bulkCreateRequest struct {
	Polygons []domain.PolygonInput `json:"polygons"`
}

type idsRequest struct {
	IDs []string `json:"ids"`
}

type bulkUpdateRequest struct {
	IDs        []string            `json:"ids"`
	UpdateData domain.PolygonPatch `json:"updateData"`
}

type boundsRequest struct {
	Bounds geospatial.Bounds `json:"bounds"`
}

type intersectsRequest struct {
	Geometry json.RawMessage `json:"geometry"`
}

type associateRequest struct {
	MarkerID string `json:"markerId"`
}

// ---------------------------------------------------------------------------
// Query helpers
// ---------------------------------------------------------------------------

// boolQuery parses an optional boolean query parameter; absent or
// unparseable values yield nil.
func boolQuery(c *fiber.Ctx, key string) *bool {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

func polygonFilter(c *fiber.Ctx) domain.PolygonFilter {
	return domain.PolygonFilter{
		Search:  c.Query("search"),
		Type:    domain.PolygonType(c.Query("type")),
		Visible: boolQuery(c, "visible"),
	}
}

// ---------------------------------------------------------------------------
// Polygons
// ---------------------------------------------------------------------------

// CreatePolygonHandler creates a polygon from either geometry shape.
func CreatePolygonHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in domain.PolygonInput
		if err := parseBody(c, &in); err != nil {
			return err
		}

		p, err := deps.Polygons.Create(c.UserContext(), in)
		if err != nil {
			return fail(c, err)
		}

		markLegacyGeometry(c, in.Geometry)
		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

// ListPolygonsHandler returns a page of polygons, newest first.
func ListPolygonsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		filter := polygonFilter(c)
		filter.Page, filter.Limit = pageParams(c)

		polys, total, err := deps.Polygons.List(c.UserContext(), filter)
		if err != nil {
			return fail(c, err)
		}
		if polys == nil {
			polys = []domain.Polygon{}
		}

		meta := newPageMeta(filter.Page, filter.Limit, total)
		SetLinkHeaders(c, meta)
		return c.JSON(PaginatedResponse{Data: polys, Meta: meta})
	}
}

// ListAllPolygonsHandler returns every polygon matching type and visibility.
func ListAllPolygonsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		filter := polygonFilter(c)
		filter.Search = ""

		polys, err := deps.Polygons.ListAll(c.UserContext(), filter)
		if err != nil {
			return fail(c, err)
		}
		if polys == nil {
			polys = []domain.Polygon{}
		}
		return c.JSON(polys)
	}
}

// GeoJSONHandler exports polygons as a FeatureCollection. Only visible
// polygons are exported unless ?visible=false is given.
func GeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		data, err := deps.Polygons.ExportGeoJSON(c.UserContext(),
			domain.PolygonType(c.Query("type")), boolQuery(c, "visible"))
		if err != nil {
			return fail(c, err)
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		return c.Send(data)
	}
}

// BulkCreateHandler stores every polygon in the batch or none of them.
func BulkCreateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req bulkCreateRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}

		polys, err := deps.Polygons.BulkCreate(c.UserContext(), req.Polygons)
		if err != nil {
			return fail(c, err)
		}

		markLegacyGeometry(c, inputGeometries(req.Polygons)...)
		return c.Status(fiber.StatusCreated).JSON(polys)
	}
}

// BulkDeleteHandler deletes the listed polygons in one statement.
func BulkDeleteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req idsRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}

		n, err := deps.Polygons.BulkDelete(c.UserContext(), req.IDs)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{
			"deletedIds":   req.IDs,
			"deletedCount": n,
		})
	}
}

// BulkUpdateHandler applies one patch to every listed polygon.
func BulkUpdateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req bulkUpdateRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}

		n, err := deps.Polygons.BulkUpdate(c.UserContext(), req.IDs, req.UpdateData)
		if err != nil {
			if n > 0 {
				return failPartial(c, err, n)
			}
			return fail(c, err)
		}

		markLegacyGeometry(c, req.UpdateData.Geometry)
		return c.JSON(fiber.Map{"updatedCount": n})
	}
}

// WithinBoundsHandler returns polygons lying entirely inside a box.
func WithinBoundsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req boundsRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}

		polys, err := deps.Polygons.WithinBounds(c.UserContext(), req.Bounds)
		if err != nil {
			return fail(c, err)
		}
		if polys == nil {
			polys = []domain.Polygon{}
		}
		return c.JSON(polys)
	}
}

// IntersectsHandler returns polygons sharing a point with any GeoJSON geometry.
func IntersectsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req intersectsRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}

		var g *geojson.Geometry
		if len(req.Geometry) > 0 && string(req.Geometry) != "null" {
			var err error
			if g, err = geojson.UnmarshalGeometry(req.Geometry); err != nil {
				return fail(c, fmt.Errorf("%w: %v", domain.ErrInvalidGeometryInput, err))
			}
		}

		polys, err := deps.Polygons.Intersecting(c.UserContext(), g)
		if err != nil {
			return fail(c, err)
		}
		if polys == nil {
			polys = []domain.Polygon{}
		}
		return c.JSON(polys)
	}
}

// MarkerPolygonsHandler lists the polygons attached to a marker.
func MarkerPolygonsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		polys, err := deps.Polygons.ListByMarker(c.UserContext(), c.Params("markerId"))
		if err != nil {
			return fail(c, err)
		}
		if polys == nil {
			polys = []domain.Polygon{}
		}
		return c.JSON(polys)
	}
}

// DeleteAllPolygonsHandler removes every polygon.
func DeleteAllPolygonsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		n, err := deps.Polygons.DeleteAll(c.UserContext())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"deletedCount": n})
	}
}

// GetPolygonHandler returns a polygon with its computed area and point count.
func GetPolygonHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := deps.Polygons.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(p)
	}
}

// SimplifiedPolygonHandler returns a Douglas-Peucker reduced copy of a
// polygon. ?tolerance= overrides the configured default.
func SimplifiedPolygonHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var tolerance *float64
		if c.Query("tolerance") != "" {
			t := c.QueryFloat("tolerance", -1)
			if t < 0 {
				return errBadRequest(c, "tolerance must be a non-negative number")
			}
			tolerance = &t
		}

		p, err := deps.Polygons.Simplified(c.UserContext(), c.Params("id"), tolerance)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(p)
	}
}

// UpdatePolygonHandler applies a partial update.
func UpdatePolygonHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var patch domain.PolygonPatch
		if err := parseBody(c, &patch); err != nil {
			return err
		}

		p, err := deps.Polygons.Update(c.UserContext(), c.Params("id"), patch)
		if err != nil {
			return fail(c, err)
		}

		markLegacyGeometry(c, patch.Geometry)
		return c.JSON(p)
	}
}

// DeletePolygonHandler removes one polygon.
func DeletePolygonHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if err := deps.Polygons.Delete(c.UserContext(), id); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"deletedId": id})
	}
}

// AssociateMarkerHandler attaches a marker to a polygon.
func AssociateMarkerHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req associateRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}

		p, err := deps.Polygons.AssociateMarker(c.UserContext(), c.Params("id"), req.MarkerID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(p)
	}
}

// DissociateMarkerHandler clears a polygon's marker.
func DissociateMarkerHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := deps.Polygons.DissociateMarker(c.UserContext(), c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(p)
	}
}

// ---------------------------------------------------------------------------
// Markers
// ---------------------------------------------------------------------------

// CreateMarkerHandler creates a marker.
func CreateMarkerHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in domain.MarkerInput
		if err := parseBody(c, &in); err != nil {
			return err
		}

		m, err := deps.Markers.Create(c.UserContext(), in)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(m)
	}
}

// ListMarkersHandler returns a page of markers.
func ListMarkersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		filter := domain.MarkerFilter{Search: c.Query("search")}
		filter.Page, filter.Limit = pageParams(c)

		markers, total, err := deps.Markers.List(c.UserContext(), filter)
		if err != nil {
			return fail(c, err)
		}
		if markers == nil {
			markers = []domain.Marker{}
		}

		meta := newPageMeta(filter.Page, filter.Limit, total)
		SetLinkHeaders(c, meta)
		return c.JSON(PaginatedResponse{Data: markers, Meta: meta})
	}
}

// GetMarkerHandler returns a marker by ID.
func GetMarkerHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		m, err := deps.Markers.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(m)
	}
}

// DeleteMarkerHandler removes a marker and detaches its polygons.
func DeleteMarkerHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if err := deps.Markers.Delete(c.UserContext(), id); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"deletedId": id})
	}
}
