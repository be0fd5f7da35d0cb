package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"

	"github.com/partymap/partymap/internal/core/domain"
	"github.com/partymap/partymap/internal/pkg/geospatial"
)

// jsonScalar passes structured values (geometry, properties) through as
// plain JSON. Literal input is not supported.
var jsonScalar = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "JSON",
	Description: "Arbitrary JSON value",
	Serialize:   func(value any) any { return value },
	ParseValue:  func(value any) any { return value },
	ParseLiteral: func(valueAST ast.Value) any {
		return nil
	},
})

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	styleType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Style",
		Fields: graphql.Fields{
			"fillColor":     &graphql.Field{Type: graphql.String},
			"fillOpacity":   &graphql.Field{Type: graphql.Float},
			"strokeColor":   &graphql.Field{Type: graphql.String},
			"strokeWidth":   &graphql.Field{Type: graphql.Float},
			"strokeOpacity": &graphql.Field{Type: graphql.Float},
		},
	})

	extrusionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Extrusion",
		Fields: graphql.Fields{
			"height":  &graphql.Field{Type: graphql.Float},
			"base":    &graphql.Field{Type: graphql.Float},
			"color":   &graphql.Field{Type: graphql.String},
			"opacity": &graphql.Field{Type: graphql.Float},
		},
	})

	markerSummaryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "MarkerSummary",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"placeName":  &graphql.Field{Type: graphql.String},
			"markerType": &graphql.Field{Type: graphql.String},
			"latitude":   &graphql.Field{Type: graphql.Float},
			"longitude":  &graphql.Field{Type: graphql.Float},
		},
	})

	polygonType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Polygon",
		Fields: graphql.Fields{
			"id":              &graphql.Field{Type: graphql.String},
			"name":            &graphql.Field{Type: graphql.String},
			"description":     &graphql.Field{Type: graphql.String},
			"polygonType":     &graphql.Field{Type: graphql.String},
			"geometry":        &graphql.Field{Type: jsonScalar},
			"style":           &graphql.Field{Type: styleType},
			"extrusion":       &graphql.Field{Type: extrusionType},
			"marker":          &graphql.Field{Type: markerSummaryType},
			"properties":      &graphql.Field{Type: jsonScalar},
			"isVisible":       &graphql.Field{Type: graphql.Boolean},
			"isInteractive":   &graphql.Field{Type: graphql.Boolean},
			"minZoom":         &graphql.Field{Type: graphql.Float},
			"maxZoom":         &graphql.Field{Type: graphql.Float},
			"area":            &graphql.Field{Type: graphql.Float},
			"coordinateCount": &graphql.Field{Type: graphql.Int},
			"createdAt":       &graphql.Field{Type: graphql.DateTime},
			"updatedAt":       &graphql.Field{Type: graphql.DateTime},
		},
	})

	ticketType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Ticket",
		Fields: graphql.Fields{
			"hour":             &graphql.Field{Type: graphql.String},
			"availableTickets": &graphql.Field{Type: graphql.Int},
		},
	})

	markerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Marker",
		Fields: graphql.Fields{
			"id":               &graphql.Field{Type: graphql.String},
			"markerType":       &graphql.Field{Type: graphql.String},
			"placeName":        &graphql.Field{Type: graphql.String},
			"latitude":         &graphql.Field{Type: graphql.Float},
			"longitude":        &graphql.Field{Type: graphql.Float},
			"partyTime":        &graphql.Field{Type: graphql.String},
			"markerLabel":      &graphql.Field{Type: graphql.String},
			"website":          &graphql.Field{Type: graphql.String},
			"partyDescription": &graphql.Field{Type: graphql.String},
			"partyIcon":        &graphql.Field{Type: graphql.String},
			"placeImage":       &graphql.Field{Type: graphql.String},
			"partyImage":       &graphql.Field{Type: graphql.String},
			"tickets":          &graphql.Field{Type: graphql.NewList(ticketType)},
			"createdAt":        &graphql.Field{Type: graphql.DateTime},
			"updatedAt":        &graphql.Field{Type: graphql.DateTime},
		},
	})

	pageMetaType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PageMeta",
		Fields: graphql.Fields{
			"currentPage":  &graphql.Field{Type: graphql.Int},
			"totalRecords": &graphql.Field{Type: graphql.Int},
			"totalPages":   &graphql.Field{Type: graphql.Int},
			"limit":        &graphql.Field{Type: graphql.Int},
		},
	})

	page := func(name string, item *graphql.Object) *graphql.Object {
		return graphql.NewObject(graphql.ObjectConfig{
			Name: name,
			Fields: graphql.Fields{
				"data": &graphql.Field{Type: graphql.NewList(item)},
				"meta": &graphql.Field{Type: pageMetaType},
			},
		})
	}

	pageArgs := func(extra graphql.FieldConfigArgument) graphql.FieldConfigArgument {
		extra["page"] = &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1}
		extra["limit"] = &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: defaultPageLimit}
		extra["search"] = &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""}
		return extra
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"polygons": &graphql.Field{
				Type:        page("PolygonPage", polygonType),
				Description: "Page through polygons, newest first",
				Args: pageArgs(graphql.FieldConfigArgument{
					"type":    &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"visible": &graphql.ArgumentConfig{Type: graphql.Boolean},
				}),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					filter := domain.PolygonFilter{
						Search: p.Args["search"].(string),
						Type:   domain.PolygonType(p.Args["type"].(string)),
						Page:   p.Args["page"].(int),
						Limit:  p.Args["limit"].(int),
					}
					if v, ok := p.Args["visible"].(bool); ok {
						filter.Visible = &v
					}
					filter.Page, filter.Limit = clampPage(filter.Page, filter.Limit)

					polys, total, err := deps.Polygons.List(p.Context, filter)
					if err != nil {
						return nil, err
					}
					return PaginatedResponse{Data: polys, Meta: newPageMeta(filter.Page, filter.Limit, total)}, nil
				},
			},
			"polygon": &graphql.Field{
				Type:        polygonType,
				Description: "Get a polygon by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return deps.Polygons.Get(p.Context, p.Args["id"].(string))
				},
			},
			"polygonsWithinBounds": &graphql.Field{
				Type:        graphql.NewList(polygonType),
				Description: "Polygons lying entirely inside a bounding box",
				Args: graphql.FieldConfigArgument{
					"north": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"south": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"east":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"west":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					b := geospatial.NewBounds(
						p.Args["north"].(float64), p.Args["south"].(float64),
						p.Args["east"].(float64), p.Args["west"].(float64),
					)
					return deps.Polygons.WithinBounds(p.Context, b)
				},
			},
			"markers": &graphql.Field{
				Type:        page("MarkerPage", markerType),
				Description: "Page through markers, newest first",
				Args:        pageArgs(graphql.FieldConfigArgument{}),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					pg, limit := clampPage(p.Args["page"].(int), p.Args["limit"].(int))
					markers, total, err := deps.Markers.List(p.Context, domain.MarkerFilter{
						Search: p.Args["search"].(string),
						Page:   pg,
						Limit:  limit,
					})
					if err != nil {
						return nil, err
					}
					return PaginatedResponse{Data: markers, Meta: newPageMeta(pg, limit, total)}, nil
				},
			},
			"marker": &graphql.Field{
				Type:        markerType,
				Description: "Get a marker by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return deps.Markers.Get(p.Context, p.Args["id"].(string))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string         `json:"query"`
		OperationName string         `json:"operationName"`
		Variables     map[string]any `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
