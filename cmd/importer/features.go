package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/partymap/partymap/internal/core/domain"
	"github.com/partymap/partymap/internal/pkg/geospatial"
)

// Reserved feature properties that map onto polygon fields rather than the
// free-form property map.
var reserved = map[string]bool{
	"name": true, "description": true, "polygonType": true,
}

// featureInputs converts every polygonal feature in fc into a create
// payload. MultiPolygons are split into one record per member; other
// geometry types are skipped.
func featureInputs(fc *geojson.FeatureCollection, layer LayerEntry) []domain.PolygonInput {
	var out []domain.PolygonInput
	for i, f := range fc.Features {
		var polys []orb.Polygon
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			polys = []orb.Polygon{g}
		case orb.MultiPolygon:
			polys = g
		default:
			slog.Debug("skipping non-polygon feature", "layer", layer.Name, "index", i, "type", fmt.Sprintf("%T", f.Geometry))
			continue
		}

		base := featureBase(f, layer, i)
		for j, p := range polys {
			in := base
			if len(polys) > 1 {
				in.Name = fmt.Sprintf("%s (%d)", base.Name, j+1)
			}
			geom := geospatial.CanonicalInput(geospatial.FromOrb(p))
			in.Geometry = &geom
			out = append(out, in)
		}
	}
	return out
}

func featureBase(f *geojson.Feature, layer LayerEntry, index int) domain.PolygonInput {
	in := domain.PolygonInput{
		Name:        f.Properties.MustString("name", ""),
		Description: f.Properties.MustString("description", ""),
		PolygonType: domain.PolygonType(f.Properties.MustString("polygonType", layer.PolygonType)),
	}
	if strings.TrimSpace(in.Name) == "" {
		in.Name = fmt.Sprintf("%s #%d", layer.Name, index+1)
	}
	if layer.MarkerID != "" {
		id := layer.MarkerID
		in.Marker = &id
	}

	scalars := make(map[string]any, len(f.Properties))
	for k, v := range f.Properties {
		if reserved[k] {
			continue
		}
		switch v.(type) {
		case nil, string, bool, float64:
			scalars[k] = v
		}
	}
	props, err := domain.PropertiesFromMap(scalars)
	if err != nil {
		props = domain.Properties{}
	}
	in.Properties = props
	return in
}

// chunk splits inputs into batches of at most size items.
func chunk(inputs []domain.PolygonInput, size int) [][]domain.PolygonInput {
	if size <= 0 {
		size = len(inputs)
	}
	var out [][]domain.PolygonInput
	for len(inputs) > 0 {
		n := min(size, len(inputs))
		out = append(out, inputs[:n])
		inputs = inputs[n:]
	}
	return out
}
