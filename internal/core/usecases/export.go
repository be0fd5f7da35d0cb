package usecases

import (
	"github.com/paulmach/orb/geojson"

	"github.com/partymap/partymap/internal/core/domain"
	"github.com/partymap/partymap/internal/pkg/geospatial"
)

func featureCollection(polys []domain.Polygon) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Features = make([]*geojson.Feature, 0, len(polys))
	for i := range polys {
		fc.Append(feature(&polys[i]))
	}
	return fc
}

// feature flattens the record's rendering fields into the feature
// properties. Free-form properties are written last and win on conflict.
func feature(p *domain.Polygon) *geojson.Feature {
	f := geojson.NewFeature(p.Geometry.Coordinates.Orb())
	f.ID = p.ID
	if bbox := geospatial.Envelope(p.Geometry.Coordinates).BBox(); bbox != nil {
		f.BBox = geojson.BBox(bbox)
	}

	var marker any
	if p.MarkerID != nil {
		marker = *p.MarkerID
	}

	props := geojson.Properties{
		"id":            p.ID,
		"name":          p.Name,
		"description":   p.Description,
		"polygonType":   string(p.PolygonType),
		"height":        p.Extrusion.Height,
		"color":         p.Extrusion.Color,
		"fillColor":     p.Style.FillColor,
		"fillOpacity":   p.Style.FillOpacity,
		"strokeColor":   p.Style.StrokeColor,
		"strokeWidth":   p.Style.StrokeWidth,
		"strokeOpacity": p.Style.StrokeOpacity,
		"opacity":       p.Extrusion.Opacity,
		"base":          p.Extrusion.Base,
		"isVisible":     p.IsVisible,
		"isInteractive": p.IsInteractive,
		"minZoom":       p.MinZoom,
		"maxZoom":       p.MaxZoom,
		"marker":        marker,
		"area":          p.Geometry.Coordinates.Area(),
		"perimeter":     p.Geometry.Coordinates.Perimeter(),
	}
	for k, v := range p.Properties {
		props[k] = v.Interface()
	}
	f.Properties = props
	return f
}
