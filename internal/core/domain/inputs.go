package domain

import (
	"bytes"
	"encoding/json"

	"github.com/partymap/partymap/internal/pkg/geospatial"
)

// Defaults applied to new polygons when a field is omitted.
const (
	DefaultPolygonType   = PolygonBuilding
	DefaultFillColor     = "#0000FF"
	DefaultFillOpacity   = 0.8
	DefaultStrokeColor   = "#000000"
	DefaultStrokeWidth   = 1.0
	DefaultStrokeOpacity = 1.0
	DefaultHeight        = 50.0
	DefaultBase          = 0.0
	DefaultExtrudeColor  = "#0000FF"
	DefaultExtrudeAlpha  = 0.8
	DefaultMinZoom       = 0.0
	DefaultMaxZoom       = 24.0
)

// DefaultStyle returns the style given to polygons created without one.
func DefaultStyle() Style {
	return Style{
		FillColor:     DefaultFillColor,
		FillOpacity:   DefaultFillOpacity,
		StrokeColor:   DefaultStrokeColor,
		StrokeWidth:   DefaultStrokeWidth,
		StrokeOpacity: DefaultStrokeOpacity,
	}
}

// DefaultExtrusion returns the extrusion given to polygons created without one.
func DefaultExtrusion() Extrusion {
	return Extrusion{
		Height:  DefaultHeight,
		Base:    DefaultBase,
		Color:   DefaultExtrudeColor,
		Opacity: DefaultExtrudeAlpha,
	}
}

// StylePatch carries the style fields a caller supplied.
type StylePatch struct {
	FillColor     *string  `json:"fillColor"`
	FillOpacity   *float64 `json:"fillOpacity"`
	StrokeColor   *string  `json:"strokeColor"`
	StrokeWidth   *float64 `json:"strokeWidth"`
	StrokeOpacity *float64 `json:"strokeOpacity"`
}

// ApplyTo overwrites the supplied fields of s.
func (p *StylePatch) ApplyTo(s *Style) {
	if p == nil {
		return
	}
	if p.FillColor != nil {
		s.FillColor = *p.FillColor
	}
	if p.FillOpacity != nil {
		s.FillOpacity = *p.FillOpacity
	}
	if p.StrokeColor != nil {
		s.StrokeColor = *p.StrokeColor
	}
	if p.StrokeWidth != nil {
		s.StrokeWidth = *p.StrokeWidth
	}
	if p.StrokeOpacity != nil {
		s.StrokeOpacity = *p.StrokeOpacity
	}
}

// ExtrusionPatch carries the extrusion fields a caller supplied.
type ExtrusionPatch struct {
	Height  *float64 `json:"height"`
	Base    *float64 `json:"base"`
	Color   *string  `json:"color"`
	Opacity *float64 `json:"opacity"`
}

// ApplyTo overwrites the supplied fields of e.
func (p *ExtrusionPatch) ApplyTo(e *Extrusion) {
	if p == nil {
		return
	}
	if p.Height != nil {
		e.Height = *p.Height
	}
	if p.Base != nil {
		e.Base = *p.Base
	}
	if p.Color != nil {
		e.Color = *p.Color
	}
	if p.Opacity != nil {
		e.Opacity = *p.Opacity
	}
}

// PolygonInput is the create payload for a polygon.
type PolygonInput struct {
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	PolygonType   PolygonType       `json:"polygonType"`
	Geometry      *geospatial.Input `json:"geometry"`
	Style         *StylePatch       `json:"style"`
	Extrusion     *ExtrusionPatch   `json:"extrusion"`
	Marker        *string           `json:"marker"`
	Properties    Properties        `json:"properties"`
	IsVisible     *bool             `json:"isVisible"`
	IsInteractive *bool             `json:"isInteractive"`
	MinZoom       *float64          `json:"minZoom"`
	MaxZoom       *float64          `json:"maxZoom"`
}

// NewPolygon builds a polygon from the input with defaults for every
// omitted field. Geometry is left empty; it is normalized separately.
func NewPolygon(in PolygonInput) Polygon {
	p := Polygon{
		Name:          in.Name,
		Description:   in.Description,
		PolygonType:   in.PolygonType,
		Style:         DefaultStyle(),
		Extrusion:     DefaultExtrusion(),
		Properties:    in.Properties,
		IsVisible:     true,
		IsInteractive: true,
		MinZoom:       DefaultMinZoom,
		MaxZoom:       DefaultMaxZoom,
	}
	if p.PolygonType == "" {
		p.PolygonType = DefaultPolygonType
	}
	if p.Properties == nil {
		p.Properties = Properties{}
	}
	if in.Marker != nil && *in.Marker != "" {
		id := *in.Marker
		p.MarkerID = &id
	}
	in.Style.ApplyTo(&p.Style)
	in.Extrusion.ApplyTo(&p.Extrusion)
	if in.IsVisible != nil {
		p.IsVisible = *in.IsVisible
	}
	if in.IsInteractive != nil {
		p.IsInteractive = *in.IsInteractive
	}
	if in.MinZoom != nil {
		p.MinZoom = *in.MinZoom
	}
	if in.MaxZoom != nil {
		p.MaxZoom = *in.MaxZoom
	}
	return p
}

// NullableID distinguishes an absent JSON member from an explicit null.
type NullableID struct {
	Set bool
	ID  *string
}

// UnmarshalJSON is only called when the member is present.
func (n *NullableID) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.ID = nil
		return nil
	}
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	if id == "" {
		n.ID = nil
		return nil
	}
	n.ID = &id
	return nil
}

// MarshalJSON writes the id or null.
func (n NullableID) MarshalJSON() ([]byte, error) {
	if n.ID == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.ID)
}

// PolygonPatch is a partial update. Nil fields are left unchanged; a
// marker member set to null detaches the marker.
type PolygonPatch struct {
	Name          *string           `json:"name"`
	Description   *string           `json:"description"`
	PolygonType   *PolygonType      `json:"polygonType"`
	Geometry      *geospatial.Input `json:"geometry"`
	Style         *StylePatch       `json:"style"`
	Extrusion     *ExtrusionPatch   `json:"extrusion"`
	Marker        NullableID        `json:"marker"`
	Properties    Properties        `json:"properties"`
	IsVisible     *bool             `json:"isVisible"`
	IsInteractive *bool             `json:"isInteractive"`
	MinZoom       *float64          `json:"minZoom"`
	MaxZoom       *float64          `json:"maxZoom"`
}

// Empty reports whether the patch changes nothing.
func (p PolygonPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.PolygonType == nil &&
		p.Geometry == nil && p.Style == nil && p.Extrusion == nil &&
		!p.Marker.Set && p.Properties == nil && p.IsVisible == nil &&
		p.IsInteractive == nil && p.MinZoom == nil && p.MaxZoom == nil
}

// ApplyTo merges every non-geometry field of the patch into poly.
// Geometry is normalized and validated by the caller before it is set.
func (p PolygonPatch) ApplyTo(poly *Polygon) {
	if p.Name != nil {
		poly.Name = *p.Name
	}
	if p.Description != nil {
		poly.Description = *p.Description
	}
	if p.PolygonType != nil {
		poly.PolygonType = *p.PolygonType
	}
	p.Style.ApplyTo(&poly.Style)
	p.Extrusion.ApplyTo(&poly.Extrusion)
	if p.Marker.Set {
		if p.Marker.ID == nil {
			poly.MarkerID = nil
		} else {
			id := *p.Marker.ID
			poly.MarkerID = &id
		}
		poly.Marker = nil
	}
	if p.Properties != nil {
		poly.Properties = p.Properties
	}
	if p.IsVisible != nil {
		poly.IsVisible = *p.IsVisible
	}
	if p.IsInteractive != nil {
		poly.IsInteractive = *p.IsInteractive
	}
	if p.MinZoom != nil {
		poly.MinZoom = *p.MinZoom
	}
	if p.MaxZoom != nil {
		poly.MaxZoom = *p.MaxZoom
	}
}

// MarkerInput is the create payload for a marker.
type MarkerInput struct {
	MarkerType       string    `json:"markerType"`
	PlaceName        string    `json:"placeName"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	PartyTime        PartyTime `json:"partyTime"`
	MarkerLabel      string    `json:"markerLabel"`
	Website          string    `json:"website"`
	PartyDescription string    `json:"partyDescription"`
	PartyIcon        string    `json:"partyIcon"`
	PlaceImage       string    `json:"placeImage"`
	PartyImage       string    `json:"partyImage"`
	Tickets          []Ticket  `json:"tickets"`
}

// NewMarker builds a marker from the input.
func NewMarker(in MarkerInput) Marker {
	tickets := in.Tickets
	if tickets == nil {
		tickets = []Ticket{}
	}
	return Marker{
		MarkerType:       in.MarkerType,
		PlaceName:        in.PlaceName,
		Latitude:         in.Latitude,
		Longitude:        in.Longitude,
		PartyTime:        in.PartyTime,
		MarkerLabel:      in.MarkerLabel,
		Website:          in.Website,
		PartyDescription: in.PartyDescription,
		PartyIcon:        in.PartyIcon,
		PlaceImage:       in.PlaceImage,
		PartyImage:       in.PartyImage,
		Tickets:          tickets,
	}
}
