package domain

import (
	"time"

	"github.com/partymap/partymap/internal/pkg/geospatial"
)

// PolygonType classifies what a polygon outlines on the map.
type PolygonType string

const (
	PolygonBuilding PolygonType = "building"
	PolygonArea     PolygonType = "area"
	PolygonZone     PolygonType = "zone"
	PolygonBoundary PolygonType = "boundary"
	PolygonVenue    PolygonType = "venue"
	PolygonPark     PolygonType = "park"
	PolygonParking  PolygonType = "parking"
	PolygonOther    PolygonType = "other"
)

// PolygonTypes lists every accepted polygon type.
var PolygonTypes = []PolygonType{
	PolygonBuilding, PolygonArea, PolygonZone, PolygonBoundary,
	PolygonVenue, PolygonPark, PolygonParking, PolygonOther,
}

// Valid reports whether t is one of PolygonTypes.
func (t PolygonType) Valid() bool {
	for _, v := range PolygonTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Style controls how a polygon is filled and outlined.
type Style struct {
	FillColor     string  `json:"fillColor" validate:"hexcolor36"`
	FillOpacity   float64 `json:"fillOpacity" validate:"gte=0,lte=1"`
	StrokeColor   string  `json:"strokeColor" validate:"hexcolor36"`
	StrokeWidth   float64 `json:"strokeWidth" validate:"gte=0,lte=10"`
	StrokeOpacity float64 `json:"strokeOpacity" validate:"gte=0,lte=1"`
}

// Extrusion controls the 3D rendering of a polygon.
type Extrusion struct {
	Height  float64 `json:"height" validate:"gte=0,lte=1000"`
	Base    float64 `json:"base" validate:"gte=0"`
	Color   string  `json:"color" validate:"hexcolor36"`
	Opacity float64 `json:"opacity" validate:"gte=0,lte=1"`
}

// MarkerSummary is the subset of a marker embedded in polygon reads.
type MarkerSummary struct {
	ID         string  `json:"id"`
	PlaceName  string  `json:"placeName"`
	MarkerType string  `json:"markerType"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
}

// Polygon is a named geographic area with rendering hints.
type Polygon struct {
	ID            string              `json:"id"`
	Name          string              `json:"name" validate:"required,notblank"`
	Description   string              `json:"description,omitempty"`
	PolygonType   PolygonType         `json:"polygonType" validate:"polygontype"`
	Geometry      geospatial.Geometry `json:"geometry"`
	Style         Style               `json:"style"`
	Extrusion     Extrusion           `json:"extrusion"`
	MarkerID      *string             `json:"-"`
	Marker        *MarkerSummary      `json:"marker"`
	Properties    Properties          `json:"properties"`
	IsVisible     bool                `json:"isVisible"`
	IsInteractive bool                `json:"isInteractive"`
	MinZoom       float64             `json:"minZoom" validate:"gte=0,lte=24"`
	MaxZoom       float64             `json:"maxZoom" validate:"gte=0,lte=24"`
	Area          *float64            `json:"area,omitempty"`  // computed field
	PointCount    int                 `json:"coordinateCount"` // computed field
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

// Decorate fills the computed fields from the geometry.
func (p *Polygon) Decorate() {
	area := p.Geometry.Coordinates.Area()
	p.Area = &area
	p.PointCount = p.Geometry.Coordinates.PointCount()
}

// PartyTime is the part of the day a marker's event happens in.
type PartyTime string

const (
	PartyDay     PartyTime = "day"
	PartyNoon    PartyTime = "noon"
	PartyEvening PartyTime = "evening"
	PartyNight   PartyTime = "night"
)

// Ticket is an availability slot for a marker's event.
type Ticket struct {
	Hour             string `json:"hour" validate:"required"`
	AvailableTickets int    `json:"availableTickets" validate:"gte=0"`
}

// Marker is a point of interest that polygons may reference.
type Marker struct {
	ID               string    `json:"id"`
	MarkerType       string    `json:"markerType" validate:"required,notblank"`
	PlaceName        string    `json:"placeName" validate:"required,notblank"`
	Latitude         float64   `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude        float64   `json:"longitude" validate:"gte=-180,lte=180"`
	PartyTime        PartyTime `json:"partyTime" validate:"oneof=day noon evening night"`
	MarkerLabel      string    `json:"markerLabel" validate:"required,notblank"`
	Website          string    `json:"website,omitempty" validate:"omitempty,url"`
	PartyDescription string    `json:"partyDescription,omitempty"`
	PartyIcon        string    `json:"partyIcon,omitempty"`
	PlaceImage       string    `json:"placeImage,omitempty"`
	PartyImage       string    `json:"partyImage,omitempty"`
	Tickets          []Ticket  `json:"tickets" validate:"dive"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Summary returns the embedded form of the marker.
func (m *Marker) Summary() *MarkerSummary {
	return &MarkerSummary{
		ID:         m.ID,
		PlaceName:  m.PlaceName,
		MarkerType: m.MarkerType,
		Latitude:   m.Latitude,
		Longitude:  m.Longitude,
	}
}

// ImageKeys returns the non-empty object-storage keys held by the marker.
func (m *Marker) ImageKeys() []string {
	var keys []string
	for _, k := range []string{m.PartyIcon, m.PlaceImage, m.PartyImage} {
		if k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// PolygonFilter narrows polygon listings.
type PolygonFilter struct {
	Search  string
	Type    PolygonType
	Visible *bool
	Page    int
	Limit   int
}

// Offset returns the row offset for the filter's page.
func (f PolygonFilter) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// MarkerFilter narrows marker listings.
type MarkerFilter struct {
	Search string
	Page   int
	Limit  int
}

// Offset returns the row offset for the filter's page.
func (f MarkerFilter) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// EventAction is the kind of change an event reports.
type EventAction string

const (
	ActionCreated  EventAction = "created"
	ActionUpdated  EventAction = "updated"
	ActionDeleted  EventAction = "deleted"
	ActionDetached EventAction = "detached"
)

// PolygonEvent announces a change to one or more polygons.
type PolygonEvent struct {
	Action     EventAction `json:"action"`
	PolygonIDs []string    `json:"polygonIds"`
	MarkerID   string      `json:"markerId,omitempty"`
	Count      int         `json:"count"`
	OccurredAt time.Time   `json:"occurredAt"`
}

// MarkerEvent announces a change to a marker.
type MarkerEvent struct {
	Action     EventAction `json:"action"`
	MarkerID   string      `json:"markerId"`
	PlaceName  string      `json:"placeName,omitempty"`
	OccurredAt time.Time   `json:"occurredAt"`
}
