package geospatial

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// InputKind identifies which geometry shape a payload arrived in.
type InputKind int

const (
	KindUnknown InputKind = iota
	// KindCanonical is {"type":"Polygon","coordinates":[[[lng,lat],...],...]}.
	KindCanonical
	// KindLegacy is {"outerRing":{"coordinates":[{"longitude":..,"latitude":..}]},"holes":[...]}.
	KindLegacy
)

func (k InputKind) String() string {
	switch k {
	case KindCanonical:
		return "canonical"
	case KindLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// LegacyCoordinate is a named-field position from older clients.
type LegacyCoordinate struct {
	Longitude *float64 `json:"longitude"`
	Latitude  *float64 `json:"latitude"`
}

// LegacyRing is a ring of named-field positions.
type LegacyRing struct {
	Coordinates []LegacyCoordinate `json:"coordinates"`
}

// LegacyGeometry is the outerRing/holes payload shape.
type LegacyGeometry struct {
	OuterRing *LegacyRing `json:"outerRing"`
	Holes     []LegacyRing `json:"holes,omitempty"`
}

// Input is a geometry payload resolved to exactly one of the accepted
// shapes at decode time.
type Input struct {
	kind      InputKind
	canonical Rings
	legacy    LegacyGeometry
}

// CanonicalInput wraps rings that are already in canonical form.
func CanonicalInput(r Rings) Input {
	return Input{kind: KindCanonical, canonical: r}
}

// LegacyInput wraps a legacy outerRing/holes payload.
func LegacyInput(g LegacyGeometry) Input {
	return Input{kind: KindLegacy, legacy: g}
}

// Kind reports the resolved shape.
func (in Input) Kind() InputKind { return in.kind }

// IsLegacy reports whether the payload used the outerRing/holes shape.
func (in Input) IsLegacy() bool { return in.kind == KindLegacy }

// UnmarshalJSON sniffs the payload once: a coordinates member selects the
// canonical shape, an outerRing member the legacy one.
func (in *Input) UnmarshalJSON(data []byte) error {
	var probe struct {
		Type        *string         `json:"type"`
		Coordinates json.RawMessage `json:"coordinates"`
		OuterRing   json.RawMessage `json:"outerRing"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("%w: geometry must be a JSON object", ErrInvalidGeometryFormat)
	}

	switch {
	case present(probe.Coordinates):
		if probe.Type != nil && *probe.Type != TypePolygon {
			return fmt.Errorf("%w: unsupported geometry type %q", ErrInvalidGeometryFormat, *probe.Type)
		}
		var rings Rings
		if err := json.Unmarshal(probe.Coordinates, &rings); err != nil {
			return fmt.Errorf("%w: coordinates must be an array of rings of [longitude, latitude] numbers", ErrInvalidGeometryFormat)
		}
		*in = CanonicalInput(rings)
		return nil

	case present(probe.OuterRing):
		var legacy LegacyGeometry
		if err := json.Unmarshal(data, &legacy); err != nil {
			return fmt.Errorf("%w: outerRing and holes must contain {longitude, latitude} numbers", ErrInvalidGeometryFormat)
		}
		*in = LegacyInput(legacy)
		return nil
	}

	return fmt.Errorf("%w: geometry must provide either coordinates or outerRing", ErrInvalidGeometryFormat)
}

// MarshalJSON writes the payload back in the shape it arrived in.
func (in Input) MarshalJSON() ([]byte, error) {
	switch in.kind {
	case KindCanonical:
		return json.Marshal(NewGeometry(in.canonical))
	case KindLegacy:
		return json.Marshal(in.legacy)
	default:
		return []byte("null"), nil
	}
}

func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// Normalize converts an accepted payload into canonical rings. Canonical
// input passes through untouched; legacy input is mapped position by
// position, outer ring first and holes in their original order.
func Normalize(in Input) (Rings, error) {
	switch in.kind {
	case KindCanonical:
		return in.canonical, nil
	case KindLegacy:
		return normalizeLegacy(in.legacy)
	default:
		return nil, fmt.Errorf("%w: geometry is required", ErrInvalidGeometryFormat)
	}
}

// NormalizeJSON decodes and normalizes a raw geometry payload.
func NormalizeJSON(data []byte) (Rings, error) {
	var in Input
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, err
	}
	return Normalize(in)
}

func normalizeLegacy(g LegacyGeometry) (Rings, error) {
	if g.OuterRing == nil || g.OuterRing.Coordinates == nil {
		return nil, fmt.Errorf("%w: outerRing.coordinates is required", ErrInvalidGeometryFormat)
	}

	rings := make(Rings, 0, 1+len(g.Holes))
	outer, err := legacyRing(g.OuterRing.Coordinates, "outerRing")
	if err != nil {
		return nil, err
	}
	rings = append(rings, outer)

	for i, h := range g.Holes {
		name := fmt.Sprintf("hole %d", i+1)
		if h.Coordinates == nil {
			return nil, fmt.Errorf("%w: %s coordinates is required", ErrInvalidGeometryFormat, name)
		}
		ring, err := legacyRing(h.Coordinates, name)
		if err != nil {
			return nil, err
		}
		rings = append(rings, ring)
	}
	return rings, nil
}

func legacyRing(coords []LegacyCoordinate, name string) (Ring, error) {
	ring := make(Ring, 0, len(coords))
	for i, c := range coords {
		if c.Longitude == nil || c.Latitude == nil {
			return nil, fmt.Errorf("%w: %s coordinate %d must have longitude and latitude", ErrInvalidGeometryFormat, name, i)
		}
		ring = append(ring, Position{*c.Longitude, *c.Latitude})
	}
	return ring, nil
}
