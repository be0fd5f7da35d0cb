package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// PropertyKind is the scalar type held by a PropertyValue.
type PropertyKind int

const (
	PropertyNull PropertyKind = iota
	PropertyString
	PropertyNumber
	PropertyBool
)

// PropertyValue is a free-form polygon property restricted to string,
// number, boolean or null so that encoding stays deterministic.
type PropertyValue struct {
	kind PropertyKind
	str  string
	num  float64
	b    bool
}

// StringProperty wraps a string value.
func StringProperty(s string) PropertyValue { return PropertyValue{kind: PropertyString, str: s} }

// NumberProperty wraps a number value.
func NumberProperty(f float64) PropertyValue { return PropertyValue{kind: PropertyNumber, num: f} }

// BoolProperty wraps a boolean value.
func BoolProperty(b bool) PropertyValue { return PropertyValue{kind: PropertyBool, b: b} }

// NullProperty is the JSON null value.
func NullProperty() PropertyValue { return PropertyValue{} }

// Kind reports the scalar type.
func (v PropertyValue) Kind() PropertyKind { return v.kind }

func (v PropertyValue) String() string { return fmt.Sprint(v.Interface()) }

// Interface returns the value as a plain Go scalar (nil for null).
func (v PropertyValue) Interface() any {
	switch v.kind {
	case PropertyString:
		return v.str
	case PropertyNumber:
		return v.num
	case PropertyBool:
		return v.b
	default:
		return nil
	}
}

// MarshalJSON implements json.Marshaler.
func (v PropertyValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case PropertyString:
		return json.Marshal(v.str)
	case PropertyNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return nil, fmt.Errorf("%w: non-finite number", ErrInvalidProperty)
		}
		return []byte(strconv.FormatFloat(v.num, 'f', -1, 64)), nil
	case PropertyBool:
		return json.Marshal(v.b)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON rejects objects and arrays.
func (v *PropertyValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("%w: empty value", ErrInvalidProperty)
	}
	switch data[0] {
	case 'n':
		*v = NullProperty()
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidProperty, err)
		}
		*v = BoolProperty(b)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidProperty, err)
		}
		*v = StringProperty(s)
	case '{', '[':
		return fmt.Errorf("%w: values must be strings, numbers, booleans or null", ErrInvalidProperty)
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidProperty, err)
		}
		*v = NumberProperty(f)
	}
	return nil
}

// Properties is the free-form key/value map attached to a polygon.
type Properties map[string]PropertyValue

// Map returns the properties as plain Go values.
func (p Properties) Map() map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v.Interface()
	}
	return out
}

// PropertiesFromMap converts plain values, rejecting anything that is not a
// scalar.
func PropertiesFromMap(m map[string]any) (Properties, error) {
	out := make(Properties, len(m))
	for k, raw := range m {
		switch val := raw.(type) {
		case nil:
			out[k] = NullProperty()
		case string:
			out[k] = StringProperty(val)
		case bool:
			out[k] = BoolProperty(val)
		case float64:
			out[k] = NumberProperty(val)
		case float32:
			out[k] = NumberProperty(float64(val))
		case int:
			out[k] = NumberProperty(float64(val))
		case int64:
			out[k] = NumberProperty(float64(val))
		default:
			return nil, fmt.Errorf("%w: property %q has unsupported type %T", ErrInvalidProperty, k, raw)
		}
	}
	return out, nil
}
