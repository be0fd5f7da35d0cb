package usecases

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/partymap/partymap/internal/core/domain"
)

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("hexcolor36", func(fl validator.FieldLevel) bool {
		return hexColor.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("polygontype", func(fl validator.FieldLevel) bool {
		return domain.PolygonType(fl.Field().String()).Valid()
	})
	return v
}

// validatePolygon applies the field rules that sit on top of the geometry
// checks.
func validatePolygon(p *domain.Polygon) error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidPolygon, describe(err))
	}
	if p.MinZoom > p.MaxZoom {
		return fmt.Errorf("%w: minZoom must not exceed maxZoom", domain.ErrInvalidPolygon)
	}
	return nil
}

func validateMarker(m *domain.Marker) error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidMarker, describe(err))
	}
	return nil
}

func describe(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fieldMessage(fe))
	}
	return strings.Join(msgs, "; ")
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required", "notblank":
		return field + " is required"
	case "hexcolor36":
		return field + " must be a 3 or 6 digit hex color"
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "polygontype":
		names := make([]string, len(domain.PolygonTypes))
		for i, t := range domain.PolygonTypes {
			names[i] = string(t)
		}
		return fmt.Sprintf("%s must be one of %s", field, strings.Join(names, ", "))
	case "url":
		return field + " must be a valid URL"
	default:
		return field + " is invalid"
	}
}
