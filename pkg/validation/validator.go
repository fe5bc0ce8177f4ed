package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dd0wney/cluso-fabric/pkg/fabric"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// Validation constants
	MaxIdentifierLength = 64
	MaxZoneMembers      = 4096
	MaxThreshold        = 1000.0

	// Regular expressions
	identifierPattern = regexp.MustCompile(`^[0-9A-Za-z][0-9A-Za-z:._-]*$`)
	hexPattern        = regexp.MustCompile(`^[0-9a-f]+$`)
)

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("wwn", func(fl validator.FieldLevel) bool {
		return ValidateIdentifier(fl.Field().String()) == nil
	})
	_ = validate.RegisterValidation("speed", func(fl validator.FieldLevel) bool {
		_, ok := fabric.ParseSpeed(fl.Field().String())
		return ok
	})
	_ = validate.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		_, err := fabric.ParseRole(fl.Field().String())
		return err == nil
	})
}

// PathRequest is a path query between two endpoints
type PathRequest struct {
	Source      string `json:"source" validate:"required,wwn"`
	Destination string `json:"destination" validate:"required,wwn"`
}

// AnalysisRequest tunes an oversubscription analysis
type AnalysisRequest struct {
	Threshold              float64 `json:"threshold" validate:"omitempty,gt=0,lte=1000"`
	AttributeEveryCrossing bool    `json:"attribute_every_crossing"`
	ReportBoth             bool    `json:"report_both"`
}

// ValidatePathRequest validates a path query
func ValidatePathRequest(req *PathRequest) error {
	if req == nil {
		return errors.New("path request cannot be nil")
	}
	return Struct(req)
}

// ValidateAnalysisRequest validates analysis options
func ValidateAnalysisRequest(req *AnalysisRequest) error {
	if req == nil {
		return errors.New("analysis request cannot be nil")
	}
	return Struct(req)
}

// Struct validates any tagged struct and returns the first failure in a
// user-friendly format. Record types of other packages use the same tags.
func Struct(v any) error {
	if err := validate.Struct(v); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateIdentifier checks a WWPN/WWNN or other fabric identifier.
// Colon-separated forms must carry eight hex octets.
func ValidateIdentifier(id string) error {
	if id == "" {
		return errors.New("identifier cannot be empty")
	}
	if len(id) > MaxIdentifierLength {
		return fmt.Errorf("identifier '%s' exceeds maximum length of %d characters", id, MaxIdentifierLength)
	}
	if !identifierPattern.MatchString(id) {
		return fmt.Errorf("identifier '%s' contains invalid characters", id)
	}
	if strings.Contains(id, ":") {
		octets := strings.Split(id, ":")
		norm := fabric.NormalizeWWN(id)
		if len(octets) != 8 || len(norm) != 16 || !hexPattern.MatchString(norm) {
			return fmt.Errorf("identifier '%s' is not a WWN (expected 8 hex octets)", id)
		}
	}
	return nil
}

// ValidateZone checks a zone definition
func ValidateZone(z fabric.Zone) error {
	if strings.TrimSpace(z.Name) == "" {
		return errors.New("zone name cannot be empty")
	}
	if len(z.Members) > MaxZoneMembers {
		return fmt.Errorf("zone '%s': maximum %d members allowed, got %d", z.Name, MaxZoneMembers, len(z.Members))
	}
	for i, m := range z.Members {
		if err := ValidateIdentifier(strings.TrimSpace(m)); err != nil {
			return fmt.Errorf("zone '%s': member at index %d: %w", z.Name, i, err)
		}
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Field()
		tag := e.Tag()
		param := e.Param()

		switch tag {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min", "gte":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max", "lte":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "gt":
			return fmt.Errorf("%s: must be greater than %s", field, param)
		case "wwn":
			return fmt.Errorf("%s: '%v' is not a valid identifier", field, e.Value())
		case "speed":
			return fmt.Errorf("%s: '%v' is not a valid speed", field, e.Value())
		case "role":
			return fmt.Errorf("%s: '%v' is not a valid port role", field, e.Value())
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s]", field, param)
		case "dive":
			// For array elements
			return fmt.Errorf("%s: invalid element in array", field)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, tag)
		}
	}

	return err
}
