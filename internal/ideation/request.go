package ideation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Request defaults and bounds.
const (
	DefaultCategoryCount      = 20
	DefaultOptionsPerCategory = 20
	DefaultSampleSize         = 10

	MinCategoryCount      = 10
	MaxCategoryCount      = 30
	MinOptionsPerCategory = 10
	MaxOptionsPerCategory = 200
	MinSampleSize         = 5
	MaxSampleSize         = 200
)

// Request is the inbound call contract of a pipeline run.
type Request struct {
	ExpertRole               string `json:"expert_role" validate:"notblank"`
	TargetSubject            string `json:"target_subject" validate:"notblank"`
	TargetCategoryCount      int    `json:"target_category_count" validate:"min=10,max=30"`
	TargetOptionsPerCategory int    `json:"target_options_per_category" validate:"min=10,max=200"`
	RandomizeSelection       bool   `json:"randomize_selection"`
	RandomSampleSize         int    `json:"random_sample_size" validate:"min=5,max=200"`
	DomainContext            string `json:"domain_context,omitempty"`
}

// NewRequest returns a request for persona and subject with every optional
// field at its default.
func NewRequest(expertRole, targetSubject string) Request {
	return Request{
		ExpertRole:               expertRole,
		TargetSubject:            targetSubject,
		TargetCategoryCount:      DefaultCategoryCount,
		TargetOptionsPerCategory: DefaultOptionsPerCategory,
		RandomSampleSize:         DefaultSampleSize,
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// Validate checks the request against its bounds. The first violation is
// returned as a *ValidationError naming the JSON field.
func (r Request) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return formatFieldError(fieldErrs[0])
}

func formatFieldError(e validator.FieldError) *ValidationError {
	switch e.Tag() {
	case "notblank":
		return fieldError(e.Field(), "is required")
	case "min":
		return fieldError(e.Field(), fmt.Sprintf("must be at least %s (got: %v)", e.Param(), e.Value()))
	case "max":
		return fieldError(e.Field(), fmt.Sprintf("must be at most %s (got: %v)", e.Param(), e.Value()))
	default:
		return fieldError(e.Field(), fmt.Sprintf("failed %q validation", e.Tag()))
	}
}
