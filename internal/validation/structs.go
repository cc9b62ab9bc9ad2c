package validation

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	"jobprep/internal/types"

	"github.com/go-playground/validator/v10"
)

// CoverLetterKeys are the draft fields that can be sent for section analysis.
var CoverLetterKeys = []string{"growthProcess", "strengthsWeaknesses", "academicLife", "motivation"}

var (
	structValidator *validator.Validate
	structOnce      sync.Once
)

// Structs returns the shared request-body validator.
func Structs() *validator.Validate {
	structOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		registerCustomValidators(v)
		structValidator = v
	})
	return structValidator
}

func registerCustomValidators(v *validator.Validate) {
	// Donations come in 1,000 won steps.
	_ = v.RegisterValidation("donation_step", func(fl validator.FieldLevel) bool {
		return fl.Field().Int()%1000 == 0
	})

	_ = v.RegisterValidation("cover_section", func(fl validator.FieldLevel) bool {
		return slices.Contains(CoverLetterKeys, fl.Field().String())
	})

	_ = v.RegisterValidation("personality", func(fl validator.FieldLevel) bool {
		return slices.Contains(types.Personalities, types.Personality(fl.Field().String()))
	})

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// FieldError is one failed struct rule, keyed by the JSON field name.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// FieldErrors is returned by ValidateStruct when rules fail.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	switch len(fe) {
	case 0:
		return "validation failed"
	case 1:
		return fmt.Sprintf("validation failed: %s %s", fe[0].Field, fe[0].Message)
	default:
		return fmt.Sprintf("validation failed: %d field errors", len(fe))
	}
}

// ValidateStruct checks s against its validate tags.
func ValidateStruct(s any) error {
	if err := Structs().Struct(s); err != nil {
		if fe := ToFieldErrors(err); len(fe) > 0 {
			return fe
		}
		return err
	}
	return nil
}

// ToFieldErrors converts validator errors and passes FieldErrors through; other errors
// yield nil.
func ToFieldErrors(err error) FieldErrors {
	var fe FieldErrors
	if stderrors.As(err, &fe) {
		return fe
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return nil
	}
	out := make(FieldErrors, 0, len(verrs))
	for _, e := range verrs {
		out = append(out, FieldError{
			Field:   e.Field(),
			Rule:    e.Tag(),
			Message: ruleMessage(e),
		})
	}
	return out
}

func ruleMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "donation_step":
		return "must be a multiple of 1000"
	case "cover_section":
		return "must be one of " + strings.Join(CoverLetterKeys, ", ")
	case "personality":
		return "is not a known interviewer personality"
	default:
		return "failed " + e.Tag() + " validation"
	}
}
