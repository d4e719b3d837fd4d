package validate

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/spec-kit/dorm-maintenance/pkg/util/errorutil"
)

var roomPattern = regexp.MustCompile(`^[A-Z]-\d{4}$`)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Use JSON tag names for validation errors
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("query"), ",", 2)[0]
		}
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("room", func(fl validator.FieldLevel) bool {
		return roomPattern.MatchString(fl.Field().String())
	})
}

// Struct validates a request DTO and returns a VALIDATION_ERROR listing every failing field.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.NewValidationError("Request validation failed")
	}
	details := make([]apperrors.FieldError, 0, len(validationErrors))
	for _, fe := range validationErrors {
		details = append(details, apperrors.FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return apperrors.NewValidationError("Request validation failed", details...)
}

// Fields accumulates checks on individual values, used for partial-update payloads where
// struct tags cannot see through optional wrappers.
type Fields struct {
	details []apperrors.FieldError
}

// Check validates value against a validator tag expression.
func (f *Fields) Check(field string, value any, tag string) {
	err := validate.Var(value, tag)
	if err == nil {
		return
	}
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		f.details = append(f.details, apperrors.FieldError{Field: field, Message: messageFor(field, verrs[0])})
		return
	}
	f.Fail(field, err.Error())
}

// Fail records an explicit failure.
func (f *Fields) Fail(field, message string) {
	f.details = append(f.details, apperrors.FieldError{Field: field, Message: message})
}

// Err returns nil when every check passed.
func (f *Fields) Err() error {
	if len(f.details) == 0 {
		return nil
	}
	return apperrors.NewValidationError("Request validation failed", f.details...)
}

func fieldMessage(fe validator.FieldError) string {
	return messageFor(fe.Field(), fe)
}

func messageFor(field string, fe validator.FieldError) string {
	param := fe.Param()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters long", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters long", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "room":
		return fmt.Sprintf("%s must match pattern LETTER-DDDD (e.g. A-1207)", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
