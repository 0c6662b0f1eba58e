package validator

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	_ = validate.RegisterValidation("date", isDate)
}

// DateLayouts are the accepted layouts for the "date" tag.
var DateLayouts = []string{time.RFC3339, time.DateOnly}

// ParseDate parses s with the first matching layout from DateLayouts.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func isDate(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	_, err := ParseDate(fl.Field().String())
	return err == nil
}

// errorMessages maps validation tags to friendly messages.
var errorMessages = map[string]string{
	"required": "The field '%s' is required.",
	"email":    "The field '%s' must be a valid email address.",
	"min":      "The field '%s' must have at least %s items or characters.",
	"max":      "The field '%s' must have at most %s items or characters.",
	"lte":      "The field '%s' must be less than or equal to %s.",
	"gte":      "The field '%s' must be greater than or equal to %s.",
	"gt":       "The field '%s' must be greater than %s.",
	"lt":       "The field '%s' must be less than %s.",
	"uuid":     "The field '%s' must be a valid UUID.",
	"uuid4":    "The field '%s' must be a valid UUID v4.",
	"date":     "The field '%s' must be a date (YYYY-MM-DD or RFC3339).",
}

// parseMessage constructs a friendly error message based on the validation tag.
func parseMessage(field string, e validator.FieldError) string {
	if msg, ok := errorMessages[e.Tag()]; ok {
		switch strings.Count(msg, "%s") {
		case 1:
			return fmt.Sprintf(msg, field)
		case 2:
			return fmt.Sprintf(msg, field, e.Param())
		}
	}
	return fmt.Sprintf("Field '%s' is invalid: %s", field, e.Tag())
}

// fieldPath drops the root struct name from the namespace, so
// "Request.payables[0].value" becomes "payables[0].value".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// ValidateStruct validates a struct and returns a map of JSON field paths to friendly error messages.
func ValidateStruct(s any) map[string]string {
	validationErrors := make(map[string]string)

	err := validate.Struct(s)
	if err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			for _, e := range validationErrs {
				path := fieldPath(e)
				validationErrors[path] = parseMessage(path, e)
			}
		} else {
			validationErrors["_"] = err.Error()
		}
	}

	return validationErrors
}

// Error carries the per-field messages of a failed validation.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, len(keys))
	for i, k := range keys {
		msgs[i] = e.Fields[k]
	}
	return "validation failed: " + strings.Join(msgs, " ")
}

// Validate returns an *Error when s fails validation.
func Validate(s any) error {
	if fields := ValidateStruct(s); len(fields) > 0 {
		return &Error{Fields: fields}
	}
	return nil
}
