// Package validation provides struct validation with friendly, JSON-keyed
// error messages on top of go-playground/validator.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// errorMessages maps validation tags to custom error messages.
var errorMessages = map[string]string{
	"required": "The field '%s' is required.",
	"oneof":    "The field '%s' must be one of %s.",
	"min":      "The field '%s' must be at least %s.",
	"max":      "The field '%s' must be no more than %s.",
	"gt":       "The field '%s' must be greater than %s.",
	"lt":       "The field '%s' must be less than %s.",
	"dive":     "The field '%s' contains an invalid element.",
}

// parseMessage constructs a friendly error message for a failed field.
func parseMessage(jsonTag string, e validator.FieldError) string {
	if msg, ok := errorMessages[e.Tag()]; ok {
		switch strings.Count(msg, "%s") {
		case 1:
			return fmt.Sprintf(msg, jsonTag)
		case 2:
			return fmt.Sprintf(msg, jsonTag, e.Param())
		}
	}
	return fmt.Sprintf("Field '%s' is invalid: %s", jsonTag, e.Tag())
}

// ValidateStruct validates a struct pointer and returns a map of JSON field
// names to friendly error messages. An empty map means the struct is valid.
func ValidateStruct(s any) map[string]string {
	validationErrors := make(map[string]string)

	err := validate.Struct(s)
	if err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			structType := reflect.TypeOf(s)
			if structType.Kind() == reflect.Ptr {
				structType = structType.Elem()
			}
			for _, e := range validationErrs {
				jsonTag := e.StructField()
				if field, ok := structType.FieldByName(e.StructField()); ok {
					if tag := strings.Split(field.Tag.Get("json"), ",")[0]; tag != "" {
						jsonTag = tag
					}
				}
				validationErrors[jsonTag] = parseMessage(jsonTag, e)
			}
		} else {
			validationErrors["_"] = err.Error()
		}
	}

	return validationErrors
}
