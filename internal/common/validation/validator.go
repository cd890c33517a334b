// Package validation wraps go-playground/validator with the cache's custom
// rules and turns validator failures into ValidationError values.
package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"artifact-cache/internal/common/errors"
)

// FieldError is a single failed rule
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

// Validator validates structs and single values using struct-tag rules
type Validator struct {
	validate *validator.Validate
}

// New creates a validator with the cache rules registered:
//
//	cachekey: usable both as a file name and as a Redis key suffix
//	category: a cachekey without "_" or ":"; value keys use "_" and lock
//	          keys use ":", so no category can name either
func New() *Validator {
	v := validator.New()

	_ = v.RegisterValidation("cachekey", func(fl validator.FieldLevel) bool {
		return IsCacheKey(fl.Field().String())
	})
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return IsCacheKey(s) && !strings.ContainsAny(s, "_:")
	})

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	return &Validator{validate: v}
}

// IsCacheKey reports whether s can name an entry on every backend
func IsCacheKey(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, "/\\\x00")
}

// ValidateStruct validates a struct using its `validate` tags
func (v *Validator) ValidateStruct(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return v.format("", err)
	}
	return nil
}

// ValidateVar validates a single value against a tag expression
func (v *Validator) ValidateVar(field interface{}, tag, name string) error {
	if err := v.validate.Var(field, tag); err != nil {
		return v.format(name, err)
	}
	return nil
}

// FieldErrors extracts the individual failures from an error returned by the
// underlying validator. Other errors yield nil.
func FieldErrors(err error, name string) []FieldError {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}

	out := make([]FieldError, 0, len(validationErrors))
	for _, fe := range validationErrors {
		field := fe.Namespace()
		if name != "" {
			field = name
		}
		out = append(out, FieldError{
			Field:   field,
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: message(field, fe),
		})
	}
	return out
}

func (v *Validator) format(name string, err error) error {
	fieldErrors := FieldErrors(err, name)
	if len(fieldErrors) == 0 {
		return errors.InternalError("validation could not run", err)
	}

	msgs := make([]string, len(fieldErrors))
	for i, fe := range fieldErrors {
		msgs[i] = fe.Message
	}

	appErr := errors.ValidationError(strings.Join(msgs, "; "))
	if len(fieldErrors) == 1 {
		appErr.WithContext("field", fieldErrors[0].Field)
	}
	return appErr
}

func message(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "hostname_port":
		return fmt.Sprintf("%s must be host:port", field)
	case "cachekey":
		return fmt.Sprintf("%s %q must be non-empty and contain no path separators", field, fe.Value())
	case "category":
		return fmt.Sprintf("%s %q must be a valid key without underscores or colons", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
