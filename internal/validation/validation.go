// Package validation checks request field sets against named rule sets and
// reports every failing field at once.
package validation

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// FieldErrors maps a JSON field name to its failure messages.
type FieldErrors map[string][]string

// Error renders the failures in field order.
func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for field := range fe {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, strings.Join(fe[field], "; "))
	}
	return strings.Join(parts, "; ")
}

// Add appends a message for field.
func (fe FieldErrors) Add(field, message string) {
	fe[field] = append(fe[field], message)
}

// Validator runs rule sets expressed as `validate` struct tags.
type Validator struct {
	validate *validator.Validate
}

// New constructs a Validator that names fields by their json tag.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	_ = v.RegisterValidation("optional_url", optionalURL)
	return &Validator{validate: v}
}

// optionalURL accepts an empty string or an absolute http(s) URL.
func optionalURL(fl validator.FieldLevel) bool {
	raw := strings.TrimSpace(fl.Field().String())
	if raw == "" {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Check validates rules, a pointer to or value of a rule-set struct. It returns
// FieldErrors listing every failing field, or nil.
func (v *Validator) Check(rules any) error {
	err := v.validate.Struct(rules)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fe := FieldErrors{}
	for _, ferr := range verrs {
		fe.Add(ferr.Field(), message(ferr))
	}
	return fe
}

func message(ferr validator.FieldError) string {
	field := ferr.Field()
	switch ferr.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", field)
	case "email":
		return fmt.Sprintf("The %s format is invalid.", field)
	case "url", "optional_url":
		return fmt.Sprintf("The %s must be a valid URL.", field)
	case "alphanum":
		return fmt.Sprintf("The %s may only contain letters and numbers.", field)
	case "min":
		if ferr.Kind() == reflect.String {
			return fmt.Sprintf("The %s must be at least %s characters.", field, ferr.Param())
		}
		return fmt.Sprintf("The %s must be at least %s.", field, ferr.Param())
	case "max":
		if ferr.Kind() == reflect.String {
			return fmt.Sprintf("The %s may not be greater than %s characters.", field, ferr.Param())
		}
		return fmt.Sprintf("The %s may not be greater than %s.", field, ferr.Param())
	case "notblank":
		return fmt.Sprintf("The %s field may not be blank.", field)
	default:
		return fmt.Sprintf("The %s field is invalid.", field)
	}
}
