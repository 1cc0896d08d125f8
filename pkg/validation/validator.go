// Package validation checks request inputs against their validate struct
// tags. The first violation is reported as an apperr Invalid error whose
// message names the offending field by its JSON name.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/platinummonkey/taskboard/pkg/apperr"
)

// Rule is a custom validation for string fields, registered under Tag
type Rule struct {
	Tag   string
	Valid func(value string) bool
	// Message follows the field name when the rule fails
	Message string
}

// Validator validates structs and single values
type Validator struct {
	validate *validator.Validate
	messages map[string]string
}

var std = New()

// New creates a validator with the given custom rules
func New(rules ...Rule) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)

	out := &Validator{validate: v, messages: make(map[string]string, len(rules))}
	for _, rule := range rules {
		valid := rule.Valid
		if err := v.RegisterValidation(rule.Tag, func(fl validator.FieldLevel) bool {
			return valid(fl.Field().String())
		}); err != nil {
			panic(fmt.Sprintf("validation: register %q: %v", rule.Tag, err))
		}
		out.messages[rule.Tag] = rule.Message
	}
	return out
}

// Struct validates s against its validate tags
func (v *Validator) Struct(s interface{}) error {
	return v.translate(v.validate.Struct(s), "")
}

// Field validates a single value against tag, reporting violations under name
func (v *Validator) Field(name string, value interface{}, tag string) error {
	return v.translate(v.validate.Var(value, tag), name)
}

// Struct validates s with the default validator
func Struct(s interface{}) error {
	return std.Struct(s)
}

// Field validates a single value with the default validator
func Field(name string, value interface{}, tag string) error {
	return std.Field(name, value, tag)
}

func (v *Validator) translate(err error, name string) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperr.Internal("failed to validate input", err)
	}
	fe := fieldErrs[0]
	field := name
	if field == "" {
		field = fe.Field()
	}
	return apperr.Invalid(v.message(field, fe))
}

func (v *Validator) message(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		if fe.Param() == "1" {
			return field + " is required"
		}
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "email":
		return field + " is not a valid address"
	case "oneof":
		return fmt.Sprintf("invalid %s: %v (expected one of %s)", field, fe.Value(), strings.Join(strings.Fields(fe.Param()), ", "))
	}
	if msg, ok := v.messages[fe.Tag()]; ok {
		return field + " " + msg
	}
	return field + " is invalid"
}

func jsonName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}
