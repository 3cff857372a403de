// Package validate checks the struct tags of the back office payloads.
package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalid is returned when a value does not satisfy its constraints.
var ErrInvalid = errors.New("invalid input")

// v caches struct metadata and is safe for concurrent use.
var v = validator.New(validator.WithRequiredStructEnabled())

// Struct validates the fields of s against their validate tags.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

// Var validates a single value against tag, like "email".
func Var(value any, tag string) error {
	if err := v.Var(value, tag); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Errorf returns an ErrInvalid error with a formatted reason.
func Errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email", "url":
		return fmt.Sprintf("%s must be a valid %s", field, fe.Tag())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "max", "min", "len", "gt", "gte", "lt", "lte":
		return fmt.Sprintf("%s must satisfy %s=%s", field, fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s failed on %s", field, fe.Tag())
}
