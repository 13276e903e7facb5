package config

import (
	"errors"
	"fmt"
)

// ErrConfiguration is returned for configuration that cannot be used, such
// as an exposure entry with mutually exclusive selectors.
var ErrConfiguration = errors.New("invalid configuration")

// ValidationError reports one invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is makes every ValidationError match ErrConfiguration.
func (e *ValidationError) Is(target error) bool {
	return target == ErrConfiguration
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
