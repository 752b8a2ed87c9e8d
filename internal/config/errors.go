package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissing marks a required environment input that was unset or empty.
var ErrMissing = errors.New("missing required configuration")

// ErrInvalid marks an input that is present but unusable.
var ErrInvalid = errors.New("invalid configuration")

// ConfigurationError reports required input that is missing or malformed.
// It is always fatal and is raised before any network activity.
// Check with errors.As(err, &cfgErr).
type ConfigurationError struct {
	// Fields lists the environment variable names at fault.
	Fields []string
	Err    error
}

func (e *ConfigurationError) Error() string {
	var sb strings.Builder
	sb.WriteString("configuration error")
	if len(e.Fields) > 0 {
		sb.WriteString(" [")
		sb.WriteString(strings.Join(e.Fields, ", "))
		sb.WriteString("]")
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Missing builds a ConfigurationError for unset variables.
func Missing(fields ...string) *ConfigurationError {
	return &ConfigurationError{Fields: fields, Err: ErrMissing}
}

// Invalid builds a ConfigurationError for a malformed variable.
func Invalid(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{
		Fields: []string{field},
		Err:    fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...)),
	}
}
