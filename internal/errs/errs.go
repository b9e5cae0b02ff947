// Package errs holds the error types shared across the jsonlkit packages.
//
// Input errors (unreadable file, empty file, bad line) end the current run and
// are reported to the user verbatim. Configuration errors are returned by the
// mutation or validation call that detected them and leave state untouched.
// Persistence failures are never returned; see package fieldconfig.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned when an input contains no non-blank lines.
	ErrEmptyInput = errors.New("input is empty")
	// ErrInvalidConfig is wrapped by configuration errors that carry their
	// own type, such as parameter validation failures.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// InputError describes a failure to read or parse the input dataset.
//
// Line is 1-based among the non-blank lines of the input and is zero when the
// failure is not tied to a specific line (e.g. the file could not be read).
type InputError struct {
	Op   string
	Line int
	Err  error
}

func (e *InputError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: line %d: %v", e.Op, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// ConfigError reports an invalid user configuration: a name conflict in the
// field configuration or a missing parameter for a selected operation.
type ConfigError struct {
	// Field names the offending field or parameter.
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IsInput reports whether err is (or wraps) an input error.
func IsInput(err error) bool {
	var ie *InputError
	return errors.As(err, &ie) || errors.Is(err, ErrEmptyInput)
}

// IsConfig reports whether err is (or wraps) a configuration error.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce) || errors.Is(err, ErrInvalidConfig)
}
