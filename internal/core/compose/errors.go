package compose

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	ErrEmptyInput         = errors.New("compose file is empty")
	ErrInvalidYAML        = errors.New("invalid YAML")
	ErrNoServices         = errors.New("compose file defines no services")
	ErrServiceNoImage     = errors.New("service must have image or build")
	ErrCircularDependency = errors.New("circular service dependency")
	ErrInvalidPort        = errors.New("invalid port mapping")
	ErrUnsupportedFeature = errors.New("unsupported compose feature")
)

// ParseError wraps a parse failure with the offending compose field.
type ParseError struct {
	Field   string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError.
func NewParseError(field, message string, err error) *ParseError {
	return &ParseError{Field: field, Message: message, Err: err}
}
