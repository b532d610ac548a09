// Package errs defines the error taxonomy shared by the catalog, the attribute
// encoder and the recommendation engine.
package errs

import "fmt"

// ConfigurationError reports a malformed or empty catalog. It is raised while
// building the index at startup and should abort initialization.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
	}
	return "configuration error: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Configurationf builds a ConfigurationError with a formatted reason.
func Configurationf(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// ValidationError reports a rejected request. Callers recover from it; the
// transport layer maps it to a client error.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validationf builds a ValidationError with a formatted message.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

var (
	// ErrNoCardsSelected is returned when the selection is empty.
	ErrNoCardsSelected = &ValidationError{Message: "no cards selected"}

	// ErrNoValidCards is returned when no selected name matches the catalog.
	ErrNoValidCards = &ValidationError{Message: "no valid cards found"}
)
