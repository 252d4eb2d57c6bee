package widget

import (
	"errors"
	"fmt"
)

// ConfigError reports construction-time misuse: a missing widget id, a nil
// store, or an attempt to change the id of a live widget.
type ConfigError struct {
	// Field names the offending configuration field.
	Field string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid widget config: %s: %s", e.Field, e.Message)
}

// TransitionError reports a lifecycle operation called in the wrong state.
type TransitionError struct {
	WidgetID string
	Op       string
	From     State
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("widget %s: %s not allowed in state %s", e.WidgetID, e.Op, e.From)
}

// QuerySourceError wraps a failure returned by a custom or default query
// source. The widget does not retry; the error belongs to the host.
type QuerySourceError struct {
	WidgetID string

	// Source is "customQuery" or "defaultQuery".
	Source string

	Err error
}

// Error implements the error interface.
func (e *QuerySourceError) Error() string {
	return fmt.Sprintf("widget %s: %s: %v", e.WidgetID, e.Source, e.Err)
}

// Unwrap returns the underlying source error.
func (e *QuerySourceError) Unwrap() error {
	return e.Err
}

// IsConfigError returns true if err is or wraps a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsTransitionError returns true if err is or wraps a *TransitionError.
func IsTransitionError(err error) bool {
	var te *TransitionError
	return errors.As(err, &te)
}

// IsQuerySourceError returns true if err is or wraps a *QuerySourceError.
func IsQuerySourceError(err error) bool {
	var qe *QuerySourceError
	return errors.As(err, &qe)
}
