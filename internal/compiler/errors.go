package compiler

import (
	"fmt"

	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Error codes shared by the loader and the CLI.
const (
	ErrCodeGeneric     = "E001" // generic/unknown error
	ErrCodeScanError   = "E002" // directory scan error
	ErrCodeNoFiles     = "E003" // no CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // path not found
	ErrCodeBuildFailed = "E006" // CUE build failed

	// Widget definition errors
	ErrCodeInvalidReact = "E201" // react is not a valid dependency expression
	ErrCodeInvalidQuery = "E202" // defaultQuery/customQuery is not an object or null
	ErrCodeInvalidField = "E203" // field has the wrong type or is not concrete
	ErrCodeUnknownField = "E204" // field is not part of a widget definition
	ErrCodeNoWidgets    = "E205" // no widget definitions found
)

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Code maps the error's field to an error code.
func (e *CompileError) Code() string {
	return FieldCode(e.Field)
}

// FieldCode maps a widget definition field to the code of errors about it.
func FieldCode(field string) string {
	switch field {
	case "react":
		return ErrCodeInvalidReact
	case "defaultQuery", "customQuery":
		return ErrCodeInvalidQuery
	case "value", "defaultValue", "filterLabel", "showFilter", "URLParams":
		return ErrCodeInvalidField
	case "field":
		return ErrCodeUnknownField
	default:
		return ErrCodeGeneric
	}
}

// LoadError represents an error that occurred while loading a directory.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
