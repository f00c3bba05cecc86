// Unified error handling for the G-code injection pipeline
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCode represents the category of error
type ErrorCode string

const (
	// Configuration errors
	ErrConfigSection    ErrorCode = "CONFIG_SECTION"
	ErrConfigOption     ErrorCode = "CONFIG_OPTION"
	ErrConfigValidation ErrorCode = "CONFIG_VALIDATION"
	ErrConfigType       ErrorCode = "CONFIG_TYPE"

	// Parse warnings (recovered locally, never returned from Parse)
	ErrTokenParse ErrorCode = "TOKEN_PARSE"
	ErrEmptyInput ErrorCode = "EMPTY_INPUT"

	// Locator errors
	ErrNoLayersFound ErrorCode = "NO_LAYERS_FOUND"
	ErrLayerNotFound ErrorCode = "LAYER_NOT_FOUND"
	ErrNoMatchFound  ErrorCode = "NO_MATCH_FOUND"

	// Splicer errors
	ErrMarkerNotFound    ErrorCode = "MARKER_NOT_FOUND"
	ErrBlockNotFound     ErrorCode = "BLOCK_NOT_FOUND"
	ErrUnterminatedBlock ErrorCode = "UNTERMINATED_BLOCK"
	ErrAlreadyInjected   ErrorCode = "ALREADY_INJECTED"
	ErrLineOutOfRange    ErrorCode = "LINE_OUT_OF_RANGE"
	ErrInvalidArgument   ErrorCode = "INVALID_ARGUMENT"
	ErrTemplate          ErrorCode = "TEMPLATE"
	ErrStorage           ErrorCode = "STORAGE"
)

// HostError is the unified error type for the injection pipeline
type HostError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Line is the 0-based source line index, or -1 when not applicable
	Line int

	// Err wraps the underlying error
	Err error

	// Context provides additional context
	Context map[string]interface{}
}

// Error implements the error interface
func (e *HostError) Error() string {
	var sb strings.Builder
	sb.WriteString("[")
	sb.WriteString(string(e.Code))
	sb.WriteString("] ")
	if e.Line >= 0 {
		fmt.Fprintf(&sb, "line %d: ", e.Line)
	}
	sb.WriteString(e.Message)
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s=%v", k, e.Context[k])
		}
		sb.WriteString(")")
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying error
func (e *HostError) Unwrap() error {
	return e.Err
}

// SetLine sets the line index
func (e *HostError) SetLine(line int) *HostError {
	e.Line = line
	return e
}

// SetContext adds additional context
func (e *HostError) SetContext(key string, value interface{}) *HostError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new HostError
func New(code ErrorCode, message string) *HostError {
	return &HostError{
		Code:    code,
		Message: message,
		Line:    -1,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, code ErrorCode, message string) *HostError {
	return &HostError{
		Code:    code,
		Message: message,
		Line:    -1,
		Err:     err,
	}
}

// Config errors

// ConfigSectionError creates an error for missing config section
func ConfigSectionError(section string) *HostError {
	return New(ErrConfigSection, fmt.Sprintf("section '%s' not found", section))
}

// ConfigValidationError creates an error for config validation failure
func ConfigValidationError(section, option string, reason string) *HostError {
	return New(ErrConfigValidation, fmt.Sprintf("option '%s' in section '%s': %s", option, section, reason))
}

// Parse warnings

// TokenParseError records a coordinate token whose value is not a number.
func TokenParseError(line int, token string, err error) *HostError {
	return Wrap(err, ErrTokenParse, fmt.Sprintf("invalid coordinate token %q, axis left unchanged", token)).
		SetLine(line).
		SetContext("token", token)
}

// EmptyInputError marks a document without any motion lines.
func EmptyInputError() *HostError {
	return New(ErrEmptyInput, "document contains no motion instructions")
}

// Locator errors

// NoLayersFoundError is returned when a height lookup has no layer with a recorded height.
func NoLayersFoundError() *HostError {
	return New(ErrNoLayersFound, "no layer boundaries with a recorded height")
}

// LayerNotFoundError is returned when a layer number is outside the index.
func LayerNotFoundError(number, count int) *HostError {
	return New(ErrLayerNotFound, fmt.Sprintf("layer %d not found (document has %d layers)", number, count))
}

// NoMatchFoundError is returned when no move lies inside the height band.
func NoMatchFoundError(z, tolerance float64) *HostError {
	return New(ErrNoMatchFound, fmt.Sprintf("no move within %.3f of height %.3f", tolerance, z))
}

// Splicer errors

// MarkerNotFoundError is returned when no line contains the marker.
func MarkerNotFoundError(marker string) *HostError {
	return New(ErrMarkerNotFound, fmt.Sprintf("marker %q not found", marker))
}

// BlockNotFoundError is returned when no sentinel-delimited block exists.
func BlockNotFoundError(start string) *HostError {
	return New(ErrBlockNotFound, fmt.Sprintf("no block starting with %q", start))
}

// UnterminatedBlockError is returned for a START sentinel with no END after it.
func UnterminatedBlockError(line int, end string) *HostError {
	return New(ErrUnterminatedBlock, fmt.Sprintf("missing end sentinel %q", end)).SetLine(line)
}

// AlreadyInjectedError is returned when a block is present and the policy forbids another.
func AlreadyInjectedError(start, end int) *HostError {
	return New(ErrAlreadyInjected, fmt.Sprintf("block already present at lines %d-%d", start, end)).SetLine(start)
}

// LineOutOfRangeError is returned for a splice position outside the document.
func LineOutOfRangeError(line, count int) *HostError {
	return New(ErrLineOutOfRange, fmt.Sprintf("line %d outside document of %d lines", line, count)).SetLine(line)
}

// InvalidArgumentError reports a bad caller-supplied parameter.
func InvalidArgumentError(message string) *HostError {
	return New(ErrInvalidArgument, message)
}

// TemplateError reports a block template that could not be rendered.
func TemplateError(tool, reason string) *HostError {
	return New(ErrTemplate, fmt.Sprintf("tool %s: %s", tool, reason))
}

// StorageError wraps a filesystem failure.
func StorageError(op, path string, err error) *HostError {
	return Wrap(err, ErrStorage, fmt.Sprintf("%s %s", op, path))
}

// Is checks if err, or any error it wraps, is a HostError with the given code
func Is(err error, code ErrorCode) bool {
	var hostErr *HostError
	if stderrors.As(err, &hostErr) {
		return hostErr.Code == code
	}
	return false
}

// CodeOf returns the code of the first HostError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var hostErr *HostError
	if stderrors.As(err, &hostErr) {
		return hostErr.Code
	}
	return ""
}

// LineOf returns the line of the first HostError in err's chain, or -1.
func LineOf(err error) int {
	var hostErr *HostError
	if stderrors.As(err, &hostErr) {
		return hostErr.Line
	}
	return -1
}

// IsConfig checks if error is a config error
func IsConfig(err error) bool {
	return Is(err, ErrConfigSection) ||
		Is(err, ErrConfigOption) ||
		Is(err, ErrConfigValidation) ||
		Is(err, ErrConfigType)
}

// IsNotFound reports whether a locate or splice request could not be satisfied.
func IsNotFound(err error) bool {
	return Is(err, ErrNoLayersFound) ||
		Is(err, ErrLayerNotFound) ||
		Is(err, ErrNoMatchFound) ||
		Is(err, ErrMarkerNotFound) ||
		Is(err, ErrBlockNotFound)
}
