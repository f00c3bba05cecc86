// Package config reads the injector's settings: the INI dialect of
// printer.cfg files, and YAML tool profiles mapped onto the same sections.
//
// Sections and options track access, so a caller can report options that
// were set but never read (usually a typo).
package config

import (
	"fmt"

	"gcode-inject/pkg/errors"
)

func optionError(code errors.ErrorCode, section, option, message string) *errors.HostError {
	return errors.New(code, fmt.Sprintf("option '%s' in section '%s': %s", option, section, message)).
		SetContext("section", section).
		SetContext("option", option)
}

// ErrMissingOption returns an error for a required but missing option.
func ErrMissingOption(section, option string) *errors.HostError {
	return optionError(errors.ErrConfigOption, section, option, "must be specified")
}

// ErrMissingSection returns an error for a missing section.
func ErrMissingSection(section string) *errors.HostError {
	return errors.ConfigSectionError(section).SetContext("section", section)
}

// ErrInvalidValue returns an error for an invalid value.
func ErrInvalidValue(section, option, value, expected string) *errors.HostError {
	return optionError(errors.ErrConfigType, section, option,
		fmt.Sprintf("invalid value '%s', expected %s", value, expected))
}

// ErrOutOfRange returns an error for a value outside the allowed range.
func ErrOutOfRange(section, option string, value float64, constraint string) *errors.HostError {
	return optionError(errors.ErrConfigValidation, section, option,
		fmt.Sprintf("value %v %s", value, constraint))
}

// ErrInvalidChoice returns an error for an invalid choice value.
func ErrInvalidChoice(section, option, value string, choices []string) *errors.HostError {
	return optionError(errors.ErrConfigValidation, section, option,
		fmt.Sprintf("'%s' is not a valid choice (valid: %v)", value, choices))
}
