package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingRequiredValue is returned when a required value is absent from both the flags and the environment.
	ErrMissingRequiredValue = errors.New("missing required value")
	// ErrInvalidEnumValue is returned when a value falls outside an option's permitted set.
	ErrInvalidEnumValue = errors.New("invalid choice")
	// ErrInvalidValue is returned for malformed input such as bad numbers, wrong arity or unknown flags.
	ErrInvalidValue = errors.New("invalid value")
	// ErrConstraintViolation is returned when options are individually valid but conflict with each other.
	ErrConstraintViolation = errors.New("conflicting options")

	// ErrHelpRequested is returned by Load after usage was written for --help.
	ErrHelpRequested = errors.New("help requested")
)

// Cross-field rules. Errors carrying one of these also match ErrConstraintViolation.
var (
	ErrCRNRequiresResume       = errors.New("crn aggregation requires a resume checkpoint")
	ErrQueriesNotDivisible     = errors.New("queries_per_epoch is not a multiple of cache_refresh_rate")
	ErrSAREMultiDevice         = errors.New("sare losses do not support multiple devices")
	ErrMiningDatasetMismatch   = errors.New("msls_weighted mining requires the msls dataset")
	ErrOffTheShelfArchitecture = errors.New("off-the-shelf weights require resnet50/101 conv5 + gem + fc 2048")
	ErrPCADatasetRequired      = errors.New("pca_dim requires pca_dataset_folder")
)

// Error describes a configuration failure. Kind is one of the Err* kinds above;
// Rule is set for cross-field violations. Err holds an underlying cause, such
// as a failed device probe.
type Error struct {
	Kind    error
	Rule    error
	Options []string
	Msg     string
	Err     error
}

func (e *Error) Error() string {
	return e.Msg
}

// Unwrap exposes the kind, the rule and the cause to errors.Is.
func (e *Error) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Rule != nil {
		errs = append(errs, e.Rule)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func missingValue(option, envVar string) *Error {
	return &Error{
		Kind:    ErrMissingRequiredValue,
		Options: []string{option},
		Msg: fmt.Sprintf("you should set the parameter --%s or export the %s environment variable, e.g. export %s=../datasets_vg/datasets",
			option, envVar, envVar),
	}
}

func invalidChoice(option, value string, allowed []string) *Error {
	return &Error{
		Kind:    ErrInvalidEnumValue,
		Options: []string{option},
		Msg: fmt.Sprintf("--%s: invalid choice %q (choose from %s)",
			option, value, strings.Join(allowed, ", ")),
	}
}

func invalidValue(option, format string, args ...any) *Error {
	return &Error{
		Kind:    ErrInvalidValue,
		Options: []string{option},
		Msg:     fmt.Sprintf("--%s: %s", option, fmt.Sprintf(format, args...)),
	}
}

func violation(rule error, options []string, format string, args ...any) *Error {
	return &Error{
		Kind:    ErrConstraintViolation,
		Rule:    rule,
		Options: options,
		Msg:     fmt.Sprintf(format, args...),
	}
}
