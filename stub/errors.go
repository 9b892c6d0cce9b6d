package stub

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes configuration errors.
type ErrorCode string

const (
	// ErrCodeInvalidTarget indicates the member handed to New is not an
	// invocable function value.
	ErrCodeInvalidTarget ErrorCode = "INVALID_TARGET"

	// ErrCodeInvalidArgument indicates an out-of-range or nil argument to
	// one of the fluent configuration calls.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
)

// ConfigError represents a configuration-time failure: stubbing a
// non-invocable member, or passing invalid arguments to Times/OnCall/Until.
//
// Configuration errors are programmer errors and surface immediately - the
// stub's state is never mutated by the failing call.
type ConfigError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Details contains additional context.
	Details map[string]string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// UntilExceededError is surfaced at call time when an until rule's hit count
// surpasses its configured cap.
//
// It signals a likely caller logic error (an unbounded polling condition)
// and is never silently swallowed, so accidental infinite-condition
// configurations are caught instead of looping quietly. The failing call is
// still counted and logged.
type UntilExceededError struct {
	Label string // The stub whose until rule overflowed
	Hits  int    // Number of hits taken, including this one
	Limit int    // Configured maximum
}

// Error implements the error interface.
func (e *UntilExceededError) Error() string {
	return fmt.Sprintf("stub %s exceeded until cap: %d hits > %d limit", e.Label, e.Hits, e.Limit)
}

// IsInvalidTarget returns true if the error is an invalid-target error.
// Uses errors.As to handle wrapped errors.
func IsInvalidTarget(err error) bool {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeInvalidTarget
	}
	return false
}

// IsInvalidArgument returns true if the error is an invalid-argument error.
// Uses errors.As to handle wrapped errors.
func IsInvalidArgument(err error) bool {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeInvalidArgument
	}
	return false
}

// IsUntilExceeded returns true if the error is an until-cap overflow.
// Uses errors.As to handle wrapped errors.
func IsUntilExceeded(err error) bool {
	var ue *UntilExceededError
	return errors.As(err, &ue)
}

func newInvalidTarget(message string) *ConfigError {
	return &ConfigError{Code: ErrCodeInvalidTarget, Message: message}
}

func newInvalidArgument(message string) *ConfigError {
	return &ConfigError{Code: ErrCodeInvalidArgument, Message: message}
}
