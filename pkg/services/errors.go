// Package services provides the application layer above persistence: series
// definition management and progress queries for the API surface.
package services

import (
	"errors"
	"fmt"
)

// Validation errors map to HTTP 400.
var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrSeriesNil           = errors.New("series cannot be nil")
	ErrSeriesNameRequired  = errors.New("series name is required")
	ErrEntryBlockRequired  = errors.New("active series must have an entry block")
	ErrUnknownEntryBlock   = errors.New("entry block is not in the series")
	ErrInvalidBlock        = errors.New("invalid block configuration")
	ErrDanglingBlockRef    = errors.New("block references a block that is not in the series")
	ErrInvalidStatusChange = errors.New("invalid series status change")
)

// Conflict errors map to HTTP 409.
var (
	ErrSeriesArchived   = errors.New("archived series cannot be modified")
	ErrSeriesHasLiveRun = errors.New("series with live progress cannot be deleted")
)

// ServiceError wraps a service-level failure with its operation name.
type ServiceError struct {
	Op      string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError reports whether the error should surface as HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrSeriesNil) ||
		errors.Is(err, ErrSeriesNameRequired) ||
		errors.Is(err, ErrEntryBlockRequired) ||
		errors.Is(err, ErrUnknownEntryBlock) ||
		errors.Is(err, ErrInvalidBlock) ||
		errors.Is(err, ErrDanglingBlockRef) ||
		errors.Is(err, ErrInvalidStatusChange)
}

// IsConflictError reports whether the error should surface as HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrSeriesArchived) ||
		errors.Is(err, ErrSeriesHasLiveRun)
}
