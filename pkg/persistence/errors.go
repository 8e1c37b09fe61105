// Package persistence provides standardized error types for storage operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrSeriesNotFound indicates a series was not found by the given identifier.
	ErrSeriesNotFound = errors.New("series not found")

	// ErrProgressNotFound indicates a progress record was not found.
	ErrProgressNotFound = errors.New("progress not found")

	// ErrProgressExists indicates a non-terminal progress already exists for
	// the (visitor, series) pair.
	ErrProgressExists = errors.New("progress already exists")

	// ErrProgressNotWaiting indicates a claim was attempted on a record that
	// already moved out of the waiting status.
	ErrProgressNotWaiting = errors.New("progress is not waiting")
)

// SeriesError wraps series-related errors with operation context.
type SeriesError struct {
	Op       string // Operation being performed (e.g. "SeriesByID", "SaveSeries")
	SeriesID string
	Err      error
}

func (e *SeriesError) Error() string {
	return fmt.Sprintf("%s operation failed for series %s: %v", e.Op, e.SeriesID, e.Err)
}

func (e *SeriesError) Unwrap() error {
	return e.Err
}

func (e *SeriesError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewSeriesError creates a new series error with context.
func NewSeriesError(op, seriesID string, err error) *SeriesError {
	return &SeriesError{Op: op, SeriesID: seriesID, Err: err}
}

// ProgressError wraps progress-related errors with operation context.
type ProgressError struct {
	Op         string
	ProgressID string
	Err        error
}

func (e *ProgressError) Error() string {
	return fmt.Sprintf("%s operation failed for progress %s: %v", e.Op, e.ProgressID, e.Err)
}

func (e *ProgressError) Unwrap() error {
	return e.Err
}

func (e *ProgressError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewProgressError creates a new progress error with context.
func NewProgressError(op, progressID string, err error) *ProgressError {
	return &ProgressError{Op: op, ProgressID: progressID, Err: err}
}

// IsSeriesNotFound checks if an error indicates a series was not found.
func IsSeriesNotFound(err error) bool {
	return errors.Is(err, ErrSeriesNotFound)
}

// IsProgressNotFound checks if an error indicates a progress record was not found.
func IsProgressNotFound(err error) bool {
	return errors.Is(err, ErrProgressNotFound)
}

// IsProgressExists checks if an error indicates the enrollment guard fired.
func IsProgressExists(err error) bool {
	return errors.Is(err, ErrProgressExists)
}
