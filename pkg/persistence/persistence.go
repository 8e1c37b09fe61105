// Package persistence provides the data storage abstraction for series
// definitions and visitor progress records.
package persistence

import (
	"context"
	"time"

	"github.com/talkbase/series/pkg/models"
)

// SeriesRepository reads and writes series definitions. The engine only
// reads; Save and Delete exist for the external editing surface.
type SeriesRepository interface {
	SeriesByID(ctx context.Context, id string) (*models.Series, error)
	ActiveSeriesByWorkspace(ctx context.Context, workspaceID string) ([]*models.Series, error)
	SaveSeries(ctx context.Context, series *models.Series) error
	DeleteSeries(ctx context.Context, id string) error
}

// ProgressRepository owns the durable per-(visitor, series) state. All
// mutations are per-record atomic: CreateProgress is create-if-absent over
// the non-terminal (visitor, series) pair, ClaimWaiting is a
// compare-and-transition out of waiting.
type ProgressRepository interface {
	// CreateProgress inserts a new progress record. It returns
	// ErrProgressExists when a non-terminal progress already exists for the
	// same (visitor, series) pair, which makes enrollment idempotent under
	// concurrent triggers.
	CreateProgress(ctx context.Context, progress *models.SeriesProgress) error

	ProgressByID(ctx context.Context, id string) (*models.SeriesProgress, error)

	// CurrentProgress returns the non-terminal progress for the pair, or
	// ErrProgressNotFound when none exists.
	CurrentProgress(ctx context.Context, visitorID, seriesID string) (*models.SeriesProgress, error)

	// ProgressByVisitor returns every progress record for a visitor,
	// terminal included.
	ProgressByVisitor(ctx context.Context, workspaceID, visitorID string) ([]*models.SeriesProgress, error)

	// FailedProgressBySeries returns failed records for operator remediation.
	FailedProgressBySeries(ctx context.Context, seriesID string, limit int) ([]*models.SeriesProgress, error)

	SaveProgress(ctx context.Context, progress *models.SeriesProgress) error

	// ClaimWaiting atomically transitions a waiting record to active and
	// returns the claimed record. It returns ErrProgressNotWaiting when the
	// record has already moved out of waiting, which is the guard that makes
	// dispatcher and backstop resumption idempotent.
	ClaimWaiting(ctx context.Context, id string) (*models.SeriesProgress, error)

	// WaitingForEvent finds records suspended on the named event for the
	// visitor. Backed by the (status, wait_event_name) index.
	WaitingForEvent(ctx context.Context, workspaceID, visitorID, eventName string) ([]*models.SeriesProgress, error)

	// DueProgress finds waiting records whose deadline has elapsed, scanning
	// at most seriesLimit distinct series and waitingLimit records per
	// series. Backed by the (status, wait_until) index.
	DueProgress(ctx context.Context, now time.Time, seriesLimit, waitingLimit int) ([]*models.SeriesProgress, error)

	// StalledProgress finds active records whose last touch is older than
	// the retry delay. That covers both failed action attempts and records
	// claimed out of waiting by a process that died before the next persist;
	// the backstop re-advances them so forward progress never depends on a
	// single process surviving.
	StalledProgress(ctx context.Context, olderThan time.Time, limit int) ([]*models.SeriesProgress, error)
}

// Persistence aggregates the repositories behind one storage backend.
type Persistence interface {
	SeriesRepository
	ProgressRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
