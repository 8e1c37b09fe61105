package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/talkbase/series/pkg/models"
	"github.com/talkbase/series/pkg/persistence"
)

const progressColumns = `
	id
  , workspace_id
  , visitor_id
  , series_id
  , status
  , current_block_id
  , wait_until
  , wait_event_name
  , attempt_count
  , last_execution_error
  , enrolled_at
  , updated_at
`

// CreateProgress relies on the partial unique index over non-terminal
// (visitor_id, series_id) pairs: a concurrent duplicate insert fails with a
// constraint violation, which is mapped to ErrProgressExists.
func (p *SQLitePersistence) CreateProgress(ctx context.Context, progress *models.SeriesProgress) error {
	now := time.Now().UTC()

	if progress.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate progress ID: %w", err)
		}

		progress.ID = id.String()
	}

	if progress.EnrolledAt.IsZero() {
		progress.EnrolledAt = now
	}

	progress.UpdatedAt = now

	query := `
		INSERT INTO series_progress (id, workspace_id, visitor_id, series_id, status,
			current_block_id, wait_until, wait_event_name,
			attempt_count, last_execution_error, enrolled_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := p.db.ExecContext(ctx, query,
		progress.ID,
		progress.WorkspaceID,
		progress.VisitorID,
		progress.SeriesID,
		progress.Status,
		progress.CurrentBlockID,
		progress.WaitUntil,
		progress.WaitEventName,
		progress.AttemptCount,
		progress.LastExecutionError,
		progress.EnrolledAt,
		progress.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return persistence.NewProgressError("CreateProgress", progress.ID, persistence.ErrProgressExists)
		}

		return persistence.NewProgressError("CreateProgress", progress.ID, err)
	}

	return nil
}

func (p *SQLitePersistence) ProgressByID(ctx context.Context, id string) (*models.SeriesProgress, error) {
	query := `SELECT ` + progressColumns + ` FROM series_progress WHERE id = ?`

	progress, err := scanProgress(p.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewProgressError("ProgressByID", id, persistence.ErrProgressNotFound)
		}

		return nil, persistence.NewProgressError("ProgressByID", id, err)
	}

	return progress, nil
}

func (p *SQLitePersistence) CurrentProgress(ctx context.Context, visitorID, seriesID string) (*models.SeriesProgress, error) {
	query := `SELECT ` + progressColumns + `
		FROM series_progress
		WHERE visitor_id = ? AND series_id = ? AND status IN ('active', 'waiting')`

	progress, err := scanProgress(p.db.QueryRowContext(ctx, query, visitorID, seriesID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewProgressError("CurrentProgress", "", persistence.ErrProgressNotFound)
		}

		return nil, persistence.NewProgressError("CurrentProgress", "", err)
	}

	return progress, nil
}

func (p *SQLitePersistence) ProgressByVisitor(ctx context.Context, workspaceID, visitorID string) ([]*models.SeriesProgress, error) {
	query := `SELECT ` + progressColumns + `
		FROM series_progress
		WHERE workspace_id = ? AND visitor_id = ?
		ORDER BY enrolled_at`

	return p.queryProgress(ctx, query, workspaceID, visitorID)
}

func (p *SQLitePersistence) FailedProgressBySeries(ctx context.Context, seriesID string, limit int) ([]*models.SeriesProgress, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + progressColumns + `
		FROM series_progress
		WHERE series_id = ? AND status = 'failed'
		ORDER BY updated_at DESC
		LIMIT ?`

	return p.queryProgress(ctx, query, seriesID, limit)
}

func (p *SQLitePersistence) SaveProgress(ctx context.Context, progress *models.SeriesProgress) error {
	progress.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE series_progress SET
			status = ?,
			current_block_id = ?,
			wait_until = ?,
			wait_event_name = ?,
			attempt_count = ?,
			last_execution_error = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := p.db.ExecContext(ctx, query,
		progress.Status,
		progress.CurrentBlockID,
		progress.WaitUntil,
		progress.WaitEventName,
		progress.AttemptCount,
		progress.LastExecutionError,
		progress.UpdatedAt,
		progress.ID,
	)
	if err != nil {
		return persistence.NewProgressError("SaveProgress", progress.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewProgressError("SaveProgress", progress.ID, err)
	}

	if affected == 0 {
		return persistence.NewProgressError("SaveProgress", progress.ID, persistence.ErrProgressNotFound)
	}

	return nil
}

// ClaimWaiting is a single guarded UPDATE: only a record still in waiting is
// moved to active, so concurrent claimers and repeated sweeps race safely.
func (p *SQLitePersistence) ClaimWaiting(ctx context.Context, id string) (*models.SeriesProgress, error) {
	query := `
		UPDATE series_progress SET
			status = 'active',
			wait_until = NULL,
			wait_event_name = NULL,
			updated_at = ?
		WHERE id = ? AND status = 'waiting'
	`

	result, err := p.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return nil, persistence.NewProgressError("ClaimWaiting", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, persistence.NewProgressError("ClaimWaiting", id, err)
	}

	if affected == 0 {
		// Distinguish a missing record from one that already moved on.
		if _, err := p.ProgressByID(ctx, id); err != nil {
			return nil, err
		}

		return nil, persistence.NewProgressError("ClaimWaiting", id, persistence.ErrProgressNotWaiting)
	}

	return p.ProgressByID(ctx, id)
}

func (p *SQLitePersistence) WaitingForEvent(ctx context.Context, workspaceID, visitorID, eventName string) ([]*models.SeriesProgress, error) {
	query := `SELECT ` + progressColumns + `
		FROM series_progress
		WHERE status = 'waiting' AND wait_event_name = ?
			AND workspace_id = ? AND visitor_id = ?`

	return p.queryProgress(ctx, query, eventName, workspaceID, visitorID)
}

func (p *SQLitePersistence) DueProgress(ctx context.Context, now time.Time, seriesLimit, waitingLimit int) ([]*models.SeriesProgress, error) {
	if seriesLimit <= 0 {
		seriesLimit = 100
	}

	if waitingLimit <= 0 {
		waitingLimit = 500
	}

	// Rank due records within each series so both limits apply in one query.
	query := `
		SELECT ` + progressColumns + ` FROM (
			SELECT *,
				ROW_NUMBER() OVER (PARTITION BY series_id ORDER BY wait_until) AS series_rank,
				DENSE_RANK() OVER (ORDER BY series_id) AS series_index
			FROM series_progress
			WHERE status = 'waiting' AND wait_until IS NOT NULL AND wait_until <= ?
		)
		WHERE series_rank <= ? AND series_index <= ?
		ORDER BY series_id, wait_until
	`

	return p.queryProgress(ctx, query, now, waitingLimit, seriesLimit)
}

func (p *SQLitePersistence) StalledProgress(ctx context.Context, olderThan time.Time, limit int) ([]*models.SeriesProgress, error) {
	if limit <= 0 {
		limit = 100
	}

	// Any active record nobody has touched is stalled: a failed action
	// attempt, or a claim that crashed before the next persist. Re-advancing
	// either is safe, so the filter is age alone.
	query := `SELECT ` + progressColumns + `
		FROM series_progress
		WHERE status = 'active' AND updated_at <= ?
		ORDER BY updated_at
		LIMIT ?`

	return p.queryProgress(ctx, query, olderThan, limit)
}

func (p *SQLitePersistence) queryProgress(ctx context.Context, query string, args ...any) ([]*models.SeriesProgress, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			p.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	records := make([]*models.SeriesProgress, 0)

	for rows.Next() {
		progress, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}

		records = append(records, progress)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating progress: %w", err)
	}

	return records, nil
}

func scanProgress(row rowScanner) (*models.SeriesProgress, error) {
	var progress models.SeriesProgress

	err := row.Scan(
		&progress.ID,
		&progress.WorkspaceID,
		&progress.VisitorID,
		&progress.SeriesID,
		&progress.Status,
		&progress.CurrentBlockID,
		&progress.WaitUntil,
		&progress.WaitEventName,
		&progress.AttemptCount,
		&progress.LastExecutionError,
		&progress.EnrolledAt,
		&progress.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if progress.WaitUntil != nil {
		utc := progress.WaitUntil.UTC()
		progress.WaitUntil = &utc
	}

	return &progress, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
