package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/talkbase/series/pkg/models"
	"github.com/talkbase/series/pkg/persistence"
)

const seriesColumns = `
	id
  , workspace_id
  , name
  , status
  , entry_kind
  , entry_event_name
  , entry_attribute_key
  , entry_block_id
  , blocks
  , created_at
  , updated_at
`

func (p *SQLitePersistence) SeriesByID(ctx context.Context, id string) (*models.Series, error) {
	query := `SELECT ` + seriesColumns + ` FROM series WHERE id = ?`

	series, err := scanSeries(p.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewSeriesError("SeriesByID", id, persistence.ErrSeriesNotFound)
		}

		return nil, persistence.NewSeriesError("SeriesByID", id, err)
	}

	return series, nil
}

func (p *SQLitePersistence) ActiveSeriesByWorkspace(ctx context.Context, workspaceID string) ([]*models.Series, error) {
	query := `SELECT ` + seriesColumns + `
		FROM series
		WHERE workspace_id = ? AND status = ?
		ORDER BY created_at`

	rows, err := p.db.QueryContext(ctx, query, workspaceID, models.SeriesStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to query active series: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			p.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	active := make([]*models.Series, 0)

	for rows.Next() {
		series, err := scanSeries(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan series: %w", err)
		}

		active = append(active, series)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating series: %w", err)
	}

	return active, nil
}

func (p *SQLitePersistence) SaveSeries(ctx context.Context, series *models.Series) error {
	now := time.Now().UTC()

	if series.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate series ID: %w", err)
		}

		series.ID = id.String()
	}

	if series.CreatedAt.IsZero() {
		series.CreatedAt = now
	}

	series.UpdatedAt = now

	for _, block := range series.Blocks {
		block.SeriesID = series.ID

		if block.CreatedAt.IsZero() {
			block.CreatedAt = now
		}

		block.UpdatedAt = now
	}

	blocksJSON, err := json.Marshal(series.Blocks)
	if err != nil {
		return fmt.Errorf("failed to marshal blocks: %w", err)
	}

	query := `
		INSERT INTO series (id, workspace_id, name, status,
			entry_kind, entry_event_name, entry_attribute_key, entry_block_id,
			blocks, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			workspace_id = excluded.workspace_id,
			name = excluded.name,
			status = excluded.status,
			entry_kind = excluded.entry_kind,
			entry_event_name = excluded.entry_event_name,
			entry_attribute_key = excluded.entry_attribute_key,
			entry_block_id = excluded.entry_block_id,
			blocks = excluded.blocks,
			updated_at = excluded.updated_at
	`

	_, err = p.db.ExecContext(ctx, query,
		series.ID,
		series.WorkspaceID,
		series.Name,
		series.Status,
		series.Entry.Kind,
		series.Entry.EventName,
		series.Entry.AttributeKey,
		series.EntryBlockID,
		string(blocksJSON),
		series.CreatedAt,
		series.UpdatedAt,
	)
	if err != nil {
		return persistence.NewSeriesError("SaveSeries", series.ID, err)
	}

	return nil
}

func (p *SQLitePersistence) DeleteSeries(ctx context.Context, id string) error {
	result, err := p.db.ExecContext(ctx, `DELETE FROM series WHERE id = ?`, id)
	if err != nil {
		return persistence.NewSeriesError("DeleteSeries", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewSeriesError("DeleteSeries", id, err)
	}

	if affected == 0 {
		return persistence.NewSeriesError("DeleteSeries", id, persistence.ErrSeriesNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSeries(row rowScanner) (*models.Series, error) {
	var (
		series     models.Series
		blocksJSON string
	)

	err := row.Scan(
		&series.ID,
		&series.WorkspaceID,
		&series.Name,
		&series.Status,
		&series.Entry.Kind,
		&series.Entry.EventName,
		&series.Entry.AttributeKey,
		&series.EntryBlockID,
		&blocksJSON,
		&series.CreatedAt,
		&series.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(blocksJSON), &series.Blocks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal blocks: %w", err)
	}

	return &series, nil
}
