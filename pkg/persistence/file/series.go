package file

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/talkbase/series/pkg/models"
	"github.com/talkbase/series/pkg/persistence"
)

func (p *FilePersistence) SeriesByID(ctx context.Context, id string) (*models.Series, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.seriesByIDLocked(id)
}

func (p *FilePersistence) seriesByIDLocked(id string) (*models.Series, error) {
	var series models.Series
	if err := p.read("series", id, &series); err != nil {
		if isNotExist(err) {
			return nil, persistence.NewSeriesError("SeriesByID", id, persistence.ErrSeriesNotFound)
		}

		return nil, persistence.NewSeriesError("SeriesByID", id, err)
	}

	return &series, nil
}

func (p *FilePersistence) ActiveSeriesByWorkspace(ctx context.Context, workspaceID string) ([]*models.Series, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids, err := p.ids("series")
	if err != nil {
		return nil, err
	}

	active := make([]*models.Series, 0)

	for _, id := range ids {
		series, err := p.seriesByIDLocked(id)
		if err != nil {
			return nil, err
		}

		if series.WorkspaceID == workspaceID && series.Status == models.SeriesStatusActive {
			active = append(active, series)
		}
	}

	sort.Slice(active, func(i, j int) bool { return active[i].CreatedAt.Before(active[j].CreatedAt) })

	return active, nil
}

func (p *FilePersistence) SaveSeries(ctx context.Context, series *models.Series) error {
	p.mu.Lock()
	defer p.mu.Unlock()

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

	if err := p.write("series", series.ID, series); err != nil {
		return persistence.NewSeriesError("SaveSeries", series.ID, err)
	}

	return nil
}

func (p *FilePersistence) DeleteSeries(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.Remove(p.path("series", id)); err != nil {
		if isNotExist(err) {
			return persistence.NewSeriesError("DeleteSeries", id, persistence.ErrSeriesNotFound)
		}

		return persistence.NewSeriesError("DeleteSeries", id, err)
	}

	return nil
}
