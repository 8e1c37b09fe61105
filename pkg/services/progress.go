package services

import (
	"context"
	"fmt"

	"github.com/talkbase/series/pkg/models"
	"github.com/talkbase/series/pkg/persistence"
)

// ErrProgressNotFound is re-exported so web handlers depend on one package.
var ErrProgressNotFound = persistence.ErrProgressNotFound

const defaultFailedLimit = 50

// Progress exposes read access to progress records for operators and
// debugging tooling. All mutation happens inside the engine.
type Progress struct {
	persistence persistence.Persistence
}

func NewProgress(p persistence.Persistence) *Progress {
	return &Progress{persistence: p}
}

func (p *Progress) FetchByID(ctx context.Context, id string) (*models.SeriesProgress, error) {
	return p.persistence.ProgressByID(ctx, id)
}

// ListByVisitor returns the visitor's full series history, terminal records
// included.
func (p *Progress) ListByVisitor(ctx context.Context, workspaceID, visitorID string) ([]*models.SeriesProgress, error) {
	if workspaceID == "" {
		return nil, fmt.Errorf("%w: workspace_id is required", ErrInvalidRequest)
	}

	if visitorID == "" {
		return nil, fmt.Errorf("%w: visitor_id is required", ErrInvalidRequest)
	}

	return p.persistence.ProgressByVisitor(ctx, workspaceID, visitorID)
}

// ListFailedBySeries returns recent failed records for one series, newest
// first, for operator remediation.
func (p *Progress) ListFailedBySeries(ctx context.Context, seriesID string, limit int) ([]*models.SeriesProgress, error) {
	if seriesID == "" {
		return nil, fmt.Errorf("%w: series_id is required", ErrInvalidRequest)
	}

	if limit <= 0 {
		limit = defaultFailedLimit
	}

	return p.persistence.FailedProgressBySeries(ctx, seriesID, limit)
}
