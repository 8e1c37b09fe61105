package file

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/talkbase/series/pkg/models"
	"github.com/talkbase/series/pkg/persistence"
)

// CreateProgress inserts a new record, holding the store lock across the
// existence check and the write so concurrent enrollment for the same
// (visitor, series) pair cannot race past the guard.
func (p *FilePersistence) CreateProgress(ctx context.Context, progress *models.SeriesProgress) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	existing, err := p.currentProgressLocked(progress.VisitorID, progress.SeriesID)
	if err != nil && !persistence.IsProgressNotFound(err) {
		return err
	}

	if existing != nil {
		return persistence.NewProgressError("CreateProgress", existing.ID, persistence.ErrProgressExists)
	}

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

	if err := p.write("progress", progress.ID, progress); err != nil {
		return persistence.NewProgressError("CreateProgress", progress.ID, err)
	}

	return nil
}

func (p *FilePersistence) ProgressByID(ctx context.Context, id string) (*models.SeriesProgress, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.progressByIDLocked(id)
}

func (p *FilePersistence) progressByIDLocked(id string) (*models.SeriesProgress, error) {
	var progress models.SeriesProgress
	if err := p.read("progress", id, &progress); err != nil {
		if isNotExist(err) {
			return nil, persistence.NewProgressError("ProgressByID", id, persistence.ErrProgressNotFound)
		}

		return nil, persistence.NewProgressError("ProgressByID", id, err)
	}

	return &progress, nil
}

func (p *FilePersistence) CurrentProgress(ctx context.Context, visitorID, seriesID string) (*models.SeriesProgress, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.currentProgressLocked(visitorID, seriesID)
}

func (p *FilePersistence) currentProgressLocked(visitorID, seriesID string) (*models.SeriesProgress, error) {
	records, err := p.allProgressLocked()
	if err != nil {
		return nil, err
	}

	for _, progress := range records {
		if progress.VisitorID == visitorID && progress.SeriesID == seriesID && !progress.Status.Terminal() {
			return progress, nil
		}
	}

	return nil, persistence.NewProgressError("CurrentProgress", "", persistence.ErrProgressNotFound)
}

func (p *FilePersistence) ProgressByVisitor(ctx context.Context, workspaceID, visitorID string) ([]*models.SeriesProgress, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	records, err := p.allProgressLocked()
	if err != nil {
		return nil, err
	}

	matched := make([]*models.SeriesProgress, 0)

	for _, progress := range records {
		if progress.WorkspaceID == workspaceID && progress.VisitorID == visitorID {
			matched = append(matched, progress)
		}
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].EnrolledAt.Before(matched[j].EnrolledAt) })

	return matched, nil
}

func (p *FilePersistence) FailedProgressBySeries(ctx context.Context, seriesID string, limit int) ([]*models.SeriesProgress, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	records, err := p.allProgressLocked()
	if err != nil {
		return nil, err
	}

	failed := make([]*models.SeriesProgress, 0)

	for _, progress := range records {
		if progress.SeriesID == seriesID && progress.Status == models.ProgressStatusFailed {
			failed = append(failed, progress)
		}
	}

	sort.Slice(failed, func(i, j int) bool { return failed[i].UpdatedAt.After(failed[j].UpdatedAt) })

	if limit > 0 && len(failed) > limit {
		failed = failed[:limit]
	}

	return failed, nil
}

func (p *FilePersistence) SaveProgress(ctx context.Context, progress *models.SeriesProgress) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	progress.UpdatedAt = time.Now().UTC()

	if err := p.write("progress", progress.ID, progress); err != nil {
		return persistence.NewProgressError("SaveProgress", progress.ID, err)
	}

	return nil
}

// ClaimWaiting performs the waiting -> active compare-and-transition under
// the store lock. A record that already left waiting yields
// ErrProgressNotWaiting so repeated sweeps and duplicate events are no-ops.
func (p *FilePersistence) ClaimWaiting(ctx context.Context, id string) (*models.SeriesProgress, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	progress, err := p.progressByIDLocked(id)
	if err != nil {
		return nil, err
	}

	if progress.Status != models.ProgressStatusWaiting {
		return nil, persistence.NewProgressError("ClaimWaiting", id, persistence.ErrProgressNotWaiting)
	}

	progress.Resume()
	progress.UpdatedAt = time.Now().UTC()

	if err := p.write("progress", progress.ID, progress); err != nil {
		return nil, persistence.NewProgressError("ClaimWaiting", id, err)
	}

	return progress, nil
}

func (p *FilePersistence) WaitingForEvent(ctx context.Context, workspaceID, visitorID, eventName string) ([]*models.SeriesProgress, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	records, err := p.allProgressLocked()
	if err != nil {
		return nil, err
	}

	waiting := make([]*models.SeriesProgress, 0)

	for _, progress := range records {
		if progress.WorkspaceID != workspaceID || progress.VisitorID != visitorID {
			continue
		}

		if progress.Status != models.ProgressStatusWaiting {
			continue
		}

		if progress.WaitEventName != nil && *progress.WaitEventName == eventName {
			waiting = append(waiting, progress)
		}
	}

	return waiting, nil
}

func (p *FilePersistence) DueProgress(ctx context.Context, now time.Time, seriesLimit, waitingLimit int) ([]*models.SeriesProgress, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	records, err := p.allProgressLocked()
	if err != nil {
		return nil, err
	}

	perSeries := make(map[string][]*models.SeriesProgress)

	for _, progress := range records {
		if progress.Status != models.ProgressStatusWaiting || progress.WaitUntil == nil {
			continue
		}

		if progress.WaitUntil.After(now) {
			continue
		}

		if waitingLimit > 0 && len(perSeries[progress.SeriesID]) >= waitingLimit {
			continue
		}

		perSeries[progress.SeriesID] = append(perSeries[progress.SeriesID], progress)
	}

	seriesIDs := make([]string, 0, len(perSeries))
	for seriesID := range perSeries {
		seriesIDs = append(seriesIDs, seriesID)
	}

	sort.Strings(seriesIDs)

	if seriesLimit > 0 && len(seriesIDs) > seriesLimit {
		seriesIDs = seriesIDs[:seriesLimit]
	}

	due := make([]*models.SeriesProgress, 0)
	for _, seriesID := range seriesIDs {
		due = append(due, perSeries[seriesID]...)
	}

	return due, nil
}

func (p *FilePersistence) StalledProgress(ctx context.Context, olderThan time.Time, limit int) ([]*models.SeriesProgress, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	records, err := p.allProgressLocked()
	if err != nil {
		return nil, err
	}

	stalled := make([]*models.SeriesProgress, 0)

	for _, progress := range records {
		if progress.Status != models.ProgressStatusActive {
			continue
		}

		if progress.UpdatedAt.After(olderThan) {
			continue
		}

		stalled = append(stalled, progress)

		if limit > 0 && len(stalled) >= limit {
			break
		}
	}

	return stalled, nil
}

func (p *FilePersistence) allProgressLocked() ([]*models.SeriesProgress, error) {
	ids, err := p.ids("progress")
	if err != nil {
		return nil, err
	}

	records := make([]*models.SeriesProgress, 0, len(ids))

	for _, id := range ids {
		progress, err := p.progressByIDLocked(id)
		if err != nil {
			return nil, err
		}

		records = append(records, progress)
	}

	return records, nil
}
