package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/talkbase/series/pkg/models"
	"github.com/talkbase/series/pkg/persistence"
)

// ErrSeriesNotFound is re-exported so web handlers depend on one package.
var ErrSeriesNotFound = persistence.ErrSeriesNotFound

// seriesStatusChanges is the allowed definition lifecycle: draft series
// activate, active and paused series flip between each other, and anything
// live can be archived. Archived is terminal.
var seriesStatusChanges = map[models.SeriesStatus][]models.SeriesStatus{
	models.SeriesStatusDraft:  {models.SeriesStatusActive, models.SeriesStatusArchived},
	models.SeriesStatusActive: {models.SeriesStatusPaused, models.SeriesStatusArchived},
	models.SeriesStatusPaused: {models.SeriesStatusActive, models.SeriesStatusArchived},
}

type Series struct {
	persistence persistence.Persistence
	validator   *validator.Validate
}

func NewSeries(p persistence.Persistence, validate *validator.Validate) *Series {
	return &Series{persistence: p, validator: validate}
}

// HealthCheck reports the persistence layer health for the API health
// endpoint.
func (s *Series) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	if err := s.persistence.HealthCheck(ctx); err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

func (s *Series) FetchByID(ctx context.Context, id string) (*models.Series, error) {
	return s.persistence.SeriesByID(ctx, id)
}

func (s *Series) ListActiveByWorkspace(ctx context.Context, workspaceID string) ([]*models.Series, error) {
	if workspaceID == "" {
		return nil, fmt.Errorf("%w: workspace_id is required", ErrInvalidRequest)
	}

	return s.persistence.ActiveSeriesByWorkspace(ctx, workspaceID)
}

// Create validates and stores a new series definition. New series always
// start as drafts; activation is a separate status change.
func (s *Series) Create(ctx context.Context, series *models.Series) (*models.Series, error) {
	if series == nil {
		return nil, ErrSeriesNil
	}

	series.Status = models.SeriesStatusDraft

	if series.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate series ID: %w", err)
		}

		series.ID = id.String()
	}

	now := time.Now().UTC()
	series.CreatedAt = now
	series.UpdatedAt = now

	for _, block := range series.Blocks {
		block.SeriesID = series.ID
	}

	if err := s.validateDefinition(series); err != nil {
		return nil, err
	}

	if err := s.persistence.SaveSeries(ctx, series); err != nil {
		return nil, fmt.Errorf("failed to save series: %w", err)
	}

	return series, nil
}

// Update replaces the graph and metadata of a non-archived series. Status is
// untouched; use ChangeStatus for lifecycle moves.
func (s *Series) Update(ctx context.Context, id string, update *models.Series) (*models.Series, error) {
	if update == nil {
		return nil, ErrSeriesNil
	}

	existing, err := s.persistence.SeriesByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if existing.Status == models.SeriesStatusArchived {
		return nil, &ServiceError{Op: "UpdateSeries", Err: ErrSeriesArchived}
	}

	existing.Name = update.Name
	existing.Entry = update.Entry
	existing.EntryBlockID = update.EntryBlockID
	existing.Blocks = update.Blocks
	existing.UpdatedAt = time.Now().UTC()

	for _, block := range existing.Blocks {
		block.SeriesID = existing.ID
	}

	if err := s.validateDefinition(existing); err != nil {
		return nil, err
	}

	if err := s.persistence.SaveSeries(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to save series: %w", err)
	}

	return existing, nil
}

// ChangeStatus moves the series through its definition lifecycle. Activation
// re-validates the graph so a draft with a broken graph cannot go live.
func (s *Series) ChangeStatus(ctx context.Context, id string, status models.SeriesStatus) (*models.Series, error) {
	series, err := s.persistence.SeriesByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !seriesStatusChangeAllowed(series.Status, status) {
		return nil, &ServiceError{
			Op:      "ChangeSeriesStatus",
			Message: fmt.Sprintf("cannot move series from %s to %s", series.Status, status),
			Err:     ErrInvalidStatusChange,
		}
	}

	series.Status = status
	series.UpdatedAt = time.Now().UTC()

	if err := s.validateDefinition(series); err != nil {
		return nil, err
	}

	if err := s.persistence.SaveSeries(ctx, series); err != nil {
		return nil, fmt.Errorf("failed to save series: %w", err)
	}

	return series, nil
}

// Delete removes a series definition. Archived series linger for in-flight
// progress exit handling, so only drafts can be deleted.
func (s *Series) Delete(ctx context.Context, id string) error {
	series, err := s.persistence.SeriesByID(ctx, id)
	if err != nil {
		return err
	}

	if series.Status != models.SeriesStatusDraft {
		return &ServiceError{
			Op:      "DeleteSeries",
			Message: "only draft series can be deleted; archive it instead",
			Err:     ErrSeriesHasLiveRun,
		}
	}

	return s.persistence.DeleteSeries(ctx, id)
}

func seriesStatusChangeAllowed(from, to models.SeriesStatus) bool {
	for _, allowed := range seriesStatusChanges[from] {
		if allowed == to {
			return true
		}
	}

	return false
}

// validateDefinition checks structural soundness: field constraints, per-type
// block configs, and that every block reference points into the graph. An
// enrollable series additionally needs a resolvable entry block.
func (s *Series) validateDefinition(series *models.Series) error {
	if err := s.validator.Struct(series); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return fmt.Errorf("failed to validate series: %w", err)
		}

		return &ServiceError{Op: "ValidateSeries", Message: err.Error(), Err: ErrInvalidRequest}
	}

	if series.Name == "" {
		return ErrSeriesNameRequired
	}

	ids := make(map[string]bool, len(series.Blocks))
	for _, block := range series.Blocks {
		ids[block.ID] = true
	}

	for _, block := range series.Blocks {
		if err := block.Validate(); err != nil {
			return &ServiceError{Op: "ValidateSeries", Message: err.Error(), Err: ErrInvalidBlock}
		}

		if err := validateBlockRefs(block, ids); err != nil {
			return err
		}
	}

	if series.Status == models.SeriesStatusActive {
		if series.EntryBlockID == "" {
			return ErrEntryBlockRequired
		}

		if !ids[series.EntryBlockID] {
			return ErrUnknownEntryBlock
		}
	}

	return nil
}

func validateBlockRefs(block *models.SeriesBlock, ids map[string]bool) error {
	refs := make([]string, 0, 4)

	if block.NextBlockID != nil {
		refs = append(refs, *block.NextBlockID)
	}

	if block.Branch != nil {
		for _, rule := range block.Branch.Rules {
			refs = append(refs, rule.NextBlockID)
		}

		if block.Branch.DefaultBlockID != nil {
			refs = append(refs, *block.Branch.DefaultBlockID)
		}
	}

	for _, ref := range refs {
		if !ids[ref] {
			return &ServiceError{
				Op:      "ValidateSeries",
				Message: fmt.Sprintf("block %s references unknown block %s", block.ID, ref),
				Err:     ErrDanglingBlockRef,
			}
		}
	}

	return nil
}
