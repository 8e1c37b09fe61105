package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/talkbase/series/pkg/eventbus"
	"github.com/talkbase/series/pkg/events"
	"github.com/talkbase/series/pkg/models"
	"github.com/talkbase/series/pkg/otelhelper"
	"github.com/talkbase/series/pkg/persistence"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Enroller decides which series a visitor stimulus enrolls the visitor into.
// At most one live progress per (visitor, series) pair ever exists; the
// create-if-absent store operation enforces that under concurrency.
type Enroller struct {
	persistence persistence.Persistence
	executor    *Executor
	eventBus    eventbus.EventBus
	tracer      trace.Tracer
	logger      *slog.Logger
}

func NewEnroller(p persistence.Persistence, executor *Executor, eventBus eventbus.EventBus, logger *slog.Logger) *Enroller {
	return &Enroller{
		persistence: p,
		executor:    executor,
		eventBus:    eventBus,
		tracer:      otel.Tracer(tracerName),
		logger:      logger.With("module", "enroller"),
	}
}

// EvaluateEnrollment matches the trigger against every active series in the
// workspace and enrolls the visitor into each one whose entry condition
// matches. Already-enrolled pairs are skipped silently. Each new progress is
// advanced immediately, so zero-length graphs finish within this call.
func (en *Enroller) EvaluateEnrollment(ctx context.Context, workspaceID, visitorID string, trigger models.TriggerContext) ([]*models.SeriesProgress, error) {
	if err := trigger.Validate(); err != nil {
		return nil, err
	}

	ctx, span := en.tracer.Start(ctx, "engine.evaluate_enrollment", trace.WithAttributes(
		attribute.String(otelhelper.WorkspaceIDKey, workspaceID),
		attribute.String(otelhelper.VisitorIDKey, visitorID),
		attribute.String("series.trigger.source", string(trigger.Source)),
	))
	defer span.End()

	candidates, err := en.persistence.ActiveSeriesByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active series: %w", err)
	}

	var enrolled []*models.SeriesProgress

	for _, series := range candidates {
		if !series.Enrollable() || !series.Entry.Matches(trigger) {
			continue
		}

		progress, err := en.enroll(ctx, workspaceID, visitorID, series, trigger)
		if err != nil {
			return enrolled, err
		}

		if progress != nil {
			enrolled = append(enrolled, progress)
		}
	}

	return enrolled, nil
}

func (en *Enroller) enroll(ctx context.Context, workspaceID, visitorID string, series *models.Series, trigger models.TriggerContext) (*models.SeriesProgress, error) {
	now := en.executor.now()
	entryBlockID := series.EntryBlockID

	progress := &models.SeriesProgress{
		ID:             uuid.Must(uuid.NewV7()).String(),
		WorkspaceID:    workspaceID,
		VisitorID:      visitorID,
		SeriesID:       series.ID,
		Status:         models.ProgressStatusActive,
		CurrentBlockID: &entryBlockID,
		EnrolledAt:     now,
		UpdatedAt:      now,
	}

	if err := en.persistence.CreateProgress(ctx, progress); err != nil {
		if persistence.IsProgressExists(err) {
			en.logger.Debug("Visitor already enrolled, skipping",
				"visitor_id", visitorID, "series_id", series.ID)

			return nil, nil
		}

		return nil, fmt.Errorf("failed to create progress: %w", err)
	}

	en.logger.Info("Visitor enrolled into series",
		"progress_id", progress.ID,
		"visitor_id", visitorID,
		"series_id", series.ID,
		"entry_block_id", entryBlockID)

	en.publishEnrolled(ctx, progress)

	// A dangling or empty entry pointer is detected by the executor and
	// fails the freshly created record.
	return en.executor.Advance(ctx, progress, TriggerScope(visitorID, trigger))
}

func (en *Enroller) publishEnrolled(ctx context.Context, progress *models.SeriesProgress) {
	if en.eventBus == nil {
		return
	}

	event := events.ProgressEnrolled{
		BaseEvent:  events.NewBaseEvent(events.ProgressEnrolledEvent, progress.WorkspaceID),
		ProgressID: progress.ID,
		VisitorID:  progress.VisitorID,
		SeriesID:   progress.SeriesID,
	}

	if err := en.eventBus.Publish(ctx, progress.ID, event); err != nil {
		en.logger.Error("Failed to publish enrollment event",
			"progress_id", progress.ID, "error", err)
	}
}

// TriggerScope builds the variable scope branch conditions are evaluated
// against for a given stimulus.
func TriggerScope(visitorID string, trigger models.TriggerContext) map[string]any {
	return map[string]any{
		"visitor": map[string]any{"id": visitorID},
		"trigger": map[string]any{
			"source":        string(trigger.Source),
			"event_name":    trigger.EventName,
			"attribute_key": trigger.AttributeKey,
			"from_value":    trigger.FromValue,
			"to_value":      trigger.ToValue,
		},
	}
}
