package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/talkbase/series/pkg/models"
	"github.com/talkbase/series/pkg/persistence"
)

// Dispatcher wakes progress records that are waiting for a named visitor
// event. Claiming is a compare-and-set on the waiting status, so concurrent
// dispatchers and the backstop sweep never double-resume a record.
type Dispatcher struct {
	persistence persistence.Persistence
	executor    *Executor
	logger      *slog.Logger
}

func NewDispatcher(p persistence.Persistence, executor *Executor, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		persistence: p,
		executor:    executor,
		logger:      logger.With("module", "dispatcher"),
	}
}

// ResumeWaitingForEvent resumes every progress of the visitor that waits on
// the given event name. A visitor with no matching waiters is a no-op, not
// an error.
func (d *Dispatcher) ResumeWaitingForEvent(ctx context.Context, workspaceID, visitorID, eventName string) ([]*models.SeriesProgress, error) {
	waiting, err := d.persistence.WaitingForEvent(ctx, workspaceID, visitorID, eventName)
	if err != nil {
		return nil, fmt.Errorf("failed to query waiting progress: %w", err)
	}

	if len(waiting) == 0 {
		return nil, nil
	}

	scope := TriggerScope(visitorID, models.TriggerContext{
		Source:    models.TriggerKindEvent,
		EventName: eventName,
	})

	resumed := make([]*models.SeriesProgress, 0, len(waiting))

	for _, record := range waiting {
		progress, err := d.executor.Resume(ctx, record.ID, "event", scope)
		if err != nil {
			if errors.Is(err, persistence.ErrProgressNotWaiting) {
				d.logger.Debug("Progress claimed elsewhere, skipping",
					"progress_id", record.ID, "event_name", eventName)

				continue
			}

			return resumed, fmt.Errorf("failed to resume progress %s: %w", record.ID, err)
		}

		d.logger.Info("Progress resumed by visitor event",
			"progress_id", progress.ID,
			"visitor_id", visitorID,
			"event_name", eventName,
			"status", progress.Status)

		resumed = append(resumed, progress)
	}

	return resumed, nil
}
