// Package ingest turns inbound visitor stimuli into engine work: enrollment
// evaluation for every stimulus, plus event-wait resumption when the
// stimulus is a visitor event.
package ingest

import (
	"context"
	"errors"
	"log/slog"

	"github.com/talkbase/series/pkg/engine"
	"github.com/talkbase/series/pkg/models"
)

type Service struct {
	enroller   *engine.Enroller
	dispatcher *engine.Dispatcher
	logger     *slog.Logger
}

func NewService(enroller *engine.Enroller, dispatcher *engine.Dispatcher, logger *slog.Logger) *Service {
	return &Service{
		enroller:   enroller,
		dispatcher: dispatcher,
		logger:     logger.With("module", "ingest"),
	}
}

// HandleVisitorEvent processes one stimulus for one visitor. Resumption runs
// before enrollment so an event that both wakes a waiting progress and
// enrolls into a new series does not wake the progress it just created.
func (s *Service) HandleVisitorEvent(ctx context.Context, workspaceID, visitorID string, trigger models.TriggerContext) error {
	if err := trigger.Validate(); err != nil {
		return err
	}

	logger := s.logger.With(
		"workspace_id", workspaceID,
		"visitor_id", visitorID,
		"trigger_source", trigger.Source,
	)

	var errs []error

	if trigger.IsEvent() {
		resumed, err := s.dispatcher.ResumeWaitingForEvent(ctx, workspaceID, visitorID, trigger.EventName)
		if err != nil {
			logger.Error("Failed to resume waiting progress", "error", err)
			errs = append(errs, err)
		} else if len(resumed) > 0 {
			logger.Info("Resumed waiting progress", "count", len(resumed), "event_name", trigger.EventName)
		}
	}

	enrolled, err := s.enroller.EvaluateEnrollment(ctx, workspaceID, visitorID, trigger)
	if err != nil {
		logger.Error("Failed to evaluate enrollment", "error", err)
		errs = append(errs, err)
	} else if len(enrolled) > 0 {
		logger.Info("Enrolled visitor into series", "count", len(enrolled))
	}

	return errors.Join(errs...)
}
