package events

import (
	"errors"
	"fmt"

	"github.com/talkbase/series/pkg/models"
)

// ErrInvalidEventData is returned when a visitor event cannot be parsed or
// is missing required fields.
var ErrInvalidEventData = errors.New("invalid event data")

// VisitorEvent is the inbound stimulus published by the ingestion
// collaborators (event tracking, attribute updates) and consumed by the
// series worker. One visitor event both evaluates enrollment and resumes
// matching event waits.
type VisitorEvent struct {
	WorkspaceID string                `json:"workspace_id" validate:"required"`
	VisitorID   string                `json:"visitor_id"   validate:"required"`
	Trigger     models.TriggerContext `json:"trigger"      validate:"required"`
}

func NewVisitorEvent(workspaceID, visitorID string, trigger models.TriggerContext) *VisitorEvent {
	return &VisitorEvent{
		WorkspaceID: workspaceID,
		VisitorID:   visitorID,
		Trigger:     trigger,
	}
}

// Validate checks the event carries a workspace, a visitor, and a
// well-formed trigger context.
func (e *VisitorEvent) Validate() error {
	if e.WorkspaceID == "" {
		return fmt.Errorf("%w: workspace_id is required", ErrInvalidEventData)
	}

	if e.VisitorID == "" {
		return fmt.Errorf("%w: visitor_id is required", ErrInvalidEventData)
	}

	if err := e.Trigger.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEventData, err)
	}

	return nil
}
