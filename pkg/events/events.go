// Package events defines the event types the engine publishes and consumes.
package events

import (
	"time"

	"github.com/talkbase/series/pkg/models"
)

type EventType string

// Topics.
const Topic = "series.engine.events"              // Engine lifecycle events
const VisitorEventTopic = "series.visitor.events" // Inbound visitor stimuli

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ProgressEnrolledEvent  EventType = "progress.enrolled"
	ProgressSuspendedEvent EventType = "progress.suspended"
	ProgressResumedEvent   EventType = "progress.resumed"
	ProgressFinishedEvent  EventType = "progress.finished"
	MessageRequestedEvent  EventType = "message.requested"
)

type BaseEvent struct {
	ID          string         `json:"id"`
	Type        EventType      `json:"type"`
	Timestamp   time.Time      `json:"timestamp"`
	WorkspaceID string         `json:"workspace_id"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, workspaceID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		WorkspaceID: workspaceID,
	}
}

// ProgressEnrolled is published when a visitor is enrolled into a series.
type ProgressEnrolled struct {
	BaseEvent

	ProgressID string `json:"progress_id"`
	VisitorID  string `json:"visitor_id"`
	SeriesID   string `json:"series_id"`
}

func (e ProgressEnrolled) GetType() EventType { return ProgressEnrolledEvent }

// ProgressSuspended is published when a progress hits a wait block.
type ProgressSuspended struct {
	BaseEvent

	ProgressID    string     `json:"progress_id"`
	VisitorID     string     `json:"visitor_id"`
	SeriesID      string     `json:"series_id"`
	WaitUntil     *time.Time `json:"wait_until,omitempty"`
	WaitEventName *string    `json:"wait_event_name,omitempty"`
}

func (e ProgressSuspended) GetType() EventType { return ProgressSuspendedEvent }

// ProgressResumed is published when a waiting progress is woken up, either
// by a matching visitor event or by the backstop sweep.
type ProgressResumed struct {
	BaseEvent

	ProgressID string `json:"progress_id"`
	VisitorID  string `json:"visitor_id"`
	SeriesID   string `json:"series_id"`
	ResumedBy  string `json:"resumed_by"` // "event" or "backstop"
}

func (e ProgressResumed) GetType() EventType { return ProgressResumedEvent }

// ProgressFinished is published on every terminal transition.
type ProgressFinished struct {
	BaseEvent

	ProgressID string                `json:"progress_id"`
	VisitorID  string                `json:"visitor_id"`
	SeriesID   string                `json:"series_id"`
	Status     models.ProgressStatus `json:"status"`
	Error      string                `json:"error,omitempty"`
}

func (e ProgressFinished) GetType() EventType { return ProgressFinishedEvent }

// MessageRequested asks the external delivery transport to send a message to
// a visitor. The engine never renders or delivers messages itself.
type MessageRequested struct {
	BaseEvent

	VisitorID string         `json:"visitor_id"`
	MessageID string         `json:"message_id"`
	Channel   string         `json:"channel,omitempty"`
	Variables map[string]any `json:"variables,omitempty"`
}

func (e MessageRequested) GetType() EventType { return MessageRequestedEvent }
