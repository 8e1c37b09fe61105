// Package models defines the core domain models for the visitor lifecycle
// series engine.
package models

import "time"

// SeriesStatus represents the lifecycle state of a series definition.
type SeriesStatus string

const (
	SeriesStatusDraft    SeriesStatus = "draft"    // Editable, not enrollable
	SeriesStatusActive   SeriesStatus = "active"   // Eligible for new enrollment
	SeriesStatusPaused   SeriesStatus = "paused"   // No new enrollment, in-flight progress continues
	SeriesStatusArchived SeriesStatus = "archived" // Terminal override, in-flight progress is exited
)

// Series represents a visitor automation: a named directed graph of blocks
// that visitors are enrolled into when its entry condition matches a trigger.
// The engine treats it as read-only configuration; mutation belongs to the
// editing surface.
type Series struct {
	ID           string         `json:"id"`
	WorkspaceID  string         `json:"workspace_id" validate:"required"`
	Name         string         `json:"name"         validate:"required,min=3"`
	Status       SeriesStatus   `json:"status"       validate:"required,oneof=draft active paused archived"`
	Entry        EntryCondition `json:"entry"        validate:"required"`
	EntryBlockID string         `json:"entry_block_id"`
	Blocks       []*SeriesBlock `json:"blocks"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Block resolves a block by ID in the series' block arena.
func (s *Series) Block(id string) (*SeriesBlock, bool) {
	for _, block := range s.Blocks {
		if block.ID == id {
			return block, true
		}
	}

	return nil, false
}

// Enrollable reports whether the series accepts new enrollment.
func (s *Series) Enrollable() bool {
	return s.Status == SeriesStatusActive
}

// EntryCondition describes the kind of stimulus that enrolls a visitor into
// the series. Event-entry series carry an event name, attribute/state-entry
// series carry an attribute key.
type EntryCondition struct {
	Kind         TriggerKind `json:"kind"          validate:"required"`
	EventName    string      `json:"event_name,omitempty"`
	AttributeKey string      `json:"attribute_key,omitempty"`
}

// Matches reports whether the entry condition is structurally compatible with
// the trigger context. Event entries match event and auto-event contexts with
// the same event name; attribute and state entries match contexts carrying
// the same attribute key.
func (e EntryCondition) Matches(trigger TriggerContext) bool {
	switch e.Kind {
	case TriggerKindEvent, TriggerKindAutoEvent:
		if trigger.Source != TriggerKindEvent && trigger.Source != TriggerKindAutoEvent {
			return false
		}

		return e.EventName != "" && e.EventName == trigger.EventName
	case TriggerKindAttributeChanged, TriggerKindStateChanged:
		if trigger.Source != e.Kind {
			return false
		}

		return e.AttributeKey != "" && e.AttributeKey == trigger.AttributeKey
	default:
		return false
	}
}
