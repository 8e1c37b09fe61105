package models

import (
	"errors"
	"fmt"
)

// TriggerKind is the closed set of stimulus sources the engine recognizes.
type TriggerKind string

const (
	TriggerKindEvent            TriggerKind = "event"
	TriggerKindAutoEvent        TriggerKind = "auto_event"
	TriggerKindAttributeChanged TriggerKind = "visitor_attribute_changed"
	TriggerKindStateChanged     TriggerKind = "visitor_state_changed"
)

var ErrInvalidTriggerContext = errors.New("invalid trigger context")

// TriggerContext is the ephemeral stimulus matched against entry and wait
// conditions. It is never persisted by the engine.
type TriggerContext struct {
	Source       TriggerKind `json:"source"`
	EventName    string      `json:"event_name,omitempty"`
	AttributeKey string      `json:"attribute_key,omitempty"`
	FromValue    any         `json:"from_value,omitempty"`
	ToValue      any         `json:"to_value,omitempty"`
}

// Validate enforces the per-source field requirements: event contexts need an
// event name, attribute and state contexts need an attribute key.
func (t TriggerContext) Validate() error {
	switch t.Source {
	case TriggerKindEvent, TriggerKindAutoEvent:
		if t.EventName == "" {
			return fmt.Errorf("%w: %s context requires an event name", ErrInvalidTriggerContext, t.Source)
		}
	case TriggerKindAttributeChanged, TriggerKindStateChanged:
		if t.AttributeKey == "" {
			return fmt.Errorf("%w: %s context requires an attribute key", ErrInvalidTriggerContext, t.Source)
		}
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalidTriggerContext, t.Source)
	}

	return nil
}

// IsEvent reports whether the context carries a visitor event.
func (t TriggerContext) IsEvent() bool {
	return t.Source == TriggerKindEvent || t.Source == TriggerKindAutoEvent
}
