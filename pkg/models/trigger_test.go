package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTriggerContextValidate(t *testing.T) {
	tests := []struct {
		name    string
		trigger TriggerContext
		wantErr bool
	}{
		{"event with name", TriggerContext{Source: TriggerKindEvent, EventName: "signup"}, false},
		{"auto event with name", TriggerContext{Source: TriggerKindAutoEvent, EventName: "page_view"}, false},
		{"event without name", TriggerContext{Source: TriggerKindEvent}, true},
		{"attribute change with key", TriggerContext{Source: TriggerKindAttributeChanged, AttributeKey: "plan"}, false},
		{"attribute change without key", TriggerContext{Source: TriggerKindAttributeChanged}, true},
		{"state change with key", TriggerContext{Source: TriggerKindStateChanged, AttributeKey: "lifecycle_stage"}, false},
		{"unknown source", TriggerContext{Source: "webhook"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.trigger.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTriggerContext)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEntryConditionMatches(t *testing.T) {
	eventEntry := EntryCondition{Kind: TriggerKindEvent, EventName: "signup"}
	attributeEntry := EntryCondition{Kind: TriggerKindAttributeChanged, AttributeKey: "plan"}

	tests := []struct {
		name    string
		entry   EntryCondition
		trigger TriggerContext
		matches bool
	}{
		{"event entry matches same event", eventEntry, TriggerContext{Source: TriggerKindEvent, EventName: "signup"}, true},
		{"event entry matches auto event", eventEntry, TriggerContext{Source: TriggerKindAutoEvent, EventName: "signup"}, true},
		{"event entry rejects other event", eventEntry, TriggerContext{Source: TriggerKindEvent, EventName: "cart_created"}, false},
		{"event entry rejects attribute context", eventEntry, TriggerContext{Source: TriggerKindAttributeChanged, AttributeKey: "plan"}, false},
		{"attribute entry matches key", attributeEntry, TriggerContext{Source: TriggerKindAttributeChanged, AttributeKey: "plan"}, true},
		{"attribute entry rejects other key", attributeEntry, TriggerContext{Source: TriggerKindAttributeChanged, AttributeKey: "country"}, false},
		{"attribute entry rejects state context", attributeEntry, TriggerContext{Source: TriggerKindStateChanged, AttributeKey: "plan"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.matches, tt.entry.Matches(tt.trigger))
		})
	}
}
