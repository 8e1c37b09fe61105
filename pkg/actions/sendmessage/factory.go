package sendmessage

import (
	"github.com/talkbase/series/pkg/eventbus"
	"github.com/talkbase/series/pkg/protocol"
)

func NewSendMessageActionFactory(publisher eventbus.EventPublisher) *SendMessageActionFactory {
	return &SendMessageActionFactory{publisher: publisher}
}

type SendMessageActionFactory struct {
	publisher eventbus.EventPublisher
}

func (*SendMessageActionFactory) ID() string {
	return "send_message"
}

func (*SendMessageActionFactory) ConfigSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"message_id"},
		"properties": map[string]any{
			"message_id": map[string]any{"type": "string", "minLength": 1},
			"channel":    map[string]any{"type": "string"},
			"variables":  map[string]any{"type": "object"},
		},
	}
}

func (f *SendMessageActionFactory) Create(config map[string]any) (protocol.ActionExecutor, error) {
	return NewSendMessageAction(f.publisher, config)
}
