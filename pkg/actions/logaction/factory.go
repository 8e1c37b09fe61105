package logaction

import "github.com/talkbase/series/pkg/protocol"

func NewLogActionFactory() *LogActionFactory {
	return &LogActionFactory{}
}

type LogActionFactory struct{}

func (*LogActionFactory) ID() string {
	return "log"
}

func (*LogActionFactory) ConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{"type": "string"},
			"level":   map[string]any{"type": "string", "enum": []any{"debug", "info", "warn", "error"}},
		},
	}
}

func (*LogActionFactory) Create(config map[string]any) (protocol.ActionExecutor, error) {
	return NewLogAction(config), nil
}
