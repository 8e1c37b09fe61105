package tag

import "github.com/talkbase/series/pkg/protocol"

func NewTagActionFactory() *TagActionFactory {
	return &TagActionFactory{}
}

type TagActionFactory struct{}

func (*TagActionFactory) ID() string {
	return "tag"
}

func (*TagActionFactory) ConfigSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"tag", "endpoint"},
		"properties": map[string]any{
			"tag":       map[string]any{"type": "string", "minLength": 1},
			"endpoint":  map[string]any{"type": "string", "minLength": 1},
			"operation": map[string]any{"type": "string", "enum": []any{"add", "remove"}},
		},
	}
}

func (*TagActionFactory) Create(config map[string]any) (protocol.ActionExecutor, error) {
	return NewTagAction(config)
}
