package logaction

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogActionFactory(t *testing.T) {
	factory := NewLogActionFactory()
	assert.Equal(t, "log", factory.ID())
	assert.NotNil(t, factory.ConfigSchema())
}

func TestLogActionFactoryCreate(t *testing.T) {
	tests := []struct {
		name   string
		config map[string]any
	}{
		{name: "empty config", config: map[string]any{}},
		{name: "message and level", config: map[string]any{"message": "hello", "level": "warn"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executor, err := NewLogActionFactory().Create(tt.config)
			require.NoError(t, err)
			assert.NotNil(t, executor)
		})
	}
}

func TestLogActionExecute(t *testing.T) {
	action := NewLogAction(map[string]any{"message": "visitor seen", "level": "debug"})

	err := action.Execute(context.Background(), "v1", nil, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
}

func TestLogActionDefaultsToInfo(t *testing.T) {
	action := NewLogAction(map[string]any{})
	assert.Equal(t, "info", action.level)
}
