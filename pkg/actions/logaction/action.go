// Package logaction provides a diagnostic action that writes a structured
// log line for the visitor. Useful while authoring a series, before real
// side effects are wired in.
package logaction

import (
	"context"
	"log/slog"
)

type LogAction struct {
	message string
	level   string
}

func NewLogAction(config map[string]any) *LogAction {
	message, _ := config["message"].(string)

	level, _ := config["level"].(string)
	if level == "" {
		level = "info"
	}

	return &LogAction{message: message, level: level}
}

func (a *LogAction) Execute(ctx context.Context, visitorID string, _ map[string]any, logger *slog.Logger) error {
	logger = logger.With("action_type", "log", "visitor_id", visitorID)

	switch a.level {
	case "debug":
		logger.DebugContext(ctx, a.message)
	case "warn":
		logger.WarnContext(ctx, a.message)
	case "error":
		logger.ErrorContext(ctx, a.message)
	default:
		logger.InfoContext(ctx, a.message)
	}

	return nil
}
