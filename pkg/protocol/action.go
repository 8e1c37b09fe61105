// Package protocol defines the contracts between the series engine and its
// external collaborators.
package protocol

import (
	"context"
	"log/slog"

	"github.com/talkbase/series/pkg/models"
)

// ActionExecutor performs the side effect of one action block for one
// visitor. The engine delivers actions at least once; executors are expected
// to be idempotent per (progress, block) pair.
type ActionExecutor interface {
	Execute(ctx context.Context, visitorID string, config map[string]any, logger *slog.Logger) error
}

// ActionFactory builds an executor for a block's configuration. ConfigSchema
// returns a JSON Schema the registry validates block configuration against
// before the executor ever runs; a nil schema skips validation.
type ActionFactory interface {
	ID() string
	ConfigSchema() map[string]any
	Create(config map[string]any) (ActionExecutor, error)
}

// ConditionEvaluator evaluates a branch-rule expression against the visitor
// scope. Implementations must be pure: no side effects, same answer for the
// same inputs.
type ConditionEvaluator interface {
	Evaluate(ctx context.Context, expression string, scope map[string]any) (bool, error)
}

// VisitorEventHandler consumes one inbound visitor trigger context. The
// ingestion service implements it; receivers (event bus, queue, HTTP) call it.
type VisitorEventHandler func(ctx context.Context, workspaceID, visitorID string, trigger models.TriggerContext) error
