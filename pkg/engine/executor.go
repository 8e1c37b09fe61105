// Package engine implements the visitor lifecycle series engine: enrollment
// evaluation, graph execution, event resumption, and the backstop sweep.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/talkbase/series/pkg/eventbus"
	"github.com/talkbase/series/pkg/events"
	"github.com/talkbase/series/pkg/models"
	"github.com/talkbase/series/pkg/otelhelper"
	"github.com/talkbase/series/pkg/persistence"
	"github.com/talkbase/series/pkg/protocol"
	"github.com/talkbase/series/pkg/registry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultStepBudget bounds non-suspending block transitions per Advance
	// call so an accidental cycle in a graph cannot loop forever.
	DefaultStepBudget = 50

	// DefaultMaxAttempts bounds retries of a failing action block before the
	// progress is failed outright.
	DefaultMaxAttempts = 5

	// DefaultEventWaitHorizon is the backstop deadline attached to
	// event-type waits so a lost event can never stall a progress forever.
	DefaultEventWaitHorizon = 30 * 24 * time.Hour
)

const tracerName = "series-engine"

// ExecutorOptions tune the executor's safety bounds. Zero values fall back
// to the defaults.
type ExecutorOptions struct {
	StepBudget       int
	MaxAttempts      int
	EventWaitHorizon time.Duration
}

// Executor advances a progress record through its series graph until it
// suspends on a wait block or reaches a terminal status. Side effects are
// delegated to registered action executors; branch conditions to the
// condition evaluator.
type Executor struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	conditions  protocol.ConditionEvaluator
	eventBus    eventbus.EventBus
	tracer      trace.Tracer
	logger      *slog.Logger
	opts        ExecutorOptions
	now         func() time.Time
}

func NewExecutor(
	p persistence.Persistence,
	r *registry.Registry,
	conditions protocol.ConditionEvaluator,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
	opts ExecutorOptions,
) *Executor {
	if opts.StepBudget <= 0 {
		opts.StepBudget = DefaultStepBudget
	}

	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}

	if opts.EventWaitHorizon <= 0 {
		opts.EventWaitHorizon = DefaultEventWaitHorizon
	}

	return &Executor{
		persistence: p,
		registry:    r,
		conditions:  conditions,
		eventBus:    eventBus,
		tracer:      otel.Tracer(tracerName),
		logger:      logger.With("module", "executor"),
		opts:        opts,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Advance runs the step loop for one progress record. It never returns an
// error for business failures (malformed graphs, failing actions, budget
// overruns); those become progress state. Errors are reserved for storage
// failures.
func (e *Executor) Advance(ctx context.Context, progress *models.SeriesProgress, scope map[string]any) (*models.SeriesProgress, error) {
	ctx, span := e.tracer.Start(ctx, "engine.advance", trace.WithAttributes(
		attribute.String(otelhelper.ProgressIDKey, progress.ID),
		attribute.String(otelhelper.VisitorIDKey, progress.VisitorID),
		attribute.String(otelhelper.SeriesIDKey, progress.SeriesID),
	))
	defer span.End()

	logger := e.logger.With(
		"progress_id", progress.ID,
		"visitor_id", progress.VisitorID,
		"series_id", progress.SeriesID,
	)

	if progress.Status.Terminal() {
		logger.Debug("Progress already terminal, nothing to advance", "status", progress.Status)

		return progress, nil
	}

	series, err := e.persistence.SeriesByID(ctx, progress.SeriesID)
	if err != nil {
		if persistence.IsSeriesNotFound(err) {
			return e.finish(ctx, progress, models.ProgressStatusFailed,
				fmt.Sprintf("series %s no longer exists", progress.SeriesID))
		}

		otelhelper.SetError(span, err, attribute.String(otelhelper.SeriesIDKey, progress.SeriesID))

		return nil, fmt.Errorf("failed to fetch series %s: %w", progress.SeriesID, err)
	}

	// Archival is a terminal override that does not wait for the current
	// block to finish.
	if series.Status == models.SeriesStatusArchived {
		logger.Info("Series archived, exiting progress")

		return e.finish(ctx, progress, models.ProgressStatusExited, "")
	}

	for steps := 0; steps < e.opts.StepBudget; steps++ {
		if progress.CurrentBlockID == nil {
			return e.finish(ctx, progress, models.ProgressStatusCompleted, "")
		}

		if *progress.CurrentBlockID == "" {
			return e.finish(ctx, progress, models.ProgressStatusFailed, "series has no entry block")
		}

		block, found := series.Block(*progress.CurrentBlockID)
		if !found {
			return e.finish(ctx, progress, models.ProgressStatusFailed,
				fmt.Sprintf("block %s not found in series %s", *progress.CurrentBlockID, series.ID))
		}

		logger.Debug("Executing block", "block_id", block.ID, "block_type", block.Type)

		switch block.Type {
		case models.BlockTypeWait:
			suspended, done, err := e.executeWait(ctx, progress, block)
			if err != nil || done {
				return suspended, err
			}
			// Elapsed zero-length wait: fall through to the next block.

		case models.BlockTypeAction:
			advanced, done, err := e.executeAction(ctx, progress, block, logger)
			if err != nil || done {
				return advanced, err
			}

		case models.BlockTypeBranch:
			next, err := e.selectBranch(ctx, block, scope)
			if err != nil {
				return e.finish(ctx, progress, models.ProgressStatusFailed,
					fmt.Sprintf("branch block %s: %v", block.ID, err))
			}

			progress.CurrentBlockID = next

		case models.BlockTypeExit:
			return e.finish(ctx, progress, models.ProgressStatusExited, "")

		case models.BlockTypeGoal:
			return e.finish(ctx, progress, models.ProgressStatusGoalReached, "")

		default:
			return e.finish(ctx, progress, models.ProgressStatusFailed,
				fmt.Sprintf("block %s has unknown type %q", block.ID, block.Type))
		}
	}

	return e.finish(ctx, progress, models.ProgressStatusFailed,
		fmt.Sprintf("step budget of %d exceeded at block %s; series graph may contain a cycle",
			e.opts.StepBudget, deref(progress.CurrentBlockID)))
}

// executeWait suspends the progress on the wait block. A duration wait whose
// deadline has already passed does not suspend; the caller falls through to
// the next block. Event waits carry a long-horizon deadline as a backstop
// against lost events.
func (e *Executor) executeWait(ctx context.Context, progress *models.SeriesProgress, block *models.SeriesBlock) (*models.SeriesProgress, bool, error) {
	if block.Wait == nil {
		finished, err := e.finish(ctx, progress, models.ProgressStatusFailed,
			fmt.Sprintf("wait block %s has no wait config", block.ID))

		return finished, true, err
	}

	switch block.Wait.WaitType {
	case models.WaitTypeDuration:
		duration, err := block.Wait.DurationFor()
		if err != nil {
			finished, ferr := e.finish(ctx, progress, models.ProgressStatusFailed,
				fmt.Sprintf("wait block %s: %v", block.ID, err))

			return finished, true, ferr
		}

		now := e.now()

		deadline := now.Add(duration)
		if !deadline.After(now) {
			progress.CurrentBlockID = block.NextBlockID

			return progress, false, nil
		}

		progress.Suspend(&deadline, nil)

	case models.WaitTypeEvent:
		if block.Wait.EventName == "" {
			finished, err := e.finish(ctx, progress, models.ProgressStatusFailed,
				fmt.Sprintf("wait block %s has no event name", block.ID))

			return finished, true, err
		}

		eventName := block.Wait.EventName
		horizon := e.now().Add(e.opts.EventWaitHorizon)
		progress.Suspend(&horizon, &eventName)

	default:
		finished, err := e.finish(ctx, progress, models.ProgressStatusFailed,
			fmt.Sprintf("wait block %s has unknown wait type %q", block.ID, block.Wait.WaitType))

		return finished, true, err
	}

	if err := e.persistence.SaveProgress(ctx, progress); err != nil {
		return nil, true, fmt.Errorf("failed to persist suspension: %w", err)
	}

	e.publish(ctx, progress.ID, events.ProgressSuspended{
		BaseEvent:     events.NewBaseEvent(events.ProgressSuspendedEvent, progress.WorkspaceID),
		ProgressID:    progress.ID,
		VisitorID:     progress.VisitorID,
		SeriesID:      progress.SeriesID,
		WaitUntil:     progress.WaitUntil,
		WaitEventName: progress.WaitEventName,
	})

	return progress, true, nil
}

// executeAction runs the named executor for the action block. A failure does
// not advance past the block: the attempt is recorded and the block retried
// on the next invocation, until MaxAttempts is exhausted.
func (e *Executor) executeAction(ctx context.Context, progress *models.SeriesProgress, block *models.SeriesBlock, logger *slog.Logger) (*models.SeriesProgress, bool, error) {
	if block.Action == nil {
		finished, err := e.finish(ctx, progress, models.ProgressStatusFailed,
			fmt.Sprintf("action block %s has no action config", block.ID))

		return finished, true, err
	}

	actionLogger := logger.With("block_id", block.ID, "action_type", block.Action.ActionType)

	err := e.runAction(ctx, progress, block, actionLogger)
	if err == nil {
		progress.AttemptCount = 0
		progress.LastExecutionError = ""
		progress.CurrentBlockID = block.NextBlockID

		return progress, false, nil
	}

	actionLogger.Warn("Action execution failed", "error", err, "attempt", progress.AttemptCount+1)
	progress.RecordFailure(err)

	if progress.AttemptCount >= e.opts.MaxAttempts {
		finished, ferr := e.finish(ctx, progress, models.ProgressStatusFailed,
			fmt.Sprintf("action %s failed after %d attempts: %v", block.Action.ActionType, progress.AttemptCount, err))

		return finished, true, ferr
	}

	if err := e.persistence.SaveProgress(ctx, progress); err != nil {
		return nil, true, fmt.Errorf("failed to persist attempt: %w", err)
	}

	return progress, true, nil
}

func (e *Executor) runAction(ctx context.Context, progress *models.SeriesProgress, block *models.SeriesBlock, logger *slog.Logger) error {
	executor, err := e.registry.CreateAction(block.Action.ActionType, block.Action.Configuration)
	if err != nil {
		return err
	}

	return executor.Execute(ctx, progress.VisitorID, block.Action.Configuration, logger)
}

// selectBranch evaluates the branch rules in order and returns the first
// matching next-block reference, or the default when none match.
func (e *Executor) selectBranch(ctx context.Context, block *models.SeriesBlock, scope map[string]any) (*string, error) {
	if block.Branch == nil {
		return nil, fmt.Errorf("no branch config")
	}

	for _, rule := range block.Branch.Rules {
		matched, err := e.conditions.Evaluate(ctx, rule.Expression, scope)
		if err != nil {
			return nil, err
		}

		if matched {
			next := rule.NextBlockID

			return &next, nil
		}
	}

	return block.Branch.DefaultBlockID, nil
}

// finish moves the progress to a terminal status, persists it, and publishes
// the terminal event. Illegal transitions are logged and dropped rather than
// corrupting a terminal record.
func (e *Executor) finish(ctx context.Context, progress *models.SeriesProgress, status models.ProgressStatus, reason string) (*models.SeriesProgress, error) {
	if !models.CanTransition(progress.Status, status) {
		e.logger.Error("Refusing illegal status transition",
			"progress_id", progress.ID, "from", progress.Status, "to", status)

		return progress, nil
	}

	progress.Status = status
	progress.WaitUntil = nil
	progress.WaitEventName = nil

	if reason != "" {
		progress.LastExecutionError = reason
	}

	if err := e.persistence.SaveProgress(ctx, progress); err != nil {
		return nil, fmt.Errorf("failed to persist terminal status: %w", err)
	}

	e.logger.Info("Progress finished",
		"progress_id", progress.ID, "status", status, "reason", reason)

	e.publish(ctx, progress.ID, events.ProgressFinished{
		BaseEvent:  events.NewBaseEvent(events.ProgressFinishedEvent, progress.WorkspaceID),
		ProgressID: progress.ID,
		VisitorID:  progress.VisitorID,
		SeriesID:   progress.SeriesID,
		Status:     status,
		Error:      reason,
	})

	return progress, nil
}

// Resume claims a waiting progress, moves it past its wait block, and
// advances it. A record that already left waiting yields
// persistence.ErrProgressNotWaiting, which callers treat as a no-op.
func (e *Executor) Resume(ctx context.Context, progressID, resumedBy string, scope map[string]any) (*models.SeriesProgress, error) {
	progress, err := e.persistence.ClaimWaiting(ctx, progressID)
	if err != nil {
		return nil, err
	}

	series, err := e.persistence.SeriesByID(ctx, progress.SeriesID)
	if err == nil && series.Status != models.SeriesStatusArchived && progress.CurrentBlockID != nil {
		if block, found := series.Block(*progress.CurrentBlockID); found && block.Type == models.BlockTypeWait {
			progress.CurrentBlockID = block.NextBlockID

			if err := e.persistence.SaveProgress(ctx, progress); err != nil {
				return nil, fmt.Errorf("failed to persist resumption: %w", err)
			}
		}
	}

	e.publish(ctx, progress.ID, events.ProgressResumed{
		BaseEvent:  events.NewBaseEvent(events.ProgressResumedEvent, progress.WorkspaceID),
		ProgressID: progress.ID,
		VisitorID:  progress.VisitorID,
		SeriesID:   progress.SeriesID,
		ResumedBy:  resumedBy,
	})

	return e.Advance(ctx, progress, scope)
}

// publish sends an engine event, logging and swallowing bus failures so
// observability problems never block execution.
func (e *Executor) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.eventBus == nil {
		return
	}

	if err := e.eventBus.Publish(ctx, key, event); err != nil {
		e.logger.Error("Failed to publish engine event",
			"event_type", event.GetType(), "error", err)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
