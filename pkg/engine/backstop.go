package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/talkbase/series/pkg/otelhelper"
	"github.com/talkbase/series/pkg/persistence"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultSeriesLimit bounds how many series a single sweep touches.
	DefaultSeriesLimit = 100

	// DefaultWaitingLimitPerSeries bounds resumptions per series per sweep
	// so one huge series cannot starve the rest.
	DefaultWaitingLimitPerSeries = 500

	// DefaultRetryDelay is how long an untouched active record rests
	// before the sweep re-drives its block.
	DefaultRetryDelay = 5 * time.Minute

	// DefaultStalledLimit bounds retried records per sweep.
	DefaultStalledLimit = 200
)

// BackstopOptions tune the periodic sweep. Zero values fall back to the
// defaults.
type BackstopOptions struct {
	SeriesLimit           int
	WaitingLimitPerSeries int
	RetryDelay            time.Duration
	StalledLimit          int
}

// SweepSummary reports what one backstop pass did.
type SweepSummary struct {
	Due     int `json:"due"`
	Resumed int `json:"resumed"`
	Skipped int `json:"skipped"`
	Retried int `json:"retried"`
}

// Backstop is the engine's liveness guarantee. It resumes waiting records
// whose deadline has passed (elapsed duration waits and event waits whose
// event never arrived) and re-drives active records stuck on a failing
// block.
type Backstop struct {
	persistence persistence.Persistence
	executor    *Executor
	tracer      trace.Tracer
	logger      *slog.Logger
	opts        BackstopOptions
}

func NewBackstop(p persistence.Persistence, executor *Executor, logger *slog.Logger, opts BackstopOptions) *Backstop {
	if opts.SeriesLimit <= 0 {
		opts.SeriesLimit = DefaultSeriesLimit
	}

	if opts.WaitingLimitPerSeries <= 0 {
		opts.WaitingLimitPerSeries = DefaultWaitingLimitPerSeries
	}

	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}

	if opts.StalledLimit <= 0 {
		opts.StalledLimit = DefaultStalledLimit
	}

	return &Backstop{
		persistence: p,
		executor:    executor,
		tracer:      otel.Tracer(tracerName),
		logger:      logger.With("module", "backstop"),
		opts:        opts,
	}
}

// ProcessWaitingProgress runs one sweep. Records claimed by a concurrent
// resumer between the query and the claim are counted as skipped; the sweep
// is safe to run from several workers at once.
func (b *Backstop) ProcessWaitingProgress(ctx context.Context) (*SweepSummary, error) {
	ctx, span := otelhelper.StartSpan(ctx, b.tracer, "engine.backstop_sweep")
	defer span.End()

	now := b.executor.now()
	summary := &SweepSummary{}

	due, err := b.persistence.DueProgress(ctx, now, b.opts.SeriesLimit, b.opts.WaitingLimitPerSeries)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to query due progress: %w", err)
	}

	summary.Due = len(due)

	for _, record := range due {
		progress, err := b.executor.Resume(ctx, record.ID, "backstop", nil)
		if err != nil {
			if errors.Is(err, persistence.ErrProgressNotWaiting) {
				summary.Skipped++

				continue
			}

			return summary, fmt.Errorf("failed to resume progress %s: %w", record.ID, err)
		}

		summary.Resumed++
		b.logger.Debug("Due progress resumed",
			"progress_id", progress.ID, "status", progress.Status)
	}

	if err := b.retryStalled(ctx, now, summary); err != nil {
		otelhelper.SetError(span, err)

		return summary, err
	}

	span.SetAttributes(
		attribute.Int("sweep.due", summary.Due),
		attribute.Int("sweep.resumed", summary.Resumed),
		attribute.Int("sweep.skipped", summary.Skipped),
		attribute.Int("sweep.retried", summary.Retried),
	)

	b.logger.Info("Backstop sweep finished",
		"due", summary.Due,
		"resumed", summary.Resumed,
		"skipped", summary.Skipped,
		"retried", summary.Retried)

	return summary, nil
}

// retryStalled re-advances active records nothing has touched for
// RetryDelay: failed action attempts, and claims orphaned by a process that
// died before the next persist. Re-entry is idempotent and the executor's
// attempt bound decides when a failing record gives up for good.
func (b *Backstop) retryStalled(ctx context.Context, now time.Time, summary *SweepSummary) error {
	stalled, err := b.persistence.StalledProgress(ctx, now.Add(-b.opts.RetryDelay), b.opts.StalledLimit)
	if err != nil {
		return fmt.Errorf("failed to query stalled progress: %w", err)
	}

	for _, record := range stalled {
		progress, err := b.executor.Advance(ctx, record, nil)
		if err != nil {
			return fmt.Errorf("failed to retry progress %s: %w", record.ID, err)
		}

		summary.Retried++
		b.logger.Debug("Stalled progress retried",
			"progress_id", progress.ID,
			"status", progress.Status,
			"attempt_count", progress.AttemptCount)
	}

	return nil
}
