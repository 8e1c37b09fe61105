package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/talkbase/series/pkg/engine"
	"github.com/talkbase/series/pkg/eventbus"
	"github.com/talkbase/series/pkg/events"
	"github.com/talkbase/series/pkg/ingest"
	"github.com/talkbase/series/pkg/ingest/queue"
	"github.com/talkbase/series/pkg/models"
)

// Worker consumes visitor events and runs the periodic backstop sweep. One
// process can run many workers; claim semantics in the store keep them from
// stepping on each other.
type Worker struct {
	id           string
	engineBus    eventbus.EventBus
	visitorBus   eventbus.VisitorEventBus
	ingest       *ingest.Service
	backstop     *engine.Backstop
	receiver     *queue.Receiver
	backstopSpec string
	logger       *slog.Logger
	restartCount int
}

func NewWorker(
	id string,
	engineBus eventbus.EventBus,
	visitorBus eventbus.VisitorEventBus,
	ingestService *ingest.Service,
	backstop *engine.Backstop,
	receiver *queue.Receiver,
	backstopSpec string,
	logger *slog.Logger,
) *Worker {
	return &Worker{
		id:           id,
		engineBus:    engineBus,
		visitorBus:   visitorBus,
		ingest:       ingestService,
		backstop:     backstop,
		receiver:     receiver,
		backstopSpec: backstopSpec,
		logger:       logger.With("module", "worker"),
	}
}

func (w *Worker) Start(ctx context.Context) {
	wCtx, cancel := context.WithCancel(ctx)

	w.logger.Info("Starting series worker", "worker_id", w.id)

	w.handleSignals(wCtx, cancel)
	w.run(wCtx)
}

func (w *Worker) handleSignals(ctx context.Context, cancel context.CancelFunc) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-signals
		w.logger.Info("Received signal", "signal", sig)

		switch sig {
		case syscall.SIGHUP:
			w.logger.Info("Reloading...")
			w.restart(ctx, cancel)
		case syscall.SIGINT, syscall.SIGTERM:
			w.logger.Info("Shutting down gracefully...")
			cancel()
			os.Exit(0)
		default:
			w.logger.Warn("Unhandled signal received", "signal", sig)
		}
	}()
}

func (w *Worker) restart(ctx context.Context, cancel context.CancelFunc) {
	w.restartCount++
	newCtx := context.WithoutCancel(ctx)

	cancel()

	if w.restartCount > 5 {
		w.logger.Error("Restart limit reached, exiting...")
		os.Exit(1)
	}

	backoff := time.Duration(w.restartCount) * time.Second
	w.logger.Info("Restarting worker...", "backoff", backoff)
	time.Sleep(backoff)

	w.Start(newCtx)
}

func (w *Worker) run(ctx context.Context) {
	if err := w.subscribeVisitorEvents(ctx); err != nil {
		w.logger.Error("Failed to subscribe to visitor events", "error", err)

		return
	}

	if err := w.subscribeEngineEvents(ctx); err != nil {
		w.logger.Error("Failed to subscribe to engine events", "error", err)

		return
	}

	scheduler, err := w.startBackstop(ctx)
	if err != nil {
		w.logger.Error("Failed to start backstop schedule", "error", err)

		return
	}

	if w.receiver != nil {
		if err := w.receiver.Start(ctx, w.ingest.HandleVisitorEvent); err != nil {
			w.logger.Error("Failed to start queue receiver", "error", err)

			return
		}
	}

	<-ctx.Done()
	w.logger.Info("Worker context cancelled, stopping...")

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()

	if w.receiver != nil {
		if err := w.receiver.Stop(context.WithoutCancel(ctx)); err != nil {
			w.logger.Error("Failed to stop queue receiver", "error", err)
		}
	}
}

func (w *Worker) subscribeVisitorEvents(ctx context.Context) error {
	err := w.visitorBus.HandleVisitorEvents(func(ctx context.Context, event *events.VisitorEvent) error {
		return w.ingest.HandleVisitorEvent(ctx, event.WorkspaceID, event.VisitorID, event.Trigger)
	})
	if err != nil {
		return err
	}

	go func() {
		if err := w.visitorBus.SubscribeToVisitorEvents(ctx); err != nil {
			w.logger.Error("Visitor event subscription ended", "error", err)
		}
	}()

	return nil
}

// subscribeEngineEvents surfaces terminal progress transitions in the worker
// log so operators see journey outcomes without querying the store.
func (w *Worker) subscribeEngineEvents(ctx context.Context) error {
	err := w.engineBus.Handle(events.ProgressFinishedEvent, func(ctx context.Context, event any) error {
		finished, ok := event.(*events.ProgressFinished)
		if !ok {
			return fmt.Errorf("unexpected payload for %s", events.ProgressFinishedEvent)
		}

		if finished.Status == models.ProgressStatusFailed {
			w.logger.WarnContext(ctx, "Progress finished",
				"progress_id", finished.ProgressID,
				"series_id", finished.SeriesID,
				"visitor_id", finished.VisitorID,
				"status", finished.Status,
				"error", finished.Error)

			return nil
		}

		w.logger.InfoContext(ctx, "Progress finished",
			"progress_id", finished.ProgressID,
			"series_id", finished.SeriesID,
			"visitor_id", finished.VisitorID,
			"status", finished.Status)

		return nil
	})
	if err != nil {
		return err
	}

	go func() {
		if err := w.engineBus.Subscribe(ctx); err != nil {
			w.logger.Error("Engine event subscription ended", "error", err)
		}
	}()

	return nil
}

// startBackstop schedules the sweep. Overlapping runs are skipped rather
// than stacked so a slow sweep cannot pile up.
func (w *Worker) startBackstop(ctx context.Context) (*cron.Cron, error) {
	scheduler := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DiscardLogger),
	))

	_, err := scheduler.AddFunc(w.backstopSpec, func() {
		summary, err := w.backstop.ProcessWaitingProgress(ctx)
		if err != nil {
			w.logger.Error("Backstop sweep failed", "error", err)

			return
		}

		if summary.Resumed > 0 || summary.Retried > 0 {
			w.logger.Info("Backstop sweep done",
				"due", summary.Due,
				"resumed", summary.Resumed,
				"skipped", summary.Skipped,
				"retried", summary.Retried)
		}
	})
	if err != nil {
		return nil, err
	}

	scheduler.Start()
	w.logger.Info("Backstop schedule started", "spec", w.backstopSpec)

	return scheduler, nil
}
