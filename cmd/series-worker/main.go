package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/talkbase/series/pkg/cmd"
	"github.com/talkbase/series/pkg/conditions"
	"github.com/talkbase/series/pkg/engine"
	"github.com/talkbase/series/pkg/ingest"
	"github.com/talkbase/series/pkg/ingest/queue"
	"github.com/talkbase/series/pkg/log"
	"github.com/talkbase/series/pkg/otelhelper"
	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "series-worker",
		EnableShellCompletion: true,
		Usage:                 "Consume visitor events and drive series progress",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "backstop-cron",
				Usage:   "Cron spec for the backstop sweep",
				Value:   "@every 1m",
				Sources: cli.EnvVars("BACKSTOP_CRON"),
			},
			&cli.StringFlag{
				Name:    "queue-name",
				Usage:   "Redis list to additionally consume visitor events from (optional)",
				Value:   "",
				Sources: cli.EnvVars("QUEUE_NAME"),
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address for the queue receiver",
				Value:   "localhost:6379",
				Sources: cli.EnvVars("REDIS_ADDR"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			tracerProvider, err := otelhelper.InitTracer(ctx, "series-worker")
			if err != nil {
				return fmt.Errorf("failed to initialize tracer: %w", err)
			}
			defer func() {
				if err := tracerProvider.Shutdown(ctx); err != nil {
					slog.Error("Failed to shutdown tracer provider", "error", err)
				}
			}()

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("series-worker").With("worker_id", workerID)

			logger.InfoContext(ctx, "Initializing series worker")

			eventBus := cmd.NewEventBus(command.String("event-bus"), "series-worker", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			visitorBus := cmd.NewVisitorEventBus(command.String("event-bus"), "series-worker", logger)
			defer func() {
				if err := visitorBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close visitor event bus", "error", err)
				}
			}()

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			registry := cmd.NewRegistry(logger, eventBus)

			executor := engine.NewExecutor(persistence, registry,
				conditions.NewExprEvaluator(), eventBus, logger, engine.ExecutorOptions{})
			enroller := engine.NewEnroller(persistence, executor, eventBus, logger)
			dispatcher := engine.NewDispatcher(persistence, executor, logger)
			backstop := engine.NewBackstop(persistence, executor, logger, engine.BackstopOptions{})

			ingestService := ingest.NewService(enroller, dispatcher, logger)

			var receiver *queue.Receiver

			if queueName := command.String("queue-name"); queueName != "" {
				var err error

				receiver, err = queue.NewReceiver(ctx, map[string]any{
					"queue": queueName,
					"connection": map[string]any{
						"addr": command.String("redis-addr"),
					},
				}, logger)
				if err != nil {
					return err
				}
			}

			worker := NewWorker(
				workerID,
				eventBus,
				visitorBus,
				ingestService,
				backstop,
				receiver,
				command.String("backstop-cron"),
				logger,
			)

			worker.Start(ctx)

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
