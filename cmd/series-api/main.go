package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/talkbase/series/pkg/cmd"
	"github.com/talkbase/series/pkg/conditions"
	"github.com/talkbase/series/pkg/engine"
	"github.com/talkbase/series/pkg/ingest"
	"github.com/talkbase/series/pkg/log"
	"github.com/talkbase/series/pkg/otelhelper"
	"github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:  "series-api",
		Usage: "Start the series HTTP API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on",
				Value:   9091,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection string for series and progress storage",
				Sources:  cli.EnvVars("DATABASE_URL"),
				Required: true,
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Logging level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			tracerProvider, err := otelhelper.InitTracer(ctx, "series-api")
			if err != nil {
				return fmt.Errorf("failed to initialize tracer: %w", err)
			}
			defer func() {
				if err := tracerProvider.Shutdown(ctx); err != nil {
					slog.Error("Failed to shutdown tracer provider", "error", err)
				}
			}()

			logger := slog.With(
				"module", "series-api",
				"port", command.Int("port"),
			)

			eventBus := cmd.NewEventBus(command.String("event-bus"), "series-api", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.Error("Failed to close event bus", "error", err)
				}
			}()

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.Error("Failed to close persistence", "error", err)
				}
			}()

			registry := cmd.NewRegistry(logger, eventBus)

			executor := engine.NewExecutor(persistence, registry, conditions.NewExprEvaluator(), eventBus, logger, engine.ExecutorOptions{})
			enroller := engine.NewEnroller(persistence, executor, eventBus, logger)
			dispatcher := engine.NewDispatcher(persistence, executor, logger)
			ingestService := ingest.NewService(enroller, dispatcher, logger)

			api := NewAPI(logger, persistence, registry, ingestService.HandleVisitorEvent)

			return api.Start(command.Int("port"))
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}
