// Package main provides the series API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/talkbase/series/pkg/persistence"
	"github.com/talkbase/series/pkg/protocol"
	"github.com/talkbase/series/pkg/registry"
	"github.com/talkbase/series/pkg/services"
	"github.com/talkbase/series/pkg/web"
)

type API struct {
	logger         *slog.Logger
	persistence    persistence.Persistence
	registry       *registry.Registry
	visitorHandler protocol.VisitorEventHandler
	validate       *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	p persistence.Persistence,
	reg *registry.Registry,
	visitorHandler protocol.VisitorEventHandler,
) *API {
	return &API{
		logger:         logger,
		persistence:    p,
		registry:       reg,
		visitorHandler: visitorHandler,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	seriesService := services.NewSeries(a.persistence, a.validate)
	progressService := services.NewProgress(a.persistence)

	handlers := web.NewAPIHandlers(seriesService, progressService, a.validate, a.registry, a.visitorHandler)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Series API")
	})

	s := app.Group("/series")
	s.Get("/", handlers.GetSeries)
	s.Post("/", handlers.CreateSeries)
	s.Get("/:id", handlers.GetSeriesByID)
	s.Put("/:id", handlers.UpdateSeries)
	s.Patch("/:id/status", handlers.ChangeSeriesStatus)
	s.Delete("/:id", handlers.DeleteSeries)
	s.Get("/:id/progress/failed", handlers.GetFailedProgress)

	app.Get("/progress/:id", handlers.GetProgress)
	app.Get("/visitors/:visitorId/progress", handlers.GetVisitorProgress)

	app.Post("/events", handlers.IngestEvent)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
