package web

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/talkbase/series/pkg/protocol"
	"github.com/talkbase/series/pkg/registry"
	"github.com/talkbase/series/pkg/services"
)

type APIHandlers struct {
	seriesService   *services.Series
	progressService *services.Progress
	validator       *validator.Validate
	registry        *registry.Registry
	visitorHandler  protocol.VisitorEventHandler
}

func NewAPIHandlers(
	seriesService *services.Series,
	progressService *services.Progress,
	validate *validator.Validate,
	reg *registry.Registry,
	visitorHandler protocol.VisitorEventHandler,
) *APIHandlers {
	return &APIHandlers{
		seriesService:   seriesService,
		progressService: progressService,
		validator:       validate,
		registry:        reg,
		visitorHandler:  visitorHandler,
	}
}

func (h *APIHandlers) GetSeries(c fiber.Ctx) error {
	workspaceID := c.Query("workspace_id")
	if workspaceID == "" {
		return badRequest(c, "workspace_id query parameter is required")
	}

	series, err := h.seriesService.ListActiveByWorkspace(c.Context(), workspaceID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"series": series})
}

func (h *APIHandlers) GetSeriesByID(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Series ID is required")
	}

	series, err := h.seriesService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(series)
}

func (h *APIHandlers) CreateSeries(c fiber.Ctx) error {
	var req CreateSeriesRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.seriesService.Create(c.Context(), req.toModel())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateSeries(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Series ID is required")
	}

	var req UpdateSeriesRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.seriesService.Update(c.Context(), id, req.toModel())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) ChangeSeriesStatus(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Series ID is required")
	}

	var req ChangeSeriesStatusRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.seriesService.ChangeStatus(c.Context(), id, req.Status)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteSeries(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Series ID is required")
	}

	if err := h.seriesService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetProgress(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Progress ID is required")
	}

	progress, err := h.progressService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(progress)
}

func (h *APIHandlers) GetVisitorProgress(c fiber.Ctx) error {
	visitorID := c.Params("visitorId")
	if visitorID == "" {
		return badRequest(c, "Visitor ID is required")
	}

	workspaceID := c.Query("workspace_id")
	if workspaceID == "" {
		return badRequest(c, "workspace_id query parameter is required")
	}

	records, err := h.progressService.ListByVisitor(c.Context(), workspaceID, visitorID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"progress": records})
}

func (h *APIHandlers) GetFailedProgress(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Series ID is required")
	}

	limit := 0

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			return badRequest(c, "Invalid limit: "+err.Error())
		}

		limit = parsed
	}

	failed, err := h.progressService.ListFailedBySeries(c.Context(), id, limit)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"failed": failed})
}

// IngestEvent pushes one visitor stimulus through the engine synchronously.
// Deployments with Kafka or Redis in front use those receivers instead; this
// endpoint serves development and low-volume integrations.
func (h *APIHandlers) IngestEvent(c fiber.Ctx) error {
	var req IngestEventRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := req.Trigger.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.visitorHandler(c.Context(), req.WorkspaceID, req.VisitorID, req.Trigger); err != nil {
		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusAccepted)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, ok := h.seriesService.HealthCheck(c.Context())

	status := "healthy"
	httpStatus := http.StatusOK

	if !ok {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":     status,
		"repository": repositoryCheck,
		"actions":    h.registry.AvailableActions(),
	})
}
