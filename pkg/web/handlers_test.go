package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkbase/series/pkg/models"
	"github.com/talkbase/series/pkg/persistence"
	"github.com/talkbase/series/pkg/persistence/file"
	"github.com/talkbase/series/pkg/registry"
	"github.com/talkbase/series/pkg/services"
	"github.com/talkbase/series/pkg/web"
)

type fixture struct {
	app     *fiber.App
	store   persistence.Persistence
	ingests []models.TriggerContext
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := file.NewFilePersistence(t.TempDir())
	require.NoError(t, err)

	f := &fixture{store: store}

	handlers := web.NewAPIHandlers(
		services.NewSeries(store, validator.New()),
		services.NewProgress(store),
		validator.New(),
		registry.NewRegistry(slog.New(slog.DiscardHandler)),
		func(_ context.Context, _, _ string, trigger models.TriggerContext) error {
			f.ingests = append(f.ingests, trigger)

			return nil
		},
	)

	app := fiber.New()
	app.Get("/series", handlers.GetSeries)
	app.Post("/series", handlers.CreateSeries)
	app.Get("/series/:id", handlers.GetSeriesByID)
	app.Put("/series/:id", handlers.UpdateSeries)
	app.Patch("/series/:id/status", handlers.ChangeSeriesStatus)
	app.Delete("/series/:id", handlers.DeleteSeries)
	app.Get("/series/:id/progress/failed", handlers.GetFailedProgress)
	app.Get("/progress/:id", handlers.GetProgress)
	app.Get("/visitors/:visitorId/progress", handlers.GetVisitorProgress)
	app.Post("/events", handlers.IngestEvent)
	app.Get("/health", handlers.HealthCheck)

	f.app = app

	return f
}

func (f *fixture) request(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.app.Test(req)
	require.NoError(t, err)

	return resp
}

func createRequestBody() web.CreateSeriesRequest {
	next := "x1"

	return web.CreateSeriesRequest{
		WorkspaceID:  "ws1",
		Name:         "welcome journey",
		Entry:        models.EntryCondition{Kind: models.TriggerKindEvent, EventName: "signup"},
		EntryBlockID: "a1",
		Blocks: []*models.SeriesBlock{
			{ID: "a1", Type: models.BlockTypeAction, NextBlockID: &next,
				Action: &models.ActionConfig{ActionType: "log"}},
			{ID: "x1", Type: models.BlockTypeExit},
		},
	}
}

func TestCreateSeriesEndpoint(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, http.MethodPost, "/series", createRequestBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Series
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.SeriesStatusDraft, created.Status)
}

func TestCreateSeriesRejectsBadBody(t *testing.T) {
	f := newFixture(t)

	body := createRequestBody()
	body.Name = "ab"

	resp := f.request(t, http.MethodPost, "/series", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetSeriesByIDNotFound(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, http.MethodGet, "/series/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestChangeSeriesStatusEndpoint(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, http.MethodPost, "/series", createRequestBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Series
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	resp = f.request(t, http.MethodPatch, "/series/"+created.ID+"/status",
		web.ChangeSeriesStatusRequest{Status: models.SeriesStatusActive})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.request(t, http.MethodPatch, "/series/"+created.ID+"/status",
		web.ChangeSeriesStatusRequest{Status: models.SeriesStatusDraft})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteSeriesConflictWhenNotDraft(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, http.MethodPost, "/series", createRequestBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Series
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	resp = f.request(t, http.MethodPatch, "/series/"+created.ID+"/status",
		web.ChangeSeriesStatusRequest{Status: models.SeriesStatusActive})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.request(t, http.MethodDelete, "/series/"+created.ID, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestGetVisitorProgressEndpoint(t *testing.T) {
	f := newFixture(t)

	progress := &models.SeriesProgress{
		WorkspaceID: "ws1", VisitorID: "v1", SeriesID: "s1",
		Status: models.ProgressStatusActive,
	}
	require.NoError(t, f.store.CreateProgress(context.Background(), progress))

	resp := f.request(t, http.MethodGet, "/visitors/v1/progress?workspace_id=ws1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Progress []*models.SeriesProgress `json:"progress"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.Progress, 1)

	resp = f.request(t, http.MethodGet, "/visitors/v1/progress", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIngestEventEndpoint(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, http.MethodPost, "/events", web.IngestEventRequest{
		WorkspaceID: "ws1",
		VisitorID:   "v1",
		Trigger:     models.TriggerContext{Source: models.TriggerKindEvent, EventName: "signup"},
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Len(t, f.ingests, 1)
	assert.Equal(t, "signup", f.ingests[0].EventName)
}

func TestIngestEventRejectsInvalidTrigger(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, http.MethodPost, "/events", web.IngestEventRequest{
		WorkspaceID: "ws1",
		VisitorID:   "v1",
		Trigger:     models.TriggerContext{Source: models.TriggerKindEvent},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, f.ingests)
}

func TestHealthCheckEndpoint(t *testing.T) {
	f := newFixture(t)

	resp := f.request(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
