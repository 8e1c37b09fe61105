package ingest_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkbase/series/pkg/conditions"
	"github.com/talkbase/series/pkg/engine"
	"github.com/talkbase/series/pkg/ingest"
	"github.com/talkbase/series/pkg/models"
	"github.com/talkbase/series/pkg/persistence"
	"github.com/talkbase/series/pkg/persistence/file"
	"github.com/talkbase/series/pkg/registry"
)

func strPtr(s string) *string { return &s }

func newService(t *testing.T) (*ingest.Service, persistence.Persistence) {
	t.Helper()

	store, err := file.NewFilePersistence(t.TempDir())
	require.NoError(t, err)

	logger := slog.New(slog.DiscardHandler)
	executor := engine.NewExecutor(store, registry.NewRegistry(logger),
		conditions.NewExprEvaluator(), nil, logger, engine.ExecutorOptions{})

	return ingest.NewService(
		engine.NewEnroller(store, executor, nil, logger),
		engine.NewDispatcher(store, executor, logger),
		logger,
	), store
}

func waitSeries(id, entryEvent, waitEvent string) *models.Series {
	return &models.Series{
		ID: id, WorkspaceID: "ws1", Name: id, Status: models.SeriesStatusActive,
		Entry:        models.EntryCondition{Kind: models.TriggerKindEvent, EventName: entryEvent},
		EntryBlockID: "w1",
		Blocks: []*models.SeriesBlock{
			{ID: "w1", Type: models.BlockTypeWait, NextBlockID: strPtr("x1"),
				Wait: &models.WaitConfig{WaitType: models.WaitTypeEvent, EventName: waitEvent}},
			{ID: "x1", Type: models.BlockTypeExit},
		},
	}
}

func TestHandleVisitorEventEnrolls(t *testing.T) {
	service, store := newService(t)
	require.NoError(t, store.SaveSeries(context.Background(), waitSeries("s1", "signup", "verified")))

	err := service.HandleVisitorEvent(context.Background(), "ws1", "v1",
		models.TriggerContext{Source: models.TriggerKindEvent, EventName: "signup"})
	require.NoError(t, err)

	progress, err := store.CurrentProgress(context.Background(), "v1", "s1")
	require.NoError(t, err)
	assert.Equal(t, models.ProgressStatusWaiting, progress.Status)
}

func TestHandleVisitorEventResumesWaiters(t *testing.T) {
	service, store := newService(t)
	require.NoError(t, store.SaveSeries(context.Background(), waitSeries("s1", "signup", "verified")))

	require.NoError(t, service.HandleVisitorEvent(context.Background(), "ws1", "v1",
		models.TriggerContext{Source: models.TriggerKindEvent, EventName: "signup"}))

	require.NoError(t, service.HandleVisitorEvent(context.Background(), "ws1", "v1",
		models.TriggerContext{Source: models.TriggerKindEvent, EventName: "verified"}))

	all, err := store.ProgressByVisitor(context.Background(), "ws1", "v1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, models.ProgressStatusExited, all[0].Status)
}

// A stimulus that both wakes a waiter and enrolls into a new series must not
// immediately wake the freshly created wait.
func TestHandleVisitorEventResumesBeforeEnrolling(t *testing.T) {
	service, store := newService(t)
	require.NoError(t, store.SaveSeries(context.Background(), waitSeries("s1", "signup", "checkout")))
	require.NoError(t, store.SaveSeries(context.Background(), waitSeries("s2", "checkout", "checkout")))

	require.NoError(t, service.HandleVisitorEvent(context.Background(), "ws1", "v1",
		models.TriggerContext{Source: models.TriggerKindEvent, EventName: "signup"}))

	require.NoError(t, service.HandleVisitorEvent(context.Background(), "ws1", "v1",
		models.TriggerContext{Source: models.TriggerKindEvent, EventName: "checkout"}))

	first, err := store.ProgressByVisitor(context.Background(), "ws1", "v1")
	require.NoError(t, err)
	require.Len(t, first, 2)

	fresh, err := store.CurrentProgress(context.Background(), "v1", "s2")
	require.NoError(t, err)
	assert.Equal(t, models.ProgressStatusWaiting, fresh.Status)
}

func TestHandleVisitorEventRejectsInvalidTrigger(t *testing.T) {
	service, _ := newService(t)

	err := service.HandleVisitorEvent(context.Background(), "ws1", "v1", models.TriggerContext{})
	assert.ErrorIs(t, err, models.ErrInvalidTriggerContext)
}

func TestHandleVisitorEventAttributeChangeSkipsResumption(t *testing.T) {
	service, store := newService(t)
	require.NoError(t, store.SaveSeries(context.Background(), waitSeries("s1", "signup", "plan")))

	require.NoError(t, service.HandleVisitorEvent(context.Background(), "ws1", "v1",
		models.TriggerContext{Source: models.TriggerKindEvent, EventName: "signup"}))

	// An attribute change named like the awaited event is not a visitor
	// event and must not wake the waiter.
	require.NoError(t, service.HandleVisitorEvent(context.Background(), "ws1", "v1",
		models.TriggerContext{Source: models.TriggerKindAttributeChanged, AttributeKey: "plan"}))

	progress, err := store.CurrentProgress(context.Background(), "v1", "s1")
	require.NoError(t, err)
	assert.Equal(t, models.ProgressStatusWaiting, progress.Status)
}
