package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkbase/series/pkg/models"
	"github.com/talkbase/series/pkg/persistence"
	"github.com/talkbase/series/pkg/persistence/file"
	"github.com/talkbase/series/pkg/services"
)

func newProgressService(t *testing.T) (*services.Progress, persistence.Persistence) {
	t.Helper()

	store, err := file.NewFilePersistence(t.TempDir())
	require.NoError(t, err)

	return services.NewProgress(store), store
}

func seedProgress(t *testing.T, store persistence.Persistence, visitorID, seriesID string, status models.ProgressStatus) *models.SeriesProgress {
	t.Helper()

	progress := &models.SeriesProgress{
		WorkspaceID: "ws1",
		VisitorID:   visitorID,
		SeriesID:    seriesID,
		Status:      models.ProgressStatusActive,
	}
	require.NoError(t, store.CreateProgress(context.Background(), progress))

	if status != models.ProgressStatusActive {
		progress.Status = status
		require.NoError(t, store.SaveProgress(context.Background(), progress))
	}

	return progress
}

func TestProgressFetchByID(t *testing.T) {
	service, store := newProgressService(t)
	seeded := seedProgress(t, store, "v1", "s1", models.ProgressStatusActive)

	fetched, err := service.FetchByID(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, fetched.ID)

	_, err = service.FetchByID(context.Background(), "missing")
	assert.ErrorIs(t, err, services.ErrProgressNotFound)
}

func TestProgressListByVisitorIncludesTerminal(t *testing.T) {
	service, store := newProgressService(t)
	seedProgress(t, store, "v1", "s1", models.ProgressStatusCompleted)
	seedProgress(t, store, "v1", "s2", models.ProgressStatusWaiting)
	seedProgress(t, store, "v2", "s1", models.ProgressStatusActive)

	records, err := service.ListByVisitor(context.Background(), "ws1", "v1")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestProgressListByVisitorValidatesInput(t *testing.T) {
	service, _ := newProgressService(t)

	_, err := service.ListByVisitor(context.Background(), "", "v1")
	assert.ErrorIs(t, err, services.ErrInvalidRequest)

	_, err = service.ListByVisitor(context.Background(), "ws1", "")
	assert.ErrorIs(t, err, services.ErrInvalidRequest)
}

func TestProgressListFailedBySeries(t *testing.T) {
	service, store := newProgressService(t)
	seedProgress(t, store, "v1", "s1", models.ProgressStatusFailed)
	seedProgress(t, store, "v2", "s1", models.ProgressStatusFailed)
	seedProgress(t, store, "v3", "s1", models.ProgressStatusCompleted)

	failed, err := service.ListFailedBySeries(context.Background(), "s1", 0)
	require.NoError(t, err)
	assert.Len(t, failed, 2)

	_, err = service.ListFailedBySeries(context.Background(), "", 0)
	assert.ErrorIs(t, err, services.ErrInvalidRequest)
}
