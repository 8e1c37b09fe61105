package file

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkbase/series/pkg/models"
	"github.com/talkbase/series/pkg/persistence"
)

func newTestPersistence(t *testing.T) *FilePersistence {
	t.Helper()

	p, err := NewFilePersistence(t.TempDir())
	require.NoError(t, err)

	return p
}

func TestSaveAndFetchSeries(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	series := &models.Series{
		WorkspaceID: "ws-1",
		Name:        "Onboarding",
		Status:      models.SeriesStatusActive,
		Entry:       models.EntryCondition{Kind: models.TriggerKindEvent, EventName: "signup"},
		Blocks: []*models.SeriesBlock{
			{ID: "b1", Type: models.BlockTypeExit},
		},
	}

	require.NoError(t, p.SaveSeries(ctx, series))
	require.NotEmpty(t, series.ID)

	fetched, err := p.SeriesByID(ctx, series.ID)
	require.NoError(t, err)
	assert.Equal(t, "Onboarding", fetched.Name)
	assert.Equal(t, series.ID, fetched.Blocks[0].SeriesID)

	_, err = p.SeriesByID(ctx, "missing")
	assert.ErrorIs(t, err, persistence.ErrSeriesNotFound)
}

func TestActiveSeriesByWorkspace(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	for _, s := range []*models.Series{
		{WorkspaceID: "ws-1", Name: "Active one", Status: models.SeriesStatusActive},
		{WorkspaceID: "ws-1", Name: "Paused one", Status: models.SeriesStatusPaused},
		{WorkspaceID: "ws-2", Name: "Other workspace", Status: models.SeriesStatusActive},
	} {
		require.NoError(t, p.SaveSeries(ctx, s))
	}

	active, err := p.ActiveSeriesByWorkspace(ctx, "ws-1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Active one", active[0].Name)
}

func TestCreateProgressIdempotency(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	first := &models.SeriesProgress{
		WorkspaceID: "ws-1",
		VisitorID:   "v1",
		SeriesID:    "s1",
		Status:      models.ProgressStatusActive,
	}
	require.NoError(t, p.CreateProgress(ctx, first))

	duplicate := &models.SeriesProgress{
		WorkspaceID: "ws-1",
		VisitorID:   "v1",
		SeriesID:    "s1",
		Status:      models.ProgressStatusActive,
	}
	err := p.CreateProgress(ctx, duplicate)
	assert.ErrorIs(t, err, persistence.ErrProgressExists)

	// Terminal progress does not block re-enrollment.
	first.Status = models.ProgressStatusCompleted
	require.NoError(t, p.SaveProgress(ctx, first))

	require.NoError(t, p.CreateProgress(ctx, &models.SeriesProgress{
		WorkspaceID: "ws-1",
		VisitorID:   "v1",
		SeriesID:    "s1",
		Status:      models.ProgressStatusActive,
	}))
}

func TestCreateProgressConcurrent(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	const attempts = 16

	var wg sync.WaitGroup

	created := make(chan error, attempts)

	for range attempts {
		wg.Add(1)

		go func() {
			defer wg.Done()

			created <- p.CreateProgress(ctx, &models.SeriesProgress{
				WorkspaceID: "ws-1",
				VisitorID:   "v1",
				SeriesID:    "s1",
				Status:      models.ProgressStatusActive,
			})
		}()
	}

	wg.Wait()
	close(created)

	succeeded := 0

	for err := range created {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, persistence.ErrProgressExists)
		}
	}

	assert.Equal(t, 1, succeeded)
}

func TestClaimWaiting(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	eventName := "checkout_completed"
	progress := &models.SeriesProgress{
		WorkspaceID:   "ws-1",
		VisitorID:     "v1",
		SeriesID:      "s1",
		Status:        models.ProgressStatusWaiting,
		WaitEventName: &eventName,
	}
	require.NoError(t, p.CreateProgress(ctx, progress))

	claimed, err := p.ClaimWaiting(ctx, progress.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProgressStatusActive, claimed.Status)
	assert.Nil(t, claimed.WaitEventName)

	// Second claim is rejected: the record already left waiting.
	_, err = p.ClaimWaiting(ctx, progress.ID)
	assert.ErrorIs(t, err, persistence.ErrProgressNotWaiting)
}

func TestWaitingForEvent(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	checkout := "checkout_completed"
	upgrade := "plan_upgraded"

	require.NoError(t, p.CreateProgress(ctx, &models.SeriesProgress{
		WorkspaceID: "ws-1", VisitorID: "v1", SeriesID: "s1",
		Status: models.ProgressStatusWaiting, WaitEventName: &checkout,
	}))
	require.NoError(t, p.CreateProgress(ctx, &models.SeriesProgress{
		WorkspaceID: "ws-1", VisitorID: "v1", SeriesID: "s2",
		Status: models.ProgressStatusWaiting, WaitEventName: &upgrade,
	}))
	require.NoError(t, p.CreateProgress(ctx, &models.SeriesProgress{
		WorkspaceID: "ws-1", VisitorID: "v2", SeriesID: "s1",
		Status: models.ProgressStatusWaiting, WaitEventName: &checkout,
	}))

	waiting, err := p.WaitingForEvent(ctx, "ws-1", "v1", "checkout_completed")
	require.NoError(t, err)
	require.Len(t, waiting, 1)
	assert.Equal(t, "s1", waiting[0].SeriesID)

	none, err := p.WaitingForEvent(ctx, "ws-1", "v1", "never_fired")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDueProgressLimits(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	mkWaiting := func(visitorID, seriesID string, until time.Time) {
		t.Helper()
		require.NoError(t, p.CreateProgress(ctx, &models.SeriesProgress{
			WorkspaceID: "ws-1", VisitorID: visitorID, SeriesID: seriesID,
			Status: models.ProgressStatusWaiting, WaitUntil: &until,
		}))
	}

	mkWaiting("v1", "s1", past)
	mkWaiting("v2", "s1", past)
	mkWaiting("v3", "s1", past)
	mkWaiting("v1", "s2", past)
	mkWaiting("v2", "s2", future)

	due, err := p.DueProgress(ctx, now, 0, 0)
	require.NoError(t, err)
	assert.Len(t, due, 4)

	due, err = p.DueProgress(ctx, now, 2, 2)
	require.NoError(t, err)
	assert.Len(t, due, 3) // two from s1, one from s2

	due, err = p.DueProgress(ctx, now, 1, 1)
	require.NoError(t, err)
	assert.Len(t, due, 1)
}

func TestStalledProgress(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	failed := &models.SeriesProgress{
		WorkspaceID: "ws-1", VisitorID: "v1", SeriesID: "s1",
		Status:             models.ProgressStatusActive,
		AttemptCount:       2,
		LastExecutionError: "send failed",
	}
	require.NoError(t, p.CreateProgress(ctx, failed))

	// An active record with no recorded error is equally stalled once it is
	// old enough: a claim whose owner died looks exactly like this.
	orphaned := &models.SeriesProgress{
		WorkspaceID: "ws-1", VisitorID: "v2", SeriesID: "s1",
		Status: models.ProgressStatusActive,
	}
	require.NoError(t, p.CreateProgress(ctx, orphaned))

	require.NoError(t, p.CreateProgress(ctx, &models.SeriesProgress{
		WorkspaceID: "ws-1", VisitorID: "v3", SeriesID: "s1",
		Status: models.ProgressStatusWaiting,
	}))

	found, err := p.StalledProgress(ctx, time.Now().UTC().Add(time.Second), 10)
	require.NoError(t, err)
	require.Len(t, found, 2)

	ids := []string{found[0].ID, found[1].ID}
	assert.Contains(t, ids, failed.ID)
	assert.Contains(t, ids, orphaned.ID)

	// Nothing is stale against a cutoff in the past.
	found, err = p.StalledProgress(ctx, time.Now().UTC().Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, found)
}
