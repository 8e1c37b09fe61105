package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkbase/series/pkg/engine"
	"github.com/talkbase/series/pkg/models"
)

func cartSeries() *models.Series {
	return &models.Series{
		ID: "cart", WorkspaceID: "ws1", Name: "abandoned cart", Status: models.SeriesStatusActive,
		Entry:        models.EntryCondition{Kind: models.TriggerKindEvent, EventName: "cart_created"},
		EntryBlockID: "w1",
		Blocks: []*models.SeriesBlock{
			{ID: "w1", Type: models.BlockTypeWait, NextBlockID: strPtr("a1"),
				Wait: &models.WaitConfig{WaitType: models.WaitTypeEvent, EventName: "checkout_completed"}},
			{ID: "a1", Type: models.BlockTypeAction,
				Action: &models.ActionConfig{ActionType: "record"}},
		},
	}
}

// The full checkout journey: cart_created enrolls and suspends on the event
// wait, checkout_completed resumes past it, the confirmation action runs, and
// the graph completes.
func TestResumeWaitingForEventCheckoutJourney(t *testing.T) {
	h := newHarness(t, engine.ExecutorOptions{}, engine.BackstopOptions{})
	saveSeries(t, h.store, cartSeries())

	enrolled, err := h.enroller.EvaluateEnrollment(context.Background(), "ws1", "v1", eventTrigger("cart_created"))
	require.NoError(t, err)
	require.Len(t, enrolled, 1)
	require.Equal(t, models.ProgressStatusWaiting, enrolled[0].Status)

	resumed, err := h.dispatcher.ResumeWaitingForEvent(context.Background(), "ws1", "v1", "checkout_completed")
	require.NoError(t, err)
	require.Len(t, resumed, 1)

	assert.Equal(t, models.ProgressStatusCompleted, resumed[0].Status)
	assert.Nil(t, resumed[0].WaitEventName)
	assert.Equal(t, 1, h.recorder.count())
}

func TestResumeWaitingForEventNoWaitersIsNoOp(t *testing.T) {
	h := newHarness(t, engine.ExecutorOptions{}, engine.BackstopOptions{})

	resumed, err := h.dispatcher.ResumeWaitingForEvent(context.Background(), "ws1", "v1", "checkout_completed")
	require.NoError(t, err)
	assert.Empty(t, resumed)
}

func TestResumeWaitingForEventIgnoresOtherEventNames(t *testing.T) {
	h := newHarness(t, engine.ExecutorOptions{}, engine.BackstopOptions{})
	saveSeries(t, h.store, cartSeries())

	_, err := h.enroller.EvaluateEnrollment(context.Background(), "ws1", "v1", eventTrigger("cart_created"))
	require.NoError(t, err)

	resumed, err := h.dispatcher.ResumeWaitingForEvent(context.Background(), "ws1", "v1", "payment_failed")
	require.NoError(t, err)
	assert.Empty(t, resumed)

	current, err := h.store.CurrentProgress(context.Background(), "v1", "cart")
	require.NoError(t, err)
	assert.Equal(t, models.ProgressStatusWaiting, current.Status)
}

func TestResumeWaitingForEventIsIdempotent(t *testing.T) {
	h := newHarness(t, engine.ExecutorOptions{}, engine.BackstopOptions{})
	saveSeries(t, h.store, cartSeries())

	_, err := h.enroller.EvaluateEnrollment(context.Background(), "ws1", "v1", eventTrigger("cart_created"))
	require.NoError(t, err)

	first, err := h.dispatcher.ResumeWaitingForEvent(context.Background(), "ws1", "v1", "checkout_completed")
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := h.dispatcher.ResumeWaitingForEvent(context.Background(), "ws1", "v1", "checkout_completed")
	require.NoError(t, err)
	assert.Empty(t, second)
	assert.Equal(t, 1, h.recorder.count())
}

func TestResumeWaitingForEventScopedToVisitor(t *testing.T) {
	h := newHarness(t, engine.ExecutorOptions{}, engine.BackstopOptions{})
	saveSeries(t, h.store, cartSeries())

	_, err := h.enroller.EvaluateEnrollment(context.Background(), "ws1", "v1", eventTrigger("cart_created"))
	require.NoError(t, err)

	resumed, err := h.dispatcher.ResumeWaitingForEvent(context.Background(), "ws1", "v2", "checkout_completed")
	require.NoError(t, err)
	assert.Empty(t, resumed)

	current, err := h.store.CurrentProgress(context.Background(), "v1", "cart")
	require.NoError(t, err)
	assert.Equal(t, models.ProgressStatusWaiting, current.Status)
}
