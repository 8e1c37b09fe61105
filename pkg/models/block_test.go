package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitConfigDurationFor(t *testing.T) {
	tests := []struct {
		name     string
		config   WaitConfig
		expected time.Duration
	}{
		{"five minutes", WaitConfig{WaitType: WaitTypeDuration, Duration: 5, Unit: WaitUnitMinutes}, 5 * time.Minute},
		{"two hours", WaitConfig{WaitType: WaitTypeDuration, Duration: 2, Unit: WaitUnitHours}, 2 * time.Hour},
		{"three days", WaitConfig{WaitType: WaitTypeDuration, Duration: 3, Unit: WaitUnitDays}, 72 * time.Hour},
		{"zero duration", WaitConfig{WaitType: WaitTypeDuration, Duration: 0, Unit: WaitUnitMinutes}, 0},
		{"default unit is minutes", WaitConfig{WaitType: WaitTypeDuration, Duration: 7}, 7 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := tt.config.DurationFor()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
		})
	}
}

func TestWaitConfigDurationForUnknownUnit(t *testing.T) {
	config := WaitConfig{WaitType: WaitTypeDuration, Duration: 1, Unit: "fortnights"}

	_, err := config.DurationFor()
	assert.Error(t, err)
}

func TestWaitConfigValidate(t *testing.T) {
	assert.NoError(t, (&WaitConfig{WaitType: WaitTypeDuration, Duration: 5, Unit: WaitUnitMinutes}).Validate())
	assert.NoError(t, (&WaitConfig{WaitType: WaitTypeEvent, EventName: "checkout_completed"}).Validate())
	assert.Error(t, (&WaitConfig{WaitType: WaitTypeEvent}).Validate())
	assert.Error(t, (&WaitConfig{WaitType: WaitTypeDuration, Duration: -1}).Validate())
	assert.Error(t, (&WaitConfig{WaitType: "sleep"}).Validate())
}

func TestSeriesBlockValidate(t *testing.T) {
	tests := []struct {
		name    string
		block   SeriesBlock
		wantErr bool
	}{
		{"valid wait", SeriesBlock{ID: "b1", Type: BlockTypeWait, Wait: &WaitConfig{WaitType: WaitTypeEvent, EventName: "signup"}}, false},
		{"wait without config", SeriesBlock{ID: "b1", Type: BlockTypeWait}, true},
		{"valid action", SeriesBlock{ID: "b2", Type: BlockTypeAction, Action: &ActionConfig{ActionType: "send_message"}}, false},
		{"action without type", SeriesBlock{ID: "b2", Type: BlockTypeAction, Action: &ActionConfig{}}, true},
		{"valid branch", SeriesBlock{ID: "b3", Type: BlockTypeBranch, Branch: &BranchConfig{Rules: []BranchRule{{Expression: "true", NextBlockID: "b4"}}}}, false},
		{"branch without rules", SeriesBlock{ID: "b3", Type: BlockTypeBranch, Branch: &BranchConfig{}}, true},
		{"exit needs no config", SeriesBlock{ID: "b4", Type: BlockTypeExit}, false},
		{"goal needs no config", SeriesBlock{ID: "b5", Type: BlockTypeGoal}, false},
		{"unknown type", SeriesBlock{ID: "b6", Type: "teleport"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.block.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSeriesBlockLookup(t *testing.T) {
	series := &Series{
		ID: "s1",
		Blocks: []*SeriesBlock{
			{ID: "b1", Type: BlockTypeExit},
			{ID: "b2", Type: BlockTypeGoal},
		},
	}

	block, found := series.Block("b2")
	require.True(t, found)
	assert.Equal(t, BlockTypeGoal, block.Type)

	_, found = series.Block("missing")
	assert.False(t, found)
}
