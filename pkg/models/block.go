package models

import (
	"fmt"
	"time"
)

// BlockType is the closed set of node kinds a series graph is built from.
type BlockType string

const (
	BlockTypeWait   BlockType = "wait"   // Suspends progress for a duration or until a named event
	BlockTypeAction BlockType = "action" // Invokes a named external action executor
	BlockTypeBranch BlockType = "branch" // Selects the next block by evaluating conditions
	BlockTypeExit   BlockType = "exit"   // Terminal: progress leaves the series
	BlockTypeGoal   BlockType = "goal"   // Terminal: the series goal was reached
)

// WaitType distinguishes duration-based from event-based waits.
type WaitType string

const (
	WaitTypeDuration WaitType = "duration"
	WaitTypeEvent    WaitType = "event"
)

// WaitUnit is the unit of a duration-based wait.
type WaitUnit string

const (
	WaitUnitMinutes WaitUnit = "minutes"
	WaitUnitHours   WaitUnit = "hours"
	WaitUnitDays    WaitUnit = "days"
)

// SeriesBlock is one node in a series graph. Exactly one of the config
// fields is set, matching Type. Next-block references are plain IDs into the
// owning series' block arena, so an accidental cycle is representable; the
// executor bounds each advance with a step budget instead of detecting
// cycles up front.
type SeriesBlock struct {
	ID          string        `json:"id"        validate:"required"`
	SeriesID    string        `json:"series_id"`
	Type        BlockType     `json:"type"      validate:"required,oneof=wait action branch exit goal"`
	Position    int           `json:"position"`
	NextBlockID *string       `json:"next_block_id,omitempty"`
	Wait        *WaitConfig   `json:"wait,omitempty"`
	Action      *ActionConfig `json:"action,omitempty"`
	Branch      *BranchConfig `json:"branch,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Validate checks that the block carries the config its type requires.
func (b *SeriesBlock) Validate() error {
	switch b.Type {
	case BlockTypeWait:
		if b.Wait == nil {
			return fmt.Errorf("wait block %s has no wait config", b.ID)
		}

		return b.Wait.Validate()
	case BlockTypeAction:
		if b.Action == nil || b.Action.ActionType == "" {
			return fmt.Errorf("action block %s has no action type", b.ID)
		}
	case BlockTypeBranch:
		if b.Branch == nil || len(b.Branch.Rules) == 0 {
			return fmt.Errorf("branch block %s has no rules", b.ID)
		}
	case BlockTypeExit, BlockTypeGoal:
	default:
		return fmt.Errorf("block %s has unknown type %q", b.ID, b.Type)
	}

	return nil
}

// WaitConfig configures a wait block. Duration waits suspend until a
// computed deadline; event waits suspend until a named visitor event arrives.
type WaitConfig struct {
	WaitType  WaitType `json:"wait_type" validate:"required,oneof=duration event"`
	Duration  int64    `json:"duration,omitempty"`
	Unit      WaitUnit `json:"unit,omitempty"`
	EventName string   `json:"event_name,omitempty"`
}

// Validate checks the wait config for the fields its wait type requires.
func (w *WaitConfig) Validate() error {
	switch w.WaitType {
	case WaitTypeDuration:
		if w.Duration < 0 {
			return fmt.Errorf("negative wait duration %d", w.Duration)
		}

		if _, err := waitUnitDuration(w.Unit); err != nil {
			return err
		}
	case WaitTypeEvent:
		if w.EventName == "" {
			return fmt.Errorf("event wait has no event name")
		}
	default:
		return fmt.Errorf("unknown wait type %q", w.WaitType)
	}

	return nil
}

// DurationFor normalizes the configured duration and unit into a
// time.Duration. Only meaningful for duration-type waits.
func (w *WaitConfig) DurationFor() (time.Duration, error) {
	unit, err := waitUnitDuration(w.Unit)
	if err != nil {
		return 0, err
	}

	return time.Duration(w.Duration) * unit, nil
}

func waitUnitDuration(unit WaitUnit) (time.Duration, error) {
	switch unit {
	case WaitUnitMinutes, "":
		return time.Minute, nil
	case WaitUnitHours:
		return time.Hour, nil
	case WaitUnitDays:
		return 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown wait unit %q", unit)
	}
}

// ActionConfig names the external executor an action block delegates to and
// carries its opaque configuration.
type ActionConfig struct {
	ActionType    string         `json:"action_type" validate:"required"`
	Configuration map[string]any `json:"configuration,omitempty"`
}

// BranchRule pairs a condition expression with the block to advance to when
// it evaluates true.
type BranchRule struct {
	Expression  string `json:"expression"    validate:"required"`
	NextBlockID string `json:"next_block_id" validate:"required"`
}

// BranchConfig configures a branch block: rules are evaluated in order and
// the first true rule wins; DefaultBlockID is taken when none match. A nil
// default means the branch completes the progress when no rule matches.
type BranchConfig struct {
	Rules          []BranchRule `json:"rules"`
	DefaultBlockID *string      `json:"default_block_id,omitempty"`
}
