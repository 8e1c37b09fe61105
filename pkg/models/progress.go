package models

import "time"

// ProgressStatus represents the execution state of one visitor's run through
// a series.
type ProgressStatus string

const (
	ProgressStatusActive      ProgressStatus = "active"       // Mid-execution
	ProgressStatusWaiting     ProgressStatus = "waiting"      // Suspended pending a timer or event
	ProgressStatusCompleted   ProgressStatus = "completed"    // Ran off the end of the graph
	ProgressStatusExited      ProgressStatus = "exited"       // Hit an exit block or the series was archived
	ProgressStatusGoalReached ProgressStatus = "goal_reached" // Hit a goal block
	ProgressStatusFailed      ProgressStatus = "failed"       // Malformed graph, budget overrun, or retries exhausted
)

// Terminal reports whether the status is final. Terminal progress can never
// be resumed.
func (s ProgressStatus) Terminal() bool {
	switch s {
	case ProgressStatusCompleted, ProgressStatusExited, ProgressStatusGoalReached, ProgressStatusFailed:
		return true
	default:
		return false
	}
}

// progressTransitions is the allowed status transition table.
var progressTransitions = map[ProgressStatus][]ProgressStatus{
	ProgressStatusActive: {
		ProgressStatusWaiting,
		ProgressStatusCompleted,
		ProgressStatusExited,
		ProgressStatusGoalReached,
		ProgressStatusFailed,
	},
	ProgressStatusWaiting: {
		ProgressStatusActive,
		ProgressStatusExited, // series archived while suspended
	},
}

// CanTransition reports whether moving a progress from one status to another
// is legal. All transitions out of a terminal status are illegal.
func CanTransition(from, to ProgressStatus) bool {
	for _, allowed := range progressTransitions[from] {
		if allowed == to {
			return true
		}
	}

	return false
}

// SeriesProgress is the durable per-(visitor, series) execution state. At
// most one non-terminal progress exists per pair; the progress repository's
// create-if-absent guard enforces it.
type SeriesProgress struct {
	ID                 string         `json:"id"`
	WorkspaceID        string         `json:"workspace_id" validate:"required"`
	VisitorID          string         `json:"visitor_id"   validate:"required"`
	SeriesID           string         `json:"series_id"    validate:"required"`
	Status             ProgressStatus `json:"status"`
	CurrentBlockID     *string        `json:"current_block_id,omitempty"`
	WaitUntil          *time.Time     `json:"wait_until,omitempty"`
	WaitEventName      *string        `json:"wait_event_name,omitempty"`
	AttemptCount       int            `json:"attempt_count"`
	LastExecutionError string         `json:"last_execution_error,omitempty"`
	EnrolledAt         time.Time      `json:"enrolled_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// Suspend marks the progress waiting. Exactly one of deadline or eventName
// is the primary wake-up; event waits may additionally carry a long-horizon
// deadline as a backstop against lost events.
func (p *SeriesProgress) Suspend(deadline *time.Time, eventName *string) {
	p.Status = ProgressStatusWaiting
	p.WaitUntil = deadline
	p.WaitEventName = eventName
}

// Resume clears the wait state and marks the progress active again.
func (p *SeriesProgress) Resume() {
	p.Status = ProgressStatusActive
	p.WaitUntil = nil
	p.WaitEventName = nil
}

// RecordFailure captures a failed execution attempt at the current block.
func (p *SeriesProgress) RecordFailure(err error) {
	p.AttemptCount++
	p.LastExecutionError = err.Error()
}
