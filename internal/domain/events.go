package domain

import "time"

// ProgressEventType identifies the kind of progress event a run emits.
// Using typed constants enables exhaustive switches in event consumers.
type ProgressEventType string

const (
	// EventRunStarted is emitted once when the coordinator begins executing.
	EventRunStarted ProgressEventType = "RunStarted"

	// EventTaskStarted is emitted when an attempt begins for a (task, model) pair.
	EventTaskStarted ProgressEventType = "TaskStarted"

	// EventStageCompleted is emitted after each Terraform stage finishes.
	EventStageCompleted ProgressEventType = "StageCompleted"

	// EventAttemptTerminal is emitted when an attempt reaches a terminal status.
	EventAttemptTerminal ProgressEventType = "AttemptTerminal"

	// EventRunFinished is emitted once when the run reaches a terminal status.
	EventRunFinished ProgressEventType = "RunFinished"
)

// ProgressEvent is one observable side effect of a run, consumed by the
// logging/monitoring collaborator. Events carry identifiers, not payload
// bodies; consumers look up details via the run record or dataset entries.
type ProgressEvent struct {
	Type       ProgressEventType `json:"type"`
	RunID      string            `json:"run_id"`
	TaskID     string            `json:"task_id,omitempty"`
	ModelID    string            `json:"model_id,omitempty"`
	Stage      Stage             `json:"stage,omitempty"`
	Iteration  int               `json:"iteration,omitempty"`
	Status     string            `json:"status,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}
