package domain

import "time"

// AttemptStatus is the lifecycle state of one (task, model) attempt.
type AttemptStatus string

const (
	// AttemptPending means the attempt has not reached a terminal state.
	AttemptPending AttemptStatus = "pending"

	// AttemptSucceeded means the apply stage (or, for read tasks, the plan
	// verification) completed successfully.
	AttemptSucceeded AttemptStatus = "succeeded"

	// AttemptExhausted means the iteration budget ran out before success.
	AttemptExhausted AttemptStatus = "failed_exhausted"

	// AttemptFatal means the model call itself failed after transport
	// retries were exhausted. Distinct from extraction or stage failures,
	// which feed back into the loop instead.
	AttemptFatal AttemptStatus = "failed_fatal"
)

// Terminal reports whether the status ends the attempt.
func (s AttemptStatus) Terminal() bool { return s != AttemptPending }

// Succeeded reports whether the attempt ended in success.
func (s AttemptStatus) Succeeded() bool { return s == AttemptSucceeded }

// AttemptState tracks one running attempt. It is owned exclusively by the
// retry loop driving the attempt and is handed to the recorder once the
// status turns terminal.
type AttemptState struct {
	// TaskID and ModelID identify the (task, model) pair.
	TaskID  string `json:"task_id"`
	ModelID string `json:"model_id"`

	// Iteration is the current prompt/extract/execute cycle, 1-based.
	Iteration int `json:"iteration"`

	// MaxIterations is the configured iteration budget.
	MaxIterations int `json:"max_iterations"`

	// Status is the current lifecycle state.
	Status AttemptStatus `json:"status"`

	// WorkedAsGenerated is true when apply succeeded on the first iteration,
	// i.e. the model's initial code needed no fixes.
	WorkedAsGenerated bool `json:"worked_as_generated"`

	// FatalError describes the transport failure for AttemptFatal attempts.
	FatalError string `json:"fatal_error,omitempty"`

	// Stages is the ordered sequence of stage results across all iterations.
	Stages []StageResult `json:"stages"`

	// StartedAt and FinishedAt bound the attempt's wall-clock lifetime.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// LastStage returns the most recent stage result, or nil before any stage ran.
func (a *AttemptState) LastStage() *StageResult {
	if len(a.Stages) == 0 {
		return nil
	}
	return &a.Stages[len(a.Stages)-1]
}

// StagesFor returns the results recorded for one stage across all iterations.
func (a *AttemptState) StagesFor(stage Stage) []StageResult {
	var out []StageResult
	for _, sr := range a.Stages {
		if sr.Stage == stage {
			out = append(out, sr)
		}
	}
	return out
}
