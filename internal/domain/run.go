package domain

import "time"

// RunStatus is the lifecycle state of one coordinator invocation.
// A run always reaches completed, failed, or cancelled; attempts inside it
// may individually succeed or fail without affecting the run's own terminus.
type RunStatus string

const (
	// RunPending means the run was accepted but has not started executing.
	RunPending RunStatus = "pending"

	// RunRunning means the coordinator is driving attempts.
	RunRunning RunStatus = "running"

	// RunCompleted means every scheduled attempt reached a terminal state.
	RunCompleted RunStatus = "completed"

	// RunFailed means the run aborted on a configuration error before or
	// between attempts.
	RunFailed RunStatus = "failed"

	// RunCancelled means cancellation was honored between attempts;
	// in-flight work finished and was recorded, later attempts never started.
	RunCancelled RunStatus = "cancelled"
)

// Terminal reports whether the run has finished.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunFailed || s == RunCancelled
}

// AttemptOutcome summarizes one finished (task, model) attempt inside a run.
type AttemptOutcome struct {
	TaskID     string        `json:"task_id"`
	ModelID    string        `json:"model_id"`
	Status     AttemptStatus `json:"status"`
	Iterations int           `json:"iterations"`
	EntryPath  string        `json:"entry_path,omitempty"`
}

// RunRecord identifies one invocation of the run coordinator. It is created
// at run start, mutated by the coordinator as attempts complete, and
// immutable once Status turns terminal. Callers receive value snapshots.
type RunRecord struct {
	// ID uniquely identifies the run.
	ID string `json:"run_id"`

	// Status is the run lifecycle state.
	Status RunStatus `json:"status"`

	// Models are the descriptors selected for this run.
	Models []ModelDescriptor `json:"models"`

	// Tasks are the resolved task IDs in execution order.
	Tasks []string `json:"tasks"`

	// MaxIterations is the per-attempt iteration cap.
	MaxIterations int `json:"max_iterations"`

	// StartedAt and FinishedAt bound the run's lifetime.
	StartedAt  time.Time `json:"start_time"`
	FinishedAt time.Time `json:"end_time,omitempty"`

	// Error describes the configuration failure for RunFailed runs.
	Error string `json:"error,omitempty"`

	// TotalTasks is len(Models) x len(Tasks).
	TotalTasks int `json:"total_tasks"`

	// CompletedTasks and FailedTasks count terminal attempt outcomes.
	CompletedTasks int `json:"completed_tasks"`
	FailedTasks    int `json:"failed_tasks"`

	// Outcomes lists per-attempt results in completion order.
	Outcomes []AttemptOutcome `json:"outcomes,omitempty"`
}

// Clone returns a deep copy of the record so snapshot readers never alias
// coordinator-owned slices.
func (r *RunRecord) Clone() RunRecord {
	out := *r
	out.Models = append([]ModelDescriptor(nil), r.Models...)
	out.Tasks = append([]string(nil), r.Tasks...)
	out.Outcomes = append([]AttemptOutcome(nil), r.Outcomes...)
	return out
}
