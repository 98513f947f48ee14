package domain

import "time"

// Stage identifies one step of the Terraform workflow.
// Stages within an attempt execute in strict order:
// init before validate before plan before apply. Destroy runs only for
// cleanup after a successful apply.
type Stage string

const (
	// StageInit initializes the working directory and fetches providers.
	StageInit Stage = "init"

	// StageValidate checks the configuration for syntactic validity.
	StageValidate Stage = "validate"

	// StagePlan computes the change set and resource-count deltas.
	StagePlan Stage = "plan"

	// StageApply provisions the planned changes.
	StageApply Stage = "apply"

	// StageDestroy tears down applied resources. Safe to run on a directory
	// with nothing applied; it completes as a success no-op.
	StageDestroy Stage = "destroy"
)

// ApplyStages is the ordered forward workflow for one execution pass.
var ApplyStages = []Stage{StageInit, StageValidate, StagePlan, StageApply}

// ResourceDelta holds the resource counts parsed from plan output,
// e.g. "+3 to create".
type ResourceDelta struct {
	ToCreate  int `json:"resources_to_create"`
	ToModify  int `json:"resources_to_modify"`
	ToDestroy int `json:"resources_to_destroy"`
}

// StageResult is the outcome of one Terraform stage invocation. An attempt
// accumulates an ordered sequence of StageResults across its lifetime,
// including failed stages from earlier iterations.
type StageResult struct {
	// Stage names the workflow step that ran.
	Stage Stage `json:"stage"`

	// Iteration is the attempt iteration this stage ran in (1-based).
	Iteration int `json:"iteration"`

	// Success reports whether the command exited zero.
	Success bool `json:"success"`

	// Command is the exact command line that ran.
	Command string `json:"command"`

	// ExitCode is the process exit code, or -1 for timeouts and spawn errors.
	ExitCode int `json:"exit_code"`

	// Stdout and Stderr hold the captured output.
	Stdout string `json:"stdout,omitempty"`
	Stderr string `json:"stderr,omitempty"`

	// ErrorMessage summarizes the failure; empty on success.
	ErrorMessage string `json:"error_message,omitempty"`

	// Duration is how long the stage ran.
	Duration time.Duration `json:"duration"`

	// Delta holds parsed resource counts; only populated for plan stages.
	Delta *ResourceDelta `json:"delta,omitempty"`
}
