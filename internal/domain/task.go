// Package domain provides the core types for Terraform provisioning
// evaluations: task definitions, model descriptors, conversation messages,
// stage results, attempt state, run records, and dataset entries. Types are
// designed so that one attempt's data is fully self-contained and auditable.
package domain

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// OperationKind classifies what a task asks the model to do to the
// infrastructure. The kind is resolved at catalog-load time; components
// branch on the typed constant, never on raw strings.
type OperationKind string

const (
	// OpCreate provisions new resources.
	OpCreate OperationKind = "create"

	// OpRead inspects existing resources without mutating them.
	// Read tasks are verified against plan output rather than an apply delta.
	OpRead OperationKind = "read"

	// OpUpdate modifies resources in place.
	OpUpdate OperationKind = "update"

	// OpDelete removes resources.
	OpDelete OperationKind = "delete"
)

// PromptKind records how much context the task prompt carries.
// Used for dataset stratification, not for control flow.
type PromptKind string

const (
	// PromptVague gives the model almost nothing to work with.
	PromptVague PromptKind = "vague"

	// PromptLittleContext names the goal but omits most parameters.
	PromptLittleContext PromptKind = "little_context"

	// PromptDetailed spells out names, sizes, storage, and networking.
	PromptDetailed PromptKind = "detailed"
)

// validate is the package-level validator instance used for struct validation.
var validate = validator.New(validator.WithRequiredStructEnabled())

// TaskExpectations captures the resource outcome a correct solution produces.
// Zero values mean "no expectation" for that dimension.
type TaskExpectations struct {
	// VMCount is the number of VMs that should exist after a successful apply.
	VMCount int `json:"vm_count" validate:"min=0"`

	// RAMGB is the expected total RAM allocation in gigabytes.
	RAMGB int `json:"ram_gb,omitempty"`

	// CPUs is the expected vCPU count per VM.
	CPUs int `json:"cpus,omitempty"`

	// DiskGB is the expected disk size per VM in gigabytes.
	DiskGB int `json:"disk_gb,omitempty"`
}

// TaskTraits mark tasks that need extra validation sections in their dataset
// entries. They drive configuration-driven fields in the recorder, not
// separate code paths in the retry loop.
type TaskTraits struct {
	// IdempotencyTest marks tasks re-run to confirm a no-op second plan.
	IdempotencyTest bool `json:"idempotency_test,omitempty"`

	// EdgeCase marks tasks expected to fail or warn (e.g. over-provisioning).
	EdgeCase bool `json:"edge_case,omitempty"`

	// Incremental marks tasks that add to existing infrastructure.
	Incremental bool `json:"incremental,omitempty"`

	// Update marks tasks that mutate an existing resource; the recorder
	// additionally checks that the resource identifier survived the change.
	Update bool `json:"update,omitempty"`
}

// TaskDefinition describes one provisioning task. Definitions are immutable:
// they are loaded once at process start and shared read-only across runs.
type TaskDefinition struct {
	// ID uniquely identifies the task, e.g. "C1.2".
	ID string `json:"id" validate:"required"`

	// Description is the human-readable task summary.
	Description string `json:"description" validate:"required"`

	// Prompt is the natural-language instruction sent to the model.
	Prompt string `json:"prompt" validate:"required"`

	// PromptKind records the context level of the prompt.
	PromptKind PromptKind `json:"prompt_kind" validate:"required,oneof=vague little_context detailed"`

	// Operation is the kind of infrastructure change the task requests.
	Operation OperationKind `json:"operation" validate:"required,oneof=create read update delete"`

	// DependsOn lists task IDs whose resources must exist before this task runs.
	DependsOn []string `json:"depends_on,omitempty"`

	// CleanupAfter destroys the task's resources after a successful attempt.
	// Tasks that later tasks depend on leave their resources in place.
	CleanupAfter bool `json:"cleanup_after"`

	// StateBefore names the infrastructure state the task assumes,
	// e.g. "clean_server_0_vms".
	StateBefore string `json:"infrastructure_state_before,omitempty"`

	// Expected describes the resource outcome of a correct solution.
	Expected TaskExpectations `json:"expected"`

	// Traits select extra validation sections for the dataset entry.
	Traits TaskTraits `json:"traits"`
}

// Validate checks if the task definition meets all requirements.
// Returns nil if valid, or a validation error describing the first violation.
func (t *TaskDefinition) Validate() error { return validate.Struct(t) }

// Slug returns the task ID in filesystem-safe form ("C1.2" -> "c1_2").
// Used for working directories, log files, and dataset filenames.
func (t *TaskDefinition) Slug() string {
	return strings.ReplaceAll(strings.ToLower(t.ID), ".", "_")
}
