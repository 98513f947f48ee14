package domain

import "time"

// DatasetVersion is the schema version written into every entry.
const DatasetVersion = "1.0"

// ArtifactRef points at a captured visual-verification artifact.
// Paths are relative to the dataset base directory.
type ArtifactRef struct {
	// Kind names what the artifact shows, e.g. "xo_vm_list", "vm_details".
	Kind string `json:"kind"`

	// Path is the artifact location relative to the base directory.
	Path string `json:"path"`
}

// PromptRecord captures what the model was asked.
type PromptRecord struct {
	InputText   string     `json:"input_text"`
	PromptKind  PromptKind `json:"prompt_type"`
	StateBefore string     `json:"infrastructure_state_before"`
}

// ResponseRecord captures what the model produced on its first iteration.
type ResponseRecord struct {
	GeneratedCode  string   `json:"generated_code"`
	QuestionsAsked []string `json:"questions_asked"`
	TimeSeconds    float64  `json:"time_to_generate_seconds"`
}

// OutcomeRecord summarizes how the attempt ended.
type OutcomeRecord struct {
	WorkedAsGenerated   bool `json:"worked_as_generated"`
	WorkedAfterFixes    bool `json:"worked_after_fixes"`
	TotalFixesNeeded    int  `json:"total_fixes_needed"`
	TotalIterations     int  `json:"total_iterations"`
	ExecutionSuccessful bool `json:"execution_successful"`
}

// UpdateValidation records whether an update preserved the resource identity.
// Only present on entries for update-trait tasks.
type UpdateValidation struct {
	ResourceIDPreserved bool `json:"resource_id_preserved"`
	InPlaceModification bool `json:"in_place_modification"`
}

// DeleteValidation records the pre/post resource count delta for delete tasks.
type DeleteValidation struct {
	ResourcesDestroyed int `json:"resources_destroyed"`
	RemainingExpected  int `json:"remaining_expected"`
}

// EdgeCaseValidation records how an expected-failure task behaved.
type EdgeCaseValidation struct {
	FailedAsExpected bool   `json:"failed_as_expected"`
	FailureStage     string `json:"failure_stage,omitempty"`
}

// IncrementalValidation records whether an additive task left existing
// resources untouched. Only present on entries for incremental-trait tasks.
type IncrementalValidation struct {
	ResourcesAdded    int  `json:"resources_added"`
	ExistingPreserved bool `json:"existing_resources_preserved"`
}

// IdempotencyValidation records the outcome of the post-apply re-plan that
// idempotency-trait tasks run: a correct solution plans no further changes.
type IdempotencyValidation struct {
	ReplanShowedNoChanges bool `json:"replan_showed_no_changes"`
}

// DatasetEntry is the durable, structured record of one attempt's full
// outcome. Entries are created once per terminal attempt, including
// exhausted and fatal ones, and never mutated after creation.
type DatasetEntry struct {
	DatasetVersion string    `json:"dataset_version"`
	EntryID        string    `json:"entry_id"`
	TaskID         string    `json:"task_id"`
	Description    string    `json:"task_description"`
	ModelID        string    `json:"model_id"`
	ModelName      string    `json:"model_name"`
	Timestamp      time.Time `json:"timestamp"`

	// Status is the terminal attempt status this entry records.
	Status AttemptStatus `json:"status"`

	Prompt   PromptRecord   `json:"prompt"`
	Response ResponseRecord `json:"llm_response"`

	// Stages is the full ordered stage-result sequence, failed stages from
	// earlier iterations included.
	Stages []StageResult `json:"execution_results"`

	// Conversation is the final conversation snapshot for the attempt.
	Conversation ConversationSnapshot `json:"conversation"`

	Outcome OutcomeRecord `json:"final_outcome"`

	// Screenshots reference captured visual artifacts; empty when capture
	// failed or was not configured.
	Screenshots []ArtifactRef `json:"screenshots,omitempty"`

	// Operation-kind-driven validation sections. Populated per task traits,
	// absent otherwise.
	Update      *UpdateValidation      `json:"update_operation_validation,omitempty"`
	Delete      *DeleteValidation      `json:"delete_operation_validation,omitempty"`
	EdgeCase    *EdgeCaseValidation    `json:"edge_case_handling,omitempty"`
	Incremental *IncrementalValidation `json:"incremental_operation_validation,omitempty"`
	Idempotency *IdempotencyValidation `json:"idempotency_validation,omitempty"`

	Notes string `json:"evaluator_notes,omitempty"`
}
