package domain

import "strings"

// ModelDescriptor identifies one language model under evaluation.
// Descriptors are selected by the caller of a run; no task owns a model.
type ModelDescriptor struct {
	// ID is the model-provider API identifier, e.g. "deepseek/deepseek-r1".
	ID string `json:"id" validate:"required"`

	// DisplayName is the human-readable model name shown in records.
	// Defaults to ID when empty.
	DisplayName string `json:"display_name,omitempty"`
}

// Name returns the display name, falling back to the API identifier.
func (m ModelDescriptor) Name() string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return m.ID
}

// Slug returns the model ID in filesystem-safe form
// ("deepseek/deepseek-r1" -> "deepseek_deepseek-r1").
func (m ModelDescriptor) Slug() string {
	s := strings.ReplaceAll(m.ID, "/", "_")
	return strings.ReplaceAll(s, ".", "_")
}
