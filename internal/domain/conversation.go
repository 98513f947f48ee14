package domain

import "time"

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleSystem carries the seeded platform context.
	RoleSystem Role = "system"

	// RoleUser carries task prompts and error feedback.
	RoleUser Role = "user"

	// RoleAssistant carries model responses.
	RoleAssistant Role = "assistant"
)

// Message is one entry in a conversation history.
type Message struct {
	Role      Role      `json:"role" validate:"required,oneof=system user assistant"`
	Content   string    `json:"content" validate:"required"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationSnapshot is the plain serialized form of one (task, model)
// conversation, suitable for persistence and post-hoc inspection. Snapshots
// are never used to resume an in-flight attempt.
type ConversationSnapshot struct {
	TaskID     string    `json:"task_id"`
	ModelID    string    `json:"model_id"`
	Iterations int       `json:"iteration_count"`
	Messages   []Message `json:"messages"`
	UpdatedAt  time.Time `json:"last_updated"`
}
