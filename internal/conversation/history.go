package conversation

import (
	"fmt"
	"sync"
	"time"

	"github.com/ahrav/terrabench/internal/domain"
)

// maxFeedbackLogBytes bounds the stage output embedded in a feedback message.
// Without the bound, repeated failures grow the prompt without limit.
const maxFeedbackLogBytes = 2000

// History is the ordered message sequence for exactly one (task, model)
// pair. It grows monotonically across the iterations of one attempt and is
// destroyed with the attempt; it is never merged with another pair's history.
type History struct {
	mu         sync.Mutex
	taskID     string
	modelID    string
	iterations int
	messages   []domain.Message
}

// TaskID returns the owning task identifier.
func (h *History) TaskID() string { return h.taskID }

// ModelID returns the owning model identifier.
func (h *History) ModelID() string { return h.modelID }

// Append adds one message, preserving order.
func (h *History) Append(role domain.Role, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, domain.Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
}

// AppendErrorFeedback appends a user message describing a failed Terraform
// stage, with the captured output truncated to a fixed bound, and advances
// the iteration counter.
func (h *History) AppendErrorFeedback(stage domain.Stage, errorMessage, logs string) {
	h.mu.Lock()
	h.iterations++
	iteration := h.iterations
	h.mu.Unlock()

	h.Append(domain.RoleUser, buildErrorFeedback(stage, errorMessage, logs, iteration))
}

// AppendNoCodeFeedback appends the feedback sent when a response contained no
// extractable code. This still consumes one iteration of the budget.
func (h *History) AppendNoCodeFeedback() {
	h.mu.Lock()
	h.iterations++
	h.mu.Unlock()

	h.Append(domain.RoleUser,
		"No executable code was found in your previous response. "+
			"Please provide the complete Terraform code in a code block (```terraform ... ```).")
}

// Messages returns a copy of the message sequence in append order.
func (h *History) Messages() []domain.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.Message(nil), h.messages...)
}

// IterationCount returns how many feedback rounds the history has absorbed.
func (h *History) IterationCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.iterations
}

// Snapshot serializes the history into a plain ordered structure suitable
// for persistence. The returned snapshot shares no state with the history.
func (h *History) Snapshot() domain.ConversationSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return domain.ConversationSnapshot{
		TaskID:     h.taskID,
		ModelID:    h.modelID,
		Iterations: h.iterations,
		Messages:   append([]domain.Message(nil), h.messages...),
		UpdatedAt:  time.Now().UTC(),
	}
}

// Restore rebuilds a history from a snapshot. Restored histories are for
// post-hoc inspection only, never for resuming an in-flight attempt.
func Restore(snap domain.ConversationSnapshot) *History {
	return &History{
		taskID:     snap.TaskID,
		modelID:    snap.ModelID,
		iterations: snap.Iterations,
		messages:   append([]domain.Message(nil), snap.Messages...),
	}
}

// buildErrorFeedback renders the corrective prompt for a failed stage.
func buildErrorFeedback(stage domain.Stage, errorMessage, logs string, iteration int) string {
	if len(logs) > maxFeedbackLogBytes {
		logs = logs[:maxFeedbackLogBytes]
	}

	return fmt.Sprintf(`The Terraform code from your previous response encountered an error during '%s'.

Error Message:
%s

Relevant Logs:
%s

Iteration: %d

Please analyze the error and provide corrected Terraform code. Focus on:
1. Understanding why the error occurred
2. Fixing the specific issue
3. Ensuring the code uses the correct provider configuration and resource definitions
4. Making the code production-ready

Provide the complete corrected Terraform code.`, stage, errorMessage, logs, iteration)
}
