package conversation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/terrabench/internal/domain"
)

func TestStore_CreateAndGet(t *testing.T) {
	store := NewStore()

	h, err := store.Create("C1.2", "openai/gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "C1.2", h.TaskID())
	assert.Equal(t, "openai/gpt-4o", h.ModelID())

	assert.Same(t, h, store.Get("C1.2", "openai/gpt-4o"))
	assert.Nil(t, store.Get("C1.2", "other/model"))
}

func TestStore_RejectsDuplicatePair(t *testing.T) {
	store := NewStore()

	_, err := store.Create("C1.2", "openai/gpt-4o")
	require.NoError(t, err)

	_, err = store.Create("C1.2", "openai/gpt-4o")
	assert.ErrorIs(t, err, ErrHistoryExists)
}

func TestStore_PairsAreIsolated(t *testing.T) {
	store := NewStore()

	h1, err := store.Create("C1.2", "openai/gpt-4o")
	require.NoError(t, err)
	h2, err := store.Create("C1.2", "anthropic/claude-sonnet-4")
	require.NoError(t, err)
	h3, err := store.Create("C1.3", "openai/gpt-4o")
	require.NoError(t, err)

	h1.Append(domain.RoleUser, "only for pair one")

	assert.Len(t, h1.Messages(), 1)
	assert.Empty(t, h2.Messages())
	assert.Empty(t, h3.Messages())
}

func TestHistory_AppendPreservesOrder(t *testing.T) {
	h := &History{taskID: "C1.2", modelID: "m"}

	h.Append(domain.RoleSystem, "context")
	h.Append(domain.RoleUser, "task")
	h.Append(domain.RoleAssistant, "code")

	messages := h.Messages()
	require.Len(t, messages, 3)
	assert.Equal(t, domain.RoleSystem, messages[0].Role)
	assert.Equal(t, domain.RoleUser, messages[1].Role)
	assert.Equal(t, domain.RoleAssistant, messages[2].Role)
}

func TestHistory_ErrorFeedback(t *testing.T) {
	h := &History{taskID: "C1.2", modelID: "m"}

	h.AppendErrorFeedback(domain.StageValidate, "Error: invalid block", "full validate output")

	assert.Equal(t, 1, h.IterationCount())
	messages := h.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, domain.RoleUser, messages[0].Role)
	assert.Contains(t, messages[0].Content, "encountered an error during 'validate'")
	assert.Contains(t, messages[0].Content, "Error: invalid block")
	assert.Contains(t, messages[0].Content, "full validate output")
	assert.Contains(t, messages[0].Content, "Iteration: 1")
}

func TestHistory_ErrorFeedbackTruncatesLogs(t *testing.T) {
	h := &History{taskID: "C1.2", modelID: "m"}
	longLogs := strings.Repeat("x", 10*maxFeedbackLogBytes)

	h.AppendErrorFeedback(domain.StagePlan, "err", longLogs)

	content := h.Messages()[0].Content
	assert.Less(t, len(content), 2*maxFeedbackLogBytes+500)
}

func TestHistory_NoCodeFeedbackConsumesIteration(t *testing.T) {
	h := &History{taskID: "C1.2", modelID: "m"}

	h.AppendNoCodeFeedback()
	h.AppendNoCodeFeedback()

	assert.Equal(t, 2, h.IterationCount())
	for _, m := range h.Messages() {
		assert.Contains(t, m.Content, "No executable code")
	}
}

func TestHistory_SnapshotSharesNoState(t *testing.T) {
	h := &History{taskID: "C1.2", modelID: "m"}
	h.Append(domain.RoleUser, "original")

	snap := h.Snapshot()
	snap.Messages[0].Content = "mutated"

	assert.Equal(t, "original", h.Messages()[0].Content)
	assert.Equal(t, "C1.2", snap.TaskID)
	assert.Equal(t, "m", snap.ModelID)
}

func TestRestore_RoundTrip(t *testing.T) {
	h := &History{taskID: "C1.2", modelID: "m"}
	h.Append(domain.RoleUser, "task")
	h.AppendErrorFeedback(domain.StageApply, "boom", "logs")

	restored := Restore(h.Snapshot())

	assert.Equal(t, h.TaskID(), restored.TaskID())
	assert.Equal(t, h.IterationCount(), restored.IterationCount())
	assert.Equal(t, len(h.Messages()), len(restored.Messages()))
}
