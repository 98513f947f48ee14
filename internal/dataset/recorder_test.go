package dataset

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/terrabench/internal/domain"
)

var (
	recTask = domain.TaskDefinition{
		ID:          "C1.2",
		Description: "Create VM from vague prompt",
		Prompt:      "I need a new VM for testing purposes",
		PromptKind:  domain.PromptVague,
		Operation:   domain.OpCreate,
		StateBefore: "empty",
		Expected:    domain.TaskExpectations{VMCount: 1},
	}
	recModel = domain.ModelDescriptor{ID: "openai/gpt-4o", DisplayName: "GPT-4o"}
)

func newTestRecorder(t *testing.T) *Recorder {
	t.Helper()
	rec, err := NewRecorder(t.TempDir())
	require.NoError(t, err)
	rec.now = func() time.Time { return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC) }
	return rec
}

func succeededState(iterations int) domain.AttemptState {
	return domain.AttemptState{
		TaskID:            recTask.ID,
		ModelID:           recModel.ID,
		Iteration:         iterations,
		MaxIterations:     5,
		Status:            domain.AttemptSucceeded,
		WorkedAsGenerated: iterations == 1,
		Stages: []domain.StageResult{
			{Stage: domain.StageInit, Iteration: iterations, Success: true},
			{Stage: domain.StageValidate, Iteration: iterations, Success: true},
			{Stage: domain.StagePlan, Iteration: iterations, Success: true, Delta: &domain.ResourceDelta{ToCreate: 1}},
			{Stage: domain.StageApply, Iteration: iterations, Success: true},
		},
	}
}

func TestRecord_FirstIterationSuccess(t *testing.T) {
	rec := newTestRecorder(t)

	entry, path, err := rec.Record(AttemptRecord{
		Task:          recTask,
		Model:         recModel,
		State:         succeededState(1),
		FirstResponse: domain.ResponseRecord{GeneratedCode: "resource {}", TimeSeconds: 4.2},
	})
	require.NoError(t, err)

	assert.Equal(t, "c1_2_openai_gpt-4o_20250314_092653", entry.EntryID)
	assert.Equal(t, domain.DatasetVersion, entry.DatasetVersion)
	assert.True(t, entry.Outcome.WorkedAsGenerated)
	assert.False(t, entry.Outcome.WorkedAfterFixes)
	assert.Equal(t, 0, entry.Outcome.TotalFixesNeeded)
	assert.True(t, entry.Outcome.ExecutionSuccessful)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var roundTrip domain.DatasetEntry
	require.NoError(t, json.Unmarshal(raw, &roundTrip))
	assert.Equal(t, entry.EntryID, roundTrip.EntryID)
}

func TestRecord_SuccessAfterFixes(t *testing.T) {
	rec := newTestRecorder(t)

	entry, _, err := rec.Record(AttemptRecord{Task: recTask, Model: recModel, State: succeededState(3)})
	require.NoError(t, err)

	assert.False(t, entry.Outcome.WorkedAsGenerated)
	assert.True(t, entry.Outcome.WorkedAfterFixes)
	assert.Equal(t, 2, entry.Outcome.TotalFixesNeeded)
	assert.Equal(t, 3, entry.Outcome.TotalIterations)
}

func TestRecord_ExhaustedAttempt(t *testing.T) {
	rec := newTestRecorder(t)

	state := domain.AttemptState{
		TaskID: recTask.ID, ModelID: recModel.ID,
		Iteration: 5, MaxIterations: 5,
		Status: domain.AttemptExhausted,
		Stages: []domain.StageResult{
			{Stage: domain.StageValidate, Iteration: 5, Success: false, ErrorMessage: "syntax error"},
		},
	}

	entry, _, err := rec.Record(AttemptRecord{Task: recTask, Model: recModel, State: state})
	require.NoError(t, err)

	assert.Equal(t, domain.AttemptExhausted, entry.Status)
	assert.False(t, entry.Outcome.ExecutionSuccessful)
	assert.False(t, entry.Outcome.WorkedAfterFixes)
}

func TestRecord_FatalAttempt(t *testing.T) {
	rec := newTestRecorder(t)

	state := domain.AttemptState{
		TaskID: recTask.ID, ModelID: recModel.ID,
		Iteration:  1,
		Status:     domain.AttemptFatal,
		FatalError: "retries exhausted",
	}

	entry, _, err := rec.Record(AttemptRecord{Task: recTask, Model: recModel, State: state})
	require.NoError(t, err)
	assert.Equal(t, domain.AttemptFatal, entry.Status)
}

func TestRecord_PanicsOnNonTerminalState(t *testing.T) {
	rec := newTestRecorder(t)
	assert.Panics(t, func() {
		rec.Record(AttemptRecord{Task: recTask, Model: recModel, State: domain.AttemptState{Status: domain.AttemptPending}})
	})
}

func TestRecord_TraitSections(t *testing.T) {
	rec := newTestRecorder(t)

	t.Run("update task", func(t *testing.T) {
		task := recTask
		task.ID = "U1.2"
		task.Operation = domain.OpUpdate
		task.Traits = domain.TaskTraits{Update: true}

		state := succeededState(1)
		state.Stages[2].Delta = &domain.ResourceDelta{ToModify: 1}

		entry, _, err := rec.Record(AttemptRecord{Task: task, Model: recModel, State: state})
		require.NoError(t, err)
		require.NotNil(t, entry.Update)
		assert.True(t, entry.Update.InPlaceModification)
		assert.True(t, entry.Update.ResourceIDPreserved)
		assert.Nil(t, entry.Delete)
	})

	t.Run("delete task", func(t *testing.T) {
		task := recTask
		task.ID = "D1.2"
		task.Operation = domain.OpDelete
		task.Expected = domain.TaskExpectations{VMCount: 0}

		state := succeededState(1)
		state.Stages[2].Delta = &domain.ResourceDelta{ToDestroy: 2}

		entry, _, err := rec.Record(AttemptRecord{Task: task, Model: recModel, State: state})
		require.NoError(t, err)
		require.NotNil(t, entry.Delete)
		assert.Equal(t, 2, entry.Delete.ResourcesDestroyed)
		assert.Equal(t, 0, entry.Delete.RemainingExpected)
	})

	t.Run("incremental task", func(t *testing.T) {
		task := recTask
		task.ID = "C2.3"
		task.Traits = domain.TaskTraits{Incremental: true}
		task.Expected = domain.TaskExpectations{VMCount: 3}

		state := succeededState(1)
		state.Stages[2].Delta = &domain.ResourceDelta{ToCreate: 2}

		entry, _, err := rec.Record(AttemptRecord{Task: task, Model: recModel, State: state})
		require.NoError(t, err)
		require.NotNil(t, entry.Incremental)
		assert.Equal(t, 2, entry.Incremental.ResourcesAdded)
		assert.True(t, entry.Incremental.ExistingPreserved)
	})

	t.Run("idempotency task checks the post-apply re-plan", func(t *testing.T) {
		task := recTask
		task.ID = "C1.3"
		task.Traits = domain.TaskTraits{IdempotencyTest: true}

		state := succeededState(1)
		state.Stages = append(state.Stages, domain.StageResult{
			Stage: domain.StagePlan, Iteration: 1, Success: true, Delta: &domain.ResourceDelta{},
		})

		entry, _, err := rec.Record(AttemptRecord{Task: task, Model: recModel, State: state})
		require.NoError(t, err)
		require.NotNil(t, entry.Idempotency)
		assert.True(t, entry.Idempotency.ReplanShowedNoChanges)
	})

	t.Run("idempotency task with a dirty re-plan", func(t *testing.T) {
		task := recTask
		task.ID = "C1.3"
		task.Traits = domain.TaskTraits{IdempotencyTest: true}

		state := succeededState(1)
		state.Stages = append(state.Stages, domain.StageResult{
			Stage: domain.StagePlan, Iteration: 1, Success: true, Delta: &domain.ResourceDelta{ToModify: 1},
		})

		entry, _, err := rec.Record(AttemptRecord{Task: task, Model: recModel, State: state})
		require.NoError(t, err)
		require.NotNil(t, entry.Idempotency)
		assert.False(t, entry.Idempotency.ReplanShowedNoChanges)
	})

	t.Run("edge case task records failure stage", func(t *testing.T) {
		task := recTask
		task.ID = "C5.2"
		task.Traits = domain.TaskTraits{EdgeCase: true}

		state := domain.AttemptState{
			TaskID: task.ID, ModelID: recModel.ID,
			Iteration: 5, MaxIterations: 5,
			Status: domain.AttemptExhausted,
			Stages: []domain.StageResult{
				{Stage: domain.StagePlan, Iteration: 5, Success: false, ErrorMessage: "quota exceeded"},
			},
		}

		entry, _, err := rec.Record(AttemptRecord{Task: task, Model: recModel, State: state})
		require.NoError(t, err)
		require.NotNil(t, entry.EdgeCase)
		assert.True(t, entry.EdgeCase.FailedAsExpected)
		assert.Equal(t, "plan", entry.EdgeCase.FailureStage)
	})
}

func TestList_ReturnsEntriesNewestFirst(t *testing.T) {
	rec := newTestRecorder(t)

	times := []time.Time{
		time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC),
	}
	for _, ts := range times {
		ts := ts
		rec.now = func() time.Time { return ts }
		_, _, err := rec.Record(AttemptRecord{Task: recTask, Model: recModel, State: succeededState(1)})
		require.NoError(t, err)
	}

	entries, err := rec.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Timestamp.After(entries[1].Timestamp))
}

func TestList_SkipsCorruptFiles(t *testing.T) {
	rec := newTestRecorder(t)

	_, _, err := rec.Record(AttemptRecord{Task: recTask, Model: recModel, State: succeededState(1)})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(rec.baseDir, "garbage.json"), []byte("{not json"), 0o644))

	entries, err := rec.List()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
