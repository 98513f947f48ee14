// Package attempt drives the prompt, extract, execute cycle for one
// (task, model) pair until success, an exhausted iteration budget, or a fatal
// model failure. Stage failures and missing code feed back into the
// conversation and consume iterations; they never abort the attempt early.
package attempt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ahrav/terrabench/internal/capture"
	"github.com/ahrav/terrabench/internal/catalog"
	"github.com/ahrav/terrabench/internal/conversation"
	"github.com/ahrav/terrabench/internal/dataset"
	"github.com/ahrav/terrabench/internal/domain"
	"github.com/ahrav/terrabench/internal/extract"
	"github.com/ahrav/terrabench/internal/llm"
	"github.com/ahrav/terrabench/internal/terraform"
)

// Recorder persists one entry per terminal attempt.
type Recorder interface {
	Record(rec dataset.AttemptRecord) (*domain.DatasetEntry, string, error)
}

// StageObserver is notified after every stage result, successful or not.
// Used by the run coordinator for progress events.
type StageObserver func(result domain.StageResult)

// Loop executes attempts. One Loop serves a whole run; per-attempt state
// lives in the AttemptState and History passed through Run.
type Loop struct {
	client   llm.Client
	recorder Recorder
	capturer capture.Capturer

	// newRunner builds the stage runner for an attempt's working directory.
	newRunner func(workDir string) (terraform.Runner, error)

	maxIterations int
	observer      StageObserver
	logger        *slog.Logger
}

// Config bundles the Loop dependencies.
type Config struct {
	Client        llm.Client
	Recorder      Recorder
	Capturer      capture.Capturer
	NewRunner     func(workDir string) (terraform.Runner, error)
	MaxIterations int
	Observer      StageObserver
}

// NewLoop builds an attempt loop. Capturer and Observer are optional.
func NewLoop(cfg Config) *Loop {
	capturer := cfg.Capturer
	if capturer == nil {
		capturer = capture.NopCapturer{}
	}
	newRunner := cfg.NewRunner
	if newRunner == nil {
		newRunner = func(dir string) (terraform.Runner, error) { return terraform.NewExecutor(dir) }
	}
	return &Loop{
		client:        cfg.Client,
		recorder:      cfg.Recorder,
		capturer:      capturer,
		newRunner:     newRunner,
		maxIterations: cfg.MaxIterations,
		observer:      cfg.Observer,
		logger:        slog.Default().With("component", "attempt"),
	}
}

// Result is the outcome of one attempt: the terminal state plus the dataset
// entry recorded for it.
type Result struct {
	State     domain.AttemptState
	Entry     *domain.DatasetEntry
	EntryPath string
}

// Run executes one full attempt in workDir. It always records exactly one
// dataset entry before returning, regardless of how the attempt ended; the
// returned error reports recording failures only.
func (l *Loop) Run(ctx context.Context, task domain.TaskDefinition, model domain.ModelDescriptor, history *conversation.History, workDir string) (Result, error) {
	logger := l.logger.With("task_id", task.ID, "model_id", model.ID)

	state := domain.AttemptState{
		TaskID:        task.ID,
		ModelID:       model.ID,
		MaxIterations: l.maxIterations,
		Status:        domain.AttemptPending,
		StartedAt:     time.Now().UTC(),
	}
	var firstResponse domain.ResponseRecord

	runner, err := l.newRunner(workDir)
	if err != nil {
		state.Status = domain.AttemptFatal
		state.FatalError = err.Error()
		return l.finish(ctx, task, model, history, state, firstResponse, workDir)
	}

	history.Append(domain.RoleSystem, catalog.PlatformContext)
	history.Append(domain.RoleUser, catalog.BuildPrompt(task))

	for iter := 1; iter <= l.maxIterations; iter++ {
		state.Iteration = iter
		logger.Info("iteration started", "iteration", iter)

		resp, err := l.client.Complete(ctx, model.ID, history.Messages())
		if err != nil {
			logger.Error("model call failed permanently", "iteration", iter, "error", err)
			state.Status = domain.AttemptFatal
			state.FatalError = err.Error()
			break
		}
		history.Append(domain.RoleAssistant, resp.Content)

		ext := extract.Parse(resp.Content)
		if iter == 1 {
			firstResponse = domain.ResponseRecord{
				GeneratedCode:  ext.Code,
				QuestionsAsked: ext.Questions,
				TimeSeconds:    float64(resp.LatencyMs) / 1000,
			}
		}

		if !ext.HasCode() {
			logger.Warn("response contained no code", "iteration", iter)
			if iter == l.maxIterations {
				state.Status = domain.AttemptExhausted
				break
			}
			history.AppendNoCodeFeedback()
			continue
		}

		if err := runner.WriteMain(ext.Code); err != nil {
			state.Status = domain.AttemptFatal
			state.FatalError = err.Error()
			break
		}

		failed := l.executeStages(ctx, runner, task, iter, &state)
		if failed == nil {
			state.Status = domain.AttemptSucceeded
			state.WorkedAsGenerated = iter == 1
			break
		}

		if iter == l.maxIterations {
			state.Status = domain.AttemptExhausted
			break
		}
		history.AppendErrorFeedback(failed.Stage, failed.ErrorMessage, failed.Stdout+failed.Stderr)
	}

	if state.Status == domain.AttemptPending {
		state.Status = domain.AttemptExhausted
	}

	// Idempotency tasks re-plan after a successful apply; a correct solution
	// plans no further changes. The re-plan runs before any cleanup destroy.
	if state.Status.Succeeded() && task.Traits.IdempotencyTest {
		l.runStage(ctx, runner, domain.StagePlan, state.Iteration, &state)
	}

	if state.Status.Succeeded() && task.CleanupAfter {
		l.runStage(ctx, runner, domain.StageDestroy, state.Iteration, &state)
	}

	return l.finish(ctx, task, model, history, state, firstResponse, workDir)
}

// executeStages runs the forward workflow for one iteration and returns the
// first failed stage result, or nil when every stage passed. Read tasks stop
// after plan; the plan output is their verification surface.
func (l *Loop) executeStages(ctx context.Context, runner terraform.Runner, task domain.TaskDefinition, iteration int, state *domain.AttemptState) *domain.StageResult {
	stages := domain.ApplyStages
	if task.Operation == domain.OpRead {
		stages = []domain.Stage{domain.StageInit, domain.StageValidate, domain.StagePlan}
	}

	for _, stage := range stages {
		result := runner.RunStage(ctx, stage)
		result.Iteration = iteration
		if task.Operation == domain.OpRead && stage == domain.StagePlan {
			verifyReadPlan(&result)
		}
		stored := l.recordStage(result, state)
		if !stored.Success {
			return stored
		}
	}
	return nil
}

func (l *Loop) runStage(ctx context.Context, runner terraform.Runner, stage domain.Stage, iteration int, state *domain.AttemptState) *domain.StageResult {
	result := runner.RunStage(ctx, stage)
	result.Iteration = iteration
	return l.recordStage(result, state)
}

func (l *Loop) recordStage(result domain.StageResult, state *domain.AttemptState) *domain.StageResult {
	state.Stages = append(state.Stages, result)
	if l.observer != nil {
		l.observer(result)
	}
	return &state.Stages[len(state.Stages)-1]
}

// verifyReadPlan fails a read-task plan that proposes infrastructure changes.
// Read tasks inspect existing resources; a plan that would create, modify, or
// destroy anything means the model generated mutating code, and the failure
// feeds back like any other stage error.
func verifyReadPlan(result *domain.StageResult) {
	if !result.Success || result.Delta == nil || !terraform.PlanHasChanges(*result.Delta) {
		return
	}
	result.Success = false
	result.ErrorMessage = fmt.Sprintf(
		"read task must not change infrastructure: plan proposes %d to create, %d to modify, %d to destroy",
		result.Delta.ToCreate, result.Delta.ToModify, result.Delta.ToDestroy)
}

// finish stamps the terminal state, captures artifacts, persists the
// conversation next to the code, and records the dataset entry. Capture and
// snapshot-file failures are logged and never affect the outcome.
func (l *Loop) finish(ctx context.Context, task domain.TaskDefinition, model domain.ModelDescriptor, history *conversation.History, state domain.AttemptState, firstResponse domain.ResponseRecord, workDir string) (Result, error) {
	state.FinishedAt = time.Now().UTC()

	snapshot := history.Snapshot()
	l.writeConversationFile(workDir, snapshot)

	screenshots := l.capturer.Capture(ctx, task, model)

	entry, path, err := l.recorder.Record(dataset.AttemptRecord{
		Task:          task,
		Model:         model,
		State:         state,
		Conversation:  snapshot,
		FirstResponse: firstResponse,
		Screenshots:   screenshots,
	})
	if err != nil {
		l.logger.Error("failed to record dataset entry",
			"task_id", task.ID, "model_id", model.ID, "error", err)
		return Result{State: state}, err
	}

	return Result{State: state, Entry: entry, EntryPath: path}, nil
}

// writeConversationFile persists the conversation snapshot next to the code
// it produced, for manual inspection of the work directory.
func (l *Loop) writeConversationFile(workDir string, snapshot domain.ConversationSnapshot) {
	raw, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		l.logger.Warn("failed to marshal conversation snapshot", "error", err)
		return
	}
	path := filepath.Join(workDir, "conversation_history.json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		l.logger.Warn("failed to write conversation snapshot", "path", path, "error", err)
	}
}
