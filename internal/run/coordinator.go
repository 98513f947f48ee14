// Package run coordinates full evaluation runs: every selected model against
// every resolved task, sequentially, in dependency order. The manager tracks
// run lifecycles and serves snapshots; the coordinator drives one run on a
// background goroutine.
package run

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/ahrav/terrabench/internal/attempt"
	"github.com/ahrav/terrabench/internal/catalog"
	"github.com/ahrav/terrabench/internal/conversation"
	"github.com/ahrav/terrabench/internal/domain"
)

// AttemptRunner executes one attempt to a terminal state. Satisfied by
// *attempt.Loop.
type AttemptRunner interface {
	Run(ctx context.Context, task domain.TaskDefinition, model domain.ModelDescriptor, history *conversation.History, workDir string) (attempt.Result, error)
}

// LoopFactory builds the attempt runner for one attempt, binding the
// iteration budget and a stage observer for progress events.
type LoopFactory func(maxIterations int, observer attempt.StageObserver) AttemptRunner

// Coordinator executes runs sequentially: one attempt at a time, models in
// request order, tasks in dependency order. Cancellation is honored between
// attempts only; an in-flight attempt always finishes and is recorded.
type Coordinator struct {
	catalog *catalog.Catalog
	baseDir string
	emitter Emitter
	newLoop LoopFactory
	logger  *slog.Logger
}

// NewCoordinator builds a coordinator. The emitter may be nil.
func NewCoordinator(cat *catalog.Catalog, baseDir string, emitter Emitter, newLoop LoopFactory) *Coordinator {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	return &Coordinator{
		catalog: cat,
		baseDir: baseDir,
		emitter: emitter,
		newLoop: newLoop,
		logger:  slog.Default().With("component", "coordinator"),
	}
}

// execute drives one run to a terminal status, mutating state as it goes.
func (c *Coordinator) execute(ctx context.Context, state *runState) {
	snap := state.snapshot()
	logger := c.logger.With("run_id", snap.ID)

	c.emitter.Emit(stampEvent(domain.ProgressEvent{
		Type:  domain.EventRunStarted,
		RunID: snap.ID,
	}))

	tasks, err := c.catalog.Resolve(snap.Tasks)
	if err != nil {
		logger.Error("task resolution failed", "error", err)
		c.finishRun(state, domain.RunFailed, err.Error())
		return
	}

	state.update(func(r *domain.RunRecord) {
		r.Status = domain.RunRunning
		r.Tasks = taskIDs(tasks)
		r.TotalTasks = len(r.Models) * len(tasks)
	})

	store := conversation.NewStore()
	cancelled := false

	// Attempts run on a context detached from the run's cancel signal so an
	// in-flight attempt always finishes its stage sequence and is recorded.
	attemptCtx := context.WithoutCancel(ctx)

runLoop:
	for _, model := range snap.Models {
		for _, task := range tasks {
			// Cancellation boundary. In-flight attempts are never torn down;
			// the check happens only here, between attempts.
			if ctx.Err() != nil {
				cancelled = true
				break runLoop
			}

			c.runAttempt(attemptCtx, state, store, task, model, snap.MaxIterations)
		}
	}

	if cancelled {
		logger.Info("run cancelled between attempts")
		c.finishRun(state, domain.RunCancelled, "")
		return
	}
	c.finishRun(state, domain.RunCompleted, "")
}

func (c *Coordinator) runAttempt(ctx context.Context, state *runState, store *conversation.Store, task domain.TaskDefinition, model domain.ModelDescriptor, maxIterations int) {
	runID := state.snapshot().ID
	logger := c.logger.With("run_id", runID, "task_id", task.ID, "model_id", model.ID)

	c.emitter.Emit(stampEvent(domain.ProgressEvent{
		Type:    domain.EventTaskStarted,
		RunID:   runID,
		TaskID:  task.ID,
		ModelID: model.ID,
	}))

	history, err := store.Create(task.ID, model.ID)
	if err != nil {
		// Duplicate pair within one run is a coordinator bug, not a task
		// failure. Count it as failed and move on.
		logger.Error("conversation creation failed", "error", err)
		c.recordOutcome(state, domain.AttemptOutcome{
			TaskID: task.ID, ModelID: model.ID, Status: domain.AttemptFatal,
		})
		return
	}

	observer := func(result domain.StageResult) {
		c.emitter.Emit(stampEvent(domain.ProgressEvent{
			Type:      domain.EventStageCompleted,
			RunID:     runID,
			TaskID:    task.ID,
			ModelID:   model.ID,
			Stage:     result.Stage,
			Iteration: result.Iteration,
			Status:    stageStatus(result),
		}))
	}

	workDir := filepath.Join(c.baseDir, "terraform_code", model.Slug(), task.Slug())
	loop := c.newLoop(maxIterations, observer)

	result, err := loop.Run(ctx, task, model, history, workDir)
	if err != nil {
		logger.Error("attempt recording failed", "error", err)
	}

	c.recordOutcome(state, domain.AttemptOutcome{
		TaskID:     task.ID,
		ModelID:    model.ID,
		Status:     result.State.Status,
		Iterations: result.State.Iteration,
		EntryPath:  result.EntryPath,
	})

	c.emitter.Emit(stampEvent(domain.ProgressEvent{
		Type:    domain.EventAttemptTerminal,
		RunID:   runID,
		TaskID:  task.ID,
		ModelID: model.ID,
		Status:  string(result.State.Status),
	}))
}

func (c *Coordinator) recordOutcome(state *runState, outcome domain.AttemptOutcome) {
	state.update(func(r *domain.RunRecord) {
		r.Outcomes = append(r.Outcomes, outcome)
		if outcome.Status.Succeeded() {
			r.CompletedTasks++
		} else {
			r.FailedTasks++
		}
	})
}

func (c *Coordinator) finishRun(state *runState, status domain.RunStatus, errMsg string) {
	state.update(func(r *domain.RunRecord) {
		r.Status = status
		r.Error = errMsg
		r.FinishedAt = time.Now().UTC()
	})

	c.emitter.Emit(stampEvent(domain.ProgressEvent{
		Type:   domain.EventRunFinished,
		RunID:  state.snapshot().ID,
		Status: string(status),
	}))
}

func stageStatus(result domain.StageResult) string {
	if result.Success {
		return "success"
	}
	return "failure"
}

func taskIDs(tasks []domain.TaskDefinition) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}
