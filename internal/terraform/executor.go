// Package terraform executes the staged provisioning workflow against a
// working directory and captures per-stage output and resource deltas.
// The rest of the system consumes it through the Runner interface, so tests
// and the attempt loop never depend on a terraform binary being present.
package terraform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/ahrav/terrabench/internal/domain"
)

// Runner executes Terraform stages for one working directory.
type Runner interface {
	// WriteMain writes the candidate code payload to main.tf.
	WriteMain(code string) error

	// RunStage runs one workflow stage and returns its captured result.
	// Destroy on a directory with nothing applied succeeds as a no-op.
	RunStage(ctx context.Context, stage domain.Stage) domain.StageResult
}

// Stage time budgets. A stage exceeding its budget fails like any other
// stage failure and its timeout message feeds back to the model.
const (
	defaultStageTimeout = 300 * time.Second
	planTimeout         = 180 * time.Second
	applyTimeout        = 600 * time.Second // VM creation is slow.
	destroyTimeout      = 300 * time.Second
	showTimeout         = 60 * time.Second
)

// Executor runs the terraform binary inside a fixed working directory.
type Executor struct {
	workDir string
	binary  string
	logger  *slog.Logger
}

// NewExecutor creates an executor for a working directory, creating the
// directory if needed.
func NewExecutor(workDir string) (*Executor, error) {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	return &Executor{
		workDir: workDir,
		binary:  "terraform",
		logger:  slog.Default().With("component", "terraform", "work_dir", workDir),
	}, nil
}

// WorkDir returns the directory the executor operates in.
func (e *Executor) WorkDir() string { return e.workDir }

// WriteMain writes the candidate code to main.tf in the working directory.
func (e *Executor) WriteMain(code string) error {
	path := filepath.Join(e.workDir, "main.tf")
	if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
		return fmt.Errorf("failed to write main.tf: %w", err)
	}
	e.logger.Info("wrote main.tf", "bytes", len(code))
	return nil
}

// RunStage executes one Terraform stage with its time budget and returns the
// captured result. Plan stages additionally parse resource-count deltas from
// the rendered plan.
func (e *Executor) RunStage(ctx context.Context, stage domain.Stage) domain.StageResult {
	args, timeout := stageCommand(stage)
	result := e.run(ctx, stage, args, timeout)

	if stage == domain.StagePlan && result.Success {
		show := e.run(ctx, stage, []string{"show", "tfplan"}, showTimeout)
		if show.Success {
			delta := parseDelta(show.Stdout)
			result.Delta = &delta
		}
	}

	e.writeStageLog(stage, result)
	return result
}

// stageCommand maps a stage to its terraform arguments and time budget.
func stageCommand(stage domain.Stage) ([]string, time.Duration) {
	switch stage {
	case domain.StageInit:
		return []string{"init", "-no-color"}, defaultStageTimeout
	case domain.StageValidate:
		return []string{"validate", "-no-color"}, defaultStageTimeout
	case domain.StagePlan:
		return []string{"plan", "-no-color", "-out=tfplan"}, planTimeout
	case domain.StageApply:
		return []string{"apply", "-no-color", "-auto-approve", "tfplan"}, applyTimeout
	case domain.StageDestroy:
		return []string{"destroy", "-no-color", "-auto-approve"}, destroyTimeout
	default:
		return []string{string(stage)}, defaultStageTimeout
	}
}

func (e *Executor) run(ctx context.Context, stage domain.Stage, args []string, timeout time.Duration) domain.StageResult {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, e.binary, args...)
	cmd.Dir = e.workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	result := domain.StageResult{
		Stage:    stage,
		Command:  e.binary + " " + joinArgs(args),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: elapsed,
	}

	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		result.ExitCode = -1
		result.ErrorMessage = fmt.Sprintf("command timed out after %s", timeout)
	case err != nil:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			result.ErrorMessage = stderr.String()
		} else {
			result.ExitCode = -1
			result.ErrorMessage = err.Error()
		}
	default:
		result.Success = true
		result.ExitCode = 0
	}

	e.logger.Info("stage finished",
		"stage", stage,
		"success", result.Success,
		"exit_code", result.ExitCode,
		"elapsed", elapsed)
	return result
}

// writeStageLog persists the stage transcript next to the code it ran
// against, mirroring the dataset layout evaluators expect.
func (e *Executor) writeStageLog(stage domain.Stage, result domain.StageResult) {
	content := fmt.Sprintf("Command: %s\nExit Code: %d\nExecution Time: %s\n\n=== STDOUT ===\n%s\n=== STDERR ===\n%s\n",
		result.Command, result.ExitCode, result.Duration, result.Stdout, result.Stderr)

	path := filepath.Join(e.workDir, string(stage)+".log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		e.logger.Warn("failed to write stage log", "stage", stage, "error", err)
	}
}

func joinArgs(args []string) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += " "
		}
		out += a
	}
	return out
}
