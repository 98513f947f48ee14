package terraform

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/terrabench/internal/domain"
)

func TestNewExecutor_CreatesWorkDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "work")

	exec, err := NewExecutor(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, exec.WorkDir())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestWriteMain(t *testing.T) {
	exec, err := NewExecutor(t.TempDir())
	require.NoError(t, err)

	code := `resource "xenorchestra_vm" "web" {}`
	require.NoError(t, exec.WriteMain(code))

	raw, err := os.ReadFile(filepath.Join(exec.WorkDir(), "main.tf"))
	require.NoError(t, err)
	assert.Equal(t, code, string(raw))
}

func TestWriteMain_OverwritesPreviousIteration(t *testing.T) {
	exec, err := NewExecutor(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, exec.WriteMain("first attempt"))
	require.NoError(t, exec.WriteMain("second attempt"))

	raw, err := os.ReadFile(filepath.Join(exec.WorkDir(), "main.tf"))
	require.NoError(t, err)
	assert.Equal(t, "second attempt", string(raw))
}

func TestStageCommand(t *testing.T) {
	tests := []struct {
		stage       domain.Stage
		wantArgs    []string
		wantTimeout time.Duration
	}{
		{domain.StageInit, []string{"init", "-no-color"}, defaultStageTimeout},
		{domain.StageValidate, []string{"validate", "-no-color"}, defaultStageTimeout},
		{domain.StagePlan, []string{"plan", "-no-color", "-out=tfplan"}, planTimeout},
		{domain.StageApply, []string{"apply", "-no-color", "-auto-approve", "tfplan"}, applyTimeout},
		{domain.StageDestroy, []string{"destroy", "-no-color", "-auto-approve"}, destroyTimeout},
	}

	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			args, timeout := stageCommand(tt.stage)
			assert.Equal(t, tt.wantArgs, args)
			assert.Equal(t, tt.wantTimeout, timeout)
		})
	}
}

func TestRunStage_SuccessCapturesOutput(t *testing.T) {
	exec, err := NewExecutor(t.TempDir())
	require.NoError(t, err)
	exec.binary = "echo"

	result := exec.RunStage(context.Background(), domain.StageValidate)

	assert.True(t, result.Success)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, domain.StageValidate, result.Stage)
	assert.Contains(t, result.Stdout, "validate")
	assert.Empty(t, result.ErrorMessage)
}

func TestRunStage_FailureCapturesStderr(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "fail.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho 'Error: invalid block' >&2\nexit 1\n"), 0o755))

	exec, err := NewExecutor(dir)
	require.NoError(t, err)
	exec.binary = script

	result := exec.RunStage(context.Background(), domain.StageValidate)

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.ExitCode)
	assert.Contains(t, result.Stderr, "invalid block")
	assert.Contains(t, result.ErrorMessage, "invalid block")
}

func TestRunStage_MissingBinary(t *testing.T) {
	exec, err := NewExecutor(t.TempDir())
	require.NoError(t, err)
	exec.binary = "definitely-not-a-real-binary"

	result := exec.RunStage(context.Background(), domain.StageInit)

	assert.False(t, result.Success)
	assert.Equal(t, -1, result.ExitCode)
	assert.NotEmpty(t, result.ErrorMessage)
}

func TestRunStage_WritesStageLog(t *testing.T) {
	exec, err := NewExecutor(t.TempDir())
	require.NoError(t, err)
	exec.binary = "echo"

	exec.RunStage(context.Background(), domain.StageInit)

	raw, err := os.ReadFile(filepath.Join(exec.WorkDir(), "init.log"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Command: echo init -no-color")
	assert.Contains(t, string(raw), "Exit Code: 0")
	assert.Contains(t, string(raw), "=== STDOUT ===")
}

func TestParseDelta(t *testing.T) {
	t.Run("counts creates", func(t *testing.T) {
		rendered := `
  # xenorchestra_vm.web will be created
  # xenorchestra_network.lan will be created

Plan: 2 to add, 0 to change, 0 to destroy.
`
		delta := parseDelta(rendered)
		assert.Equal(t, domain.ResourceDelta{ToCreate: 2}, delta)
	})

	t.Run("counts mixed actions", func(t *testing.T) {
		rendered := `
  # xenorchestra_vm.web will be updated in-place
  # xenorchestra_vm.old will be destroyed
  # xenorchestra_vm.new will be created
`
		delta := parseDelta(rendered)
		assert.Equal(t, domain.ResourceDelta{ToCreate: 1, ToModify: 1, ToDestroy: 1}, delta)
	})

	t.Run("replacement counts both ways", func(t *testing.T) {
		rendered := `  # xenorchestra_vm.web must be replaced`
		delta := parseDelta(rendered)
		assert.Equal(t, domain.ResourceDelta{ToCreate: 1, ToDestroy: 1}, delta)
	})

	t.Run("empty plan", func(t *testing.T) {
		rendered := "No changes. Your infrastructure matches the configuration."
		delta := parseDelta(rendered)
		assert.Equal(t, domain.ResourceDelta{}, delta)
		assert.False(t, PlanHasChanges(delta))
	})

	t.Run("changes detected", func(t *testing.T) {
		assert.True(t, PlanHasChanges(parseDelta("# a.b will be created")))
		assert.True(t, PlanHasChanges(domain.ResourceDelta{ToModify: 1}))
	})
}
