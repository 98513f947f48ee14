// Package dataset persists one structured JSON entry per terminal attempt.
// Entries are append-only evaluation evidence: every attempt produces exactly
// one, whether it succeeded, exhausted its iteration budget, or died on a
// transport failure.
package dataset

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ahrav/terrabench/internal/domain"
)

const entryTimestampLayout = "20060102_150405"

// AttemptRecord bundles everything the recorder needs to build one entry.
type AttemptRecord struct {
	Task  domain.TaskDefinition
	Model domain.ModelDescriptor

	// State is the terminal attempt state. Record panics if it is not
	// terminal; recording an in-flight attempt is a programming error.
	State domain.AttemptState

	// Conversation is the final conversation snapshot for the pair.
	Conversation domain.ConversationSnapshot

	// FirstResponse captures the model's initial code generation.
	FirstResponse domain.ResponseRecord

	// Screenshots reference captured artifacts, possibly empty.
	Screenshots []domain.ArtifactRef
}

// Recorder writes dataset entries into a directory, one JSON file per entry.
type Recorder struct {
	baseDir string
	now     func() time.Time
	logger  *slog.Logger
}

// NewRecorder creates a recorder rooted at baseDir, creating it if needed.
func NewRecorder(baseDir string) (*Recorder, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create dataset dir: %w", err)
	}
	return &Recorder{
		baseDir: baseDir,
		now:     time.Now,
		logger:  slog.Default().With("component", "dataset"),
	}, nil
}

// Record builds the entry for a terminal attempt and persists it. It returns
// the entry and the path it was written to.
func (r *Recorder) Record(rec AttemptRecord) (*domain.DatasetEntry, string, error) {
	if !rec.State.Status.Terminal() {
		panic("dataset: recording a non-terminal attempt")
	}

	entry := r.buildEntry(rec)

	path := filepath.Join(r.baseDir, entry.EntryID+".json")
	raw, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal dataset entry: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return nil, "", fmt.Errorf("failed to write dataset entry: %w", err)
	}

	r.logger.Info("dataset entry written",
		"entry_id", entry.EntryID,
		"task_id", entry.TaskID,
		"model_id", entry.ModelID,
		"status", entry.Status)
	return entry, path, nil
}

// List returns all persisted entries, newest first. Unreadable files are
// skipped with a warning so one corrupt entry cannot hide the rest.
func (r *Recorder) List() ([]domain.DatasetEntry, error) {
	files, err := os.ReadDir(r.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset dir: %w", err)
	}

	var entries []domain.DatasetEntry
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(r.baseDir, f.Name()))
		if err != nil {
			r.logger.Warn("skipping unreadable dataset entry", "file", f.Name(), "error", err)
			continue
		}
		var entry domain.DatasetEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			r.logger.Warn("skipping corrupt dataset entry", "file", f.Name(), "error", err)
			continue
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Timestamp.After(entries[j].Timestamp) })
	return entries, nil
}

func (r *Recorder) buildEntry(rec AttemptRecord) *domain.DatasetEntry {
	ts := r.now().UTC()
	succeeded := rec.State.Status.Succeeded()

	fixes := rec.State.Iteration - 1
	if fixes < 0 {
		fixes = 0
	}

	entry := &domain.DatasetEntry{
		DatasetVersion: domain.DatasetVersion,
		EntryID:        fmt.Sprintf("%s_%s_%s", rec.Task.Slug(), rec.Model.Slug(), ts.Format(entryTimestampLayout)),
		TaskID:         rec.Task.ID,
		Description:    rec.Task.Description,
		ModelID:        rec.Model.ID,
		ModelName:      rec.Model.Name(),
		Timestamp:      ts,
		Status:         rec.State.Status,
		Prompt: domain.PromptRecord{
			InputText:   rec.Task.Prompt,
			PromptKind:  rec.Task.PromptKind,
			StateBefore: rec.Task.StateBefore,
		},
		Response:     rec.FirstResponse,
		Stages:       rec.State.Stages,
		Conversation: rec.Conversation,
		Outcome: domain.OutcomeRecord{
			WorkedAsGenerated:   rec.State.WorkedAsGenerated,
			WorkedAfterFixes:    succeeded && !rec.State.WorkedAsGenerated,
			TotalFixesNeeded:    fixes,
			TotalIterations:     rec.State.Iteration,
			ExecutionSuccessful: succeeded,
		},
		Screenshots: rec.Screenshots,
	}

	r.applyTraitSections(entry, rec)
	return entry
}

// applyTraitSections fills the operation-specific validation blocks that
// evaluators use to judge updates, deletes, and expected-failure tasks.
func (r *Recorder) applyTraitSections(entry *domain.DatasetEntry, rec AttemptRecord) {
	delta := lastPlanDelta(rec.State)

	if rec.Task.Traits.Update || rec.Task.Operation == domain.OpUpdate {
		inPlace := delta != nil && delta.ToModify > 0 && delta.ToDestroy == 0
		entry.Update = &domain.UpdateValidation{
			ResourceIDPreserved: inPlace,
			InPlaceModification: inPlace,
		}
	}

	if rec.Task.Operation == domain.OpDelete {
		dv := &domain.DeleteValidation{RemainingExpected: rec.Task.Expected.VMCount}
		if delta != nil {
			dv.ResourcesDestroyed = delta.ToDestroy
		}
		entry.Delete = dv
	}

	if rec.Task.Traits.EdgeCase {
		ec := &domain.EdgeCaseValidation{FailedAsExpected: !rec.State.Status.Succeeded()}
		if last := rec.State.LastStage(); last != nil && !last.Success {
			ec.FailureStage = string(last.Stage)
		}
		entry.EdgeCase = ec
	}

	if rec.Task.Traits.Incremental {
		iv := &domain.IncrementalValidation{}
		if delta != nil {
			iv.ResourcesAdded = delta.ToCreate
			iv.ExistingPreserved = delta.ToDestroy == 0
		}
		entry.Incremental = iv
	}

	if rec.Task.Traits.IdempotencyTest {
		// The retry loop re-plans after a successful apply; that plan is the
		// last one in the stage sequence and must show zero pending changes.
		clean := rec.State.Status.Succeeded() &&
			delta != nil && delta.ToCreate == 0 && delta.ToModify == 0 && delta.ToDestroy == 0
		entry.Idempotency = &domain.IdempotencyValidation{ReplanShowedNoChanges: clean}
	}
}

// lastPlanDelta returns the delta from the most recent successful plan stage.
func lastPlanDelta(state domain.AttemptState) *domain.ResourceDelta {
	plans := state.StagesFor(domain.StagePlan)
	for i := len(plans) - 1; i >= 0; i-- {
		if plans[i].Success && plans[i].Delta != nil {
			return plans[i].Delta
		}
	}
	return nil
}
