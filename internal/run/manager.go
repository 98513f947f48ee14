package run

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/terrabench/internal/domain"
)

// ErrRunNotFound indicates an unknown run identifier.
var ErrRunNotFound = errors.New("run not found")

// Params selects what a run executes.
type Params struct {
	// Models are the descriptors to evaluate. At least one is required.
	Models []domain.ModelDescriptor

	// TaskIDs selects tasks from the catalog; empty selects all tasks.
	TaskIDs []string

	// MaxIterations is the per-attempt iteration budget. Must be positive.
	MaxIterations int
}

func (p Params) validate() error {
	if len(p.Models) == 0 {
		return errors.New("at least one model is required")
	}
	for _, m := range p.Models {
		if m.ID == "" {
			return errors.New("model id must not be empty")
		}
	}
	if p.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be positive, got %d", p.MaxIterations)
	}
	return nil
}

// runState pairs a mutable record with its lock and cancel handle. The
// coordinator mutates through update; everyone else reads snapshots.
type runState struct {
	mu     sync.Mutex
	record domain.RunRecord
	cancel context.CancelFunc
}

func (s *runState) snapshot() domain.RunRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.Clone()
}

func (s *runState) update(fn func(r *domain.RunRecord)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.record)
}

// Manager owns run lifecycles: it accepts run requests, spawns the
// coordinator on a background goroutine, and serves point-in-time snapshots.
// One manager allows multiple concurrent runs; attempts within each run stay
// strictly sequential.
type Manager struct {
	coordinator *Coordinator

	mu   sync.Mutex
	runs map[string]*runState
}

// NewManager creates a manager driving runs through the coordinator.
func NewManager(coordinator *Coordinator) *Manager {
	return &Manager{
		coordinator: coordinator,
		runs:        make(map[string]*runState),
	}
}

// StartRun validates the request, registers a pending run, and starts
// executing it in the background. The returned snapshot reflects the run at
// acceptance time.
func (m *Manager) StartRun(params Params) (domain.RunRecord, error) {
	if err := params.validate(); err != nil {
		return domain.RunRecord{}, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	state := &runState{
		record: domain.RunRecord{
			ID:            uuid.NewString(),
			Status:        domain.RunPending,
			Models:        append([]domain.ModelDescriptor(nil), params.Models...),
			Tasks:         append([]string(nil), params.TaskIDs...),
			MaxIterations: params.MaxIterations,
			StartedAt:     time.Now().UTC(),
		},
		cancel: cancel,
	}

	m.mu.Lock()
	m.runs[state.record.ID] = state
	m.mu.Unlock()

	go m.coordinator.execute(ctx, state)

	return state.snapshot(), nil
}

// GetRun returns a snapshot of one run.
func (m *Manager) GetRun(id string) (domain.RunRecord, error) {
	m.mu.Lock()
	state, ok := m.runs[id]
	m.mu.Unlock()
	if !ok {
		return domain.RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return state.snapshot(), nil
}

// ListRuns returns snapshots of every known run, newest first.
func (m *Manager) ListRuns() []domain.RunRecord {
	m.mu.Lock()
	states := make([]*runState, 0, len(m.runs))
	for _, s := range m.runs {
		states = append(states, s)
	}
	m.mu.Unlock()

	records := make([]domain.RunRecord, 0, len(states))
	for _, s := range states {
		records = append(records, s.snapshot())
	}
	sort.Slice(records, func(i, j int) bool { return records[i].StartedAt.After(records[j].StartedAt) })
	return records
}

// CancelRun requests cancellation of a run. The coordinator honors it at the
// next between-attempts boundary. Cancelling a terminal run is a no-op.
func (m *Manager) CancelRun(id string) error {
	m.mu.Lock()
	state, ok := m.runs[id]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	if state.snapshot().Status.Terminal() {
		return nil
	}
	state.cancel()
	return nil
}
