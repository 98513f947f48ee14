// Package conversation owns per-(task, model) message histories. Every
// attempt gets a fresh, isolated history; no operation ever reads or writes
// another pair's messages.
package conversation

import (
	"errors"
	"fmt"
	"sync"
)

// ErrHistoryExists indicates a Create call for a (task, model) pair that
// already has a history within the same run. Histories are never silently
// reused across attempts.
var ErrHistoryExists = errors.New("conversation history already exists")

type pairKey struct {
	taskID  string
	modelID string
}

// Store tracks the histories created during one run. It exists to enforce
// the no-silent-reuse rule; each History is otherwise self-contained.
type Store struct {
	mu        sync.Mutex
	histories map[pairKey]*History
}

// NewStore creates an empty conversation store for one run.
func NewStore() *Store {
	return &Store{histories: make(map[pairKey]*History)}
}

// Create returns a new empty history for the pair, failing if one already
// exists within this run.
func (s *Store) Create(taskID, modelID string) (*History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := pairKey{taskID: taskID, modelID: modelID}
	if _, ok := s.histories[k]; ok {
		return nil, fmt.Errorf("%w for task %s, model %s", ErrHistoryExists, taskID, modelID)
	}

	h := &History{taskID: taskID, modelID: modelID}
	s.histories[k] = h
	return h, nil
}

// Get returns the history for a pair, or nil if none was created.
func (s *Store) Get(taskID, modelID string) *History {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.histories[pairKey{taskID: taskID, modelID: modelID}]
}
