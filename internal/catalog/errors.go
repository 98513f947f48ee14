package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownTask indicates a lookup for a task ID not in the catalog.
var ErrUnknownTask = errors.New("unknown task")

// ConfigError indicates the catalog or a requested task subset is invalid.
// Configuration errors are fatal before any attempt starts and are never
// retried.
type ConfigError struct {
	Reason string
}

// Error returns the configuration failure description.
func (e *ConfigError) Error() string { return "task configuration error: " + e.Reason }

// MissingDependencyError indicates a requested subset names a task whose
// declared dependency is not part of the subset. The run must fail rather
// than silently drop dependency execution.
type MissingDependencyError struct {
	TaskID     string
	Dependency string
}

// Error returns the missing-dependency description.
func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("task %q requires %q, which is not in the requested task set", e.TaskID, e.Dependency)
}

// CycleError indicates the dependency edges among the requested tasks form a
// cycle. Ordering fails deterministically and names the cycle members; it is
// never resolved by arbitrary tie-breaking.
type CycleError struct {
	Members []string
}

// Error returns the cycle membership description.
func (e *CycleError) Error() string {
	return "dependency cycle among tasks: " + strings.Join(e.Members, ", ")
}
