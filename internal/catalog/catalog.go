// Package catalog holds the static task catalog and its dependency-aware
// ordering. Definitions are loaded once at process start; invalid dependency
// references are rejected at load time, before any run can start.
package catalog

import (
	"fmt"

	"github.com/ahrav/terrabench/internal/domain"
)

// Catalog is an immutable, ordered collection of task definitions.
// Declaration order is preserved so that runs stay reproducible.
type Catalog struct {
	tasks []domain.TaskDefinition
	index map[string]int
}

// New builds a catalog from task definitions, validating each definition and
// every dependency reference. Returns a ConfigError on the first problem.
func New(defs []domain.TaskDefinition) (*Catalog, error) {
	c := &Catalog{
		tasks: append([]domain.TaskDefinition(nil), defs...),
		index: make(map[string]int, len(defs)),
	}

	for i, t := range c.tasks {
		if err := t.Validate(); err != nil {
			return nil, &ConfigError{Reason: fmt.Sprintf("task %q: %v", t.ID, err)}
		}
		if _, dup := c.index[t.ID]; dup {
			return nil, &ConfigError{Reason: fmt.Sprintf("duplicate task ID %q", t.ID)}
		}
		c.index[t.ID] = i
	}

	for _, t := range c.tasks {
		for _, dep := range t.DependsOn {
			if _, ok := c.index[dep]; !ok {
				return nil, &ConfigError{
					Reason: fmt.Sprintf("task %q depends on unknown task %q", t.ID, dep),
				}
			}
			if dep == t.ID {
				return nil, &ConfigError{Reason: fmt.Sprintf("task %q depends on itself", t.ID)}
			}
		}
	}

	return c, nil
}

// Get returns the definition for a task ID.
func (c *Catalog) Get(id string) (domain.TaskDefinition, error) {
	i, ok := c.index[id]
	if !ok {
		return domain.TaskDefinition{}, fmt.Errorf("%w: %s", ErrUnknownTask, id)
	}
	return c.tasks[i], nil
}

// All returns every task in declaration order.
func (c *Catalog) All() []domain.TaskDefinition {
	return append([]domain.TaskDefinition(nil), c.tasks...)
}

// IDs returns every task ID in declaration order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.tasks))
	for i, t := range c.tasks {
		ids[i] = t.ID
	}
	return ids
}

// Len returns the number of tasks in the catalog.
func (c *Catalog) Len() int { return len(c.tasks) }
