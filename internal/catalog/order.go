package catalog

import "github.com/ahrav/terrabench/internal/domain"

// Resolve produces a total execution order over the requested task IDs such
// that every task appears after all of its declared dependencies. A nil or
// empty request selects the whole catalog. Tasks with no ordering constraint
// between them keep catalog declaration order, so runs are reproducible.
//
// Resolve fails with a MissingDependencyError when a requested task's
// dependency is outside the requested subset, and with a CycleError naming
// the cycle members when dependency edges form a cycle.
func (c *Catalog) Resolve(requested []string) ([]domain.TaskDefinition, error) {
	if len(requested) == 0 {
		requested = c.IDs()
	}

	selected := make(map[string]bool, len(requested))
	for _, id := range requested {
		if _, ok := c.index[id]; !ok {
			return nil, &ConfigError{Reason: "unknown task " + id}
		}
		selected[id] = true
	}

	// Dependencies must be satisfied inside the subset; the run never
	// assumes resources left behind by an earlier run.
	for id := range selected {
		task := c.tasks[c.index[id]]
		for _, dep := range task.DependsOn {
			if !selected[dep] {
				return nil, &MissingDependencyError{TaskID: id, Dependency: dep}
			}
		}
	}

	if cycle := c.findCycle(selected); len(cycle) > 0 {
		return nil, &CycleError{Members: cycle}
	}

	// Kahn's algorithm driven by declaration order: on every pass, emit the
	// first declared task whose dependencies have all been emitted. This is
	// O(n^2) on a fixed, small catalog and keeps ties deterministic.
	emitted := make(map[string]bool, len(selected))
	order := make([]domain.TaskDefinition, 0, len(selected))
	for len(order) < len(selected) {
		progressed := false
		for _, t := range c.tasks {
			if !selected[t.ID] || emitted[t.ID] {
				continue
			}
			ready := true
			for _, dep := range t.DependsOn {
				if !emitted[dep] {
					ready = false
					break
				}
			}
			if ready {
				order = append(order, t)
				emitted[t.ID] = true
				progressed = true
			}
		}
		if !progressed {
			// Unreachable once findCycle has passed; kept as a guard.
			return nil, &CycleError{Members: unemitted(selected, emitted)}
		}
	}

	return order, nil
}

// findCycle runs a depth-first search over the dependency edges restricted to
// the selected subset and returns the members of the first cycle found, in
// edge order, or nil when the subgraph is acyclic.
func (c *Catalog) findCycle(selected map[string]bool) []string {
	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[string]int, len(selected))
	var stack []string

	var visit func(id string) []string
	visit = func(id string) []string {
		state[id] = inStack
		stack = append(stack, id)

		for _, dep := range c.tasks[c.index[id]].DependsOn {
			if !selected[dep] {
				continue
			}
			switch state[dep] {
			case inStack:
				// Slice the stack from the first occurrence of dep to get
				// exactly the cycle members.
				for i, member := range stack {
					if member == dep {
						return append([]string(nil), stack[i:]...)
					}
				}
			case unvisited:
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			}
		}

		stack = stack[:len(stack)-1]
		state[id] = done
		return nil
	}

	for _, t := range c.tasks {
		if selected[t.ID] && state[t.ID] == unvisited {
			if cycle := visit(t.ID); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

func unemitted(selected, emitted map[string]bool) []string {
	var out []string
	for id := range selected {
		if !emitted[id] {
			out = append(out, id)
		}
	}
	return out
}
