package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/terrabench/internal/domain"
)

func def(id string, deps ...string) domain.TaskDefinition {
	return domain.TaskDefinition{
		ID:          id,
		Description: "task " + id,
		Prompt:      "do the thing for " + id,
		PromptKind:  domain.PromptDetailed,
		Operation:   domain.OpCreate,
		DependsOn:   deps,
		Expected:    domain.TaskExpectations{VMCount: 1},
	}
}

func TestNew(t *testing.T) {
	t.Run("valid catalog", func(t *testing.T) {
		cat, err := New([]domain.TaskDefinition{def("A"), def("B", "A")})
		require.NoError(t, err)
		assert.Equal(t, 2, cat.Len())
		assert.Equal(t, []string{"A", "B"}, cat.IDs())
	})

	t.Run("duplicate id", func(t *testing.T) {
		_, err := New([]domain.TaskDefinition{def("A"), def("A")})
		var cfgErr *ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Contains(t, cfgErr.Reason, "duplicate")
	})

	t.Run("unknown dependency", func(t *testing.T) {
		_, err := New([]domain.TaskDefinition{def("A", "GHOST")})
		var cfgErr *ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Contains(t, cfgErr.Reason, "GHOST")
	})

	t.Run("self dependency", func(t *testing.T) {
		_, err := New([]domain.TaskDefinition{def("A", "A")})
		var cfgErr *ConfigError
		require.ErrorAs(t, err, &cfgErr)
	})

	t.Run("invalid definition", func(t *testing.T) {
		bad := def("A")
		bad.Prompt = ""
		_, err := New([]domain.TaskDefinition{bad})
		assert.Error(t, err)
	})
}

func TestGet(t *testing.T) {
	cat, err := New([]domain.TaskDefinition{def("A")})
	require.NoError(t, err)

	task, err := cat.Get("A")
	require.NoError(t, err)
	assert.Equal(t, "A", task.ID)

	_, err = cat.Get("B")
	assert.ErrorIs(t, err, ErrUnknownTask)
}

func TestResolve(t *testing.T) {
	t.Run("dependency precedes dependent", func(t *testing.T) {
		// Declare B before A so declaration order alone cannot satisfy the
		// ordering.
		cat, err := New([]domain.TaskDefinition{def("B", "A"), def("A")})
		require.NoError(t, err)

		ordered, err := cat.Resolve(nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B"}, ids(ordered))
	})

	t.Run("independent tasks keep declaration order", func(t *testing.T) {
		cat, err := New([]domain.TaskDefinition{def("C"), def("A"), def("B")})
		require.NoError(t, err)

		ordered, err := cat.Resolve(nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"C", "A", "B"}, ids(ordered))
	})

	t.Run("resolution is deterministic", func(t *testing.T) {
		cat, err := New([]domain.TaskDefinition{def("D", "B", "C"), def("B", "A"), def("C", "A"), def("A")})
		require.NoError(t, err)

		first, err := cat.Resolve(nil)
		require.NoError(t, err)
		for i := 0; i < 20; i++ {
			again, err := cat.Resolve(nil)
			require.NoError(t, err)
			assert.Equal(t, ids(first), ids(again))
		}
	})

	t.Run("subset selection", func(t *testing.T) {
		cat, err := New([]domain.TaskDefinition{def("A"), def("B", "A"), def("C")})
		require.NoError(t, err)

		ordered, err := cat.Resolve([]string{"B", "A"})
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B"}, ids(ordered))
	})

	t.Run("unknown requested task", func(t *testing.T) {
		cat, err := New([]domain.TaskDefinition{def("A")})
		require.NoError(t, err)

		_, err = cat.Resolve([]string{"NOPE"})
		var cfgErr *ConfigError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("dependency outside subset", func(t *testing.T) {
		cat, err := New([]domain.TaskDefinition{def("A"), def("B", "A")})
		require.NoError(t, err)

		_, err = cat.Resolve([]string{"B"})
		var missErr *MissingDependencyError
		require.ErrorAs(t, err, &missErr)
		assert.Equal(t, "B", missErr.TaskID)
		assert.Equal(t, "A", missErr.Dependency)
	})

	t.Run("cycle names its members", func(t *testing.T) {
		cat, err := New([]domain.TaskDefinition{def("A", "C"), def("B", "A"), def("C", "B"), def("D")})
		require.NoError(t, err)

		_, err = cat.Resolve(nil)
		var cycleErr *CycleError
		require.ErrorAs(t, err, &cycleErr)
		assert.ElementsMatch(t, []string{"A", "B", "C"}, cycleErr.Members)
		assert.NotContains(t, cycleErr.Members, "D")
	})
}

func TestBuiltin(t *testing.T) {
	cat := Builtin()
	require.NotZero(t, cat.Len())

	ordered, err := cat.Resolve(nil)
	require.NoError(t, err)
	require.Len(t, ordered, cat.Len())

	// Every task appears after all of its dependencies.
	position := make(map[string]int, len(ordered))
	for i, task := range ordered {
		position[task.ID] = i
	}
	for _, task := range ordered {
		for _, dep := range task.DependsOn {
			assert.Less(t, position[dep], position[task.ID],
				"task %s must run after %s", task.ID, dep)
		}
	}
}

func TestBuildPrompt(t *testing.T) {
	task := def("A")
	task.Prompt = "I need a new VM"
	assert.Equal(t, "Task: I need a new VM", BuildPrompt(task))
}

func ids(tasks []domain.TaskDefinition) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}
