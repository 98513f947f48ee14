package capture

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/terrabench/internal/domain"
)

var (
	testTask  = domain.TaskDefinition{ID: "C1.2", Prompt: "create a vm", PromptKind: domain.PromptVague, Operation: domain.OpCreate, Expected: domain.TaskExpectations{VMCount: 1}}
	testModel = domain.ModelDescriptor{ID: "openai/gpt-4o", DisplayName: "GPT-4o"}
)

func TestDirCapturer_ListsImages(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, testModel.Slug(), testTask.Slug())
	require.NoError(t, os.MkdirAll(dir, 0o755))

	for _, name := range []string{"xo_vm_list.png", "vm_details.png", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	refs := NewDirCapturer(base).Capture(context.Background(), testTask, testModel)

	require.Len(t, refs, 2)
	assert.Equal(t, "vm_details", refs[0].Kind)
	assert.Equal(t, "xo_vm_list", refs[1].Kind)
	assert.FileExists(t, refs[0].Path)
}

func TestDirCapturer_MissingDirIsEmpty(t *testing.T) {
	refs := NewDirCapturer(t.TempDir()).Capture(context.Background(), testTask, testModel)
	assert.Empty(t, refs)
}

func TestNopCapturer(t *testing.T) {
	assert.Nil(t, NopCapturer{}.Capture(context.Background(), testTask, testModel))
}
