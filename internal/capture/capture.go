// Package capture collects visual evidence artifacts for finished attempts.
// Capture is best effort: a failure is logged and the attempt result is
// unaffected, so a missing screenshot never changes an outcome.
package capture

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ahrav/terrabench/internal/domain"
)

// Capturer gathers artifact references for one task/model attempt.
type Capturer interface {
	Capture(ctx context.Context, task domain.TaskDefinition, model domain.ModelDescriptor) []domain.ArtifactRef
}

// DirCapturer lists artifacts previously placed under a screenshots
// directory, one subdirectory per model and task slug. External tooling
// drops PNG captures of the management console there during a run.
type DirCapturer struct {
	baseDir string
	logger  *slog.Logger
}

// NewDirCapturer creates a capturer rooted at baseDir.
func NewDirCapturer(baseDir string) *DirCapturer {
	return &DirCapturer{
		baseDir: baseDir,
		logger:  slog.Default().With("component", "capture"),
	}
}

// Capture returns references to every image artifact found for the attempt,
// sorted by filename. Missing directories yield an empty list.
func (c *DirCapturer) Capture(_ context.Context, task domain.TaskDefinition, model domain.ModelDescriptor) []domain.ArtifactRef {
	dir := filepath.Join(c.baseDir, model.Slug(), task.Slug())

	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn("artifact scan failed", "dir", dir, "error", err)
		}
		return nil
	}

	var refs []domain.ArtifactRef
	for _, entry := range entries {
		if entry.IsDir() || !isImageFile(entry.Name()) {
			continue
		}
		name := entry.Name()
		refs = append(refs, domain.ArtifactRef{
			Kind: strings.TrimSuffix(name, filepath.Ext(name)),
			Path: filepath.Join(dir, name),
		})
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].Path < refs[j].Path })
	return refs
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg":
		return true
	default:
		return false
	}
}

// NopCapturer returns no artifacts. Used when screenshot tooling is absent.
type NopCapturer struct{}

func (NopCapturer) Capture(context.Context, domain.TaskDefinition, domain.ModelDescriptor) []domain.ArtifactRef {
	return nil
}
