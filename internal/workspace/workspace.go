// Package workspace owns the temporary files created during one
// transcription job: the converted waveform and the chunk files. Every
// registered file is removed exactly once when the job reaches a terminal
// status, including after mid-pipeline failures. A workspace is never
// shared across jobs.
package workspace

import (
	"fmt"
	"os"
	"sync"
)

// dirPattern names workspace directories so stray ones are identifiable.
const dirPattern = "speech2text-*"

// Workspace is a per-job scratch directory with registered-file tracking.
type Workspace struct {
	dir string

	mu      sync.Mutex
	files   []string
	cleaned bool
}

// New creates a scratch directory under the system temp dir (or under base
// if non-empty).
func New(base string) (*Workspace, error) {
	dir, err := os.MkdirTemp(base, dirPattern)
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

// Dir returns the scratch directory path.
func (w *Workspace) Dir() string { return w.dir }

// Register records a file for removal at cleanup. Paths are registered
// before the producing step runs, so a failure mid-step still results in
// cleanup of whatever was written.
func (w *Workspace) Register(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cleaned {
		// Late registration after cleanup: remove immediately rather
		// than leak.
		_ = os.Remove(path)
		return
	}
	w.files = append(w.files, path)
}

// Cleanup removes every registered file and the scratch directory.
// Idempotent: the second and later calls are no-ops, and files already
// gone are not an error.
func (w *Workspace) Cleanup() error {
	w.mu.Lock()
	if w.cleaned {
		w.mu.Unlock()
		return nil
	}
	w.cleaned = true
	files := w.files
	w.files = nil
	w.mu.Unlock()

	var firstErr error
	for _, f := range files {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove %s: %w", f, err)
			}
		}
	}
	if err := os.RemoveAll(w.dir); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("remove workspace dir: %w", err)
	}
	return firstErr
}
