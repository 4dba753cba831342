package resource

import (
	"path/filepath"

	"github.com/harness/package-migrator/util/common/fileutil"
)

// Workspace is a temporary directory owned by exactly one version transfer.
type Workspace struct {
	Path    string
	tracker *Tracker
}

// NewWorkspace allocates a fresh workspace named after the package and the
// reference being transferred.
func (t *Tracker) NewWorkspace(pkg, ref string) (*Workspace, error) {
	dir, err := t.MkdirTemp(pkg + "-" + ref)
	if err != nil {
		return nil, err
	}
	return &Workspace{Path: dir, tracker: t}, nil
}

// Join returns a path inside the workspace.
func (w *Workspace) Join(elem ...string) string {
	return filepath.Join(append([]string{w.Path}, elem...)...)
}

// Reset discards everything a previous attempt left behind.
func (w *Workspace) Reset() error {
	if err := fileutil.ResetDir(w.Path); err != nil {
		return err
	}
	w.tracker.Track(w.Path)
	return nil
}

// Release removes the workspace from disk.
func (w *Workspace) Release() {
	w.tracker.Release(w.Path)
}
