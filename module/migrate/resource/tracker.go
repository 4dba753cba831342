// Package resource owns every filesystem path allocated during a migration
// run and guarantees each one is removed exactly once.
package resource

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/harness/package-migrator/util/common/errors"
	"github.com/harness/package-migrator/util/common/fileutil"
)

// Tracker is a concurrency-safe registry of temporary paths. Construct one
// per process and release it from the outermost entry point.
type Tracker struct {
	mu    sync.Mutex
	paths map[string]struct{}
	base  string
}

// NewTracker creates a Tracker whose workspaces live under base. An empty
// base means the system temporary directory.
func NewTracker(base string) *Tracker {
	if base == "" {
		base = os.TempDir()
	}
	return &Tracker{
		paths: make(map[string]struct{}),
		base:  base,
	}
}

// Track registers path and returns it unchanged. Tracking the same path twice
// is a no-op.
func (t *Tracker) Track(path string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paths[path] = struct{}{}
	return path
}

// Tracked returns a sorted snapshot of the registered paths.
func (t *Tracker) Tracked() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.paths))
	for p := range t.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Release removes path from disk and from the tracked set. Cleanup errors are
// logged and never returned.
func (t *Tracker) Release(path string) {
	t.mu.Lock()
	delete(t.paths, path)
	t.mu.Unlock()

	if err := os.RemoveAll(path); err != nil {
		log.Warn().Err(errors.NewFileError(path, "remove", err)).Msg("Failed to clean up temporary path")
		return
	}
	log.Debug().Str("path", path).Msg("Released temporary path")
}

// ReleaseAll releases every tracked path. Afterwards the tracked set is empty.
func (t *Tracker) ReleaseAll() {
	for _, p := range t.Tracked() {
		t.Release(p)
	}
}

// MkdirTemp creates a uniquely named directory under the tracker's base and
// tracks it. prefix is sanitised into a single path element.
func (t *Tracker) MkdirTemp(prefix string) (string, error) {
	if err := os.MkdirAll(t.base, 0o755); err != nil {
		return "", errors.NewFileError(t.base, "create_dir", err)
	}
	name := fileutil.SafeName(prefix) + "-" + uuid.New().String()[:8]
	dir := filepath.Join(t.base, name)
	if err := os.Mkdir(dir, 0o700); err != nil {
		return "", errors.NewFileError(dir, "create", err)
	}
	return t.Track(dir), nil
}
