package resource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_TrackIsIdempotent(t *testing.T) {
	tr := NewTracker(t.TempDir())
	p := filepath.Join(t.TempDir(), "x")

	assert.Equal(t, p, tr.Track(p))
	tr.Track(p)

	assert.Equal(t, []string{p}, tr.Tracked())
}

func TestTracker_ReleaseToleratesMissingPath(t *testing.T) {
	tr := NewTracker(t.TempDir())
	p := tr.Track(filepath.Join(t.TempDir(), "never-created"))

	tr.Release(p)
	tr.Release(p)

	assert.Empty(t, tr.Tracked())
}

func TestTracker_ReleaseAllRemovesEverything(t *testing.T) {
	tr := NewTracker(t.TempDir())

	var dirs []string
	for i := 0; i < 3; i++ {
		dir, err := tr.MkdirTemp(fmt.Sprintf("pkg-%d", i))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "artifact"), []byte("data"), 0o644))
		dirs = append(dirs, dir)
	}

	// An operation that fails before releasing its own path.
	func() error {
		_, err := tr.MkdirTemp("failing")
		require.NoError(t, err)
		return errors.New("boom")
	}()

	tr.ReleaseAll()

	assert.Empty(t, tr.Tracked())
	for _, d := range dirs {
		_, err := os.Stat(d)
		assert.True(t, os.IsNotExist(err), d)
	}
	entries, err := os.ReadDir(tr.base)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTracker_ConcurrentTrackAndRelease(t *testing.T) {
	tr := NewTracker(t.TempDir())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dir, err := tr.MkdirTemp(fmt.Sprintf("w%d", i))
			if err != nil {
				t.Error(err)
				return
			}
			if i%2 == 0 {
				tr.Release(dir)
			}
		}(i)
	}
	wg.Wait()
	assert.Len(t, tr.Tracked(), 25)
	tr.ReleaseAll()
	assert.Empty(t, tr.Tracked())
}

func TestWorkspace_ResetAndRelease(t *testing.T) {
	tr := NewTracker(t.TempDir())
	ws, err := tr.NewWorkspace("@scope/left-pad", "1.0.0")
	require.NoError(t, err)
	assert.Contains(t, filepath.Base(ws.Path), "scope_left-pad-1.0.0-")

	require.NoError(t, os.WriteFile(ws.Join("partial.tgz"), []byte("half"), 0o644))
	require.NoError(t, ws.Reset())
	entries, err := os.ReadDir(ws.Path)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Contains(t, tr.Tracked(), ws.Path)

	ws.Release()
	_, err = os.Stat(ws.Path)
	assert.True(t, os.IsNotExist(err))
	assert.Empty(t, tr.Tracked())
}

func TestWorkspace_UniquePerConcurrentUnit(t *testing.T) {
	tr := NewTracker(t.TempDir())
	a, err := tr.NewWorkspace("pkg", "1.0.0")
	require.NoError(t, err)
	b, err := tr.NewWorkspace("pkg", "1.0.0")
	require.NoError(t, err)
	assert.NotEqual(t, a.Path, b.Path)
	tr.ReleaseAll()
}
