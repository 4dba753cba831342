package pipeline

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/harness/package-migrator/module/migrate/resource"
	"github.com/harness/package-migrator/module/migrate/types"
)

type call struct {
	Name string
	Args []string
	Dir  string
}

type fakeRunner struct {
	mu      sync.Mutex
	calls   []call
	missing map[string]bool
	// onRun inspects a call and returns its result; nil means exit 0.
	onRun func(c call) Result
}

func (f *fakeRunner) Run(_ context.Context, name string, args []string, opts RunOptions) (Result, error) {
	c := call{Name: name, Args: append([]string(nil), args...), Dir: opts.Dir}
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
	if f.onRun == nil {
		return Result{}, nil
	}
	return f.onRun(c), nil
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	if f.missing[name] {
		return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
	}
	return "/usr/local/bin/" + name, nil
}

func (f *fakeRunner) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func testContext() context.Context {
	return zerolog.Nop().WithContext(context.Background())
}

// capturingContext carries a logger that writes JSON lines to buf.
func capturingContext(buf *bytes.Buffer) context.Context {
	return zerolog.New(buf).WithContext(context.Background())
}

func loggedLevels(t *testing.T, buf *bytes.Buffer) []string {
	t.Helper()
	var levels []string
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var entry struct {
			Level string `json:"level"`
		}
		require.NoError(t, json.Unmarshal(line, &entry))
		levels = append(levels, entry.Level)
	}
	return levels
}

func newWorkspace(t *testing.T, tracker *resource.Tracker, pkg string, ref types.Reference) *resource.Workspace {
	t.Helper()
	ws, err := tracker.NewWorkspace(pkg, ref.String())
	require.NoError(t, err)
	t.Cleanup(ws.Release)
	return ws
}

// tarball builds a gzip-compressed npm tarball with the given files.
func tarball(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}
