package fileutil

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTarGz(t *testing.T, path string, files map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, body := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(body)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestExtractTarGz(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "pkg.tgz")
	writeTarGz(t, archive, map[string]string{
		"package/package.json": `{"name":"@src/left-pad"}`,
		"package/lib/index.js": "module.exports = 1",
	})

	out := filepath.Join(dir, "out")
	require.NoError(t, ExtractTarGz(archive, out))

	data, err := os.ReadFile(filepath.Join(out, "package", "package.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"name":"@src/left-pad"}`, string(data))
	assert.True(t, Exists(filepath.Join(out, "package", "lib", "index.js")))
}

func TestExtractTarGz_ContainsTraversal(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.tgz")
	writeTarGz(t, archive, map[string]string{"../../escape.txt": "x"})

	out := filepath.Join(dir, "out")
	// Cleaning against a rooted path keeps the entry inside dst.
	require.NoError(t, ExtractTarGz(archive, out))
	assert.True(t, Exists(filepath.Join(out, "escape.txt")))
	assert.False(t, Exists(filepath.Join(dir, "escape.txt")))
}

func TestResetDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ws")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "partial"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "partial", "file"), []byte("x"), 0o644))

	require.NoError(t, ResetDir(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSafeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "left-pad", want: "left-pad"},
		{in: "team/api-image", want: "team_api-image"},
		{in: "sha256:abc", want: "sha256_abc"},
		{in: "..", want: "_"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeName(tt.in))
		})
	}
}
