package fileutil

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/harness/package-migrator/util/common/errors"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// validatePath checks if a path is valid and accessible.
// Returns an error if the path is empty or if the parent directory is not
// accessible.
func validatePath(path string) error {
	if path == "" {
		return errors.NewValidationError("path", "path cannot be empty")
	}

	parent := filepath.Dir(path)
	if parent != "." {
		if _, err := os.Stat(parent); err != nil {
			return errors.NewFileError(parent, "access", err)
		}
	}

	return nil
}

// ResetDir removes a directory if it exists and creates a fresh empty one.
func ResetDir(path string) error {
	if err := validatePath(path); err != nil {
		return err
	}

	if err := os.RemoveAll(path); err != nil {
		return errors.NewFileError(path, "remove", err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return errors.NewFileError(path, "create", err)
	}
	return nil
}

// WriteFile writes data to a file with the given permissions, creating parent
// directories if needed.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	if path == "" {
		return errors.NewValidationError("path", "path cannot be empty")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewFileError(path, "create_dir", err)
	}

	if err := os.WriteFile(path, data, perm); err != nil {
		return errors.NewFileError(path, "write", err)
	}
	return nil
}

// SafeName turns an arbitrary package name or reference into a string usable
// as a single path element.
func SafeName(s string) string {
	s = unsafeNameChars.ReplaceAllString(s, "_")
	s = strings.Trim(s, "._")
	if s == "" {
		return "_"
	}
	return s
}

// ExtractTarGz unpacks a gzip-compressed tarball into dst. Entries that would
// escape dst are rejected.
func ExtractTarGz(archive, dst string) error {
	f, err := os.Open(archive)
	if err != nil {
		return errors.NewFileError(archive, "open", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	root, err := filepath.Abs(dst)
	if err != nil {
		return errors.NewFileError(dst, "abs", err)
	}

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read tar header: %w", err)
		}

		target := filepath.Join(root, filepath.Clean("/"+header.Name))
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return errors.NewValidationError("archive", fmt.Sprintf("entry %q escapes destination", header.Name))
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return errors.NewFileError(target, "create_dir", err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return errors.NewFileError(target, "create_dir", err)
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
			if err != nil {
				return errors.NewFileError(target, "create", err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return errors.NewFileError(target, "write", err)
			}
			if err := out.Close(); err != nil {
				return errors.NewFileError(target, "close", err)
			}
		default:
			// links and device entries are not part of package tarballs
		}
	}
}

// Exists checks if a file or directory exists
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
