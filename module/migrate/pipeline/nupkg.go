package pipeline

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/harness/package-migrator/util/common/errors"
)

// metadataEntries are the package metadata paths gpr refuses to push when
// they occur more than once.
var metadataEntries = map[string]bool{
	"_rels/.rels":         true,
	"[Content_Types].xml": true,
}

// DuplicateMetadata reads the central directory of the archive at path and
// returns how many extra occurrences of the metadata entries it contains.
func DuplicateMetadata(path string) (int, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return 0, errors.NewFileError(path, "open_zip", err)
	}
	defer zr.Close()
	return countDuplicates(&zr.Reader), nil
}

func countDuplicates(zr *zip.Reader) int {
	seen := map[string]bool{}
	dups := 0
	for _, f := range zr.File {
		if !metadataEntries[f.Name] {
			continue
		}
		if seen[f.Name] {
			dups++
		}
		seen[f.Name] = true
	}
	return dups
}

// RepairNupkg keeps the first occurrence of each metadata entry and drops the
// later ones, rewriting the archive in place. It returns the number of
// entries removed.
func RepairNupkg(path string) (int, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return 0, errors.NewFileError(path, "open_zip", err)
	}
	defer zr.Close()

	dups := countDuplicates(&zr.Reader)
	if dups == 0 {
		return 0, nil
	}
	log.Debug().Str("file", path).Int("duplicates", dups).Msg("Rewriting package archive")

	tmp, err := os.CreateTemp(filepath.Dir(path), ".repair-*.nupkg")
	if err != nil {
		return 0, errors.NewFileError(path, "create_temp", err)
	}
	defer os.Remove(tmp.Name())

	removed, err := copyWithoutDuplicates(&zr.Reader, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, errors.NewFileError(path, "rewrite", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, errors.NewFileError(path, "rename", err)
	}
	return removed, nil
}

func copyWithoutDuplicates(zr *zip.Reader, out io.Writer) (int, error) {
	zw := zip.NewWriter(out)
	seen := map[string]bool{}
	removed := 0
	for _, f := range zr.File {
		if metadataEntries[f.Name] {
			if seen[f.Name] {
				removed++
				continue
			}
			seen[f.Name] = true
		}
		if err := zw.Copy(f); err != nil {
			return 0, err
		}
	}
	if err := zw.Close(); err != nil {
		return 0, err
	}
	return removed, nil
}
