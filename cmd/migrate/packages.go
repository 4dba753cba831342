package migrate

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/harness/package-migrator/module/migrate/types"
	"github.com/harness/package-migrator/util/common/errors"
)

type packageItem struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Repository string `json:"repository"`
}

// ReadPackages decodes the package list from inline JSON or a file ("-"
// reads stdin). An item typed for another kind fails the whole list;
// duplicate names are migrated once.
func ReadPackages(inline, file string, stdin io.Reader, kind types.Kind) ([]types.Package, error) {
	var data []byte
	switch {
	case inline != "" && file != "":
		return nil, errors.NewValidationError("packages", "--packages and --packages-file are mutually exclusive")
	case inline != "":
		data = []byte(inline)
	case file == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read package list from stdin: %w", err)
		}
		data = b
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.NewFileError(file, "read", err)
		}
		data = b
	default:
		return nil, errors.NewValidationError("packages", "one of --packages or --packages-file is required")
	}

	var items []packageItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, errors.NewValidationError("packages", fmt.Sprintf("invalid JSON package list: %v", err))
	}

	seen := make(map[string]struct{}, len(items))
	packages := make([]types.Package, 0, len(items))
	for i, item := range items {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			return nil, errors.NewValidationError("packages", fmt.Sprintf("item %d has no name", i))
		}
		if item.Type != "" {
			k, err := types.ParseKind(item.Type)
			if err != nil {
				return nil, errors.NewValidationError("packages", err.Error())
			}
			if k != kind {
				return nil, errors.NewValidationError("packages",
					fmt.Sprintf("item %d (%s) is a %s package, this command migrates %s packages", i, name, k, kind))
			}
		}
		if _, ok := seen[name]; ok {
			log.Debug().Str("package", name).Msg("Ignoring duplicate package entry")
			continue
		}
		seen[name] = struct{}{}
		packages = append(packages, types.Package{Name: name, Kind: kind, Repository: item.Repository})
	}
	return packages, nil
}
