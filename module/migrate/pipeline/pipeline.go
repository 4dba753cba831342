// Package pipeline moves single artifact versions from the source to the
// target registry: download, transform, publish.
package pipeline

import (
	"context"
	"fmt"

	"github.com/harness/package-migrator/module/migrate/http"
	"github.com/harness/package-migrator/module/migrate/resource"
	"github.com/harness/package-migrator/module/migrate/types"
)

// Pipeline transfers the references of one package kind.
type Pipeline interface {
	Kind() types.Kind
	// Prepare checks tool preconditions and writes run-wide state such as
	// credential files. It runs once, before any version is processed.
	Prepare(ctx context.Context) error
	// References expands enumerated versions into units of transfer.
	References(versions []types.Version) []types.Reference
	// Transfer moves one reference. It returns false without an error when
	// the source artifact does not exist, and an error for failures the
	// caller may classify for retry.
	Transfer(ctx context.Context, pkg types.Package, ref types.Reference, ws *resource.Workspace) (bool, error)
}

// Deps are the collaborators shared by the pipelines.
type Deps struct {
	// Source is an HTTP client authorized against the source side.
	Source  *http.Client
	Tracker *resource.Tracker
	Runner  Runner
	// Copier overrides the container copier selected by the context.
	Copier Copier
}

// New returns the pipeline for mc.Kind.
func New(mc *types.MigrationContext, deps Deps) (Pipeline, error) {
	if deps.Runner == nil {
		deps.Runner = ExecRunner{}
	}
	switch mc.Kind {
	case types.KindNPM:
		return NewNPM(mc, deps), nil
	case types.KindNuGet:
		return NewNuGet(mc, deps), nil
	case types.KindContainer:
		return NewContainer(mc, deps)
	default:
		return nil, fmt.Errorf("unsupported package kind: %q", mc.Kind)
	}
}

// versionReferences maps each version to a plain version reference.
func versionReferences(versions []types.Version) []types.Reference {
	refs := make([]types.Reference, 0, len(versions))
	for _, v := range versions {
		refs = append(refs, types.Reference{Name: v.Name, Kind: types.RefVersion})
	}
	return refs
}
