package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/harness/package-migrator/module/migrate/resource"
	"github.com/harness/package-migrator/module/migrate/types"
	"github.com/harness/package-migrator/util/common/errors"
)

// Copier copies one fully qualified image reference between registries,
// all platform variants included and digests preserved. Failures are
// returned as classified errors.
type Copier interface {
	Copy(ctx context.Context, src, dst string) error
}

// Container copies digest and tag references of container packages.
type Container struct {
	mc     *types.MigrationContext
	runner Runner
	copier Copier
}

func NewContainer(mc *types.MigrationContext, deps Deps) (*Container, error) {
	p := &Container{mc: mc, runner: deps.Runner, copier: deps.Copier}
	if p.copier != nil {
		return p, nil
	}
	switch mc.Container.Copier {
	case types.CopierSkopeo:
		p.copier = NewSkopeoCopier(mc, deps.Runner)
	case types.CopierCrane, "":
		p.copier = NewCraneCopier(mc)
	default:
		return nil, fmt.Errorf("unsupported copier: %q", mc.Container.Copier)
	}
	return p, nil
}

func (p *Container) Kind() types.Kind { return types.KindContainer }

// Prepare checks that docker is available when skopeo runs in a container.
func (p *Container) Prepare(_ context.Context) error {
	if _, ok := p.copier.(*SkopeoCopier); !ok {
		return nil
	}
	if _, err := p.runner.LookPath(p.mc.Container.DockerPath); err != nil {
		return fmt.Errorf("docker is required to run skopeo: %w", err)
	}
	return nil
}

func (p *Container) References(versions []types.Version) []types.Reference {
	return ParseVersions(versions)
}

// ParseVersions expands every version into its digest reference followed by
// one reference per tag.
func ParseVersions(versions []types.Version) []types.Reference {
	var refs []types.Reference
	for _, v := range versions {
		refs = append(refs, types.Reference{Name: v.Name, Kind: types.RefDigest, Digest: v.Name})
		for _, tag := range v.Tags() {
			refs = append(refs, types.Reference{Name: tag, Kind: types.RefTag, Digest: v.Name})
		}
	}
	return refs
}

// ImageReference builds host/org/name@digest or host/org/name:tag.
func ImageReference(host, org, name string, ref types.Reference) string {
	return fmt.Sprintf("%s/%s/%s%s", host, strings.ToLower(org), strings.ToLower(name), ref.String())
}

// Transfer copies one reference. Every classified failure is logged and
// collapsed to false; retry counts live in the copier.
func (p *Container) Transfer(ctx context.Context, pkg types.Package, ref types.Reference, _ *resource.Workspace) (bool, error) {
	logger := zerolog.Ctx(ctx).With().
		Str("package", pkg.Name).
		Str("reference", ref.String()).
		Logger()

	src := ImageReference(p.mc.Source.RegistryURL, p.mc.Source.Org, pkg.Name, ref)
	dst := ImageReference(p.mc.Target.RegistryURL, p.mc.Target.Org, pkg.Name, ref)

	err := p.copier.Copy(ctx, src, dst)
	switch {
	case err == nil:
		logger.Info().Str("src", src).Str("dst", dst).Msg("Copied image reference")
		return true, nil
	case errors.IsAuth(err):
		logger.Error().Err(err).Str("src", src).Msg("Authentication failed while copying image")
	case errors.IsNotFound(err):
		logger.Warn().Err(err).Str("src", src).Msg("Image not found at source")
	default:
		logger.Warn().Err(err).Str("src", src).Msg("Failed to copy image")
	}
	return false, nil
}
