package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/harness/package-migrator/module/migrate/http"
	"github.com/harness/package-migrator/module/migrate/resource"
	"github.com/harness/package-migrator/module/migrate/types"
	"github.com/harness/package-migrator/util/common"
	"github.com/harness/package-migrator/util/common/errors"
)

// NuGet moves binary packages: positional download, archive repair, gpr push.
type NuGet struct {
	mc      *types.MigrationContext
	source  *http.Client
	runner  Runner
	tracker *resource.Tracker

	gpr string
}

func NewNuGet(mc *types.MigrationContext, deps Deps) *NuGet {
	return &NuGet{mc: mc, source: deps.Source, runner: deps.Runner, tracker: deps.Tracker}
}

func (p *NuGet) Kind() types.Kind { return types.KindNuGet }

func (p *NuGet) References(versions []types.Version) []types.Reference {
	return versionReferences(versions)
}

// Prepare resolves gpr, installing it into a run-scoped tool directory when
// no path is configured.
func (p *NuGet) Prepare(ctx context.Context) error {
	if p.mc.NuGet.GprPath != "" {
		bin, err := p.runner.LookPath(p.mc.NuGet.GprPath)
		if err != nil {
			return fmt.Errorf("gpr not found at %s: %w", p.mc.NuGet.GprPath, err)
		}
		p.gpr = bin
		return nil
	}

	dotnet, err := p.runner.LookPath(p.mc.NuGet.DotnetPath)
	if err != nil {
		return fmt.Errorf("dotnet is required to install gpr: %w", err)
	}
	dir, err := p.tracker.MkdirTemp("tools")
	if err != nil {
		return err
	}
	res, err := p.runner.Run(ctx, dotnet, []string{"tool", "install", "gpr", "--tool-path", dir}, RunOptions{})
	if err != nil {
		return fmt.Errorf("failed to install gpr: %w", err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("failed to install gpr: %w", &errors.ToolError{Tool: "dotnet", ExitCode: res.ExitCode, Stderr: res.Output()})
	}
	p.gpr = filepath.Join(dir, "gpr")
	return nil
}

// DownloadURL builds the positional download URL of a binary package.
func DownloadURL(registry, org, name, version string) string {
	n, v := url.PathEscape(name), url.PathEscape(version)
	return fmt.Sprintf("%s/%s/download/%s/%s/%s.%s.nupkg",
		strings.TrimSuffix(registry, "/"), url.PathEscape(org), n, v, n, v)
}

// PushRepositoryURL returns the repository URL gpr binds the pushed package
// to, or "" when no repository is known.
func PushRepositoryURL(target types.Side, repo string) (string, error) {
	if repo == "" {
		return "", nil
	}
	host, err := types.WebHost(target.APIURL)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("https://%s/%s/%s", host, target.Org, repo), nil
}

func (p *NuGet) Transfer(ctx context.Context, pkg types.Package, ref types.Reference, ws *resource.Workspace) (bool, error) {
	logger := zerolog.Ctx(ctx).With().Str("package", pkg.Name).Str("version", ref.Name).Logger()

	file := ws.Join(fmt.Sprintf("%s.%s.nupkg", pkg.Name, ref.Name))
	size, err := p.source.Download(ctx, DownloadURL(p.mc.Source.RegistryURL, p.mc.Source.Org, pkg.Name, ref.Name), file)
	if err != nil {
		return fail(logger, "download", err)
	}
	logger.Debug().Str("size", common.GetSize(size)).Msg("Downloaded package")

	removed, err := RepairNupkg(file)
	if err != nil {
		return fail(logger, "repair", err)
	}
	if removed > 0 {
		logger.Info().Int("removed", removed).Msg("Removed duplicate metadata entries")
	}

	args := []string{"push", file, "-k", p.mc.Target.Token}
	repoURL, err := PushRepositoryURL(p.mc.Target, pkg.Repository)
	if err != nil {
		return false, err
	}
	if repoURL != "" {
		args = append(args, "--repository", repoURL)
	}

	res, err := p.runner.Run(ctx, p.gpr, args, RunOptions{Dir: ws.Path})
	if err != nil {
		return fail(logger, "push", err)
	}
	if res.ExitCode != 0 {
		err := errors.ClassifyToolFailure("gpr", res.ExitCode, res.Output())
		if errors.IsAuth(err) {
			logger.Error().Err(err).Msg("Authentication failed while pushing package")
		} else {
			logger.Warn().Err(err).Msg("Failed to push package")
		}
		return false, err
	}
	logger.Info().Msg("Pushed version")
	return true, nil
}
