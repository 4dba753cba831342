package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/harness/package-migrator/module/migrate/http"
	"github.com/harness/package-migrator/module/migrate/resource"
	"github.com/harness/package-migrator/module/migrate/types"
	"github.com/harness/package-migrator/module/migrate/types/npm"
	"github.com/harness/package-migrator/util/common"
	"github.com/harness/package-migrator/util/common/errors"
	"github.com/harness/package-migrator/util/common/fileutil"
)

// NPM publishes module versions: manifest lookup, tarball download, scope
// rewrite, npm publish.
type NPM struct {
	mc      *types.MigrationContext
	source  *http.Client
	runner  Runner
	tracker *resource.Tracker

	npm   string
	npmrc string
}

func NewNPM(mc *types.MigrationContext, deps Deps) *NPM {
	return &NPM{mc: mc, source: deps.Source, runner: deps.Runner, tracker: deps.Tracker}
}

func (p *NPM) Kind() types.Kind { return types.KindNPM }

func (p *NPM) References(versions []types.Version) []types.Reference {
	return versionReferences(versions)
}

// Prepare resolves the npm binary and writes the target credential file. The
// file is written once and only read afterwards.
func (p *NPM) Prepare(_ context.Context) error {
	bin, err := p.runner.LookPath(p.mc.NPM.NpmPath)
	if err != nil {
		return fmt.Errorf("npm is required to publish packages: %w", err)
	}
	p.npm = bin

	content, err := NpmrcContent(p.mc.Target)
	if err != nil {
		return err
	}
	dir, err := p.tracker.MkdirTemp("npmrc")
	if err != nil {
		return err
	}
	path := filepath.Join(dir, ".npmrc")
	if err := fileutil.WriteFile(path, content, 0o600); err != nil {
		return err
	}
	p.npmrc = path
	return nil
}

// NpmrcContent renders the credential file that scopes the target org to the
// target registry.
func NpmrcContent(target types.Side) ([]byte, error) {
	registry := strings.TrimSuffix(target.RegistryURL, "/")
	u, err := url.Parse(registry)
	if err != nil || u.Host == "" {
		return nil, errors.NewValidationError("target.registryUrl", fmt.Sprintf("invalid npm registry %q", target.RegistryURL))
	}
	authPath := u.Host + strings.TrimSuffix(u.Path, "/")
	return []byte(fmt.Sprintf("@%s:registry=%s/\n//%s/:_authToken=%s\n",
		strings.ToLower(target.Org), registry, authPath, target.Token)), nil
}

func (p *NPM) Transfer(ctx context.Context, pkg types.Package, ref types.Reference, ws *resource.Workspace) (bool, error) {
	logger := zerolog.Ctx(ctx).With().Str("package", pkg.Name).Str("version", ref.Name).Logger()

	tarball, err := p.lookupTarball(ctx, pkg.Name, ref.Name)
	if err != nil {
		return fail(logger, "manifest", err)
	}
	if tarball == "" {
		logger.Warn().Msg("Version is not listed in the package manifest")
		return false, nil
	}

	archive := ws.Join("package.tgz")
	size, err := p.source.Download(ctx, tarball, archive)
	if err != nil {
		return fail(logger, "download", err)
	}
	logger.Debug().Str("size", common.GetSize(size)).Msg("Downloaded tarball")

	extracted := ws.Join("extract")
	if err := fileutil.ExtractTarGz(archive, extracted); err != nil {
		return fail(logger, "extract", err)
	}
	root, err := packageRoot(extracted)
	if err != nil {
		return fail(logger, "extract", err)
	}

	webHost, err := types.WebHost(p.mc.Target.APIURL)
	if err != nil {
		return false, err
	}
	err = RewriteManifest(filepath.Join(root, "package.json"), ManifestRewrite{
		TargetOrg:  p.mc.Target.Org,
		Repository: pkg.Repository,
		WebHost:    webHost,
		Registry:   p.mc.Target.RegistryURL,
	})
	if err != nil {
		return fail(logger, "rewrite", err)
	}

	res, err := p.runner.Run(ctx, p.npm, []string{"publish", "--userconfig", p.npmrc, "--ignore-scripts"}, RunOptions{Dir: root})
	if err != nil {
		return fail(logger, "publish", err)
	}
	if res.ExitCode != 0 {
		if alreadyPublished(res.Output()) {
			logger.Info().Msg("Version already published at target")
			return true, nil
		}
		return fail(logger, "publish", errors.ClassifyToolFailure("npm", res.ExitCode, res.Output()))
	}
	logger.Info().Msg("Published version")
	return true, nil
}

func (p *NPM) lookupTarball(ctx context.Context, name, version string) (string, error) {
	manifestURL := fmt.Sprintf("%s/@%s/%s",
		strings.TrimSuffix(p.mc.Source.RegistryURL, "/"), strings.ToLower(p.mc.Source.Org), url.PathEscape(name))
	var manifest npm.PackageMetadata
	if err := p.source.GetJSON(ctx, manifestURL, &manifest); err != nil {
		return "", err
	}
	return manifest.TarballURL(version), nil
}

// packageRoot finds the directory holding package.json inside an extracted
// tarball. npm tarballs normally use a "package" root.
func packageRoot(dir string) (string, error) {
	if fileutil.Exists(filepath.Join(dir, "package", "package.json")) {
		return filepath.Join(dir, "package"), nil
	}
	if fileutil.Exists(filepath.Join(dir, "package.json")) {
		return dir, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errors.NewFileError(dir, "read_dir", err)
	}
	for _, e := range entries {
		if e.IsDir() && fileutil.Exists(filepath.Join(dir, e.Name(), "package.json")) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", errors.NewNotFoundError("extract", "package.json", nil)
}

func alreadyPublished(output string) bool {
	lower := strings.ToLower(output)
	return strings.Contains(lower, "epublishconflict") ||
		strings.Contains(lower, "cannot publish over")
}

// fail logs err by class. Missing artifacts collapse to false; everything
// else is returned for retry classification.
func fail(logger zerolog.Logger, step string, err error) (bool, error) {
	switch {
	case errors.IsAuth(err):
		logger.Error().Err(err).Str("step", step).Msg("Authentication failed")
		return false, err
	case errors.IsNotFound(err):
		logger.Warn().Err(err).Str("step", step).Msg("Artifact not found")
		return false, nil
	default:
		logger.Warn().Err(err).Str("step", step).Msg("Transfer failed")
		return false, err
	}
}
