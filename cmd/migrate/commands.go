package migrate

import (
	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/harness/package-migrator/cmd/cmdutils"
	"github.com/harness/package-migrator/config"
	"github.com/harness/package-migrator/module/migrate/types"
)

// NewNPMCmd migrates npm packages.
func NewNPMCmd(f *cmdutils.Factory) *cobra.Command {
	return newKindCmd(f, types.KindNPM, "npm", "Migrate npm packages between organizations",
		heredoc.Doc(`
			Migrate every version of the listed npm packages from the source
			organization to the target organization.

			Each version is downloaded from the source registry, its manifest is
			rescoped to the target organization and the tarball is published with
			the npm CLI, which must be on PATH. Versions that are already
			published at the target count as migrated, so a run can be repeated.

			Examples:
			  pkgmigrate npm --source-org acme --target-org acme-new \
			    --packages '[{"name":"left-pad"}]'

			  pkgmigrate discover --type npm --source-org acme | \
			    pkgmigrate npm --source-org acme --target-org acme-new --packages-file -
		`), nil)
}

// NewNuGetCmd migrates NuGet packages.
func NewNuGetCmd(f *cmdutils.Factory) *cobra.Command {
	return newKindCmd(f, types.KindNuGet, "nuget", "Migrate NuGet packages between organizations",
		heredoc.Doc(`
			Migrate every version of the listed NuGet packages from the source
			organization to the target organization.

			Each .nupkg is downloaded, duplicate archive metadata entries are
			removed and the package is pushed with gpr. Unless --gpr-path points
			at an existing binary, gpr is installed for the run with
			"dotnet tool install", so dotnet must be on PATH.

			Example:
			  pkgmigrate nuget --source-org acme --target-org acme-new \
			    --packages-file packages.json
		`), func(cmd *cobra.Command) {
			cmd.Flags().StringVar(&config.Global.Migrate.GprPath, "gpr-path", "", "Use this gpr binary instead of installing one")
		})
}

// NewContainerCmd migrates container images.
func NewContainerCmd(f *cmdutils.Factory) *cobra.Command {
	return newKindCmd(f, types.KindContainer, "container", "Migrate container images between organizations",
		heredoc.Doc(`
			Migrate every digest and tag of the listed container images from the
			source organization to the target organization.

			Digests are copied first, then each tag is copied as its own
			reference. The default copier talks to both registries directly;
			--copier skopeo runs skopeo in a container instead and needs docker.

			Example:
			  pkgmigrate container --source-org acme --target-org acme-new \
			    --packages '[{"name":"api"},{"name":"worker"}]'
		`), func(cmd *cobra.Command) {
			cmd.Flags().StringVar(&config.Global.Migrate.Copier, "copier", string(types.CopierCrane), "Image copier: crane or skopeo")
			cmd.Flags().BoolVar(&config.Global.Migrate.Insecure, "insecure", false, "Allow plain HTTP and unverified TLS registries")
		})
}
