package migrate

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/harness/package-migrator/cmd/cmdutils"
	"github.com/harness/package-migrator/config"
	"github.com/harness/package-migrator/internal/style"
	migration "github.com/harness/package-migrator/module/migrate"
	"github.com/harness/package-migrator/module/migrate/types"
	"github.com/harness/package-migrator/util/common/progress"
)

// newKindCmd builds the migrate command of one package kind. extra adds the
// kind-specific flags.
func newKindCmd(f *cmdutils.Factory, kind types.Kind, use, short, long string, extra func(cmd *cobra.Command)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKind(cmd.Context(), f, kind, cmd, os.Stdin, cmd.OutOrStdout())
		},
	}
	addRunFlags(cmd.Flags(), &config.Global.Migrate)
	if extra != nil {
		extra(cmd)
	}
	return cmd
}

func runKind(ctx context.Context, f *cmdutils.Factory, kind types.Kind, cmd *cobra.Command, stdin io.Reader, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := resolveConfig(cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	mc, err := types.NewMigrationContext(cfg, kind)
	if err != nil {
		return err
	}

	m := config.Global.Migrate
	packages, err := ReadPackages(m.Packages, m.PackagesFile, stdin, kind)
	if err != nil {
		return err
	}

	svc, err := f.MigrationService(mc, cfg.Migration.PackageConcurrency)
	if err != nil {
		return err
	}
	defer f.ReleaseAll()

	if config.Global.Format != "json" {
		fmt.Fprintln(stdout, style.Header(string(kind), mc.Source.Org, mc.Target.Org))
		svc.SetReporter(progress.NewAutoReporter())
	}

	report, runErr := svc.Run(ctx, packages)
	if report != nil {
		opts := migration.RenderOptions{Format: config.Global.Format, Output: m.Output}
		if err := migration.Render(report, opts, stdout); err != nil {
			return err
		}
	}
	return runErr
}
