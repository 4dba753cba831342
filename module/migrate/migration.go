package migrate

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/harness/package-migrator/module/migrate/pipeline"
	"github.com/harness/package-migrator/module/migrate/types"
	"github.com/harness/package-migrator/util/common/errors"
	"github.com/harness/package-migrator/util/common/progress"
)

// MigrateFunc migrates one package. It must not fail; problems are reported
// through the result.
type MigrateFunc func(ctx context.Context, pkg types.Package) types.PackageResult

// MigrationService drives the migration of a package list of one kind.
type MigrationService struct {
	mc                 *types.MigrationContext
	pipeline           pipeline.Pipeline
	migrate            MigrateFunc
	packageConcurrency int
	reporter           progress.Reporter
}

// NewMigrationService creates a new migration service
func NewMigrationService(mc *types.MigrationContext, p pipeline.Pipeline, migrate MigrateFunc, packageConcurrency int) *MigrationService {
	if packageConcurrency <= 0 {
		packageConcurrency = 1
	}
	return &MigrationService{
		mc:                 mc,
		pipeline:           p,
		migrate:            migrate,
		packageConcurrency: packageConcurrency,
		reporter:           progress.NewNopReporter(),
	}
}

// SetReporter routes per-package progress to r.
func (m *MigrationService) SetReporter(r progress.Reporter) {
	if r != nil {
		m.reporter = r
	}
}

// Run migrates every package and returns the aggregate report. The error is
// errors.ErrHardFailure when nothing succeeded but something failed, or a
// precondition failure that stopped the run before any package.
func (m *MigrationService) Run(ctx context.Context, packages []types.Package) (*types.AggregateReport, error) {
	logger := log.With().
		Str("kind", string(m.mc.Kind)).
		Str("source_org", m.mc.Source.Org).
		Str("target_org", m.mc.Target.Org).
		Int("packages", len(packages)).
		Logger()

	if len(packages) == 0 {
		logger.Info().Msg("No packages to migrate")
		return types.NewAggregateReport(m.mc.Kind, nil), nil
	}

	if !m.mc.DryRun {
		if err := m.pipeline.Prepare(ctx); err != nil {
			return nil, fmt.Errorf("prepare %s migration: %w", m.mc.Kind, err)
		}
	}

	logger.Info().Msg("Starting migration process")
	m.reporter.Start(fmt.Sprintf("Migrating %d %s packages", len(packages), m.mc.Kind))
	defer m.reporter.End()

	results := make([]types.PackageResult, len(packages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.packageConcurrency)
	for i, pkg := range packages {
		if pkg.Kind == "" {
			pkg.Kind = m.mc.Kind
		}
		g.Go(func() error {
			m.reporter.Step(pkg.Name)
			results[i] = m.migrate(gctx, pkg)
			m.report(results[i])
			return nil
		})
	}
	_ = g.Wait()

	report := types.NewAggregateReport(m.mc.Kind, results)
	logger.Info().
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Str("outcome", string(report.Outcome)).
		Msg("Migration process completed")

	if report.HardFailure() {
		return report, errors.ErrHardFailure
	}
	return report, nil
}

func (m *MigrationService) report(res types.PackageResult) {
	switch {
	case res.Skipped:
		m.reporter.Success(fmt.Sprintf("%s: skipped (%s)", res.Package, res.Reason))
	case res.Failed > 0:
		m.reporter.Error(fmt.Sprintf("%s: %d migrated, %d failed", res.Package, res.Succeeded, res.Failed))
	default:
		m.reporter.Success(fmt.Sprintf("%s: %d migrated", res.Package, res.Succeeded))
	}
}
