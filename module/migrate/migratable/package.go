package migratable

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/harness/package-migrator/module/migrate/engine"
	"github.com/harness/package-migrator/module/migrate/pipeline"
	"github.com/harness/package-migrator/module/migrate/resource"
	"github.com/harness/package-migrator/module/migrate/types"
	"github.com/harness/package-migrator/module/migrate/util"
)

// NoVersionsReason is the skip reason of a package without versions.
const NoVersionsReason = "No versions found"

// VersionLister lists the versions of a package. An unreadable listing is
// reported as an empty one.
type VersionLister interface {
	FetchVersions(ctx context.Context, org, name string, kind types.Kind) []types.Version
}

// Package migrates every version of one package.
type Package struct {
	mc       *types.MigrationContext
	pkg      types.Package
	pipeline pipeline.Pipeline
	versions VersionLister
	tracker  *resource.Tracker
	logger   zerolog.Logger

	refs    []types.Reference
	skipped bool
	tally   *tally
	result  types.PackageResult
}

func NewPackageJob(
	mc *types.MigrationContext,
	pkg types.Package,
	p pipeline.Pipeline,
	versions VersionLister,
	tracker *resource.Tracker,
) *Package {
	jobID := uuid.New().String()

	jobLogger := log.With().
		Str("job_type", "package").
		Str("job_id", jobID).
		Str("kind", string(mc.Kind)).
		Str("package", pkg.Name).
		Logger()

	return &Package{
		mc:       mc,
		pkg:      pkg,
		pipeline: p,
		versions: versions,
		tracker:  tracker,
		logger:   jobLogger,
		tally:    &tally{kind: mc.Kind},
	}
}

func (r *Package) Info() string {
	return r.pkg.Name
}

// Pre enumerates the versions and expands them into references.
func (r *Package) Pre(ctx context.Context) error {
	logger := r.logger.With().
		Str("step", "pre").
		Str("trace_id", engine.TraceID(ctx)).
		Logger()
	startTime := time.Now()

	versions := r.versions.FetchVersions(ctx, r.mc.Source.Org, r.pkg.Name, r.mc.Kind)
	r.refs = r.pipeline.References(versions)
	if len(r.refs) == 0 {
		r.skipped = true
	}

	logger.Info().
		Int("versions", len(versions)).
		Int("references", len(r.refs)).
		Dur("duration", time.Since(startTime)).
		Msg("Enumerated package versions")
	return nil
}

// Migrate transfers every reference, at most mc.Concurrency at a time.
func (r *Package) Migrate(ctx context.Context) error {
	logger := r.logger.With().
		Str("step", "migrate").
		Str("trace_id", engine.TraceID(ctx)).
		Logger()

	if r.skipped {
		logger.Info().Msg("Skipping package without versions")
		return nil
	}

	startTime := time.Now()
	jobs := make([]engine.Job, 0, len(r.refs))
	for _, ref := range r.refs {
		jobs = append(jobs, NewVersionJob(r.mc, r.pkg, ref, r.pipeline, r.tracker, r.tally))
	}

	eng := engine.NewEngine(r.mc.Concurrency, jobs)
	if err := eng.Execute(ctx); err != nil {
		logger.Error().Err(err).Msg("Engine execution failed")
		return fmt.Errorf("engine execution failed: %w", err)
	}

	logger.Info().
		Dur("duration", time.Since(startTime)).
		Msg("Completed package migration step")
	return nil
}

// Post assembles the PackageResult.
func (r *Package) Post(_ context.Context) error {
	if r.skipped {
		r.result = types.SkipResult(r.pkg.Name, NoVersionsReason)
		util.GetSkipPrinter().Println(fmt.Sprintf("Package [%s]: %s", r.pkg.Name, NoVersionsReason))
		return nil
	}
	r.result = r.tally.result(r.pkg.Name)
	r.logger.Info().
		Int("succeeded", r.result.Succeeded).
		Int("failed", r.result.Failed).
		Msg("Package migrated")
	return nil
}

// Result returns the outcome. It is valid after Post.
func (r *Package) Result() types.PackageResult {
	return r.result
}

// Migrator runs package jobs. MigratePackage is the per-package function the
// orchestrator fans out.
type Migrator struct {
	mc       *types.MigrationContext
	pipeline pipeline.Pipeline
	versions VersionLister
	tracker  *resource.Tracker
}

func NewMigrator(mc *types.MigrationContext, p pipeline.Pipeline, versions VersionLister, tracker *resource.Tracker) *Migrator {
	return &Migrator{mc: mc, pipeline: p, versions: versions, tracker: tracker}
}

// MigratePackage migrates every version of pkg. It never fails: problems
// degrade to failed counts or a skip.
func (m *Migrator) MigratePackage(ctx context.Context, pkg types.Package) types.PackageResult {
	job := NewPackageJob(m.mc, pkg, m.pipeline, m.versions, m.tracker)
	if err := engine.NewEngine(1, []engine.Job{job}).Execute(ctx); err != nil {
		log.Error().Err(err).Str("package", pkg.Name).Msg("Package migration did not complete")
		res := job.tally.result(pkg.Name)
		if res.Succeeded+res.Failed == 0 {
			return types.SkipResult(pkg.Name, err.Error())
		}
		return res
	}
	return job.Result()
}
