package migratable

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/harness/package-migrator/module/migrate/engine"
	"github.com/harness/package-migrator/module/migrate/pipeline"
	"github.com/harness/package-migrator/module/migrate/resource"
	"github.com/harness/package-migrator/module/migrate/retry"
	"github.com/harness/package-migrator/module/migrate/types"
	"github.com/harness/package-migrator/module/migrate/util"
)

// Version transfers one reference of a package inside its own workspace.
type Version struct {
	mc       *types.MigrationContext
	pkg      types.Package
	ref      types.Reference
	pipeline pipeline.Pipeline
	tracker  *resource.Tracker
	tally    *tally
	logger   zerolog.Logger

	outcome types.VersionOutcome
}

func NewVersionJob(
	mc *types.MigrationContext,
	pkg types.Package,
	ref types.Reference,
	p pipeline.Pipeline,
	tracker *resource.Tracker,
	t *tally,
) engine.Job {
	jobID := uuid.New().String()

	jobLogger := log.With().
		Str("job_type", "version").
		Str("job_id", jobID).
		Str("package", pkg.Name).
		Str("version", ref.String()).
		Logger()

	return &Version{
		mc:       mc,
		pkg:      pkg,
		ref:      ref,
		pipeline: p,
		tracker:  tracker,
		tally:    t,
		logger:   jobLogger,
	}
}

func (r *Version) Info() string {
	return fmt.Sprintf("%s %s", r.pkg.Name, r.ref.String())
}

func (r *Version) Pre(ctx context.Context) error {
	r.outcome = types.VersionOutcome{Reference: r.ref}
	return nil
}

// Migrate runs the transfer under the retry policy. Every outcome is
// recorded; the step itself never fails.
func (r *Version) Migrate(ctx context.Context) error {
	logger := r.logger.With().
		Str("step", "migrate").
		Str("trace_id", engine.TraceID(ctx)).
		Logger()
	ctx = logger.WithContext(ctx)
	startTime := time.Now()

	defer func() { r.tally.record(r.outcome) }()

	if r.mc.DryRun {
		r.outcome.Status = types.StatusPlanned
		return nil
	}

	ws, err := r.tracker.NewWorkspace(r.pkg.Name, r.ref.String())
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to allocate workspace")
		r.outcome.Status = types.StatusFail
		r.outcome.Error = err.Error()
		return nil
	}
	defer ws.Release()

	opts := retry.FromPolicy(r.mc.Retry)
	opts.OnRetry = func(err error, attempt int) {
		logger.Warn().Err(err).Int("attempt", attempt).Msg("Transfer attempt failed, retrying")
		if rerr := ws.Reset(); rerr != nil {
			logger.Warn().Err(rerr).Msg("Failed to reset workspace")
		}
	}

	ok, err := retry.Do(ctx, func(ctx context.Context) (bool, error) {
		r.outcome.Attempts++
		return r.pipeline.Transfer(ctx, r.pkg, r.ref, ws)
	}, opts)

	switch {
	case ok:
		r.outcome.Status = types.StatusSuccess
	case err != nil:
		r.outcome.Status = types.StatusFail
		r.outcome.Error = err.Error()
	default:
		r.outcome.Status = types.StatusFail
		r.outcome.Error = "artifact not found at source"
	}

	logger.Debug().
		Str("status", string(r.outcome.Status)).
		Int("attempts", r.outcome.Attempts).
		Dur("duration", time.Since(startTime)).
		Msg("Completed version migration step")
	return nil
}

// Post prints the outcome line.
func (r *Version) Post(_ context.Context) error {
	label := fmt.Sprintf("Package [%s] version [%s]", r.pkg.Name, r.ref.String())
	switch r.outcome.Status {
	case types.StatusSuccess:
		pterm.Success.Println(label + " migrated")
	case types.StatusPlanned:
		util.GetPlannedPrinter().Println(label + " would be migrated")
	default:
		pterm.Error.Println(fmt.Sprintf("%s failed: %s", label, r.outcome.Error))
	}
	return nil
}
