package migrate

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/pterm/pterm"

	"github.com/harness/package-migrator/internal/style"
	"github.com/harness/package-migrator/module/migrate/types"
	"github.com/harness/package-migrator/util/common/fileutil"
	"github.com/harness/package-migrator/util/common/printer"
)

// RenderOptions selects how a report is emitted.
type RenderOptions struct {
	// Format is "table" or "json".
	Format string
	// Output, when set, also receives the report as JSON.
	Output string
}

// Render writes the machine-readable report and prints the human-readable
// summary to stdout.
func Render(report *types.AggregateReport, opts RenderOptions, stdout io.Writer) error {
	if opts.Output != "" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		if err := fileutil.WriteFile(opts.Output, append(data, '\n'), 0o644); err != nil {
			return err
		}
	}

	if opts.Format == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	if err := packageTable(report).Fprint(stdout); err != nil {
		return err
	}
	_, err := fmt.Fprintln(stdout, Summary(report))
	if report.Outcome == types.OutcomePartialFailure {
		pterm.Warning.Println("Some versions failed to migrate; re-running the migration retries only what is missing")
	}
	return err
}

func packageTable(report *types.AggregateReport) *printer.Table {
	container := report.Kind == types.KindContainer
	headers := []string{"Package", "Succeeded", "Failed"}
	if container {
		headers = append(headers, "Digests ok/failed", "Tags ok/failed")
	}
	tbl := printer.NewTable(append(headers, "Status")...)

	for _, p := range report.Packages {
		cells := []string{p.Package, strconv.Itoa(p.Succeeded), strconv.Itoa(p.Failed)}
		if container {
			var digests, tags string
			if p.Container != nil {
				digests = fmt.Sprintf("%d/%d", p.Container.DigestsSucceeded, p.Container.DigestsFailed)
				tags = fmt.Sprintf("%d/%d", p.Container.TagsSucceeded, p.Container.TagsFailed)
			}
			cells = append(cells, digests, tags)
		}
		tbl.AddRow(append(cells, packageStatus(p))...)
	}
	return tbl
}

func packageStatus(p types.PackageResult) string {
	switch {
	case p.Skipped:
		return "Skipped: " + p.Reason
	case p.Succeeded == 0 && p.Failed == 0:
		return fmt.Sprintf("Planned (%d)", p.Planned)
	case p.Failed == 0:
		return "Migrated"
	case p.Succeeded == 0:
		return "Failed"
	default:
		return "Partial"
	}
}

// Summary is the one-line account of a run.
func Summary(report *types.AggregateReport) string {
	line := fmt.Sprintf("%d packages: %d versions migrated, %d failed, %d packages skipped",
		report.TotalPackages, report.Succeeded, report.Failed, report.Skipped)
	if report.Planned > 0 {
		line += fmt.Sprintf(", %d versions planned", report.Planned)
	}
	if report.Container != nil {
		line += fmt.Sprintf(" (digests %d/%d, tags %d/%d)",
			report.Container.DigestsSucceeded, report.Container.DigestsFailed,
			report.Container.TagsSucceeded, report.Container.TagsFailed)
	}

	switch report.Outcome {
	case types.OutcomeNothingToDo:
		return style.SuccessIcon() + " Nothing to migrate"
	case types.OutcomeSuccess:
		return style.SuccessIcon() + " " + style.Success.Render(line)
	case types.OutcomePartialFailure:
		return style.WarningIcon() + " " + style.Warning.Render(line)
	default:
		return style.ErrorIcon() + " " + style.Error.Render(line)
	}
}
