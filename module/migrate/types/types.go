package types

import (
	"fmt"
	"strings"
)

// Kind is the artifact family a package belongs to.
type Kind string

const (
	KindNPM       Kind = "npm"
	KindNuGet     Kind = "nuget"
	KindContainer Kind = "container"
)

// ParseKind accepts the provider package type names as well as the generic
// family names (module, binary).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "npm", "module":
		return KindNPM, nil
	case "nuget", "binary":
		return KindNuGet, nil
	case "container", "docker", "oci":
		return KindContainer, nil
	default:
		return "", fmt.Errorf("unsupported package kind: %q", s)
	}
}

// Package identifies one artifact family within an organization.
type Package struct {
	Name       string `json:"name"`
	Kind       Kind   `json:"type"`
	Repository string `json:"repository,omitempty"`
}

// ContainerMetadata is the container-specific part of a version record.
type ContainerMetadata struct {
	Tags []string `json:"tags"`
}

// VersionMetadata mirrors the metadata object of the version listing.
type VersionMetadata struct {
	PackageType string             `json:"package_type"`
	Container   *ContainerMetadata `json:"container,omitempty"`
}

// Version is one published revision of a package. For containers Name is the
// content digest.
type Version struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Metadata VersionMetadata `json:"metadata"`
}

// Tags returns the container tags of the version, or nil.
func (v Version) Tags() []string {
	if v.Metadata.Container == nil {
		return nil
	}
	return v.Metadata.Container.Tags
}

// RefKind distinguishes the unit of transfer.
type RefKind string

const (
	RefVersion RefKind = "version"
	RefDigest  RefKind = "digest"
	RefTag     RefKind = "tag"
)

// Reference is one unit of transfer: a module/binary version, a container
// digest or a container tag alias.
type Reference struct {
	Name   string  `json:"name"`
	Kind   RefKind `json:"kind"`
	Digest string  `json:"digest,omitempty"`
}

// IsDigest reports whether the reference addresses content by digest.
func (r Reference) IsDigest() bool {
	return r.Kind == RefDigest
}

func (r Reference) String() string {
	switch r.Kind {
	case RefDigest:
		return "@" + r.Name
	case RefTag:
		return ":" + r.Name
	default:
		return r.Name
	}
}

type Status string

const (
	StatusSuccess Status = "Success"
	StatusSkip    Status = "Skipped"
	StatusFail    Status = "Failed"
	StatusPlanned Status = "Planned"
)

// VersionOutcome records what happened to one reference.
type VersionOutcome struct {
	Reference Reference `json:"reference"`
	Status    Status    `json:"status"`
	Attempts  int       `json:"attempts"`
	Error     string    `json:"error,omitempty"`
}

// ContainerCounters splits container outcomes into digest and tag buckets.
type ContainerCounters struct {
	DigestsSucceeded int `json:"digestsSucceeded"`
	DigestsFailed    int `json:"digestsFailed"`
	TagsSucceeded    int `json:"tagsSucceeded"`
	TagsFailed       int `json:"tagsFailed"`
}

// Add accumulates o into c.
func (c *ContainerCounters) Add(o ContainerCounters) {
	c.DigestsSucceeded += o.DigestsSucceeded
	c.DigestsFailed += o.DigestsFailed
	c.TagsSucceeded += o.TagsSucceeded
	c.TagsFailed += o.TagsFailed
}

// PackageResult is the immutable outcome of migrating one package.
// Succeeded+Failed equals the number of transfer attempts; both are zero when
// Skipped is set.
type PackageResult struct {
	Package   string             `json:"package"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
	Planned   int                `json:"planned,omitempty"`
	Skipped   bool               `json:"skipped"`
	Reason    string             `json:"reason,omitempty"`
	Container *ContainerCounters `json:"container,omitempty"`
	Versions  []VersionOutcome   `json:"versions,omitempty"`
}

// SkipResult builds the result for a package that had nothing to transfer.
func SkipResult(pkg, reason string) PackageResult {
	return PackageResult{Package: pkg, Skipped: true, Reason: reason}
}

// Outcome is the overall disposition of a run.
type Outcome string

const (
	OutcomeNothingToDo    Outcome = "nothing-to-do"
	OutcomeSuccess        Outcome = "success"
	OutcomePartialFailure Outcome = "partial-failure"
	OutcomeHardFailure    Outcome = "hard-failure"
)

// DecideOutcome applies the exit-status rule to aggregate counts.
func DecideOutcome(succeeded, failed int) Outcome {
	switch {
	case failed > 0 && succeeded == 0:
		return OutcomeHardFailure
	case failed > 0:
		return OutcomePartialFailure
	default:
		return OutcomeSuccess
	}
}

// AggregateReport collects every PackageResult of a run plus derived totals.
type AggregateReport struct {
	Kind          Kind               `json:"kind"`
	Packages      []PackageResult    `json:"packages"`
	TotalPackages int                `json:"totalPackages"`
	Succeeded     int                `json:"succeeded"`
	Failed        int                `json:"failed"`
	Planned       int                `json:"planned,omitempty"`
	Skipped       int                `json:"skipped"`
	Container     *ContainerCounters `json:"container,omitempty"`
	Outcome       Outcome            `json:"outcome"`
}

// NewAggregateReport derives the totals and the outcome from results.
func NewAggregateReport(kind Kind, results []PackageResult) *AggregateReport {
	report := &AggregateReport{
		Kind:          kind,
		Packages:      results,
		TotalPackages: len(results),
	}
	if report.Packages == nil {
		report.Packages = []PackageResult{}
	}
	if kind == KindContainer {
		report.Container = &ContainerCounters{}
	}
	for _, r := range results {
		report.Succeeded += r.Succeeded
		report.Failed += r.Failed
		report.Planned += r.Planned
		if r.Skipped {
			report.Skipped++
		}
		if report.Container != nil && r.Container != nil {
			report.Container.Add(*r.Container)
		}
	}
	if len(results) == 0 {
		report.Outcome = OutcomeNothingToDo
	} else {
		report.Outcome = DecideOutcome(report.Succeeded, report.Failed)
	}
	return report
}

// HardFailure reports whether the run must exit non-zero.
func (r *AggregateReport) HardFailure() bool {
	return r.Outcome == OutcomeHardFailure
}
