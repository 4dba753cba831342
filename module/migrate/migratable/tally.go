package migratable

import (
	"sort"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/harness/package-migrator/module/migrate/types"
)

// tally accumulates version outcomes of one package. Version jobs record
// into it concurrently.
type tally struct {
	mu        sync.Mutex
	kind      types.Kind
	succeeded int
	failed    int
	planned   int
	container types.ContainerCounters
	outcomes  []types.VersionOutcome
}

func (t *tally) record(o types.VersionOutcome) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.outcomes = append(t.outcomes, o)
	switch o.Status {
	case types.StatusSuccess:
		t.succeeded++
		if o.Reference.Kind == types.RefDigest {
			t.container.DigestsSucceeded++
		} else if o.Reference.Kind == types.RefTag {
			t.container.TagsSucceeded++
		}
	case types.StatusFail:
		t.failed++
		if o.Reference.Kind == types.RefDigest {
			t.container.DigestsFailed++
		} else if o.Reference.Kind == types.RefTag {
			t.container.TagsFailed++
		}
	case types.StatusPlanned:
		t.planned++
	}
}

func (t *tally) result(pkg string) types.PackageResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	res := types.PackageResult{
		Package:   pkg,
		Succeeded: t.succeeded,
		Failed:    t.failed,
		Planned:   t.planned,
		Versions:  append([]types.VersionOutcome(nil), t.outcomes...),
	}
	if t.kind == types.KindContainer {
		c := t.container
		res.Container = &c
	}
	SortOutcomes(res.Versions)
	return res
}

// SortOutcomes orders outcomes by reference kind, then by semantic version
// where both names parse, then lexically.
func SortOutcomes(outcomes []types.VersionOutcome) {
	rank := map[types.RefKind]int{types.RefVersion: 0, types.RefDigest: 1, types.RefTag: 2}
	sort.SliceStable(outcomes, func(i, j int) bool {
		a, b := outcomes[i].Reference, outcomes[j].Reference
		if rank[a.Kind] != rank[b.Kind] {
			return rank[a.Kind] < rank[b.Kind]
		}
		va, errA := semver.NewVersion(a.Name)
		vb, errB := semver.NewVersion(b.Name)
		if errA == nil && errB == nil {
			if c := va.Compare(vb); c != 0 {
				return c < 0
			}
		}
		return a.Name < b.Name
	})
}
