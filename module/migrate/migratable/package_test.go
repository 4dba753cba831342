package migratable

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harness/package-migrator/module/migrate/pipeline"
	"github.com/harness/package-migrator/module/migrate/resource"
	"github.com/harness/package-migrator/module/migrate/types"
	"github.com/harness/package-migrator/util/common/errors"
)

type staticLister map[string][]types.Version

func (s staticLister) FetchVersions(_ context.Context, _, name string, _ types.Kind) []types.Version {
	return s[name]
}

// fakePipeline answers Transfer from a per-reference script of results.
type fakePipeline struct {
	kind types.Kind

	mu        sync.Mutex
	script    map[string][]transferResult
	attempts  map[string]int
	workspace map[string][]string
}

type transferResult struct {
	ok  bool
	err error
}

func newFakePipeline(kind types.Kind, script map[string][]transferResult) *fakePipeline {
	return &fakePipeline{kind: kind, script: script, attempts: map[string]int{}, workspace: map[string][]string{}}
}

func (f *fakePipeline) Kind() types.Kind { return f.kind }
func (f *fakePipeline) Prepare(context.Context) error { return nil }

func (f *fakePipeline) References(v []types.Version) []types.Reference {
	if f.kind == types.KindContainer {
		return pipeline.ParseVersions(v)
	}
	refs := make([]types.Reference, 0, len(v))
	for _, version := range v {
		refs = append(refs, types.Reference{Name: version.Name, Kind: types.RefVersion})
	}
	return refs
}

func (f *fakePipeline) Transfer(_ context.Context, _ types.Package, ref types.Reference, ws *resource.Workspace) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := ref.String()
	n := f.attempts[key]
	f.attempts[key] = n + 1

	// a leftover from a previous attempt must have been wiped
	entries, _ := os.ReadDir(ws.Path)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	f.workspace[key] = append(f.workspace[key], names...)
	_ = os.WriteFile(filepath.Join(ws.Path, "partial"), []byte("x"), 0o644)

	results := f.script[key]
	if len(results) == 0 {
		return true, nil
	}
	if n >= len(results) {
		n = len(results) - 1
	}
	return results[n].ok, results[n].err
}

func testContext(kind types.Kind) *types.MigrationContext {
	return &types.MigrationContext{
		Kind:        kind,
		Source:      types.Side{Org: "acme"},
		Target:      types.Side{Org: "newco"},
		Concurrency: 2,
		Retry:       types.RetryPolicy{MaxRetries: 3, MinDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2},
	}
}

func versions(names ...string) []types.Version {
	var out []types.Version
	for _, n := range names {
		out = append(out, types.Version{Name: n})
	}
	return out
}

func TestMigratePackage_MissingManifestVersionCountsAsFailure(t *testing.T) {
	tracker := resource.NewTracker(t.TempDir())
	p := newFakePipeline(types.KindNPM, map[string][]transferResult{
		"1.1.0": {{ok: false}},
	})
	m := NewMigrator(testContext(types.KindNPM), p, staticLister{"left-pad": versions("1.0.0", "1.1.0")}, tracker)

	res := m.MigratePackage(context.Background(), types.Package{Name: "left-pad", Kind: types.KindNPM})

	assert.Equal(t, "left-pad", res.Package)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.False(t, res.Skipped)
	assert.Nil(t, res.Container)
	require.Len(t, res.Versions, 2)
	assert.Equal(t, "1.0.0", res.Versions[0].Reference.Name)
	assert.Equal(t, types.StatusSuccess, res.Versions[0].Status)
	assert.Equal(t, types.StatusFail, res.Versions[1].Status)
	assert.Empty(t, tracker.Tracked())
}

func TestMigratePackage_NoVersionsIsSkip(t *testing.T) {
	tracker := resource.NewTracker(t.TempDir())
	m := NewMigrator(testContext(types.KindNuGet), newFakePipeline(types.KindNuGet, nil), staticLister{}, tracker)

	res := m.MigratePackage(context.Background(), types.Package{Name: "Acme.Core", Kind: types.KindNuGet})
	assert.Equal(t, types.SkipResult("Acme.Core", NoVersionsReason), res)
}

func TestMigratePackage_RetriesTransientAndResetsWorkspace(t *testing.T) {
	tracker := resource.NewTracker(t.TempDir())
	transient := errors.NewTransientError("GET", assert.AnError)
	p := newFakePipeline(types.KindNuGet, map[string][]transferResult{
		"1.0.0": {{err: transient}, {err: transient}, {ok: true}},
	})
	m := NewMigrator(testContext(types.KindNuGet), p, staticLister{"Acme.Core": versions("1.0.0")}, tracker)

	res := m.MigratePackage(context.Background(), types.Package{Name: "Acme.Core", Kind: types.KindNuGet})
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 0, res.Failed)
	require.Len(t, res.Versions, 1)
	assert.Equal(t, 3, res.Versions[0].Attempts)
	assert.Empty(t, p.workspace["1.0.0"], "every attempt starts from an empty workspace")
	assert.Empty(t, tracker.Tracked())
}

func TestMigratePackage_AuthFailureIsNotRetried(t *testing.T) {
	tracker := resource.NewTracker(t.TempDir())
	p := newFakePipeline(types.KindNPM, map[string][]transferResult{
		"1.0.0": {{err: errors.NewAuthError("npm", nil)}},
	})
	m := NewMigrator(testContext(types.KindNPM), p, staticLister{"left-pad": versions("1.0.0")}, tracker)

	res := m.MigratePackage(context.Background(), types.Package{Name: "left-pad", Kind: types.KindNPM})
	assert.Equal(t, 0, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, p.attempts["1.0.0"])
	assert.Contains(t, res.Versions[0].Error, "authentication failed")
}

func TestMigratePackage_ContainerBuckets(t *testing.T) {
	tracker := resource.NewTracker(t.TempDir())
	p := newFakePipeline(types.KindContainer, map[string][]transferResult{
		":v2": {{ok: false}},
	})
	lister := staticLister{"app": {
		{Name: "sha256:abc", Metadata: types.VersionMetadata{Container: &types.ContainerMetadata{Tags: []string{"v1", "v2"}}}},
		{Name: "sha256:def", Metadata: types.VersionMetadata{Container: &types.ContainerMetadata{}}},
	}}
	m := NewMigrator(testContext(types.KindContainer), p, lister, tracker)

	res := m.MigratePackage(context.Background(), types.Package{Name: "app", Kind: types.KindContainer})
	assert.Equal(t, 3, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	require.NotNil(t, res.Container)
	assert.Equal(t, types.ContainerCounters{DigestsSucceeded: 2, TagsSucceeded: 1, TagsFailed: 1}, *res.Container)
	assert.Equal(t, len(res.Versions), res.Succeeded+res.Failed)
}

func TestMigratePackage_DryRunTransfersNothing(t *testing.T) {
	tracker := resource.NewTracker(t.TempDir())
	mc := testContext(types.KindNPM)
	mc.DryRun = true
	p := newFakePipeline(types.KindNPM, nil)
	m := NewMigrator(mc, p, staticLister{"left-pad": versions("1.0.0", "2.0.0")}, tracker)

	res := m.MigratePackage(context.Background(), types.Package{Name: "left-pad", Kind: types.KindNPM})
	assert.Zero(t, res.Succeeded)
	assert.Zero(t, res.Failed)
	assert.Equal(t, 2, res.Planned)
	assert.False(t, res.Skipped)
	require.Len(t, res.Versions, 2)
	for _, v := range res.Versions {
		assert.Equal(t, types.StatusPlanned, v.Status)
	}
	assert.Empty(t, p.attempts)
}

func TestSortOutcomes(t *testing.T) {
	outcomes := []types.VersionOutcome{
		{Reference: types.Reference{Name: "v10", Kind: types.RefTag}},
		{Reference: types.Reference{Name: "1.10.0", Kind: types.RefVersion}},
		{Reference: types.Reference{Name: "sha256:b", Kind: types.RefDigest}},
		{Reference: types.Reference{Name: "1.9.0", Kind: types.RefVersion}},
		{Reference: types.Reference{Name: "v2", Kind: types.RefTag}},
		{Reference: types.Reference{Name: "sha256:a", Kind: types.RefDigest}},
	}
	SortOutcomes(outcomes)

	var got []string
	for _, o := range outcomes {
		got = append(got, o.Reference.Name)
	}
	assert.Equal(t, []string{"1.9.0", "1.10.0", "sha256:a", "sha256:b", "v2", "v10"}, got)
}
