package cmdutils

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/harness/package-migrator/module/migrate"
	"github.com/harness/package-migrator/module/migrate/discovery"
	"github.com/harness/package-migrator/module/migrate/http"
	"github.com/harness/package-migrator/module/migrate/http/auth/bearer"
	"github.com/harness/package-migrator/module/migrate/http/modifier"
	"github.com/harness/package-migrator/module/migrate/migratable"
	"github.com/harness/package-migrator/module/migrate/pipeline"
	"github.com/harness/package-migrator/module/migrate/resource"
	"github.com/harness/package-migrator/module/migrate/types"
	"github.com/harness/package-migrator/module/migrate/versions"
)

// Factory builds the collaborators of a run. The tracker it hands out is the
// single process-wide one released by the entry point.
type Factory struct {
	mu      sync.Mutex
	tracker *resource.Tracker
}

func NewFactory() *Factory {
	return &Factory{}
}

// Tracker returns the process tracker, creating it under base on first use.
func (f *Factory) Tracker(base string) *resource.Tracker {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tracker == nil {
		f.tracker = resource.NewTracker(base)
	}
	return f.tracker
}

// ReleaseAll removes every tracked path. Safe to call when no run started.
func (f *Factory) ReleaseAll() {
	f.mu.Lock()
	t := f.tracker
	f.mu.Unlock()
	if t != nil {
		t.ReleaseAll()
	}
}

// SourceClient returns an HTTP client that presents the source token to the
// source API and registry hosts only.
func (f *Factory) SourceClient(side types.Side) *http.Client {
	hosts := []string{side.APIURL}
	if side.RegistryURL != "" {
		hosts = append(hosts, side.RegistryURL)
	}
	return http.NewClient(
		[]modifier.Modifier{bearer.NewAuthorizer(side.Token, hosts...)},
		http.WithLogger(log.Logger),
	)
}

// Discoverer lists packages on side.
func (f *Factory) Discoverer(side types.Side) *discovery.Discoverer {
	return discovery.NewDiscoverer(f.SourceClient(side), side.APIURL)
}

// MigrationService wires the pipeline, the enumerator and the package
// migrator for mc.
func (f *Factory) MigrationService(mc *types.MigrationContext, packageConcurrency int) (*migrate.MigrationService, error) {
	source := f.SourceClient(mc.Source)
	tracker := f.Tracker(mc.WorkDir)

	p, err := pipeline.New(mc, pipeline.Deps{Source: source, Tracker: tracker})
	if err != nil {
		return nil, err
	}
	migrator := migratable.NewMigrator(mc, p, versions.NewEnumerator(source, mc.Source.APIURL), tracker)
	return migrate.NewMigrationService(mc, p, migrator.MigratePackage, packageConcurrency), nil
}
