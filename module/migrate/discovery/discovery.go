// Package discovery lists the packages of an organization and narrows them
// down to the set a migration run should cover.
package discovery

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/harness/package-migrator/module/migrate/http"
	"github.com/harness/package-migrator/module/migrate/types"
	"github.com/harness/package-migrator/module/migrate/util"
)

const (
	defaultPerPage = 100
	maxPages       = 1000
)

// Filter narrows discovered packages.
type Filter struct {
	// Repository keeps only packages linked to this repository.
	Repository string
	// Unlinked keeps only packages without a linked repository.
	Unlinked bool
	Include  []string
	Exclude  []string
}

// Validate rejects contradictory filters.
func (f Filter) Validate() error {
	if f.Repository != "" && f.Unlinked {
		return fmt.Errorf("repository and unlinked filters are mutually exclusive")
	}
	return nil
}

type apiPackage struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	PackageType string `json:"package_type"`
	Repository  *struct {
		Name     string `json:"name"`
		FullName string `json:"full_name"`
	} `json:"repository"`
}

// Discoverer pages through the package listing of the package API.
type Discoverer struct {
	client  *http.Client
	apiURL  string
	perPage int
}

func NewDiscoverer(client *http.Client, apiURL string) *Discoverer {
	return &Discoverer{client: client, apiURL: apiURL, perPage: defaultPerPage}
}

// List returns every package of kind in org.
func (d *Discoverer) List(ctx context.Context, org string, kind types.Kind) ([]types.Package, error) {
	all := []types.Package{}
	for page := 1; page <= maxPages; page++ {
		var batch []apiPackage
		u := fmt.Sprintf("%s/orgs/%s/packages?package_type=%s&per_page=%d&page=%d",
			d.apiURL, url.PathEscape(org), kind, d.perPage, page)
		if err := d.client.GetJSON(ctx, u, &batch); err != nil {
			return nil, fmt.Errorf("list %s packages of %s: %w", kind, org, err)
		}
		for _, p := range batch {
			pkg := types.Package{Name: p.Name, Kind: kind}
			if p.Repository != nil {
				pkg.Repository = p.Repository.Name
			}
			all = append(all, pkg)
		}
		if len(batch) < d.perPage {
			return all, nil
		}
	}
	return nil, fmt.Errorf("package listing of %s exceeded %d pages", org, maxPages)
}

// Discover lists and filters packages.
func (d *Discoverer) Discover(ctx context.Context, org string, kind types.Kind, f Filter) ([]types.Package, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	pkgs, err := d.List(ctx, org, kind)
	if err != nil {
		return nil, err
	}
	filtered := Apply(pkgs, f)
	log.Info().
		Str("org", org).
		Str("kind", string(kind)).
		Int("listed", len(pkgs)).
		Int("selected", len(filtered)).
		Msg("Discovered packages")
	return filtered, nil
}

// Apply filters pkgs by linked repository and name patterns.
func Apply(pkgs []types.Package, f Filter) []types.Package {
	out := make([]types.Package, 0, len(pkgs))
	for _, p := range pkgs {
		switch {
		case f.Unlinked && p.Repository != "":
			continue
		case f.Repository != "" && p.Repository != f.Repository:
			continue
		}
		out = append(out, p)
	}
	return util.FilterPackagesByPatterns(out, f.Include, f.Exclude)
}
