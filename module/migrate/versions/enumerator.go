// Package versions lists the published versions of a package from the
// source package API.
package versions

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/harness/package-migrator/module/migrate/http"
	"github.com/harness/package-migrator/module/migrate/types"
)

const (
	defaultPerPage = 100
	maxPages       = 1000
)

// Enumerator pages through the version listing of the package API.
type Enumerator struct {
	client  *http.Client
	apiURL  string
	perPage int
}

// NewEnumerator returns an Enumerator reading from apiURL with client, which
// must carry the source credential.
func NewEnumerator(client *http.Client, apiURL string) *Enumerator {
	return &Enumerator{client: client, apiURL: apiURL, perPage: defaultPerPage}
}

// FetchVersions returns every version of the package. Any failure is logged
// and yields an empty list so the package is skipped instead of aborting the
// run.
func (e *Enumerator) FetchVersions(ctx context.Context, org, name string, kind types.Kind) []types.Version {
	versions, err := e.List(ctx, org, name, kind)
	if err != nil {
		log.Warn().
			Err(err).
			Str("package", name).
			Str("kind", string(kind)).
			Msg("Failed to list package versions, treating as empty")
		return []types.Version{}
	}
	return versions
}

// List is FetchVersions without the error policy.
func (e *Enumerator) List(ctx context.Context, org, name string, kind types.Kind) ([]types.Version, error) {
	all := []types.Version{}
	for page := 1; page <= maxPages; page++ {
		var batch []types.Version
		if err := e.client.GetJSON(ctx, e.pageURL(org, name, kind, page), &batch); err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < e.perPage {
			return all, nil
		}
	}
	return nil, fmt.Errorf("version listing of %s exceeded %d pages", name, maxPages)
}

func (e *Enumerator) pageURL(org, name string, kind types.Kind, page int) string {
	return fmt.Sprintf("%s/orgs/%s/packages/%s/%s/versions?per_page=%d&page=%d",
		e.apiURL, url.PathEscape(org), kind, url.PathEscape(name), e.perPage, page)
}
