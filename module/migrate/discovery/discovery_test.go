package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mhttp "github.com/harness/package-migrator/module/migrate/http"
	"github.com/harness/package-migrator/module/migrate/types"
	"github.com/harness/package-migrator/util/common/errors"
)

func newServer(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orgs/acme/packages", r.URL.Path)
		assert.Equal(t, "npm", r.URL.Query().Get("package_type"))
		switch r.URL.Query().Get("page") {
		case "1":
			_, _ = fmt.Fprint(w, `[{"id":1,"name":"left-pad","package_type":"npm","repository":{"name":"left-pad","full_name":"acme/left-pad"}},
				{"id":2,"name":"is-odd","package_type":"npm","repository":null}]`)
		case "2":
			_, _ = fmt.Fprint(w, `[{"id":3,"name":"right-pad","package_type":"npm","repository":{"name":"pads"}}]`)
		default:
			_, _ = fmt.Fprint(w, `[]`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newDiscoverer(srv *httptest.Server) *Discoverer {
	d := NewDiscoverer(mhttp.NewClient(nil, mhttp.WithRetryMax(0)), srv.URL)
	d.perPage = 2
	return d
}

func TestDiscover(t *testing.T) {
	srv := newServer(t)

	tests := []struct {
		name   string
		filter Filter
		want   []types.Package
	}{
		{
			name:   "all",
			filter: Filter{},
			want: []types.Package{
				{Name: "left-pad", Kind: types.KindNPM, Repository: "left-pad"},
				{Name: "is-odd", Kind: types.KindNPM},
				{Name: "right-pad", Kind: types.KindNPM, Repository: "pads"},
			},
		},
		{
			name:   "linked to repository",
			filter: Filter{Repository: "pads"},
			want:   []types.Package{{Name: "right-pad", Kind: types.KindNPM, Repository: "pads"}},
		},
		{
			name:   "unlinked",
			filter: Filter{Unlinked: true},
			want:   []types.Package{{Name: "is-odd", Kind: types.KindNPM}},
		},
		{
			name:   "patterns",
			filter: Filter{Include: []string{"*-pad"}, Exclude: []string{"right-*"}},
			want:   []types.Package{{Name: "left-pad", Kind: types.KindNPM, Repository: "left-pad"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newDiscoverer(srv).Discover(context.Background(), "acme", types.KindNPM, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDiscover_ConflictingFilters(t *testing.T) {
	_, err := newDiscoverer(newServer(t)).Discover(context.Background(), "acme", types.KindNPM, Filter{Repository: "x", Unlinked: true})
	assert.Error(t, err)
}

func TestDiscover_PropagatesAuthErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newDiscoverer(srv).List(context.Background(), "acme", types.KindNPM)
	assert.True(t, errors.IsAuth(err))
}
