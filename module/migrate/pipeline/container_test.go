package pipeline

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/crane"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/registry"
	"github.com/google/go-containerregistry/pkg/v1/random"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harness/package-migrator/module/migrate/types"
	"github.com/harness/package-migrator/util/common/errors"
)

func TestParseVersions(t *testing.T) {
	versions := []types.Version{
		{Name: "sha256:abc", Metadata: types.VersionMetadata{Container: &types.ContainerMetadata{Tags: []string{"v1", "v2"}}}},
		{Name: "sha256:def", Metadata: types.VersionMetadata{Container: &types.ContainerMetadata{Tags: []string{}}}},
	}

	refs := ParseVersions(versions)
	require.Len(t, refs, 4)

	var digests, tags []string
	for _, r := range refs {
		if r.IsDigest() {
			digests = append(digests, r.Name)
		} else {
			tags = append(tags, r.Name)
		}
	}
	assert.Equal(t, []string{"sha256:abc", "sha256:def"}, digests)
	assert.Equal(t, []string{"v1", "v2"}, tags)
	assert.Equal(t, "sha256:abc", refs[1].Digest)
}

func TestParseVersions_NoContainerMetadata(t *testing.T) {
	refs := ParseVersions([]types.Version{{Name: "sha256:abc"}})
	assert.Equal(t, []types.Reference{{Name: "sha256:abc", Kind: types.RefDigest, Digest: "sha256:abc"}}, refs)
}

func TestImageReference(t *testing.T) {
	assert.Equal(t, "ghcr.io/acme/app@sha256:abc",
		ImageReference("ghcr.io", "Acme", "app", types.Reference{Name: "sha256:abc", Kind: types.RefDigest}))
	assert.Equal(t, "containers.ghe.example.com/newco/app:v1",
		ImageReference("containers.ghe.example.com", "newco", "App", types.Reference{Name: "v1", Kind: types.RefTag}))
}

func containerContext(copier types.CopierType) *types.MigrationContext {
	return &types.MigrationContext{
		Kind:   types.KindContainer,
		Source: types.Side{Org: "acme", Token: "src", RegistryURL: "ghcr.io"},
		Target: types.Side{Org: "newco", Token: "dst", RegistryURL: "containers.ghe.example.com"},
		Container: &types.ContainerContext{
			Copier:      copier,
			SkopeoImage: "quay.io/skopeo/stable:latest",
			DockerPath:  "docker",
			SourceUser:  "x-access-token",
			TargetUser:  "x-access-token",
			RetryTimes:  3,
		},
	}
}

func TestSkopeoCopier_Args(t *testing.T) {
	c := NewSkopeoCopier(containerContext(types.CopierSkopeo), &fakeRunner{})
	assert.Equal(t, []string{
		"run", "--rm", "quay.io/skopeo/stable:latest",
		"copy", "--all", "--preserve-digests",
		"--retry-times", "3",
		"--src-creds", "x-access-token:src",
		"--dest-creds", "x-access-token:dst",
		"docker://ghcr.io/acme/app:v1", "docker://containers.ghe.example.com/newco/app:v1",
	}, c.Args("ghcr.io/acme/app:v1", "containers.ghe.example.com/newco/app:v1"))
}

func TestSkopeoCopier_CopyClassifiesFailures(t *testing.T) {
	tests := []struct {
		name         string
		output       string
		wantAuth     bool
		wantNotFound bool
	}{
		{name: "unauthorized", output: "FATA[0001] initializing source: reading manifest v1: UNAUTHORIZED: authentication required", wantAuth: true},
		{name: "not found", output: "FATA[0001] initializing source: manifest unknown: Not Found", wantNotFound: true},
		{name: "generic", output: "FATA[0001] writing blob: connection reset by peer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{onRun: func(call) Result { return Result{ExitCode: 1, Stderr: tt.output + " x-access-token:src"} }}
			c := NewSkopeoCopier(containerContext(types.CopierSkopeo), runner)

			err := c.Copy(context.Background(), "ghcr.io/acme/app:v1", "containers.ghe.example.com/newco/app:v1")
			require.Error(t, err)
			assert.Equal(t, tt.wantAuth, errors.IsAuth(err))
			assert.Equal(t, tt.wantNotFound, errors.IsNotFound(err))
			assert.NotContains(t, err.Error(), "x-access-token:src")
		})
	}
}

func TestContainer_PrepareRequiresDockerForSkopeo(t *testing.T) {
	runner := &fakeRunner{missing: map[string]bool{"docker": true}}

	p, err := NewContainer(containerContext(types.CopierSkopeo), Deps{Runner: runner})
	require.NoError(t, err)
	assert.Error(t, p.Prepare(context.Background()))

	p, err = NewContainer(containerContext(types.CopierCrane), Deps{Runner: runner})
	require.NoError(t, err)
	assert.NoError(t, p.Prepare(context.Background()))
}

type stubCopier struct {
	err    error
	copied [][2]string
}

func (s *stubCopier) Copy(_ context.Context, src, dst string) error {
	s.copied = append(s.copied, [2]string{src, dst})
	return s.err
}

func TestContainer_TransferCollapsesFailures(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantOK    bool
		wantLevel string
	}{
		{name: "success", wantOK: true, wantLevel: "info"},
		{name: "auth", err: errors.NewAuthError("skopeo", nil), wantLevel: "error"},
		{name: "not found", err: errors.NewNotFoundError("skopeo", "image", nil), wantLevel: "warn"},
		{name: "generic", err: &errors.ToolError{Tool: "skopeo", ExitCode: 1}, wantLevel: "warn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			copier := &stubCopier{err: tt.err}
			p, err := NewContainer(containerContext(types.CopierSkopeo), Deps{Runner: &fakeRunner{}, Copier: copier})
			require.NoError(t, err)

			ref := types.Reference{Name: "v1", Kind: types.RefTag, Digest: "sha256:abc"}
			var logs bytes.Buffer
			ok, err := p.Transfer(capturingContext(&logs), types.Package{Name: "app", Kind: types.KindContainer}, ref, nil)
			assert.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, []string{tt.wantLevel}, loggedLevels(t, &logs))
			assert.Equal(t, [][2]string{{"ghcr.io/acme/app:v1", "containers.ghe.example.com/newco/app:v1"}}, copier.copied)
		})
	}
}

func TestCraneCopier_CopiesIndexPreservingDigest(t *testing.T) {
	srv := httptest.NewServer(registry.New())
	defer srv.Close()
	host := strings.TrimPrefix(srv.URL, "http://")

	idx, err := random.Index(256, 1, 2)
	require.NoError(t, err)
	srcTag, err := name.ParseReference(host + "/acme/app:v1")
	require.NoError(t, err)
	require.NoError(t, remote.WriteIndex(srcTag, idx))
	digest, err := idx.Digest()
	require.NoError(t, err)

	c := &CraneCopier{src: authn.NewMultiKeychain(), dst: authn.NewMultiKeychain(), insecure: true}
	ctx := context.Background()

	require.NoError(t, c.Copy(ctx, host+"/acme/app@"+digest.String(), host+"/newco/app@"+digest.String()))
	require.NoError(t, c.Copy(ctx, host+"/acme/app:v1", host+"/newco/app:v1"))

	got, err := crane.Digest(host+"/newco/app:v1", crane.Insecure)
	require.NoError(t, err)
	assert.Equal(t, digest.String(), got)

	// copying again finds the digest already present
	assert.NoError(t, c.Copy(ctx, host+"/acme/app:v1", host+"/newco/app:v1"))
}

func TestCraneCopier_MissingImageIsNotFound(t *testing.T) {
	srv := httptest.NewServer(registry.New())
	defer srv.Close()
	host := strings.TrimPrefix(srv.URL, "http://")

	c := &CraneCopier{src: authn.NewMultiKeychain(), dst: authn.NewMultiKeychain(), insecure: true}
	err := c.Copy(context.Background(), host+"/acme/app:missing", host+"/newco/app:missing")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestHostKeychain(t *testing.T) {
	kc := NewHostKeychain("x-access-token", "tok", "https://ghcr.io")

	reg, err := name.NewRegistry("ghcr.io")
	require.NoError(t, err)
	auth, err := kc.Resolve(reg)
	require.NoError(t, err)
	cfg, err := auth.Authorization()
	require.NoError(t, err)
	assert.Equal(t, "x-access-token", cfg.Username)
	assert.Equal(t, "tok", cfg.Password)

	other, err := name.NewRegistry("docker.io")
	require.NoError(t, err)
	auth, err = kc.Resolve(other)
	require.NoError(t, err)
	assert.Equal(t, authn.Anonymous, auth)
}
