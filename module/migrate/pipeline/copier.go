package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/crane"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/remote/transport"
	"github.com/rs/zerolog/log"

	"github.com/harness/package-migrator/module/migrate/types"
	"github.com/harness/package-migrator/util/common/errors"
)

const userAgent = "package-migrator"

// CraneCopier copies images in process with go-containerregistry. Source and
// target use separate keychains so both sides may live on the same host.
type CraneCopier struct {
	src      authn.Keychain
	dst      authn.Keychain
	insecure bool
}

func NewCraneCopier(mc *types.MigrationContext) *CraneCopier {
	return &CraneCopier{
		src: authn.NewMultiKeychain(
			NewHostKeychain(mc.Container.SourceUser, mc.Source.Token, mc.Source.RegistryURL),
			authn.DefaultKeychain,
		),
		dst: authn.NewMultiKeychain(
			NewHostKeychain(mc.Container.TargetUser, mc.Target.Token, mc.Target.RegistryURL),
			authn.DefaultKeychain,
		),
		insecure: mc.Container.Insecure,
	}
}

func (c *CraneCopier) Copy(ctx context.Context, src, dst string) error {
	var nameOpts []name.Option
	if c.insecure {
		nameOpts = append(nameOpts, name.Insecure)
	}
	srcRef, err := name.ParseReference(src, nameOpts...)
	if err != nil {
		return fmt.Errorf("parsing reference %q: %w", src, err)
	}
	dstRef, err := name.ParseReference(dst, nameOpts...)
	if err != nil {
		return fmt.Errorf("parsing reference %q: %w", dst, err)
	}

	srcOpts := c.remoteOptions(ctx, c.src)
	dstOpts := c.remoteOptions(ctx, c.dst)

	desc, err := remote.Get(srcRef, srcOpts...)
	if err != nil {
		return classifyRegistryError("crane get", err)
	}

	// HEAD the destination, an identical digest means nothing to copy.
	if head, err := remote.Head(dstRef, dstOpts...); err == nil && head.Digest == desc.Digest {
		log.Debug().Str("dst", dst).Msg("Image already present at destination")
		return nil
	}

	if desc.MediaType.IsIndex() {
		idx, err := desc.ImageIndex()
		if err != nil {
			return classifyRegistryError("crane index", err)
		}
		if err := remote.WriteIndex(dstRef, idx, dstOpts...); err != nil {
			return classifyRegistryError("crane write", err)
		}
	} else {
		img, err := desc.Image()
		if err != nil {
			return classifyRegistryError("crane image", err)
		}
		if err := remote.Write(dstRef, img, dstOpts...); err != nil {
			return classifyRegistryError("crane write", err)
		}
	}

	got, err := crane.Digest(dst, c.craneOptions(ctx)...)
	if err != nil {
		return classifyRegistryError("crane digest", err)
	}
	if got != desc.Digest.String() {
		return fmt.Errorf("digest mismatch after copy: source %s, target %s", desc.Digest, got)
	}
	return nil
}

func (c *CraneCopier) remoteOptions(ctx context.Context, kc authn.Keychain) []remote.Option {
	return []remote.Option{
		remote.WithContext(ctx),
		remote.WithAuthFromKeychain(kc),
		remote.WithUserAgent(userAgent),
	}
}

func (c *CraneCopier) craneOptions(ctx context.Context) []crane.Option {
	opts := []crane.Option{
		crane.WithContext(ctx),
		crane.WithAuthFromKeychain(c.dst),
		crane.WithUserAgent(userAgent),
	}
	if c.insecure {
		opts = append(opts, crane.Insecure)
	}
	return opts
}

// classifyRegistryError maps registry API failures onto the error variants.
func classifyRegistryError(op string, err error) error {
	var terr *transport.Error
	if errors.As(err, &terr) {
		switch terr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return errors.NewAuthError(op, err)
		case http.StatusNotFound:
			return errors.NewNotFoundError(op, "image", err)
		}
		for _, d := range terr.Errors {
			switch d.Code {
			case transport.UnauthorizedErrorCode, transport.DeniedErrorCode:
				return errors.NewAuthError(op, err)
			case transport.ManifestUnknownErrorCode, transport.NameUnknownErrorCode:
				return errors.NewNotFoundError(op, "image", err)
			}
		}
		if terr.StatusCode == http.StatusTooManyRequests || terr.StatusCode >= 500 {
			return errors.NewTransientError(op, err)
		}
		return err
	}
	return errors.NewTransientError(op, err)
}

// SkopeoCopier runs skopeo from its container image through docker.
type SkopeoCopier struct {
	runner     Runner
	docker     string
	image      string
	srcCreds   string
	dstCreds   string
	retryTimes int
	insecure   bool
}

func NewSkopeoCopier(mc *types.MigrationContext, runner Runner) *SkopeoCopier {
	return &SkopeoCopier{
		runner:     runner,
		docker:     mc.Container.DockerPath,
		image:      mc.Container.SkopeoImage,
		srcCreds:   mc.Container.SourceUser + ":" + mc.Source.Token,
		dstCreds:   mc.Container.TargetUser + ":" + mc.Target.Token,
		retryTimes: mc.Container.RetryTimes,
		insecure:   mc.Container.Insecure,
	}
}

// Args returns the docker arguments of one copy.
func (c *SkopeoCopier) Args(src, dst string) []string {
	args := []string{
		"run", "--rm", c.image,
		"copy", "--all", "--preserve-digests",
		"--retry-times", strconv.Itoa(c.retryTimes),
		"--src-creds", c.srcCreds,
		"--dest-creds", c.dstCreds,
	}
	if c.insecure {
		args = append(args, "--src-tls-verify=false", "--dest-tls-verify=false")
	}
	return append(args, "docker://"+src, "docker://"+dst)
}

func (c *SkopeoCopier) Copy(ctx context.Context, src, dst string) error {
	res, err := c.runner.Run(ctx, c.docker, c.Args(src, dst), RunOptions{})
	if err != nil {
		return errors.NewTransientError("skopeo copy", err)
	}
	if res.ExitCode != 0 {
		return errors.ClassifyToolFailure("skopeo", res.ExitCode, redact(res.Output(), c.srcCreds, c.dstCreds))
	}
	return nil
}

func redact(s string, secrets ...string) string {
	for _, secret := range secrets {
		if secret != "" {
			s = strings.ReplaceAll(s, secret, "***")
		}
	}
	return s
}
