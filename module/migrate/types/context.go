package types

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	publicAPIHost       = "api.github.com"
	publicWebHost       = "github.com"
	publicNPMRegistry   = "https://npm.pkg.github.com"
	publicNuGetRegistry = "https://nuget.pkg.github.com"
	publicContainerHost = "ghcr.io"
)

// Side is one resolved end of the migration.
type Side struct {
	Org    string
	APIURL string
	Token  string
	// RegistryURL is the kind-specific artifact registry. For containers it is
	// a bare host name.
	RegistryURL string
}

// NPMContext carries module-kind settings.
type NPMContext struct {
	NpmPath string
}

// NuGetContext carries binary-kind settings.
type NuGetContext struct {
	GprPath    string
	DotnetPath string
}

// ContainerContext carries container-kind settings.
type ContainerContext struct {
	Copier      CopierType
	SkopeoImage string
	DockerPath  string
	SourceUser  string
	TargetUser  string
	RetryTimes  int
	Insecure    bool
}

// RetryPolicy is the resolved retry configuration.
type RetryPolicy struct {
	MaxRetries int
	MinDelay   time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

// MigrationContext is the immutable configuration bundle of one run. It is
// built once and shared read-only by every version operation.
type MigrationContext struct {
	Kind        Kind
	Source      Side
	Target      Side
	Retry       RetryPolicy
	Concurrency int
	DryRun      bool
	WorkDir     string

	NPM       *NPMContext
	NuGet     *NuGetContext
	Container *ContainerContext
}

// NewMigrationContext resolves registry endpoints for kind and assembles the
// context. cfg must have been validated.
func NewMigrationContext(cfg *Config, kind Kind) (*MigrationContext, error) {
	srcRegistry, err := RegistryURL(kind, cfg.Source.APIURL, cfg.Source.RegistryURL)
	if err != nil {
		return nil, fmt.Errorf("source registry: %w", err)
	}
	dstRegistry, err := RegistryURL(kind, cfg.Target.APIURL, cfg.Target.RegistryURL)
	if err != nil {
		return nil, fmt.Errorf("target registry: %w", err)
	}

	mc := &MigrationContext{
		Kind: kind,
		Source: Side{
			Org:         cfg.Source.Org,
			APIURL:      strings.TrimSuffix(cfg.Source.APIURL, "/"),
			Token:       cfg.Source.Token,
			RegistryURL: srcRegistry,
		},
		Target: Side{
			Org:         cfg.Target.Org,
			APIURL:      strings.TrimSuffix(cfg.Target.APIURL, "/"),
			Token:       cfg.Target.Token,
			RegistryURL: dstRegistry,
		},
		Retry: RetryPolicy{
			MaxRetries: cfg.Retry.MaxRetries,
			MinDelay:   cfg.Retry.MinDelay,
			MaxDelay:   cfg.Retry.MaxDelay,
			Multiplier: cfg.Retry.Multiplier,
		},
		Concurrency: cfg.Migration.Concurrency,
		DryRun:      cfg.Migration.DryRun,
		WorkDir:     cfg.Migration.WorkDir,
	}
	if mc.Concurrency == 0 {
		mc.Concurrency = DefaultConcurrency(kind)
	}

	switch kind {
	case KindNPM:
		mc.NPM = &NPMContext{NpmPath: cfg.NPM.NpmPath}
	case KindNuGet:
		mc.NuGet = &NuGetContext{GprPath: cfg.NuGet.GprPath, DotnetPath: cfg.NuGet.DotnetPath}
	case KindContainer:
		mc.Container = &ContainerContext{
			Copier:      cfg.Container.Copier,
			SkopeoImage: cfg.Container.SkopeoImage,
			DockerPath:  cfg.Container.DockerPath,
			SourceUser:  cfg.Container.SourceUser,
			TargetUser:  cfg.Container.TargetUser,
			RetryTimes:  cfg.Container.RetryTimes,
			Insecure:    cfg.Container.InsecureHost,
		}
	default:
		return nil, fmt.Errorf("unsupported package kind: %q", kind)
	}
	return mc, nil
}

// DefaultConcurrency is the per-package version concurrency used when none is
// configured. Module versions publish independently; the other kinds run one
// reference at a time.
func DefaultConcurrency(kind Kind) int {
	if kind == KindNPM {
		return 5
	}
	return 1
}

// APIHost returns the host name of an API endpoint URL.
func APIHost(apiURL string) (string, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return "", fmt.Errorf("invalid API endpoint %q: %w", apiURL, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid API endpoint %q: missing host", apiURL)
	}
	return u.Host, nil
}

// WebHost returns the web (repository) host that belongs to an API endpoint:
// the public default maps to the public web host, otherwise a leading "api."
// is stripped.
func WebHost(apiURL string) (string, error) {
	host, err := APIHost(apiURL)
	if err != nil {
		return "", err
	}
	if strings.EqualFold(host, publicAPIHost) {
		return publicWebHost, nil
	}
	return strings.TrimPrefix(host, "api."), nil
}

// RegistryURL derives the artifact registry endpoint for kind from an API
// endpoint, unless override is set.
func RegistryURL(kind Kind, apiURL, override string) (string, error) {
	if override != "" {
		override = strings.TrimSuffix(override, "/")
		if kind == KindContainer {
			override = strings.TrimPrefix(strings.TrimPrefix(override, "https://"), "http://")
		}
		return override, nil
	}

	host, err := APIHost(apiURL)
	if err != nil {
		return "", err
	}
	public := strings.EqualFold(host, publicAPIHost)
	base := strings.TrimPrefix(host, "api.")

	switch kind {
	case KindNPM:
		if public {
			return publicNPMRegistry, nil
		}
		return "https://npm." + base, nil
	case KindNuGet:
		if public {
			return publicNuGetRegistry, nil
		}
		return "https://nuget." + base, nil
	case KindContainer:
		if public {
			return publicContainerHost, nil
		}
		return "containers." + base, nil
	default:
		return "", fmt.Errorf("unsupported package kind: %q", kind)
	}
}
