package types

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/harness/package-migrator/util/common/errors"
)

const DefaultAPIURL = "https://api.github.com"

type CopierType string

var (
	CopierCrane  CopierType = "crane"
	CopierSkopeo CopierType = "skopeo"
)

// Config represents the top-level configuration structure
type Config struct {
	Source    EndpointConfig  `yaml:"source" toml:"source"`
	Target    EndpointConfig  `yaml:"target" toml:"target"`
	Migration MigrationConfig `yaml:"migration" toml:"migration"`
	Retry     RetryConfig     `yaml:"retry" toml:"retry"`
	NPM       NPMConfig       `yaml:"npm" toml:"npm"`
	NuGet     NuGetConfig     `yaml:"nuget" toml:"nuget"`
	Container ContainerConfig `yaml:"container" toml:"container"`
}

// EndpointConfig describes one side of the migration
type EndpointConfig struct {
	Org         string `yaml:"org" toml:"org"`
	APIURL      string `yaml:"apiUrl" toml:"api_url"`
	RegistryURL string `yaml:"registryUrl" toml:"registry_url"`
	Token       string `yaml:"token" toml:"token"`
}

// MigrationConfig contains settings for a migration process
type MigrationConfig struct {
	DryRun             bool   `yaml:"dryRun" toml:"dry_run"`
	Concurrency        int    `yaml:"concurrency" toml:"concurrency"`
	PackageConcurrency int    `yaml:"packageConcurrency" toml:"package_concurrency"`
	WorkDir            string `yaml:"workDir" toml:"work_dir"`
}

// RetryConfig bounds the per-version retry loop
type RetryConfig struct {
	MaxRetries int           `yaml:"maxRetries" toml:"max_retries"`
	MinDelay   time.Duration `yaml:"minDelay" toml:"min_delay"`
	MaxDelay   time.Duration `yaml:"maxDelay" toml:"max_delay"`
	Multiplier float64       `yaml:"multiplier" toml:"multiplier"`
}

type NPMConfig struct {
	NpmPath string `yaml:"npmPath" toml:"npm_path"`
}

type NuGetConfig struct {
	GprPath    string `yaml:"gprPath" toml:"gpr_path"`
	DotnetPath string `yaml:"dotnetPath" toml:"dotnet_path"`
}

type ContainerConfig struct {
	Copier       CopierType `yaml:"copier" toml:"copier"`
	SkopeoImage  string     `yaml:"skopeoImage" toml:"skopeo_image"`
	DockerPath   string     `yaml:"dockerPath" toml:"docker_path"`
	SourceUser   string     `yaml:"sourceUser" toml:"source_user"`
	TargetUser   string     `yaml:"targetUser" toml:"target_user"`
	RetryTimes   int        `yaml:"retryTimes" toml:"retry_times"`
	InsecureHost bool       `yaml:"insecure" toml:"insecure"`
}

// DefaultConfig returns a Config populated with the defaults of every field.
func DefaultConfig() *Config {
	return &Config{
		Source: EndpointConfig{APIURL: DefaultAPIURL},
		Target: EndpointConfig{APIURL: DefaultAPIURL},
		Migration: MigrationConfig{
			PackageConcurrency: 1,
		},
		Retry: RetryConfig{
			MaxRetries: 3,
			MinDelay:   time.Second,
			MaxDelay:   10 * time.Second,
			Multiplier: 2,
		},
		NPM:   NPMConfig{NpmPath: "npm"},
		NuGet: NuGetConfig{DotnetPath: "dotnet"},
		Container: ContainerConfig{
			Copier:      CopierCrane,
			SkopeoImage: "quay.io/skopeo/stable:latest",
			DockerPath:  "docker",
			SourceUser:  "x-access-token",
			TargetUser:  "x-access-token",
			RetryTimes:  3,
		},
	}
}

// LoadConfig loads the configuration from a YAML or TOML file on top of the
// defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Expand environment variables in the file
	expanded := expandEnv(string(data))

	config := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(expanded, config); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	return config, nil
}

// expandEnv expands ${VAR} style environment variables
func expandEnv(content string) string {
	return os.Expand(content, func(key string) string {
		return os.Getenv(key)
	})
}

// ApplyEnv fills empty endpoint fields from the environment.
func (c *Config) ApplyEnv() {
	setIfEmpty(&c.Source.Org, "SOURCE_ORG")
	setIfEmpty(&c.Target.Org, "TARGET_ORG")
	setIfEmpty(&c.Source.Token, "SOURCE_TOKEN")
	setIfEmpty(&c.Target.Token, "TARGET_TOKEN")
	setIfEmpty(&c.Source.RegistryURL, "SOURCE_REGISTRY_URL")
	setIfEmpty(&c.Target.RegistryURL, "TARGET_REGISTRY_URL")
	if v := os.Getenv("SOURCE_API_URL"); v != "" && (c.Source.APIURL == "" || c.Source.APIURL == DefaultAPIURL) {
		c.Source.APIURL = v
	}
	if v := os.Getenv("TARGET_API_URL"); v != "" && (c.Target.APIURL == "" || c.Target.APIURL == DefaultAPIURL) {
		c.Target.APIURL = v
	}
}

func setIfEmpty(field *string, env string) {
	if *field != "" {
		return
	}
	*field = os.Getenv(env)
}

// Validate performs basic validation on the configuration
func (c *Config) Validate() error {
	if err := validateEndpoint("source", c.Source); err != nil {
		return err
	}
	if err := validateEndpoint("target", c.Target); err != nil {
		return err
	}
	if c.Migration.Concurrency < 0 {
		return errors.NewValidationError("migration.concurrency", "must not be negative")
	}
	if c.Migration.PackageConcurrency <= 0 {
		return errors.NewValidationError("migration.packageConcurrency", "must be greater than 0")
	}
	if c.Retry.MaxRetries < 0 {
		return errors.NewValidationError("retry.maxRetries", "must not be negative")
	}
	if c.Retry.MinDelay < 0 || c.Retry.MaxDelay < c.Retry.MinDelay {
		return errors.NewValidationError("retry", "delays must satisfy 0 <= minDelay <= maxDelay")
	}
	if c.Retry.Multiplier < 1 {
		return errors.NewValidationError("retry.multiplier", "must be at least 1")
	}
	switch c.Container.Copier {
	case CopierCrane, CopierSkopeo:
	default:
		return errors.NewValidationError("container.copier",
			fmt.Sprintf("unsupported copier %q, must be %q or %q", c.Container.Copier, CopierCrane, CopierSkopeo))
	}
	return nil
}

func validateEndpoint(side string, e EndpointConfig) error {
	if e.Org == "" {
		return errors.NewValidationError(side+".org", "organization cannot be empty")
	}
	if e.Token == "" {
		return errors.NewValidationError(side+".token", "token cannot be empty")
	}
	if e.APIURL == "" {
		return errors.NewValidationError(side+".apiUrl", "API endpoint cannot be empty")
	}
	if !strings.HasPrefix(e.APIURL, "http://") && !strings.HasPrefix(e.APIURL, "https://") {
		return errors.NewValidationError(side+".apiUrl", "API endpoint must be an http(s) URL")
	}
	return nil
}
