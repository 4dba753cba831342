package config

// GlobalFlags contains common flags used across commands
type GlobalFlags struct {
	ConfigPath string
	Format     string
	Verbose    bool
	NoColor    bool

	// Command-specific configurations
	Migrate  MigrateConfig
	Discover DiscoverConfig
}

// EndpointFlags holds the per-side overrides of the configuration file
type EndpointFlags struct {
	Org         string
	APIURL      string
	RegistryURL string
	Token       string
}

// MigrateConfig holds migrate command specific configurations
type MigrateConfig struct {
	Source EndpointFlags
	Target EndpointFlags

	Packages     string
	PackagesFile string
	Output       string

	DryRun             bool
	Concurrency        int
	PackageConcurrency int
	WorkDir            string

	GprPath  string
	Copier   string
	Insecure bool
}

// DiscoverConfig holds discover command specific configurations
type DiscoverConfig struct {
	Type       string
	Repository string
	Unlinked   bool
	Include    []string
	Exclude    []string
}

// Global is the shared instance of GlobalFlags
var Global = GlobalFlags{}
