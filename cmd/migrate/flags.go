package migrate

import (
	"github.com/spf13/pflag"

	"github.com/harness/package-migrator/config"
	"github.com/harness/package-migrator/module/migrate/types"
)

func addSideFlags(fs *pflag.FlagSet, side string, f *config.EndpointFlags) {
	fs.StringVar(&f.Org, side+"-org", "", "Organization on the "+side+" side")
	fs.StringVar(&f.Token, side+"-token", "", "Token for the "+side+" side (env "+envPrefix(side)+"_TOKEN)")
	fs.StringVar(&f.APIURL, side+"-api-url", "", "API endpoint of the "+side+" side (default "+types.DefaultAPIURL+")")
	fs.StringVar(&f.RegistryURL, side+"-registry-url", "", "Registry endpoint of the "+side+" side (derived from the API endpoint when empty)")
}

func envPrefix(side string) string {
	if side == "source" {
		return "SOURCE"
	}
	return "TARGET"
}

func addRunFlags(fs *pflag.FlagSet, m *config.MigrateConfig) {
	addSideFlags(fs, "source", &m.Source)
	addSideFlags(fs, "target", &m.Target)

	fs.StringVar(&m.Packages, "packages", "", "Package list as inline JSON")
	fs.StringVar(&m.PackagesFile, "packages-file", "", "File holding the package list as JSON, - for stdin")
	fs.StringVarP(&m.Output, "output", "o", "", "Write the JSON report to this file")
	fs.BoolVar(&m.DryRun, "dry-run", false, "List what would be migrated without transferring anything")
	fs.IntVar(&m.Concurrency, "concurrency", 0, "Versions migrated in parallel per package (default 5 for npm, 1 otherwise)")
	fs.IntVar(&m.PackageConcurrency, "package-concurrency", 1, "Packages migrated in parallel")
	fs.StringVar(&m.WorkDir, "work-dir", "", "Directory for temporary workspaces (default system temp dir)")
}

// resolveConfig layers the configuration: defaults, then the config file,
// then environment variables, then explicitly set flags.
func resolveConfig(fs *pflag.FlagSet) (*types.Config, error) {
	cfg := types.DefaultConfig()
	if config.Global.ConfigPath != "" {
		loaded, err := types.LoadConfig(config.Global.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.ApplyEnv()

	m := config.Global.Migrate
	overrideSide(fs, "source", &cfg.Source, m.Source)
	overrideSide(fs, "target", &cfg.Target, m.Target)

	if fs.Changed("dry-run") {
		cfg.Migration.DryRun = m.DryRun
	}
	if fs.Changed("concurrency") {
		cfg.Migration.Concurrency = m.Concurrency
	}
	if fs.Changed("package-concurrency") {
		cfg.Migration.PackageConcurrency = m.PackageConcurrency
	}
	if fs.Changed("work-dir") {
		cfg.Migration.WorkDir = m.WorkDir
	}
	if fs.Changed("gpr-path") {
		cfg.NuGet.GprPath = m.GprPath
	}
	if fs.Changed("copier") {
		cfg.Container.Copier = types.CopierType(m.Copier)
	}
	if fs.Changed("insecure") {
		cfg.Container.InsecureHost = m.Insecure
	}
	return cfg, nil
}

func overrideSide(fs *pflag.FlagSet, side string, dst *types.EndpointConfig, src config.EndpointFlags) {
	set := func(name string, field *string, v string) {
		if fs.Lookup(side+"-"+name) != nil && fs.Changed(side+"-"+name) {
			*field = v
		}
	}
	set("org", &dst.Org, src.Org)
	set("token", &dst.Token, src.Token)
	set("api-url", &dst.APIURL, src.APIURL)
	set("registry-url", &dst.RegistryURL, src.RegistryURL)
}
