package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/harness/package-migrator/cmd/cmdutils"
	"github.com/harness/package-migrator/cmd/migrate"
	"github.com/harness/package-migrator/config"
	"github.com/harness/package-migrator/internal/style"
	"github.com/harness/package-migrator/internal/terminal"
	"github.com/harness/package-migrator/module/migrate/types"
	"github.com/harness/package-migrator/util/common/errors"
)

// version is set via ldflags during build
var version = "dev"

// exitInterrupted is the conventional status of a process stopped by SIGINT.
const exitInterrupted = 130

func main() {
	factory := cmdutils.NewFactory()

	rootCmd := &cobra.Command{
		Use:           "pkgmigrate",
		Short:         "Migrate packages between organizations",
		SilenceUsage:  true,
		SilenceErrors: true, //prevent duplicate printing of errors
		Long: heredoc.Doc(`
			pkgmigrate copies npm packages, NuGet packages and container images
			from one organization of a package registry to another, possibly on
			a different server.

			Typical flow: list the packages with "pkgmigrate discover", then feed
			the list to the command of the package kind. Every run is safe to
			repeat; versions that already exist at the target are left alone.
		`),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			termInfo := terminal.Detect(config.Global.NoColor, config.Global.Format == "json")
			style.Init(termInfo.ColorEnabled)
			if !termInfo.ColorEnabled {
				pterm.DisableStyling()
			}
			if config.Global.Format == "json" {
				// keep stdout parseable
				pterm.SetDefaultOutput(os.Stderr)
			}
			setupLogging(config.Global.Verbose, config.Global.NoColor)
			return initProfiling()
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return flushProfiling()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&config.Global.ConfigPath, "config", "c", "", "Path to a YAML or TOML configuration file")
	flags.StringVar(&config.Global.Format, "format", "table", "Format of the result: table or json")
	flags.BoolVarP(&config.Global.Verbose, "verbose", "v", false, "Enable verbose logging to console")
	flags.BoolVar(&config.Global.NoColor, "no-color", false, "Disable colour output (also respects NO_COLOR env)")
	addProfilingFlags(flags)

	rootCmd.AddCommand(migrate.NewNPMCmd(factory))
	rootCmd.AddCommand(migrate.NewNuGetCmd(factory))
	rootCmd.AddCommand(migrate.NewContainerCmd(factory))
	rootCmd.AddCommand(migrate.NewDiscoverCmd(factory))
	rootCmd.AddCommand(versionCmd())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalChan
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, cleaning up...")
		cancel()
		factory.ReleaseAll()
		os.Exit(exitInterrupted)
	}()

	err := rootCmd.ExecuteContext(ctx)
	factory.ReleaseAll()
	if err != nil {
		fmt.Fprintln(os.Stderr, style.Error.Render("Error: "+err.Error()))
		if errors.Is(err, errors.ErrHardFailure) {
			fmt.Fprintln(os.Stderr, style.Hint("Nothing was migrated; fix the cause above and run the same command again."))
		}
		os.Exit(1)
	}
}

// setupLogging routes zerolog to the console when verbose. Otherwise only
// error events survive, mirrored through pterm.
func setupLogging(verbose, noColor bool) {
	if verbose {
		logWriter := zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
			NoColor:    noColor,
		}
		log.Logger = log.Output(logWriter).Level(zerolog.DebugLevel)
	} else {
		log.Logger = zerolog.New(io.Discard).Level(zerolog.ErrorLevel).Hook(types.ErrorHook{})
	}
	zerolog.DefaultContextLogger = &log.Logger
}

// versionCmd returns the version command
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of pkgmigrate",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("pkgmigrate version %s\n", version)
			fmt.Printf("Built with %s\n", runtime.Version())
		},
	}
}

var (
	profileName   string
	profileOutput string
	profileFile   *os.File
)

func addProfilingFlags(flags *pflag.FlagSet) {
	flags.StringVar(&profileName, "profile", "none",
		"Name of profile to capture. One of (none|cpu|heap|goroutine|threadcreate|block|mutex)")
	flags.StringVar(&profileOutput, "profile-output", "profile.pprof", "Name of the file to write the profile to")
}

func initProfiling() error {
	switch profileName {
	case "none":
		return nil
	case "cpu":
		f, err := os.Create(profileOutput)
		if err != nil {
			return err
		}
		profileFile = f
		return pprof.StartCPUProfile(f)
	// Block and mutex profiles need a call to Set{Block,Mutex}ProfileRate to
	// output anything. We choose to sample all events.
	case "block":
		runtime.SetBlockProfileRate(1)
	case "mutex":
		runtime.SetMutexProfileFraction(1)
	default:
		if profile := pprof.Lookup(profileName); profile == nil {
			return fmt.Errorf("unknown profile '%s'", profileName)
		}
	}
	return nil
}

func flushProfiling() error {
	switch profileName {
	case "none":
		return nil
	case "cpu":
		pprof.StopCPUProfile()
		return profileFile.Close()
	case "heap":
		runtime.GC()
		fallthrough
	default:
		profile := pprof.Lookup(profileName)
		if profile == nil {
			return nil
		}
		f, err := os.Create(profileOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		return profile.WriteTo(f, 0)
	}
}
