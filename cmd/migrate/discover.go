package migrate

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/harness/package-migrator/cmd/cmdutils"
	"github.com/harness/package-migrator/config"
	"github.com/harness/package-migrator/module/migrate/discovery"
	"github.com/harness/package-migrator/module/migrate/types"
	"github.com/harness/package-migrator/util/common/errors"
	"github.com/harness/package-migrator/util/common/fileutil"
)

// NewDiscoverCmd lists the packages of the source organization as JSON.
func NewDiscoverCmd(f *cmdutils.Factory) *cobra.Command {
	d := &config.Global.Discover
	m := &config.Global.Migrate

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List the packages of an organization",
		Long: heredoc.Doc(`
			List the packages of one kind in the source organization and print
			them as the JSON package list the migrate commands read.

			Patterns support * within a name segment and ** across segments.

			Examples:
			  pkgmigrate discover --type container --source-org acme --unlinked
			  pkgmigrate discover --type npm --source-org acme --include 'ui-*' -o packages.json
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiscover(cmd, f, cmd.OutOrStdout())
		},
	}

	fs := cmd.Flags()
	addSideFlags(fs, "source", &m.Source)
	fs.StringVarP(&m.Output, "output", "o", "", "Write the package list to this file instead of stdout")
	fs.StringVar(&d.Type, "type", "", "Package kind: npm, nuget or container")
	fs.StringVar(&d.Repository, "repository", "", "Only packages linked to this repository")
	fs.BoolVar(&d.Unlinked, "unlinked", false, "Only packages not linked to any repository")
	fs.StringSliceVar(&d.Include, "include", nil, "Only package names matching these patterns")
	fs.StringSliceVar(&d.Exclude, "exclude", nil, "Drop package names matching these patterns")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func runDiscover(cmd *cobra.Command, f *cmdutils.Factory, stdout io.Writer) error {
	d := config.Global.Discover
	kind, err := types.ParseKind(d.Type)
	if err != nil {
		return errors.NewValidationError("type", err.Error())
	}

	cfg, err := resolveConfig(cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.Source.Org == "" {
		return errors.NewValidationError("source.org", "organization cannot be empty")
	}
	if cfg.Source.Token == "" {
		return errors.NewValidationError("source.token", "token cannot be empty")
	}
	if _, err := types.APIHost(cfg.Source.APIURL); err != nil {
		return errors.NewValidationError("source.apiUrl", err.Error())
	}

	side := types.Side{
		Org:    cfg.Source.Org,
		APIURL: strings.TrimSuffix(cfg.Source.APIURL, "/"),
		Token:  cfg.Source.Token,
	}
	filter := discovery.Filter{
		Repository: d.Repository,
		Unlinked:   d.Unlinked,
		Include:    d.Include,
		Exclude:    d.Exclude,
	}
	packages, err := f.Discoverer(side).Discover(cmd.Context(), side.Org, kind, filter)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(packages, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if out := config.Global.Migrate.Output; out != "" {
		return fileutil.WriteFile(out, data, 0o644)
	}
	_, err = stdout.Write(data)
	return err
}
