package cli

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/roach88/t262/internal/suite"
)

// ExcludesOptions holds flags for the excludes command.
type ExcludesOptions struct {
	*RootOptions
	ExcludeFile       string
	NoDefaultExcludes bool
}

// NewExcludesCommand creates the excludes command.
func NewExcludesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExcludesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "excludes",
		Short: "Print the effective exclusion list",
		Long: `Print the tests that "t262 run" reports as NOT FIXED TEST.

Paths are suffixes relative to the suite root.

Examples:
  t262 excludes
  t262 excludes --exclude-file known-failures.yaml
  t262 excludes --no-default-excludes --exclude-file known-failures.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExcludes(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ExcludeFile, "exclude-file", "", "YAML file with additional excluded tests")
	cmd.Flags().BoolVar(&opts.NoDefaultExcludes, "no-default-excludes", false, "do not include the built-in exclusion list")

	return cmd
}

func runExcludes(opts *ExcludesOptions, cmd *cobra.Command) error {
	if err := opts.ready(cmd); err != nil {
		return err
	}

	cfg := opts.Config
	if cmd.Flags().Changed("exclude-file") {
		cfg.ExcludeFile = opts.ExcludeFile
	}
	if cmd.Flags().Changed("no-default-excludes") {
		cfg.NoDefaultExcludes = opts.NoDefaultExcludes
	}

	list, err := loadExclusions(afero.NewOsFs(), cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load exclusions", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	entries := list.Entries()
	if entries == nil {
		entries = []suite.Exclusion{}
	}
	if opts.Format == "json" {
		return out.Success(entries)
	}

	for _, e := range entries {
		if e.Reason != "" {
			fmt.Fprintf(out.Writer, "%s\t# %s\n", e.Path, e.Reason)
			continue
		}
		fmt.Fprintln(out.Writer, e.Path)
	}
	fmt.Fprintf(out.Writer, "\n%d excluded test(s)\n", len(entries))
	return nil
}
