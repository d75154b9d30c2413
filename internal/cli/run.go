package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/roach88/t262/internal/config"
	"github.com/roach88/t262/internal/engine"
	"github.com/roach88/t262/internal/harness"
	"github.com/roach88/t262/internal/interp"
	"github.com/roach88/t262/internal/store"
	"github.com/roach88/t262/internal/suite"
	"github.com/roach88/t262/internal/verdict"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Harness           string
	Includes          string
	ExcludeFile       string
	NoDefaultExcludes bool
	Filter            string // glob on the test name
	Match             string // regex on the test path
	Jobs              int
	Timeout           time.Duration
	KeepScratch       bool
	ScratchDir        string
	Database          string
	ExitCode          bool

	// Fs is the filesystem tests, harness and exclusions are read from.
	Fs afero.Fs
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <interpreter> <test-file-or-dir>",
		Short: "Run test262 tests against an interpreter",
		Long: `Run test262 tests against an external JavaScript interpreter.

<interpreter> is a command line; the path of the assembled script is
appended as its last argument. <test-file-or-dir> is a single .js test or a
directory that is searched recursively.

Tests on the exclusion list are reported as NOT FIXED TEST and never run.
Tests under intl402 are skipped without a report.

Exit codes:
  0 - Run completed (failures are reported but do not change the status)
  1 - One or more tests failed, with --exit-code
  2 - Command error (missing harness or path, interpreter not startable, etc.)

Examples:
  t262 run ./es ../test262/test/suite
  t262 run "d8 --harmony" ../test262/test/suite/ch07 --jobs 8
  t262 run ./es ../test262/test/suite --filter "S7.8*" --timeout 10s
  t262 run ./es ../test262/test/suite --db runs.db --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuite(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Harness, "harness", config.DefaultHarness, "harness source prepended to every test")
	cmd.Flags().StringVar(&opts.Includes, "includes", "", "directory holding files named by frontmatter includes")
	cmd.Flags().StringVar(&opts.ExcludeFile, "exclude-file", "", "YAML file with additional excluded tests")
	cmd.Flags().BoolVar(&opts.NoDefaultExcludes, "no-default-excludes", false, "do not apply the built-in exclusion list")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter tests by glob pattern on the file name")
	cmd.Flags().StringVar(&opts.Match, "match", "", "filter tests by regular expression on the path")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", config.DefaultJobs, "number of tests to run in parallel")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "per-test timeout (0 disables)")
	cmd.Flags().BoolVar(&opts.KeepScratch, "keep-scratch", false, "keep assembled scripts on disk")
	cmd.Flags().StringVar(&opts.ScratchDir, "scratch-dir", "", "directory for assembled scripts (default: OS temp dir)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this SQLite database")
	cmd.Flags().BoolVar(&opts.ExitCode, "exit-code", false, "exit with status 1 when any test fails")

	return cmd
}

// settings merges the resolved configuration with explicitly set flags.
func (o *RunOptions) settings(cmd *cobra.Command) config.Config {
	cfg := o.Config
	flags := cmd.Flags()
	if flags.Changed("harness") {
		cfg.Harness = o.Harness
	}
	if flags.Changed("includes") {
		cfg.Includes = o.Includes
	}
	if flags.Changed("exclude-file") {
		cfg.ExcludeFile = o.ExcludeFile
	}
	if flags.Changed("no-default-excludes") {
		cfg.NoDefaultExcludes = o.NoDefaultExcludes
	}
	if flags.Changed("jobs") {
		cfg.Jobs = o.Jobs
	}
	if flags.Changed("timeout") {
		cfg.Timeout = o.Timeout
	}
	if flags.Changed("keep-scratch") {
		cfg.KeepScratch = o.KeepScratch
	}
	if flags.Changed("scratch-dir") {
		cfg.ScratchDir = o.ScratchDir
	}
	if flags.Changed("db") {
		cfg.DB = o.Database
	}
	return cfg
}

func runSuite(opts *RunOptions, command, root string, cmd *cobra.Command) error {
	if err := opts.ready(cmd); err != nil {
		return err
	}
	cfg := opts.settings(cmd)
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	if _, err := fs.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return NewExitError(ExitCommandError, fmt.Sprintf("test path not found: %s", root))
		}
		return WrapExitError(ExitCommandError, "cannot access test path", err)
	}

	h, err := harness.Load(fs, cfg.Harness)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load harness", err)
	}
	if cfg.Includes != "" {
		h.WithIncludes(fs, cfg.Includes)
	}

	exclusions, err := loadExclusions(fs, cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load exclusions", err)
	}

	it, err := interp.New(command)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid interpreter command", err)
	}
	it.ScratchDir = cfg.ScratchDir
	it.KeepScratch = cfg.KeepScratch
	it.Timeout = cfg.Timeout

	paths, err := suite.Discover(fs, root, suite.Filter{Glob: opts.Filter, Match: opts.Match})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find tests", err)
	}

	out := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}
	if opts.Format == "json" {
		out.ErrWriter = cmd.ErrOrStderr()
	}

	if len(paths) == 0 {
		if opts.Format == "json" {
			return out.Success(&engine.Report{Root: root, Interpreter: command, Results: []engine.Result{}})
		}
		fmt.Fprintln(out.Writer, "No tests found.")
		return nil
	}

	opts.Logger.WithField("tests", len(paths)).WithField("jobs", cfg.Jobs).Info("Starting run")

	eng := engine.New(h, exclusions, it, engine.UUIDv7Generator{},
		engine.WithJobs(cfg.Jobs),
		engine.WithLogger(opts.Logger),
		engine.WithFs(fs),
	)

	report, err := eng.Run(cmd.Context(), paths, func(r engine.Result) {
		printResult(out, r)
	})
	if err != nil {
		if errors.Is(err, interp.ErrInterpreterStart) {
			return WrapExitError(ExitCommandError, "interpreter could not be started", err)
		}
		return WrapExitError(ExitCommandError, "run aborted", err)
	}
	report.Interpreter = command
	report.Root = root

	if cfg.DB != "" {
		if err := recordReport(cmd, cfg.DB, report); err != nil {
			return err
		}
		out.VerboseLog("Recorded run %s in %s", report.ID, cfg.DB)
	}

	if opts.Format == "json" {
		if err := outputRunJSON(out, report); err != nil {
			return err
		}
	} else {
		outputRunText(out, report)
	}

	if opts.ExitCode && report.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d test(s) failed", report.Failed))
	}
	return nil
}

func loadExclusions(fs afero.Fs, cfg config.Config) (*suite.ExclusionList, error) {
	base := suite.DefaultExclusions()
	if cfg.NoDefaultExcludes {
		base = suite.NewExclusionList()
	}
	if cfg.ExcludeFile == "" {
		return base, nil
	}
	return suite.LoadExclusions(fs, cfg.ExcludeFile, base)
}

func recordReport(cmd *cobra.Command, path string, report *engine.Report) error {
	st, err := store.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if err := st.WriteReport(cmd.Context(), report); err != nil {
		return WrapExitError(ExitCommandError, "failed to record run", err)
	}
	return nil
}

// printResult writes the per-test lines as results arrive.
func printResult(out *OutputFormatter, r engine.Result) {
	switch r.Status {
	case verdict.StatusIgnored:
		return
	case verdict.StatusSkipped:
		out.Textf("%s %s", verdict.ReasonNotFixed, r.Path)
		return
	}

	out.VerboseLog("start test %s", r.Path)

	if r.Status == verdict.StatusPass {
		if out.Verbose {
			out.Textf("%s %s", passMark(), r.Path)
		}
		return
	}

	out.Textf("%s %s", failMark(), r.Path)
	if r.Reason != verdict.ReasonUnexpectedOutput {
		out.Textf("  %s", r.Reason)
	}
	if r.Reason == verdict.ReasonUnexpectedOutput || (out.Verbose && r.Output != "") {
		for _, line := range strings.Split(strings.TrimRight(r.Output, "\n"), "\n") {
			out.Textf("  %s", line)
		}
	}
}

// outputRunText writes the summary.
func outputRunText(out *OutputFormatter, report *engine.Report) {
	w := out.Writer

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d skipped, %d total\n",
		report.Passed, report.Failed, report.Skipped, report.Total)

	if report.Failed == 0 {
		fmt.Fprintf(w, "%s All tests passed\n", passMark())
	}
}

// outputRunJSON writes the report envelope.
func outputRunJSON(out *OutputFormatter, report *engine.Report) error {
	response := CLIResponse{
		Status: "ok",
		Data:   report,
	}

	if report.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d test(s) failed", report.Failed),
		}
	}

	return out.Respond(response)
}
