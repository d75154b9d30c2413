package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/roach88/t262/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	LogLevel   string
	ConfigFile string

	// Config is resolved before any subcommand runs.
	Config config.Config

	// Logger writes diagnostics to the command's stderr.
	Logger *logrus.Logger

	// LookupEnv replaces os.LookupEnv when set. Used by tests.
	LookupEnv func(string) (string, bool)
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the t262 CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "t262",
		Short: "t262 - test262 driver for external JavaScript engines",
		Long: `Run the test262 conformance suite against a JavaScript interpreter binary.

Each test is wrapped with a harness, written to a scratch file and handed
to the interpreter. Output decides the verdict: expected-success tests must
print nothing, negative tests must report an uncaught error.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.resolve(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", config.DefaultLogLevel, "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "path to YAML config file")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewExcludesCommand(opts))

	return cmd
}

// resolve loads the configuration and builds the logger.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	cfg, err := config.Load(o.ConfigFile, o.LookupEnv)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	switch {
	case cmd.Flags().Changed("log-level"):
		cfg.LogLevel = o.LogLevel
	case o.Verbose:
		cfg.LogLevel = logrus.DebugLevel.String()
	}

	level, err := cfg.Level()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	o.Config = cfg
	o.Logger = newLogger(cmd.ErrOrStderr(), level)
	return nil
}

// ready resolves the options when the command runs without the root
// command's pre-run hook, as it does in tests.
func (o *RootOptions) ready(cmd *cobra.Command) error {
	if o.Logger != nil {
		return nil
	}
	return o.resolve(cmd)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
