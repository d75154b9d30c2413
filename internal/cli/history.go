package cli

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/t262/internal/engine"
	"github.com/roach88/t262/internal/store"
	"github.com/roach88/t262/internal/verdict"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	RunID    string
	Status   string
	Limit    int
}

// RunDetail is one run with its results.
type RunDetail struct {
	Run     store.RunSummary `json:"run"`
	Results []engine.Result  `json:"results"`
}

var validStatuses = []verdict.Status{
	verdict.StatusPass,
	verdict.StatusFail,
	verdict.StatusSkipped,
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs",
		Long: `Show runs recorded with "t262 run --db".

Without --run, lists runs newest first. With --run, lists the results of
that run, optionally restricted to one status.

Examples:
  t262 history --db runs.db
  t262 history --db runs.db --limit 5
  t262 history --db runs.db --run 0190c9d2-... --status fail
  t262 history --db runs.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show the results of this run")
	cmd.Flags().StringVar(&opts.Status, "status", "", "filter results by status (pass|fail|skipped)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs to list (0 for all)")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	if err := opts.ready(cmd); err != nil {
		return err
	}

	status := verdict.Status(opts.Status)
	if status != "" && !isValidStatus(status) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid status %q: must be one of %v", opts.Status, validStatuses))
	}

	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database))
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	ctx := cmd.Context()

	if opts.RunID == "" {
		runs, err := st.ListRuns(ctx, opts.Limit)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		if opts.Format == "json" {
			return out.Success(runs)
		}
		outputRunsText(out, runs)
		return nil
	}

	run, err := st.ReadRun(ctx, opts.RunID)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
		}
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	results, err := st.ReadResults(ctx, opts.RunID, status)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read results", err)
	}

	if opts.Format == "json" {
		return out.Success(RunDetail{Run: run, Results: results})
	}
	outputRunDetailText(out, run, results)
	return nil
}

func isValidStatus(s verdict.Status) bool {
	for _, v := range validStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func outputRunsText(out *OutputFormatter, runs []store.RunSummary) {
	if len(runs) == 0 {
		fmt.Fprintln(out.Writer, "No runs recorded.")
		return
	}

	tw := tabwriter.NewWriter(out.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tPASSED\tFAILED\tSKIPPED\tTOTAL\tROOT")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			r.ID, r.StartedAt.Format(time.RFC3339), r.Passed, r.Failed, r.Skipped, r.Total, r.Root)
	}
	tw.Flush()
}

func outputRunDetailText(out *OutputFormatter, run store.RunSummary, results []engine.Result) {
	w := out.Writer
	fmt.Fprintf(w, "Run %s\n", run.ID)
	fmt.Fprintf(w, "  interpreter: %s\n", run.Interpreter)
	fmt.Fprintf(w, "  root:        %s\n", run.Root)
	fmt.Fprintf(w, "  started:     %s\n", run.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "  duration:    %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(w, "  summary:     %d passed, %d failed, %d skipped, %d total\n",
		run.Passed, run.Failed, run.Skipped, run.Total)
	fmt.Fprintln(w)

	for _, r := range results {
		mark := passMark()
		switch r.Status {
		case verdict.StatusFail:
			mark = failMark()
		case verdict.StatusSkipped:
			mark = "-"
		}
		if r.Reason != "" {
			fmt.Fprintf(w, "%s %s (%s)\n", mark, r.Path, r.Reason)
			continue
		}
		fmt.Fprintf(w, "%s %s\n", mark, r.Path)
	}
}
