package cli

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/statebox/internal/harness"
	"github.com/roach88/statebox/internal/telemetry"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	Name    string               `json:"name"`
	Pass    bool                 `json:"pass"`
	FinalID string               `json:"final_id"`
	Session string               `json:"session"`
	Trace   []harness.TraceEvent `json:"trace"`
	Errors  []string             `json:"errors,omitempty"`
	Metrics telemetry.Summary    `json:"metrics"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Execute one scenario",
		Long: `Execute a single store scenario and print what every subscriber saw.

By default the dispatch journal lives in memory and is discarded. With --db
(or STATEBOX_DB) every dispatch is recorded to that SQLite file, where the
trace command can inspect it later.

Exit codes:
  0 - Scenario passed
  1 - Scenario failed
  2 - Command error (missing file, invalid scenario, etc.)

Examples:
  statebox run ./scenarios/counter.yaml
  statebox run ./scenarios/counter.yaml --db ./journal.db
  statebox run ./scenarios/counter.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", rootOpts.Database, "record the dispatch journal to this SQLite file")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	collector, err := telemetry.NewCollector()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up telemetry", err)
	}
	defer collector.Shutdown(ctx)

	runOpts := []harness.RunOption{
		harness.WithLogger(logger),
		harness.WithObserver(collector.Observer()),
	}
	if opts.Database != "" {
		logger.Info("recording journal", "path", opts.Database)
		runOpts = append(runOpts, harness.WithJournalPath(opts.Database))
	}

	result, err := harness.Run(scenario, runOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	metrics, err := collector.Summary(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to collect metrics", err)
	}

	report := RunResult{
		Name:    scenario.Name,
		Pass:    result.Pass,
		FinalID: result.FinalID,
		Session: result.Session,
		Trace:   result.Trace,
		Errors:  result.Errors,
		Metrics: metrics,
	}

	if out.IsJSON() {
		var failure *CLIError
		if !result.Pass {
			failure = &CLIError{
				Code:    CodeScenarioFailed,
				Message: fmt.Sprintf("scenario %s failed", scenario.Name),
			}
		}
		if err := out.Report(report, failure); err != nil {
			return err
		}
	} else {
		writeRunText(out, report)
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

func writeRunText(out *OutputFormatter, report RunResult) {
	w := out.Writer

	for _, event := range report.Trace {
		switch event.Type {
		case harness.EventDispatch:
			fmt.Fprintf(w, "  [%d] step %d %-12s %-10s %s\n", event.Seq, event.Step, event.Subscriber, event.Kind, event.ID)
		case harness.EventRejected:
			fmt.Fprintf(w, "  [%d] step %d rejected: %s\n", event.Seq, event.Step, event.Error)
		}
	}

	if report.Pass {
		fmt.Fprintf(w, "✓ %s (id %s)\n", report.Name, report.FinalID)
	} else {
		fmt.Fprintf(w, "✗ %s (id %s)\n", report.Name, report.FinalID)
		for _, e := range report.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	out.VerboseLog("session: %s", report.Session)
	for _, kind := range slices.Sorted(maps.Keys(report.Metrics.Dispatches)) {
		out.VerboseLog("dispatched %s: %d", kind, report.Metrics.Dispatches[kind])
	}
	for _, op := range slices.Sorted(maps.Keys(report.Metrics.Rejected)) {
		out.VerboseLog("rejected %s: %d", op, report.Metrics.Rejected[op])
	}
}
