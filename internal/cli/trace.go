package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/statebox/internal/bus"
	"github.com/roach88/statebox/internal/ir"
	"github.com/roach88/statebox/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string   // optional - one session instead of all
	Kind     bus.Kind // optional - filter the timeline to one kind
	kindFlag string
}

// TraceEntry is a single journalled dispatch in the timeline.
type TraceEntry struct {
	Seq             int64  `json:"seq"`
	Kind            string `json:"kind"`
	Fingerprint     string `json:"fingerprint"`
	PrevFingerprint string `json:"prev_fingerprint"`
	State           any    `json:"state,omitempty"`
}

// SessionTrace holds the timeline and consistency report of one session.
type SessionTrace struct {
	Session            string       `json:"session"`
	Label              string       `json:"label,omitempty"`
	InitialFingerprint string       `json:"initial_fingerprint"`
	Timeline           []TraceEntry `json:"timeline"`
	Stats              TraceStats   `json:"stats"`
	Problems           []string     `json:"problems,omitempty"`
}

// TraceStats holds summary statistics for a session.
type TraceStats struct {
	Entries          int    `json:"entries"`
	Inits            int    `json:"inits"`
	Updates          int    `json:"updates"`
	DumpUpdates      int    `json:"dump_updates"`
	LastSeq          int64  `json:"last_seq"`
	FinalFingerprint string `json:"final_fingerprint"`
	Consistent       bool   `json:"consistent"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Sessions []SessionTrace `json:"sessions"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect the dispatch journal",
		Long: `List journalled dispatches and check each session for consistency.

For every session the output includes:
- Timeline: every dispatch in seq order with its fingerprints
- Stats: counts per kind and the final fingerprint
- Problems: recorded fingerprints that do not match the stored state,
  dumpUpdates that changed the state, and breaks in the prev chain

Exit code 1 means at least one session is inconsistent.

Examples:
  statebox trace --db ./journal.db
  statebox trace --db ./journal.db --session test-session-counter
  statebox trace --db ./journal.db --kind update -v
  statebox trace --db ./journal.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.kindFlag == "" {
				return nil
			}
			if err := opts.Kind.UnmarshalText([]byte(opts.kindFlag)); err != nil {
				return WrapExitError(ExitCommandError, "invalid --kind", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", rootOpts.Database, "path to SQLite journal (or STATEBOX_DB)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session to trace (default: all)")
	cmd.Flags().StringVar(&opts.kindFlag, "kind", "", "show only init, update or dumpUpdate entries")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	if opts.Database == "" {
		return NewExitError(ExitCommandError, "--db is required (or set STATEBOX_DB)")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	j, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	sessions, err := selectSessions(ctx, j, opts.Session)
	if err != nil {
		return err
	}

	result := TraceResult{Sessions: make([]SessionTrace, 0, len(sessions))}
	inconsistent := 0
	for _, s := range sessions {
		st, err := traceSession(ctx, j, s, opts)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to trace session %s", s.ID), err)
		}
		if !st.Stats.Consistent {
			inconsistent++
		}
		result.Sessions = append(result.Sessions, st)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}
	if out.IsJSON() {
		var failure *CLIError
		if inconsistent > 0 {
			failure = &CLIError{
				Code:    CodeInconsistent,
				Message: fmt.Sprintf("%d session(s) inconsistent", inconsistent),
			}
		}
		if err := out.Report(result, failure); err != nil {
			return err
		}
	} else {
		outputTraceText(out.Writer, result, opts.Verbose)
	}

	if inconsistent > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d session(s) inconsistent", inconsistent))
	}
	return nil
}

func selectSessions(ctx context.Context, j *journal.Journal, id string) ([]journal.Session, error) {
	if id == "" {
		sessions, err := j.Sessions(ctx)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
		return sessions, nil
	}

	s, err := j.ReadSession(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("session not found: %s", id))
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read session", err)
	}
	return []journal.Session{s}, nil
}

func traceSession(ctx context.Context, j *journal.Journal, s journal.Session, opts *TraceOptions) (SessionTrace, error) {
	entries, err := j.List(ctx, s.ID)
	if err != nil {
		return SessionTrace{}, err
	}
	report, err := j.Check(ctx, s.ID)
	if err != nil {
		return SessionTrace{}, err
	}

	st := SessionTrace{
		Session:            s.ID,
		Label:              s.Label,
		InitialFingerprint: s.InitialFingerprint,
		Timeline:           []TraceEntry{},
		Problems:           report.Problems,
		Stats: TraceStats{
			Entries:          report.Entries,
			Inits:            report.Inits,
			Updates:          report.Updates,
			DumpUpdates:      report.DumpUpdates,
			LastSeq:          report.LastSeq,
			FinalFingerprint: report.FinalFingerprint,
			Consistent:       report.Consistent(),
		},
	}

	for _, e := range entries {
		if opts.Kind.Valid() && opts.Kind != bus.KindAll && e.Kind != opts.Kind {
			continue
		}
		entry := TraceEntry{
			Seq:             e.Seq,
			Kind:            e.Kind.String(),
			Fingerprint:     e.Fingerprint,
			PrevFingerprint: e.PrevFingerprint,
		}
		if opts.Verbose {
			entry.State = e.State
		}
		st.Timeline = append(st.Timeline, entry)
	}
	return st, nil
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) {
	if len(result.Sessions) == 0 {
		fmt.Fprintln(w, "No sessions found.")
		return
	}

	for i, s := range result.Sessions {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "Session: %s", s.Session)
		if s.Label != "" {
			fmt.Fprintf(w, " (%s)", s.Label)
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Initial: %s\n", s.InitialFingerprint)
		fmt.Fprintln(w)

		fmt.Fprintln(w, "=== Timeline ===")
		if len(s.Timeline) == 0 {
			fmt.Fprintln(w, "  (no dispatches)")
		}
		for _, e := range s.Timeline {
			fmt.Fprintf(w, "  [%d] %-10s %s -> %s\n", e.Seq, e.Kind, e.PrevFingerprint, e.Fingerprint)
			if verbose && e.State != nil {
				fmt.Fprintf(w, "       State: %s\n", formatState(e.State))
			}
		}
		fmt.Fprintln(w)

		fmt.Fprintln(w, "=== Stats ===")
		fmt.Fprintf(w, "  Entries:      %d\n", s.Stats.Entries)
		fmt.Fprintf(w, "  Inits:        %d\n", s.Stats.Inits)
		fmt.Fprintf(w, "  Updates:      %d\n", s.Stats.Updates)
		fmt.Fprintf(w, "  DumpUpdates:  %d\n", s.Stats.DumpUpdates)
		fmt.Fprintf(w, "  Final:        %s\n", s.Stats.FinalFingerprint)

		if s.Stats.Consistent {
			fmt.Fprintln(w, "  Status:       consistent")
			continue
		}
		fmt.Fprintln(w, "  Status:       INCONSISTENT")
		for _, p := range s.Problems {
			fmt.Fprintf(w, "    - %s\n", p)
		}
	}
}

// formatState renders a journalled snapshot as canonical JSON.
func formatState(state any) string {
	obj, ok := state.(*ir.Object)
	if !ok {
		return fmt.Sprintf("%v", state)
	}
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(data)
}
