package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/statebox/internal/ir"
	"github.com/roach88/statebox/internal/statefile"
)

// FingerprintResult is the output of the fingerprint command.
type FingerprintResult struct {
	File  string          `json:"file"`
	ID    string          `json:"id"`
	State json.RawMessage `json:"state"`
}

// NewFingerprintCommand creates the fingerprint command.
func NewFingerprintCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fingerprint <state-file>",
		Short: "Print the id and canonical JSON of a state file",
		Long: `Load a state file and print the id a store seeded with it would report,
followed by its canonical JSON.

Supported formats, by extension: .json, .yaml, .yml, .cue. A CUE file may
define the state at the top level or under a "state" field.

Examples:
  statebox fingerprint ./state.json
  statebox fingerprint ./app.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFingerprint(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runFingerprint(opts *RootOptions, path string, cmd *cobra.Command) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}

	obj, err := statefile.Load(path)
	if err != nil {
		var loadErr *statefile.LoadError
		code := CodeLoadFailed
		if errors.As(err, &loadErr) {
			code = loadErr.Code
		}
		if out.IsJSON() {
			if ferr := out.Error(code, err.Error(), map[string]string{"file": path}); ferr != nil {
				return ferr
			}
		}
		return WrapExitError(ExitCommandError, "failed to load state file", err)
	}

	id, err := ir.Fingerprint(obj)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to fingerprint state", err)
	}
	canonical, err := ir.MarshalCanonical(obj)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to marshal state", err)
	}

	if out.IsJSON() {
		return out.Success(FingerprintResult{File: path, ID: id, State: canonical})
	}

	fmt.Fprintln(out.Writer, id)
	fmt.Fprintln(out.Writer, string(canonical))
	return nil
}
