package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Database is the STATEBOX_DB default for commands that take --db.
	Database string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the statebox CLI.
//
// Flag defaults come from STATEBOX_FORMAT, STATEBOX_VERBOSE and STATEBOX_DB.
func NewRootCommand() *cobra.Command {
	cfg, envErr := LoadEnvConfig()
	opts := &RootOptions{Database: cfg.Database}

	cmd := &cobra.Command{
		Use:   "statebox",
		Short: "statebox - immutable state store toolkit",
		Long: `Run store scenarios, fingerprint state files and inspect the
dispatch journal of an immutable, fingerprinted state store.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envErr != nil {
				return WrapExitError(ExitCommandError, "invalid environment", envErr)
			}
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", cfg.Verbose, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", cfg.Format, "output format (json|text)")

	// Add subcommands
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewFingerprintCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
