package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/tvs/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	// Config is the path of an analysis config file. Empty means the
	// TVS_CONFIG environment variable, then ./tvs.yaml, then defaults.
	Config string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for tvsctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "tvsctl",
		Short: "tvsctl - three-valued structure toolbox",
		Long: `Inspect shape-analysis definitions and the abstract heaps they describe.

Analysis definitions are CUE packages declaring predicates, integrity
constraints, focus formulas and initial structures. Structures can also be
read from YAML files and pushed through blur, coerce and focus. Scenario
files run whole analyses and check what they reach.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "analysis config file (YAML)")

	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewSCCsCommand(opts))
	cmd.AddCommand(NewBlurCommand(opts))
	cmd.AddCommand(NewCoerceCommand(opts))
	cmd.AddCommand(NewFocusCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// loadConfig resolves the config for a command.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	return config.Load(o.Config)
}

// logger returns a text logger on w that is quiet unless --verbose is set.
func (o *RootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
