package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tvs/internal/coerce"
	"github.com/roach88/tvs/internal/compiler"
)

// CheckResult holds the outcome of checking an analysis definition.
type CheckResult struct {
	Valid       bool                       `json:"valid"`
	Predicates  int                        `json:"predicates"`
	Constraints int                        `json:"constraints"`
	Rules       int                        `json:"rules"`
	Errors      []compiler.ValidationError `json:"errors,omitempty"`
	Cycles      []compiler.CycleWarning    `json:"cycles,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <analysis>",
		Short: "Check an analysis definition",
		Long: `Compile a CUE analysis definition and report validation errors.

Also compiles the constraint rules, including property-derived constraints
and contrapositives, and reports constraint cycles. Self-feeding rules are
listed only with --verbose.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], cmd)
		},
	}
}

func runCheck(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := opts.loadConfig()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, err.Error())
	}
	loaded, err := LoadAnalysis(path)
	if err != nil {
		return failLoad(f, err)
	}
	f.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, path)

	a := loaded.Analysis
	result := CheckResult{
		Predicates:  len(a.Vocabulary.Predicates()),
		Constraints: len(a.Constraints),
		Errors:      compiler.Validate(a),
	}

	c, err := coerce.New(a.Vocabulary, a.Constraints, coerce.WithContrapositives(cfg.Contrapositives))
	if err != nil {
		result.Errors = append(result.Errors, compiler.ValidationError{
			Field: "constraints", Message: err.Error(), Code: compiler.ErrConstraintSpec,
		})
	} else {
		result.Rules = c.Len()
		for _, w := range compiler.AnalyzeCycles(c) {
			if w.Level == "warning" || opts.Verbose {
				result.Cycles = append(result.Cycles, w)
			}
		}
	}
	result.Valid = len(result.Errors) == 0

	if !result.Valid {
		return outputCheckFailure(f, result)
	}
	return outputCheckSuccess(f, result)
}

func outputCheckSuccess(f *OutputFormatter, r CheckResult) error {
	if f.Format == "json" {
		return f.Success(r, "")
	}
	fmt.Fprintf(f.Writer, "✓ Analysis valid (%d predicates, %d constraints, %d rules)\n",
		r.Predicates, r.Constraints, r.Rules)
	for _, w := range r.Cycles {
		fmt.Fprintf(f.Writer, "  %s: %s\n", w.Level, w.Message)
	}
	return nil
}

func outputCheckFailure(f *OutputFormatter, r CheckResult) error {
	exit := NewExitError(ExitFailure, fmt.Sprintf("check failed with %d error(s)", len(r.Errors)))
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		if err := enc.Encode(CLIResponse{
			Status: "error",
			Data:   r,
			Error:  &CLIError{Code: r.Errors[0].Code, Message: r.Errors[0].Message},
		}); err != nil {
			return err
		}
		return exit
	}

	fmt.Fprintln(f.Writer, "✗ Check failed")
	fmt.Fprintln(f.Writer)
	for _, e := range r.Errors {
		if e.Line > 0 {
			fmt.Fprintf(f.Writer, "line %d\n", e.Line)
		}
		fmt.Fprintf(f.Writer, "  %s: %s: %s\n\n", e.Code, e.Field, e.Message)
	}
	return exit
}

// failLoad reports a LoadAnalysis error.
func failLoad(f *OutputFormatter, err error) error {
	var le *LoadError
	if errors.As(err, &le) {
		if le.Pos.IsValid() {
			return f.Fail(ExitCommandError, le.Code, fmt.Sprintf("%s:%d: %s", le.Pos.Filename(), le.Pos.Line(), le.Message))
		}
		return f.Fail(ExitCommandError, le.Code, le.Message)
	}
	return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
}
