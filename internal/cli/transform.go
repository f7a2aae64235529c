package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tvs/internal/coerce"
	"github.com/roach88/tvs/internal/focus"
	"github.com/roach88/tvs/internal/tvs"
)

// StructureOutput is the JSON form of one structure.
type StructureOutput struct {
	Digest    string          `json:"digest"`
	Structure json.RawMessage `json:"structure"`
}

// CoerceOutput is the JSON result of the coerce command.
type CoerceOutput struct {
	Result string           `json:"result"`
	Output *StructureOutput `json:"output,omitempty"`
}

// targetOptions selects the structure a transform command works on.
type targetOptions struct {
	file string
	name string
}

func (t *targetOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&t.file, "structure", "s", "", "structure YAML file")
	cmd.Flags().StringVarP(&t.name, "name", "n", "", "structure declared in the analysis definition")
	cmd.MarkFlagsMutuallyExclusive("structure", "name")
	cmd.MarkFlagsOneRequired("structure", "name")
}

// target bundles what a transform command needs.
type target struct {
	loaded *LoadResult
	s      *tvs.Structure
}

func (t *targetOptions) load(f *OutputFormatter, path string) (*target, error) {
	loaded, err := LoadAnalysis(path)
	if err != nil {
		return nil, failLoad(f, err)
	}
	a := loaded.Analysis
	if t.file != "" {
		s, err := ReadStructureFile(t.file, a.Vocabulary)
		if err != nil {
			return nil, f.Fail(ExitCommandError, ErrCodeStructure, err.Error())
		}
		return &target{loaded: loaded, s: s}, nil
	}
	ns, ok := a.Structure(t.name)
	if !ok {
		return nil, f.Fail(ExitCommandError, ErrCodeUnknown, fmt.Sprintf("unknown structure %q", t.name))
	}
	return &target{loaded: loaded, s: ns.Structure.Copy()}, nil
}

// NewBlurCommand creates the blur command.
func NewBlurCommand(rootOpts *RootOptions) *cobra.Command {
	var t targetOptions
	cmd := &cobra.Command{
		Use:           "blur <analysis>",
		Short:         "Merge nodes with equal canonical names",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			tg, err := t.load(f, args[0])
			if err != nil {
				return err
			}
			before := tg.s.NodeCount()
			tg.s.Blur()
			f.VerboseLog("blur: %d nodes -> %d nodes", before, tg.s.NodeCount())
			return outputStructures(f, []*tvs.Structure{tg.s})
		},
	}
	t.register(cmd)
	return cmd
}

// NewCoerceCommand creates the coerce command.
func NewCoerceCommand(rootOpts *RootOptions) *cobra.Command {
	var t targetOptions
	cmd := &cobra.Command{
		Use:   "coerce <analysis>",
		Short: "Sharpen a structure against the integrity constraints",
		Long: `Coerce a structure against the constraints of an analysis definition.

Exits with status 1 when the structure represents no concrete heap.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeConfig, err.Error())
			}
			tg, err := t.load(f, args[0])
			if err != nil {
				return err
			}
			c, err := newCoercer(rootOpts, tg, cfg.Contrapositives, f)
			if err != nil {
				return f.Fail(ExitFailure, ErrCodeConstraint, err.Error())
			}

			res := c.Coerce(tg.s)
			if res == coerce.Invalid {
				if f.Format == "json" {
					_ = json.NewEncoder(f.Writer).Encode(CLIResponse{
						Status: "error",
						Data:   CoerceOutput{Result: res.String()},
						Error:  &CLIError{Code: ErrCodeInfeasible, Message: "structure is infeasible"},
					})
					return NewExitError(ExitFailure, ErrCodeInfeasible+": structure is infeasible")
				}
				return f.Fail(ExitFailure, ErrCodeInfeasible, "structure is infeasible")
			}
			if f.Format == "json" {
				out, err := structureOutput(tg.s)
				if err != nil {
					return err
				}
				return f.Success(CoerceOutput{Result: res.String(), Output: out}, "")
			}
			return f.Success(nil, "result: "+res.String()+"\n"+tg.s.String())
		},
	}
	t.register(cmd)
	return cmd
}

// NewFocusCommand creates the focus command.
func NewFocusCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		t       targetOptions
		formula string
		prune   bool
	)
	cmd := &cobra.Command{
		Use:   "focus <analysis>",
		Short: "Split a structure until a formula is definite",
		Long: `Focus a structure on a formula declared in the analysis definition.

The focus policy, the maybe-active switch and the output bound come from the
config file. With --prune, outputs that coerce finds infeasible are dropped.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeConfig, err.Error())
			}
			tg, err := t.load(f, args[0])
			if err != nil {
				return err
			}
			phi, ok := tg.loaded.Analysis.Formula(formula)
			if !ok {
				return f.Fail(ExitCommandError, ErrCodeUnknown, fmt.Sprintf("unknown formula %q", formula))
			}

			logger := rootOpts.logger(f.GetErrWriter())
			opts := focus.Options{
				Policy:      cfg.Policy(),
				MaybeActive: cfg.FocusMaybeActive,
				MaxOutputs:  cfg.MaxFocusOutputs,
				Diagnostics: func(_ *tvs.Structure, msg string) {
					logger.Warn("focus diagnostic", "message", msg)
				},
			}
			if prune {
				c, err := newCoercer(rootOpts, tg, cfg.Contrapositives, f)
				if err != nil {
					return f.Fail(ExitFailure, ErrCodeConstraint, err.Error())
				}
				opts.Pruner = c
			}

			outs, err := focus.New(opts).Focus(tg.s, phi)
			switch {
			case focus.IsNonTermination(err):
				return f.Fail(ExitFailure, ErrCodeNonTermination, err.Error())
			case err != nil:
				return f.Fail(ExitFailure, ErrCodeFocus, err.Error())
			}
			f.VerboseLog("focus on %s: %d output(s)", phi, len(outs))
			return outputStructures(f, outs)
		},
	}
	t.register(cmd)
	cmd.Flags().StringVarP(&formula, "formula", "f", "", "formula declared in the analysis definition")
	cmd.Flags().BoolVar(&prune, "prune", false, "drop outputs coerce finds infeasible")
	_ = cmd.MarkFlagRequired("formula")
	return cmd
}

func newCoercer(opts *RootOptions, tg *target, contrapositives bool, f *OutputFormatter) (*coerce.Coercer, error) {
	logger := opts.logger(f.GetErrWriter())
	a := tg.loaded.Analysis
	return coerce.New(a.Vocabulary, a.Constraints,
		coerce.WithContrapositives(contrapositives),
		coerce.WithDiagnostics(func(_ *tvs.Structure, msg string) {
			logger.Warn("coerce diagnostic", "message", msg)
		}),
	)
}

func structureOutput(s *tvs.Structure) (*StructureOutput, error) {
	data, err := s.MarshalCanonical()
	if err != nil {
		return nil, fmt.Errorf("encode structure: %w", err)
	}
	digest, err := s.Digest()
	if err != nil {
		return nil, fmt.Errorf("digest structure: %w", err)
	}
	return &StructureOutput{Digest: digest, Structure: data}, nil
}

// outputStructures prints structures separated by blank lines, or as a JSON
// list.
func outputStructures(f *OutputFormatter, ss []*tvs.Structure) error {
	if f.Format == "json" {
		outs := make([]*StructureOutput, 0, len(ss))
		for _, s := range ss {
			out, err := structureOutput(s)
			if err != nil {
				return err
			}
			outs = append(outs, out)
		}
		return f.Success(outs, "")
	}
	parts := make([]string, len(ss))
	for i, s := range ss {
		parts[i] = s.String()
	}
	return f.Success(nil, strings.Join(parts, "\n\n"))
}
