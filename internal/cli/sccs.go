package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tvs/internal/coerce"
)

// SCCInfo describes one strongly connected component of constraint rules.
type SCCInfo struct {
	Index  int      `json:"index"`
	Rules  []string `json:"rules"`
	Cyclic bool     `json:"cyclic"`
}

// NewSCCsCommand creates the sccs command.
func NewSCCsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sccs <analysis>",
		Short: "Print the constraint components in evaluation order",
		Long: `Compile the constraint rules of an analysis definition and print the
strongly connected components of their dependency graph, in the order coerce
evaluates them.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSCCs(rootOpts, args[0], cmd)
		},
	}
}

func runSCCs(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := opts.loadConfig()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, err.Error())
	}
	loaded, err := LoadAnalysis(path)
	if err != nil {
		return failLoad(f, err)
	}
	a := loaded.Analysis
	c, err := coerce.New(a.Vocabulary, a.Constraints, coerce.WithContrapositives(cfg.Contrapositives))
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeConstraint, err.Error())
	}

	labels, _ := c.Graph()
	var sccs []SCCInfo
	var b strings.Builder
	for i, comp := range c.Components() {
		info := SCCInfo{Index: i, Cyclic: comp.Cyclic}
		for _, r := range comp.Rules {
			info.Rules = append(info.Rules, labels[r])
		}
		sccs = append(sccs, info)

		if i > 0 {
			b.WriteString("\n")
		}
		mark := ""
		if comp.Cyclic {
			mark = " (cyclic)"
		}
		fmt.Fprintf(&b, "scc %d%s: %s", i, mark, strings.Join(info.Rules, ", "))
	}
	f.VerboseLog("%d rules in %d components", c.Len(), len(sccs))
	return f.Success(sccs, b.String())
}
