package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/tvs/internal/compiler"
	"github.com/roach88/tvs/internal/ir"
	"github.com/roach88/tvs/internal/tvs"
)

// AssertionError is returned when an assertion fails.
// It includes the offending structure to help debug the failure.
type AssertionError struct {
	Type     string
	Location string
	Expected string
	Actual   string
	// Structure is the rendering of the structure that broke the
	// assertion, if one did.
	Structure string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s at %s\n", e.Type, e.Location)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if e.Structure != "" {
		fmt.Fprintf(&buf, "\nStructure:\n%s", e.Structure)
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure
// messages.
func EvaluateAssertions(def *compiler.Analysis, result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(def, result.Locations[a.Location], a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(def *compiler.Analysis, structures []*tvs.Structure, a Assertion) error {
	switch a.Type {
	case AssertCount:
		return assertCount(structures, a)
	case AssertMinCount:
		return assertMinCount(structures, a)
	case AssertMaxNodes:
		return assertMaxNodes(structures, a)
	case AssertSummary:
		return assertSummary(structures, a)
	case AssertHolds:
		return assertHolds(def, structures, a)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

func assertCount(structures []*tvs.Structure, a Assertion) error {
	if len(structures) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Location: a.Location,
		Expected: fmt.Sprintf("%d structures", a.Count),
		Actual:   fmt.Sprintf("%d structures", len(structures)),
	}
}

func assertMinCount(structures []*tvs.Structure, a Assertion) error {
	if len(structures) >= a.Count {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Location: a.Location,
		Expected: fmt.Sprintf("at least %d structures", a.Count),
		Actual:   fmt.Sprintf("%d structures", len(structures)),
	}
}

func assertMaxNodes(structures []*tvs.Structure, a Assertion) error {
	for _, s := range structures {
		if s.NodeCount() > a.Count {
			return &AssertionError{
				Type:      a.Type,
				Location:  a.Location,
				Expected:  fmt.Sprintf("at most %d nodes", a.Count),
				Actual:    fmt.Sprintf("%d nodes", s.NodeCount()),
				Structure: s.String(),
			}
		}
	}
	return nil
}

func assertSummary(structures []*tvs.Structure, a Assertion) error {
	for _, s := range structures {
		for _, n := range s.Nodes() {
			if s.IsSummary(n) {
				return nil
			}
		}
	}
	return &AssertionError{
		Type:     a.Type,
		Location: a.Location,
		Expected: "a structure with a summary node",
		Actual:   fmt.Sprintf("none among %d structures", len(structures)),
	}
}

// assertHolds evaluates a closed formula in every structure. An empty
// location holds vacuously.
func assertHolds(def *compiler.Analysis, structures []*tvs.Structure, a Assertion) error {
	f, ok := def.Formula(a.Formula)
	if !ok {
		return fmt.Errorf("unknown formula %q", a.Formula)
	}
	if len(f.FreeVars()) > 0 {
		return fmt.Errorf("formula %s is not closed: free variables %v", a.Formula, f.FreeVars())
	}
	want, err := ir.ParseKleene(a.Value)
	if err != nil {
		return err
	}
	for _, s := range structures {
		if got := s.EvalFormula(f, nil); got != want {
			return &AssertionError{
				Type:      a.Type,
				Location:  a.Location,
				Expected:  fmt.Sprintf("%s = %s", a.Formula, want),
				Actual:    got.String(),
				Structure: s.String(),
			}
		}
	}
	return nil
}
