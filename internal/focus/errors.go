package focus

import (
	"errors"
	"fmt"

	"github.com/roach88/tvs/internal/ir"
)

// SpecError reports a formula that cannot be focused at all. It indicates a
// broken analysis definition rather than a property of the structure.
type SpecError struct {
	Formula string
	Message string
}

func (e *SpecError) Error() string {
	return fmt.Sprintf("focus on %s: %s", e.Formula, e.Message)
}

// NonTerminationError is returned under the strict policy when an atom
// instance has more than one summary position. The positions may hold the
// same node, as in a self-loop on a summary node.
type NonTerminationError struct {
	Formula string
	Atom    string
	Tuple   ir.Tuple
	// Positions is the number of tuple positions holding a summary node.
	Positions int
	// Summaries lists the distinct summary nodes of the instance.
	Summaries []ir.Node
}

func (e *NonTerminationError) Error() string {
	return fmt.Sprintf("focus on %s may not terminate: %s at %s has %d summary positions (nodes %v)",
		e.Formula, e.Atom, e.Tuple, e.Positions, e.Summaries)
}

// QuotaError is returned when focusing would produce more structures than
// Options.MaxOutputs allows.
type QuotaError struct {
	Formula string
	Limit   int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("focus on %s exceeded %d output structures", e.Formula, e.Limit)
}

// IsNonTermination reports whether err is a NonTerminationError.
// Uses errors.As to handle wrapped errors.
func IsNonTermination(err error) bool {
	var nt *NonTerminationError
	return errors.As(err, &nt)
}
