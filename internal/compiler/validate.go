package compiler

import (
	"errors"
	"fmt"

	"github.com/roach88/tvs/internal/coerce"
	"github.com/roach88/tvs/internal/focus"
	"github.com/roach88/tvs/internal/ir"
)

// Validation error codes (E200-E299)
const (
	// General validation errors (E200)
	ErrUnsupportedType = "E200" // unsupported type for validation

	// Vocabulary errors (E201-E209)
	ErrNoPredicates   = "E201" // only built-in predicates declared
	ErrNoAbstraction  = "E202" // no user abstraction predicate
	ErrUnusedProperty = "E203" // property with no effect on the domain

	// Constraint errors (E210-E219)
	ErrDuplicateConstraint = "E210" // duplicate constraint name
	ErrConstraintSpec      = "E211" // unsupported head or unbound head variables

	// Formula and structure errors (E220-E229)
	ErrFocusFormula      = "E220" // formula cannot be focused
	ErrDuplicateName     = "E221" // duplicate formula or structure name
	ErrInactiveStructure = "E222" // structure has no active node
)

// ValidationError represents a validation error of an analysis definition.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled analysis.
// Returns all errors found (does not fail-fast).
func Validate(v any) []ValidationError {
	switch a := v.(type) {
	case *Analysis:
		return validateAnalysis(a)
	case Analysis:
		return validateAnalysis(&a)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type: %T", v),
			Code:    ErrUnsupportedType,
		}}
	}
}

func validateAnalysis(a *Analysis) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateVocabulary(a.Vocabulary)...)
	errs = append(errs, validateConstraints(a)...)

	names := make(map[string]bool)
	for _, f := range a.Formulas {
		field := fmt.Sprintf("formulas.%s", f.Name)
		if names[f.Name] {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("duplicate formula name %q", f.Name), Code: ErrDuplicateName})
		}
		names[f.Name] = true
		// E220: focus rejects universal quantifiers, 1/2 and closures up front
		if _, err := focus.Atoms(f.Formula); err != nil {
			var se *focus.SpecError
			msg := err.Error()
			if errors.As(err, &se) {
				msg = se.Message
			}
			errs = append(errs, ValidationError{Field: field, Message: msg, Code: ErrFocusFormula})
		}
	}

	seen := make(map[string]bool)
	for _, s := range a.Structures {
		field := fmt.Sprintf("structures.%s", s.Name)
		if seen[s.Name] {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("duplicate structure name %q", s.Name), Code: ErrDuplicateName})
		}
		seen[s.Name] = true
		// E222: a structure without a possibly-active node is empty
		if s.Structure.NodeCount() > 0 && !anyActive(s) {
			errs = append(errs, ValidationError{Field: field, Message: "every node has active=0", Code: ErrInactiveStructure})
		}
	}
	return errs
}

func anyActive(s NamedStructure) bool {
	for _, n := range s.Structure.Nodes() {
		if s.Structure.Activeness(n) != ir.False {
			return true
		}
	}
	return false
}

func validateVocabulary(v *ir.Vocabulary) []ValidationError {
	var errs []ValidationError
	user := 0
	abstraction := false
	for _, p := range v.Predicates() {
		if p == v.Summary() || p == v.Active() {
			continue
		}
		user++
		field := "predicates." + p.Name()
		if p.Has(ir.Abstraction) {
			abstraction = true
			// E203: abstraction only affects unary predicates
			if p.Arity() != 1 {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("abstraction has no effect on a predicate of arity %d", p.Arity()),
					Code:    ErrUnusedProperty,
				})
			}
		}
	}
	// E201: nothing to analyse
	if user == 0 {
		errs = append(errs, ValidationError{Field: "predicates", Message: "no predicates besides the built-ins sm and active", Code: ErrNoPredicates})
	}
	// E202: without abstraction predicates every node collapses into one
	if user > 0 && !abstraction {
		errs = append(errs, ValidationError{Field: "predicates", Message: "no user predicate is marked abstraction", Code: ErrNoAbstraction})
	}
	return errs
}

func validateConstraints(a *Analysis) []ValidationError {
	var errs []ValidationError
	names := make(map[string]bool)
	for i, c := range a.Constraints {
		field := fmt.Sprintf("constraints[%d]", i)
		line := 0
		if i < len(a.positions) && a.positions[i].IsValid() {
			line = a.positions[i].Line()
		}
		// E210: duplicate name
		if c.Name != "" {
			if names[c.Name] {
				errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("duplicate constraint name %q", c.Name), Code: ErrDuplicateConstraint, Line: line})
			}
			names[c.Name] = true
		}
		// E211: head form and variable binding
		if err := c.Validate(); err != nil {
			msg := err.Error()
			var se *coerce.SpecError
			if errors.As(err, &se) {
				msg = se.Message
			}
			errs = append(errs, ValidationError{Field: field, Message: msg, Code: ErrConstraintSpec, Line: line})
		}
	}
	return errs
}
