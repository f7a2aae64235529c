package coerce

import (
	"fmt"

	"github.com/roach88/tvs/internal/ir"
)

// Constraint is the integrity constraint Body ==> Head. Head is an atom, a
// negated atom, an equality, an inequality or the constant 0.
type Constraint struct {
	Name string
	Body ir.Formula
	Head ir.Formula
}

func (c Constraint) String() string {
	return c.Body.String() + " ==> " + c.Head.String()
}

// label identifies the constraint in messages.
func (c Constraint) label() string {
	if c.Name != "" {
		return c.Name
	}
	return c.String()
}

// SpecError reports a malformed constraint. It is raised once, when the
// analysis is set up, never while coercing.
type SpecError struct {
	Constraint string
	Message    string
}

func (e *SpecError) Error() string {
	return fmt.Sprintf("constraint %s: %s", e.Constraint, e.Message)
}

// Validate checks that c has a supported head and that every free variable
// of the head is bound by the body.
func (c Constraint) Validate() error {
	if c.Body == nil || c.Head == nil {
		return &SpecError{Constraint: c.Name, Message: "body and head are required"}
	}
	if _, err := compileHead(c.Head); err != nil {
		return &SpecError{Constraint: c.label(), Message: err.Error()}
	}
	if !ir.ContainsVars(c.Body.FreeVars(), c.Head.FreeVars()) {
		return &SpecError{
			Constraint: c.label(),
			Message:    fmt.Sprintf("head variables %v are not bound by body variables %v", c.Head.FreeVars(), c.Body.FreeVars()),
		}
	}
	return nil
}

// PropertyConstraints derives the standard integrity constraints implied by
// the algebraic properties of the predicates of v.
func PropertyConstraints(v *ir.Vocabulary) []Constraint {
	var out []Constraint
	for _, p := range v.Predicates() {
		name := func(prop string) string { return p.Name() + "/" + prop }
		if p.Has(ir.Function) {
			out = append(out, Constraint{
				Name: name("function"),
				Body: ir.Conj(ir.P(p, "v1", "v2"), ir.P(p, "v1", "v3")),
				Head: ir.Eq("v2", "v3"),
			})
		}
		if p.Has(ir.InvFunction) {
			out = append(out, Constraint{
				Name: name("invfunction"),
				Body: ir.Conj(ir.P(p, "v1", "v3"), ir.P(p, "v2", "v3")),
				Head: ir.Eq("v1", "v2"),
			})
		}
		if p.Has(ir.Unique) {
			out = append(out, Constraint{
				Name: name("unique"),
				Body: ir.Conj(ir.P(p, "v1"), ir.P(p, "v2")),
				Head: ir.Eq("v1", "v2"),
			})
		}
		if p.Has(ir.Reflexive) {
			out = append(out, Constraint{
				Name: name("reflexive"),
				Body: ir.Eq("v", "v"),
				Head: ir.P(p, "v", "v"),
			})
		}
		if p.Has(ir.Symmetric) {
			out = append(out, Constraint{
				Name: name("symmetric"),
				Body: ir.P(p, "v1", "v2"),
				Head: ir.P(p, "v2", "v1"),
			})
		}
		if p.Has(ir.Acyclic) {
			out = append(out, Constraint{
				Name: name("acyclic"),
				Body: ir.Closure("v1", "v2", "s", "t", ir.P(p, "s", "t")),
				Head: ir.Neg(ir.P(p, "v2", "v1")),
			})
		}
	}
	return out
}

// contrapositives returns, for a body that is a conjunction of literals,
// the constraints !head & rest ==> !lit for every literal lit that can serve
// as a head and whose variables the new body binds.
func contrapositives(c Constraint) []Constraint {
	conjuncts := ir.Conjuncts(c.Body)
	lits := make([]ir.Literal, len(conjuncts))
	for i, f := range conjuncts {
		l, ok := ir.AsLiteral(f)
		if !ok {
			return nil
		}
		lits[i] = l
	}

	var negHead ir.Formula
	if k, ok := c.Head.(ir.Const); !ok || k.Value != ir.False {
		negHead = ir.Neg(c.Head)
	}

	var out []Constraint
	for i, l := range lits {
		if _, isTC := l.Atom.(ir.TC); isTC {
			continue
		}
		var rest []ir.Formula
		if negHead != nil {
			rest = append(rest, negHead)
		}
		for j, other := range lits {
			if j != i {
				rest = append(rest, other.Formula())
			}
		}
		if len(rest) == 0 {
			continue
		}
		body := ir.Conj(rest...)
		head := l.Negate().Formula()
		if !ir.ContainsVars(body.FreeVars(), head.FreeVars()) {
			continue
		}
		name := ""
		if c.Name != "" {
			name = fmt.Sprintf("%s/contra%d", c.Name, i)
		}
		out = append(out, Constraint{Name: name, Body: body, Head: head})
	}
	return out
}
