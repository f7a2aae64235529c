package coerce

import (
	"fmt"
	"slices"

	"github.com/roach88/tvs/internal/ir"
)

type headKind uint8

const (
	headFalse headKind = iota
	headAtom
	headEqual
	headNotEqual
)

// head is the compiled form of a constraint head.
type head struct {
	kind        headKind
	pred        *ir.Predicate
	args        []ir.Var
	want        ir.Kleene
	left, right ir.Var
}

func compileHead(f ir.Formula) (head, error) {
	switch g := f.(type) {
	case ir.Const:
		if g.Value == ir.False {
			return head{kind: headFalse}, nil
		}
	case ir.Atom:
		return head{kind: headAtom, pred: g.Pred, args: g.Args, want: ir.True}, nil
	case ir.Equal:
		return head{kind: headEqual, left: g.Left, right: g.Right}, nil
	case ir.Not:
		switch h := g.Sub.(type) {
		case ir.Atom:
			return head{kind: headAtom, pred: h.Pred, args: h.Args, want: ir.False}, nil
		case ir.Equal:
			return head{kind: headNotEqual, left: h.Left, right: h.Right}, nil
		}
	}
	return head{}, fmt.Errorf("unsupported head %s: want an atom, a negated atom, an equality or 0", f)
}

// conjunct is one top-level conjunct of a rule body.
type conjunct struct {
	f    ir.Formula
	vars []ir.Var
	rank int

	// Set for atomic conjuncts p(args) and !p(args).
	pred    *ir.Predicate
	args    []ir.Var
	negated bool
}

func (c conjunct) atomic() bool { return c.pred != nil }

// Conjunct ranks: cheap and selective literals first.
const (
	rankNullary = iota
	rankUnary
	rankBinary
	rankWide
	rankNegated
	rankEquality
	rankOther
)

func compileConjunct(f ir.Formula) conjunct {
	c := conjunct{f: f, vars: f.FreeVars(), rank: rankOther}
	l, ok := ir.AsLiteral(f)
	if !ok {
		return c
	}
	switch a := l.Atom.(type) {
	case ir.Atom:
		c.pred, c.args, c.negated = a.Pred, a.Args, l.Negated
		switch {
		case l.Negated:
			c.rank = rankNegated
		case a.Pred.Arity() == 0:
			c.rank = rankNullary
		case a.Pred.Arity() == 1:
			c.rank = rankUnary
		case a.Pred.Arity() == 2:
			c.rank = rankBinary
		default:
			c.rank = rankWide
		}
	case ir.Equal:
		c.rank = rankEquality
	}
	return c
}

// rule is a compiled constraint.
type rule struct {
	index   int
	source  Constraint
	derived bool
	body    []conjunct
	head    head

	// reads holds body occurrence polarities. Equalities read sm, and
	// quantifiers and closures read active.
	reads map[*ir.Predicate]ir.Polarity
	// headReads is the predicate the head inspects, if any.
	headReads *ir.Predicate
	// writes is the predicate the head may sharpen, with the polarity of the
	// value it writes.
	writes   *ir.Predicate
	writePol ir.Polarity
	// opaque holds predicates whose changes cannot be used as pivots.
	opaque ir.DynamicVocabulary
	// uses is every predicate the rule mentions; the rule is active only
	// when all of them are in a structure's vocabulary.
	uses ir.DynamicVocabulary
}

func compileRule(index int, c Constraint, v *ir.Vocabulary) (*rule, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	h, _ := compileHead(c.Head)
	r := &rule{index: index, source: c, head: h}

	for _, f := range ir.Conjuncts(c.Body) {
		r.body = append(r.body, compileConjunct(f))
	}
	slices.SortStableFunc(r.body, func(a, b conjunct) int { return a.rank - b.rank })

	r.reads = ir.Occurrences(c.Body, v)
	if !ir.IsQuantifierFree(c.Body) {
		r.reads[v.Active()] |= ir.Positive | ir.Negative
	}
	for _, cj := range r.body {
		if cj.atomic() {
			continue
		}
		for p := range ir.Occurrences(cj.f, v) {
			r.opaque.Add(p)
		}
	}
	// active decides which assignments are eligible at all.
	r.opaque.Add(v.Active())

	switch h.kind {
	case headAtom:
		r.headReads, r.writes = h.pred, h.pred
		r.writePol = ir.Positive
		if h.want == ir.False {
			r.writePol = ir.Negative
		}
	case headEqual:
		r.headReads, r.writes, r.writePol = v.Summary(), v.Summary(), ir.Negative
	case headNotEqual:
		r.headReads = v.Summary()
	}

	for p := range r.reads {
		r.uses.Add(p)
	}
	if r.headReads != nil {
		r.uses.Add(r.headReads)
	}
	return r, nil
}

// compileAll validates constraints, adds property-derived constraints and,
// when enabled, contrapositives. Duplicates are dropped.
func compileAll(v *ir.Vocabulary, constraints []Constraint, contra bool) ([]*rule, error) {
	for _, c := range constraints {
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}
	all := slices.Clone(constraints)
	all = append(all, PropertyConstraints(v)...)
	if contra {
		for _, c := range all[:len(all):len(all)] {
			all = append(all, contrapositives(c)...)
		}
	}

	seen := make(map[string]bool, len(all))
	var rules []*rule
	for i, c := range all {
		key := c.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		r, err := compileRule(len(rules), c, v)
		if err != nil {
			return nil, err
		}
		r.derived = i >= len(constraints)
		rules = append(rules, r)
	}
	return rules, nil
}
