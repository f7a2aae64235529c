package ir

import (
	"errors"
	"fmt"
	"slices"
)

// Substitute renames the free variables of f according to m. Bound
// variables shadow m inside their scope; a bound variable that would capture
// a substituted name is renamed first.
func Substitute(f Formula, m map[Var]Var) Formula {
	if len(m) == 0 {
		return f
	}
	sub := func(v Var) Var {
		if w, ok := m[v]; ok {
			return w
		}
		return v
	}
	switch g := f.(type) {
	case Const:
		return g
	case Atom:
		args := make([]Var, len(g.Args))
		for i, v := range g.Args {
			args[i] = sub(v)
		}
		return Atom{Pred: g.Pred, Args: args}
	case Equal:
		return Equal{Left: sub(g.Left), Right: sub(g.Right)}
	case Not:
		return Not{Sub: Substitute(g.Sub, m)}
	case And:
		return And{Subs: substituteAll(g.Subs, m)}
	case Or:
		return Or{Subs: substituteAll(g.Subs, m)}
	case Exists:
		v, body := rebind(g.Var, g.Sub, m)
		return Exists{Var: v, Sub: Substitute(body, shadow(m, v))}
	case Forall:
		v, body := rebind(g.Var, g.Sub, m)
		return Forall{Var: v, Sub: Substitute(body, shadow(m, v))}
	case TC:
		from, body := rebind(g.From, g.Sub, m)
		to, body := rebind(g.To, body, m)
		inner := shadow(shadow(m, from), to)
		return TC{Left: sub(g.Left), Right: sub(g.Right), From: from, To: to, Sub: Substitute(body, inner)}
	}
	panic(fmt.Sprintf("ir: unsupported formula %T", f))
}

func substituteAll(fs []Formula, m map[Var]Var) []Formula {
	out := make([]Formula, len(fs))
	for i, f := range fs {
		out[i] = Substitute(f, m)
	}
	return out
}

func shadow(m map[Var]Var, v Var) map[Var]Var {
	if _, ok := m[v]; !ok {
		return m
	}
	out := make(map[Var]Var, len(m))
	for k, w := range m {
		if k != v {
			out[k] = w
		}
	}
	return out
}

// rebind renames the bound variable v when it collides with the target of a
// substitution, so the substituted variable is not captured.
func rebind(v Var, body Formula, m map[Var]Var) (Var, Formula) {
	captured := false
	for k, w := range m {
		if w == v && k != v {
			captured = true
			break
		}
	}
	if !captured {
		return v, body
	}
	fresh := v
	for i := 0; ; i++ {
		fresh = Var(fmt.Sprintf("%s_%d", v, i))
		clash := false
		for _, w := range m {
			if w == fresh {
				clash = true
				break
			}
		}
		if !clash && !slices.Contains(body.FreeVars(), fresh) {
			break
		}
	}
	return fresh, Substitute(body, map[Var]Var{v: fresh})
}

// NNF pushes negations down to atoms, equalities and closures.
func NNF(f Formula) Formula {
	return nnf(f, false)
}

func nnf(f Formula, negate bool) Formula {
	switch g := f.(type) {
	case Const:
		if negate {
			return Const{Value: g.Value.Not()}
		}
		return g
	case Atom, Equal, TC:
		if negate {
			return Not{Sub: g}
		}
		return g
	case Not:
		return nnf(g.Sub, !negate)
	case And:
		subs := make([]Formula, len(g.Subs))
		for i, s := range g.Subs {
			subs[i] = nnf(s, negate)
		}
		if negate {
			return Disj(subs...)
		}
		return Conj(subs...)
	case Or:
		subs := make([]Formula, len(g.Subs))
		for i, s := range g.Subs {
			subs[i] = nnf(s, negate)
		}
		if negate {
			return Conj(subs...)
		}
		return Disj(subs...)
	case Exists:
		if negate {
			return Forall{Var: g.Var, Sub: nnf(g.Sub, true)}
		}
		return Exists{Var: g.Var, Sub: nnf(g.Sub, false)}
	case Forall:
		if negate {
			return Exists{Var: g.Var, Sub: nnf(g.Sub, true)}
		}
		return Forall{Var: g.Var, Sub: nnf(g.Sub, false)}
	}
	panic(fmt.Sprintf("ir: unsupported formula %T", f))
}

// Literal is an atomic formula (Atom, Equal or TC) with a polarity.
type Literal struct {
	Atom    Formula
	Negated bool
}

// Formula returns the literal as a formula.
func (l Literal) Formula() Formula {
	if l.Negated {
		return Not{Sub: l.Atom}
	}
	return l.Atom
}

// Negate flips the polarity.
func (l Literal) Negate() Literal {
	return Literal{Atom: l.Atom, Negated: !l.Negated}
}

func (l Literal) String() string { return l.Formula().String() }

// AsLiteral reports whether f is a literal and returns it.
func AsLiteral(f Formula) (Literal, bool) {
	switch g := f.(type) {
	case Atom, Equal, TC:
		return Literal{Atom: g}, true
	case Not:
		switch h := g.Sub.(type) {
		case Atom, Equal, TC:
			return Literal{Atom: h, Negated: true}, true
		}
	}
	return Literal{}, false
}

// ErrQuantified is returned by DNF for formulas with quantifiers.
var ErrQuantified = errors.New("formula contains quantifiers")

// ErrUnknownConstant is returned by DNF for formulas containing 1/2.
var ErrUnknownConstant = errors.New("formula contains the constant 1/2")

// DNF converts a quantifier-free formula into disjunctive normal form. The
// result is a list of conjunctions; an empty list is false and a list with
// one empty conjunction is true.
func DNF(f Formula) ([][]Literal, error) {
	return dnf(NNF(f))
}

func dnf(f Formula) ([][]Literal, error) {
	switch g := f.(type) {
	case Const:
		switch g.Value {
		case True:
			return [][]Literal{{}}, nil
		case False:
			return nil, nil
		}
		return nil, ErrUnknownConstant
	case Exists, Forall:
		return nil, ErrQuantified
	case Or:
		var out [][]Literal
		for _, s := range g.Subs {
			d, err := dnf(s)
			if err != nil {
				return nil, err
			}
			out = append(out, d...)
		}
		return out, nil
	case And:
		out := [][]Literal{{}}
		for _, s := range g.Subs {
			d, err := dnf(s)
			if err != nil {
				return nil, err
			}
			var next [][]Literal
			for _, left := range out {
				for _, right := range d {
					conj := append(slices.Clone(left), right...)
					next = append(next, conj)
				}
			}
			out = next
		}
		return out, nil
	}
	if l, ok := AsLiteral(f); ok {
		return [][]Literal{{l}}, nil
	}
	return nil, fmt.Errorf("ir: unsupported formula %T in DNF", f)
}

// Conjuncts flattens the top-level conjunction of f.
func Conjuncts(f Formula) []Formula {
	if a, ok := f.(And); ok {
		var out []Formula
		for _, s := range a.Subs {
			out = append(out, Conjuncts(s)...)
		}
		return out
	}
	if c, ok := f.(Const); ok && c.Value == True {
		return nil
	}
	return []Formula{f}
}

// Polarity records in which polarities a predicate occurs.
type Polarity uint8

const (
	// Positive occurrences are under an even number of negations.
	Positive Polarity = 1 << iota
	// Negative occurrences are under an odd number of negations.
	Negative
)

// Occurrences maps every predicate of f to the polarities it occurs with.
// Equalities are reported under the summary predicate of v, since their
// value depends on sm.
func Occurrences(f Formula, v *Vocabulary) map[*Predicate]Polarity {
	out := make(map[*Predicate]Polarity)
	occurrences(f, false, v, out)
	return out
}

func occurrences(f Formula, negated bool, v *Vocabulary, out map[*Predicate]Polarity) {
	pol := Positive
	if negated {
		pol = Negative
	}
	switch g := f.(type) {
	case Const:
	case Atom:
		out[g.Pred] |= pol
	case Equal:
		if v != nil {
			// Equality is 1/2 exactly on summary nodes, so both directions of
			// a change to sm can alter it.
			out[v.Summary()] |= Positive | Negative
		}
	case Not:
		occurrences(g.Sub, !negated, v, out)
	case And:
		for _, s := range g.Subs {
			occurrences(s, negated, v, out)
		}
	case Or:
		for _, s := range g.Subs {
			occurrences(s, negated, v, out)
		}
	case Exists:
		occurrences(g.Sub, negated, v, out)
	case Forall:
		occurrences(g.Sub, negated, v, out)
	case TC:
		occurrences(g.Sub, negated, v, out)
	default:
		panic(fmt.Sprintf("ir: unsupported formula %T", f))
	}
}

// Predicates returns the predicates occurring in f, ordered by id.
func Predicates(f Formula) []*Predicate {
	occ := Occurrences(f, nil)
	out := make([]*Predicate, 0, len(occ))
	for p := range occ {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b *Predicate) int { return a.ID() - b.ID() })
	return out
}

// IsQuantifierFree reports whether f has no quantifiers and no closures.
func IsQuantifierFree(f Formula) bool {
	switch g := f.(type) {
	case Const, Atom, Equal:
		return true
	case Not:
		return IsQuantifierFree(g.Sub)
	case And:
		for _, s := range g.Subs {
			if !IsQuantifierFree(s) {
				return false
			}
		}
		return true
	case Or:
		for _, s := range g.Subs {
			if !IsQuantifierFree(s) {
				return false
			}
		}
		return true
	}
	return false
}
