package ir

import (
	"fmt"
	"slices"
	"strings"
)

// Var is a logical variable of the formula language.
type Var string

// Formula is a first-order formula over a vocabulary, extended with
// transitive closure. Formula values are immutable once built.
type Formula interface {
	// FreeVars returns the free variables, sorted and without duplicates.
	FreeVars() []Var
	String() string
	formula()
}

// Const is a constant Kleene formula.
type Const struct {
	Value Kleene
}

// Atom applies a predicate to variables.
type Atom struct {
	Pred *Predicate
	Args []Var
}

// Equal is the equality literal Left == Right.
type Equal struct {
	Left, Right Var
}

// Not negates Sub.
type Not struct {
	Sub Formula
}

// And is an n-ary conjunction. The empty conjunction is true.
type And struct {
	Subs []Formula
}

// Or is an n-ary disjunction. The empty disjunction is false.
type Or struct {
	Subs []Formula
}

// Exists quantifies Var existentially over the individuals.
type Exists struct {
	Var Var
	Sub Formula
}

// Forall quantifies Var universally over the individuals.
type Forall struct {
	Var Var
	Sub Formula
}

// TC is the transitive closure TC(Left,Right)(From,To).Sub: Left and Right
// are the free endpoints and From/To the variables Sub relates.
type TC struct {
	Left, Right Var
	From, To    Var
	Sub         Formula
}

func (Const) formula()  {}
func (Atom) formula()   {}
func (Equal) formula()  {}
func (Not) formula()    {}
func (And) formula()    {}
func (Or) formula()     {}
func (Exists) formula() {}
func (Forall) formula() {}
func (TC) formula()     {}

// Constructors keep formula-building code in tests and generated
// constraints short.

// P applies pred to args. It panics when the arity does not match.
func P(pred *Predicate, args ...Var) Atom {
	if len(args) != pred.Arity() {
		panic(fmt.Sprintf("ir: predicate %s has arity %d, got %d arguments", pred.Name(), pred.Arity(), len(args)))
	}
	return Atom{Pred: pred, Args: slices.Clone(args)}
}

// Eq builds l == r.
func Eq(l, r Var) Equal { return Equal{Left: l, Right: r} }

// Neg negates f, folding constants and double negation.
func Neg(f Formula) Formula {
	switch g := f.(type) {
	case Const:
		return Const{Value: g.Value.Not()}
	case Not:
		return g.Sub
	}
	return Not{Sub: f}
}

// Conj builds the conjunction of fs, flattening nested conjunctions.
func Conj(fs ...Formula) Formula {
	var subs []Formula
	for _, f := range fs {
		if a, ok := f.(And); ok {
			subs = append(subs, a.Subs...)
			continue
		}
		subs = append(subs, f)
	}
	if len(subs) == 1 {
		return subs[0]
	}
	return And{Subs: subs}
}

// Disj builds the disjunction of fs, flattening nested disjunctions.
func Disj(fs ...Formula) Formula {
	var subs []Formula
	for _, f := range fs {
		if o, ok := f.(Or); ok {
			subs = append(subs, o.Subs...)
			continue
		}
		subs = append(subs, f)
	}
	if len(subs) == 1 {
		return subs[0]
	}
	return Or{Subs: subs}
}

// Ex builds E(v).f.
func Ex(v Var, f Formula) Exists { return Exists{Var: v, Sub: f} }

// All builds A(v).f.
func All(v Var, f Formula) Forall { return Forall{Var: v, Sub: f} }

// Closure builds TC(l,r)(from,to).f.
func Closure(l, r, from, to Var, f Formula) TC {
	return TC{Left: l, Right: r, From: from, To: to, Sub: f}
}

var (
	// TrueF is the constant 1.
	TrueF = Const{Value: True}
	// FalseF is the constant 0.
	FalseF = Const{Value: False}
	// UnknownF is the constant 1/2.
	UnknownF = Const{Value: Unknown}
)

func (c Const) FreeVars() []Var { return nil }

func (a Atom) FreeVars() []Var { return sortedVars(a.Args) }

func (e Equal) FreeVars() []Var { return sortedVars([]Var{e.Left, e.Right}) }

func (n Not) FreeVars() []Var { return n.Sub.FreeVars() }

func (a And) FreeVars() []Var { return unionFree(a.Subs) }

func (o Or) FreeVars() []Var { return unionFree(o.Subs) }

func (e Exists) FreeVars() []Var { return without(e.Sub.FreeVars(), e.Var) }

func (f Forall) FreeVars() []Var { return without(f.Sub.FreeVars(), f.Var) }

func (t TC) FreeVars() []Var {
	inner := without(without(t.Sub.FreeVars(), t.From), t.To)
	return sortedVars(append(inner, t.Left, t.Right))
}

func (c Const) String() string { return c.Value.String() }

func (a Atom) String() string {
	args := make([]string, len(a.Args))
	for i, v := range a.Args {
		args[i] = string(v)
	}
	return a.Pred.Name() + "(" + strings.Join(args, ",") + ")"
}

func (e Equal) String() string { return string(e.Left) + " == " + string(e.Right) }

func (n Not) String() string {
	if e, ok := n.Sub.(Equal); ok {
		return string(e.Left) + " != " + string(e.Right)
	}
	return "!" + n.Sub.String()
}

func (a And) String() string { return joinSubs(a.Subs, " & ", "1") }

func (o Or) String() string { return joinSubs(o.Subs, " | ", "0") }

func (e Exists) String() string { return "E(" + string(e.Var) + ") " + e.Sub.String() }

func (f Forall) String() string { return "A(" + string(f.Var) + ") " + f.Sub.String() }

func (t TC) String() string {
	return fmt.Sprintf("TC(%s,%s)(%s,%s) %s", t.Left, t.Right, t.From, t.To, t.Sub)
}

func joinSubs(subs []Formula, sep, empty string) string {
	if len(subs) == 0 {
		return empty
	}
	parts := make([]string, len(subs))
	for i, s := range subs {
		parts[i] = s.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}

func sortedVars(vs []Var) []Var {
	out := slices.Clone(vs)
	slices.Sort(out)
	return slices.Compact(out)
}

func unionFree(fs []Formula) []Var {
	var all []Var
	for _, f := range fs {
		all = append(all, f.FreeVars()...)
	}
	return sortedVars(all)
}

func without(vs []Var, v Var) []Var {
	return slices.DeleteFunc(vs, func(x Var) bool { return x == v })
}

// ContainsVars reports whether every variable of sub occurs in super.
func ContainsVars(super, sub []Var) bool {
	for _, v := range sub {
		if !slices.Contains(super, v) {
			return false
		}
	}
	return true
}
