package focus

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/tvs/internal/coerce"
	"github.com/roach88/tvs/internal/ir"
	"github.com/roach88/tvs/internal/tvs"
)

// Policy selects the reaction to an instance that touches several summary
// positions.
type Policy uint8

const (
	// Strict aborts the focus with a NonTerminationError.
	Strict Policy = iota
	// Lenient reports a warning and leaves the instance at 1/2.
	Lenient
)

func (p Policy) String() string {
	if p == Lenient {
		return "lenient"
	}
	return "strict"
}

// ParsePolicy parses "strict" or "lenient". The empty string selects Strict.
func ParsePolicy(name string) (Policy, error) {
	switch name {
	case "", "strict":
		return Strict, nil
	case "lenient":
		return Lenient, nil
	}
	return Strict, fmt.Errorf("unknown focus policy %q (want strict or lenient)", name)
}

// Pruner drops infeasible outputs. *coerce.Coercer implements it.
type Pruner interface {
	Coerce(s *tvs.Structure) coerce.Result
}

// Options configures a Focuser.
type Options struct {
	Policy Policy
	// MaybeActive allows splitting instances that touch a node whose active
	// value is 1/2. Such instances are left alone by default.
	MaybeActive bool
	// MaxOutputs bounds the number of structures one Focus call may hold.
	// Zero means unlimited.
	MaxOutputs int
	// Pruner, when set, is run on every output; Invalid outputs are dropped.
	Pruner Pruner
	// Diagnostics receives non-termination hazards and unrefinable atoms.
	Diagnostics coerce.DiagnosticHook
}

// Focuser applies focus with fixed options.
type Focuser struct {
	opts Options
}

// New creates a Focuser.
func New(opts Options) *Focuser {
	return &Focuser{opts: opts}
}

// Options returns the focuser's options.
func (f *Focuser) Options() Options { return f.opts }

// step refines one atom. guard holds the literals that precede the atom in
// its conjunction, with variables outside the atom quantified existentially;
// instances at which the guard is 0 are not refined.
type step struct {
	atom  ir.Formula
	guard ir.Formula
}

// Atoms validates formula and returns the atoms Focus refines, in the order
// it refines them. Existentially bound variables are opened into fresh free
// variables. Within a conjunction, literals that bind fewer new variables
// come first and equalities come last. Trivial equalities v == v are
// omitted.
func Atoms(formula ir.Formula) ([]ir.Formula, error) {
	steps, err := plan(formula)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(steps))
	var atoms []ir.Formula
	for _, st := range steps {
		key := st.atom.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		atoms = append(atoms, st.atom)
	}
	return atoms, nil
}

func plan(formula ir.Formula) ([]step, error) {
	open, err := openExists(ir.NNF(formula), freeSet(formula))
	if err != nil {
		return nil, &SpecError{Formula: formula.String(), Message: err.Error()}
	}
	disjuncts, err := ir.DNF(open)
	switch {
	case errors.Is(err, ir.ErrUnknownConstant):
		return nil, &SpecError{Formula: formula.String(), Message: "cannot focus on the constant 1/2"}
	case err != nil:
		return nil, &SpecError{Formula: formula.String(), Message: err.Error()}
	}

	seen := make(map[string]bool)
	var steps []step
	for _, conj := range disjuncts {
		conj = orderLiterals(conj)
		for i, lit := range conj {
			switch a := lit.Atom.(type) {
			case ir.TC:
				return nil, &SpecError{Formula: formula.String(), Message: "transitive closure " + a.String() + " cannot be focused"}
			case ir.Equal:
				if a.Left == a.Right {
					continue
				}
			}
			st := step{atom: lit.Atom, guard: guardOf(conj[:i], lit.Atom.FreeVars())}
			key := st.atom.String()
			if st.guard != nil {
				key += " if " + st.guard.String()
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			steps = append(steps, st)
		}
	}
	return steps, nil
}

// openExists strips the existential quantifiers of an NNF formula, renaming
// each bound variable that collides with one already in use. Universal
// quantifiers are rejected.
func openExists(f ir.Formula, used map[ir.Var]bool) (ir.Formula, error) {
	switch g := f.(type) {
	case ir.And:
		subs, err := openAll(g.Subs, used)
		if err != nil {
			return nil, err
		}
		return ir.Conj(subs...), nil
	case ir.Or:
		subs, err := openAll(g.Subs, used)
		if err != nil {
			return nil, err
		}
		return ir.Disj(subs...), nil
	case ir.Exists:
		v := g.Var
		body := g.Sub
		if used[v] {
			fresh := freshVar(v, used, body)
			body = ir.Substitute(body, map[ir.Var]ir.Var{v: fresh})
			v = fresh
		}
		used[v] = true
		return openExists(body, used)
	case ir.Forall:
		return nil, fmt.Errorf("universal quantifier %s cannot be focused", g)
	}
	return f, nil
}

func openAll(fs []ir.Formula, used map[ir.Var]bool) ([]ir.Formula, error) {
	out := make([]ir.Formula, len(fs))
	for i, f := range fs {
		o, err := openExists(f, used)
		if err != nil {
			return nil, err
		}
		out[i] = o
	}
	return out, nil
}

func freshVar(v ir.Var, used map[ir.Var]bool, body ir.Formula) ir.Var {
	for i := 0; ; i++ {
		fresh := ir.Var(fmt.Sprintf("%s_%d", v, i))
		if !used[fresh] && !slices.Contains(body.FreeVars(), fresh) {
			return fresh
		}
	}
}

func freeSet(f ir.Formula) map[ir.Var]bool {
	out := make(map[ir.Var]bool)
	for _, v := range f.FreeVars() {
		out[v] = true
	}
	return out
}

// orderLiterals orders a conjunction so that each literal binds as few new
// variables as possible, with equalities last.
func orderLiterals(conj []ir.Literal) []ir.Literal {
	rest := slices.Clone(conj)
	out := make([]ir.Literal, 0, len(conj))
	bound := make(map[ir.Var]bool)
	rank := func(l ir.Literal) [3]int {
		_, eq := l.Atom.(ir.Equal)
		vars := l.Atom.FreeVars()
		fresh := 0
		for _, v := range vars {
			if !bound[v] {
				fresh++
			}
		}
		r := [3]int{0, fresh, len(vars)}
		if eq {
			r[0] = 1
		}
		return r
	}
	for len(rest) > 0 {
		best := 0
		for i := 1; i < len(rest); i++ {
			ri, rb := rank(rest[i]), rank(rest[best])
			if slices.Compare(ri[:], rb[:]) < 0 {
				best = i
			}
		}
		l := rest[best]
		rest = slices.Delete(rest, best, best+1)
		out = append(out, l)
		for _, v := range l.Atom.FreeVars() {
			bound[v] = true
		}
	}
	return out
}

// guardOf conjoins lits and quantifies the variables outside vars
// existentially. It returns nil for an empty prefix.
func guardOf(lits []ir.Literal, vars []ir.Var) ir.Formula {
	if len(lits) == 0 {
		return nil
	}
	fs := make([]ir.Formula, len(lits))
	for i, l := range lits {
		fs[i] = l.Formula()
	}
	g := ir.Conj(fs...)
	for _, v := range g.FreeVars() {
		if !slices.Contains(vars, v) {
			g = ir.Ex(v, g)
		}
	}
	return g
}

// branch is one structure under refinement. skip holds the instances of the
// current atom that were left unrefined.
type branch struct {
	s    *tvs.Structure
	skip map[ir.Tuple]bool
}

func (b *branch) fork() *branch {
	return &branch{s: b.s.Copy(), skip: maps.Clone(b.skip)}
}

// Focus returns structures that together represent the same concrete states
// as s and on which formula is definite for every assignment of its free
// variables. s is not modified. Outputs are copies of s and keep its
// committed baseline, so their deltas carry the twin map of bifurcated nodes.
func (f *Focuser) Focus(s *tvs.Structure, formula ir.Formula) ([]*tvs.Structure, error) {
	steps, err := plan(formula)
	if err != nil {
		return nil, err
	}
	if hasSummary(s) {
		for _, st := range steps {
			if eq, ok := st.atom.(ir.Equal); ok {
				return nil, &SpecError{
					Formula: formula.String(),
					Message: "equality " + eq.String() + " is not definite on summary nodes",
				}
			}
		}
	}

	work := []*branch{{s: s.Copy()}}
	for _, st := range steps {
		if _, ok := st.atom.(ir.Atom); !ok {
			continue
		}
		var done []*branch
		for len(work) > 0 {
			b := work[0]
			work = work[1:]
			children, err := f.refine(b, st, formula)
			if err != nil {
				return nil, err
			}
			if children == nil {
				b.skip = nil
				done = append(done, b)
				continue
			}
			work = append(work, children...)
			if f.opts.MaxOutputs > 0 && len(work)+len(done) > f.opts.MaxOutputs {
				return nil, &QuotaError{Formula: formula.String(), Limit: f.opts.MaxOutputs}
			}
		}
		work = done
	}

	out := make([]*tvs.Structure, 0, len(work))
	for _, b := range work {
		if f.opts.Pruner != nil && f.opts.Pruner.Coerce(b.s) == coerce.Invalid {
			continue
		}
		out = append(out, b.s)
	}
	return out, nil
}

// refine splits b on the first instance of the step's atom that is 1/2 and
// not ruled out by its guard. It returns nil when no such instance is left.
func (f *Focuser) refine(b *branch, st step, formula ir.Formula) ([]*branch, error) {
	s := b.s
	atom := st.atom.(ir.Atom)
	if !s.InVocabulary(atom.Pred) {
		f.warn(s, fmt.Sprintf("focus on %s: predicate %s is not in the vocabulary; left unrefined", formula, atom.Pred.Name()))
		return nil, nil
	}
	t, found := f.firstUnknown(b, atom, st.guard)
	if !found {
		return nil, nil
	}

	var slots []int
	var summaries []ir.Node
	for i := 0; i < t.Len(); i++ {
		if n := t.At(i); s.IsSummary(n) {
			slots = append(slots, i)
			if !slices.Contains(summaries, n) {
				summaries = append(summaries, n)
			}
		}
	}

	// Bifurcating one position of a summary self-loop leaves the twin's loop
	// at 1/2, so positions are counted rather than nodes.
	if len(slots) > 1 {
		msg := fmt.Sprintf("focus on %s: %s at %s has %d summary positions (nodes %v)", formula, atom, t, len(slots), summaries)
		if f.opts.Policy == Strict {
			f.warn(s, msg)
			return nil, &NonTerminationError{Formula: formula.String(), Atom: atom.String(), Tuple: t, Positions: len(slots), Summaries: summaries}
		}
		f.warn(s, msg+"; left unrefined")
		if b.skip == nil {
			b.skip = make(map[ir.Tuple]bool)
		}
		b.skip[t] = true
		return []*branch{b}, nil
	}

	holds, fails := b.fork(), b.fork()
	holds.s.Update(atom.Pred, t, ir.True)
	fails.s.Update(atom.Pred, t, ir.False)
	if len(slots) == 0 {
		return []*branch{holds, fails}, nil
	}

	split := b.fork()
	twin := split.s.DuplicateNode(t.At(slots[0]))
	split.s.Update(atom.Pred, t, ir.True)
	split.s.Update(atom.Pred, t.With(slots[0], twin), ir.False)
	return []*branch{holds, fails, split}, nil
}

// firstUnknown finds the first tuple, in node order, at which atom is 1/2 and
// guard is not 0.
func (f *Focuser) firstUnknown(b *branch, atom ir.Atom, guard ir.Formula) (ir.Tuple, bool) {
	s := b.s
	vars := atom.FreeVars()
	nodes := s.Nodes()
	if !f.opts.MaybeActive {
		nodes = slices.DeleteFunc(nodes, s.MaybeActive)
	}
	var hit ir.Tuple
	found := false
	ir.ForEachTuple(nodes, len(vars), func(assign ir.Tuple) bool {
		args := make([]ir.Node, len(atom.Args))
		for i, v := range atom.Args {
			args[i] = assign.At(slices.Index(vars, v))
		}
		t := ir.T(args...)
		if b.skip[t] || s.Eval(atom.Pred, t) != ir.Unknown {
			return true
		}
		if guard != nil {
			a := make(tvs.Assignment, len(vars))
			for i, v := range vars {
				a[v] = assign.At(i)
			}
			if s.EvalFormula(guard, a) == ir.False {
				return true
			}
		}
		hit, found = t, true
		return false
	})
	return hit, found
}

func (f *Focuser) warn(s *tvs.Structure, msg string) {
	if f.opts.Diagnostics != nil {
		f.opts.Diagnostics(s, msg)
	}
}

func hasSummary(s *tvs.Structure) bool {
	for _, n := range s.Nodes() {
		if s.IsSummary(n) {
			return true
		}
	}
	return false
}
