package harness

import (
	"fmt"

	"github.com/roach88/tvs/internal/compiler"
	"github.com/roach88/tvs/internal/engine"
	"github.com/roach88/tvs/internal/ir"
	"github.com/roach88/tvs/internal/tvs"
)

// update is a compiled Update. formula is nil for a constant assignment.
type update struct {
	pred    *ir.Predicate
	args    []ir.Var
	formula ir.Formula
	value   ir.Kleene
}

// transformer applies the updates of one edge.
type transformer struct {
	marker  *ir.Predicate
	updates []update
}

// compileEdge resolves the names in spec against the definition.
func compileEdge(def *compiler.Analysis, spec EdgeSpec) (engine.Edge, error) {
	e := engine.Edge{Name: spec.Name, From: spec.From, To: spec.To}
	vocab := def.Vocabulary

	if spec.Focus != "" {
		f, ok := def.Formula(spec.Focus)
		if !ok {
			return e, fmt.Errorf("edge %s: unknown focus formula %q", spec.Name, spec.Focus)
		}
		e.Focus = f
	}

	t := &transformer{}
	if spec.New != "" {
		p, ok := vocab.Lookup(spec.New)
		if !ok {
			return e, fmt.Errorf("edge %s: unknown marker predicate %q", spec.Name, spec.New)
		}
		if p.Arity() != 1 {
			return e, fmt.Errorf("edge %s: marker predicate %s must be unary", spec.Name, p.Name())
		}
		t.marker = p
	}

	for i, u := range spec.Updates {
		cu, err := compileUpdate(def, u)
		if err != nil {
			return e, fmt.Errorf("edge %s: updates[%d]: %w", spec.Name, i, err)
		}
		t.updates = append(t.updates, cu)
	}

	if t.marker != nil || len(t.updates) > 0 {
		e.Apply = t.apply
	}
	return e, nil
}

func compileUpdate(def *compiler.Analysis, u Update) (update, error) {
	p, ok := def.Vocabulary.Lookup(u.Pred)
	if !ok {
		return update{}, fmt.Errorf("unknown predicate %q", u.Pred)
	}
	if len(u.Args) != p.Arity() {
		return update{}, fmt.Errorf("predicate %s has arity %d, got %d arguments", p.Name(), p.Arity(), len(u.Args))
	}
	args := make([]ir.Var, len(u.Args))
	seen := make(map[ir.Var]bool, len(u.Args))
	for i, a := range u.Args {
		v := ir.Var(a)
		if seen[v] {
			return update{}, fmt.Errorf("argument %s repeated", a)
		}
		seen[v] = true
		args[i] = v
	}

	cu := update{pred: p, args: args}
	if u.Value != "" {
		k, err := ir.ParseKleene(u.Value)
		if err != nil {
			return update{}, err
		}
		cu.value = k
		return cu, nil
	}

	f, ok := def.Formula(u.Formula)
	if !ok {
		return update{}, fmt.Errorf("unknown formula %q", u.Formula)
	}
	if !ir.ContainsVars(args, f.FreeVars()) {
		return update{}, fmt.Errorf("formula %s has free variables outside %v", u.Formula, u.Args)
	}
	cu.formula = f
	return cu, nil
}

// apply allocates the marked node, then evaluates every update on a copy
// of the resulting pre-state and writes the results into s.
func (t *transformer) apply(s *tvs.Structure) error {
	var fresh ir.Node
	if t.marker != nil {
		fresh = s.NewNode()
		s.Update(s.Vocabulary().Active(), ir.T(fresh), ir.True)
		s.Update(t.marker, ir.T(fresh), ir.True)
	}

	pre := s.Copy()
	nodes := s.Nodes()
	for _, u := range t.updates {
		if !s.InVocabulary(u.pred) {
			continue
		}
		ir.ForEachTuple(nodes, len(u.args), func(tuple ir.Tuple) bool {
			v := u.value
			if u.formula != nil {
				a := make(tvs.Assignment, len(u.args))
				for i, arg := range u.args {
					a[arg] = tuple.At(i)
				}
				v = pre.EvalFormula(u.formula, a)
			}
			s.Update(u.pred, tuple, v)
			return true
		})
	}

	if t.marker != nil {
		s.Update(t.marker, ir.T(fresh), ir.False)
	}
	return nil
}
