package coerce

import (
	"slices"

	"github.com/roach88/tvs/internal/ir"
	"github.com/roach88/tvs/internal/tvs"
)

// Result is the outcome of coercing a structure.
type Result uint8

const (
	// Unmodified: the structure already satisfied every active constraint.
	Unmodified Result = iota
	// Modified: some 1/2 values were sharpened.
	Modified
	// Invalid: the structure represents no concrete heap and must be dropped.
	Invalid
)

func (r Result) String() string {
	switch r {
	case Unmodified:
		return "unmodified"
	case Modified:
		return "modified"
	case Invalid:
		return "invalid"
	}
	return "unknown"
}

// DiagnosticHook receives a structure and a message when a constraint is
// breached. The structure must not be retained or mutated.
type DiagnosticHook func(s *tvs.Structure, msg string)

// Option configures a Coercer.
type Option func(*Coercer)

// WithDiagnostics installs a hook invoked on every breach.
func WithDiagnostics(h DiagnosticHook) Option {
	return func(c *Coercer) { c.diag = h }
}

// WithContrapositives toggles generation of contrapositive rules.
// Enabled by default.
func WithContrapositives(enabled bool) Option {
	return func(c *Coercer) { c.contra = enabled }
}

// WithIncremental toggles pivot-based re-evaluation in CoerceDelta.
// Enabled by default; when disabled CoerceDelta behaves like Coerce.
func WithIncremental(enabled bool) Option {
	return func(c *Coercer) { c.incremental = enabled }
}

// Coercer enforces a fixed set of constraints.
type Coercer struct {
	vocab       *ir.Vocabulary
	rules       []*rule
	graph       *depGraph
	comps       [][]int
	diag        DiagnosticHook
	contra      bool
	incremental bool
}

// New compiles constraints over v. Constraints implied by predicate
// properties are always included.
func New(v *ir.Vocabulary, constraints []Constraint, opts ...Option) (*Coercer, error) {
	c := &Coercer{vocab: v, contra: true, incremental: true}
	for _, opt := range opts {
		opt(c)
	}
	rules, err := compileAll(v, constraints, c.contra)
	if err != nil {
		return nil, err
	}
	c.rules = rules
	c.graph = buildDepGraph(rules)
	c.comps = c.graph.components()
	return c, nil
}

// Len returns the number of compiled rules, derived ones included.
func (c *Coercer) Len() int { return len(c.rules) }

// Component is a group of mutually dependent rules.
type Component struct {
	Constraints []string
	// Rules indexes the members in the order returned by Graph.
	Rules []int
	// Cyclic is set when the component has more than one rule or a rule
	// that feeds itself.
	Cyclic bool
}

// Components returns the rule components in evaluation order.
func (c *Coercer) Components() []Component {
	out := make([]Component, len(c.comps))
	for i, comp := range c.comps {
		for _, ri := range comp {
			out[i].Constraints = append(out[i].Constraints, c.rules[ri].source.String())
		}
		out[i].Rules = slices.Clone(comp)
		out[i].Cyclic = len(comp) > 1 || c.graph.hasSelfLoop(comp[0])
	}
	return out
}

// Graph returns the label of every rule and, per rule, the rules whose
// bodies or heads read what it writes.
func (c *Coercer) Graph() (labels []string, triggers [][]int) {
	labels = make([]string, len(c.rules))
	triggers = make([][]int, len(c.rules))
	for i, r := range c.rules {
		labels[i] = r.source.label()
		triggers[i] = slices.Clone(c.graph.edges[i])
	}
	return labels, triggers
}

// Coerce repairs s in place against every active constraint.
func (c *Coercer) Coerce(s *tvs.Structure) Result {
	return c.run(s, nil)
}

// CoerceDelta repairs s given that it already satisfied the constraints
// before the changes recorded in d. Only assignments involving changed
// tuples are re-examined. It falls back to a full Coerce when d is nil, when
// the node set or the dynamic vocabulary changed, or when incremental mode is
// disabled.
func (c *Coercer) CoerceDelta(s *tvs.Structure, d *tvs.NodeValueMap) Result {
	if d == nil || d.UniverseChanged() || d.VocabularyChanged() || !c.incremental {
		return c.run(s, nil)
	}
	pivots := newChangeSet()
	for p, cs := range d.Changes {
		for _, ch := range cs {
			pivots.add(p, ch.Tuple)
		}
	}
	return c.run(s, pivots)
}

// changeSet collects the tuples written since some point, per predicate.
type changeSet struct {
	tuples map[*ir.Predicate][]ir.Tuple
	preds  ir.DynamicVocabulary
}

func newChangeSet() *changeSet {
	return &changeSet{tuples: make(map[*ir.Predicate][]ir.Tuple)}
}

func (cs *changeSet) add(p *ir.Predicate, t ir.Tuple) {
	cs.tuples[p] = append(cs.tuples[p], t)
	cs.preds.Add(p)
}

func (cs *changeSet) empty() bool { return cs.preds.IsEmpty() }

// run is the work-list fixpoint. With pivots == nil every active rule is
// evaluated in full once; otherwise rules are evaluated only around the
// pivot tuples.
func (c *Coercer) run(s *tvs.Structure, pivots *changeSet) Result {
	var (
		dyn      = s.Dynamic()
		all      = pivots
		modified bool
	)
	if all == nil {
		all = newChangeSet()
	}
	for _, comp := range c.comps {
		round := newChangeSet()
		writers := make(map[int]bool)
		for _, ri := range comp {
			r := c.rules[ri]
			if !r.uses.SubsetOf(dyn) {
				continue
			}
			var res Result
			if pivots == nil {
				res = c.evalFull(s, r, all, round)
			} else {
				res = c.evalPivots(s, r, all, all, round)
			}
			if res == Invalid {
				return Invalid
			}
			if res == Modified {
				modified = true
				writers[ri] = true
			}
		}

		for !round.empty() {
			prev := round
			round = newChangeSet()
			next := make(map[int]bool)
			for w := range writers {
				for _, succ := range c.graph.strong[w] {
					next[succ] = true
				}
			}
			writers = make(map[int]bool)
			for _, ri := range comp {
				if !next[ri] {
					continue
				}
				r := c.rules[ri]
				if !r.uses.SubsetOf(dyn) {
					continue
				}
				res := c.evalPivots(s, r, prev, all, round)
				if res == Invalid {
					return Invalid
				}
				if res == Modified {
					writers[ri] = true
				}
			}
		}
	}
	if modified {
		return Modified
	}
	return Unmodified
}

// evalFull evaluates r under every assignment and applies its fixes.
func (c *Coercer) evalFull(s *tvs.Structure, r *rule, all, round *changeSet) Result {
	x := newSearcher(s, r, eligibleNodes(s))
	if !x.full() {
		return c.report(s, x.breach)
	}
	return c.apply(s, r, x.fixes, all, round)
}

// evalPivots evaluates r under the assignments that bind one of its atomic
// body literals, or its head, to a changed tuple. Changes to predicates r
// only reads inside non-atomic conjuncts force a full evaluation.
func (c *Coercer) evalPivots(s *tvs.Structure, r *rule, changed, all, round *changeSet) Result {
	relevant := false
	for p := range changed.tuples {
		if _, reads := r.reads[p]; reads || r.headReads == p {
			relevant = true
		}
		if r.opaque.Contains(p) {
			return c.evalFull(s, r, all, round)
		}
	}
	if !relevant {
		return Unmodified
	}

	x := newSearcher(s, r, eligibleNodes(s))
	for _, cj := range r.body {
		if !cj.atomic() {
			continue
		}
		for _, t := range changed.tuples[cj.pred] {
			if !x.pivot(cj.args, t) {
				return c.report(s, x.breach)
			}
		}
	}
	if r.headReads != nil {
		for _, t := range changed.tuples[r.headReads] {
			var ok bool
			switch r.head.kind {
			case headAtom:
				ok = x.pivot(r.head.args, t)
			default:
				n := t.At(0)
				ok = x.pivot([]ir.Var{r.head.left, r.head.right}, ir.T(n, n))
			}
			if !ok {
				return c.report(s, x.breach)
			}
		}
	}
	return c.apply(s, r, x.fixes, all, round)
}

// apply performs the deferred writes. Two fixes demanding different values
// for one tuple make the structure invalid.
func (c *Coercer) apply(s *tvs.Structure, r *rule, fixes []fix, all, round *changeSet) Result {
	res := Unmodified
	for _, f := range fixes {
		switch s.Eval(f.pred, f.tuple) {
		case f.want:
			continue
		case ir.Unknown:
			s.Update(f.pred, f.tuple, f.want)
			all.add(f.pred, f.tuple)
			round.add(f.pred, f.tuple)
			res = Modified
		default:
			return c.report(s, &breach{rule: r})
		}
	}
	return res
}

func (c *Coercer) report(s *tvs.Structure, b *breach) Result {
	if c.diag != nil {
		c.diag(s, "constraint breached: "+b.String())
	}
	return Invalid
}
