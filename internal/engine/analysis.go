package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/tvs/internal/coerce"
	"github.com/roach88/tvs/internal/config"
	"github.com/roach88/tvs/internal/focus"
	"github.com/roach88/tvs/internal/ir"
	"github.com/roach88/tvs/internal/join"
	"github.com/roach88/tvs/internal/tvs"
)

// Transformer rewrites one structure in place. It is the abstract semantics
// of the statement an edge stands for, expressed with Update, NewNode and
// RemoveNode.
type Transformer func(s *tvs.Structure) error

// Edge connects two program locations.
type Edge struct {
	// Name identifies the edge in logs and errors.
	Name     string
	From, To string
	// Focus, when set, is focused on before Apply runs.
	Focus ir.Formula
	// Apply may be nil for an edge that only filters through coerce.
	Apply Transformer
}

// DiagnosticHook receives non-fatal reports from coerce and focus. The
// structure must not be retained or mutated.
type DiagnosticHook = coerce.DiagnosticHook

// Option configures an Analysis.
type Option func(*Analysis)

// WithLogger sets the base logger. The run id is attached to it.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analysis) { a.logger = l }
}

// WithDiagnostics installs a hook that is called in addition to logging.
func WithDiagnostics(h DiagnosticHook) Option {
	return func(a *Analysis) { a.diag = h }
}

// WithConfig replaces the default configuration.
func WithConfig(cfg *config.Config) Option {
	return func(a *Analysis) { a.cfg = cfg }
}

// WithMaxSteps overrides the configured step quota.
func WithMaxSteps(n int) Option {
	return func(a *Analysis) { a.maxSteps = n }
}

// WithRunIDGenerator sets the source of the run id.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(a *Analysis) { a.ids = g }
}

// Stats counts what a run did.
type Stats struct {
	// Steps is the number of (structure, edge) pairs processed.
	Steps int `json:"steps"`
	// Outputs counts structures that survived coerce.
	Outputs int `json:"outputs"`
	// Infeasible counts structures coerce discarded, including seeds.
	Infeasible int `json:"infeasible"`
	// Diagnostics counts reports passed to the diagnostic hook.
	Diagnostics int `json:"diagnostics"`
}

// Analysis is one run of a shape analysis. It is not safe for concurrent
// use.
type Analysis struct {
	runID    string
	ids      RunIDGenerator
	logger   *slog.Logger
	diag     DiagnosticHook
	cfg      *config.Config
	maxSteps int

	vocab   *ir.Vocabulary
	coercer *coerce.Coercer
	focuser *focus.Focuser
	quota   *QuotaEnforcer

	edges   map[string][]Edge
	sets    map[string]*join.Set
	pending map[string][]*tvs.Structure
	queue   *worklist
	stats   Stats
}

// New creates an Analysis over vocab whose structures must satisfy
// constraints.
func New(vocab *ir.Vocabulary, constraints []coerce.Constraint, opts ...Option) (*Analysis, error) {
	a := &Analysis{
		ids:     UUIDv7Generator{},
		logger:  slog.Default(),
		cfg:     config.Default(),
		vocab:   vocab,
		edges:   make(map[string][]Edge),
		sets:    make(map[string]*join.Set),
		pending: make(map[string][]*tvs.Structure),
		queue:   newWorklist(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}

	a.runID = a.ids.Generate()
	a.logger = a.logger.With("run_id", a.runID)
	if a.maxSteps <= 0 {
		a.maxSteps = a.cfg.MaxSteps
	}
	a.quota = NewQuotaEnforcer(a.maxSteps)

	c, err := coerce.New(vocab, constraints,
		coerce.WithContrapositives(a.cfg.Contrapositives),
		coerce.WithIncremental(a.cfg.Incremental),
		coerce.WithDiagnostics(a.diagnose),
	)
	if err != nil {
		return nil, &AnalysisError{Code: ErrCodeInvalidSpec, Message: "compile constraints", RunID: a.runID, Err: err}
	}
	a.coercer = c
	a.focuser = focus.New(focus.Options{
		Policy:      a.cfg.Policy(),
		MaybeActive: a.cfg.FocusMaybeActive,
		MaxOutputs:  a.cfg.MaxFocusOutputs,
		Diagnostics: a.diagnose,
	})
	return a, nil
}

// RunID returns the identifier of this run.
func (a *Analysis) RunID() string { return a.runID }

// Config returns the configuration in effect.
func (a *Analysis) Config() *config.Config { return a.cfg }

// Coercer returns the compiled constraint set.
func (a *Analysis) Coercer() *coerce.Coercer { return a.coercer }

// Stats returns the run counters.
func (a *Analysis) Stats() Stats { return a.stats }

// AddEdge registers e. The focus formula is checked up front so that an
// unusable formula fails before the run starts.
func (a *Analysis) AddEdge(e Edge) error {
	if e.From == "" || e.To == "" {
		return &AnalysisError{Code: ErrCodeInvalidSpec, Message: "edge needs both endpoints", RunID: a.runID, Edge: e.Name}
	}
	if e.Focus != nil {
		if _, err := focus.Atoms(e.Focus); err != nil {
			return &AnalysisError{Code: ErrCodeInvalidSpec, Message: "edge focus formula", RunID: a.runID, Location: e.From, Edge: e.Name, Err: err}
		}
	}
	a.edges[e.From] = append(a.edges[e.From], e)
	a.set(e.From)
	a.set(e.To)
	return nil
}

// Seed stores a copy of s at loc as an initial structure. The copy is
// blurred and coerced first; an infeasible seed is dropped with a warning.
func (a *Analysis) Seed(loc string, s *tvs.Structure) error {
	if s.Vocabulary() != a.vocab {
		return &AnalysisError{Code: ErrCodeInvalidSpec, Message: "seed structure uses a different vocabulary", RunID: a.runID, Location: loc}
	}
	c := s.Copy()
	c.Blur()
	if a.coercer.Coerce(c) == coerce.Invalid {
		a.stats.Infeasible++
		a.logger.Warn("infeasible seed dropped", "location", loc)
		return nil
	}
	a.offer(loc, c)
	return nil
}

// Step pushes in along e without storing anything: focus (or copy), apply
// the transformer, blur, coerce. It returns the feasible results. in is not
// modified.
func (a *Analysis) Step(in *tvs.Structure, e Edge) ([]*tvs.Structure, error) {
	var branches []*tvs.Structure
	if e.Focus != nil {
		out, err := a.focuser.Focus(in, e.Focus)
		if err != nil {
			return nil, a.stepError(e, err)
		}
		branches = out
	} else {
		branches = []*tvs.Structure{in.Copy()}
	}

	kept := branches[:0]
	for _, s := range branches {
		if e.Apply != nil {
			if err := e.Apply(s); err != nil {
				return nil, a.stepError(e, err)
			}
		}
		s.Blur()
		if a.coerce(s) == coerce.Invalid {
			a.stats.Infeasible++
			continue
		}
		kept = append(kept, s)
	}
	a.stats.Outputs += len(kept)
	return kept, nil
}

// coerce uses the structure's delta against its committed input when one
// is available and cheap enough.
func (a *Analysis) coerce(s *tvs.Structure) coerce.Result {
	if a.cfg.Incremental {
		if d, ok := s.Delta(a.cfg.DeltaCostFactor); ok {
			return a.coercer.CoerceDelta(s, d)
		}
	}
	return a.coercer.Coerce(s)
}

// Run iterates to a fixpoint. It stops early on the first step error, on
// quota exhaustion, or when ctx is done; the sets keep whatever was reached.
func (a *Analysis) Run(ctx context.Context) error {
	a.logger.Info("analysis starting",
		"locations", len(a.sets),
		"pending", a.queue.Len(),
		"config", a.cfg.Summary(),
	)
	for {
		if err := ctx.Err(); err != nil {
			a.logger.Info("analysis cancelled", "steps", a.quota.Current())
			return err
		}
		loc, ok := a.queue.Pop()
		if !ok {
			break
		}
		if err := a.visit(loc); err != nil {
			a.logger.Error("analysis failed", "location", loc, "error", err)
			return err
		}
	}
	a.logger.Info("analysis finished",
		"steps", a.stats.Steps,
		"outputs", a.stats.Outputs,
		"infeasible", a.stats.Infeasible,
	)
	return nil
}

// visit pushes the pending structures of loc along its outgoing edges.
func (a *Analysis) visit(loc string) error {
	work := a.takePending(loc)
	a.logger.Debug("visiting location", "location", loc, "structures", len(work))
	for _, e := range a.edges[loc] {
		for _, in := range work {
			if err := a.quota.Check(a.runID); err != nil {
				qe := NewQuotaError(a.runID, a.quota.Current(), a.quota.MaxSteps())
				qe.Location, qe.Edge, qe.Err = loc, e.Name, err
				return qe
			}
			a.stats.Steps++
			out, err := a.Step(in, e)
			if err != nil {
				return err
			}
			for _, s := range out {
				a.offer(e.To, s)
			}
		}
	}
	return nil
}

// offer merges s into the set at loc and schedules loc when it changed.
func (a *Analysis) offer(loc string, s *tvs.Structure) {
	ch := a.set(loc).MergeWith(s)
	if ch == nil {
		return
	}
	if ch.Kind == join.Merged && ch.Delta != nil {
		a.logger.Debug("structure weakened", "location", loc, "changes", ch.Delta.Len())
	}
	if !slices.Contains(a.pending[loc], ch.Structure) {
		a.pending[loc] = append(a.pending[loc], ch.Structure)
	}
	a.queue.Push(loc)
}

// takePending returns and clears the pending structures of loc, skipping
// any the set has since replaced.
func (a *Analysis) takePending(loc string) []*tvs.Structure {
	pend := a.pending[loc]
	delete(a.pending, loc)
	members := a.sets[loc].Members()
	return slices.DeleteFunc(pend, func(s *tvs.Structure) bool {
		return !slices.Contains(members, s)
	})
}

func (a *Analysis) set(loc string) *join.Set {
	s, ok := a.sets[loc]
	if !ok {
		s = join.NewSet(a.cfg.JoinStrategy())
		a.sets[loc] = s
	}
	return s
}

// Locations returns every known location in sorted order.
func (a *Analysis) Locations() []string {
	out := make([]string, 0, len(a.sets))
	for loc := range a.sets {
		out = append(out, loc)
	}
	slices.Sort(out)
	return out
}

// Structures returns the structures stored at loc. They must not be
// mutated.
func (a *Analysis) Structures(loc string) []*tvs.Structure {
	s, ok := a.sets[loc]
	if !ok {
		return nil
	}
	return s.Members()
}

// SetStats returns the join counters of loc.
func (a *Analysis) SetStats(loc string) join.Stats {
	s, ok := a.sets[loc]
	if !ok {
		return join.Stats{}
	}
	return s.Stats()
}

func (a *Analysis) diagnose(s *tvs.Structure, msg string) {
	a.stats.Diagnostics++
	a.logger.Warn("diagnostic", "message", msg, "nodes", s.NodeCount())
	if a.diag != nil {
		a.diag(s, msg)
	}
}

func (a *Analysis) stepError(e Edge, err error) *AnalysisError {
	code := classify(err)
	msg := "transformer failed"
	switch code {
	case ErrCodeNonTermination:
		msg = "focus may not terminate"
	case ErrCodeQuotaExceeded:
		msg = "focus produced too many structures"
	case ErrCodeInvalidSpec:
		msg = "focus formula rejected"
	}
	return &AnalysisError{
		Code:     code,
		Message:  msg,
		RunID:    a.runID,
		Location: e.From,
		Edge:     e.Name,
		Err:      err,
	}
}
