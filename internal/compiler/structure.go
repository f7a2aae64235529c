package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/tvs/internal/ir"
	"github.com/roach88/tvs/internal/tvs"
)

// StructureSpec describes a structure by node names and per-predicate
// values. Tuple keys list node names separated by commas; the nullary tuple
// is "". Every node starts with active=1 unless Values says otherwise.
//
//	nodes: [u0, u1]
//	values:
//	  x: {u0: "1"}
//	  n: {"u0,u1": "1/2"}
//	  empty: {"": "1"}
type StructureSpec struct {
	Nodes  []string                     `json:"nodes" yaml:"nodes"`
	Values map[string]map[string]string `json:"values,omitempty" yaml:"values,omitempty"`
	// Dynamic restricts the structure to the listed predicates; empty
	// means the whole vocabulary.
	Dynamic []string `json:"dynamic,omitempty" yaml:"dynamic,omitempty"`
}

// BuildStructure creates the structure described by spec. It returns the
// node allocated for each name.
func BuildStructure(vocab *ir.Vocabulary, spec StructureSpec) (*tvs.Structure, map[string]ir.Node, error) {
	s := tvs.New(vocab)
	if len(spec.Dynamic) > 0 {
		var dyn ir.DynamicVocabulary
		for _, name := range spec.Dynamic {
			p, ok := vocab.Lookup(name)
			if !ok {
				return nil, nil, fmt.Errorf("dynamic: unknown predicate %q", name)
			}
			dyn.Add(p)
		}
		s = tvs.NewWithVocabulary(vocab, dyn)
	}

	nodes := make(map[string]ir.Node, len(spec.Nodes))
	active := vocab.Active()
	for _, name := range spec.Nodes {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, nil, fmt.Errorf("nodes: empty node name")
		}
		if _, dup := nodes[name]; dup {
			return nil, nil, fmt.Errorf("nodes: duplicate node %q", name)
		}
		n := s.NewNode()
		s.Update(active, ir.T(n), ir.True)
		nodes[name] = n
	}

	preds := make([]string, 0, len(spec.Values))
	for name := range spec.Values {
		preds = append(preds, name)
	}
	slices.Sort(preds)
	for _, name := range preds {
		p, ok := vocab.Lookup(name)
		if !ok {
			return nil, nil, fmt.Errorf("values: unknown predicate %q", name)
		}
		for key, val := range spec.Values[name] {
			t, err := parseTuple(key, nodes)
			if err != nil {
				return nil, nil, fmt.Errorf("values.%s: %w", name, err)
			}
			if t.Len() != p.Arity() {
				return nil, nil, fmt.Errorf("values.%s: tuple %q has %d nodes, predicate has arity %d", name, key, t.Len(), p.Arity())
			}
			k, err := ir.ParseKleene(strings.TrimSpace(val))
			if err != nil {
				return nil, nil, fmt.Errorf("values.%s[%q]: %w", name, key, err)
			}
			s.Update(p, t, k)
		}
	}
	return s, nodes, nil
}

func parseTuple(key string, nodes map[string]ir.Node) (ir.Tuple, error) {
	key = strings.TrimSpace(strings.Trim(strings.TrimSpace(key), "()"))
	if key == "" {
		return ir.EmptyTuple, nil
	}
	parts := strings.Split(key, ",")
	if len(parts) > ir.MaxArity {
		return ir.Tuple{}, fmt.Errorf("tuple %q exceeds arity %d", key, ir.MaxArity)
	}
	ns := make([]ir.Node, len(parts))
	for i, part := range parts {
		n, ok := nodes[strings.TrimSpace(part)]
		if !ok {
			return ir.Tuple{}, fmt.Errorf("unknown node %q", strings.TrimSpace(part))
		}
		ns[i] = n
	}
	return ir.T(ns...), nil
}
