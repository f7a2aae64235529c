package tvs

import (
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/tvs/internal/ir"
)

// Labels assigns every live node a stable label "nK", ordering nodes by
// canonical name and then by id.
func (s *Structure) Labels() map[ir.Node]string {
	c := s.canonic()
	order := slices.Clone(s.nodes)
	slices.SortStableFunc(order, func(a, b ir.Node) int {
		return c.byNode[a].Compare(c.byNode[b])
	})
	out := make(map[ir.Node]string, len(order))
	for i, n := range order {
		out[n] = "n" + strconv.Itoa(i)
	}
	return out
}

// Snapshot renders s as a canonical value:
//
//	{"dynamic": [...], "nodes": [...], "predicates": {"p": {"(n0,n1)": "1/2"}}}
//
// Only non-false entries appear. Two structures that agree up to node
// numbering and have distinct canonical names render identically.
func (s *Structure) Snapshot() ir.Object {
	labels := s.Labels()
	nodes := make(ir.Array, 0, len(labels))
	for i := range len(labels) {
		nodes = append(nodes, ir.String("n"+strconv.Itoa(i)))
	}
	dyn := ir.Array{}
	preds := ir.Object{}
	for _, p := range s.dyn.Members(s.vocab) {
		dyn = append(dyn, ir.String(p.Name()))
		entries := ir.Object{}
		for t, v := range s.tables[p.ID()] {
			entries[tupleLabel(t, labels)] = ir.String(v.String())
		}
		if len(entries) > 0 {
			preds[p.Name()] = entries
		}
	}
	return ir.Object{
		"dynamic":    dyn,
		"nodes":      nodes,
		"predicates": preds,
	}
}

func tupleLabel(t ir.Tuple, labels map[ir.Node]string) string {
	parts := make([]string, t.Len())
	for i := range parts {
		parts[i] = labels[t.At(i)]
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// MarshalCanonical returns the canonical JSON encoding of Snapshot.
func (s *Structure) MarshalCanonical() ([]byte, error) {
	return ir.MarshalCanonical(s.Snapshot())
}

// Digest returns the hex digest of the canonical encoding.
func (s *Structure) Digest() (string, error) {
	data, err := s.MarshalCanonical()
	if err != nil {
		return "", err
	}
	return ir.DigestHex(ir.DomainStructure, data), nil
}

// String renders s in a compact human-readable form, one predicate per line.
func (s *Structure) String() string {
	labels := s.Labels()
	var b strings.Builder
	b.WriteString("nodes:")
	for i := range len(labels) {
		b.WriteString(" n" + strconv.Itoa(i))
	}
	for _, p := range s.dyn.Members(s.vocab) {
		es := s.Tuples(p)
		if len(es) == 0 {
			continue
		}
		lines := make([]string, len(es))
		for i, e := range es {
			lines[i] = tupleLabel(e.Tuple, labels) + "=" + e.Value.String()
		}
		slices.Sort(lines)
		b.WriteString("\n" + p.Name() + ": " + strings.Join(lines, " "))
	}
	return b.String()
}
