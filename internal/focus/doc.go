// Package focus refines a structure so that a formula evaluates to a
// definite value under every assignment of its free variables.
//
// Focus splits each structure on the atoms of the formula's disjunctive
// normal form, with existential variables opened. An atom is refined only at
// instances where the literals before it in its conjunction are not 0, so
// x(v1) & n(v1,v2) never touches the n edges leaving nodes x does not point
// to. Concrete tuples split two ways; a tuple touching one summary node
// additionally bifurcates that node with DuplicateNode. Tuples with two
// summary positions, including a self-loop on one summary node, cannot be
// refined without risking an unbounded split. The Policy decides whether
// that aborts the focus or leaves the instance unrefined.
package focus
