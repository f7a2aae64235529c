// Package tvs implements three-valued logical structures, the unit of
// abstract state of the shape analysis.
//
// A Structure owns an arena of nodes and, per predicate of its dynamic
// vocabulary, a sparse table mapping tuples to Kleene values. Absent tuples
// are false; predicates outside the dynamic vocabulary evaluate to 1/2.
//
// Structures are mutated only through Update, NewNode, RemoveNode,
// MergeNodes and DuplicateNode. Every mutation bumps a version counter that
// invalidates the canonical-name and closure caches, and records the touched
// predicate for the delta tracker (Commit / Delta / Apply).
//
// A Structure is not safe for concurrent mutation. Stored structures may be
// read concurrently as long as callers Copy before mutating.
package tvs
