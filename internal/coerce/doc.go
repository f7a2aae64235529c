// Package coerce repairs three-valued structures against integrity
// constraints.
//
// A constraint body ==> head says that whenever body definitely holds for an
// assignment of its free variables, head must hold too. Coerce sharpens heads
// that are 1/2 and rejects structures where a head is definitely false: such
// a structure represents no concrete heap and is discarded by the caller.
//
// Constraints are compiled once into rules ordered by a dependency graph
// whose strongly connected components are processed in topological order.
// A Coercer is immutable after New and may be shared between goroutines;
// each call mutates only the structure passed to it.
package coerce
