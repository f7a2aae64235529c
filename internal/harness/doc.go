// Package harness runs shape-analysis scenarios end to end.
//
// A scenario is a YAML file naming a CUE analysis definition, seed
// structures, and a small program whose edges carry declarative
// transformers:
//
//	name: list-push
//	description: pushing onto a list converges to a summarized list
//	analysis: ../list
//	seeds:
//	  - {location: entry, structure: empty}
//	edges:
//	  - {name: init, from: entry, to: loop}
//	  - name: push
//	    from: loop
//	    to: loop
//	    new: fresh
//	    updates:
//	      - {pred: n, args: [v1, v2], formula: push_n}
//	      - {pred: x, args: [v], formula: is_fresh}
//	assertions:
//	  - {type: max_nodes, location: loop, count: 3}
//
// An update p(args) := formula is evaluated for every tuple of nodes on
// the state before the edge's updates, so all updates of an edge take
// effect simultaneously. The "new" marker allocates one active node
// before the updates run and is cleared after them.
//
// Run drives the real engine: focus, transformer, blur, coerce, and join
// at every location, exactly as a program analysis would. The stored
// structures can be compared against a golden file holding their
// canonical encoding.
package harness
