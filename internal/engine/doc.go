// Package engine drives a shape analysis to a fixpoint.
//
// An Analysis owns one join.Set per program location and a list of edges
// between locations. Each edge carries an optional focus formula and a
// transformer. Run repeatedly takes a location off the work-list and pushes
// every pending structure stored there along each outgoing edge:
//
//  1. focus the input on the edge formula (or copy it)
//  2. apply the transformer to each copy
//  3. blur, then coerce; structures found infeasible are discarded
//  4. offer the survivors to the target location's set
//
// A target whose set changed is put back on the work-list. The loop ends
// when the work-list is empty, the step quota is exhausted, or the context
// is cancelled.
//
// Coerce after a step is incremental: the input stored at a location was
// committed when it joined the set, so the step's changes are available as
// a tvs.NodeValueMap and only bindings touching them are re-examined.
//
// An Analysis is driven by a single goroutine. Independent analyses share
// nothing and may run concurrently.
package engine
