// Package ir provides the foundational types of the three-valued shape
// analysis engine: Kleene values, nodes and node tuples, predicates,
// vocabularies and the formula language used by constraints and focus.
//
// All other internal packages import ir; ir imports nothing internal. This
// keeps the vocabulary and formula tables shareable read-only across every
// structure of an analysis run.
//
// Key design constraints:
//   - Predicates are created once per analysis and never mutated afterwards
//   - Node identity is only meaningful inside the structure that owns it
//   - Canonical JSON (MarshalCanonical) is the only serialization used for
//     digests and golden output
package ir
