package ir

import (
	"fmt"
	"strings"
)

// Names of the built-in predicates every vocabulary carries.
const (
	// SummaryName is the unary predicate marking nodes that may stand for
	// more than one concrete individual.
	SummaryName = "sm"
	// ActiveName is the unary predicate marking nodes that exist in the
	// concrete heap. A node with active=1/2 may or may not exist.
	ActiveName = "active"
)

// Property is a bit set of algebraic predicate properties.
type Property uint16

const (
	// Function: p(v1,v2) ∧ p(v1,v3) ⇒ v2 = v3.
	Function Property = 1 << iota
	// InvFunction: p(v1,v3) ∧ p(v2,v3) ⇒ v1 = v2.
	InvFunction
	// Unique: p(v1) ∧ p(v2) ⇒ v1 = v2.
	Unique
	// Reflexive: p(v,v) holds for every individual.
	Reflexive
	// Symmetric: p(v1,v2) ⇒ p(v2,v1).
	Symmetric
	// Acyclic: the transitive closure of p has no cycle.
	Acyclic
	// Abstraction marks unary predicates that take part in canonical names.
	Abstraction
	// Relational marks predicates kept in relational (per-structure) form
	// by layers that partition structures; the domain operations treat it as
	// metadata.
	Relational
)

var propertyNames = []struct {
	p    Property
	name string
}{
	{Function, "function"},
	{InvFunction, "invfunction"},
	{Unique, "unique"},
	{Reflexive, "reflexive"},
	{Symmetric, "symmetric"},
	{Acyclic, "acyclic"},
	{Abstraction, "abstraction"},
	{Relational, "relational"},
}

// ParseProperty maps a property name to its flag.
func ParseProperty(name string) (Property, error) {
	for _, pn := range propertyNames {
		if pn.name == name {
			return pn.p, nil
		}
	}
	return 0, fmt.Errorf("unknown predicate property %q", name)
}

// String lists the set flags separated by '|'.
func (p Property) String() string {
	var parts []string
	for _, pn := range propertyNames {
		if p&pn.p != 0 {
			parts = append(parts, pn.name)
		}
	}
	return strings.Join(parts, "|")
}

// Predicate is a named relation of fixed arity. Predicates are created once
// per analysis through a Vocabulary and shared read-only by every structure.
type Predicate struct {
	name  string
	arity int
	props Property
	id    int
}

// Name returns the NFC-normalised predicate name.
func (p *Predicate) Name() string { return p.name }

// Arity returns the number of arguments.
func (p *Predicate) Arity() int { return p.arity }

// ID returns the dense index of p inside its vocabulary.
func (p *Predicate) ID() int { return p.id }

// Properties returns the property flags.
func (p *Predicate) Properties() Property { return p.props }

// Has reports whether every flag in q is set on p.
func (p *Predicate) Has(q Property) bool { return p.props&q == q }

// IsAbstraction reports whether p is a unary abstraction predicate, i.e.
// whether it contributes a slot to canonical names.
func (p *Predicate) IsAbstraction() bool {
	return p.arity == 1 && p.props&Abstraction != 0
}

func (p *Predicate) String() string { return p.name }

// PredicateDef describes a predicate to be created by NewVocabulary.
type PredicateDef struct {
	Name       string   `json:"name" yaml:"name"`
	Arity      int      `json:"arity" yaml:"arity"`
	Properties Property `json:"-" yaml:"-"`
}
