package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"

	"github.com/roach88/tvs/internal/coerce"
	"github.com/roach88/tvs/internal/ir"
	"github.com/roach88/tvs/internal/tvs"
)

// Analysis is the immutable table an analysis run is set up from.
type Analysis struct {
	Vocabulary  *ir.Vocabulary
	Constraints []coerce.Constraint
	// Formulas are named formulas available for focus.
	Formulas []NamedFormula
	// Structures are named initial structures.
	Structures []NamedStructure

	// positions of Constraints, for validation messages.
	positions []token.Pos
}

// NamedFormula is a formula declared under formulas.
type NamedFormula struct {
	Name    string
	Formula ir.Formula
}

// NamedStructure is a structure declared under structures.
type NamedStructure struct {
	Name      string
	Structure *tvs.Structure
	Nodes     map[string]ir.Node
}

// Formula returns the formula declared as name.
func (a *Analysis) Formula(name string) (ir.Formula, bool) {
	for _, f := range a.Formulas {
		if f.Name == name {
			return f.Formula, true
		}
	}
	return nil, false
}

// Structure returns the structure declared as name.
func (a *Analysis) Structure(name string) (NamedStructure, bool) {
	for _, s := range a.Structures {
		if s.Name == name {
			return s, true
		}
	}
	return NamedStructure{}, false
}

// Compile parses an analysis definition. Uses the CUE SDK's Go API directly.
//
//	predicates: {
//		x: {arity: 1, properties: ["unique", "abstraction"]}
//		n: {arity: 2, properties: ["function"]}
//	}
//	constraints: [{name: "x-reach", body: {pred: "x", args: ["v"]}, head: {pred: "r_x", args: ["v"]}}]
//	formulas: {nonempty: {exists: "v", sub: {pred: "x", args: ["v"]}}}
//	structures: {init: {nodes: ["u"], values: {x: {u: "1"}}}}
//
// Only predicates is required.
func Compile(v cue.Value) (*Analysis, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	predsVal := v.LookupPath(cue.ParsePath("predicates"))
	if !predsVal.Exists() {
		return nil, &CompileError{Field: "predicates", Message: "predicates is required", Pos: v.Pos()}
	}
	vocab, err := CompileVocabulary(predsVal)
	if err != nil {
		return nil, err
	}
	a := &Analysis{Vocabulary: vocab}

	if cv := v.LookupPath(cue.ParsePath("constraints")); cv.Exists() {
		iter, err := cv.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			c, err := CompileConstraint(iter.Value(), vocab)
			if err != nil {
				return nil, err
			}
			a.Constraints = append(a.Constraints, c)
			a.positions = append(a.positions, iter.Value().Pos())
		}
	}

	if fv := v.LookupPath(cue.ParsePath("formulas")); fv.Exists() {
		iter, err := fv.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			f, err := CompileFormula(iter.Value(), vocab)
			if err != nil {
				return nil, err
			}
			a.Formulas = append(a.Formulas, NamedFormula{Name: iter.Label(), Formula: f})
		}
	}

	if sv := v.LookupPath(cue.ParsePath("structures")); sv.Exists() {
		iter, err := sv.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			var spec StructureSpec
			if err := iter.Value().Decode(&spec); err != nil {
				return nil, formatCUEError(err)
			}
			name := iter.Label()
			s, nodes, err := BuildStructure(vocab, spec)
			if err != nil {
				return nil, &CompileError{Field: "structures." + name, Message: err.Error(), Pos: iter.Value().Pos()}
			}
			a.Structures = append(a.Structures, NamedStructure{Name: name, Structure: s, Nodes: nodes})
		}
	}

	return a, nil
}

// CompileVocabulary parses the predicates struct. Field order fixes
// predicate ids and the slot order of canonical names.
func CompileVocabulary(v cue.Value) (*ir.Vocabulary, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var defs []ir.PredicateDef
	for iter.Next() {
		name := iter.Label()
		pv := iter.Value()
		def := ir.PredicateDef{Name: name}

		arityVal := pv.LookupPath(cue.ParsePath("arity"))
		if !arityVal.Exists() {
			return nil, &CompileError{Field: "predicates." + name + ".arity", Message: "arity is required", Pos: pv.Pos()}
		}
		arity, err := arityVal.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		def.Arity = int(arity)

		if props := pv.LookupPath(cue.ParsePath("properties")); props.Exists() {
			names, err := stringList(props)
			if err != nil {
				return nil, err
			}
			for _, pn := range names {
				prop, err := ir.ParseProperty(pn)
				if err != nil {
					return nil, &CompileError{Field: "predicates." + name + ".properties", Message: err.Error(), Pos: props.Pos()}
				}
				def.Properties |= prop
			}
		}
		defs = append(defs, def)
	}

	vocab, err := ir.NewVocabulary(defs...)
	if err != nil {
		return nil, &CompileError{Field: "predicates", Message: err.Error(), Pos: v.Pos()}
	}
	return vocab, nil
}

// CompileConstraint parses {name?: string, body: F, head: F}. Semantic
// checks are left to Validate.
func CompileConstraint(v cue.Value, vocab *ir.Vocabulary) (coerce.Constraint, error) {
	var c coerce.Constraint
	if nv := v.LookupPath(cue.ParsePath("name")); nv.Exists() {
		name, err := nv.String()
		if err != nil {
			return c, formatCUEError(err)
		}
		c.Name = name
	}
	for _, part := range []string{"body", "head"} {
		pv := v.LookupPath(cue.ParsePath(part))
		if !pv.Exists() {
			return c, &CompileError{Field: part, Message: fmt.Sprintf("constraint %s is required", part), Pos: v.Pos()}
		}
		f, err := CompileFormula(pv, vocab)
		if err != nil {
			return c, err
		}
		if part == "body" {
			c.Body = f
		} else {
			c.Head = f
		}
	}
	return c, nil
}
