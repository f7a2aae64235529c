package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/tvs/internal/ir"
)

// Formula forms. A formula is written as a CUE struct with exactly one of
// these keys, or as a constant:
//
//	{pred: "n", args: ["a", "b"]}
//	{eq: ["a", "b"]}                  {neq: ["a", "b"]}
//	{not: F}                          {and: [F, ...]}    {or: [F, ...]}
//	{exists: "v", sub: F}             {forall: "v", sub: F}
//	{tc: ["a", "b"], over: ["s", "t"], sub: F}
//	"0" | "1" | "1/2" | true | false
var formulaForms = []string{"pred", "eq", "neq", "not", "and", "or", "exists", "forall", "tc"}

// CompileFormula parses a formula tree over vocab.
func CompileFormula(v cue.Value, vocab *ir.Vocabulary) (ir.Formula, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	switch v.Kind() {
	case cue.StringKind:
		s, _ := v.String()
		k, err := ir.ParseKleene(s)
		if err != nil {
			return nil, &CompileError{Field: "formula", Message: err.Error(), Pos: v.Pos()}
		}
		return ir.Const{Value: k}, nil
	case cue.BoolKind:
		b, _ := v.Bool()
		return ir.Const{Value: ir.Of(b)}, nil
	case cue.StructKind:
	default:
		return nil, &CompileError{
			Field:   "formula",
			Message: fmt.Sprintf("expected a struct or a constant, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}

	form := ""
	for _, f := range formulaForms {
		if !v.LookupPath(cue.ParsePath(f)).Exists() {
			continue
		}
		if form != "" {
			return nil, &CompileError{
				Field:   "formula",
				Message: fmt.Sprintf("ambiguous formula: both %q and %q are set", form, f),
				Pos:     v.Pos(),
			}
		}
		form = f
	}

	if form == "" {
		return nil, &CompileError{
			Field:   "formula",
			Message: "struct has none of the keys pred, eq, neq, not, and, or, exists, forall, tc",
			Pos:     v.Pos(),
		}
	}

	field := v.LookupPath(cue.ParsePath(form))
	switch form {
	case "pred":
		return compileAtom(v, vocab)
	case "eq", "neq":
		vars, err := varList(field, 2)
		if err != nil {
			return nil, err
		}
		eq := ir.Eq(vars[0], vars[1])
		if form == "neq" {
			return ir.Neg(eq), nil
		}
		return eq, nil
	case "not":
		sub, err := CompileFormula(field, vocab)
		if err != nil {
			return nil, err
		}
		return ir.Neg(sub), nil
	case "and", "or":
		subs, err := compileList(field, vocab)
		if err != nil {
			return nil, err
		}
		if form == "and" {
			return ir.And{Subs: subs}, nil
		}
		return ir.Or{Subs: subs}, nil
	case "exists", "forall":
		name, err := field.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		sub, err := compileSub(v, vocab)
		if err != nil {
			return nil, err
		}
		if form == "exists" {
			return ir.Ex(ir.Var(name), sub), nil
		}
		return ir.All(ir.Var(name), sub), nil
	case "tc":
		ends, err := varList(field, 2)
		if err != nil {
			return nil, err
		}
		over, err := varList(v.LookupPath(cue.ParsePath("over")), 2)
		if err != nil {
			return nil, err
		}
		sub, err := compileSub(v, vocab)
		if err != nil {
			return nil, err
		}
		return ir.Closure(ends[0], ends[1], over[0], over[1], sub), nil
	}
	panic("compiler: unhandled formula form " + form)
}

func compileAtom(v cue.Value, vocab *ir.Vocabulary) (ir.Formula, error) {
	name, err := v.LookupPath(cue.ParsePath("pred")).String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	p, ok := vocab.Lookup(name)
	if !ok {
		return nil, &CompileError{Field: "pred", Message: fmt.Sprintf("unknown predicate %q", name), Pos: v.Pos()}
	}
	var args []ir.Var
	if a := v.LookupPath(cue.ParsePath("args")); a.Exists() {
		args, err = varList(a, -1)
		if err != nil {
			return nil, err
		}
	}
	if len(args) != p.Arity() {
		return nil, &CompileError{
			Field:   "args",
			Message: fmt.Sprintf("predicate %s has arity %d, got %d arguments", p.Name(), p.Arity(), len(args)),
			Pos:     v.Pos(),
		}
	}
	return ir.P(p, args...), nil
}

func compileSub(v cue.Value, vocab *ir.Vocabulary) (ir.Formula, error) {
	sub := v.LookupPath(cue.ParsePath("sub"))
	if !sub.Exists() {
		return nil, &CompileError{Field: "sub", Message: "quantified formula requires sub", Pos: v.Pos()}
	}
	return CompileFormula(sub, vocab)
}

func compileList(v cue.Value, vocab *ir.Vocabulary) ([]ir.Formula, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []ir.Formula
	for iter.Next() {
		f, err := CompileFormula(iter.Value(), vocab)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// varList reads a list of variable names. want < 0 accepts any length.
func varList(v cue.Value, want int) ([]ir.Var, error) {
	names, err := stringList(v)
	if err != nil {
		return nil, err
	}
	if want >= 0 && len(names) != want {
		return nil, &CompileError{
			Field:   "vars",
			Message: fmt.Sprintf("expected %d variables, got %d", want, len(names)),
			Pos:     v.Pos(),
		}
	}
	out := make([]ir.Var, len(names))
	for i, n := range names {
		out[i] = ir.Var(n)
	}
	return out, nil
}

func stringList(v cue.Value) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}
