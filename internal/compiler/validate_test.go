package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidate_UnsupportedType(t *testing.T) {
	errs := Validate(42)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnsupportedType, errs[0].Code)
}

func TestValidate_Codes(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "only built-ins",
			src:  `predicates: {}`,
			want: []string{ErrNoPredicates},
		},
		{
			name: "no abstraction",
			src:  `predicates: p: {arity: 1}`,
			want: []string{ErrNoAbstraction},
		},
		{
			name: "binary abstraction",
			src:  `predicates: {p: {arity: 1, properties: ["abstraction"]}, n: {arity: 2, properties: ["abstraction"]}}`,
			want: []string{ErrUnusedProperty},
		},
		{
			name: "duplicate constraint name and unbound head",
			src: `
predicates: p: {arity: 1, properties: ["abstraction"]}
constraints: [
	{name: "c", body: {pred: "p", args: ["a"]}, head: {pred: "p", args: ["b"]}},
	{name: "c", body: {pred: "p", args: ["a"]}, head: "0"},
]`,
			want: []string{ErrConstraintSpec, ErrDuplicateConstraint},
		},
		{
			name: "unfocusable formula",
			src: `
predicates: p: {arity: 1, properties: ["abstraction"]}
formulas: {
	f: {forall: "v", sub: {pred: "p", args: ["v"]}}
	g: {exists: "v", sub: {pred: "p", args: ["v"]}}
}`,
			want: []string{ErrFocusFormula},
		},
		{
			name: "inactive structure",
			src: `
predicates: p: {arity: 1, properties: ["abstraction"]}
structures: s: {nodes: ["u"], values: active: {u: "0"}}`,
			want: []string{ErrInactiveStructure},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a, err := Compile(compileString(t, tc.src))
			require.NoError(t, err)
			assert.Equal(t, tc.want, codes(Validate(a)))
		})
	}
}

func TestValidate_LineNumbers(t *testing.T) {
	a, err := Compile(compileString(t, `predicates: p: {arity: 1, properties: ["abstraction"]}
constraints: [
	{body: {pred: "p", args: ["a"]}, head: {pred: "p", args: ["b"]}},
]`))
	require.NoError(t, err)

	errs := Validate(a)
	require.Len(t, errs, 1)
	assert.Equal(t, 3, errs[0].Line)
	assert.Contains(t, errs[0].Error(), "[E211] line 3: constraints[0]")
	assert.Contains(t, errs[0].Message, "not bound")
}

func TestValidationError_Error(t *testing.T) {
	e := ValidationError{Field: "predicates", Message: "m", Code: ErrNoPredicates}
	assert.Equal(t, "[E201] predicates: m", e.Error())
}
