package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("TVS_CONFIG", "")
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

const blurredChain3 = `nodes: n0 n1
x: (n1)=1
n: (n0,n0)=1/2 (n1,n0)=1/2
r_x: (n0)=1 (n1)=1
sm: (n0)=1/2
active: (n0)=1 (n1)=1
`

func TestCheck_Valid(t *testing.T) {
	out, _, err := execute(t, "check", listDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Analysis valid (6 predicates, 1 constraints,")
}

func TestCheck_ValidJSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "check", listDir)
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   CheckResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 1, resp.Data.Constraints)
	assert.Greater(t, resp.Data.Rules, resp.Data.Constraints, "property constraints are compiled too")
}

func TestCheck_Invalid(t *testing.T) {
	out, _, err := execute(t, "check", "testdata/invalid")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Check failed")
	assert.Contains(t, out, "E202")
	assert.Contains(t, out, "E210")
}

func TestCheck_MissingDirectory(t *testing.T) {
	out, _, err := execute(t, "check", "/nonexistent/analysis")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
	assert.Contains(t, out, "not found")
}

func TestCheck_BadConfig(t *testing.T) {
	_, _, err := execute(t, "--config", "/nonexistent/tvs.yaml", "check", listDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeConfig)
}

func TestSCCs(t *testing.T) {
	out, _, err := execute(t, "sccs", listDir)
	require.NoError(t, err)
	assert.Contains(t, out, "scc 0")
	assert.Contains(t, out, "x-reach")

	out, _, err = execute(t, "--format", "json", "sccs", listDir)
	require.NoError(t, err)
	var resp struct {
		Data []SCCInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotEmpty(t, resp.Data)
	for i, scc := range resp.Data {
		assert.Equal(t, i, scc.Index)
		assert.NotEmpty(t, scc.Rules)
	}
}

func TestBlur_NamedStructure(t *testing.T) {
	out, _, err := execute(t, "blur", listDir, "--name", "chain3")
	require.NoError(t, err)
	assert.Equal(t, blurredChain3, out)
}

func TestBlur_JSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "blur", listDir, "-n", "chain3")
	require.NoError(t, err)

	var resp struct {
		Data []StructureOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Len(t, resp.Data[0].Digest, 64)
	assert.Contains(t, string(resp.Data[0].Structure), `"sm":{"(n0)":"1/2"}`)
}

func TestBlur_RequiresTarget(t *testing.T) {
	_, _, err := execute(t, "blur", listDir)
	require.Error(t, err)
}

func TestBlur_UnknownStructure(t *testing.T) {
	_, _, err := execute(t, "blur", listDir, "--name", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeUnknown)
}

func TestCoerce_Sharpens(t *testing.T) {
	out, _, err := execute(t, "coerce", listDir, "--name", "maybe")
	require.NoError(t, err)
	assert.Equal(t, "result: modified\nnodes: n0\nactive: (n0)=1\n", out)
}

func TestCoerce_Infeasible(t *testing.T) {
	out, errOut, err := execute(t, "coerce", listDir, "--structure", "testdata/structures/two_heads.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeInfeasible)
	assert.Contains(t, errOut, "x/unique")
}

func TestCoerce_BadStructureFile(t *testing.T) {
	_, _, err := execute(t, "coerce", listDir, "-s", "testdata/structures/bad_predicate.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeStructure)
	assert.Contains(t, err.Error(), `unknown predicate "y"`)
}

func TestFocus_SplitsAndPrunes(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "focus", listDir, "-n", "maybe", "-f", "at_x")
	require.NoError(t, err)
	var resp struct {
		Data []StructureOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Len(t, resp.Data, 2)

	out, _, err = execute(t, "--format", "json", "focus", listDir, "-n", "maybe", "-f", "at_x", "--prune")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Len(t, resp.Data, 1, "x(u0)=1 breaches x-reach")
}

func TestFocus_UnknownFormula(t *testing.T) {
	_, _, err := execute(t, "focus", listDir, "-n", "maybe", "-f", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeUnknown)
}
