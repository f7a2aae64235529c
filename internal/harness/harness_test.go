package harness

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func loadScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
	require.NoError(t, err)
	return s
}

func TestRun_ListPushConverges(t *testing.T) {
	s := loadScenario(t, "list_push")

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	assert.Equal(t, DefaultRunID, result.RunID)
	assert.Empty(t, result.ErrorCode)

	assert.GreaterOrEqual(t, len(result.Locations["loop"]), 4)
	assert.Len(t, result.Locations["exit"], len(result.Locations["loop"]))
	assert.Len(t, result.Locations["entry"], 1)
	assert.Positive(t, result.Stats.Steps)
}

func TestRun_ExpectedQuotaError(t *testing.T) {
	s := loadScenario(t, "list_push_quota")

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "QUOTA_EXCEEDED", result.ErrorCode)
}

func TestRun_UnexpectedErrorFails(t *testing.T) {
	s := loadScenario(t, "list_push_quota")
	s.ExpectError = ""
	s.Assertions = []Assertion{{Type: AssertMinCount, Location: "loop", Count: 1}}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "run failed")
}

func TestRun_MissingExpectedErrorFails(t *testing.T) {
	s := loadScenario(t, "single")
	s.ExpectError = "QUOTA_EXCEEDED"

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected run to fail with QUOTA_EXCEEDED")
}

func TestRun_FailedAssertionsAreReported(t *testing.T) {
	s := loadScenario(t, "single")
	s.Assertions = []Assertion{
		{Type: AssertCount, Location: "exit", Count: 2},
		{Type: AssertSummary, Location: "exit"},
		{Type: AssertHolds, Location: "exit", Formula: "nonempty", Value: "0"},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "assertion[0]")
	assert.Contains(t, result.Errors[0], "Expected: 2 structures")
	assert.Contains(t, result.Errors[1], "a structure with a summary node")
	assert.Contains(t, result.Errors[2], "nonempty = 0")
}

func TestRun_ScenarioErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Scenario)
		want   string
	}{
		{
			name:   "unknown seed structure",
			mutate: func(s *Scenario) { s.Seeds[0].Structure = "nope" },
			want:   `unknown structure "nope"`,
		},
		{
			name:   "unknown focus formula",
			mutate: func(s *Scenario) { s.Edges[0].Focus = "nope" },
			want:   `unknown focus formula "nope"`,
		},
		{
			name: "invalid config",
			mutate: func(s *Scenario) {
				require.NoError(t, yaml.Unmarshal([]byte("join: fuzzy"), &s.Config))
			},
			want: "invalid scenario config",
		},
		{
			name:   "missing definition",
			mutate: func(s *Scenario) { s.Analysis = "testdata/nowhere" },
			want:   "failed to access analysis definition",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := loadScenario(t, "single")
			tt.mutate(s)
			_, err := Run(context.Background(), s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRun_LogsCarryScenarioRunID(t *testing.T) {
	s := loadScenario(t, "single")
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	result, err := Run(context.Background(), s, WithLogger(logger))
	require.NoError(t, err)
	assert.Equal(t, "single-run", result.RunID)
	assert.Contains(t, buf.String(), `"run_id":"single-run"`)
}

func TestRun_Golden(t *testing.T) {
	result := RunWithGolden(t, loadScenario(t, "single"))
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestMarshalGolden_IndependentOfMemberOrder(t *testing.T) {
	result, err := Run(context.Background(), loadScenario(t, "list_push"))
	require.NoError(t, err)

	first, err := MarshalGolden("list_push", result)
	require.NoError(t, err)

	loop := result.Locations["loop"]
	for i, j := 0, len(loop)-1; i < j; i, j = i+1, j-1 {
		loop[i], loop[j] = loop[j], loop[i]
	}
	second, err := MarshalGolden("list_push", result)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestLoadDefinition(t *testing.T) {
	def, err := LoadDefinition("testdata/list")
	require.NoError(t, err)
	_, ok := def.Formula("push_n")
	assert.True(t, ok)
	_, ok = def.Structure("single")
	assert.True(t, ok)

	def, err = LoadDefinition("testdata/list/analysis.cue")
	require.NoError(t, err)
	assert.Len(t, def.Constraints, 1)
}
