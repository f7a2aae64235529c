package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tvs/internal/focus"
	"github.com/roach88/tvs/internal/join"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, join.Exact, cfg.JoinStrategy())
	assert.Equal(t, focus.Strict, cfg.Policy())
	assert.True(t, cfg.Incremental)
	assert.True(t, cfg.Contrapositives)
	assert.False(t, cfg.FocusMaybeActive)
	assert.Equal(t, 4, cfg.DeltaCostFactor)
	assert.Equal(t, DefaultMaxFocusOutputs, cfg.MaxFocusOutputs)
	assert.Equal(t, DefaultMaxSteps, cfg.MaxSteps)
}

func TestParse_OverridesKeepDefaults(t *testing.T) {
	cfg, err := Parse([]byte("join: partial\nincremental: false\nfocus_policy: lenient\n"))
	require.NoError(t, err)
	assert.Equal(t, join.Partial, cfg.JoinStrategy())
	assert.Equal(t, focus.Lenient, cfg.Policy())
	assert.False(t, cfg.Incremental)
	assert.True(t, cfg.Contrapositives, "absent keys keep their default")
	assert.Equal(t, DefaultMaxSteps, cfg.MaxSteps)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown key", "joins: exact\n", "field joins not found"},
		{"bad strategy", "join: widening\n", "join"},
		{"bad policy", "focus_policy: relaxed\n", "focus_policy"},
		{"negative factor", "delta_cost_factor: -1\n", "delta_cost_factor"},
		{"negative outputs", "max_focus_outputs: -2\n", "max_focus_outputs"},
		{"zero steps", "max_steps: 0\n", "max_steps"},
		{"not yaml", "join: [\n", "parse config"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tvs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("join: single\nmax_steps: 10\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, join.Single, cfg.JoinStrategy())
	assert.Equal(t, 10, cfg.MaxSteps)

	t.Setenv(EnvConfig, path)
	assert.Equal(t, path, FindConfigPath())
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.MaxSteps)

	_, err = LoadFromPath(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "read config")
}

func TestSummary(t *testing.T) {
	assert.Contains(t, Default().Summary(), "join=exact")
}
