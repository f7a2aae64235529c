// Package config holds the options of one analysis run.
//
// Options are read once, before the analysis starts, and handed to the
// engine by pointer. A config file is optional; missing keys keep their
// defaults.
//
// Config file locations (priority order):
//  1. the path passed on the command line
//  2. $TVS_CONFIG
//  3. ./tvs.yaml
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tvs/internal/focus"
	"github.com/roach88/tvs/internal/join"
	"github.com/roach88/tvs/internal/tvs"
)

// EnvConfig names the environment variable consulted by FindConfigPath.
const EnvConfig = "TVS_CONFIG"

// Default values.
const (
	DefaultMaxFocusOutputs = 4096
	DefaultMaxSteps        = 100000
)

// Config is the analysis configuration.
type Config struct {
	// Join selects the TVSSet strategy: exact, partial or single.
	Join string `yaml:"join"`

	// Incremental enables delta-driven coerce after join.
	Incremental bool `yaml:"incremental"`

	// FocusMaybeActive lets focus split on nodes whose active value is 1/2.
	FocusMaybeActive bool `yaml:"focus_maybe_active"`

	// FocusPolicy is strict or lenient.
	FocusPolicy string `yaml:"focus_policy"`

	// DeltaCostFactor weights the delta cost heuristic; 0 never suppresses
	// a delta.
	DeltaCostFactor int `yaml:"delta_cost_factor"`

	// Contrapositives adds the contrapositive of every constraint.
	Contrapositives bool `yaml:"contrapositives"`

	// MaxFocusOutputs bounds one focus call; 0 is unlimited.
	MaxFocusOutputs int `yaml:"max_focus_outputs"`

	// MaxSteps bounds the number of engine steps in one run.
	MaxSteps int `yaml:"max_steps"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Join:            join.Exact.String(),
		Incremental:     true,
		FocusPolicy:     focus.Strict.String(),
		DeltaCostFactor: tvs.DefaultDeltaCostFactor,
		Contrapositives: true,
		MaxFocusOutputs: DefaultMaxFocusOutputs,
		MaxSteps:        DefaultMaxSteps,
	}
}

// FindConfigPath returns the first existing config file, or "" if none.
func FindConfigPath() string {
	if p := os.Getenv(EnvConfig); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if _, err := os.Stat("tvs.yaml"); err == nil {
		return "tvs.yaml"
	}
	return ""
}

// Load reads the config at path. An empty path falls back to FindConfigPath
// and then to Default.
func Load(path string) (*Config, error) {
	if path == "" {
		path = FindConfigPath()
	}
	if path == "" {
		return Default(), nil
	}
	return LoadFromPath(path)
}

// LoadFromPath reads and validates the config at path.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills in empty enumerations.
func (c *Config) applyDefaults() {
	if c.Join == "" {
		c.Join = join.Exact.String()
	}
	if c.FocusPolicy == "" {
		c.FocusPolicy = focus.Strict.String()
	}
}

// Validate checks enumerations and bounds.
func (c *Config) Validate() error {
	if _, err := join.ParseStrategy(c.Join); err != nil {
		return fmt.Errorf("join: %w", err)
	}
	if _, err := focus.ParsePolicy(c.FocusPolicy); err != nil {
		return fmt.Errorf("focus_policy: %w", err)
	}
	if c.DeltaCostFactor < 0 {
		return fmt.Errorf("delta_cost_factor must be >= 0, got %d", c.DeltaCostFactor)
	}
	if c.MaxFocusOutputs < 0 {
		return fmt.Errorf("max_focus_outputs must be >= 0, got %d", c.MaxFocusOutputs)
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("max_steps must be > 0, got %d", c.MaxSteps)
	}
	return nil
}

// JoinStrategy returns the parsed join strategy. Invalid values map to
// exact; call Validate first.
func (c *Config) JoinStrategy() join.Strategy {
	s, _ := join.ParseStrategy(c.Join)
	return s
}

// Policy returns the parsed focus policy. Invalid values map to strict.
func (c *Config) Policy() focus.Policy {
	p, _ := focus.ParsePolicy(c.FocusPolicy)
	return p
}

// Summary returns a one-line description of the configuration.
func (c *Config) Summary() string {
	return fmt.Sprintf("join=%s incremental=%t focus_policy=%s focus_maybe_active=%t contrapositives=%t delta_cost_factor=%d max_steps=%d",
		c.Join, c.Incremental, c.FocusPolicy, c.FocusMaybeActive, c.Contrapositives, c.DeltaCostFactor, c.MaxSteps)
}
