package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario describes one analysis run and what it must produce.
// Scenarios pin down the behaviour of whole pipelines: the structures
// reached at each location, the number of them, and the facts that hold
// there.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Analysis is the CUE definition (directory or .cue file). Relative
	// paths are resolved against the scenario file's directory.
	Analysis string `yaml:"analysis"`

	// Config overrides configuration keys, using the config file syntax.
	Config yaml.Node `yaml:"config,omitempty"`

	// RunID fixes the run id for deterministic logs. Defaults to
	// "scenario-run".
	RunID string `yaml:"run_id,omitempty"`

	// Seeds place named structures of the definition at locations.
	Seeds []Seed `yaml:"seeds"`

	// Edges form the program.
	Edges []EdgeSpec `yaml:"edges"`

	// ExpectError, when set, is the error code the run must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Assertions are checked against the structures after the run.
	Assertions []Assertion `yaml:"assertions"`
}

// Seed places a structure at a location before the run.
type Seed struct {
	Location  string `yaml:"location"`
	Structure string `yaml:"structure"`
}

// EdgeSpec is a program edge with a declarative transformer.
type EdgeSpec struct {
	Name string `yaml:"name"`
	From string `yaml:"from"`
	To   string `yaml:"to"`

	// Focus names a formula of the definition to focus on first.
	Focus string `yaml:"focus,omitempty"`

	// New names a unary marker predicate. When set, a fresh active node
	// is allocated with the marker at 1 before the updates are evaluated,
	// and the marker is cleared afterwards.
	New string `yaml:"new,omitempty"`

	// Updates are evaluated simultaneously on the pre-state.
	Updates []Update `yaml:"updates,omitempty"`
}

// Update assigns pred(args) := formula for every tuple of nodes.
// Exactly one of Formula (a named formula) or Value (a Kleene literal)
// must be set.
type Update struct {
	Pred    string   `yaml:"pred"`
	Args    []string `yaml:"args,omitempty"`
	Formula string   `yaml:"formula,omitempty"`
	Value   string   `yaml:"value,omitempty"`
}

// Assertion validates the structures stored at a location.
type Assertion struct {
	// Type specifies the assertion type:
	// - "count": exactly Count structures
	// - "min_count": at least Count structures
	// - "max_nodes": no structure has more than Count nodes
	// - "summary": some structure has a summary node
	// - "holds": the closed Formula evaluates to Value in every structure
	Type string `yaml:"type"`

	Location string `yaml:"location"`

	// Count is used by count, min_count and max_nodes.
	Count int `yaml:"count,omitempty"`

	// Formula names a closed formula (used by holds).
	Formula string `yaml:"formula,omitempty"`

	// Value is the expected Kleene value (used by holds).
	Value string `yaml:"value,omitempty"`
}

// Assertion type constants.
const (
	AssertCount    = "count"
	AssertMinCount = "min_count"
	AssertMaxNodes = "max_nodes"
	AssertSummary  = "summary"
	AssertHolds    = "holds"
)

// DefaultRunID is used when a scenario does not set run_id.
const DefaultRunID = "scenario-run"

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve the definition path before validation checks it exists.
	if scenario.Analysis != "" && !filepath.IsAbs(scenario.Analysis) {
		scenario.Analysis = filepath.Join(filepath.Dir(path), scenario.Analysis)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
// Names of formulas and predicates are checked later, against the
// compiled definition.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Analysis == "" {
		return fmt.Errorf("analysis is required")
	}
	if _, err := os.Stat(s.Analysis); os.IsNotExist(err) {
		return fmt.Errorf("analysis definition not found: %s", s.Analysis)
	}
	if len(s.Seeds) == 0 {
		return fmt.Errorf("seeds list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 && s.ExpectError == "" {
		return fmt.Errorf("assertions list is required unless expect_error is set")
	}

	for i, seed := range s.Seeds {
		if seed.Location == "" || seed.Structure == "" {
			return fmt.Errorf("seeds[%d]: location and structure are required", i)
		}
	}

	for i, e := range s.Edges {
		if e.Name == "" {
			return fmt.Errorf("edges[%d]: name is required", i)
		}
		if e.From == "" || e.To == "" {
			return fmt.Errorf("edges[%d]: from and to are required", i)
		}
		for j, u := range e.Updates {
			if u.Pred == "" {
				return fmt.Errorf("edges[%d].updates[%d]: pred is required", i, j)
			}
			if (u.Formula == "") == (u.Value == "") {
				return fmt.Errorf("edges[%d].updates[%d]: exactly one of formula or value is required", i, j)
			}
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Location == "" {
		return fmt.Errorf("assertions[%d]: location is required", index)
	}

	switch a.Type {
	case AssertCount, AssertMinCount, AssertMaxNodes:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertSummary:
	case AssertHolds:
		if a.Formula == "" || a.Value == "" {
			return fmt.Errorf("assertions[%d]: formula and value are required for holds", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
