package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"gopkg.in/yaml.v3"

	"github.com/roach88/tvs/internal/compiler"
	"github.com/roach88/tvs/internal/config"
	"github.com/roach88/tvs/internal/engine"
)

// Option configures Run.
type Option func(*runOptions)

type runOptions struct {
	logger *slog.Logger
}

// WithLogger routes engine logs to l. By default they are discarded.
func WithLogger(l *slog.Logger) Option {
	return func(o *runOptions) { o.logger = l }
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Load and compile the analysis definition
//  2. Build the engine with the scenario's config and a fixed run id
//  3. Compile the edges and place the seeds
//  4. Run to a fixpoint and compare the outcome with expect_error
//  5. Evaluate assertions against the stored structures
//
// Errors in the scenario itself (unknown names, bad config) are returned
// as errors. Analysis failures and assertion failures are reported in the
// Result.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	o := &runOptions{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(o)
	}

	def, err := LoadDefinition(scenario.Analysis)
	if err != nil {
		return nil, err
	}

	cfg, err := scenarioConfig(scenario)
	if err != nil {
		return nil, err
	}

	runID := scenario.RunID
	if runID == "" {
		runID = DefaultRunID
	}
	a, err := engine.New(def.Vocabulary, def.Constraints,
		engine.WithConfig(cfg),
		engine.WithLogger(o.logger),
		engine.WithRunIDGenerator(engine.NewFixedGenerator(runID)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis: %w", err)
	}

	for _, spec := range scenario.Edges {
		e, err := compileEdge(def, spec)
		if err != nil {
			return nil, err
		}
		if err := a.AddEdge(e); err != nil {
			return nil, fmt.Errorf("failed to add edge %s: %w", spec.Name, err)
		}
	}

	for i, seed := range scenario.Seeds {
		ns, ok := def.Structure(seed.Structure)
		if !ok {
			return nil, fmt.Errorf("seeds[%d]: unknown structure %q", i, seed.Structure)
		}
		if err := a.Seed(seed.Location, ns.Structure); err != nil {
			return nil, fmt.Errorf("seeds[%d]: %w", i, err)
		}
	}

	result := NewResult()
	result.RunID = a.RunID()
	runErr := a.Run(ctx)
	result.Stats = a.Stats()
	for _, loc := range a.Locations() {
		result.Locations[loc] = a.Structures(loc)
	}

	checkRunError(scenario, runErr, result)
	for _, msg := range EvaluateAssertions(def, result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// checkRunError compares the run error with the expected error code.
func checkRunError(scenario *Scenario, runErr error, result *Result) {
	var ae *engine.AnalysisError
	if errors.As(runErr, &ae) {
		result.ErrorCode = string(ae.Code)
	}

	switch {
	case runErr == nil && scenario.ExpectError != "":
		result.AddError(fmt.Sprintf("expected run to fail with %s, but it succeeded", scenario.ExpectError))
	case runErr != nil && scenario.ExpectError == "":
		result.AddError(fmt.Sprintf("run failed: %v", runErr))
	case runErr != nil && result.ErrorCode != scenario.ExpectError:
		result.AddError(fmt.Sprintf("expected error %s, got %v", scenario.ExpectError, runErr))
	}
}

// scenarioConfig decodes the scenario's config overrides onto the
// defaults.
func scenarioConfig(scenario *Scenario) (*config.Config, error) {
	if scenario.Config.Kind == 0 {
		return config.Default(), nil
	}
	data, err := yaml.Marshal(&scenario.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	cfg, err := config.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid scenario config: %w", err)
	}
	return cfg, nil
}

// LoadDefinition loads and compiles the CUE definition at path, a package
// directory or a single .cue file.
func LoadDefinition(path string) (*compiler.Analysis, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access analysis definition: %w", err)
	}
	cfg, args := &load.Config{Dir: path}, []string{"."}
	if !info.IsDir() {
		cfg, args = &load.Config{Dir: filepath.Dir(path)}, []string{"./" + filepath.Base(path)}
	}

	instances := load.Instances(args, cfg)
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", path)
	}
	if err := instances[0].Err; err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	value := cuecontext.New().BuildInstance(instances[0])
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("failed to build %s: %w", path, err)
	}
	def, err := compiler.Compile(value)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s: %w", path, err)
	}
	return def, nil
}
