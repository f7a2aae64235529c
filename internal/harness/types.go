package harness

import (
	"github.com/roach88/tvs/internal/engine"
	"github.com/roach88/tvs/internal/tvs"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: the run ended as expected and every
	// assertion held.
	Pass bool `json:"pass"`

	// RunID is the id of the analysis run.
	RunID string `json:"run_id"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// ErrorCode is the code of the run error, if the run failed.
	ErrorCode string `json:"error_code,omitempty"`

	// Stats are the engine counters of the run.
	Stats engine.Stats `json:"stats"`

	// Locations maps every location to the structures stored there.
	Locations map[string][]*tvs.Structure `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Errors:    []string{},
		Locations: make(map[string][]*tvs.Structure),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
