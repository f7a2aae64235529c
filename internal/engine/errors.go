package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/tvs/internal/focus"
)

// AnalysisError represents an error that stopped a run.
//
// The wrapped error, when present, is the cause reported by the focus,
// coerce or transformer layer and is reachable through errors.As.
type AnalysisError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// RunID identifies the run.
	RunID string

	// Location and Edge name the step that failed, if any.
	Location string
	Edge     string

	// Details contains additional context.
	Details map[string]string

	Err error
}

// ErrorCode categorizes analysis errors.
type ErrorCode string

const (
	// ErrCodeNonTermination indicates focus refused an instance that
	// touches several summary nodes.
	ErrCodeNonTermination ErrorCode = "FOCUS_NONTERMINATION"

	// ErrCodeQuotaExceeded indicates the run exceeded max steps or a focus
	// call exceeded its output bound.
	ErrCodeQuotaExceeded ErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeInvalidSpec indicates a formula or edge that cannot be used.
	ErrCodeInvalidSpec ErrorCode = "INVALID_SPEC"

	// ErrCodeTransformer indicates an edge transformer returned an error.
	ErrCodeTransformer ErrorCode = "TRANSFORMER_FAILED"
)

// Error implements the error interface.
func (e *AnalysisError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Edge != "" {
		msg += fmt.Sprintf(" (run=%s, location=%s, edge=%s)", e.RunID, e.Location, e.Edge)
	} else if e.RunID != "" {
		msg += fmt.Sprintf(" (run=%s)", e.RunID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// IsNonTermination returns true if err reports a focus non-termination
// hazard, either as an AnalysisError or as the raw focus error.
func IsNonTermination(err error) bool {
	var ae *AnalysisError
	if errors.As(err, &ae) && ae.Code == ErrCodeNonTermination {
		return true
	}
	return focus.IsNonTermination(err)
}

// IsQuotaError returns true if the error is a quota exceeded error.
// Matches AnalysisError with ErrCodeQuotaExceeded, StepsExceededError and
// focus.QuotaError.
// Uses errors.As to handle wrapped errors.
func IsQuotaError(err error) bool {
	var ae *AnalysisError
	if errors.As(err, &ae) && ae.Code == ErrCodeQuotaExceeded {
		return true
	}
	var se *StepsExceededError
	if errors.As(err, &se) {
		return true
	}
	var fq *focus.QuotaError
	return errors.As(err, &fq)
}

// classify maps a step failure to an error code.
func classify(err error) ErrorCode {
	var (
		nt *focus.NonTerminationError
		fq *focus.QuotaError
		se *focus.SpecError
		qe *StepsExceededError
	)
	switch {
	case errors.As(err, &nt):
		return ErrCodeNonTermination
	case errors.As(err, &fq), errors.As(err, &qe):
		return ErrCodeQuotaExceeded
	case errors.As(err, &se):
		return ErrCodeInvalidSpec
	}
	return ErrCodeTransformer
}

// NewQuotaError creates an AnalysisError for an exhausted step quota.
func NewQuotaError(runID string, steps, maxSteps int) *AnalysisError {
	return &AnalysisError{
		Code:    ErrCodeQuotaExceeded,
		Message: fmt.Sprintf("run exceeded max steps (%d > %d)", steps, maxSteps),
		RunID:   runID,
		Details: map[string]string{
			"steps":     fmt.Sprintf("%d", steps),
			"max_steps": fmt.Sprintf("%d", maxSteps),
		},
	}
}
