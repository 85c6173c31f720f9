package opt

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration matches any ConfigurationError via errors.Is.
	ErrConfiguration = &ConfigurationError{}

	// ErrEvaluation matches any EvaluationError via errors.Is.
	ErrEvaluation = &EvaluationError{}

	// ErrNonFiniteFitness is wrapped by EvaluationError when the objective
	// returns NaN or an infinity.
	ErrNonFiniteFitness = errors.New("objective returned a non-finite value")
)

// ConfigurationError reports an invalid optimizer parameter.
// It is returned before any objective evaluation takes place.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Field + " " + e.Reason
}

func (e *ConfigurationError) Is(target error) bool {
	_, ok := target.(*ConfigurationError)
	return ok
}

// EvaluationError reports a failed objective evaluation. The run is aborted.
type EvaluationError struct {
	// Generation is 0 during initialization, k for the k-th generation.
	Generation int
	Position   []float64
	Err        error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluation error at generation %d: %v", e.Generation, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

func (e *EvaluationError) Is(target error) bool {
	_, ok := target.(*EvaluationError)
	return ok
}
