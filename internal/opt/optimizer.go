package opt

import "github.com/cwbudde/fireworks/internal/problem"

// Optimizer defines an optimization algorithm interface
type Optimizer interface {
	// Run minimizes p and returns the best solution found.
	Run(p problem.Problem) (*Result, error)
}

// Result is the outcome of a completed run.
type Result struct {
	BestPosition []float64
	BestFitness  float64

	// LossHistory holds the global best fitness recorded once per generation.
	// Optimizers that do not expose per-generation state leave it empty.
	LossHistory []float64

	// Evaluations counts objective function calls, including initialization.
	Evaluations int
}
