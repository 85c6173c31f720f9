package opt

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/fireworks/internal/problem"
	"github.com/cwbudde/mayfly"
)

// MayflyAdapter wraps the external Mayfly library to conform to our Optimizer interface.
// It serves as a baseline to compare Fireworks against on the same problem.
type MayflyAdapter struct {
	maxIters int
	popSize  int
	seed     int64
}

// NewMayfly creates a new Mayfly optimizer adapter
func NewMayfly(maxIters, popSize int, seed int64) Optimizer {
	return &MayflyAdapter{
		maxIters: maxIters,
		popSize:  popSize,
		seed:     seed,
	}
}

// Run executes the Mayfly optimization using the external library.
// The library does not report per-iteration state, so LossHistory stays empty.
func (m *MayflyAdapter) Run(p problem.Problem) (*Result, error) {
	lower, upper := p.Bounds()
	if lower >= upper {
		return nil, &ConfigurationError{Field: "Bounds", Reason: "lower must be below upper"}
	}

	// The library takes a plain objective; the first evaluation failure is
	// captured here and reported once the run returns.
	var evalErr error
	evaluations := 0
	eval := func(x []float64) float64 {
		evaluations++
		if evalErr != nil {
			return math.Inf(1)
		}
		fit, err := p.Evaluate(x)
		if err == nil && (math.IsNaN(fit) || math.IsInf(fit, 0)) {
			err = ErrNonFiniteFitness
		}
		if err != nil {
			pos := make([]float64, len(x))
			copy(pos, x)
			evalErr = &EvaluationError{Position: pos, Err: err}
			return math.Inf(1)
		}
		return fit
	}

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = eval
	config.ProblemSize = p.Dimension()
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize

	// External library uses scalar bounds, matching the shared domain range
	config.LowerBound = lower
	config.UpperBound = upper

	// Set random seed for reproducibility
	config.Rand = rand.New(rand.NewSource(m.seed))

	result, err := mayfly.Optimize(config)
	if evalErr != nil {
		return nil, evalErr
	}
	if err != nil {
		return nil, fmt.Errorf("mayfly optimization failed: %w", err)
	}

	return &Result{
		BestPosition: result.GlobalBest.Position,
		BestFitness:  result.GlobalBest.Cost,
		Evaluations:  evaluations,
	}, nil
}
