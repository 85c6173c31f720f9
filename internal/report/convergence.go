package report

import (
	"math"
)

// ConvergenceConfig defines how a loss history is judged to have plateaued.
type ConvergenceConfig struct {
	// Threshold is the minimum relative improvement that counts as progress.
	// Relative improvement = (lastSignificant - cost) / |lastSignificant|
	Threshold float64

	// Patience is the number of trailing generations without significant
	// improvement after which the run is reported as plateaued.
	Patience int
}

// DefaultConvergenceConfig returns sensible defaults for convergence analysis
func DefaultConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{
		Threshold: 0.001, // 0.1% improvement
		Patience:  10,
	}
}

// Summary describes the convergence behavior of a finished run.
type Summary struct {
	Generations int

	InitialBest float64
	FinalBest   float64

	Improvement         float64 // InitialBest - FinalBest
	RelativeImprovement float64 // Improvement / |InitialBest|, 0 if InitialBest is 0

	// LastImprovement is the 1-based generation of the last significant
	// improvement, or 0 if there was none after the first generation.
	LastImprovement int

	// StaleGenerations counts trailing generations without significant improvement.
	StaleGenerations int

	Plateaued bool
}

// Summarize analyzes a loss history. It never influences the optimizer;
// the history is only read after the run.
func Summarize(history []float64, cfg ConvergenceConfig) Summary {
	if len(history) == 0 {
		return Summary{}
	}

	s := Summary{
		Generations: len(history),
		InitialBest: history[0],
		FinalBest:   history[len(history)-1],
	}
	s.Improvement = s.InitialBest - s.FinalBest
	if s.InitialBest != 0 {
		s.RelativeImprovement = s.Improvement / math.Abs(s.InitialBest)
	}

	lastSignificant := history[0]
	for i := 1; i < len(history); i++ {
		if significant(lastSignificant, history[i], cfg.Threshold) {
			lastSignificant = history[i]
			s.LastImprovement = i + 1
			s.StaleGenerations = 0
		} else {
			s.StaleGenerations++
		}
	}

	s.Plateaued = cfg.Patience > 0 && s.StaleGenerations >= cfg.Patience
	return s
}

func significant(reference, cost, threshold float64) bool {
	if cost >= reference {
		return false
	}
	if reference == 0 {
		// Any decrease from zero is significant
		return true
	}
	return (reference-cost)/math.Abs(reference) >= threshold
}
