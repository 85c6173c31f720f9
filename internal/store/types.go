package store

import (
	"fmt"
	"math"
	"time"

	"github.com/cwbudde/fireworks/internal/config"
	"github.com/cwbudde/fireworks/internal/opt"
	"github.com/google/uuid"
)

// Run is the persisted outcome of one optimization run.
// The loss history is stored separately as a JSONL trace next to it.
type Run struct {
	ID string `json:"id"`

	Config config.RunConfig `json:"config"`

	BestPosition []float64 `json:"bestPosition"`
	BestFitness  float64   `json:"bestFitness"`

	// Generations is the number of completed generations (length of the loss history)
	Generations int `json:"generations"`

	Evaluations int           `json:"evaluations"`
	Elapsed     time.Duration `json:"elapsed"`
	Timestamp   time.Time     `json:"timestamp"`
}

// RunInfo is run metadata without the best position, used for listings.
type RunInfo struct {
	ID          string    `json:"id"`
	Problem     string    `json:"problem"`
	Optimizer   string    `json:"optimizer"`
	Dimension   int       `json:"dimension"`
	BestFitness float64   `json:"bestFitness"`
	Generations int       `json:"generations"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewRun creates a run record with a fresh ID from an optimizer result.
func NewRun(cfg config.RunConfig, result *opt.Result, elapsed time.Duration) *Run {
	return &Run{
		ID:           uuid.New().String(),
		Config:       cfg,
		BestPosition: result.BestPosition,
		BestFitness:  result.BestFitness,
		Generations:  len(result.LossHistory),
		Evaluations:  result.Evaluations,
		Elapsed:      elapsed,
		Timestamp:    time.Now(),
	}
}

// ToInfo converts a full Run to RunInfo (metadata only).
func (r *Run) ToInfo() RunInfo {
	return RunInfo{
		ID:          r.ID,
		Problem:     r.Config.Problem,
		Optimizer:   r.Config.Optimizer,
		Dimension:   r.Config.Dimension,
		BestFitness: r.BestFitness,
		Generations: r.Generations,
		Timestamp:   r.Timestamp,
	}
}

// Validate checks that the run record is complete and self-consistent.
func (r *Run) Validate() error {
	if r.ID == "" {
		return &ValidationError{Field: "ID", Reason: "cannot be empty"}
	}
	if len(r.BestPosition) == 0 {
		return &ValidationError{Field: "BestPosition", Reason: "cannot be empty"}
	}
	if len(r.BestPosition) != r.Config.Dimension {
		return &ValidationError{
			Field:  "BestPosition",
			Reason: fmt.Sprintf("length mismatch: expected %d coordinates, got %d", r.Config.Dimension, len(r.BestPosition)),
		}
	}
	for i, v := range r.BestPosition {
		if v < r.Config.Lower || v > r.Config.Upper {
			return &ValidationError{
				Field:  "BestPosition",
				Reason: fmt.Sprintf("coordinate %d = %g outside [%g, %g]", i, v, r.Config.Lower, r.Config.Upper),
			}
		}
	}
	if math.IsNaN(r.BestFitness) {
		return &ValidationError{Field: "BestFitness", Reason: "cannot be NaN"}
	}
	if r.Generations < 0 {
		return &ValidationError{Field: "Generations", Reason: "cannot be negative"}
	}
	if r.Evaluations < 0 {
		return &ValidationError{Field: "Evaluations", Reason: "cannot be negative"}
	}
	if r.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	return nil
}

// ValidationError represents a run record validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
