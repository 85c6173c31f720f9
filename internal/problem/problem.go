package problem

import "fmt"

// Problem is a bounded minimization problem.
// Every dimension shares the same domain [Lower, Upper].
type Problem interface {
	// Evaluate returns the objective value at position. Lower is better.
	Evaluate(position []float64) (float64, error)

	// Bounds returns the shared domain range applied to every dimension.
	Bounds() (lower, upper float64)

	// Dimension returns the number of coordinates of a position.
	Dimension() int
}

// FuncProblem adapts a plain objective function to the Problem interface.
type FuncProblem struct {
	fn    func([]float64) float64
	dim   int
	lower float64
	upper float64
}

// Func wraps fn as a Problem over [lower, upper]^dim.
func Func(fn func([]float64) float64, dim int, lower, upper float64) *FuncProblem {
	return &FuncProblem{
		fn:    fn,
		dim:   dim,
		lower: lower,
		upper: upper,
	}
}

func (p *FuncProblem) Evaluate(position []float64) (float64, error) {
	if len(position) != p.dim {
		return 0, fmt.Errorf("position has %d coordinates, expected %d", len(position), p.dim)
	}
	return p.fn(position), nil
}

func (p *FuncProblem) Bounds() (float64, float64) {
	return p.lower, p.upper
}

func (p *FuncProblem) Dimension() int {
	return p.dim
}

// UnknownProblemError is returned by New for an unregistered problem name.
type UnknownProblemError struct {
	Name string
}

func (e *UnknownProblemError) Error() string {
	return fmt.Sprintf("unknown problem: %q (available: %v)", e.Name, Names())
}

// New builds a registered benchmark problem by name.
func New(name string, dim int, lower, upper float64) (Problem, error) {
	fn, ok := benchmarks[name]
	if !ok {
		return nil, &UnknownProblemError{Name: name}
	}
	return Func(fn, dim, lower, upper), nil
}
