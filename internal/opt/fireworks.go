package opt

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/cwbudde/fireworks/internal/problem"
)

// Config holds the Fireworks algorithm parameters.
type Config struct {
	Epoch   int // Number of generations
	PopSize int // Fireworks per generation (n)

	M int     // Total spark budget per generation (m)
	A float64 // Lower spark-count fraction of M (a)
	B float64 // Upper spark-count fraction of M (b)

	Amplitude      float64 // Explosion amplitude coefficient (A_)
	GaussianSparks int     // Gaussian mutation sparks per generation (m_)

	Seed int64

	// Log enables a per-generation progress log line.
	Log bool

	// Observer, if set, is called after every generation with the
	// generation number (1-based) and a copy of the global best.
	Observer func(generation int, best Individual)
}

// DefaultConfig returns the reference parameter set.
func DefaultConfig() Config {
	return Config{
		Epoch:          750,
		PopSize:        100,
		M:              50,
		A:              0.04,
		B:              0.8,
		Amplitude:      40,
		GaussianSparks: 5,
		Seed:           42,
	}
}

// Validate checks the algorithm parameters, independent of any problem.
func (c Config) Validate() error {
	if c.Epoch < 0 {
		return &ConfigurationError{Field: "Epoch", Reason: "cannot be negative"}
	}
	if c.PopSize < 2 {
		return &ConfigurationError{Field: "PopSize", Reason: "must be at least 2"}
	}
	if c.M < 0 {
		return &ConfigurationError{Field: "M", Reason: "cannot be negative"}
	}
	if math.IsNaN(c.A) || c.A < 0 || c.A > 1 {
		return &ConfigurationError{Field: "A", Reason: "must be in [0, 1]"}
	}
	if math.IsNaN(c.B) || c.B < 0 || c.B > 1 {
		return &ConfigurationError{Field: "B", Reason: "must be in [0, 1]"}
	}
	if c.A > c.B {
		return &ConfigurationError{Field: "A", Reason: fmt.Sprintf("must not exceed B (%g > %g)", c.A, c.B)}
	}
	if math.IsNaN(c.Amplitude) || math.IsInf(c.Amplitude, 0) || c.Amplitude < 0 {
		return &ConfigurationError{Field: "Amplitude", Reason: "must be finite and non-negative"}
	}
	if c.GaussianSparks < 0 {
		return &ConfigurationError{Field: "GaussianSparks", Reason: "cannot be negative"}
	}
	return nil
}

// Fireworks is the Fireworks Algorithm behind the Optimizer interface.
type Fireworks struct {
	config Config
}

// NewFireworks creates a Fireworks optimizer with the given parameters.
func NewFireworks(config Config) Optimizer {
	return &Fireworks{config: config}
}

// Run executes exactly Epoch generations and returns the global best.
func (f *Fireworks) Run(p problem.Problem) (*Result, error) {
	s, err := NewSearch(p, f.config)
	if err != nil {
		return nil, err
	}

	for s.Generation() < f.config.Epoch {
		if err := s.Step(); err != nil {
			return nil, err
		}
	}

	best := s.Best()
	return &Result{
		BestPosition: best.Position,
		BestFitness:  best.Fitness,
		LossHistory:  s.LossHistory(),
		Evaluations:  s.Evaluations(),
	}, nil
}

// Search is the state of one Fireworks run: the population, the global
// best and the loss history. It is not safe for concurrent use.
type Search struct {
	config  Config
	problem problem.Problem
	dim     int
	lower   float64
	upper   float64
	rng     *rand.Rand

	pop         Population
	best        Individual
	history     []float64
	generation  int
	evaluations int
}

// NewSearch validates the configuration against p, draws the initial
// population uniformly from the domain and evaluates it.
func NewSearch(p problem.Problem, config Config) (*Search, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	dim := p.Dimension()
	if dim < 1 {
		return nil, &ConfigurationError{Field: "Dimension", Reason: "must be at least 1"}
	}
	lower, upper := p.Bounds()
	if math.IsNaN(lower) || math.IsNaN(upper) || math.IsInf(lower, 0) || math.IsInf(upper, 0) {
		return nil, &ConfigurationError{Field: "Bounds", Reason: "must be finite"}
	}
	if lower >= upper {
		return nil, &ConfigurationError{Field: "Bounds", Reason: fmt.Sprintf("lower must be below upper (%g >= %g)", lower, upper)}
	}

	s := &Search{
		config:  config,
		problem: p,
		dim:     dim,
		lower:   lower,
		upper:   upper,
		rng:     rand.New(rand.NewSource(config.Seed)),
		pop:     make(Population, 0, config.PopSize),
		history: make([]float64, 0, config.Epoch),
	}

	for i := 0; i < config.PopSize; i++ {
		pos := make([]float64, dim)
		for k := range pos {
			pos[k] = lower + s.rng.Float64()*(upper-lower)
		}
		ind, err := s.evaluate(0, pos)
		if err != nil {
			return nil, err
		}
		s.pop = append(s.pop, ind)
	}
	s.best = s.pop[s.pop.Best()].Clone()

	slog.Debug("Fireworks initialized",
		"pop_size", config.PopSize,
		"dimension", dim,
		"lower", lower,
		"upper", upper,
		"initial_best", s.best.Fitness,
	)

	return s, nil
}

// Step runs one generation: explosion sparks, Gaussian sparks, global best
// update and diversity-based selection, in that order.
func (s *Search) Step() error {
	gen := s.generation + 1

	sparks, err := s.explode(gen)
	if err != nil {
		return err
	}
	gaussian, err := s.mutate(gen)
	if err != nil {
		return err
	}

	extended := make(Population, 0, len(s.pop)+len(sparks)+len(gaussian))
	extended = append(extended, s.pop...)
	extended = append(extended, sparks...)
	extended = append(extended, gaussian...)

	if i := extended.Best(); extended[i].Fitness <= s.best.Fitness {
		s.best = extended[i].Clone()
	}
	s.history = append(s.history, s.best.Fitness)

	next := extended.mostIsolated(s.config.PopSize - 1)
	next = append(next, s.best.Clone())
	s.pop = next
	s.generation = gen

	if s.config.Log {
		slog.Info("Generation complete", "generation", gen, "best_fitness", s.best.Fitness)
	}
	slog.Debug("Generation detail",
		"generation", gen,
		"explosion_sparks", len(sparks),
		"gaussian_sparks", len(gaussian),
		"extended_size", len(extended),
	)
	if s.config.Observer != nil {
		s.config.Observer(gen, s.best.Clone())
	}

	return nil
}

// explode generates the explosion sparks of every firework. Spark counts and
// amplitudes all derive from the fitness snapshot taken at generation start.
func (s *Search) explode(gen int) (Population, error) {
	maxFit, minFit, sumFit := s.pop.fitnessStats()
	n := float64(len(s.pop))
	m := float64(s.config.M)

	var sparks Population
	for _, fw := range s.pop {
		count := sparkCount(rawSparkCount(m, n, fw.Fitness, maxFit, sumFit), s.config.A, s.config.B, m)
		amp := amplitude(s.config.Amplitude, fw.Fitness, minFit, sumFit)

		for j := 0; j < count; j++ {
			pos := s.spark(fw.Position, func() float64 {
				return amp * (2*s.rng.Float64() - 1)
			})
			ind, err := s.evaluate(gen, pos)
			if err != nil {
				return nil, err
			}
			sparks = append(sparks, ind)
		}
	}
	return sparks, nil
}

// mutate generates GaussianSparks sparks from uniformly chosen fireworks
// with an N(1, 1) displacement.
func (s *Search) mutate(gen int) (Population, error) {
	sparks := make(Population, 0, s.config.GaussianSparks)
	for j := 0; j < s.config.GaussianSparks; j++ {
		fw := s.pop[s.rng.Intn(s.config.PopSize)]
		pos := s.spark(fw.Position, func() float64 {
			return s.rng.NormFloat64() + 1
		})
		ind, err := s.evaluate(gen, pos)
		if err != nil {
			return nil, err
		}
		sparks = append(sparks, ind)
	}
	return sparks, nil
}

// spark copies parent and shifts a random subset of its coordinates by a
// single displacement, repairing each shifted coordinate immediately.
func (s *Search) spark(parent []float64, displacement func() float64) []float64 {
	pos := make([]float64, len(parent))
	copy(pos, parent)

	z := int(math.RoundToEven(s.rng.Float64() * float64(s.dim)))
	dims := s.rng.Perm(s.dim)[:z]
	d := displacement()
	for _, k := range dims {
		pos[k] = repair(pos[k]+d, s.lower, s.upper)
	}
	return pos
}

func (s *Search) evaluate(gen int, pos []float64) (Individual, error) {
	s.evaluations++
	fit, err := s.problem.Evaluate(pos)
	if err != nil {
		return Individual{}, &EvaluationError{Generation: gen, Position: pos, Err: err}
	}
	if math.IsNaN(fit) || math.IsInf(fit, 0) {
		return Individual{}, &EvaluationError{Generation: gen, Position: pos, Err: ErrNonFiniteFitness}
	}
	return Individual{Position: pos, Fitness: fit}, nil
}

// Generation returns the number of completed generations.
func (s *Search) Generation() int {
	return s.generation
}

// Evaluations returns the number of objective evaluations so far.
func (s *Search) Evaluations() int {
	return s.evaluations
}

// Best returns a copy of the global best individual.
func (s *Search) Best() Individual {
	return s.best.Clone()
}

// Population returns a copy of the current population.
func (s *Search) Population() Population {
	return s.pop.Clone()
}

// LossHistory returns a copy of the per-generation global best fitness.
func (s *Search) LossHistory() []float64 {
	return append([]float64{}, s.history...)
}
