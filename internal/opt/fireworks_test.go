package opt

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/fireworks/internal/problem"
)

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Epoch = 3
	cfg.PopSize = 5
	cfg.Seed = 7
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{"negative epoch", func(c *Config) { c.Epoch = -1 }, "Epoch"},
		{"pop size below 2", func(c *Config) { c.PopSize = 1 }, "PopSize"},
		{"negative spark budget", func(c *Config) { c.M = -1 }, "M"},
		{"a below 0", func(c *Config) { c.A = -0.1 }, "A"},
		{"b above 1", func(c *Config) { c.B = 1.5 }, "B"},
		{"a above b", func(c *Config) { c.A, c.B = 0.5, 0.4 }, "A"},
		{"NaN amplitude", func(c *Config) { c.Amplitude = math.NaN() }, "Amplitude"},
		{"negative gaussian sparks", func(c *Config) { c.GaussianSparks = -2 }, "GaussianSparks"},
		{"zero epoch allowed", func(c *Config) { c.Epoch = 0 }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()

			if tt.field == "" {
				if err != nil {
					t.Fatalf("Expected valid config, got %v", err)
				}
				return
			}

			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Expected ConfigurationError, got %v", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Expected field %q, got %q", tt.field, cfgErr.Field)
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Error("Expected errors.Is(err, ErrConfiguration)")
			}
		})
	}
}

func TestNewSearchRejectsBadProblem(t *testing.T) {
	calls := 0
	counting := func(x []float64) float64 {
		calls++
		return problem.Sphere(x)
	}

	tests := []struct {
		name string
		p    problem.Problem
	}{
		{"zero dimension", problem.Func(counting, 0, -1, 1)},
		{"equal bounds", problem.Func(counting, 2, 1, 1)},
		{"inverted bounds", problem.Func(counting, 2, 1, -1)},
		{"infinite bound", problem.Func(counting, 2, math.Inf(-1), 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSearch(tt.p, smallConfig())
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("Expected ConfigurationError, got %v", err)
			}
		})
	}

	if calls != 0 {
		t.Errorf("Expected no evaluations before configuration is rejected, got %d", calls)
	}
}

func TestFireworksOnSphereScenario(t *testing.T) {
	p := problem.Func(problem.Sphere, 2, -1, 1)
	cfg := smallConfig()

	initial, err := NewSearch(p, cfg)
	if err != nil {
		t.Fatalf("NewSearch failed: %v", err)
	}
	worst := math.Inf(-1)
	for _, ind := range initial.Population() {
		worst = math.Max(worst, ind.Fitness)
	}

	result, err := NewFireworks(cfg).Run(p)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.LossHistory) != 3 {
		t.Fatalf("Expected loss history of length 3, got %d", len(result.LossHistory))
	}
	for i := 1; i < len(result.LossHistory); i++ {
		if result.LossHistory[i] > result.LossHistory[i-1] {
			t.Errorf("Loss history increased at generation %d: %v", i+1, result.LossHistory)
		}
	}
	if result.BestFitness >= worst {
		t.Errorf("Expected best fitness %f below initial worst %f", result.BestFitness, worst)
	}
	if result.BestFitness != result.LossHistory[len(result.LossHistory)-1] {
		t.Errorf("Best fitness %f does not match last loss entry %f", result.BestFitness, result.LossHistory[2])
	}
	if len(result.BestPosition) != 2 {
		t.Errorf("Expected 2 coordinates, got %d", len(result.BestPosition))
	}
}

func TestSearchInvariants(t *testing.T) {
	p := problem.Func(problem.Rastrigin, 4, -5.12, 5.12)
	cfg := DefaultConfig()
	cfg.PopSize = 8
	cfg.Amplitude = 10 // large enough that sparks regularly leave the domain
	cfg.GaussianSparks = 6
	cfg.Seed = 99

	s, err := NewSearch(p, cfg)
	if err != nil {
		t.Fatalf("NewSearch failed: %v", err)
	}

	prev := s.Best().Fitness
	for gen := 1; gen <= 25; gen++ {
		if err := s.Step(); err != nil {
			t.Fatalf("Step %d failed: %v", gen, err)
		}

		pop := s.Population()
		best := s.Best()

		if len(pop) != cfg.PopSize {
			t.Fatalf("Generation %d: population size %d, expected %d", gen, len(pop), cfg.PopSize)
		}

		for i, ind := range pop {
			for k, v := range ind.Position {
				if v < -5.12 || v > 5.12 {
					t.Fatalf("Generation %d: individual %d coordinate %d = %f out of bounds", gen, i, k, v)
				}
			}
		}

		if best.Fitness > prev {
			t.Fatalf("Generation %d: best fitness increased from %f to %f", gen, prev, best.Fitness)
		}
		prev = best.Fitness

		elite := pop[len(pop)-1]
		if elite.Fitness != best.Fitness || !equalPositions(elite.Position, best.Position) {
			t.Errorf("Generation %d: global best not retained in population", gen)
		}

		if s.Generation() != gen {
			t.Errorf("Expected generation %d, got %d", gen, s.Generation())
		}
		if len(s.LossHistory()) != gen {
			t.Errorf("Expected %d loss entries, got %d", gen, len(s.LossHistory()))
		}
	}
}

func TestFireworksDeterministic(t *testing.T) {
	p := problem.Func(problem.Ackley, 3, -5, 5)
	cfg := DefaultConfig()
	cfg.Epoch = 10
	cfg.PopSize = 6
	cfg.Seed = 123

	r1, err := NewFireworks(cfg).Run(p)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	r2, err := NewFireworks(cfg).Run(p)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(r1.LossHistory) != len(r2.LossHistory) {
		t.Fatalf("History lengths differ: %d vs %d", len(r1.LossHistory), len(r2.LossHistory))
	}
	for i := range r1.LossHistory {
		if r1.LossHistory[i] != r2.LossHistory[i] {
			t.Errorf("Non-deterministic at generation %d: %f vs %f", i+1, r1.LossHistory[i], r2.LossHistory[i])
		}
	}
	if !equalPositions(r1.BestPosition, r2.BestPosition) {
		t.Errorf("Best positions differ: %v vs %v", r1.BestPosition, r2.BestPosition)
	}
	if r1.Evaluations != r2.Evaluations {
		t.Errorf("Evaluation counts differ: %d vs %d", r1.Evaluations, r2.Evaluations)
	}
}

func TestFireworksConvergesOnSphere(t *testing.T) {
	p := problem.Func(problem.Sphere, 3, -5, 5)
	cfg := DefaultConfig()
	cfg.Epoch = 100
	cfg.PopSize = 10
	cfg.Amplitude = 2
	cfg.Seed = 42

	result, err := NewFireworks(cfg).Run(p)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.BestFitness > 1.0 {
		t.Errorf("Expected cost near 0, got %f", result.BestFitness)
	}
}

func TestSearchDegenerateEqualFitness(t *testing.T) {
	p := problem.Func(problem.Sphere, 3, -1, 1)
	cfg := smallConfig()

	s, err := NewSearch(p, cfg)
	if err != nil {
		t.Fatalf("NewSearch failed: %v", err)
	}

	// Collapse the population onto a single point
	point := []float64{0.25, -0.5, 0.75}
	fit := problem.Sphere(point)
	for i := range s.pop {
		s.pop[i] = Individual{Position: append([]float64{}, point...), Fitness: fit}
	}
	s.best = s.pop[0].Clone()

	if err := s.Step(); err != nil {
		t.Fatalf("Step failed: %v", err)
	}

	pop := s.Population()
	if len(pop) != cfg.PopSize {
		t.Fatalf("Expected population of %d, got %d", cfg.PopSize, len(pop))
	}
	for _, ind := range pop {
		if math.IsNaN(ind.Fitness) {
			t.Fatal("NaN fitness in next generation")
		}
		for _, v := range ind.Position {
			if math.IsNaN(v) || v < -1 || v > 1 {
				t.Fatalf("Invalid coordinate %v in next generation", v)
			}
		}
	}
	if s.Best().Fitness > fit {
		t.Errorf("Best fitness %f worse than collapsed fitness %f", s.Best().Fitness, fit)
	}
}

func TestSearchEvaluationError(t *testing.T) {
	failAfter := errors.New("objective exploded")
	calls := 0
	p := &failingProblem{
		dim: 2,
		fn: func(x []float64) (float64, error) {
			calls++
			if calls > 20 {
				return 0, failAfter
			}
			return problem.Sphere(x), nil
		},
	}

	_, err := NewFireworks(smallConfig()).Run(p)
	if err == nil {
		t.Fatal("Expected evaluation error")
	}
	if !errors.Is(err, failAfter) {
		t.Errorf("Expected wrapped objective error, got %v", err)
	}

	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("Expected EvaluationError, got %T", err)
	}
	if evalErr.Generation != 1 {
		t.Errorf("Expected failure in generation 1, got %d", evalErr.Generation)
	}
	if len(evalErr.Position) != 2 {
		t.Errorf("Expected failing position to be reported, got %v", evalErr.Position)
	}
}

func TestSearchRejectsNaNFitness(t *testing.T) {
	p := problem.Func(func(x []float64) float64 { return math.NaN() }, 2, -1, 1)

	_, err := NewSearch(p, smallConfig())
	if !errors.Is(err, ErrNonFiniteFitness) {
		t.Fatalf("Expected ErrNonFiniteFitness, got %v", err)
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) && evalErr.Generation != 0 {
		t.Errorf("Expected failure during initialization, got generation %d", evalErr.Generation)
	}
}

func TestObserverAndEvaluationCount(t *testing.T) {
	cfg := smallConfig()
	cfg.Epoch = 4
	var seen []int
	var bests []float64
	cfg.Observer = func(gen int, best Individual) {
		seen = append(seen, gen)
		bests = append(bests, best.Fitness)
	}

	result, err := NewFireworks(cfg).Run(problem.Func(problem.Sphere, 2, -1, 1))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(seen) != cfg.Epoch {
		t.Fatalf("Expected %d observer calls, got %d", cfg.Epoch, len(seen))
	}
	for i, gen := range seen {
		if gen != i+1 {
			t.Errorf("Observer call %d reported generation %d", i, gen)
		}
		if bests[i] != result.LossHistory[i] {
			t.Errorf("Observer best %f differs from loss history %f", bests[i], result.LossHistory[i])
		}
	}

	minSparks := int(math.RoundToEven(cfg.A*float64(cfg.M))) + 1
	minEvals := cfg.PopSize + cfg.Epoch*(cfg.PopSize*minSparks+cfg.GaussianSparks)
	if result.Evaluations < minEvals {
		t.Errorf("Expected at least %d evaluations, got %d", minEvals, result.Evaluations)
	}
}

func TestZeroEpochReturnsInitialBest(t *testing.T) {
	cfg := smallConfig()
	cfg.Epoch = 0
	p := problem.Func(problem.Sphere, 2, -1, 1)

	s, err := NewSearch(p, cfg)
	if err != nil {
		t.Fatalf("NewSearch failed: %v", err)
	}
	result, err := NewFireworks(cfg).Run(p)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.BestFitness != s.Best().Fitness {
		t.Errorf("Expected initial best %f, got %f", s.Best().Fitness, result.BestFitness)
	}
	if len(result.LossHistory) != 0 {
		t.Errorf("Expected empty loss history, got %v", result.LossHistory)
	}
}

func TestMostIsolatedStableOrder(t *testing.T) {
	pop := Population{
		{Position: []float64{0}, Fitness: 1},
		{Position: []float64{10}, Fitness: 2},
		{Position: []float64{-10}, Fitness: 3},
		{Position: []float64{1}, Fitness: 4},
	}
	// Scores: 0 -> 21, 10 -> 39, -10 -> 41, 1 -> 21 (tie with index 0)
	got := pop.mostIsolated(4)

	expected := []float64{3, 2, 1, 4}
	for i, ind := range got {
		if ind.Fitness != expected[i] {
			t.Errorf("Position %d: expected fitness %v, got %v", i, expected[i], ind.Fitness)
		}
	}

	if n := len(pop.mostIsolated(2)); n != 2 {
		t.Errorf("Expected 2 survivors, got %d", n)
	}
}

func TestPopulationBest(t *testing.T) {
	pop := Population{
		{Position: []float64{0}, Fitness: 3},
		{Position: []float64{1}, Fitness: 1},
		{Position: []float64{2}, Fitness: 1},
	}
	if got := pop.Best(); got != 1 {
		t.Errorf("Expected index 1, got %d", got)
	}
	if got := (Population{}).Best(); got != -1 {
		t.Errorf("Expected -1 for empty population, got %d", got)
	}
}

type failingProblem struct {
	dim int
	fn  func([]float64) (float64, error)
}

func (p *failingProblem) Evaluate(x []float64) (float64, error) { return p.fn(x) }
func (p *failingProblem) Bounds() (float64, float64)            { return -1, 1 }
func (p *failingProblem) Dimension() int                         { return p.dim }

func equalPositions(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
