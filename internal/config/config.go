package config

import (
	"fmt"
	"os"

	"github.com/cwbudde/fireworks/internal/opt"
	"github.com/cwbudde/fireworks/internal/problem"
	"gopkg.in/yaml.v3"
)

const (
	OptimizerFireworks = "fireworks"
	OptimizerMayfly    = "mayfly"
)

// RunConfig describes one optimization run: the problem, its domain and
// the optimizer parameters. It is loaded from YAML and persisted with
// stored runs as JSON.
type RunConfig struct {
	Problem   string  `yaml:"problem" json:"problem"`
	Dimension int     `yaml:"dimension" json:"dimension"`
	Lower     float64 `yaml:"lower" json:"lower"`
	Upper     float64 `yaml:"upper" json:"upper"`

	Optimizer string `yaml:"optimizer" json:"optimizer"` // fireworks, mayfly

	Epoch          int     `yaml:"epoch" json:"epoch"`
	PopSize        int     `yaml:"pop_size" json:"popSize"`
	M              int     `yaml:"m" json:"m"`
	A              float64 `yaml:"a" json:"a"`
	B              float64 `yaml:"b" json:"b"`
	Amplitude      float64 `yaml:"amplitude" json:"amplitude"`
	GaussianSparks int     `yaml:"gaussian_sparks" json:"gaussianSparks"`

	Seed int64 `yaml:"seed" json:"seed"`
	Log  bool  `yaml:"log" json:"log"`
}

// Default returns the reference configuration.
func Default() RunConfig {
	d := opt.DefaultConfig()
	return RunConfig{
		Problem:        "sphere",
		Dimension:      50,
		Lower:          -1,
		Upper:          1,
		Optimizer:      OptimizerFireworks,
		Epoch:          d.Epoch,
		PopSize:        d.PopSize,
		M:              d.M,
		A:              d.A,
		B:              d.B,
		Amplitude:      d.Amplitude,
		GaussianSparks: d.GaussianSparks,
		Seed:           d.Seed,
	}
}

// Load reads and parses a YAML run configuration file.
func Load(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default and validates the result.
// Fields absent from data keep their default value.
func Parse(data []byte) (*RunConfig, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// ValidationError reports an invalid run configuration field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

// Validate checks the fields owned by the run configuration. Algorithm
// parameters are validated by the optimizer itself.
func (c *RunConfig) Validate() error {
	if _, err := problem.New(c.Problem, c.Dimension, c.Lower, c.Upper); err != nil {
		return err
	}
	if c.Dimension < 1 {
		return &ValidationError{Field: "dimension", Reason: "must be at least 1"}
	}
	if c.Lower >= c.Upper {
		return &ValidationError{Field: "lower", Reason: fmt.Sprintf("must be below upper (%g >= %g)", c.Lower, c.Upper)}
	}
	switch c.Optimizer {
	case OptimizerFireworks, OptimizerMayfly:
	default:
		return &ValidationError{Field: "optimizer", Reason: fmt.Sprintf("unknown optimizer %q (fireworks, mayfly)", c.Optimizer)}
	}
	if c.Optimizer == OptimizerFireworks {
		if err := c.OptimizerConfig().Validate(); err != nil {
			return err
		}
	}
	return nil
}

// OptimizerConfig converts the run configuration into Fireworks parameters.
func (c *RunConfig) OptimizerConfig() opt.Config {
	return opt.Config{
		Epoch:          c.Epoch,
		PopSize:        c.PopSize,
		M:              c.M,
		A:              c.A,
		B:              c.B,
		Amplitude:      c.Amplitude,
		GaussianSparks: c.GaussianSparks,
		Seed:           c.Seed,
		Log:            c.Log,
	}
}

// BuildProblem instantiates the configured benchmark problem.
func (c *RunConfig) BuildProblem() (problem.Problem, error) {
	return problem.New(c.Problem, c.Dimension, c.Lower, c.Upper)
}

// BuildOptimizer instantiates the configured optimizer. The observer, if
// non-nil, receives per-generation updates from Fireworks.
func (c *RunConfig) BuildOptimizer(observer func(int, opt.Individual)) (opt.Optimizer, error) {
	switch c.Optimizer {
	case OptimizerFireworks:
		fc := c.OptimizerConfig()
		fc.Observer = observer
		return opt.NewFireworks(fc), nil
	case OptimizerMayfly:
		return opt.NewMayfly(c.Epoch, c.PopSize, c.Seed), nil
	default:
		return nil, &ValidationError{Field: "optimizer", Reason: fmt.Sprintf("unknown optimizer %q", c.Optimizer)}
	}
}
