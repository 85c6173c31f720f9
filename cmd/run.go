package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/fireworks/internal/config"
	"github.com/cwbudde/fireworks/internal/report"
	"github.com/cwbudde/fireworks/internal/store"
	"github.com/spf13/cobra"
)

var (
	configPath string
	problem    string
	dim        int
	lower      float64
	upper      float64
	optimizer  string
	epoch      int
	popSize    int
	sparks     int
	fracA      float64
	fracB      float64
	amplitude  float64
	gaussian   int
	seed       int64
	progress   bool
	save       bool
	dataDir    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single optimization",
	Long: `Minimizes a benchmark problem and prints the best position found.
Parameters come from --config (YAML) with any explicitly set flag taking precedence.`,
	RunE: runOptimization,
}

func init() {
	def := config.Default()

	runCmd.Flags().StringVar(&configPath, "config", "", "YAML run configuration file")
	runCmd.Flags().StringVar(&problem, "problem", def.Problem, "Benchmark problem (ackley, griewank, rastrigin, rosenbrock, schwefel, sphere)")
	runCmd.Flags().IntVar(&dim, "dim", def.Dimension, "Problem dimensionality")
	runCmd.Flags().Float64Var(&lower, "lower", def.Lower, "Domain lower bound (all dimensions)")
	runCmd.Flags().Float64Var(&upper, "upper", def.Upper, "Domain upper bound (all dimensions)")
	runCmd.Flags().StringVar(&optimizer, "optimizer", def.Optimizer, "Optimizer: fireworks, mayfly")
	runCmd.Flags().IntVar(&epoch, "epoch", def.Epoch, "Number of generations")
	runCmd.Flags().IntVar(&popSize, "pop", def.PopSize, "Population size")
	runCmd.Flags().IntVar(&sparks, "m", def.M, "Total spark budget per generation")
	runCmd.Flags().Float64Var(&fracA, "a", def.A, "Lower spark-count fraction of m")
	runCmd.Flags().Float64Var(&fracB, "b", def.B, "Upper spark-count fraction of m")
	runCmd.Flags().Float64Var(&amplitude, "amplitude", def.Amplitude, "Explosion amplitude coefficient")
	runCmd.Flags().IntVar(&gaussian, "gaussian", def.GaussianSparks, "Gaussian mutation sparks per generation")
	runCmd.Flags().Int64Var(&seed, "seed", def.Seed, "Random seed")
	runCmd.Flags().BoolVar(&progress, "progress", false, "Log best fitness after every generation")
	runCmd.Flags().BoolVar(&save, "save", false, "Store the run and its loss trace under --data-dir")
	runCmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Base directory for stored runs")

	rootCmd.AddCommand(runCmd)
}

// resolveRunConfig layers explicitly set flags over the config file (or defaults).
func resolveRunConfig(cmd *cobra.Command) (*config.RunConfig, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	flags := cmd.Flags()
	if flags.Changed("problem") {
		cfg.Problem = problem
	}
	if flags.Changed("dim") {
		cfg.Dimension = dim
	}
	if flags.Changed("lower") {
		cfg.Lower = lower
	}
	if flags.Changed("upper") {
		cfg.Upper = upper
	}
	if flags.Changed("optimizer") {
		cfg.Optimizer = optimizer
	}
	if flags.Changed("epoch") {
		cfg.Epoch = epoch
	}
	if flags.Changed("pop") {
		cfg.PopSize = popSize
	}
	if flags.Changed("m") {
		cfg.M = sparks
	}
	if flags.Changed("a") {
		cfg.A = fracA
	}
	if flags.Changed("b") {
		cfg.B = fracB
	}
	if flags.Changed("amplitude") {
		cfg.Amplitude = amplitude
	}
	if flags.Changed("gaussian") {
		cfg.GaussianSparks = gaussian
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("progress") {
		cfg.Log = progress
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run configuration: %w", err)
	}
	return &cfg, nil
}

func runOptimization(cmd *cobra.Command, args []string) error {
	cfg, err := resolveRunConfig(cmd)
	if err != nil {
		return err
	}

	slog.Info("Starting optimization",
		"optimizer", cfg.Optimizer,
		"problem", cfg.Problem,
		"dimension", cfg.Dimension,
		"epoch", cfg.Epoch,
		"pop_size", cfg.PopSize,
		"seed", cfg.Seed,
	)

	p, err := cfg.BuildProblem()
	if err != nil {
		return err
	}
	o, err := cfg.BuildOptimizer(nil)
	if err != nil {
		return err
	}

	start := time.Now()
	result, err := o.Run(p)
	if err != nil {
		return fmt.Errorf("optimization failed: %w", err)
	}
	elapsed := time.Since(start)

	summary := report.Summarize(result.LossHistory, report.DefaultConvergenceConfig())
	slog.Info("Optimization complete",
		"elapsed", elapsed,
		"best_fitness", result.BestFitness,
		"evaluations", result.Evaluations,
		"generations", summary.Generations,
		"last_improvement", summary.LastImprovement,
		"plateaued", summary.Plateaued,
	)

	fmt.Printf("Best fitness: %.10g (%d evaluations, %s)\n", result.BestFitness, result.Evaluations, elapsed.Round(time.Millisecond))
	fmt.Printf("Best position: %v\n", result.BestPosition)

	if !save {
		return nil
	}

	runStore, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to create run store: %w", err)
	}
	run := store.NewRun(*cfg, result, elapsed)
	if err := runStore.SaveRun(run); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	tw, err := store.NewTraceWriter(runStore.BaseDir(), run.ID)
	if err != nil {
		return fmt.Errorf("failed to create trace: %w", err)
	}
	if err := tw.WriteHistory(result.LossHistory); err != nil {
		tw.Close()
		return fmt.Errorf("failed to write trace: %w", err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to close trace: %w", err)
	}

	slog.Info("Run saved", "run_id", run.ID, "dir", runStore.RunDir(run.ID))
	fmt.Printf("Saved run %s\n", run.ID)
	return nil
}
