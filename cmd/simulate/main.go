// Package main provides the batch simulation CLI: load scenarios from a JSON
// file or from PostgreSQL, run the Monte Carlo engine, and print or persist
// the result. SIGINT cancels cooperatively and yields a partial result.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"risklab/internal/domain"
	"risklab/internal/engine"
	"risklab/internal/storage/migrations"
	pgstore "risklab/internal/storage/postgres"
)

func main() {
	scenarioFile := flag.String("scenarios", "", "Path to JSON file with an array of risk scenarios")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string (scenario source and/or result sink)")
	persist := flag.Bool("persist", false, "Persist the run result to PostgreSQL")
	iterations := flag.Int("iterations", domain.DefaultIterations, "Number of Monte Carlo iterations")
	seed := flag.Int64("seed", 0, "Random seed (0 = derive from clock)")
	confidenceLevels := flag.String("confidence-levels", "", "Comma-separated percentiles to report (default 5,10,25,50,75,90,95,99)")
	threshold := flag.Float64("ruin-threshold", 0, "Catastrophic loss threshold for probability of ruin")
	horizon := flag.Int("horizon-years", domain.DefaultTimeHorizonYears, "Time horizon for the financial projection")
	discountRate := flag.Float64("discount-rate", 0, "Annual discount rate for the exposure projection")
	retainOutcomes := flag.Bool("retain-outcomes", false, "Keep the full per-iteration loss sample in memory")
	workers := flag.Int("workers", 0, "Parallel workers (0 = GOMAXPROCS)")
	batchSize := flag.Int("batch-size", 0, "Iteration batch size (0 = default)")
	format := flag.String("format", "text", "Output format: text or json")
	verbose := flag.Bool("verbose", false, "Print progress to stderr while running")
	flag.Parse()

	ctx := context.Background()

	scenarios, pool, err := loadScenarios(ctx, *scenarioFile, *postgresDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading scenarios: %v\n", err)
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
	}

	params := domain.DefaultParameters()
	params.Iterations = *iterations
	params.TimeHorizonYears = *horizon
	params.DiscountRate = *discountRate
	params.CatastrophicLossThreshold = *threshold
	params.RetainOutcomes = *retainOutcomes
	params.Workers = *workers
	params.BatchSize = *batchSize
	if *seed != 0 {
		params.Seed = seed
	}
	if *confidenceLevels != "" {
		levels, err := parseLevels(*confidenceLevels)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		params.ConfidenceLevels = levels
	}

	run, err := engine.Start(ctx, scenarios, params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting simulation: %v\n", err)
		os.Exit(1)
	}

	// First SIGINT cancels cooperatively; the run drains in-flight batches
	// and produces a partial result. A second SIGINT kills the process.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "Cancelling, producing partial result...")
		run.Cancel()
		<-sigCh
		os.Exit(1)
	}()

	if *verbose {
		go printProgress(run)
	}

	result, err := run.Wait(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error waiting for simulation: %v\n", err)
		os.Exit(1)
	}

	if *persist {
		if pool == nil {
			fmt.Fprintln(os.Stderr, "Error: --persist requires --postgres-dsn")
			os.Exit(1)
		}
		if err := pgstore.NewSimulationRunStore(pool).Insert(ctx, result); err != nil {
			fmt.Fprintf(os.Stderr, "Error persisting run: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Persisted run %s\n", result.RunID)
	}

	if err := printResult(result, *format); err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering result: %v\n", err)
		os.Exit(1)
	}
}

// loadScenarios reads the scenario set from a JSON file, or from PostgreSQL
// when no file is given. Returns the pool for reuse when one was opened.
func loadScenarios(ctx context.Context, file, dsn string) ([]*domain.RiskScenario, *pgstore.Pool, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, nil, err
		}
		var scenarios []*domain.RiskScenario
		if err := json.Unmarshal(data, &scenarios); err != nil {
			return nil, nil, fmt.Errorf("parse %s: %w", file, err)
		}

		// A file source may still want a pool for persistence.
		var pool *pgstore.Pool
		if dsn != "" {
			pool, err = connectPostgres(ctx, dsn)
			if err != nil {
				return nil, nil, err
			}
		}
		return scenarios, pool, nil
	}

	if dsn == "" {
		return nil, nil, fmt.Errorf("either --scenarios or --postgres-dsn is required")
	}
	pool, err := connectPostgres(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	scenarios, err := pgstore.NewScenarioStore(pool).GetAll(ctx)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return scenarios, pool, nil
}

func connectPostgres(ctx context.Context, dsn string) (*pgstore.Pool, error) {
	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return pool, nil
}

func parseLevels(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	levels := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid confidence level %q", p)
		}
		levels = append(levels, v)
	}
	return levels, nil
}

func printProgress(run *engine.Run) {
	for update := range run.Progress() {
		if update.Final {
			return
		}
		pct := 100 * float64(update.IterationsCompleted) / float64(update.TotalIterations)
		fmt.Fprintf(os.Stderr, "  %d/%d (%.1f%%) mean=%.2f p95~%.2f\n",
			update.IterationsCompleted, update.TotalIterations, pct,
			update.Running.Mean, update.Running.P95Est)
	}
}

func printResult(r *domain.SimulationResult, format string) error {
	if format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	fmt.Printf("Run %s\n", r.RunID)
	fmt.Printf("Status: %s | Seed: %d | Iterations: %d/%d | Took: %s\n",
		r.Status, r.Seed, r.IterationsCompleted, r.IterationsRequested,
		time.Duration(r.ExecutionTimeMs)*time.Millisecond)
	fmt.Printf("Mean: %.2f | Median: %.2f | Stddev: %.2f | Skewness: %.4f\n",
		r.Statistics.Mean, r.Statistics.Median, r.Statistics.Stddev, r.Statistics.Skewness)
	fmt.Printf("Min: %.2f | Max: %.2f\n", r.Statistics.Min, r.Statistics.Max)
	fmt.Printf("VaR95: %.2f | VaR99: %.2f | ES95: %.2f | P(ruin): %.4f\n",
		r.RiskMetrics.VaR95, r.RiskMetrics.VaR99,
		r.RiskMetrics.ExpectedShortfall95, r.RiskMetrics.ProbabilityOfRuin)
	fmt.Println("Percentiles:")
	for _, p := range r.Percentiles {
		fmt.Printf("  p%g: %.2f\n", p.Percentile, p.Loss)
	}
	fmt.Printf("ALE: %.2f | SLE: %.2f | Discounted exposure: %.2f\n",
		r.Projection.AnnualLossExpectancy, r.Projection.SingleLossExpectancy,
		r.Projection.DiscountedExposure)
	return nil
}
