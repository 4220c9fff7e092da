// Package main converts raw expert risk estimates into simulation-ready
// scenarios using Hubbard-style calibration, printing them as JSON or
// persisting them to PostgreSQL.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"risklab/internal/calibration"
	"risklab/internal/domain"
	"risklab/internal/storage/migrations"
	pgstore "risklab/internal/storage/postgres"
)

func main() {
	estimatesFile := flag.String("estimates", "", "Path to JSON file with an array of raw expert estimates")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string for persistence")
	persist := flag.Bool("persist", false, "Persist converted scenarios to PostgreSQL")
	summary := flag.Bool("summary", true, "Print a calibration summary to stderr")
	flag.Parse()

	if *estimatesFile == "" {
		fmt.Fprintln(os.Stderr, "Error: --estimates is required")
		os.Exit(1)
	}

	data, err := os.ReadFile(*estimatesFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading estimates: %v\n", err)
		os.Exit(1)
	}
	var raws []*domain.RawScenario
	if err := json.Unmarshal(data, &raws); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing %s: %v\n", *estimatesFile, err)
		os.Exit(1)
	}

	adapter := calibration.NewHubbardAdapter()
	scenarios, err := adapter.ConvertAll(raws)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error converting estimates: %v\n", err)
		os.Exit(1)
	}

	if *summary {
		report, err := adapter.Summarize(raws)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error summarizing: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Converted %d/%d estimates (rejected %d)\n",
			report.Converted, report.TotalScenarios, report.Rejected)
		for _, reason := range report.RejectionReasons {
			fmt.Fprintf(os.Stderr, "  rejected: %s\n", reason)
		}
		fmt.Fprintf(os.Stderr, "Mean probability: %.4f | Total expected loss: %.2f | Max single loss: %.2f\n",
			report.MeanProbability, report.TotalExpectedLoss, report.MaxSingleLoss)
	}

	if *persist {
		if *postgresDSN == "" {
			fmt.Fprintln(os.Stderr, "Error: --persist requires --postgres-dsn")
			os.Exit(1)
		}
		ctx := context.Background()
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting to postgres: %v\n", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			fmt.Fprintf(os.Stderr, "Error running migrations: %v\n", err)
			os.Exit(1)
		}
		now := time.Now().UnixMilli()
		for _, s := range scenarios {
			if s.CreatedAt == 0 {
				s.CreatedAt = now
			}
		}
		if err := pgstore.NewScenarioStore(pool).InsertBulk(ctx, scenarios); err != nil {
			fmt.Fprintf(os.Stderr, "Error persisting scenarios: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Persisted %d scenarios\n", len(scenarios))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(scenarios); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding scenarios: %v\n", err)
		os.Exit(1)
	}
}
