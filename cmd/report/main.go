// Package main renders the risk report from stored scenarios and runs:
// a Markdown report plus CSV exports of the run history and the focal run's
// loss exceedance curve.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"risklab/internal/reporting"
	"risklab/internal/storage/migrations"
	pgstore "risklab/internal/storage/postgres"
)

func main() {
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	outputDir := flag.String("output-dir", "output", "Output directory for generated files")
	runID := flag.String("run-id", "", "Focal run id (default: most recent run)")
	flag.Parse()

	if *postgresDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: --postgres-dsn is required")
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

	generator := reporting.NewGenerator(
		pgstore.NewScenarioStore(pool),
		pgstore.NewSimulationRunStore(pool),
	)

	var report *reporting.Report
	if *runID != "" {
		report, err = generator.GenerateForRun(ctx, *runID)
	} else {
		report, err = generator.Generate(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	files := map[string]string{
		"RISK_REPORT.md": reporting.RenderMarkdown(report),
		"RUNS.csv":       reporting.RenderRunsCSV(report.Runs),
	}
	if report.Detail != nil {
		files["LOSS_EXCEEDANCE.csv"] = reporting.RenderExceedanceCSV(report.Detail)
	}

	for name, content := range files {
		path := filepath.Join(*outputDir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
			os.Exit(1)
		}
	}

	fmt.Println("Risk report generated:")
	for name := range files {
		fmt.Printf("  - %s\n", filepath.Join(*outputDir, name))
	}
}
