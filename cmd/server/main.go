// Package main provides the HTTP/WebSocket simulation service: scenario and
// run storage, synchronous and asynchronous simulation endpoints, run
// control, a progress stream, and Prometheus metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"risklab/internal/server"
	chstore "risklab/internal/storage/clickhouse"
	"risklab/internal/storage/memory"
	"risklab/internal/storage/migrations"
	pgstore "risklab/internal/storage/postgres"
)

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	addr := flag.String("addr", ":8080", "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (enables outcome persistence)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of databases")
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()
	opts.Logger = logger

	srv := server.New(opts)
	httpServer := &http.Server{
		Addr:    *addr,
		Handler: srv.Handler(),
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Shutdown error: %v", err)
		}
		cancel()
	}()

	logger.Printf("Listening on %s", *addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("Server error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// createStores creates the server's storage backends. ClickHouse is optional:
// without it, per-iteration outcome persistence is disabled.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (server.Options, func(), error) {
	if useMemory {
		opts := server.Options{
			ScenarioStore: memory.NewScenarioStore(),
			RunStore:      memory.NewSimulationRunStore(),
			OutcomeStore:  memory.NewOutcomeSampleStore(),
		}
		return opts, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return server.Options{}, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return server.Options{}, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	opts := server.Options{
		ScenarioStore: pgstore.NewScenarioStore(pool),
		RunStore:      pgstore.NewSimulationRunStore(pool),
	}
	cleanup := func() { pool.Close() }

	if clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			pool.Close()
			return server.Options{}, nil, fmt.Errorf("run clickhouse migrations: %w", err)
		}
		opts.OutcomeStore = chstore.NewOutcomeSampleStore(conn)
		cleanup = func() {
			conn.Close()
			pool.Close()
		}
	}

	return opts, cleanup, nil
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
