// Package main serves the simulation and verification HTTP API:
// - POST /v1/simulate, POST /v1/verify
// - GET /healthz, GET /metrics
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"liquidity-mining-lab/internal/api"
	"liquidity-mining-lab/internal/domain"
	"liquidity-mining-lab/internal/observability"
	"liquidity-mining-lab/internal/pipeline"
	"liquidity-mining-lab/internal/storage/stores"
)

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	addr := flag.String("addr", envOr("SERVER_ADDR", ":8080"), "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage seeded with fixtures")
	migrate := flag.Bool("migrate", false, "Apply database migrations on startup")
	namespace := flag.String("metrics-namespace", observability.DefaultNamespace, "Prometheus metrics namespace")
	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create stores
	set, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory, *migrate, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer set.Close()

	handler := api.New(api.Options{
		ScenarioStore:    set.Scenarios,
		ActionStore:      set.Actions,
		ClaimStore:       set.Claims,
		ExpectationStore: set.Expectations,
		Metrics:          observability.NewMetrics(*namespace),
		Logger:           logger,
	}).Handler()

	srv := &http.Server{
		Addr:              *addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		shutdownCtx, done := context.WithTimeout(context.Background(), 30*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Graceful shutdown failed: %v", err)
		}
	}()

	logger.Printf("Starting HTTP server on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("HTTP server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores opens the databases, or memory stores seeded with the
// built-in fixtures.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory, migrate bool, logger *log.Logger) (*stores.Set, error) {
	if !useMemory {
		return stores.Open(ctx, postgresDSN, clickhouseDSN, migrate)
	}

	set := stores.Memory()
	fixtures, err := pipeline.LoadFixtures(ctx, pipeline.FixtureStores{
		Scenarios:    set.Scenarios,
		Actions:      set.Actions,
		Expectations: set.Expectations,
		Claims:       set.Claims,
	}, domain.DefaultLiqParams())
	if err != nil {
		return nil, err
	}
	for _, f := range fixtures {
		logger.Printf("Loaded fixture %s: scenario_id=%s eval_epochs=%v", f.Name, f.ScenarioID, f.EvalEpochs)
	}
	return set, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
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
