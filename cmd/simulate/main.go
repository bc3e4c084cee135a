// Package main runs a scenario through the reward simulator and prints or
// writes the expected reward ledger.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"liquidity-mining-lab/internal/domain"
	"liquidity-mining-lab/internal/pipeline"
	"liquidity-mining-lab/internal/reporting"
	"liquidity-mining-lab/internal/scenario"
	"liquidity-mining-lab/internal/storage/stores"
)

func main() {
	// Parse flags (env vars as defaults)
	scenarioName := flag.String("scenario", "single-staker", "Built-in scenario: "+strings.Join(scenario.Names(), ", "))
	scenarioFile := flag.String("scenario-file", "", "YAML scenario file (overrides --scenario)")
	paramsFile := flag.String("params-file", "", "YAML params file for built-in scenarios")
	evalEpoch := flag.Int("eval-epoch", 0, "Epoch to evaluate at (default: first epoch after the history)")
	fourEpochs := flag.Bool("four-epochs", false, "Evaluate four consecutive epochs starting at --eval-epoch")
	allocationDiv := flag.Int64("allocation-div", 1, "Divide the ledger by this pool allocation divisor")
	jsonOut := flag.Bool("json", false, "Print the result as JSON")
	outputDir := flag.String("output-dir", "", "Write markdown and CSV reports to this directory")
	persist := flag.Bool("persist", false, "Store the scenario, actions and ledgers")
	migrate := flag.Bool("migrate", false, "Apply database migrations before persisting")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	flag.Parse()

	logger := log.New(os.Stderr, "[simulate] ", log.LstdFlags)

	if *persist && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required with --persist")
	}

	ctx := context.Background()

	// Load scenario
	sc, err := loadScenario(*scenarioName, *scenarioFile, *paramsFile)
	if err != nil {
		logger.Fatalf("Failed to load scenario: %v", err)
	}
	logger.Printf("Scenario %s: %d users, %d epochs of activity", sc.Name, sc.Users, len(sc.History))

	// Build pipeline
	p := pipeline.NewSimulationPipeline().WithLogger(logger)
	if *persist {
		set, err := stores.Open(ctx, *postgresDSN, *clickhouseDSN, *migrate)
		if err != nil {
			logger.Fatalf("Failed to open stores: %v", err)
		}
		defer set.Close()
		p = p.WithStores(set.Scenarios, set.Actions, set.Expectations)
	}

	first := *evalEpoch
	if first == 0 {
		first = sc.EvalEpoch()
	}
	opts := pipeline.Options{
		EvalEpochs:    []int{first},
		AllocationDiv: *allocationDiv,
		OutputDir:     *outputDir,
	}
	if *fourEpochs {
		opts.EvalEpochs = pipeline.FourEpochs(first)
	}

	// Run
	start := time.Now()
	out, err := p.Run(ctx, sc, opts)
	if err != nil {
		logger.Fatalf("Simulation failed: %v", err)
	}
	logger.Printf("Simulated %d eval epoch(s) in %v", len(out.Runs), time.Since(start))

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out.Report); err != nil {
			logger.Fatalf("Failed to encode result: %v", err)
		}
	} else {
		printLedgers(out.Report)
	}

	for _, path := range out.Files {
		logger.Printf("Wrote %s", path)
	}
}

// loadScenario reads a scenario file or generates a built-in scenario.
func loadScenario(name, file, paramsFile string) (*scenario.Scenario, error) {
	if file != "" {
		return scenario.LoadFile(file)
	}

	params := domain.DefaultLiqParams()
	if paramsFile != "" {
		var err error
		if params, err = scenario.LoadParamsFile(paramsFile); err != nil {
			return nil, err
		}
	}
	return scenario.ByName(name, params)
}

// printLedgers prints one table per eval epoch.
func printLedgers(r *reporting.Report) {
	fmt.Printf("Scenario %s (%s)\n", r.ScenarioName, r.ScenarioID)
	for _, run := range r.Runs {
		fmt.Printf("\nEval epoch %d  run %s\n", run.EvalEpoch, run.RunID)
		fmt.Printf("%-6s %s\n", "user", "buckets (claimable now first)")
		for _, row := range run.Rows {
			fmt.Printf("%-6d %s\n", row.UserID, strings.Join(row.Buckets, " "))
		}
		fmt.Printf("claimable %s  total %s\n", run.Claimable, run.Total)
	}
}
