// Package main re-derives expected rewards for a stored scenario and checks
// them against the observed claims. Exits with status 1 on divergence.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/big"
	"os"

	"liquidity-mining-lab/internal/domain"
	"liquidity-mining-lab/internal/idhash"
	"liquidity-mining-lab/internal/pipeline"
	"liquidity-mining-lab/internal/reporting"
	"liquidity-mining-lab/internal/rewards"
	"liquidity-mining-lab/internal/scenario"
	"liquidity-mining-lab/internal/storage/stores"
	"liquidity-mining-lab/internal/verification"
)

func main() {
	// Parse flags (env vars as defaults)
	scenarioID := flag.String("scenario-id", "", "Scenario to verify (with --use-memory, a built-in scenario name)")
	evalEpoch := flag.Int("eval-epoch", 0, "First epoch to verify (required unless --use-memory)")
	epochs := flag.Int("epochs", 1, "Number of consecutive epochs to verify")
	fourEpochs := flag.Bool("four-epochs", false, "Verify four consecutive epochs (same as --epochs 4)")
	tolerance := flag.String("tolerance", fmt.Sprint(verification.DefaultTolerance), "Allowed absolute difference per claim")
	allocationDiv := flag.Int64("allocation-div", 1, "Pool allocation divisor applied to expected rewards")
	outputDir := flag.String("output-dir", "", "Write a markdown and CSV report to this directory")
	claimsFile := flag.String("claims-file", "", "YAML file of observed claims to record before verifying")
	useMemory := flag.Bool("use-memory", false, "Verify against in-memory fixtures instead of the databases")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	flag.Parse()

	logger := log.New(os.Stderr, "[verify] ", log.LstdFlags)

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for fixtures)")
	}
	if *fourEpochs {
		*epochs = 4
	}
	if *epochs < 1 || *epochs > domain.MaxEpochs {
		logger.Fatalf("--epochs must be in [1, %d], got %d", domain.MaxEpochs, *epochs)
	}
	tol, err := scenario.ParseAmount(*tolerance)
	if err != nil {
		logger.Fatalf("Invalid --tolerance: %v", err)
	}

	ctx := context.Background()

	// Open stores
	var set *stores.Set
	if *useMemory {
		set = stores.Memory()
		id, first, err := loadFixture(ctx, set, *scenarioID)
		if err != nil {
			logger.Fatalf("Failed to load fixtures: %v", err)
		}
		*scenarioID = id
		if *evalEpoch == 0 {
			*evalEpoch = first
		}
	} else {
		set, err = stores.Open(ctx, *postgresDSN, *clickhouseDSN, false)
		if err != nil {
			logger.Fatalf("Failed to open stores: %v", err)
		}
	}
	defer set.Close()

	if *scenarioID == "" {
		logger.Fatal("--scenario-id is required")
	}
	if *evalEpoch < 1 {
		logger.Fatal("--eval-epoch must be >= 1")
	}

	// Record observed claims
	if *claimsFile != "" {
		if err := recordClaims(ctx, set, *claimsFile, *scenarioID, logger); err != nil {
			logger.Fatalf("Failed to record claims: %v", err)
		}
	}

	// Verify
	v := verification.NewReplayVerifier(verification.ReplayVerifierOptions{
		ScenarioStore:    set.Scenarios,
		ActionStore:      set.Actions,
		ClaimStore:       set.Claims,
		ExpectationStore: set.Expectations,
		Tolerance:        tol,
		AllocationDiv:    *allocationDiv,
	})
	report, err := v.VerifyEpochs(ctx, *scenarioID, *evalEpoch, *epochs)
	if err != nil {
		logger.Fatalf("Verification failed: %v", err)
	}

	printReport(report)

	if *outputDir != "" {
		if err := writeReport(ctx, set, report, tol, *allocationDiv, *outputDir); err != nil {
			logger.Fatalf("Failed to write report: %v", err)
		}
		logger.Printf("Wrote report to %s/", *outputDir)
	}

	if !report.Match() {
		os.Exit(1)
	}
}

// recordClaims stores the claims of path. A file without scenario_id records
// under scenarioID.
func recordClaims(ctx context.Context, set *stores.Set, path, scenarioID string, logger *log.Logger) error {
	cf, err := scenario.LoadClaimsFile(path)
	if err != nil {
		return err
	}
	if cf.ScenarioID == "" {
		cf.ScenarioID = scenarioID
	}
	if cf.ScenarioID != scenarioID {
		return fmt.Errorf("claims file is for scenario %s, verifying %s", cf.ScenarioID, scenarioID)
	}

	claims, err := cf.Observations()
	if err != nil {
		return err
	}
	_, err = pipeline.NewClaimIngester(set.Scenarios, set.Claims).
		WithLogger(logger).
		Ingest(ctx, scenarioID, claims)
	return err
}

// loadFixture seeds the memory stores with the built-in fixtures and returns
// the scenario ID and first eval epoch of the one named name.
func loadFixture(ctx context.Context, set *stores.Set, name string) (string, int, error) {
	if name == "" {
		name = "single-staker"
	}
	fixtures, err := pipeline.LoadFixtures(ctx, pipeline.FixtureStores{
		Scenarios:    set.Scenarios,
		Actions:      set.Actions,
		Expectations: set.Expectations,
		Claims:       set.Claims,
	}, domain.DefaultLiqParams())
	if err != nil {
		return "", 0, err
	}
	for _, f := range fixtures {
		if f.Name == name || f.ScenarioID == name {
			return f.ScenarioID, f.EvalEpochs[0], nil
		}
	}
	return "", 0, fmt.Errorf("%w: %q", scenario.ErrUnknownScenario, name)
}

// printReport prints one line per epoch and every divergence.
func printReport(r *verification.Report) {
	fmt.Printf("Scenario %s: %d matched, %d divergent, %d claims checked\n",
		r.ScenarioID, r.MatchedEpochs, r.DivergentEpochs, r.TotalChecks)
	for _, res := range r.Results {
		status := "MATCH"
		if !res.Match {
			status = "DIVERGENT"
		}
		fmt.Printf("  epoch %d: %s (%d claims)\n", res.EvalEpoch, status, res.Checked)
		for _, d := range res.Divergences {
			fmt.Printf("    user %d %s bucket %d: expected %s, actual %s (%s)\n",
				d.UserID, d.Source, d.Bucket, amount(d.Expected), amount(d.Actual), d.Reason)
		}
	}
}

// writeReport renders the verified ledgers and divergences.
func writeReport(ctx context.Context, set *stores.Set, r *verification.Report, tol *big.Int, div int64, dir string) error {
	rec, err := set.Scenarios.GetByID(ctx, r.ScenarioID)
	if err != nil {
		return err
	}

	runs := make([]reporting.Run, 0, len(r.Results))
	for _, res := range r.Results {
		runs = append(runs, reporting.Run{
			RunID:  idhash.ComputeRunID(r.ScenarioID, rec.Params, res.EvalEpoch),
			Result: &rewards.Result{EvalEpoch: res.EvalEpoch, Ledger: res.Ledger},
		})
	}

	gen := reporting.NewGenerator()
	report := gen.Generate(rec.Description, r.ScenarioID, rec.Users, rec.Params, div, runs)
	gen.AddVerification(report, r, tol)

	_, err = reporting.WriteFiles(dir, report)
	return err
}

func amount(v *big.Int) string {
	if v == nil {
		return "-"
	}
	return v.String()
}
