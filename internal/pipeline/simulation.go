// Package pipeline runs scenarios through the simulator, persists the results
// and writes the report files.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/big"
	"time"

	"liquidity-mining-lab/internal/idhash"
	"liquidity-mining-lab/internal/observability"
	"liquidity-mining-lab/internal/replay"
	"liquidity-mining-lab/internal/reporting"
	"liquidity-mining-lab/internal/rewards"
	"liquidity-mining-lab/internal/scenario"
	"liquidity-mining-lab/internal/storage"
)

// Table names used for the rows-stored metric.
const (
	TableScenarios    = "scenarios"
	TableActions      = "stake_actions"
	TableExpectations = "reward_expectations"
)

// ErrNoEvalEpochs is returned when an explicit empty list of eval epochs is given.
var ErrNoEvalEpochs = errors.New("no evaluation epochs")

// Options controls a single pipeline run.
type Options struct {
	// EvalEpochs lists the epochs to evaluate. Defaults to the first epoch
	// after the scenario's history.
	EvalEpochs []int

	// AllocationDiv divides the ledger before reporting, for pools that
	// receive 1/AllocationDiv of the emission. Defaults to 1.
	AllocationDiv int64

	// OutputDir receives the markdown and CSV reports when set.
	OutputDir string
}

// FourEpochs returns four consecutive eval epochs starting at first.
func FourEpochs(first int) []int {
	return []int{first, first + 1, first + 2, first + 3}
}

// Output is the result of a pipeline run.
type Output struct {
	ScenarioID string
	Runs       []reporting.Run
	Report     *reporting.Report
	Files      []string // report files written, empty without OutputDir
}

// SimulationPipeline orchestrates validate, simulate, persist and report.
type SimulationPipeline struct {
	scenarioStore    storage.ScenarioStore
	actionStore      storage.ActionStore
	expectationStore storage.ExpectationStore

	reportGen *reporting.Generator
	metrics   *observability.Metrics
	logger    *log.Logger
	clock     func() time.Time
}

// NewSimulationPipeline creates a pipeline that only simulates and reports.
// Use WithStores to persist results.
func NewSimulationPipeline() *SimulationPipeline {
	return &SimulationPipeline{
		reportGen: reporting.NewGenerator(),
		logger:    log.New(io.Discard, "", 0),
		clock:     func() time.Time { return time.Now().UTC() },
	}
}

// WithStores enables persistence of the scenario, its actions and every
// computed ledger. Any store may be nil to skip that table.
func (p *SimulationPipeline) WithStores(
	scenarioStore storage.ScenarioStore,
	actionStore storage.ActionStore,
	expectationStore storage.ExpectationStore,
) *SimulationPipeline {
	p.scenarioStore = scenarioStore
	p.actionStore = actionStore
	p.expectationStore = expectationStore
	return p
}

// WithMetrics records simulation and storage metrics.
func (p *SimulationPipeline) WithMetrics(m *observability.Metrics) *SimulationPipeline {
	p.metrics = m
	return p
}

// WithLogger sets the progress logger.
func (p *SimulationPipeline) WithLogger(logger *log.Logger) *SimulationPipeline {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// WithClock sets a custom clock function for deterministic output.
func (p *SimulationPipeline) WithClock(clock func() time.Time) *SimulationPipeline {
	p.clock = clock
	p.reportGen = p.reportGen.WithClock(clock)
	return p
}

// Run validates sc, simulates it at every requested eval epoch, persists the
// results when stores are configured and writes the reports when OutputDir is set.
func (p *SimulationPipeline) Run(ctx context.Context, sc *scenario.Scenario, opts Options) (*Output, error) {
	// 1. Validate ordering and balances the way the actions would be submitted
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	evalEpochs := opts.EvalEpochs
	if evalEpochs == nil {
		evalEpochs = []int{sc.EvalEpoch()}
	}
	if len(evalEpochs) == 0 {
		return nil, ErrNoEvalEpochs
	}
	div := opts.AllocationDiv
	if div <= 0 {
		div = 1
	}

	scenarioID := idhash.ComputeScenarioID(sc.Name, sc.Params, sc.History)
	out := &Output{ScenarioID: scenarioID}

	// 2. Simulate every eval epoch
	for _, evalEpoch := range evalEpochs {
		run, err := p.simulate(sc, scenarioID, evalEpoch, div)
		if err != nil {
			return nil, fmt.Errorf("eval epoch %d: %w", evalEpoch, err)
		}
		out.Runs = append(out.Runs, run)
		p.logger.Printf("scenario %s eval epoch %d: claimable total %s", sc.Name, evalEpoch, sumClaimable(run.Ledger))
	}

	// 3. Persist
	if err := p.persist(ctx, sc, scenarioID, out.Runs); err != nil {
		return nil, err
	}

	// 4. Report
	out.Report = p.reportGen.Generate(sc.Name, scenarioID, sc.Users, sc.Params, div, out.Runs)
	if opts.OutputDir != "" {
		files, err := reporting.WriteFiles(opts.OutputDir, out.Report)
		if err != nil {
			return nil, err
		}
		out.Files = files
	}

	return out, nil
}

func (p *SimulationPipeline) simulate(sc *scenario.Scenario, scenarioID string, evalEpoch int, div int64) (reporting.Run, error) {
	start := time.Now()
	res, err := rewards.Simulate(sc.History, sc.Params, evalEpoch)
	if err != nil {
		p.metrics.RecordSimulation(time.Since(start), 0, 0, err)
		return reporting.Run{}, err
	}
	skipped := 0
	for _, e := range res.Epochs {
		if e.Skipped {
			skipped++
		}
	}
	p.metrics.RecordSimulation(time.Since(start), len(res.Epochs), skipped, nil)

	res.Ledger = res.Ledger.Pad(sc.Users, sc.Params.VestingEpochs)
	allocated, err := rewards.DivideBy(res.Ledger, div)
	if err != nil {
		return reporting.Run{}, err
	}

	return reporting.Run{
		RunID:  idhash.ComputeRunID(scenarioID, sc.Params, evalEpoch),
		Result: res,
		Ledger: allocated,
	}, nil
}

// persist stores the scenario, its actions and the undivided ledgers.
// Rows that already exist are left as they are, so a scenario can be re-run.
func (p *SimulationPipeline) persist(ctx context.Context, sc *scenario.Scenario, scenarioID string, runs []reporting.Run) error {
	if p.scenarioStore != nil {
		err := p.scenarioStore.Insert(ctx, sc.Record(scenarioID, p.clock().UnixMilli()))
		if err := p.stored(TableScenarios, 1, err); err != nil {
			return err
		}
	}

	if p.actionStore != nil {
		records := replay.Records(scenarioID, sc.History, sc.Params)
		if len(records) > 0 {
			err := p.actionStore.InsertBulk(ctx, records)
			if err := p.stored(TableActions, len(records), err); err != nil {
				return err
			}
		}
	}

	if p.expectationStore != nil {
		for _, run := range runs {
			rows := run.Result.Ledger.Rows(scenarioID, run.RunID, run.Result.EvalEpoch)
			if len(rows) == 0 {
				continue
			}
			err := p.expectationStore.InsertBulk(ctx, rows)
			if err := p.stored(TableExpectations, len(rows), err); err != nil {
				return err
			}
		}
	}

	return nil
}

func (p *SimulationPipeline) stored(table string, n int, err error) error {
	switch {
	case err == nil:
		p.metrics.RecordRowsStored(table, n)
		return nil
	case errors.Is(err, storage.ErrDuplicateKey):
		p.logger.Printf("%s already stored, skipping", table)
		return nil
	default:
		return fmt.Errorf("store %s: %w", table, err)
	}
}

func sumClaimable(l rewards.Ledger) string {
	sum := new(big.Int)
	for _, v := range l.Claimable() {
		sum.Add(sum, v)
	}
	return sum.String()
}
