package reporting

import (
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"liquidity-mining-lab/internal/domain"
	"liquidity-mining-lab/internal/rewards"
	"liquidity-mining-lab/internal/verification"
)

func testParams() domain.LiqParams {
	return domain.LiqParams{
		StartTime:       1000,
		EpochDuration:   100,
		NumberOfEpochs:  20,
		VestingEpochs:   4,
		RewardsPerEpoch: big.NewInt(1000),
	}
}

// simulate runs a single staker from epoch 2, so epoch 1 is skipped.
func simulate(t *testing.T, evalEpoch int) *rewards.Result {
	t.Helper()
	h := domain.NewStakeHistory(2, 1)
	h.Add(2, domain.StakeAction{Time: 1100, Amount: big.NewInt(10), Kind: domain.ActionStake, UserID: 0})

	res, err := rewards.Simulate(h, testParams(), evalEpoch)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	return res
}

func fixedGenerator() *Generator {
	fixedTime := time.Date(2025, 1, 4, 12, 0, 0, 0, time.UTC)
	return NewGenerator().WithClock(func() time.Time { return fixedTime })
}

func TestGenerator_Generate(t *testing.T) {
	runs := []Run{
		{RunID: "run-b", Result: simulate(t, 5)},
		{RunID: "run-a", Result: simulate(t, 4)},
	}

	r := fixedGenerator().Generate("single", "sid", 1, testParams(), 0, runs)

	if !r.GeneratedAt.Equal(time.Date(2025, 1, 4, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("clock not applied: %v", r.GeneratedAt)
	}
	if r.Params.AllocationDiv != 1 {
		t.Errorf("expected default divisor 1, got %d", r.Params.AllocationDiv)
	}
	if len(r.Runs) != 2 || r.Runs[0].EvalEpoch != 4 || r.Runs[1].EvalEpoch != 5 {
		t.Fatalf("runs not sorted by eval epoch: %+v", r.Runs)
	}

	// Eval 4: epochs 2 and 3 rewarded, 250 per vesting epoch each.
	// Epoch 2 vests at 3..6 and epoch 3 at 4..7.
	run := r.Runs[0]
	if run.Claimable != "750" {
		t.Errorf("expected claimable 750, got %s", run.Claimable)
	}
	if run.Total != "2000" {
		t.Errorf("expected total 2000, got %s", run.Total)
	}
	if got := strings.Join(run.Rows[0].Buckets, ","); got != "750,500,500,250" {
		t.Errorf("unexpected buckets %s", got)
	}

	if len(r.Epochs) != 4 {
		t.Fatalf("expected epochs of the last run, got %d", len(r.Epochs))
	}
	if !r.Epochs[0].Skipped || r.Epochs[1].Skipped {
		t.Errorf("expected only epoch 1 skipped: %+v", r.Epochs[:2])
	}
	if r.Epochs[1].Users[0].StakeSeconds != "1000" || r.Epochs[1].Users[0].PerVestingEpoch != "250" {
		t.Errorf("unexpected epoch 2 user row %+v", r.Epochs[1].Users[0])
	}
}

func TestGenerator_AllocatedLedger(t *testing.T) {
	res := simulate(t, 4)
	halved, err := rewards.DivideBy(res.Ledger, 2)
	if err != nil {
		t.Fatalf("DivideBy: %v", err)
	}

	r := fixedGenerator().Generate("single", "sid", 1, testParams(), 2, []Run{{Result: res, Ledger: halved}})
	if r.Runs[0].Claimable != "375" {
		t.Errorf("expected allocated claimable 375, got %s", r.Runs[0].Claimable)
	}
}

func TestRenderMarkdown(t *testing.T) {
	g := fixedGenerator()
	r := g.Generate("single", "sid", 1, testParams(), 1, []Run{{RunID: "run-a", Result: simulate(t, 4)}})
	g.AddVerification(r, &verification.Report{
		MatchedEpochs:   1,
		DivergentEpochs: 1,
		TotalChecks:     2,
		Results: []verification.EpochResult{{
			EvalEpoch: 4,
			Divergences: []verification.Divergence{{
				UserID:   0,
				Source:   verification.SourceClaim,
				Expected: big.NewInt(750),
				Reason:   "no claim observed",
			}},
		}},
	}, big.NewInt(100))

	md := RenderMarkdown(r)

	for _, want := range []string{
		"# Reward Simulation Report",
		"Generated: 2025-01-04T12:00:00Z",
		"| Vesting Epochs | 4 |",
		"### Eval Epoch 4",
		"Run ID: `run-a`",
		"| 0 | 750 | 500 | 500 | 250 | 2000 |",
		"| 1 | 0 | SKIPPED |",
		"## Claim Verification",
		"| 4 | 0 | claim | 0 | 750 | - | no claim observed |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}
}

func TestRenderMarkdown_Empty(t *testing.T) {
	r := fixedGenerator().Generate("empty", "", 0, testParams(), 1, nil)
	md := RenderMarkdown(r)
	if !strings.Contains(md, "No runs available.") || !strings.Contains(md, "No epochs simulated.") {
		t.Errorf("expected empty placeholders:\n%s", md)
	}
	if strings.Contains(md, "Claim Verification") {
		t.Error("verification section should be omitted")
	}
}

func TestRenderCSV(t *testing.T) {
	r := fixedGenerator().Generate("single", "sid", 1, testParams(), 1, []Run{{RunID: "run-a", Result: simulate(t, 4)}})

	ledger := strings.Split(strings.TrimSpace(RenderLedgerCSV(r)), "\n")
	if len(ledger) != 5 {
		t.Fatalf("expected header + 4 rows, got %d", len(ledger))
	}
	if ledger[0] != "scenario_id,run_id,eval_epoch,user_id,bucket,amount" {
		t.Errorf("unexpected header %s", ledger[0])
	}
	if ledger[1] != "sid,run-a,4,0,0,750" {
		t.Errorf("unexpected first row %s", ledger[1])
	}

	epochs := strings.Split(strings.TrimSpace(RenderEpochsCSV(r)), "\n")
	if len(epochs) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(epochs))
	}
	if epochs[1] != "1,0,true,0,0,0" {
		t.Errorf("unexpected epoch 1 row %s", epochs[1])
	}
}

func TestWriteFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	r := fixedGenerator().Generate("single", "sid", 1, testParams(), 1, []Run{{Result: simulate(t, 4)}})

	paths, err := WriteFiles(dir, r)
	if err != nil {
		t.Fatalf("WriteFiles: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("expected 3 files, got %d", len(paths))
	}
	for _, name := range []string{ReportFile, LedgerFile, EpochsFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}
