package verification

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"liquidity-mining-lab/internal/domain"
	"liquidity-mining-lab/internal/replay"
	"liquidity-mining-lab/internal/rewards"
	"liquidity-mining-lab/internal/storage/memory"
)

func testParams() domain.LiqParams {
	return domain.LiqParams{
		StartTime:       1000,
		EpochDuration:   100,
		NumberOfEpochs:  20,
		VestingEpochs:   4,
		RewardsPerEpoch: big.NewInt(1000),
		TotalNumerator:  big.NewInt(1000),
	}
}

type fixture struct {
	scenarios    *memory.ScenarioStore
	actions      *memory.ActionStore
	claims       *memory.ClaimStore
	expectations *memory.ExpectationStore
	history      domain.StakeHistory
}

// newFixture stores a scenario where user 0 stakes from the first second and
// user 1 never acts.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		scenarios:    memory.NewScenarioStore(),
		actions:      memory.NewActionStore(),
		claims:       memory.NewClaimStore(),
		expectations: memory.NewExpectationStore(),
		history:      domain.NewStakeHistory(1, 2),
	}
	f.history.Add(1, domain.StakeAction{Time: 1000, Amount: big.NewInt(100), Kind: domain.ActionStake, UserID: 0})

	if err := f.scenarios.Insert(ctx, &domain.ScenarioRecord{ScenarioID: "s1", Users: 2, Params: testParams()}); err != nil {
		t.Fatalf("insert scenario: %v", err)
	}
	if err := f.actions.InsertBulk(ctx, replay.Records("s1", f.history, testParams())); err != nil {
		t.Fatalf("insert actions: %v", err)
	}
	return f
}

func (f *fixture) claim(t *testing.T, user, epoch int, amount int64) {
	t.Helper()
	err := f.claims.Insert(context.Background(), &domain.ClaimObservation{
		ScenarioID: "s1",
		UserID:     user,
		Epoch:      epoch,
		Amount:     big.NewInt(amount),
	})
	if err != nil {
		t.Fatalf("insert claim: %v", err)
	}
}

func (f *fixture) verifier(div int64) *ReplayVerifier {
	return NewReplayVerifier(ReplayVerifierOptions{
		ScenarioStore:    f.scenarios,
		ActionStore:      f.actions,
		ClaimStore:       f.claims,
		ExpectationStore: f.expectations,
		AllocationDiv:    div,
	})
}

func TestApproxEqual(t *testing.T) {
	tol := big.NewInt(DefaultTolerance)

	tests := []struct {
		name     string
		expected int64
		actual   int64
		want     bool
	}{
		{"exact", 5000, 5000, true},
		{"below by tolerance", 5000, 4900, true},
		{"above by tolerance", 5000, 5100, true},
		{"below beyond tolerance", 5000, 4899, false},
		{"above beyond tolerance", 5000, 5101, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApproxEqual(big.NewInt(tt.expected), big.NewInt(tt.actual), tol)
			if got != tt.want {
				t.Errorf("ApproxEqual(%d, %d) = %v, want %v", tt.expected, tt.actual, got, tt.want)
			}
		})
	}
}

func TestCompareClaims(t *testing.T) {
	ledger := rewards.Ledger{
		{big.NewInt(1000), big.NewInt(5)},
		{big.NewInt(2000), big.NewInt(5)},
		{big.NewInt(0), big.NewInt(0)},
	}
	claims := []*domain.ClaimObservation{
		{UserID: 0, Amount: big.NewInt(950)},
		{UserID: 1, Amount: big.NewInt(1800)},
		{UserID: 7, Amount: big.NewInt(1)},
	}

	divs := CompareClaims(ledger, claims, big.NewInt(DefaultTolerance))
	if len(divs) != 3 {
		t.Fatalf("expected 3 divergences, got %d: %+v", len(divs), divs)
	}

	reasons := make(map[int]string)
	for _, d := range divs {
		reasons[d.UserID] = d.Reason
		if d.Source != SourceClaim {
			t.Errorf("user %d: expected claim source, got %s", d.UserID, d.Source)
		}
	}
	if reasons[1] != "outside tolerance" {
		t.Errorf("user 1: unexpected reason %q", reasons[1])
	}
	if reasons[2] != "no claim observed" {
		t.Errorf("user 2: unexpected reason %q", reasons[2])
	}
	if reasons[7] != "claim from unknown user" {
		t.Errorf("user 7: unexpected reason %q", reasons[7])
	}
}

func TestCompareLedgers(t *testing.T) {
	simulated := rewards.Ledger{{big.NewInt(10), big.NewInt(20)}}
	stored := rewards.Ledger{{big.NewInt(10), big.NewInt(21)}, {big.NewInt(1)}}

	divs := CompareLedgers(stored, simulated)
	if len(divs) != 2 {
		t.Fatalf("expected 2 divergences, got %d: %+v", len(divs), divs)
	}
	if divs[0].UserID != 0 || divs[0].Bucket != 1 || divs[0].Expected.Int64() != 20 {
		t.Errorf("unexpected divergence %+v", divs[0])
	}
	if divs[1].UserID != 1 || divs[1].Expected.Sign() != 0 {
		t.Errorf("extra stored user should diverge against zero, got %+v", divs[1])
	}

	if len(CompareLedgers(simulated, simulated.Clone())) != 0 {
		t.Error("identical ledgers should not diverge")
	}
}

func TestVerifyEpoch_MatchWithinTolerance(t *testing.T) {
	f := newFixture(t)
	// Nine epochs of 1000 vest 250 per epoch over four epochs: 7500 claimable at 10.
	f.claim(t, 0, 10, 7450)
	f.claim(t, 1, 10, 0)

	result, err := f.verifier(1).VerifyEpoch(context.Background(), "s1", 10)
	if err != nil {
		t.Fatalf("VerifyEpoch: %v", err)
	}
	if !result.Match {
		t.Fatalf("expected match, got divergences %+v", result.Divergences)
	}
	if result.Checked != 2 {
		t.Errorf("expected 2 claims checked, got %d", result.Checked)
	}
	if got := result.Ledger[0][0].Int64(); got != 7500 {
		t.Errorf("expected 7500 claimable, got %d", got)
	}
	if len(result.Ledger) != 2 {
		t.Errorf("ledger should cover idle users, got %d rows", len(result.Ledger))
	}
}

func TestVerifyEpoch_Divergent(t *testing.T) {
	f := newFixture(t)
	f.claim(t, 0, 10, 7399)

	result, err := f.verifier(1).VerifyEpoch(context.Background(), "s1", 10)
	if err != nil {
		t.Fatalf("VerifyEpoch: %v", err)
	}
	if result.Match {
		t.Fatal("expected divergence")
	}
	// user 0 outside tolerance, user 1 never claimed
	if len(result.Divergences) != 2 {
		t.Errorf("expected 2 divergences, got %+v", result.Divergences)
	}
}

func TestVerifyEpoch_AllocationDivisor(t *testing.T) {
	f := newFixture(t)
	f.claim(t, 0, 10, 3750)
	f.claim(t, 1, 10, 0)

	result, err := f.verifier(2).VerifyEpoch(context.Background(), "s1", 10)
	if err != nil {
		t.Fatalf("VerifyEpoch: %v", err)
	}
	if !result.Match {
		t.Errorf("expected half-allocation claims to match, got %+v", result.Divergences)
	}
}

func TestVerifyEpoch_StoredExpectationDrift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.claim(t, 0, 10, 7500)
	f.claim(t, 1, 10, 0)

	ledger, err := rewards.ExpectedRewards(f.history, testParams(), 10)
	if err != nil {
		t.Fatalf("ExpectedRewards: %v", err)
	}
	rows := ledger.Rows("s1", "run-1", 10)
	rows[1].Amount = big.NewInt(1)
	if err := f.expectations.InsertBulk(ctx, rows); err != nil {
		t.Fatalf("insert expectations: %v", err)
	}

	result, err := f.verifier(1).VerifyEpoch(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("VerifyEpoch: %v", err)
	}
	if result.Match {
		t.Fatal("expected drift to be reported")
	}
	if len(result.Divergences) != 1 || result.Divergences[0].Source != SourceExpectation {
		t.Errorf("expected one expectation divergence, got %+v", result.Divergences)
	}
}

func TestVerifyEpochs_FourConsecutive(t *testing.T) {
	f := newFixture(t)

	ledgers := make(map[int]rewards.Ledger)
	for epoch := 10; epoch < 14; epoch++ {
		l, err := rewards.ExpectedRewards(f.history, testParams(), epoch)
		if err != nil {
			t.Fatalf("ExpectedRewards: %v", err)
		}
		ledgers[epoch] = l
		f.claim(t, 0, epoch, l[0][0].Int64())
		f.claim(t, 1, epoch, 0)
	}
	if ledgers[11][0][0].Int64() != 8500 {
		t.Errorf("expected 8500 claimable at epoch 11, got %s", ledgers[11][0][0])
	}

	report, err := f.verifier(1).VerifyEpochs(context.Background(), "s1", 10, 4)
	if err != nil {
		t.Fatalf("VerifyEpochs: %v", err)
	}
	if !report.Match() {
		t.Errorf("expected all epochs to match: %+v", report.Results)
	}
	if report.MatchedEpochs != 4 || report.TotalChecks != 8 {
		t.Errorf("unexpected totals: matched=%d checks=%d", report.MatchedEpochs, report.TotalChecks)
	}
}

func TestVerifyEpoch_UnknownScenario(t *testing.T) {
	f := newFixture(t)
	_, err := f.verifier(1).VerifyEpoch(context.Background(), "missing", 10)
	if !errors.Is(err, ErrScenarioNotFound) {
		t.Errorf("expected ErrScenarioNotFound, got %v", err)
	}
}

func TestVerifyEpoch_InvalidEpoch(t *testing.T) {
	f := newFixture(t)
	_, err := f.verifier(1).VerifyEpoch(context.Background(), "s1", 0)
	if !errors.Is(err, rewards.ErrInvalidEpoch) {
		t.Errorf("expected ErrInvalidEpoch, got %v", err)
	}
}

func TestVerifyEpoch_RejectsInvalidStoredHistory(t *testing.T) {
	stake := func(user int, ts, amount int64) *domain.ActionRecord {
		return &domain.ActionRecord{ScenarioID: "bad", UserID: user, Epoch: 1, Timestamp: ts, Kind: domain.ActionStake, Amount: big.NewInt(amount)}
	}
	withdraw := func(user int, ts, amount int64) *domain.ActionRecord {
		return &domain.ActionRecord{ScenarioID: "bad", UserID: user, Epoch: 1, Timestamp: ts, Kind: domain.ActionWithdraw, Amount: big.NewInt(amount)}
	}

	tests := []struct {
		name    string
		records []*domain.ActionRecord
		want    error
	}{
		{"negative balance", []*domain.ActionRecord{stake(0, 1000, 10), withdraw(0, 1010, 11)}, replay.ErrNegativeBalance},
		{"shared timestamp", []*domain.ActionRecord{stake(0, 1000, 10), stake(1, 1000, 10)}, replay.ErrInvalidOrdering},
		{"unknown user", []*domain.ActionRecord{stake(5, 1000, 10)}, replay.ErrUnknownUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			if err := f.scenarios.Insert(ctx, &domain.ScenarioRecord{ScenarioID: "bad", Users: 2, Params: testParams()}); err != nil {
				t.Fatalf("insert scenario: %v", err)
			}
			if err := f.actions.InsertBulk(ctx, tt.records); err != nil {
				t.Fatalf("insert actions: %v", err)
			}

			_, err := f.verifier(1).VerifyEpoch(ctx, "bad", 3)
			if !errors.Is(err, ErrInvalidHistory) {
				t.Fatalf("expected ErrInvalidHistory, got %v", err)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestVerifyEpochs_InvalidCount(t *testing.T) {
	f := newFixture(t)
	for _, count := range []int{0, -1, domain.MaxEpochs + 1} {
		if _, err := f.verifier(1).VerifyEpochs(context.Background(), "s1", 2, count); !errors.Is(err, ErrInvalidEpochCount) {
			t.Errorf("count %d: expected ErrInvalidEpochCount, got %v", count, err)
		}
	}
}
