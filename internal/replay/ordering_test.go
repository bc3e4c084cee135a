package replay

import (
	"context"
	"errors"
	"testing"

	"liquidity-mining-lab/internal/domain"
)

func TestFlatten_SortsAndDropsEpochEnd(t *testing.T) {
	h := domain.NewStakeHistory(2, 2)
	h.Add(1, stake(1, 1010, 5))
	h.Add(1, stake(0, 1020, 5))
	h.Add(1, domain.EpochEnd(0, 1100))
	h.Add(2, withdraw(1, 1105, 5))

	got := Flatten(h)
	if len(got) != 3 {
		t.Fatalf("expected 3 actions, got %d", len(got))
	}
	wantTimes := []int64{1010, 1020, 1105}
	for i, want := range wantTimes {
		if got[i].Time != want {
			t.Errorf("action %d: expected time %d, got %d", i, want, got[i].Time)
		}
		if got[i].IsEpochEnd() {
			t.Errorf("action %d: epoch end should be dropped", i)
		}
	}
}

func TestSortActions_TieBreak(t *testing.T) {
	actions := []domain.StakeAction{
		withdraw(1, 50, 1),
		stake(1, 50, 1),
		stake(0, 50, 1),
	}
	SortActions(actions)

	if actions[0].UserID != 0 {
		t.Errorf("expected user 0 first, got %d", actions[0].UserID)
	}
	if actions[1].Kind != domain.ActionStake || actions[2].Kind != domain.ActionWithdraw {
		t.Errorf("expected stake before withdraw for same user and time, got %s then %s",
			actions[1].Kind, actions[2].Kind)
	}
}

func TestValidateOrdering(t *testing.T) {
	tests := []struct {
		name    string
		actions []domain.StakeAction
		wantErr bool
	}{
		{"empty", nil, false},
		{"single", []domain.StakeAction{stake(0, 1, 1)}, false},
		{"increasing", []domain.StakeAction{stake(0, 1, 1), stake(1, 2, 1)}, false},
		{"equal timestamps", []domain.StakeAction{stake(0, 5, 1), stake(1, 5, 1)}, true},
		{"decreasing", []domain.StakeAction{stake(0, 6, 1), stake(1, 5, 1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOrdering(tt.actions)
			if tt.wantErr && !errors.Is(err, ErrInvalidOrdering) {
				t.Errorf("expected ErrInvalidOrdering, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestGroup_AssignsEpochs(t *testing.T) {
	params := testParams()
	records := []*domain.ActionRecord{
		{ScenarioID: "s", UserID: 0, Timestamp: 1250, Kind: domain.ActionStake, Amount: stake(0, 0, 3).Amount},
		{ScenarioID: "s", UserID: 2, Timestamp: 900, Kind: domain.ActionStake, Amount: stake(0, 0, 7).Amount},
	}

	h := Group(records, params, 1)

	if len(h) != 3 {
		t.Fatalf("expected 3 epochs, got %d", len(h))
	}
	if h.NumUsers() != 3 {
		t.Errorf("expected users widened to 3, got %d", h.NumUsers())
	}
	for i, epoch := range h {
		if len(epoch) != 3 {
			t.Errorf("epoch %d: expected 3 user slots, got %d", i+1, len(epoch))
		}
	}

	early := h.Epoch(1).Timeline(2)
	if len(early) != 1 || early[0].Time != params.StartTime {
		t.Errorf("pre-start action should be clamped to start time, got %+v", early)
	}
	if tl := h.Epoch(3).Timeline(0); len(tl) != 1 || tl[0].Time != 1250 {
		t.Errorf("expected user 0 action in epoch 3, got %+v", tl)
	}
}

func TestGroup_NoRecords(t *testing.T) {
	h := Group(nil, testParams(), 2)
	if len(h) != 1 || h.NumUsers() != 2 {
		t.Errorf("expected one empty epoch for 2 users, got %d epochs, %d users", len(h), h.NumUsers())
	}
	if len(Group(nil, testParams(), 0)) != 0 {
		t.Error("expected empty history with no users")
	}
}

func TestRecords_Epochs(t *testing.T) {
	recs := Records("s", sampleHistory(), testParams())
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	wantEpochs := []int{1, 1, 2}
	for i, want := range wantEpochs {
		if recs[i].Epoch != want {
			t.Errorf("record %d: expected epoch %d, got %d", i, want, recs[i].Epoch)
		}
		if recs[i].ScenarioID != "s" {
			t.Errorf("record %d: expected scenario s, got %s", i, recs[i].ScenarioID)
		}
	}
}

func TestBalanceTracker(t *testing.T) {
	ctx := context.Background()
	tracker := NewBalanceTracker(2)

	for _, a := range []domain.StakeAction{stake(0, 1, 10), stake(1, 2, 20), withdraw(0, 3, 4)} {
		if err := tracker.OnAction(ctx, a); err != nil {
			t.Fatalf("OnAction: %v", err)
		}
	}

	if got := tracker.Balance(0).Int64(); got != 6 {
		t.Errorf("expected balance 6, got %d", got)
	}
	if got := tracker.Total().Int64(); got != 26 {
		t.Errorf("expected total 26, got %d", got)
	}

	if err := tracker.OnAction(ctx, withdraw(1, 4, 21)); !errors.Is(err, ErrNegativeBalance) {
		t.Errorf("expected ErrNegativeBalance, got %v", err)
	}
	if got := tracker.Balance(1).Int64(); got != 20 {
		t.Errorf("failed withdraw must not change balance, got %d", got)
	}
	if err := tracker.OnAction(ctx, stake(5, 5, 1)); !errors.Is(err, ErrUnknownUser) {
		t.Errorf("expected ErrUnknownUser, got %v", err)
	}

	// Returned values are copies.
	tracker.Balance(0).SetInt64(999)
	if got := tracker.Balance(0).Int64(); got != 6 {
		t.Errorf("Balance should return a copy, got %d", got)
	}
}

func TestSequence(t *testing.T) {
	ctx := context.Background()

	tracker := NewBalanceTracker(2)
	collector := &collectingEngine{}
	if err := Sequence(ctx, sampleHistory(), tracker, collector); err != nil {
		t.Fatalf("Sequence failed: %v", err)
	}
	if len(collector.actions) != 3 {
		t.Errorf("expected 3 actions, got %d", len(collector.actions))
	}
	if got := tracker.Total().Int64(); got != 25 {
		t.Errorf("expected total 25, got %d", got)
	}

	clash := domain.NewStakeHistory(1, 2)
	clash.Add(1, stake(0, 1010, 1))
	clash.Add(1, stake(1, 1010, 1))
	if err := Sequence(ctx, clash, NewBalanceTracker(2)); !errors.Is(err, ErrInvalidOrdering) {
		t.Errorf("expected ErrInvalidOrdering, got %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := Sequence(cancelled, sampleHistory(), NewBalanceTracker(2)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
