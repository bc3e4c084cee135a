// Package rewards re-derives liquidity mining rewards from a stake history.
//
// The simulator replays every user's stake/withdraw actions epoch by epoch,
// weights each user by stake-seconds, splits the per-epoch emission and spreads
// each share over the vesting window. Arithmetic is integer-only with
// truncating division so results match the contract's fixed-point math.
package rewards

import (
	"errors"
	"fmt"
	"math/big"

	"liquidity-mining-lab/internal/domain"
)

// ErrInvalidEpoch is returned when the evaluation epoch is below 1.
var ErrInvalidEpoch = errors.New("evaluation epoch must be >= 1")

// Ledger holds expected rewards per user.
// Ledger[user][0] is claimable at the evaluation epoch,
// Ledger[user][k] becomes claimable k epochs later.
type Ledger [][]*big.Int

// EpochSummary records the stake-seconds accounting of one simulated epoch.
type EpochSummary struct {
	Epoch             int
	TotalStakeSeconds *big.Int
	UserStakeSeconds  []*big.Int
	PerVestingEpoch   []*big.Int // reward released per vesting epoch, per user
	Skipped           bool       // nobody was staked during the epoch
}

// Result is the full output of a simulation run.
type Result struct {
	EvalEpoch int
	Ledger    Ledger
	Epochs    []EpochSummary
	Balances  []*big.Int // staked balance per user at the end of the last simulated epoch
}

// ExpectedRewards returns the reward ledger for history evaluated at evalEpoch.
func ExpectedRewards(history domain.StakeHistory, params domain.LiqParams, evalEpoch int) (Ledger, error) {
	res, err := Simulate(history, params, evalEpoch)
	if err != nil {
		return nil, err
	}
	return res.Ledger, nil
}

// Simulate replays history and allocates rewards for every epoch strictly
// before evalEpoch. History is read-only; the caller must keep each user's
// timeline time-ordered.
func Simulate(history domain.StakeHistory, params domain.LiqParams, evalEpoch int) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if evalEpoch < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidEpoch, evalEpoch)
	}

	nUsers := history.NumUsers()
	vesting := params.VestingEpochs

	res := &Result{
		EvalEpoch: evalEpoch,
		Ledger:    newLedger(nUsers, vesting),
		Balances:  make([]*big.Int, nUsers),
	}
	for i := range res.Balances {
		res.Balances[i] = new(big.Int)
	}

	// Epochs past the recorded history are empty: users keep earning from
	// their last balance until the schedule ends.
	lastEpoch := evalEpoch - 1
	if lastEpoch > params.NumberOfEpochs {
		lastEpoch = params.NumberOfEpochs
	}

	for epochID := 1; epochID <= lastEpoch; epochID++ {
		summary := accrueEpoch(history.Epoch(epochID), params, epochID, res.Balances)
		if summary.TotalStakeSeconds.Sign() == 0 {
			summary.Skipped = true
			res.Epochs = append(res.Epochs, summary)
			continue
		}

		for userID := 0; userID < nUsers; userID++ {
			perVesting := splitReward(params, summary.UserStakeSeconds[userID], summary.TotalStakeSeconds)
			summary.PerVestingEpoch[userID] = perVesting
			vest(res.Ledger[userID], perVesting, epochID, evalEpoch, vesting)
		}
		res.Epochs = append(res.Epochs, summary)
	}

	return res, nil
}

// accrueEpoch walks each user's timeline for one epoch and accumulates
// stake-seconds, mutating balances in place.
func accrueEpoch(activity domain.EpochActivity, params domain.LiqParams, epochID int, balances []*big.Int) EpochSummary {
	summary := EpochSummary{
		Epoch:             epochID,
		TotalStakeSeconds: new(big.Int),
		UserStakeSeconds:  make([]*big.Int, len(balances)),
		PerVestingEpoch:   make([]*big.Int, len(balances)),
	}

	epochStart := params.StartOfEpoch(epochID)
	epochEnd := params.StartOfEpoch(epochID + 1)
	elapsed := new(big.Int)
	added := new(big.Int)

	for userID := range balances {
		userSS := new(big.Int)
		summary.PerVestingEpoch[userID] = new(big.Int)

		lastUpdated := epochStart
		timeline := append(domain.UserTimeline{}, activity.Timeline(userID)...)
		timeline = append(timeline, domain.EpochEnd(userID, epochEnd))

		for _, action := range timeline {
			elapsed.SetInt64(action.Time - lastUpdated)
			added.Mul(balances[userID], elapsed)
			userSS.Add(userSS, added)
			summary.TotalStakeSeconds.Add(summary.TotalStakeSeconds, added)

			balances[userID].Add(balances[userID], action.Delta())
			lastUpdated = action.Time
		}
		summary.UserStakeSeconds[userID] = userSS
	}

	return summary
}

// splitReward returns rewardsPerEpoch*userSS/totalSS/vestingEpochs.
// The two truncations happen in that order.
func splitReward(params domain.LiqParams, userSS, totalSS *big.Int) *big.Int {
	out := new(big.Int).Mul(params.RewardsPerEpoch, userSS)
	out.Quo(out, totalSS)
	return out.Quo(out, big.NewInt(int64(params.VestingEpochs)))
}

// vest spreads perVesting over epochs earned+1..earned+vesting.
// Portions due at or before evalEpoch land in bucket 0.
func vest(buckets []*big.Int, perVesting *big.Int, earned, evalEpoch, vesting int) {
	for e := earned + 1; e <= earned+vesting; e++ {
		if e <= evalEpoch {
			buckets[0].Add(buckets[0], perVesting)
			continue
		}
		if e < evalEpoch+vesting {
			buckets[e-evalEpoch].Add(buckets[e-evalEpoch], perVesting)
		}
	}
}

func newLedger(users, vesting int) Ledger {
	l := make(Ledger, users)
	for i := range l {
		l[i] = make([]*big.Int, vesting)
		for j := range l[i] {
			l[i][j] = new(big.Int)
		}
	}
	return l
}
