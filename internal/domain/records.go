package domain

import "math/big"

// ActionRecord is a stake action persisted for a scenario.
// Corresponds to the stake_actions table in PostgreSQL.
type ActionRecord struct {
	ID         int64      // BIGSERIAL primary key
	ScenarioID string     // scenario the action belongs to
	UserID     int        // wallet index
	Epoch      int        // epoch containing Timestamp
	Timestamp  int64      // unix seconds
	Kind       ActionKind // stake | withdraw
	Amount     *big.Int   // LP amount
	CreatedAt  int64      // record creation timestamp (ms)
}

// Action converts the record to a StakeAction.
func (r *ActionRecord) Action() StakeAction {
	return StakeAction{
		Time:   r.Timestamp,
		Amount: r.Amount,
		Kind:   r.Kind,
		UserID: r.UserID,
	}
}

// RewardExpectation is one ledger cell computed by the simulator.
// Corresponds to the reward_expectations table in ClickHouse.
type RewardExpectation struct {
	ScenarioID string
	RunID      string   // deterministic hash of scenario + params + eval epoch
	EvalEpoch  int      // epoch the ledger was evaluated at
	UserID     int      // wallet index
	Bucket     int      // epochs until claimable, 0 = now
	Amount     *big.Int // reward amount
}

// ClaimObservation is a reward balance observed on chain after claimRewards.
// Corresponds to the reward_claims table in PostgreSQL.
type ClaimObservation struct {
	ID         int64
	ScenarioID string
	UserID     int
	Epoch      int      // epoch at which the claim was made
	Amount     *big.Int // observed reward token balance
	ObservedAt int64    // unix ms
}

// ScenarioRecord describes a stored scenario and the schedule it ran under.
// Corresponds to the scenarios table in PostgreSQL.
type ScenarioRecord struct {
	ScenarioID  string
	Description string
	Users       int
	Params      LiqParams
	CreatedAt   int64 // record creation timestamp (ms)
}
