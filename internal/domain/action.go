package domain

import "math/big"

// ActionKind identifies what a stake action does to a user's balance.
type ActionKind string

// Action kinds. ActionEpochEnd is the close-out marker appended by the
// simulator at the next epoch's start; it never appears in stored histories.
const (
	ActionStake    ActionKind = "stake"
	ActionWithdraw ActionKind = "withdraw"
	ActionEpochEnd ActionKind = "epoch_end"
)

// Valid reports whether k is a known action kind.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionStake, ActionWithdraw, ActionEpochEnd:
		return true
	default:
		return false
	}
}

// StakeAction is one stake or withdraw performed by a user.
type StakeAction struct {
	Time   int64      // unix seconds
	Amount *big.Int   // LP amount, nil for epoch end
	Kind   ActionKind // stake | withdraw | epoch_end
	UserID int        // wallet index
}

// EpochEnd builds the close-out marker for user at time t.
func EpochEnd(userID int, t int64) StakeAction {
	return StakeAction{Time: t, Kind: ActionEpochEnd, UserID: userID}
}

// Delta returns the signed change the action applies to the staked balance.
func (a StakeAction) Delta() *big.Int {
	if a.Amount == nil {
		return new(big.Int)
	}
	switch a.Kind {
	case ActionStake:
		return new(big.Int).Set(a.Amount)
	case ActionWithdraw:
		return new(big.Int).Neg(a.Amount)
	default:
		return new(big.Int)
	}
}

// IsEpochEnd reports whether the action is a close-out marker.
func (a StakeAction) IsEpochEnd() bool {
	return a.Kind == ActionEpochEnd
}
