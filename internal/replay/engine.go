package replay

import (
	"context"
	"fmt"
	"math/big"

	"liquidity-mining-lab/internal/domain"
)

// Engine consumes actions in chronological order.
type Engine interface {
	// OnAction is called for each action in order.
	// Actions are guaranteed to be strictly increasing in time.
	OnAction(ctx context.Context, action domain.StakeAction) error
}

// BalanceTracker is an Engine that keeps per-user staked balances and the
// pool total, rejecting withdraws that would go negative.
type BalanceTracker struct {
	balances []*big.Int
	total    *big.Int
}

// NewBalanceTracker creates a tracker for users wallets.
func NewBalanceTracker(users int) *BalanceTracker {
	b := &BalanceTracker{
		balances: make([]*big.Int, users),
		total:    new(big.Int),
	}
	for i := range b.balances {
		b.balances[i] = new(big.Int)
	}
	return b
}

// OnAction applies the action to the user's balance.
func (b *BalanceTracker) OnAction(_ context.Context, action domain.StakeAction) error {
	if action.UserID < 0 || action.UserID >= len(b.balances) {
		return fmt.Errorf("%w: %d", ErrUnknownUser, action.UserID)
	}

	next := new(big.Int).Add(b.balances[action.UserID], action.Delta())
	if next.Sign() < 0 {
		return fmt.Errorf("%w: user %d at %d", ErrNegativeBalance, action.UserID, action.Time)
	}

	b.total.Add(b.total, action.Delta())
	b.balances[action.UserID] = next
	return nil
}

// Balance returns a copy of userID's staked balance.
func (b *BalanceTracker) Balance(userID int) *big.Int {
	if userID < 0 || userID >= len(b.balances) {
		return new(big.Int)
	}
	return new(big.Int).Set(b.balances[userID])
}

// Total returns a copy of the pool's total staked amount.
func (b *BalanceTracker) Total() *big.Int {
	return new(big.Int).Set(b.total)
}
