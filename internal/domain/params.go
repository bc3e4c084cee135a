package domain

import (
	"errors"
	"fmt"
	"math/big"
)

// ErrInvalidParams is returned when liquidity mining parameters are inconsistent.
var ErrInvalidParams = errors.New("invalid liquidity mining params")

// Size limits for schedules and scenarios. A history holds epochs*users
// timelines and a ledger users*VestingEpochs amounts.
const (
	MaxEpochs        = 5200
	MaxVestingEpochs = 520
	MaxUsers         = 1000
)

// LiqParams holds the liquidity mining schedule the simulator consumes.
// All fields are fixed before simulation starts.
type LiqParams struct {
	StartTime       int64    // unix seconds at which epoch 1 starts
	EpochDuration   int64    // seconds per epoch
	NumberOfEpochs  int      // reward-distributing epochs
	VestingEpochs   int      // epochs each epoch's reward vests over
	RewardsPerEpoch *big.Int // total reward emitted per epoch
	TotalNumerator  *big.Int // allocation denominator
	InitialLPAmount *big.Int // base stake size used by scenario generators
}

// StartOfEpoch returns the timestamp at which epochID starts.
// Epochs are 1-based: StartOfEpoch(1) == StartTime.
func (p LiqParams) StartOfEpoch(epochID int) int64 {
	return p.StartTime + int64(epochID-1)*p.EpochDuration
}

// EpochOf returns the epoch containing timestamp t.
// Timestamps before StartTime belong to epoch 0.
func (p LiqParams) EpochOf(t int64) int {
	if t < p.StartTime || p.EpochDuration <= 0 {
		return 0
	}
	return int((t-p.StartTime)/p.EpochDuration) + 1
}

// Validate checks that the parameters describe a usable schedule.
func (p LiqParams) Validate() error {
	if p.EpochDuration <= 0 {
		return fmt.Errorf("%w: epoch duration must be positive, got %d", ErrInvalidParams, p.EpochDuration)
	}
	if p.NumberOfEpochs < 0 {
		return fmt.Errorf("%w: number of epochs must be non-negative, got %d", ErrInvalidParams, p.NumberOfEpochs)
	}
	if p.NumberOfEpochs > MaxEpochs {
		return fmt.Errorf("%w: number of epochs %d exceeds %d", ErrInvalidParams, p.NumberOfEpochs, MaxEpochs)
	}
	if p.VestingEpochs <= 0 {
		return fmt.Errorf("%w: vesting epochs must be positive, got %d", ErrInvalidParams, p.VestingEpochs)
	}
	if p.VestingEpochs > MaxVestingEpochs {
		return fmt.Errorf("%w: vesting epochs %d exceeds %d", ErrInvalidParams, p.VestingEpochs, MaxVestingEpochs)
	}
	if p.RewardsPerEpoch == nil || p.RewardsPerEpoch.Sign() < 0 {
		return fmt.Errorf("%w: rewards per epoch must be non-negative", ErrInvalidParams)
	}
	if p.TotalNumerator != nil && p.TotalNumerator.Sign() <= 0 {
		return fmt.Errorf("%w: total numerator must be positive", ErrInvalidParams)
	}
	return nil
}

// DefaultLiqParams mirrors the schedule deployed by the liquidity mining fixture:
// one-week epochs, 20 reward epochs, 4 vesting epochs, 1e14 base units per epoch.
func DefaultLiqParams() LiqParams {
	return LiqParams{
		StartTime:       1_700_000_000,
		EpochDuration:   7 * 24 * 3600,
		NumberOfEpochs:  20,
		VestingEpochs:   4,
		RewardsPerEpoch: new(big.Int).Exp(big.NewInt(10), big.NewInt(14), nil),
		TotalNumerator:  new(big.Int).Exp(big.NewInt(10), big.NewInt(9), nil),
		InitialLPAmount: new(big.Int).Exp(big.NewInt(10), big.NewInt(17), nil),
	}
}
