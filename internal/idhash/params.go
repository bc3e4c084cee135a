package idhash

import (
	"fmt"
	"math/big"

	"liquidity-mining-lab/internal/domain"
)

// paramsKey renders every field of params that affects rewards.
func paramsKey(p domain.LiqParams) string {
	return fmt.Sprintf("%d|%d|%d|%d|%s",
		p.StartTime,
		p.EpochDuration,
		p.NumberOfEpochs,
		p.VestingEpochs,
		intString(p.RewardsPerEpoch),
	)
}

func intString(v *big.Int) string {
	if v == nil {
		return "nil"
	}
	return v.String()
}
