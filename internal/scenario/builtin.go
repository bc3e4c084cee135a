package scenario

import (
	"math/big"

	"liquidity-mining-lab/internal/domain"
)

func lpAmount(params domain.LiqParams) *big.Int {
	if params.InitialLPAmount == nil || params.InitialLPAmount.Sign() <= 0 {
		return big.NewInt(1)
	}
	return params.InitialLPAmount
}

func fraction(v *big.Int, num, den int64) *big.Int {
	out := new(big.Int).Mul(v, big.NewInt(num))
	return out.Quo(out, big.NewInt(den))
}

func singleStaker(params domain.LiqParams) (domain.StakeHistory, error) {
	b, err := newBuilder(params, 1, 1)
	if err != nil {
		return nil, err
	}
	b.stake(1, 0, lpAmount(params))
	return b.history, nil
}

func equalStakers(params domain.LiqParams) (domain.StakeHistory, error) {
	b, err := newBuilder(params, 1, 4)
	if err != nil {
		return nil, err
	}
	for u := 0; u < 4; u++ {
		b.stake(1, u, lpAmount(params))
	}
	return b.history, nil
}

// staggered: user u joins in epoch u+1 with (u+1)/4 of the LP amount, user 0
// withdraws half of its stake in epoch 3 and adds a quarter back in epoch 5.
func staggered(params domain.LiqParams) (domain.StakeHistory, error) {
	b, err := newBuilder(params, 5, 4)
	if err != nil {
		return nil, err
	}
	lp := lpAmount(params)

	for u := 0; u < 4; u++ {
		b.stake(u+1, u, fraction(lp, int64(u+1), 4))
	}
	b.withdraw(3, 0, fraction(lp, 1, 8))
	b.stake(5, 0, fraction(lp, 1, 16))
	b.withdraw(5, 3, fraction(lp, 1, 2))
	return b.history, nil
}

// churn: in every epoch each user stakes, withdraws half, or rests depending
// on (epoch+user) mod 3. Epoch 4 is left empty.
func churn(params domain.LiqParams) (domain.StakeHistory, error) {
	const epochs, users = 6, 4

	b, err := newBuilder(params, epochs, users)
	if err != nil {
		return nil, err
	}
	lp := lpAmount(params)

	balances := make([]*big.Int, users)
	for u := range balances {
		balances[u] = new(big.Int)
	}

	for e := 1; e <= epochs; e++ {
		if e == 4 {
			continue
		}
		for u := 0; u < users; u++ {
			switch (e + u) % 3 {
			case 0:
				amount := fraction(lp, int64(u+1), 10)
				b.stake(e, u, amount)
				balances[u].Add(balances[u], amount)
			case 1:
				if balances[u].Sign() == 0 {
					continue
				}
				amount := fraction(balances[u], 1, 2)
				if amount.Sign() == 0 {
					continue
				}
				b.withdraw(e, u, amount)
				balances[u].Sub(balances[u], amount)
			}
		}
	}
	return b.history, nil
}
