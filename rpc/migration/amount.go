package migration

import (
	"errors"
	"math/big"
)

// ErrInvalidRate is returned by TargetAmount for non-positive rates.
var ErrInvalidRate = errors.New("conversion rate must be positive")

// TargetAmount computes the result of the `migrate` call in advance: the
// number of target units the amount converts into and the number of source
// units the contract pulls for them. The remainder of the amount is never
// transferred. Target amount below 1 means the call will fail.
func TargetAmount(amount, rate *big.Int) (target *big.Int, pulled *big.Int, err error) {
	if rate == nil || rate.Sign() <= 0 {
		return nil, nil, ErrInvalidRate
	}
	if amount == nil || amount.Sign() <= 0 {
		return new(big.Int), new(big.Int), nil
	}

	target = new(big.Int).Quo(amount, rate)
	pulled = new(big.Int).Mul(target, rate)
	return target, pulled, nil
}
