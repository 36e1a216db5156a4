package reconcile

import (
	"fmt"
	"math/big"

	"github.com/nspcc-dev/neo-go/pkg/util"
)

// BalanceReader provides token balances. It is implemented by
// [nep17.TokenReader].
type BalanceReader interface {
	BalanceOf(account util.Uint160) (*big.Int, error)
}

// AuditResult compares the expected custody with the actual one.
type AuditResult struct {
	// Migrated target units multiplied by the conversion rate.
	Expected *big.Int
	// Source token balance of the Migration contract.
	Custody *big.Int
	// Custody minus Expected.
	Diff *big.Int
}

// Balanced checks whether the custody matches the migrated amount exactly.
func (a AuditResult) Balanced() bool {
	return a.Diff.Sign() == 0
}

// Audit checks that the custody held by the contract equals the total of
// migrated target units converted back to source units.
func Audit(token BalanceReader, contract util.Uint160, migrated, rate *big.Int) (AuditResult, error) {
	custody, err := token.BalanceOf(contract)
	if err != nil {
		return AuditResult{}, fmt.Errorf("%w: get custody balance: %w", ErrReadFailure, err)
	}

	expected := new(big.Int).Mul(migrated, rate)

	return AuditResult{
		Expected: expected,
		Custody:  custody,
		Diff:     new(big.Int).Sub(custody, expected),
	}, nil
}
