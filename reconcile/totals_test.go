package reconcile_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/nspcc-dev/migration-contract/reconcile"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/stretchr/testify/require"
)

func TestTotals(t *testing.T) {
	totals := reconcile.NewTotals()
	require.Zero(t, totals.Count())
	require.Zero(t, totals.Sum().Sign())
	require.Empty(t, totals.Accounts())
	require.Zero(t, totals.Account(util.Uint160{1}).Sign())

	a, b := record(0, 0, 0), record(1, 0, 0)
	b.From = util.Uint160{9}
	b.Amount = big.NewInt(8)

	totals.Add(a)
	totals.Add(b)
	totals.Add(a)

	require.Equal(t, 3, totals.Count())
	require.EqualValues(t, 92, totals.Sum().Int64())
	require.EqualValues(t, 84, totals.Account(a.From).Int64())

	// results are copies
	totals.Sum().SetInt64(0)
	totals.Accounts()[0].Amount.SetInt64(0)
	require.EqualValues(t, 92, totals.Sum().Int64())
	require.EqualValues(t, 84, totals.Account(a.From).Int64())
	require.EqualValues(t, 42, a.Amount.Int64())
}

type balances map[util.Uint160]*big.Int

func (b balances) BalanceOf(acc util.Uint160) (*big.Int, error) {
	v, ok := b[acc]
	if !ok {
		return nil, errors.New("unknown account")
	}
	return v, nil
}

func TestAudit(t *testing.T) {
	rate := big.NewInt(1_000_000_000)
	token := balances{contract: big.NewInt(3_000_000_000)}

	res, err := reconcile.Audit(token, contract, big.NewInt(3), rate)
	require.NoError(t, err)
	require.True(t, res.Balanced())

	res, err = reconcile.Audit(token, contract, big.NewInt(2), rate)
	require.NoError(t, err)
	require.False(t, res.Balanced())
	require.EqualValues(t, 1_000_000_000, res.Diff.Int64())

	_, err = reconcile.Audit(token, util.Uint160{5}, big.NewInt(2), rate)
	require.ErrorIs(t, err, reconcile.ErrReadFailure)
}
