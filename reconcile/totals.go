package reconcile

import (
	"math/big"

	"github.com/nspcc-dev/neo-go/pkg/util"
)

// AccountTotal is an amount of target units migrated by the account.
type AccountTotal struct {
	Account util.Uint160
	Amount  *big.Int
	Records int
}

// Totals accumulates migrated amounts per source account. Zero value is not
// usable, see NewTotals.
type Totals struct {
	index    map[util.Uint160]int
	accounts []AccountTotal

	sum   *big.Int
	count int
}

// NewTotals returns empty Totals.
func NewTotals() *Totals {
	return &Totals{
		index: make(map[util.Uint160]int),
		sum:   new(big.Int),
	}
}

// Add accounts the record.
func (t *Totals) Add(rec Record) {
	i, ok := t.index[rec.From]
	if !ok {
		i = len(t.accounts)
		t.index[rec.From] = i
		t.accounts = append(t.accounts, AccountTotal{
			Account: rec.From,
			Amount:  new(big.Int),
		})
	}

	t.accounts[i].Amount.Add(t.accounts[i].Amount, rec.Amount)
	t.accounts[i].Records++

	t.sum.Add(t.sum, rec.Amount)
	t.count++
}

// Account returns amount migrated by the account.
func (t *Totals) Account(acc util.Uint160) *big.Int {
	i, ok := t.index[acc]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(t.accounts[i].Amount)
}

// Accounts returns per-account totals in the order of the first migration.
func (t *Totals) Accounts() []AccountTotal {
	res := make([]AccountTotal, len(t.accounts))
	for i := range t.accounts {
		res[i] = AccountTotal{
			Account: t.accounts[i].Account,
			Amount:  new(big.Int).Set(t.accounts[i].Amount),
			Records: t.accounts[i].Records,
		}
	}
	return res
}

// Sum returns the overall migrated amount.
func (t *Totals) Sum() *big.Int {
	return new(big.Int).Set(t.sum)
}

// Count returns the number of accounted records.
func (t *Totals) Count() int {
	return t.count
}
