package main

import (
	"fmt"
	"io"
	"math/big"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/encoding/fixedn"

	"github.com/nspcc-dev/migration-contract/reconcile"
)

// printer formats records for the user.
type printer struct {
	w io.Writer
	// Header of every record, defaultHeader if empty.
	header   string
	decimals int
	symbol   string
}

const defaultHeader = "Migration event detected:"

func (p printer) amount(v *big.Int) string {
	return fixedn.ToString(v, p.decimals) + " " + p.symbol
}

func (p printer) record(rec reconcile.Record) {
	header := p.header
	if header == "" {
		header = defaultHeader
	}

	fmt.Fprintf(p.w, `%s
	From: %s
	Amount: %s
	Target Address: %s
	Block: %d
	Transaction Hash: %s
`, header, address.Uint160ToString(rec.From), p.amount(rec.Amount), rec.TargetAddress,
		rec.Block, rec.TxHash.StringLE())
}

func (p printer) totals(t *reconcile.Totals) {
	fmt.Fprintf(p.w, "Total: %s in %d records\n", p.amount(t.Sum()), t.Count())
	for _, acc := range t.Accounts() {
		fmt.Fprintf(p.w, "\t%s: %s in %d records\n",
			address.Uint160ToString(acc.Account), p.amount(acc.Amount), acc.Records)
	}
}

func (p printer) invalidTarget(rec reconcile.Record, err error) {
	fmt.Fprintf(p.w, "Invalid target address %q in transaction %s: %v\n",
		rec.TargetAddress, rec.TxHash.StringLE(), err)
}

func (p printer) audit(res reconcile.AuditResult) {
	status := "OK"
	if !res.Balanced() {
		status = "MISMATCH"
	}
	fmt.Fprintf(p.w, "Custody audit: %s (expected %s, custody %s, difference %s source units)\n",
		status, res.Expected, res.Custody, res.Diff)
}
