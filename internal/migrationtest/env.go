// Package migrationtest provides test environment with the Migration contract
// and the source token deployed to a single-node chain.
package migrationtest

import (
	"math/big"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/neotest"
	"github.com/nspcc-dev/neo-go/pkg/neotest/chain"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/migration-contract/contracts/migration/migrationconst"
	"github.com/stretchr/testify/require"
)

// TargetUnit is a target unit name used by the default environment.
const TargetUnit = "LUX"

// Options groups deployment parameters of the Migration contract. Zero
// values are replaced with defaults.
type Options struct {
	Rate       int64
	Policy     int64
	TargetUnit string
}

// Env groups invokers of the deployed contracts. Both invokers are signed by
// committee which owns the whole source token supply initially.
type Env struct {
	Executor  *neotest.Executor
	Token     *neotest.ContractInvoker
	Migration *neotest.ContractInvoker
	Rate      int64
}

// TokenSupply is a total supply of the source token (1_000_000.0 with
// 18 decimals).
func TokenSupply() *big.Int {
	return new(big.Int).Mul(big.NewInt(1_000_000), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

// NewEnv creates a new chain, deploys the source token and the Migration
// contract to it.
func NewEnv(t testing.TB, opts Options) *Env {
	if opts.Rate == 0 {
		opts.Rate = migrationconst.DefaultConversionRate
	}
	if opts.TargetUnit == "" {
		opts.TargetUnit = TargetUnit
	}

	bc, acc := chain.NewSingle(t)
	e := neotest.NewExecutor(t, bc, acc, acc)

	tokenCtr := neotest.CompileFile(t, e.CommitteeHash, TokenPath(), filepath.Join(TokenPath(), "config.yml"))
	e.DeployContract(t, tokenCtr, []any{e.CommitteeHash, TokenSupply()})

	migrationCtr := neotest.CompileFile(t, e.CommitteeHash, MigrationPath(), filepath.Join(MigrationPath(), "config.yml"))
	e.DeployContract(t, migrationCtr, []any{tokenCtr.Hash, opts.Rate, opts.Policy, opts.TargetUnit})

	return &Env{
		Executor:  e,
		Token:     e.CommitteeInvoker(tokenCtr.Hash),
		Migration: e.CommitteeInvoker(migrationCtr.Hash),
		Rate:      opts.Rate,
	}
}

// NewHolder creates a new account holding the given amount of the source
// token.
func (x *Env) NewHolder(t testing.TB, amount *big.Int) neotest.Signer {
	acc := x.Executor.NewAccount(t)
	x.Token.Invoke(t, true, "transfer", x.Executor.CommitteeHash, acc.ScriptHash(), amount, nil)
	return acc
}

// Approve allows the Migration contract to pull amount from the holder.
func (x *Env) Approve(t testing.TB, holder neotest.Signer, amount *big.Int) {
	x.Token.WithSigners(holder).Invoke(t, true, "approve", holder.ScriptHash(), x.Migration.Hash, amount)
}

// Migrate invokes successful migration on behalf of the holder in a separate
// block and returns the transaction hash.
func (x *Env) Migrate(t testing.TB, holder neotest.Signer, amount any, target string) util.Uint256 {
	tx := x.Migration.WithSigners(holder).PrepareInvoke(t, "migrate", holder.ScriptHash(), amount, target)
	x.Executor.AddNewBlock(t, tx)
	x.Executor.CheckHalt(t, tx.Hash())
	return tx.Hash()
}

// BalanceOf returns source token balance of the account.
func (x *Env) BalanceOf(t testing.TB, acc util.Uint160) *big.Int {
	s, err := x.Token.TestInvoke(t, "balanceOf", acc)
	require.NoError(t, err)
	return s.Pop().BigInt()
}

// Custody returns source token balance of the Migration contract.
func (x *Env) Custody(t testing.TB) *big.Int {
	return x.BalanceOf(t, x.Migration.Hash)
}

// Allowance returns amount the Migration contract can still pull from the
// holder.
func (x *Env) Allowance(t testing.TB, holder util.Uint160) *big.Int {
	s, err := x.Token.TestInvoke(t, "allowance", holder, x.Migration.Hash)
	require.NoError(t, err)
	return s.Pop().BigInt()
}

// MigrationPath returns path to the Migration contract sources.
func MigrationPath() string {
	return filepath.Join(rootDir(), "contracts", "migration")
}

// TokenPath returns path to the test source token sources.
func TokenPath() string {
	return filepath.Join(rootDir(), "internal", "testcontracts", "pulltoken")
}

func rootDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..")
}
