// Package pulltoken implements NEP-17 token extended with allowances. It is
// used as a source token in tests.
package pulltoken

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/management"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
	"github.com/nspcc-dev/migration-contract/common"
)

const (
	symbol    = "SRC"
	decimals  = 18
	supplyKey = "supply"

	errInsufficientAllowance = "insufficient allowance"
	errInsufficientBalance   = "insufficient balance"
	errNegativeAmount        = "negative amount"
)

var (
	balancePrefix   = []byte{'b'}
	allowancePrefix = []byte{'a'}
)

// nolint:deadcode,unused
func _deploy(data any, isUpdate bool) {
	if isUpdate {
		return
	}

	args := data.(struct {
		owner  interop.Hash160
		supply int
	})

	common.CheckAccount(args.owner)

	ctx := storage.GetContext()
	common.PutInt(ctx, supplyKey, args.supply)
	common.PutInt(ctx, balanceKey(args.owner), args.supply)

	runtime.Notify("Transfer", interop.Hash160(nil), args.owner, args.supply)
}

func Symbol() string {
	return symbol
}

func Decimals() int {
	return decimals
}

func TotalSupply() int {
	return common.GetInt(storage.GetReadOnlyContext(), supplyKey)
}

func BalanceOf(account interop.Hash160) int {
	common.CheckAccount(account)
	return common.GetInt(storage.GetReadOnlyContext(), balanceKey(account))
}

func Allowance(owner, spender interop.Hash160) int {
	return common.GetInt(storage.GetReadOnlyContext(), allowanceKey(owner, spender))
}

func Transfer(from, to interop.Hash160, amount int, data any) bool {
	common.CheckAccount(from)
	common.CheckAccount(to)

	if amount < 0 {
		panic(errNegativeAmount)
	}

	if !runtime.CheckWitness(from) {
		return false
	}

	return move(storage.GetContext(), from, to, amount, data)
}

// Approve allows spender to transfer up to amount tokens from the owner
// account. Zero amount revokes the allowance.
func Approve(owner, spender interop.Hash160, amount int) bool {
	common.CheckAccount(owner)
	common.CheckAccount(spender)
	common.CheckOwnerWitness(owner)

	if amount < 0 {
		panic(errNegativeAmount)
	}

	common.PutInt(storage.GetContext(), allowanceKey(owner, spender), amount)
	runtime.Notify("Approval", owner, spender, amount)

	return true
}

// TransferFrom moves amount tokens from the `from` account to the `to`
// account on behalf of the witnessed spender and decreases its allowance.
func TransferFrom(spender, from, to interop.Hash160, amount int, data any) bool {
	common.CheckAccount(from)
	common.CheckAccount(to)
	common.CheckWitness(spender)

	if amount < 0 {
		panic(errNegativeAmount)
	}

	ctx := storage.GetContext()
	key := allowanceKey(from, spender)

	allowed := common.GetInt(ctx, key)
	if allowed < amount {
		panic(errInsufficientAllowance)
	}
	common.PutInt(ctx, key, allowed-amount)

	if !move(ctx, from, to, amount, data) {
		panic(errInsufficientBalance)
	}

	return true
}

func move(ctx storage.Context, from, to interop.Hash160, amount int, data any) bool {
	fromKey := balanceKey(from)

	fromBalance := common.GetInt(ctx, fromKey)
	if fromBalance < amount {
		return false
	}

	if !from.Equals(to) {
		toKey := balanceKey(to)

		common.PutInt(ctx, fromKey, fromBalance-amount)
		common.PutInt(ctx, toKey, common.GetInt(ctx, toKey)+amount)
	}

	runtime.Notify("Transfer", from, to, amount)

	if management.GetContract(to) != nil {
		contract.Call(to, "onNEP17Payment", contract.All, from, amount, data)
	}

	return true
}

func balanceKey(account interop.Hash160) []byte {
	return append(balancePrefix, account...)
}

func allowanceKey(owner, spender interop.Hash160) []byte {
	return append(append(allowancePrefix, owner...), spender...)
}
