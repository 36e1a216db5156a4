package migration

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/management"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/std"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
	"github.com/nspcc-dev/migration-contract/common"
	"github.com/nspcc-dev/migration-contract/contracts/migration/migrationconst"
)

type (
	// Config is an immutable contract configuration set on deployment.
	Config struct {
		Token      interop.Hash160
		Rate       int
		Policy     int
		TargetUnit string
	}

	// Migration is a result of a successful migrate call. It carries the
	// same values as the Migration notification.
	Migration struct {
		From          interop.Hash160
		Amount        int
		TargetAddress string
	}
)

const (
	configKey = "config"

	// pullKey exists in storage only while migrate pulls funds from the
	// source token.
	pullKey = "pull"
)

// _deploy sets up the source token, conversion rate, zero amount policy and
// the target unit name. None of them can be changed afterwards.
// nolint:deadcode,unused
func _deploy(data any, isUpdate bool) {
	if isUpdate {
		args := data.([]any)
		common.CheckVersion(args[len(args)-1].(int))
		return
	}

	args := data.(struct {
		token      interop.Hash160
		rate       int
		policy     int
		targetUnit string
	})

	if len(args.token) != interop.Hash160Len {
		panic(migrationconst.ErrInvalidToken)
	}

	if args.rate <= 0 {
		panic(migrationconst.ErrInvalidRate)
	}

	if args.policy != migrationconst.PolicyThreshold && args.policy != migrationconst.PolicyRejectZero {
		panic(migrationconst.ErrUnknownPolicy)
	}

	if len(args.targetUnit) == 0 {
		panic(migrationconst.ErrMissingTargetUnit)
	}

	ctx := storage.GetContext()
	common.SetSerialized(ctx, configKey, Config{
		Token:      args.token,
		Rate:       args.rate,
		Policy:     args.policy,
		TargetUnit: args.targetUnit,
	})

	runtime.Log("migration: contract initialized")
}

// Update method updates contract source code and manifest. It can be invoked
// only by committee.
func Update(script []byte, manifest []byte, data any) {
	if !common.HasUpdateAccess() {
		panic(common.ErrUpdateAccessDenied)
	}

	contract.Call(interop.Hash160(management.Hash), "update",
		contract.All, script, manifest, common.AppendVersion(data))
	runtime.Log("migration contract updated")
}

// Migrate converts amount of the source token units into the target units
// and moves the converted part of the amount from the `from` account to the
// contract account. It can be invoked only by the `from` account owner, who
// must approve the transfer to the contract in the source token beforehand.
//
// Conversion rounds down: only targetAmount*rate source units are
// transferred, the rest stays with the owner. Requests converting to less
// than one target unit are rejected.
//
// This method produces Migration notification with the converted amount and
// targetAddress. targetAddress is stored as is, its format is not checked.
func Migrate(from interop.Hash160, amount int, targetAddress string) Migration {
	ctx := storage.GetContext()
	cfg := getConfig(ctx)

	if cfg.Policy == migrationconst.PolicyRejectZero && amount <= 0 {
		panic(migrationconst.ErrNonPositiveAmount)
	}

	targetAmount := amount / cfg.Rate
	if targetAmount < 1 {
		panic(migrationconst.ErrAmountBelowUnit + " " + cfg.TargetUnit)
	}

	if len(targetAddress) == 0 {
		panic(migrationconst.ErrEmptyTargetAddress)
	} else if len(targetAddress) > migrationconst.MaxTargetAddressLength {
		panic(migrationconst.ErrLongTargetAddress)
	}

	common.CheckAccount(from)
	common.CheckOwnerWitness(from)

	self := runtime.GetExecutingScriptHash()

	storage.Put(ctx, pullKey, []byte{1})
	transferred := contract.Call(cfg.Token, migrationconst.PullMethod, contract.All,
		self, from, self, targetAmount*cfg.Rate, nil).(bool)
	if !transferred {
		panic(migrationconst.ErrTransferFailed)
	}
	storage.Delete(ctx, pullKey)

	runtime.Notify("Migration", from, targetAmount, targetAddress)

	return Migration{
		From:          from,
		Amount:        targetAmount,
		TargetAddress: targetAddress,
	}
}

// OnNEP17Payment is a callback for the source token. It accepts funds only
// when they are pulled by Migrate, any other payment is rejected.
func OnNEP17Payment(from interop.Hash160, amount int, data any) {
	ctx := storage.GetReadOnlyContext()
	cfg := getConfig(ctx)

	caller := runtime.GetCallingScriptHash()
	if !caller.Equals(cfg.Token) || storage.Get(ctx, pullKey) == nil {
		panic(migrationconst.ErrDirectTransfer)
	}
}

// ConversionRate returns the number of source token units per one target
// unit.
func ConversionRate() int {
	return getConfig(storage.GetReadOnlyContext()).Rate
}

// Token returns script hash of the source token.
func Token() interop.Hash160 {
	return getConfig(storage.GetReadOnlyContext()).Token
}

// ZeroAmountPolicy returns zero amount policy the contract was deployed with.
func ZeroAmountPolicy() int {
	return getConfig(storage.GetReadOnlyContext()).Policy
}

// TargetUnit returns name of the target unit.
func TargetUnit() string {
	return getConfig(storage.GetReadOnlyContext()).TargetUnit
}

// Version returns version of the contract.
func Version() int {
	return common.Version
}

func getConfig(ctx storage.Context) Config {
	return std.Deserialize(storage.Get(ctx, configKey).([]byte)).(Config)
}
