// Package migration contains RPC wrappers for the Migration contract.
package migration

import (
	"errors"
	"fmt"
	"math/big"
	"unicode/utf8"

	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/unwrap"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
)

// MigrationMigration is a contract-specific migration.Migration type used by its methods.
type MigrationMigration struct {
	From          util.Uint160
	Amount        *big.Int
	TargetAddress string
}

// MigrationEvent represents "Migration" event emitted by the contract.
type MigrationEvent struct {
	From          util.Uint160
	Amount        *big.Int
	TargetAddress string
}

// Invoker is used by ContractReader to call various safe methods.
type Invoker interface {
	Call(contract util.Uint160, operation string, params ...any) (*result.Invoke, error)
}

// Actor is used by Contract to call state-changing methods.
type Actor interface {
	Invoker

	MakeCall(contract util.Uint160, method string, params ...any) (*transaction.Transaction, error)
	MakeRun(script []byte) (*transaction.Transaction, error)
	MakeUnsignedCall(contract util.Uint160, method string, attrs []transaction.Attribute, params ...any) (*transaction.Transaction, error)
	MakeUnsignedRun(script []byte, attrs []transaction.Attribute) (*transaction.Transaction, error)
	SendCall(contract util.Uint160, method string, params ...any) (util.Uint256, uint32, error)
	SendRun(script []byte) (util.Uint256, uint32, error)
}

// ContractReader implements safe contract methods.
type ContractReader struct {
	invoker Invoker
	hash    util.Uint160
}

// Contract implements all contract methods.
type Contract struct {
	ContractReader
	actor Actor
	hash  util.Uint160
}

// NewReader creates an instance of ContractReader using provided contract hash and the given Invoker.
func NewReader(invoker Invoker, hash util.Uint160) *ContractReader {
	return &ContractReader{invoker, hash}
}

// New creates an instance of Contract using provided contract hash and the given Actor.
func New(actor Actor, hash util.Uint160) *Contract {
	return &Contract{ContractReader{actor, hash}, actor, hash}
}

// ConversionRate invokes `conversionRate` method of contract.
func (c *ContractReader) ConversionRate() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "conversionRate"))
}

// Token invokes `token` method of contract.
func (c *ContractReader) Token() (util.Uint160, error) {
	return unwrap.Uint160(c.invoker.Call(c.hash, "token"))
}

// ZeroAmountPolicy invokes `zeroAmountPolicy` method of contract.
func (c *ContractReader) ZeroAmountPolicy() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "zeroAmountPolicy"))
}

// TargetUnit invokes `targetUnit` method of contract.
func (c *ContractReader) TargetUnit() (string, error) {
	return unwrap.UTF8String(c.invoker.Call(c.hash, "targetUnit"))
}

// Version invokes `version` method of contract.
func (c *ContractReader) Version() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "version"))
}

// Migrate creates a transaction invoking `migrate` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Migrate(from util.Uint160, amount *big.Int, targetAddress string) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "migrate", from, amount, targetAddress)
}

// MigrateTransaction creates a transaction invoking `migrate` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) MigrateTransaction(from util.Uint160, amount *big.Int, targetAddress string) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "migrate", from, amount, targetAddress)
}

// MigrateUnsigned creates a transaction invoking `migrate` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) MigrateUnsigned(from util.Uint160, amount *big.Int, targetAddress string) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "migrate", nil, from, amount, targetAddress)
}

// Update creates a transaction invoking `update` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Update(script []byte, manifest []byte, data any) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "update", script, manifest, data)
}

// UpdateTransaction creates a transaction invoking `update` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) UpdateTransaction(script []byte, manifest []byte, data any) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "update", script, manifest, data)
}

// UpdateUnsigned creates a transaction invoking `update` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) UpdateUnsigned(script []byte, manifest []byte, data any) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "update", nil, script, manifest, data)
}

// FromStackItem retrieves fields of MigrationMigration from the given
// [stackitem.Item] or returns an error if it's not possible to do to so.
func (res *MigrationMigration) FromStackItem(item stackitem.Item) error {
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 3 {
		return errors.New("wrong number of structure elements")
	}

	var err error
	res.From, res.Amount, res.TargetAddress, err = migrationFields(arr)
	return err
}

// MigrationEventsFromApplicationLog retrieves a set of all emitted events
// with "Migration" name from the provided [result.ApplicationLog].
func MigrationEventsFromApplicationLog(log *result.ApplicationLog) ([]*MigrationEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*MigrationEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "Migration" {
				continue
			}
			event := new(MigrationEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize MigrationEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to MigrationEvent or
// returns an error if it's not possible to do to so.
func (e *MigrationEvent) FromStackItem(item *stackitem.Array) error {
	if item == nil {
		return errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 3 {
		return errors.New("wrong number of structure elements")
	}

	var err error
	e.From, e.Amount, e.TargetAddress, err = migrationFields(arr)
	return err
}

func migrationFields(arr []stackitem.Item) (util.Uint160, *big.Int, string, error) {
	var (
		index  = -1
		from   util.Uint160
		amount *big.Int
		target string
		err    error
	)
	index++
	from, err = func(item stackitem.Item) (util.Uint160, error) {
		b, err := item.TryBytes()
		if err != nil {
			return util.Uint160{}, err
		}
		u, err := util.Uint160DecodeBytesBE(b)
		if err != nil {
			return util.Uint160{}, err
		}
		return u, nil
	}(arr[index])
	if err != nil {
		return from, nil, "", fmt.Errorf("field From: %w", err)
	}

	index++
	amount, err = arr[index].TryInteger()
	if err != nil {
		return from, nil, "", fmt.Errorf("field Amount: %w", err)
	}

	index++
	target, err = func(item stackitem.Item) (string, error) {
		b, err := item.TryBytes()
		if err != nil {
			return "", err
		}
		if !utf8.Valid(b) {
			return "", errors.New("not a UTF-8 string")
		}
		return string(b), nil
	}(arr[index])
	if err != nil {
		return from, amount, "", fmt.Errorf("field TargetAddress: %w", err)
	}

	return from, amount, target, nil
}
