package reconcile

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/nspcc-dev/migration-contract/contracts/migration/migrationconst"
	rpcmigration "github.com/nspcc-dev/migration-contract/rpc/migration"
	"github.com/nspcc-dev/neo-go/pkg/core/block"
	"github.com/nspcc-dev/neo-go/pkg/neorpc"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/trigger"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"go.uber.org/zap"
)

// Latest may be passed as the upper bound of the scanned range to denote the
// current chain height.
const Latest = math.MaxUint32

var (
	// ErrInvalidRange is returned when the lower bound of the range is greater
	// than the upper one.
	ErrInvalidRange = errors.New("invalid block range")

	// ErrRangeNotPersisted is returned when the range ends above the current
	// chain height.
	ErrRangeNotPersisted = errors.New("block range is not persisted yet")

	// ErrReadFailure is returned when the event log can't be read or decoded.
	// Reading may be retried with the same parameters.
	ErrReadFailure = errors.New("read failure")
)

// Chain provides access to the persisted blocks and their application logs.
// It is implemented by [rpcclient.Client] and [rpcclient.WSClient].
type Chain interface {
	GetBlockCount() (uint32, error)
	GetBlockByIndex(index uint32) (*block.Block, error)
	GetApplicationLog(hash util.Uint256, trig *trigger.Type) (*result.ApplicationLog, error)
}

// Subscriber delivers new blocks as they are added to the chain. It is
// implemented by [rpcclient.WSClient]. Channel passed to ReceiveBlocks is
// closed when the connection is lost.
type Subscriber interface {
	ReceiveBlocks(flt *neorpc.BlockFilter, rcvr chan<- *block.Block) (string, error)
	Unsubscribe(id string) error
}

// Prm groups parameters of the Reader.
type Prm struct {
	// Chain to read persisted blocks and logs from. Required.
	Chain Chain

	// Migration contract address. Required.
	Contract util.Uint160

	// Writes progress into the log. Optional, nop logger is used by default.
	Logger *zap.Logger

	// Size of the subscription channel buffer. Optional.
	BufferSize int
}

// Reader restores the sequence of migration records from the chain. It has
// no state of its own, so concurrent scans are safe.
type Reader struct {
	chain    Chain
	contract util.Uint160
	log      *zap.Logger
	bufSize  int
}

const defaultBufferSize = 16

var appTrigger = trigger.Application

// NewReader constructs a new Reader.
func NewReader(prm Prm) (*Reader, error) {
	if prm.Chain == nil {
		return nil, errors.New("missing chain")
	}
	if prm.Contract.Equals(util.Uint160{}) {
		return nil, errors.New("missing contract address")
	}

	r := &Reader{
		chain:    prm.Chain,
		contract: prm.Contract,
		log:      prm.Logger,
		bufSize:  prm.BufferSize,
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	if r.bufSize <= 0 {
		r.bufSize = defaultBufferSize
	}

	return r, nil
}

// Height returns index of the latest persisted block.
func (r *Reader) Height() (uint32, error) {
	count, err := r.chain.GetBlockCount()
	if err != nil {
		return 0, fmt.Errorf("%w: get block count: %w", ErrReadFailure, err)
	}
	if count == 0 {
		return 0, fmt.Errorf("%w: empty chain", ErrReadFailure)
	}
	return count - 1, nil
}

// ScanRange returns all records from the blocks of the inclusive [from, to]
// range in the log order. to may be Latest.
func (r *Reader) ScanRange(ctx context.Context, from, to uint32) ([]Record, error) {
	var res []Record

	err := r.Scan(ctx, from, to, func(rec Record) error {
		res = append(res, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

// Scan is like ScanRange but passes records to the handler one by one.
// Handler errors are returned as is.
func (r *Reader) Scan(ctx context.Context, from, to uint32, handler func(Record) error) error {
	if from > to {
		return fmt.Errorf("%w: %d > %d", ErrInvalidRange, from, to)
	}

	height, err := r.Height()
	if err != nil {
		return err
	}

	if to == Latest {
		to = height
		if from > to {
			return nil
		}
	} else if to > height {
		return fmt.Errorf("%w: %d > %d", ErrRangeNotPersisted, to, height)
	}

	r.log.Debug("scanning blocks", zap.Uint32("from", from), zap.Uint32("to", to))

	for i := from; ; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		b, err := r.chain.GetBlockByIndex(i)
		if err != nil {
			return fmt.Errorf("%w: get block #%d: %w", ErrReadFailure, i, err)
		}

		if err := r.blockRecords(b, handler); err != nil {
			return err
		}

		if i == to {
			return nil
		}
	}
}

// Subscribe sends records from the newly added blocks to out until the
// context is done or the subscription fails. It returns ctx.Err() in the
// first case and ErrReadFailure in the second one.
func (r *Reader) Subscribe(ctx context.Context, sub Subscriber, out chan<- Record) error {
	return r.follow(ctx, sub, nil, out)
}

// Follow sends records from the blocks starting from the given one to out.
// Persisted blocks are read first, then Follow switches to the newly added
// ones without gaps or repeats. It returns like Subscribe does.
func (r *Reader) Follow(ctx context.Context, sub Subscriber, from uint32, out chan<- Record) error {
	return r.follow(ctx, sub, &from, out)
}

func (r *Reader) follow(ctx context.Context, sub Subscriber, from *uint32, out chan<- Record) error {
	send := func(rec Record) error {
		select {
		case out <- rec:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	// next is the index of the first block not delivered yet, nil until
	// the first one arrives for plain subscriptions
	next := from

	if next != nil {
		height, err := r.Height()
		if err != nil {
			return err
		}
		if *next <= height {
			if err := r.Scan(ctx, *next, height, send); err != nil {
				return err
			}
			n := height + 1
			next = &n
		}
	}

	blocks := make(chan *block.Block, r.bufSize)
	id, err := sub.ReceiveBlocks(nil, blocks)
	if err != nil {
		return fmt.Errorf("%w: subscribe to blocks: %w", ErrReadFailure, err)
	}
	defer r.unsubscribe(sub, id, blocks)

	r.log.Info("subscribed to new blocks")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case b, ok := <-blocks:
			if !ok {
				return fmt.Errorf("%w: block stream is closed", ErrReadFailure)
			}

			if next != nil {
				if b.Index < *next {
					continue
				}
				if b.Index > *next {
					// blocks added between scan and subscription
					if err := r.Scan(ctx, *next, b.Index-1, send); err != nil {
						return err
					}
				}
			}

			if err := r.blockRecords(b, send); err != nil {
				return err
			}

			n := b.Index + 1
			next = &n
		}
	}
}

// unsubscribe drops the subscription, the channel is drained meanwhile since
// the client may block on it.
func (r *Reader) unsubscribe(sub Subscriber, id string, blocks chan *block.Block) {
	done := make(chan struct{})
	go func() {
		for {
			select {
			case _, ok := <-blocks:
				if !ok {
					return
				}
			case <-done:
				return
			}
		}
	}()

	if err := sub.Unsubscribe(id); err != nil {
		r.log.Warn("failed to unsubscribe from blocks", zap.String("id", id), zap.Error(err))
	}
	close(done)
}

func (r *Reader) blockRecords(b *block.Block, handler func(Record) error) error {
	for i, tx := range b.Transactions {
		log, err := r.chain.GetApplicationLog(tx.Hash(), &appTrigger)
		if err != nil {
			return fmt.Errorf("%w: get application log of %s: %w", ErrReadFailure, tx.Hash().StringLE(), err)
		}

		if log == nil {
			return fmt.Errorf("%w: missing application log of %s", ErrReadFailure, tx.Hash().StringLE())
		}

		recs, err := r.decode(b.Index, uint32(i), log)
		if err != nil {
			return err
		}

		for j := range recs {
			if err := handler(recs[j]); err != nil {
				return err
			}
		}
	}

	return nil
}

// decode returns records of successful executions only: a faulted
// transaction reverts the transfer so its notifications do not count.
func (r *Reader) decode(height, txIndex uint32, log *result.ApplicationLog) ([]Record, error) {
	var res []Record

	for _, ex := range log.Executions {
		if ex.Trigger != trigger.Application || ex.VMState != vmstate.Halt {
			continue
		}

		for j, ev := range ex.Events {
			if ev.Name != migrationconst.NotificationName || !ev.ScriptHash.Equals(r.contract) {
				continue
			}

			var e rpcmigration.MigrationEvent
			if err := e.FromStackItem(ev.Item); err != nil {
				return nil, fmt.Errorf("%w: decode notification #%d of %s: %w",
					ErrReadFailure, j, log.Container.StringLE(), err)
			}

			res = append(res, Record{
				MigrationEvent: e,
				Block:          height,
				TxIndex:        txIndex,
				TxHash:         log.Container,
				Index:          uint32(j),
			})
		}
	}

	return res, nil
}
