package reconcile_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/nspcc-dev/migration-contract/reconcile"
	"github.com/nspcc-dev/neo-go/pkg/core/block"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/neorpc"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/trigger"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/opcode"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/stretchr/testify/require"
)

var contract = util.Uint160{0xc0, 0x17}

type fakeChain struct {
	blocks []*block.Block
	logs   map[util.Uint256]*result.ApplicationLog

	countErr, blockErr, logErr error
}

func (c *fakeChain) GetBlockCount() (uint32, error) {
	return uint32(len(c.blocks)), c.countErr
}

func (c *fakeChain) GetBlockByIndex(index uint32) (*block.Block, error) {
	if c.blockErr != nil {
		return nil, c.blockErr
	}
	return c.blocks[index], nil
}

func (c *fakeChain) GetApplicationLog(hash util.Uint256, _ *trigger.Type) (*result.ApplicationLog, error) {
	if c.logErr != nil {
		return nil, c.logErr
	}
	return c.logs[hash], nil
}

// addBlock appends a block with a transaction per execution.
func (c *fakeChain) addBlock(execs ...state.Execution) *block.Block {
	if c.logs == nil {
		c.logs = make(map[util.Uint256]*result.ApplicationLog)
	}

	b := &block.Block{Header: block.Header{Index: uint32(len(c.blocks))}}
	for _, ex := range execs {
		tx := transaction.New([]byte{byte(opcode.PUSH1)}, 0)
		tx.Nonce = uint32(len(c.logs))
		b.Transactions = append(b.Transactions, tx)

		ex.Trigger = trigger.Application
		c.logs[tx.Hash()] = &result.ApplicationLog{
			Container:     tx.Hash(),
			IsTransaction: true,
			Executions:    []state.Execution{ex},
		}
	}
	c.blocks = append(c.blocks, b)
	return b
}

func migrationEvent(hash util.Uint160, name string, from util.Uint160, amount int64, target string) state.NotificationEvent {
	return state.NotificationEvent{
		ScriptHash: hash,
		Name:       name,
		Item: stackitem.NewArray([]stackitem.Item{
			stackitem.NewByteArray(from.BytesBE()),
			stackitem.NewBigInteger(big.NewInt(amount)),
			stackitem.NewByteArray([]byte(target)),
		}),
	}
}

func halted(events ...state.NotificationEvent) state.Execution {
	return state.Execution{VMState: vmstate.Halt, Events: events}
}

func newFakeReader(t *testing.T, c *fakeChain) *reconcile.Reader {
	r, err := reconcile.NewReader(reconcile.Prm{Chain: c, Contract: contract})
	require.NoError(t, err)
	return r
}

func TestNewReader(t *testing.T) {
	_, err := reconcile.NewReader(reconcile.Prm{Contract: contract})
	require.Error(t, err)
	_, err = reconcile.NewReader(reconcile.Prm{Chain: new(fakeChain)})
	require.Error(t, err)
}

func TestReader_Filter(t *testing.T) {
	var (
		c     = new(fakeChain)
		from  = util.Uint160{1}
		other = util.Uint160{2}
	)

	c.addBlock()
	c.addBlock(
		halted(
			migrationEvent(other, "Transfer", from, 1000, ""),
			migrationEvent(contract, "Migration", from, 1, "first"),
			migrationEvent(contract, "Migration", from, 2, "second"),
		),
		// foreign contract with the same notification
		halted(migrationEvent(other, "Migration", from, 5, "foreign")),
		// faulted transaction reverts everything
		state.Execution{
			VMState: vmstate.Fault,
			Events:  []state.NotificationEvent{migrationEvent(contract, "Migration", from, 7, "faulted")},
		},
		halted(migrationEvent(contract, "Migration", from, 3, "third")),
	)

	recs, err := newFakeReader(t, c).ScanRange(context.Background(), 0, reconcile.Latest)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	for i, target := range []string{"first", "second", "third"} {
		require.Equal(t, target, recs[i].TargetAddress)
		require.EqualValues(t, i+1, recs[i].Amount.Int64())
		require.EqualValues(t, 1, recs[i].Block)
	}

	require.EqualValues(t, 0, recs[0].TxIndex)
	require.EqualValues(t, 1, recs[0].Index)
	require.EqualValues(t, 2, recs[1].Index)
	require.EqualValues(t, 3, recs[2].TxIndex)
	require.EqualValues(t, 0, recs[2].Index)
	require.Equal(t, c.blocks[1].Transactions[3].Hash(), recs[2].TxHash)
}

func TestReader_ReadFailure(t *testing.T) {
	ctx := context.Background()
	c := new(fakeChain)
	c.addBlock(halted(migrationEvent(contract, "Migration", util.Uint160{1}, 1, "ok")))
	c.addBlock()
	c.addBlock(
		halted(migrationEvent(contract, "Migration", util.Uint160{2}, 2, "second")),
		halted(migrationEvent(contract, "Migration", util.Uint160{3}, 3, "third")),
	)
	r := newFakeReader(t, c)

	baseline, err := r.ScanRange(ctx, 0, reconcile.Latest)
	require.NoError(t, err)
	require.Len(t, baseline, 3)

	for _, tc := range []struct {
		name string
		set  func(err error)
	}{
		{"block count", func(err error) { c.countErr = err }},
		{"block", func(err error) { c.blockErr = err }},
		{"application log", func(err error) { c.logErr = err }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cause := errors.New("connection reset")
			tc.set(cause)

			_, err := r.ScanRange(ctx, 0, reconcile.Latest)
			require.ErrorIs(t, err, reconcile.ErrReadFailure)
			require.ErrorIs(t, err, cause)

			// retry with the same bounds once the transport is back
			tc.set(nil)
			recs, err := r.ScanRange(ctx, 0, reconcile.Latest)
			require.NoError(t, err)
			require.Equal(t, baseline, recs)
		})
	}

	t.Run("missing application log", func(t *testing.T) {
		hash := c.blocks[2].Transactions[1].Hash()
		log := c.logs[hash]
		delete(c.logs, hash)

		_, err := r.ScanRange(ctx, 0, reconcile.Latest)
		require.ErrorIs(t, err, reconcile.ErrReadFailure)

		c.logs[hash] = log
		recs, err := r.ScanRange(ctx, 0, reconcile.Latest)
		require.NoError(t, err)
		require.Equal(t, baseline, recs)
	})

	t.Run("malformed notification", func(t *testing.T) {
		c.addBlock(halted(state.NotificationEvent{
			ScriptHash: contract,
			Name:       "Migration",
			Item:       stackitem.NewArray([]stackitem.Item{stackitem.Make(1)}),
		}))

		_, err := r.ScanRange(ctx, 0, reconcile.Latest)
		require.ErrorIs(t, err, reconcile.ErrReadFailure)

		// preceding blocks are still readable
		recs, err := r.ScanRange(ctx, 0, 2)
		require.NoError(t, err)
		require.Equal(t, baseline, recs)
	})

	t.Run("empty chain", func(t *testing.T) {
		_, err := newFakeReader(t, new(fakeChain)).ScanRange(ctx, 0, reconcile.Latest)
		require.ErrorIs(t, err, reconcile.ErrReadFailure)
	})
}

type fakeSubscriber struct {
	err    error
	blocks []*block.Block
	closed bool

	unsubscribed bool
}

func (s *fakeSubscriber) ReceiveBlocks(_ *neorpc.BlockFilter, rcvr chan<- *block.Block) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	go func() {
		for _, b := range s.blocks {
			rcvr <- b
		}
		if s.closed {
			close(rcvr)
		}
	}()
	return "1", nil
}

func (s *fakeSubscriber) Unsubscribe(string) error {
	s.unsubscribed = true
	return nil
}

func TestReader_SubscriptionFailure(t *testing.T) {
	ctx := context.Background()
	c := new(fakeChain)
	b := c.addBlock(halted(migrationEvent(contract, "Migration", util.Uint160{1}, 1, "ok")))
	r := newFakeReader(t, c)

	t.Run("subscribe", func(t *testing.T) {
		cause := errors.New("unsupported")
		err := r.Subscribe(ctx, &fakeSubscriber{err: cause}, make(chan reconcile.Record))
		require.ErrorIs(t, err, reconcile.ErrReadFailure)
		require.ErrorIs(t, err, cause)
	})

	t.Run("closed stream", func(t *testing.T) {
		sub := &fakeSubscriber{blocks: []*block.Block{b}, closed: true}
		out := make(chan reconcile.Record, 1)

		err := r.Subscribe(ctx, sub, out)
		require.ErrorIs(t, err, reconcile.ErrReadFailure)
		require.True(t, sub.unsubscribed)

		require.Len(t, out, 1)
		require.Equal(t, "ok", (<-out).TargetAddress)
	})
}

func TestReader_FollowGap(t *testing.T) {
	c := new(fakeChain)
	for i := 0; i < 5; i++ {
		c.addBlock(halted(migrationEvent(contract, "Migration", util.Uint160{1}, int64(i+1), "")))
	}
	r := newFakeReader(t, c)

	// persisted: 0..2, the subscription starts from block 4 while block 3
	// is missed and block 2 is repeated
	all := c.blocks
	c.blocks = all[:3]
	sub := &fakeSubscriber{blocks: []*block.Block{all[2], all[4]}, closed: true}
	out := make(chan reconcile.Record, 10)

	// the gap is read from the chain once it is persisted
	ready := make(chan struct{})
	wrapped := subscribeHook{sub, func() { c.blocks = all; close(ready) }}

	err := r.Follow(context.Background(), wrapped, 1, out)
	require.ErrorIs(t, err, reconcile.ErrReadFailure)
	<-ready

	close(out)
	var amounts []int64
	for rec := range out {
		amounts = append(amounts, rec.Amount.Int64())
	}
	require.Equal(t, []int64{2, 3, 4, 5}, amounts)
}

type subscribeHook struct {
	*fakeSubscriber
	hook func()
}

func (s subscribeHook) ReceiveBlocks(flt *neorpc.BlockFilter, rcvr chan<- *block.Block) (string, error) {
	s.hook()
	return s.fakeSubscriber.ReceiveBlocks(flt, rcvr)
}
