package reconcile

import (
	"encoding/binary"
	"errors"

	"github.com/nspcc-dev/migration-contract/contracts/migration/migrationconst"
	rpcmigration "github.com/nspcc-dev/migration-contract/rpc/migration"
	"github.com/nspcc-dev/neo-go/pkg/encoding/bigint"
	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// KeySize is the length of the Record key.
const KeySize = 12

// Record is a migration record along with its position in the chain.
type Record struct {
	rpcmigration.MigrationEvent

	// Index of the block containing the transaction.
	Block uint32
	// Index of the transaction in the block.
	TxIndex uint32
	// Hash of the transaction.
	TxHash util.Uint256
	// Index of the notification among the transaction notifications.
	Index uint32
}

// Key returns unique key of the record. Keys of the records sort in the log
// order.
func (r Record) Key() []byte {
	key := make([]byte, KeySize)
	binary.BigEndian.PutUint32(key, r.Block)
	binary.BigEndian.PutUint32(key[4:], r.TxIndex)
	binary.BigEndian.PutUint32(key[8:], r.Index)
	return key
}

// EncodeBinary implements [io.Serializable].
func (r *Record) EncodeBinary(w *io.BinWriter) {
	w.WriteU32LE(r.Block)
	w.WriteU32LE(r.TxIndex)
	w.WriteBytes(r.TxHash[:])
	w.WriteU32LE(r.Index)
	w.WriteBytes(r.From[:])
	w.WriteVarBytes(bigint.ToBytes(r.Amount))
	w.WriteString(r.TargetAddress)
}

// DecodeBinary implements [io.Serializable].
func (r *Record) DecodeBinary(br *io.BinReader) {
	r.Block = br.ReadU32LE()
	r.TxIndex = br.ReadU32LE()
	br.ReadBytes(r.TxHash[:])
	r.Index = br.ReadU32LE()
	br.ReadBytes(r.From[:])
	amount := br.ReadVarBytes(bigint.MaxBytesLen)
	r.TargetAddress = br.ReadString(migrationconst.MaxTargetAddressLength)
	if br.Err != nil {
		return
	}

	r.Amount = bigint.FromBytes(amount)
	if r.Amount.Sign() <= 0 {
		br.Err = errors.New("non-positive amount")
	}
}
