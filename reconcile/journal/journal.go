// Package journal keeps reconciled migration records on disk.
package journal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/nspcc-dev/migration-contract/reconcile"
	"github.com/nspcc-dev/neo-go/pkg/io"
	"go.etcd.io/bbolt"
)

var (
	recordsBucket = []byte("records")
	metaBucket    = []byte("meta")

	checkpointKey = []byte("checkpoint")
	contractKey   = []byte("contract")
)

// ErrContractMismatch is returned by Open if the journal was created for
// another contract.
var ErrContractMismatch = errors.New("journal belongs to another contract")

// Journal is a bbolt-based store of the records. Records are keyed by
// [reconcile.Record.Key], so storing the same record twice has no effect.
type Journal struct {
	db *bbolt.DB
}

// Open opens or creates the journal file bound to the contract.
func Open(path string, contract []byte) (*Journal, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(recordsBucket); err != nil {
			return err
		}
		meta, err := tx.CreateBucketIfNotExists(metaBucket)
		if err != nil {
			return err
		}

		stored := meta.Get(contractKey)
		if stored == nil {
			return meta.Put(contractKey, contract)
		}
		if string(stored) != string(contract) {
			return ErrContractMismatch
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init journal: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the journal file.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Put stores the records and returns the number of the new ones.
func (j *Journal) Put(recs ...reconcile.Record) (int, error) {
	var added int

	err := j.db.Update(func(tx *bbolt.Tx) error {
		var err error
		added, err = putRecords(tx.Bucket(recordsBucket), recs)
		return err
	})

	return added, err
}

// Commit stores the records and moves the checkpoint to the given height
// atomically.
func (j *Journal) Commit(height uint32, recs []reconcile.Record) (int, error) {
	var added int

	err := j.db.Update(func(tx *bbolt.Tx) error {
		var err error
		added, err = putRecords(tx.Bucket(recordsBucket), recs)
		if err != nil {
			return err
		}
		return putCheckpoint(tx.Bucket(metaBucket), height)
	})

	return added, err
}

func putRecords(b *bbolt.Bucket, recs []reconcile.Record) (int, error) {
	var added int

	for i := range recs {
		key := recs[i].Key()
		if b.Get(key) != nil {
			continue
		}

		w := io.NewBufBinWriter()
		recs[i].EncodeBinary(w.BinWriter)
		if w.Err != nil {
			return 0, fmt.Errorf("encode record: %w", w.Err)
		}

		if err := b.Put(key, w.Bytes()); err != nil {
			return 0, err
		}
		added++
	}

	return added, nil
}

func putCheckpoint(b *bbolt.Bucket, height uint32) error {
	cur := b.Get(checkpointKey)
	if cur != nil && binary.BigEndian.Uint32(cur) >= height {
		return nil
	}

	val := make([]byte, 4)
	binary.BigEndian.PutUint32(val, height)
	return b.Put(checkpointKey, val)
}

// Checkpoint returns the height up to which all records are stored. The
// second value is false if there was no Commit yet.
func (j *Journal) Checkpoint() (uint32, bool, error) {
	var (
		height uint32
		ok     bool
	)

	err := j.db.View(func(tx *bbolt.Tx) error {
		val := tx.Bucket(metaBucket).Get(checkpointKey)
		if val == nil {
			return nil
		}
		if len(val) != 4 {
			return errors.New("invalid checkpoint")
		}
		height, ok = binary.BigEndian.Uint32(val), true
		return nil
	})

	return height, ok, err
}

// Resume returns the block to continue reading from. Records of the block
// may be partially stored already.
func (j *Journal) Resume() (uint32, error) {
	height, ok, err := j.Checkpoint()
	if err != nil {
		return 0, err
	}

	var from uint32
	if ok {
		from = height + 1
	}

	last, found, err := j.Last()
	if err != nil {
		return 0, err
	}
	if found && last.Block > from {
		from = last.Block
	}

	return from, nil
}

// Last returns the latest stored record.
func (j *Journal) Last() (reconcile.Record, bool, error) {
	var (
		rec   reconcile.Record
		found bool
	)

	err := j.db.View(func(tx *bbolt.Tx) error {
		_, val := tx.Bucket(recordsBucket).Cursor().Last()
		if val == nil {
			return nil
		}
		found = true
		return decode(val, &rec)
	})

	return rec, found, err
}

// Iterate passes stored records to f in the log order. Iteration stops on
// the first f error which is returned.
func (j *Journal) Iterate(f func(reconcile.Record) error) error {
	return j.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(recordsBucket).ForEach(func(_, val []byte) error {
			var rec reconcile.Record
			if err := decode(val, &rec); err != nil {
				return err
			}
			return f(rec)
		})
	})
}

// Len returns the number of stored records.
func (j *Journal) Len() (int, error) {
	var n int
	err := j.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(recordsBucket).Stats().KeyN
		return nil
	})
	return n, err
}

func decode(val []byte, rec *reconcile.Record) error {
	r := io.NewBinReaderFromBuf(val)
	rec.DecodeBinary(r)
	if r.Err != nil {
		return fmt.Errorf("decode record: %w", r.Err)
	}
	return nil
}
