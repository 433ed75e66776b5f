// Package repository persists audit entries in a bbolt database.
package repository

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"go.etcd.io/bbolt"

	auditDomain "github.com/allisson/btsguard/internal/audit/domain"
)

var bucketEntries = []byte("audit_entries")

// encMode keeps nanosecond timestamps so signatures survive a round trip.
var encMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// BoltRepository stores entries keyed by their big-endian sequence number.
// The bbolt file lock also keeps a second process from writing the same trail.
type BoltRepository struct {
	db *bbolt.DB
}

// NewBoltRepository opens (or creates) the audit database at path.
func NewBoltRepository(path string) (*BoltRepository, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEntries)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create audit bucket: %w", err)
	}

	return &BoltRepository{db: db}, nil
}

// Append allocates the next sequence number and stores the entry produced by build
// in the same transaction. A failed build or write rolls the sequence back.
func (r *BoltRepository) Append(
	ctx context.Context,
	build func(sequence uint64) (*auditDomain.Entry, error),
) (*auditDomain.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entry *auditDomain.Entry
	err := r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}

		entry, err = build(seq)
		if err != nil {
			return err
		}

		data, err := encMode.Marshal(entry)
		if err != nil {
			return fmt.Errorf("encode entry: %w", err)
		}
		return b.Put(sequenceKey(seq), data)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ListSince returns entries with a sequence strictly greater than after, in order.
func (r *BoltRepository) ListSince(ctx context.Context, after uint64) ([]*auditDomain.Entry, error) {
	var entries []*auditDomain.Entry
	err := r.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketEntries).Cursor()
		for k, v := c.Seek(sequenceKey(after + 1)); k != nil; k, v = c.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var entry auditDomain.Entry
			if err := cbor.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("decode entry %d: %w", binary.BigEndian.Uint64(k), err)
			}
			entries = append(entries, &entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// LastSequence returns the highest sequence number handed out so far.
func (r *BoltRepository) LastSequence(ctx context.Context) (uint64, error) {
	var seq uint64
	err := r.db.View(func(tx *bbolt.Tx) error {
		seq = tx.Bucket(bucketEntries).Sequence()
		return nil
	})
	return seq, err
}

// Close releases the database file lock.
func (r *BoltRepository) Close() error {
	return r.db.Close()
}

func sequenceKey(seq uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, seq)
}
